// Package auth hashes passwords and mints opaque session tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// TokenBytes is the entropy of a session token; the hex form is twice as long.
const TokenBytes = 32

// Passwords hashes and checks passwords at one bcrypt cost.
type Passwords struct {
	cost int
	// dummy is compared against when an email is unknown, at the same cost
	// as real hashes, so a failed login takes as long either way.
	dummy []byte
}

// NewPasswords builds a hasher for cost. A cost outside bcrypt's range
// falls back to the default.
func NewPasswords(cost int) (*Passwords, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("ledger-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &Passwords{cost: cost, dummy: dummy}, nil
}

// Cost is the bcrypt cost new hashes are created with.
func (p *Passwords) Cost() int { return p.cost }

func (p *Passwords) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Check reports whether password matches hash. An empty hash is checked
// against the dummy so the call takes the same time.
func (p *Passwords) Check(password, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken returns a random hex token.
func GenerateSessionToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is what the sessions table stores in place of the token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// WellFormedToken rejects anything that could not have come from
// GenerateSessionToken before it reaches the database.
func WellFormedToken(token string) bool {
	if len(token) != TokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
