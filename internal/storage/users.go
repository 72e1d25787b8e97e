package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// NewSession describes a session row. Only the hash of the bearer token is
// stored.
type NewSession struct {
	TokenHash string
	ExpiresAt time.Time
}

const userColumns = "id, email, name, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// CreateUser inserts a user and its first session in one transaction.
// A duplicate email yields a conflict error.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string, session NewSession) (core.User, error) {
	const op = "create user"
	var user core.User
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM users WHERE email = ?"), email).Scan(&exists)
		if err != nil {
			return core.StoreFailure(op, fmt.Errorf("check email: %w", err))
		}
		if exists > 0 {
			return core.Conflict(op, core.ErrEmailTaken)
		}

		var id int64
		err = tx.QueryRowContext(ctx,
			s.rebind("INSERT INTO users (email, name, password_hash) VALUES (?, ?, ?) RETURNING id"),
			email, name, passwordHash,
		).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return core.Conflict(op, core.ErrEmailTaken)
			}
			return core.StoreFailure(op, fmt.Errorf("insert user: %w", err))
		}

		if err := s.insertSession(ctx, tx, id, session); err != nil {
			return core.StoreFailure(op, err)
		}

		user, err = scanUser(tx.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
		if err != nil {
			return core.StoreFailure(op, fmt.Errorf("read user: %w", err))
		}
		return nil
	})
	return user, err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE email = ?"), email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFound("get user by email", core.ErrUserNotFound)
	}
	if err != nil {
		return core.User{}, core.StoreFailure("get user by email", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFound("get user", core.ErrUserNotFound)
	}
	if err != nil {
		return core.User{}, core.StoreFailure("get user", err)
	}
	return u, nil
}

func (s *Store) insertSession(ctx context.Context, tx *sql.Tx, userID int64, session NewSession) error {
	_, err := tx.ExecContext(ctx,
		s.rebind("INSERT INTO sessions (token_hash, user_id, expires_at) VALUES (?, ?, ?)"),
		session.TokenHash, userID, session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// CreateSession stores a new session for an existing user.
func (s *Store) CreateSession(ctx context.Context, userID int64, session NewSession) error {
	return s.withTx(ctx, "create session", func(tx *sql.Tx) error {
		if err := s.insertSession(ctx, tx, userID, session); err != nil {
			return core.StoreFailure("create session", err)
		}
		return nil
	})
}

// SessionUser returns the user owning a non-expired session. Unknown and
// expired sessions both yield a not-found error.
func (s *Store) SessionUser(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT u.id
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = ? AND s.expires_at > ?`),
		tokenHash, now.Unix(),
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.NotFound("validate session", errors.New("session not found"))
	}
	if err != nil {
		return 0, core.StoreFailure("validate session", err)
	}
	return userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE token_hash = ?"), tokenHash); err != nil {
		return core.StoreFailure("delete session", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.Unix())
	if err != nil {
		return 0, core.StoreFailure("delete expired sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpdatePassword replaces the password hash, revokes every session of the
// user and stores the replacement session, atomically.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string, session NewSession) error {
	const op = "update password"
	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind("UPDATE users SET password_hash = ? WHERE id = ?"), passwordHash, userID)
		if err != nil {
			return core.StoreFailure(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFound(op, core.ErrUserNotFound)
		}
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE user_id = ?"), userID); err != nil {
			return core.StoreFailure(op, fmt.Errorf("revoke sessions: %w", err))
		}
		if err := s.insertSession(ctx, tx, userID, session); err != nil {
			return core.StoreFailure(op, err)
		}
		return nil
	})
}

// DeleteUser removes the user and every row it owns in one transaction.
// The explicit deletes do not depend on foreign key enforcement.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	const op = "delete user"
	return s.withTx(ctx, op, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM sessions WHERE user_id = ?",
			"DELETE FROM transactions WHERE user_id = ?",
			"DELETE FROM budgets WHERE user_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, s.rebind(q), userID); err != nil {
				return core.StoreFailure(op, err)
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), userID)
		if err != nil {
			return core.StoreFailure(op, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.NotFound(op, core.ErrUserNotFound)
		}
		return nil
	})
}

// UserCount returns the number of registered users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, core.StoreFailure("count users", err)
	}
	return count, nil
}

// RowCounts reports how many rows a user owns per table.
func (s *Store) RowCounts(ctx context.Context, userID int64) (map[string]int, error) {
	counts := make(map[string]int, 3)
	for _, table := range []string{"sessions", "budgets", "transactions"} {
		var n int
		q := s.rebind("SELECT COUNT(*) FROM " + table + " WHERE user_id = ?")
		if err := s.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
			return nil, core.StoreFailure("count rows", fmt.Errorf("%s: %w", table, err))
		}
		counts[table] = n
	}
	return counts, nil
}
