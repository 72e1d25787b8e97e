package core

import (
	"errors"
)

// Kind classifies an error for callers that need to choose a response,
// such as the HTTP layer picking a status code.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindAuth:
		return "auth_error"
	case KindNotFound:
		return "not_found_error"
	case KindConflict:
		return "conflict_error"
	case KindStore:
		return "database_error"
	default:
		return "internal_error"
	}
}

// Error carries a Kind and the operation that failed. Err is the
// underlying cause and stays reachable through errors.Is/As.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error   { return newError(KindValidation, op, err) }
func Unauthorized(op string, err error) error { return newError(KindAuth, op, err) }
func NotFound(op string, err error) error     { return newError(KindNotFound, op, err) }
func Conflict(op string, err error) error     { return newError(KindConflict, op, err) }
func StoreFailure(op string, err error) error { return newError(KindStore, op, err) }

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Cause returns the error a kinded failure was built from, without the
// operation prefix. It is what the HTTP layer shows to clients for
// validation and conflict failures.
func Cause(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Err
	}
	return err
}
