package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a store failure. Callers branch on the kind, not the
// message: a timed-out read means "no new data", never "empty".
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindNotFound
	KindPermission
)

// Error is the boundary error for all store operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrap classifies err and wraps it as an *Error for the given operation.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// classify maps driver and context errors onto the store taxonomy.
func classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// IsTimeout reports whether err is a store timeout.
func IsTimeout(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindTimeout
}

// IsNotFound reports whether err is a store not-found.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}
