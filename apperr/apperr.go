package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a declined operation. Every service boundary returns either
// nil or an *Error carrying exactly one Kind.
type Kind int

const (
	Unauthorized Kind = iota + 1
	NotFound
	NotAttached
	ValidationFailed
	BudgetExceeded
	DuplicateKey
	StoreUnavailable
)

var kindNames = map[Kind]string{
	Unauthorized:     "unauthorized",
	NotFound:         "not found",
	NotAttached:      "not attached",
	ValidationFailed: "validation failed",
	BudgetExceeded:   "budget exceeded",
	DuplicateKey:     "duplicate key",
	StoreUnavailable: "store unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind carried by err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
