package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid")

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	b.WriteString("validation failed:\n")
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{
		Field:   field,
		Message: msg,
	})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// Kind classifies request-level failures. Per-path lookup failures are not
// errors and never get a Kind.
type Kind string

const (
	KindConfig           Kind = "CONFIG"
	KindBadRequest       Kind = "BAD_REQUEST"
	KindMethodNotAllowed Kind = "METHOD_NOT_ALLOWED"
	KindInternal         Kind = "INTERNAL"
)

// Error is a request-level failure with a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	ErrMissingSite      = New(KindConfig, "upstream counter site is not configured")
	ErrNoPaths          = New(KindBadRequest, "No paths supplied")
	ErrInvalidBody      = New(KindBadRequest, "Invalid request body")
	ErrMethodNotAllowed = New(KindMethodNotAllowed, "Method not allowed")
)

// KindOf reports the Kind of err, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
