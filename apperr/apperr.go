// ABOUTME: Error taxonomy shared by the store, engines and tool handlers
// ABOUTME: Typed errors carry a Kind and match sentinels through errors.Is
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindService    Kind = "service"
	KindConflict   Kind = "conflict"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrService    = errors.New("external service failed")
	ErrConflict   = errors.New("conflicting write")
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) match any NotFound-kind error.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrService:
		return e.Kind == KindService
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

func NotFound(op, what string, id any) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("%s %v not found", what, id)}
}

func Service(op string, err error) error {
	return &Error{Kind: KindService, Op: op, Err: err}
}

func Conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

// KindOf reports the Kind of the first classified error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
