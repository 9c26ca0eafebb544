package tts

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// BackendError is the closed set of failures a backend reports.
// Backends return these values directly; they are never wrapped.
type BackendError uint8

const (
	// ErrBackendNotAvailable means the mechanism is absent, disabled or has
	// no usable instance.
	ErrBackendNotAvailable BackendError = iota + 1
	// ErrNotInitialized means the operation needs a successful Initialize.
	ErrNotInitialized
	// ErrInvalidText means the request text is not valid UTF-8.
	ErrInvalidText
	// ErrSpeakFailure means the mechanism rejected a speak request.
	ErrSpeakFailure
	// ErrInternal means the mechanism failed in an unexpected way.
	ErrInternal
)

// String returns the stable name other layers branch on.
func (e BackendError) String() string {
	switch e {
	case ErrBackendNotAvailable:
		return "BackendNotAvailable"
	case ErrNotInitialized:
		return "NotInitialized"
	case ErrInvalidText:
		return "InvalidText"
	case ErrSpeakFailure:
		return "SpeakFailure"
	case ErrInternal:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error implements the error interface.
func (e BackendError) Error() string {
	switch e {
	case ErrBackendNotAvailable:
		return "speech backend is not available"
	case ErrNotInitialized:
		return "speech backend is not initialized"
	case ErrInvalidText:
		return "text is not valid UTF-8"
	case ErrSpeakFailure:
		return "speech backend failed to speak"
	case ErrInternal:
		return "speech backend internal error"
	default:
		return fmt.Sprintf("unknown speech backend error (%d)", uint8(e))
	}
}

// AsBackendError normalizes an error coming back from a host mechanism.
// A BackendError passes through unchanged; any other non-nil error becomes
// fallback.
func AsBackendError(err error, fallback BackendError) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(BackendError); ok {
		return be
	}
	return fallback
}

// IsRecoverable reports whether retrying the same call could succeed.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	return err != ErrBackendNotAvailable
}

// Guard runs a mechanism call and turns a panic into ErrInternal so that
// no mechanism failure escapes a backend operation.
func Guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Speech mechanism panicked", "op", op, "panic", r)
			err = ErrInternal
		}
	}()
	return fn()
}

// Outcome holds either a value or exactly one BackendError. Most callers
// use the plain (T, error) pair; Outcome is for code that has to store or
// forward a result.
type Outcome[T any] struct {
	value T
	err   error
}

// Ok returns a successful outcome.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail returns a failed outcome. A nil error is reported as ErrInternal.
func Fail[T any](err error) Outcome[T] {
	if err == nil {
		err = ErrInternal
	}
	return Outcome[T]{err: AsBackendError(err, ErrInternal)}
}

// OutcomeOf builds an outcome from a (value, error) pair.
func OutcomeOf[T any](v T, err error) Outcome[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// Get returns the value and error. The value is the zero value on failure.
func (o Outcome[T]) Get() (T, error) {
	return o.value, o.err
}

// Err returns the failure, if any.
func (o Outcome[T]) Err() error {
	return o.err
}

// IsOk reports whether the outcome holds a value.
func (o Outcome[T]) IsOk() bool {
	return o.err == nil
}
