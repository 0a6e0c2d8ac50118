package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindDeviceUnavailable   ErrorKind = "device_unavailable"
	KindNoActiveRecording   ErrorKind = "no_active_recording"
	KindSessionBusy         ErrorKind = "session_busy"
	KindTranscriptionFailed ErrorKind = "transcription_failed"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindUpstreamFailure     ErrorKind = "upstream_failure"

	// KindChainExhausted is only used for logs and metrics; the fallback
	// chain never returns it.
	KindChainExhausted ErrorKind = "chain_exhausted"
)

type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	// Details is the best-effort message extracted from an upstream body.
	Details string
	// Payload is the upstream diagnostic body, verbatim.
	Payload []byte
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func WrapError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// IsKind reports whether the first *Error in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind == kind
	}
	return false
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var target *Error
	ok := errors.As(err, &target)
	return target, ok
}
