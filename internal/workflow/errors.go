package workflow

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a workflow failure so callers can map it to a response
// without parsing messages.
type Kind string

const (
	KindNotFound             Kind = "NOT_FOUND"
	KindForbidden            Kind = "FORBIDDEN"
	KindInvalidAction        Kind = "INVALID_ACTION"
	KindFeedbackRequired     Kind = "FEEDBACK_REQUIRED"
	KindAlreadyRejected      Kind = "ALREADY_REJECTED"
	KindAlreadyFinal         Kind = "ALREADY_FINAL"
	KindSignatureRequired    Kind = "SIGNATURE_REQUIRED"
	KindConflictNotReady     Kind = "CONFLICT_NOT_READY"
	KindConflictApproved     Kind = "CONFLICT_ALREADY_APPROVED"
	KindConflictUserPending  Kind = "CONFLICT_USER_NOT_APPROVED"
	KindConflictStaleRecord  Kind = "CONFLICT_STALE_RECORD"
	KindDuplicateMember      Kind = "DUPLICATE_MEMBER"
	KindPreconditionRequired Kind = "PRECONDITION_REQUIRED"
	KindDependencyFailure    Kind = "DEPENDENCY_FAILURE"
)

// Error is the typed failure surfaced by the engine and orchestrators.
// State-machine and validation kinds are deterministic; DEPENDENCY_FAILURE
// wraps an external collaborator error.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// E builds a typed workflow error.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Dependency wraps an external collaborator failure.
func Dependency(message string, cause error) *Error {
	return &Error{Kind: KindDependencyFailure, Message: message, cause: cause}
}

// HTTPStatus maps an error kind to the HTTP status the API surface uses.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidAction, KindFeedbackRequired, KindPreconditionRequired:
		return http.StatusBadRequest
	case KindAlreadyRejected, KindAlreadyFinal, KindSignatureRequired,
		KindConflictNotReady, KindConflictApproved, KindConflictUserPending,
		KindConflictStaleRecord, KindDuplicateMember:
		return http.StatusConflict
	case KindDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the Kind from err, or "" if err is not a workflow error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
