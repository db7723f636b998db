package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code for every known failure mode.
type Code string

const (
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeSessionNotFound        Code = "SESSION_NOT_FOUND"
	CodeInvalidStageTransition Code = "INVALID_STAGE_TRANSITION"
	CodeConsentRequired        Code = "CONSENT_REQUIRED"
	CodeIncompleteSession      Code = "INCOMPLETE_SESSION"
	CodeRetrievalUnavailable   Code = "RETRIEVAL_UNAVAILABLE"
	CodeEmbeddingUnavailable   Code = "EMBEDDING_UNAVAILABLE"
	CodeModelUnavailable       Code = "MODEL_UNAVAILABLE"
	CodeExternalTimeout        Code = "EXTERNAL_TIMEOUT"
)

// Error carries a code, a human-readable message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two app errors by code so callers can use errors.Is with the
// exported sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Sentinels for errors.Is checks, one per code that can escape the service
// layer. Wrapped variants created via Wrap match these by code. Model and
// retrieval failures degrade the session instead of surfacing, so those two
// codes carry no sentinel.
var (
	ErrSessionNotFound        = New(CodeSessionNotFound, "session not found")
	ErrInvalidStageTransition = New(CodeInvalidStageTransition, "operation not allowed in current stage")
	ErrConsentRequired        = New(CodeConsentRequired, "image consent not granted")
	ErrIncompleteSession      = New(CodeIncompleteSession, "session is not ready for finalization")
	ErrEmbeddingUnavailable   = New(CodeEmbeddingUnavailable, "embedding service unavailable")
	ErrExternalTimeout        = New(CodeExternalTimeout, "external service timed out")
)

// CodeOf extracts the app error code, defaulting to INTERNAL_ERROR.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
