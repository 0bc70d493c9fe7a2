package status

import (
	"errors"
	"fmt"
)

var (
	// ErrNoneWaiting reports a dispatch against three empty queues.
	// It is a normal outcome, not a failure.
	ErrNoneWaiting = errors.New("dispatch: no tickets waiting")

	// ErrTicketNotFound reports a lookup by an unknown (or already
	// served) ticket id.
	ErrTicketNotFound = errors.New("ticket: ticket not found")

	// ErrPersistence reports a failed snapshot write. A mutation whose
	// snapshot did not persist is not committed.
	ErrPersistence = errors.New("snapshot: persist failed")
)

// Validation rejection codes.
const (
	CodeMissingField          = "missing_field"
	CodeInvalidName           = "invalid_name"
	CodeInvalidAge            = "invalid_age"
	CodeInvalidClass          = "invalid_class"
	CodePriorityAgeTooLow     = "priority_age_too_low"
	CodeVipCredentialRejected = "vip_credential_rejected"
)

// ValidationError is a recoverable rejection of a submit request,
// surfaced to the caller with a machine code and a readable reason.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func NewValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}
