package engine

import (
	"errors"
	"fmt"
)

// Code categorizes engine failures so callers can decide whether to retry,
// surface, or escalate without string matching.
type Code string

const (
	// CodeInvalidInput indicates malformed caller arguments.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound indicates a referenced entity is absent.
	CodeNotFound Code = "not_found"

	// CodeAllocationExceeded indicates the equity ceiling invariant would be violated.
	CodeAllocationExceeded Code = "allocation_exceeded"

	// CodeInvalidTransition indicates an illegal task or document status move.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeMissingPrerequisiteDocument indicates an award agreement was requested
	// without a work contract on the same accepted job.
	CodeMissingPrerequisiteDocument Code = "missing_prerequisite_document"

	// CodeNotSignable indicates a signature was attempted on a draft or an
	// already executed/terminated document.
	CodeNotSignable Code = "not_signable"

	// CodeDeletionBlocked indicates the task has logged time or progress.
	CodeDeletionBlocked Code = "deletion_blocked"

	// CodePartialApproval indicates the approval cascade failed to commit.
	// Step names the sub-update that failed; the whole transaction rolled
	// back, so retrying the approval is safe.
	CodePartialApproval Code = "partial_approval_failure"
)

// Error is the typed failure every engine operation returns. Wrapped causes
// stay reachable through errors.Is/As.
type Error struct {
	Code     Code
	Message  string
	EntityID string
	Step     string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Step != "" && e.EntityID != "":
		return fmt.Sprintf("%s: %s (entity=%s, step=%s)", e.Code, e.Message, e.EntityID, e.Step)
	case e.EntityID != "":
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.EntityID)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the engine error code from err, or "" when err is not an
// engine error.
func CodeOf(err error) Code {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func errInvalidInput(format string, args ...any) error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func errNotFound(entity, id string, cause error) error {
	return &Error{Code: CodeNotFound, Message: entity + " not found", EntityID: id, Err: cause}
}

func errInvalidTransition(entityID, from, to string) error {
	return &Error{
		Code:     CodeInvalidTransition,
		Message:  fmt.Sprintf("invalid transition %s -> %s", from, to),
		EntityID: entityID,
	}
}

func errApprovalStep(taskID, step string, cause error) error {
	return &Error{
		Code:     CodePartialApproval,
		Message:  "approval cascade failed",
		EntityID: taskID,
		Step:     step,
		Err:      cause,
	}
}
