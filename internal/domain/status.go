package domain

import "fmt"

// TaskStatus is the closed set of task lifecycle states.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskApproved   TaskStatus = "approved"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case TaskOpen, TaskInProgress, TaskReview, TaskApproved, TaskDone, TaskBlocked:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// DocumentType is the closed set of legal document kinds.
type DocumentType string

const (
	DocNDA            DocumentType = "nda"
	DocWorkContract   DocumentType = "work_contract"
	DocAwardAgreement DocumentType = "award_agreement"
)

// ParseDocumentType validates a raw document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(s) {
	case DocNDA, DocWorkContract, DocAwardAgreement:
		return DocumentType(s), nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// DocumentStatus is the closed set of legal document lifecycle states.
type DocumentStatus string

const (
	DocDraft      DocumentStatus = "draft"
	DocReview     DocumentStatus = "review"
	DocFinal      DocumentStatus = "final"
	DocExecuted   DocumentStatus = "executed"
	DocAmended    DocumentStatus = "amended"
	DocTerminated DocumentStatus = "terminated"
)

// ParseDocumentStatus validates a raw document status string.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch DocumentStatus(s) {
	case DocDraft, DocReview, DocFinal, DocExecuted, DocAmended, DocTerminated:
		return DocumentStatus(s), nil
	}
	return "", fmt.Errorf("unknown document status %q", s)
}

// Application statuses. Applications keep plain string statuses in storage;
// these constants are the only values the engine writes.
const (
	ApplicationPending   = "pending"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
	ApplicationCompleted = "completed"
)

// Accepted-job statuses mirror the linked task's progress.
const (
	AcceptedJobActive = "active"
	AcceptedJobReview = "review"
	AcceptedJobDone   = "done"
)
