package server

import (
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
)

// Request bodies. Responses reuse the domain and engine result types, which
// already carry their wire tags.

type CreateProjectRequest struct {
	ID               string  `json:"id" example:"proj-webapp"`
	Title            string  `json:"title" example:"Marketplace MVP"`
	EquityAllocation float64 `json:"equity_allocation" example:"15"`
	Description      *string `json:"description,omitempty"`
}

type CreateTaskRequest struct {
	ID               *string `json:"id,omitempty"`
	Title            string  `json:"title" example:"Build payment flow"`
	Description      *string `json:"description,omitempty"`
	EquityAllocation float64 `json:"equity_allocation" example:"3.5"`
	EstimatedHours   float64 `json:"estimated_hours,omitempty" example:"40"`
}

type SetTaskStatusRequest struct {
	Status string `json:"status" enum:"open,in_progress,review,approved,done,blocked"`
}

type LogEffortRequest struct {
	Hours       float64 `json:"hours" example:"4"`
	Description string  `json:"description,omitempty"`
}

type CreateApplicationRequest struct {
	ID          *string `json:"id,omitempty"`
	TaskID      string  `json:"task_id"`
	ApplicantID string  `json:"applicant_id"`
}

type GenerateDocumentRequest struct {
	Type             string `json:"document_type" enum:"nda,work_contract,award_agreement"`
	ApplicationID    string `json:"application_id,omitempty"`
	AcceptedJobID    string `json:"accepted_job_id,omitempty"`
	BusinessID       string `json:"business_id,omitempty"`
	CounterpartyID   string `json:"counterparty_id,omitempty"`
	BusinessName     string `json:"business_name,omitempty"`
	CounterpartyName string `json:"counterparty_name,omitempty"`
	Deliverables     string `json:"deliverables,omitempty"`
}

type AdvanceDocumentRequest struct {
	Status string `json:"status" enum:"review,final,executed,amended,terminated"`
}

type SignDocumentRequest struct {
	Payload string `json:"payload" example:"signed: Jane Doe"`
	Remarks string `json:"remarks,omitempty"`
}

type DeletableResponse struct {
	CanDelete bool   `json:"can_delete"`
	Reason    string `json:"reason,omitempty" example:"has_logged_time"`
}

type ProjectStatusResponse struct {
	ProjectID            string         `json:"project_id"`
	Status               string         `json:"status"`
	EquityAllocation     float64        `json:"equity_allocation"`
	EquityAllocated      float64        `json:"equity_allocated"`
	EquityRemaining      float64        `json:"equity_remaining"`
	CompletionPercentage int            `json:"completion_percentage"`
	TaskCounts           map[string]int `json:"task_counts"`
}

func projectStatusResponse(p domain.Project, tasks []domain.Task) ProjectStatusResponse {
	counts := map[string]int{}
	for _, t := range tasks {
		counts[string(t.Status)]++
	}
	return ProjectStatusResponse{
		ProjectID:            p.ID,
		Status:               p.Status,
		EquityAllocation:     p.EquityAllocation,
		EquityAllocated:      p.EquityAllocated,
		EquityRemaining:      p.EquityAllocation - p.EquityAllocated,
		CompletionPercentage: p.CompletionPercentage,
		TaskCounts:           counts,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
