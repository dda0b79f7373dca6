package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// LocationPayload carries where the reported problem is.
type LocationPayload struct {
	Type        domain.LocationType `json:"type"`
	BlockID     *string             `json:"block_id,omitempty"`
	RoomNumber  *string             `json:"room_number,omitempty"`
	Description string              `json:"description,omitempty"`
}

// CreateReportRequest payload.
type CreateReportRequest struct {
	Category             domain.Category `json:"category"`
	Location             LocationPayload `json:"location"`
	EquipmentDescription string          `json:"equipment_description"`
	ProblemDescription   string          `json:"problem_description"`
	// IgnoreDuplicates acknowledges a previous duplicate warning and
	// submits anyway.
	IgnoreDuplicates bool `json:"ignore_duplicates"`
}

// DuplicateMatchResponse names an existing similar report.
type DuplicateMatchResponse struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.ReportStatus `json:"status"`
	Score    float64             `json:"score"`
}

// CreateReportResponse wraps the created report and non-blocking
// duplicate hints.
type CreateReportResponse struct {
	Report             ReportResponse           `json:"report"`
	PossibleDuplicates []DuplicateMatchResponse `json:"possible_duplicates,omitempty"`
	DetectorDegraded   bool                     `json:"detector_degraded,omitempty"`
}

// ReportResponse provides full report info.
type ReportResponse struct {
	ID                   string                `json:"id"`
	TicketID             string                `json:"ticket_id"`
	Category             domain.Category       `json:"category"`
	Location             LocationPayload       `json:"location"`
	EquipmentDescription string                `json:"equipment_description"`
	ProblemDescription   string                `json:"problem_description"`
	Status               domain.ReportStatus   `json:"status"`
	Priority             *domain.Priority      `json:"priority,omitempty"`
	SubmittedBy          string                `json:"submitted_by"`
	AssignedTo           *string               `json:"assigned_to,omitempty"`
	RejectionReason      *string               `json:"rejection_reason,omitempty"`
	CompletionNotes      *string               `json:"completion_notes,omitempty"`
	Rating               *int                  `json:"rating,omitempty"`
	Feedback             *string               `json:"feedback,omitempty"`
	RatedAt              *time.Time            `json:"rated_at,omitempty"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	AllowedTransitions   []domain.ReportStatus `json:"allowed_transitions,omitempty"`
	SLA                  *SLAResponse          `json:"sla,omitempty"`
}

// SLAResponse describes where a report stands against its deadline.
type SLAResponse struct {
	Priority  domain.Priority `json:"priority"`
	Deadline  time.Time       `json:"deadline"`
	Remaining string          `json:"remaining"`
	Violated  bool            `json:"violated"`
}

// TransitionReportRequest payload for status changes.
type TransitionReportRequest struct {
	Status          domain.ReportStatus `json:"status"`
	Priority        *domain.Priority    `json:"priority,omitempty"`
	AssignedTo      *string             `json:"assigned_to,omitempty"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
	CompletionNotes *string             `json:"completion_notes,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
}

// RateReportRequest payload for the closed-loop rating.
type RateReportRequest struct {
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	StillBroken bool   `json:"still_broken,omitempty"`
}

// WorkflowHistoryResponse represents one audit-trail entry.
type WorkflowHistoryResponse struct {
	ID         string              `json:"id"`
	ActorID    string              `json:"actor_id"`
	FromStatus domain.ReportStatus `json:"from_status"`
	ToStatus   domain.ReportStatus `json:"to_status"`
	Action     string              `json:"action"`
	Notes      *string             `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// GrantAssignmentRequest payload for scoping a coordinator.
type GrantAssignmentRequest struct {
	CoordinatorID string  `json:"coordinator_id"`
	BlockID       *string `json:"block_id,omitempty"`
}

// AssignmentResponse describes a coordinator scope.
type AssignmentResponse struct {
	ID            string    `json:"id"`
	CoordinatorID string    `json:"coordinator_id"`
	BlockID       *string   `json:"block_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
