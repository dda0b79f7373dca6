package events

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates transition notifications emitted by the core.
type EventType string

const (
	EventReportCreated     EventType = "created"
	EventReportUnderReview EventType = "under_review"
	EventReportApproved    EventType = "approved"
	EventReportRejected    EventType = "rejected"
	EventReportAssigned    EventType = "assigned"
	EventReportInProgress  EventType = "in_progress"
	EventReportCompleted   EventType = "completed"
	EventReportClosed      EventType = "closed"
	EventReportReopened    EventType = "reopened"
	EventSLAViolation      EventType = "sla_violation"
)

// Event is the payload delivered to the notification sink. Delivery is
// fire-and-forget: sink failures never roll back a transition.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	ReportID  string         `json:"report_id"`
	TicketID  string         `json:"ticket_id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// ForStatus maps a report status to its transition event type. The
// second return is false for statuses with no dedicated event.
func ForStatus(status domain.ReportStatus) (EventType, bool) {
	switch status {
	case domain.StatusSubmitted:
		return EventReportCreated, true
	case domain.StatusUnderReview:
		return EventReportUnderReview, true
	case domain.StatusApproved:
		return EventReportApproved, true
	case domain.StatusRejected:
		return EventReportRejected, true
	case domain.StatusAssigned:
		return EventReportAssigned, true
	case domain.StatusInProgress:
		return EventReportInProgress, true
	case domain.StatusCompleted:
		return EventReportCompleted, true
	case domain.StatusClosed:
		return EventReportClosed, true
	case domain.StatusReopened:
		return EventReportReopened, true
	}
	return "", false
}
