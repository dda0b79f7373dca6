package domain

import "time"

// ReportStatus enumerates lifecycle states for maintenance reports.
type ReportStatus string

const (
	StatusSubmitted   ReportStatus = "SUBMITTED"
	StatusUnderReview ReportStatus = "UNDER_REVIEW"
	StatusApproved    ReportStatus = "APPROVED"
	StatusRejected    ReportStatus = "REJECTED"
	StatusAssigned    ReportStatus = "ASSIGNED"
	StatusInProgress  ReportStatus = "IN_PROGRESS"
	StatusCompleted   ReportStatus = "COMPLETED"
	StatusClosed      ReportStatus = "CLOSED"
	StatusReopened    ReportStatus = "REOPENED"
)

// AllStatuses lists every valid report status.
var AllStatuses = []ReportStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusAssigned,
	StatusInProgress,
	StatusCompleted,
	StatusClosed,
	StatusReopened,
}

// IsValid reports whether s is a member of the defined state set.
func (s ReportStatus) IsValid() bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Category enumerates maintenance specialties.
type Category string

const (
	CategoryElectrical Category = "ELECTRICAL"
	CategoryMechanical Category = "MECHANICAL"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c == CategoryElectrical || c == CategoryMechanical
}

// Priority enumerates SLA urgency, set when a report is approved.
type Priority string

const (
	PriorityEmergency Priority = "EMERGENCY"
	PriorityHigh      Priority = "HIGH"
	PriorityMedium    Priority = "MEDIUM"
	PriorityLow       Priority = "LOW"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// LocationType distinguishes fixed-block locations from free-form ones.
type LocationType string

const (
	LocationSpecific LocationType = "SPECIFIC"
	LocationGeneral  LocationType = "GENERAL"
)

// Location describes where the reported problem is. Specific locations
// carry a block (and optionally a room); general locations only a
// free-text description.
type Location struct {
	Type        LocationType
	BlockID     *string
	RoomNumber  *string
	Description string
}

// IsSpecific reports whether the location has a fixed block anchor.
func (l Location) IsSpecific() bool {
	return l.Type == LocationSpecific && l.BlockID != nil && *l.BlockID != ""
}

// Report is the aggregate for facility-maintenance requests.
type Report struct {
	ID                   string
	TicketID             string
	Category             Category
	Location             Location
	EquipmentDescription string
	ProblemDescription   string
	Status               ReportStatus
	Priority             *Priority
	SubmittedBy          string
	AssignedTo           *string
	RejectionReason      *string
	CompletionNotes      *string
	Rating               *int
	Feedback             *string
	RatedAt              *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
