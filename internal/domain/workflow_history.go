package domain

import "time"

// WorkflowHistory is an immutable audit trail entry, one per executed
// transition. Entries are never edited or deleted except by report
// deletion cascade.
type WorkflowHistory struct {
	ID         string
	ReportID   string
	ActorID    string
	FromStatus ReportStatus
	ToStatus   ReportStatus
	Action     string
	Notes      *string
	CreatedAt  time.Time
}
