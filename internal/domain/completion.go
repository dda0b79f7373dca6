package domain

import "time"

// CompletionDetail records how a repair was finished. Created once when
// a report transitions to completed.
type CompletionDetail struct {
	ID          string
	ReportID    string
	FixerID     string
	Notes       string
	CompletedAt time.Time
	CreatedAt   time.Time
}
