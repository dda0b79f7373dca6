package domain

import "time"

// DuplicateRelationship links a newly created report to an earlier one
// after the submitter proceeded past a high-confidence duplicate warning.
type DuplicateRelationship struct {
	ID                string
	OriginalReportID  string
	DuplicateReportID string
	SimilarityScore   float64
	CreatedAt         time.Time
}
