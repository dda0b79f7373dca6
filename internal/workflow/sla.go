package workflow

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
)

// SLAStatus describes where a report stands against its deadline.
type SLAStatus struct {
	Priority  domain.Priority
	Deadline  time.Time
	Elapsed   time.Duration
	Remaining time.Duration
	Violated  bool
}

// CheckSLA evaluates the SLA clock for a report. The second return is
// false when the report carries no priority yet or is already resolved,
// in which case no SLA applies.
func CheckSLA(cfg config.WorkflowConfig, report *domain.Report, now time.Time) (SLAStatus, bool) {
	if report.Priority == nil {
		return SLAStatus{}, false
	}
	switch report.Status {
	case domain.StatusCompleted, domain.StatusClosed, domain.StatusRejected:
		return SLAStatus{}, false
	}

	window := cfg.SLAFor(*report.Priority)
	deadline := report.CreatedAt.Add(window)
	elapsed := now.Sub(report.CreatedAt)
	return SLAStatus{
		Priority:  *report.Priority,
		Deadline:  deadline,
		Elapsed:   elapsed,
		Remaining: deadline.Sub(now),
		Violated:  now.After(deadline),
	}, true
}
