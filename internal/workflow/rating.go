package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// RatingInput is the submitter's closed-loop feedback on a completed
// repair.
type RatingInput struct {
	Rating          int
	Comment         string
	MarkStillBroken bool
}

// ValidateRatingEligibility enforces who may rate and when: only the
// original submitter, only while the report is completed, exactly once,
// and only within the configured window after completion.
func ValidateRatingEligibility(cfg config.WorkflowConfig, report *domain.Report, actor domain.Actor, now time.Time) error {
	if report.Status != domain.StatusCompleted {
		return apperrors.NewTransitionError(
			fmt.Sprintf("only completed reports can be rated, report is %q", report.Status),
			map[string]any{"status": report.Status},
		)
	}
	if report.SubmittedBy != actor.ID {
		return apperrors.NewForbidden("only the original submitter may rate a report")
	}
	if report.Rating != nil {
		return apperrors.NewConflict("report has already been rated", map[string]any{"rating": *report.Rating})
	}
	if report.CompletedAt != nil {
		window := time.Duration(cfg.RatingWindowDays) * 24 * time.Hour
		if now.Sub(*report.CompletedAt) > window {
			return apperrors.NewValidationError(
				fmt.Sprintf("rating window of %d days has passed", cfg.RatingWindowDays),
				map[string]any{"completed_at": *report.CompletedAt},
			)
		}
	}
	return nil
}

// ResolveRating validates the rating payload and maps it to the target
// workflow status: 0-1 or still-broken reopens the report, 2-3 sends it
// back for coordinator re-review, 4-5 closes it.
func ResolveRating(in RatingInput) (domain.ReportStatus, error) {
	if in.Rating < 0 || in.Rating > 5 {
		return "", apperrors.NewValidationError("rating must be between 0 and 5", map[string]any{"rating": in.Rating})
	}
	if in.Rating <= 3 && len(strings.TrimSpace(in.Comment)) < minRatingCommentLength {
		return "", apperrors.NewValidationError(
			fmt.Sprintf("ratings of 3 or below require a comment of at least %d characters", minRatingCommentLength),
			map[string]any{"field": "comment"},
		)
	}

	switch {
	case in.Rating <= 1 || in.MarkStillBroken:
		return domain.StatusReopened, nil
	case in.Rating <= 3:
		return domain.StatusUnderReview, nil
	default:
		return domain.StatusClosed, nil
	}
}
