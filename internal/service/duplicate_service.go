package service

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/clock"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/similarity"
)

const (
	equipmentWeight = 0.6
	problemWeight   = 0.4
)

// resolvedStatuses never count as duplicate candidates.
var resolvedStatuses = []domain.ReportStatus{
	domain.StatusCompleted,
	domain.StatusClosed,
	domain.StatusRejected,
}

// DuplicateService scores incoming reports against recent open reports
// at the same location and classifies probable re-reports.
type DuplicateService struct {
	reports repository.ReportRepository
	cache   *repository.CandidateCache
	cfg     config.WorkflowConfig
	clock   clock.Clock
	logger  *zap.Logger
}

// DuplicateDependencies bundles detector collaborators.
type DuplicateDependencies struct {
	ReportRepo repository.ReportRepository
	Cache      *repository.CandidateCache
	Config     config.WorkflowConfig
	Clock      clock.Clock
	Logger     *zap.Logger
}

// DuplicateInput is the relevant slice of an incoming report.
type DuplicateInput struct {
	Category             domain.Category
	Location             domain.Location
	EquipmentDescription string
	ProblemDescription   string
}

// DuplicateMatch pairs a candidate with its combined score.
type DuplicateMatch struct {
	Report domain.Report
	Score  float64
}

// DuplicateResult is the detector's decision.
type DuplicateResult struct {
	HighConfidence []DuplicateMatch
	LowConfidence  []DuplicateMatch
	Warning        string
	// DetectorDown indicates the detector failed internally and the
	// result degraded to "no duplicates".
	DetectorDown bool
}

// Blocking reports whether creation should be held for confirmation.
func (r DuplicateResult) Blocking() bool {
	return len(r.HighConfidence) > 0
}

// NewDuplicateService constructs the detector.
func NewDuplicateService(deps DuplicateDependencies) *DuplicateService {
	return &DuplicateService{
		reports: deps.ReportRepo,
		cache:   deps.Cache,
		cfg:     deps.Config,
		clock:   deps.Clock,
		logger:  deps.Logger,
	}
}

// Check scores the incoming report against recent open reports in the
// same block. It never returns an error: any internal failure degrades
// to an empty result so duplicate detection cannot block submission.
func (s *DuplicateService) Check(ctx context.Context, input DuplicateInput) DuplicateResult {
	// Duplicate checking requires a fixed block anchor; general
	// locations always pass.
	if !input.Location.IsSpecific() {
		return DuplicateResult{}
	}

	filter := repository.CandidateFilter{
		BlockID:         *input.Location.BlockID,
		RoomNumber:      input.Location.RoomNumber,
		Category:        input.Category,
		ExcludeStatuses: resolvedStatuses,
		Since:           s.clock.Now().AddDate(0, 0, -s.cfg.CandidateWindowDays),
		Limit:           s.cfg.CandidateLimit,
	}

	candidates, cached := s.cache.Get(ctx, filter)
	if !cached {
		var err error
		candidates, err = s.reports.FindCandidates(ctx, filter)
		if err != nil {
			s.logger.Warn("duplicate detector degraded to no-duplicates",
				zap.String("block_id", filter.BlockID),
				zap.Error(err))
			return DuplicateResult{DetectorDown: true}
		}
		s.cache.Set(ctx, filter, candidates)
	}

	result := DuplicateResult{}
	for _, candidate := range candidates {
		score := CombinedReportScore(
			input.EquipmentDescription, candidate.EquipmentDescription,
			input.ProblemDescription, candidate.ProblemDescription,
		)
		match := DuplicateMatch{Report: candidate, Score: score}
		switch {
		case score >= s.cfg.HighConfidenceThreshold:
			result.HighConfidence = append(result.HighConfidence, match)
		case score >= s.cfg.LowConfidenceThreshold:
			result.LowConfidence = append(result.LowConfidence, match)
		}
	}

	result.Warning = s.warningFor(result.HighConfidence)
	return result
}

// CombinedReportScore blends equipment and problem similarity, rounded
// to two decimals.
func CombinedReportScore(equipmentA, equipmentB, problemA, problemB string) float64 {
	score := equipmentWeight*similarity.Combined(equipmentA, equipmentB) +
		problemWeight*similarity.Combined(problemA, problemB)
	return math.Round(score*100) / 100
}

func (s *DuplicateService) warningFor(matches []DuplicateMatch) string {
	switch len(matches) {
	case 0:
		return ""
	case 1:
		report := matches[0].Report
		return fmt.Sprintf(
			"A very similar report already exists: ticket %s is currently %s. Submit anyway only if this is a different problem.",
			report.TicketID, statusLabel(report.Status),
		)
	default:
		return fmt.Sprintf(
			"%d similar reports found for this location. Please review them before submitting again.",
			len(matches),
		)
	}
}

func statusLabel(status domain.ReportStatus) string {
	switch status {
	case domain.StatusSubmitted:
		return "awaiting review"
	case domain.StatusUnderReview:
		return "under review"
	case domain.StatusApproved:
		return "approved and awaiting assignment"
	case domain.StatusAssigned:
		return "assigned to a fixer"
	case domain.StatusInProgress:
		return "being repaired"
	case domain.StatusReopened:
		return "reopened"
	default:
		return string(status)
	}
}
