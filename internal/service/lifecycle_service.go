package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/clock"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/workflow"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// transitionRetryLimit bounds re-validation after a concurrent-write
// conflict on the same report.
const transitionRetryLimit = 3

// LifecycleService orchestrates report creation, workflow transitions,
// and rating resolution. All status changes flow through here.
type LifecycleService struct {
	reports     repository.ReportRepository
	history     repository.HistoryRepository
	assignments repository.AssignmentRepository
	duplicates  repository.DuplicateRepository
	completions repository.CompletionRepository
	users       repository.UserRepository
	cache       *repository.CandidateCache
	detector    *DuplicateService
	machine     *workflow.Machine
	dispatcher  events.Dispatcher
	cfg         config.WorkflowConfig
	clock       clock.Clock
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// LifecycleDependencies bundles collaborators for the coordinator.
type LifecycleDependencies struct {
	ReportRepo     repository.ReportRepository
	HistoryRepo    repository.HistoryRepository
	AssignmentRepo repository.AssignmentRepository
	DuplicateRepo  repository.DuplicateRepository
	CompletionRepo repository.CompletionRepository
	UserRepo       repository.UserRepository
	Cache          *repository.CandidateCache
	Detector       *DuplicateService
	Dispatcher     events.Dispatcher
	Config         config.WorkflowConfig
	Clock          clock.Clock
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// CreateReportInput describes an intake request.
type CreateReportInput struct {
	Category             domain.Category
	Location             domain.Location
	EquipmentDescription string
	ProblemDescription   string
}

// CreateReportResult carries the created report and any low-confidence
// matches worth showing alongside it.
type CreateReportResult struct {
	Report        *domain.Report
	LowConfidence []DuplicateMatch
	Acknowledged  []DuplicateMatch
	DetectorDown  bool
}

// NewLifecycleService constructs the coordinator.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		reports:     deps.ReportRepo,
		history:     deps.HistoryRepo,
		assignments: deps.AssignmentRepo,
		duplicates:  deps.DuplicateRepo,
		completions: deps.CompletionRepo,
		users:       deps.UserRepo,
		cache:       deps.Cache,
		detector:    deps.Detector,
		machine:     workflow.NewMachine(),
		dispatcher:  deps.Dispatcher,
		cfg:         deps.Config,
		clock:       deps.Clock,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
	}
}

// CreateReport runs the duplicate check, allocates a ticket ID, and
// persists the report with its initial history entry. A high-confidence
// duplicate blocks creation unless ignoreDuplicates is set; in that
// case the acknowledged matches are recorded as duplicate relationships.
func (s *LifecycleService) CreateReport(ctx context.Context, submitterID string, input CreateReportInput, ignoreDuplicates bool) (*CreateReportResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	check := s.detector.Check(ctx, DuplicateInput{
		Category:             input.Category,
		Location:             input.Location,
		EquipmentDescription: input.EquipmentDescription,
		ProblemDescription:   input.ProblemDescription,
	})
	if check.DetectorDown {
		s.metrics.RecordDetectorFailure()
	}
	if check.Blocking() && !ignoreDuplicates {
		s.metrics.RecordDuplicateBlock()
		details := map[string]any{"warning": check.Warning, "matches": duplicateDetails(check.HighConfidence)}
		return nil, apperrors.NewConflict(check.Warning, details)
	}

	report, err := s.insertWithTicketID(ctx, submitterID, input)
	if err != nil {
		return nil, err
	}

	initial := &domain.WorkflowHistory{
		ReportID:   report.ID,
		ActorID:    submitterID,
		FromStatus: domain.StatusSubmitted,
		ToStatus:   domain.StatusSubmitted,
		Action:     "submit",
	}
	if err := s.history.Create(ctx, initial); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, match := range check.HighConfidence {
		rel := &domain.DuplicateRelationship{
			OriginalReportID:  match.Report.ID,
			DuplicateReportID: report.ID,
			SimilarityScore:   match.Score,
		}
		if err := s.duplicates.Create(ctx, rel); err != nil {
			s.logger.Warn("failed to record duplicate relationship",
				zap.String("original", match.Report.ID),
				zap.String("duplicate", report.ID),
				zap.Error(err))
		}
	}

	if input.Location.IsSpecific() {
		s.cache.Invalidate(ctx, *input.Location.BlockID, input.Category)
	}

	s.publish(ctx, events.EventReportCreated, report, submitterID, nil)

	return &CreateReportResult{
		Report:        report,
		LowConfidence: check.LowConfidence,
		Acknowledged:  check.HighConfidence,
		DetectorDown:  check.DetectorDown,
	}, nil
}

// ExecuteTransition drives a report through one workflow edge. On a
// concurrent-write conflict the transition is re-validated against the
// freshly read state rather than blindly retried.
func (s *LifecycleService) ExecuteTransition(ctx context.Context, actor domain.Actor, reportID string, req workflow.TransitionRequest) (*domain.Report, error) {
	for attempt := 0; attempt < transitionRetryLimit; attempt++ {
		report, err := s.GetReport(ctx, reportID)
		if err != nil {
			return nil, err
		}

		assignments, err := s.assignmentsFor(ctx, actor)
		if err != nil {
			return nil, err
		}

		plan, err := s.machine.Plan(report, actor, req, assignments, s.clock.Now())
		if err != nil {
			return nil, err
		}

		if plan.Updates.AssignedTo != nil {
			if err := s.validateAssignee(ctx, *plan.Updates.AssignedTo, report.Category); err != nil {
				return nil, err
			}
		}

		err = s.reports.UpdateInTransaction(ctx, report.ID, plan.From, toMutation(plan.Updates), &plan.History)
		if errors.Is(err, repository.ErrStatusConflict) {
			s.logger.Info("transition conflicted, re-validating",
				zap.String("report_id", report.ID),
				zap.String("action", string(plan.Action)),
				zap.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		updated, err := s.GetReport(ctx, report.ID)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordTransition(string(plan.Action))
		s.runEffects(ctx, actor, updated, plan)
		return updated, nil
	}
	return nil, apperrors.NewConflict("report was modified concurrently, please retry", map[string]any{"report_id": reportID})
}

// RateReport applies the submitter's closed-loop rating and routes the
// report to the status the rating resolves to.
func (s *LifecycleService) RateReport(ctx context.Context, actor domain.Actor, reportID string, input workflow.RatingInput) (*domain.Report, error) {
	for attempt := 0; attempt < transitionRetryLimit; attempt++ {
		report, err := s.GetReport(ctx, reportID)
		if err != nil {
			return nil, err
		}

		if err := workflow.ValidateRatingEligibility(s.cfg, report, actor, s.clock.Now()); err != nil {
			return nil, err
		}
		target, err := workflow.ResolveRating(input)
		if err != nil {
			return nil, err
		}

		req := workflow.TransitionRequest{To: target}
		if comment := strings.TrimSpace(input.Comment); comment != "" {
			req.Notes = &comment
		}
		plan, err := s.machine.Plan(report, actor, req, nil, s.clock.Now())
		if err != nil {
			return nil, err
		}

		mutation := toMutation(plan.Updates)
		rating := input.Rating
		ratedAt := s.clock.Now()
		mutation.Rating = &rating
		mutation.RatedAt = &ratedAt
		if req.Notes != nil {
			mutation.Feedback = req.Notes
		}

		err = s.reports.UpdateInTransaction(ctx, report.ID, plan.From, mutation, &plan.History)
		if errors.Is(err, repository.ErrStatusConflict) {
			continue
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("report", map[string]any{"report_id": reportID})
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}

		updated, err := s.GetReport(ctx, report.ID)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordTransition(string(plan.Action))
		s.runEffects(ctx, actor, updated, plan)
		return updated, nil
	}
	return nil, apperrors.NewConflict("report was modified concurrently, please retry", map[string]any{"report_id": reportID})
}

// GetReport fetches a report by internal ID or human ticket ID.
func (s *LifecycleService) GetReport(ctx context.Context, idOrTicket string) (*domain.Report, error) {
	report, err := s.reports.GetByID(ctx, idOrTicket)
	if err == nil {
		return report, nil
	}
	if !lookupMissed(err) {
		return nil, apperrors.MapError(err)
	}
	report, err = s.reports.GetByTicketID(ctx, idOrTicket)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("report", map[string]any{"id": idOrTicket})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return report, nil
}

// ListHistory returns the workflow trail for a report.
func (s *LifecycleService) ListHistory(ctx context.Context, reportID string, limit, offset int) ([]domain.WorkflowHistory, error) {
	entries, err := s.history.ListByReport(ctx, reportID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListBySubmitter returns a reporter's own reports.
func (s *LifecycleService) ListBySubmitter(ctx context.Context, submitterID string, limit, offset int) ([]domain.Report, error) {
	reports, err := s.reports.ListBySubmitter(ctx, submitterID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reports, nil
}

// CheckSLA evaluates the SLA clock for a report and emits a violation
// event when it has tripped.
func (s *LifecycleService) CheckSLA(ctx context.Context, report *domain.Report) (workflow.SLAStatus, bool) {
	status, ok := workflow.CheckSLA(s.cfg, report, s.clock.Now())
	if !ok {
		return status, false
	}
	if status.Violated {
		s.metrics.RecordSLAViolation()
		s.publish(ctx, events.EventSLAViolation, report, "", map[string]any{
			"priority": status.Priority,
			"deadline": status.Deadline,
			"elapsed":  status.Elapsed.String(),
		})
	}
	return status, true
}

func (s *LifecycleService) insertWithTicketID(ctx context.Context, submitterID string, input CreateReportInput) (*domain.Report, error) {
	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.reports.CountCreatedSince(ctx, dayStart)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	// The count is read-then-written: concurrent callers can compute the
	// same sequence. Uniqueness is enforced by the ticket_id constraint;
	// collisions retry with an incremented offset.
	for attempt := 0; attempt < s.cfg.MaxTicketIDAttempts; attempt++ {
		sequence := count + 1 + attempt
		report := &domain.Report{
			TicketID:             fmt.Sprintf("%s-FIX-%s-%04d", s.cfg.TicketPrefix, now.Format("20060102"), sequence),
			Category:             input.Category,
			Location:             input.Location,
			EquipmentDescription: strings.TrimSpace(input.EquipmentDescription),
			ProblemDescription:   strings.TrimSpace(input.ProblemDescription),
			Status:               domain.StatusSubmitted,
			SubmittedBy:          submitterID,
		}
		err := s.reports.Create(ctx, report)
		if errors.Is(err, repository.ErrDuplicateTicketID) {
			s.metrics.RecordTicketIDRetry()
			continue
		}
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		return report, nil
	}
	return nil, apperrors.NewConflict("could not allocate a unique ticket id", map[string]any{
		"attempts": s.cfg.MaxTicketIDAttempts,
	})
}

func (s *LifecycleService) assignmentsFor(ctx context.Context, actor domain.Actor) ([]domain.CoordinatorAssignment, error) {
	if actor.Role != domain.RoleCoordinator {
		return nil, nil
	}
	assignments, err := s.assignments.ListByCoordinator(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

func (s *LifecycleService) validateAssignee(ctx context.Context, assigneeID string, category domain.Category) error {
	if s.users == nil {
		return nil
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if lookupMissed(err) {
		return apperrors.NewNotFound("assignee", map[string]any{"user_id": assigneeID})
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	specialty, ok := assignee.Role.Specialty()
	if !ok {
		return apperrors.NewValidationError("assignee is not a fixer", map[string]any{"user_id": assigneeID})
	}
	if specialty != category {
		return apperrors.NewValidationError("assignee specialty does not match report category", map[string]any{
			"specialty": specialty,
			"category":  category,
		})
	}
	return nil
}

func (s *LifecycleService) runEffects(ctx context.Context, actor domain.Actor, report *domain.Report, plan *workflow.Transition) {
	for _, effect := range plan.Effects {
		switch effect.Type {
		case workflow.EffectNotify:
			if eventType, ok := events.ForStatus(plan.To); ok {
				s.publish(ctx, eventType, report, actor.ID, map[string]any{
					"action": string(plan.Action),
					"from":   plan.From,
				})
			}
		case workflow.EffectSLACheck:
			s.CheckSLA(ctx, report)
		case workflow.EffectCompletionDetail:
			s.recordCompletionDetail(ctx, actor, report)
		}
	}
}

func (s *LifecycleService) recordCompletionDetail(ctx context.Context, actor domain.Actor, report *domain.Report) {
	if s.completions == nil || report.CompletionNotes == nil {
		return
	}
	completedAt := s.clock.Now()
	if report.CompletedAt != nil {
		completedAt = *report.CompletedAt
	}
	detail := &domain.CompletionDetail{
		ReportID:    report.ID,
		FixerID:     actor.ID,
		Notes:       *report.CompletionNotes,
		CompletedAt: completedAt,
	}
	if err := s.completions.Create(ctx, detail); err != nil {
		s.logger.Warn("failed to record completion detail",
			zap.String("report_id", report.ID),
			zap.Error(err))
	}
}

func (s *LifecycleService) publish(ctx context.Context, eventType events.EventType, report *domain.Report, actorID string, extra map[string]any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ReportID:  report.ID,
		TicketID:  report.TicketID,
		ActorID:   actorID,
		Timestamp: s.clock.Now(),
		Extra:     extra,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// lookupMissed reports whether a primary-key lookup failed only
// because no row can match: the query returned no rows, or the value
// failed the uuid cast (SQLSTATE 22P02), which is what Postgres raises
// when a ticket ID is looked up against the uuid column.
func lookupMissed(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func toMutation(updates workflow.ReportUpdates) repository.ReportMutation {
	return repository.ReportMutation{
		Status:          updates.Status,
		Priority:        updates.Priority,
		AssignedTo:      updates.AssignedTo,
		ClearAssignedTo: updates.ClearAssignedTo,
		RejectionReason: updates.RejectionReason,
		CompletionNotes: updates.CompletionNotes,
		CompletedAt:     updates.CompletedAt,
		Rating:          updates.Rating,
		Feedback:        updates.Feedback,
		RatedAt:         updates.RatedAt,
	}
}

func validateCreateInput(input CreateReportInput) error {
	if !input.Category.IsValid() {
		return apperrors.NewValidationError("category must be electrical or mechanical", map[string]any{"category": input.Category})
	}
	switch input.Location.Type {
	case domain.LocationSpecific:
		if input.Location.BlockID == nil || strings.TrimSpace(*input.Location.BlockID) == "" {
			return apperrors.NewValidationError("specific locations require a block_id", map[string]any{"field": "block_id"})
		}
	case domain.LocationGeneral:
		if strings.TrimSpace(input.Location.Description) == "" {
			return apperrors.NewValidationError("general locations require a description", map[string]any{"field": "location_description"})
		}
	default:
		return apperrors.NewValidationError("location type must be specific or general", map[string]any{"location_type": input.Location.Type})
	}
	if strings.TrimSpace(input.EquipmentDescription) == "" {
		return apperrors.NewValidationError("equipment_description is required", map[string]any{"field": "equipment_description"})
	}
	if strings.TrimSpace(input.ProblemDescription) == "" {
		return apperrors.NewValidationError("problem_description is required", map[string]any{"field": "problem_description"})
	}
	return nil
}

func duplicateDetails(matches []DuplicateMatch) []map[string]any {
	details := make([]map[string]any, 0, len(matches))
	for _, match := range matches {
		details = append(details, map[string]any{
			"ticket_id": match.Report.TicketID,
			"status":    match.Report.Status,
			"score":     match.Score,
		})
	}
	return details
}
