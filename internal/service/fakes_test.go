package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// fakeReportRepo is an in-memory ReportRepository with the same contract
// as the pgx-backed one, including the ticket uniqueness and CAS errors.
type fakeReportRepo struct {
	mu      sync.Mutex
	seq     int
	reports map[string]*domain.Report
	history []domain.WorkflowHistory

	findErr error
	// getByIDErr, when set, fails every GetByID before the map lookup,
	// mirroring a store that rejects the key outright.
	getByIDErr error
	// forcedConflicts makes the next N UpdateInTransaction calls fail
	// with ErrStatusConflict before touching state.
	forcedConflicts int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{reports: make(map[string]*domain.Report)}
}

func (f *fakeReportRepo) seed(report domain.Report) *domain.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if report.ID == "" {
		report.ID = fmt.Sprintf("report-%d", f.seq)
	}
	f.reports[report.ID] = &report
	return &report
}

func (f *fakeReportRepo) Create(_ context.Context, report *domain.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reports {
		if existing.TicketID == report.TicketID {
			return repository.ErrDuplicateTicketID
		}
	}
	f.seq++
	report.ID = fmt.Sprintf("report-%d", f.seq)
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	report.UpdatedAt = report.CreatedAt
	stored := *report
	f.reports[report.ID] = &stored
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	report, ok := f.reports[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *report
	return &copied, nil
}

func (f *fakeReportRepo) GetByTicketID(_ context.Context, ticketID string) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, report := range f.reports {
		if report.TicketID == ticketID {
			copied := *report
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeReportRepo) ListBySubmitter(_ context.Context, submitterID string, limit, offset int) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Report
	for _, report := range f.reports {
		if report.SubmittedBy == submitterID {
			result = append(result, *report)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeReportRepo) CountCreatedSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, report := range f.reports {
		if !report.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeReportRepo) FindCandidates(_ context.Context, filter repository.CandidateFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var result []domain.Report
	for _, report := range f.reports {
		if !report.Location.IsSpecific() || *report.Location.BlockID != filter.BlockID {
			continue
		}
		if report.Category != filter.Category {
			continue
		}
		if report.CreatedAt.Before(filter.Since) {
			continue
		}
		if filter.RoomNumber != nil && *filter.RoomNumber != "" &&
			report.Location.RoomNumber != nil && *report.Location.RoomNumber != *filter.RoomNumber {
			continue
		}
		excluded := false
		for _, status := range filter.ExcludeStatuses {
			if report.Status == status {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		result = append(result, *report)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeReportRepo) ListActiveWithPriority(_ context.Context, limit int) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Report
	for _, report := range f.reports {
		if report.Priority == nil {
			continue
		}
		switch report.Status {
		case domain.StatusCompleted, domain.StatusClosed, domain.StatusRejected:
			continue
		}
		result = append(result, *report)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeReportRepo) UpdateInTransaction(_ context.Context, reportID string, expectedStatus domain.ReportStatus, mutation repository.ReportMutation, history *domain.WorkflowHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedConflicts > 0 {
		f.forcedConflicts--
		return repository.ErrStatusConflict
	}
	report, ok := f.reports[reportID]
	if !ok {
		return pgx.ErrNoRows
	}
	if report.Status != expectedStatus {
		return repository.ErrStatusConflict
	}

	report.Status = mutation.Status
	if mutation.Priority != nil {
		report.Priority = mutation.Priority
	}
	if mutation.ClearAssignedTo {
		report.AssignedTo = nil
	} else if mutation.AssignedTo != nil {
		report.AssignedTo = mutation.AssignedTo
	}
	if mutation.RejectionReason != nil {
		report.RejectionReason = mutation.RejectionReason
	}
	if mutation.CompletionNotes != nil {
		report.CompletionNotes = mutation.CompletionNotes
	}
	if mutation.CompletedAt != nil {
		report.CompletedAt = mutation.CompletedAt
	}
	if mutation.Rating != nil {
		report.Rating = mutation.Rating
	}
	if mutation.Feedback != nil {
		report.Feedback = mutation.Feedback
	}
	if mutation.RatedAt != nil {
		report.RatedAt = mutation.RatedAt
	}

	history.ID = fmt.Sprintf("history-%d", len(f.history)+1)
	f.history = append(f.history, *history)
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.WorkflowHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.WorkflowHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = fmt.Sprintf("history-%d", len(f.entries)+1)
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByReport(_ context.Context, reportID string, limit, offset int) ([]domain.WorkflowHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.WorkflowHistory
	for _, entry := range f.entries {
		if entry.ReportID == reportID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeAssignmentRepo struct {
	assignments []domain.CoordinatorAssignment
}

func (f *fakeAssignmentRepo) Create(_ context.Context, assignment *domain.CoordinatorAssignment) error {
	f.assignments = append(f.assignments, *assignment)
	return nil
}

func (f *fakeAssignmentRepo) ListByCoordinator(_ context.Context, coordinatorID string) ([]domain.CoordinatorAssignment, error) {
	var result []domain.CoordinatorAssignment
	for _, assignment := range f.assignments {
		if assignment.CoordinatorID == coordinatorID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (f *fakeAssignmentRepo) Delete(_ context.Context, id string) error { return nil }

type fakeDuplicateRepo struct {
	mu   sync.Mutex
	rels []domain.DuplicateRelationship
}

func (f *fakeDuplicateRepo) Create(_ context.Context, rel *domain.DuplicateRelationship) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel.ID = fmt.Sprintf("dup-%d", len(f.rels)+1)
	f.rels = append(f.rels, *rel)
	return nil
}

func (f *fakeDuplicateRepo) ListByOriginal(_ context.Context, originalReportID string) ([]domain.DuplicateRelationship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.DuplicateRelationship
	for _, rel := range f.rels {
		if rel.OriginalReportID == originalReportID {
			result = append(result, rel)
		}
	}
	return result, nil
}

type fakeCompletionRepo struct {
	mu      sync.Mutex
	details []domain.CompletionDetail
}

func (f *fakeCompletionRepo) Create(_ context.Context, detail *domain.CompletionDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	detail.ID = fmt.Sprintf("completion-%d", len(f.details)+1)
	f.details = append(f.details, *detail)
	return nil
}

func (f *fakeCompletionRepo) GetByReport(_ context.Context, reportID string) (*domain.CompletionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, detail := range f.details {
		if detail.ReportID == reportID {
			copied := detail
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// captureDispatcher records every published event.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
