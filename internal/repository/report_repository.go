package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

const uniqueViolationCode = "23505"

// ErrStatusConflict signals that a transactional update found the report
// in a status other than the one the caller validated against. The
// caller must re-read and re-validate rather than blindly retry.
var ErrStatusConflict = errors.New("report status changed concurrently")

// ErrDuplicateTicketID signals a ticket-ID uniqueness collision during
// insertion; the allocator retries with an incremented sequence.
var ErrDuplicateTicketID = errors.New("ticket id already exists")

// CandidateFilter bounds duplicate-candidate retrieval.
type CandidateFilter struct {
	BlockID         string
	RoomNumber      *string
	Category        domain.Category
	ExcludeStatuses []domain.ReportStatus
	Since           time.Time
	Limit           int
}

// ReportMutation lists the field changes a transition commits. Nil
// pointers leave the column unchanged.
type ReportMutation struct {
	Status          domain.ReportStatus
	Priority        *domain.Priority
	AssignedTo      *string
	ClearAssignedTo bool
	RejectionReason *string
	CompletionNotes *string
	CompletedAt     *time.Time
	Rating          *int
	Feedback        *string
	RatedAt         *time.Time
}

// ReportRepository is the report store contract the lifecycle core
// depends on.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetByID(ctx context.Context, id string) (*domain.Report, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.Report, error)
	ListBySubmitter(ctx context.Context, submitterID string, limit, offset int) ([]domain.Report, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]domain.Report, error)
	// ListActiveWithPriority returns unresolved reports that carry a
	// priority, oldest first, for SLA sweeping.
	ListActiveWithPriority(ctx context.Context, limit int) ([]domain.Report, error)
	// UpdateInTransaction applies the mutation and appends the history
	// entry as one atomic unit, guarded by a compare-and-swap on the
	// expected status. Returns ErrStatusConflict when the guard fails.
	UpdateInTransaction(ctx context.Context, reportID string, expectedStatus domain.ReportStatus, mutation ReportMutation, history *domain.WorkflowHistory) error
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates the pgx-backed repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

const reportColumns = `id, ticket_id, category, location_type, block_id, room_number, location_description,
       equipment_description, problem_description, status, priority, submitted_by, assigned_to,
       rejection_reason, completion_notes, rating, feedback, rated_at, completed_at, created_at, updated_at`

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	const query = `
        INSERT INTO reports (ticket_id, category, location_type, block_id, room_number, location_description,
            equipment_description, problem_description, status, submitted_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		report.TicketID,
		report.Category,
		report.Location.Type,
		report.Location.BlockID,
		report.Location.RoomNumber,
		report.Location.Description,
		report.EquipmentDescription,
		report.ProblemDescription,
		report.Status,
		report.SubmittedBy,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateTicketID
		}
		return err
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	return r.fetchSingle(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
}

func (r *reportRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Report, error) {
	return r.fetchSingle(ctx, `SELECT `+reportColumns+` FROM reports WHERE ticket_id=$1`, ticketID)
}

func (r *reportRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Report, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanReport(row)
}

func (r *reportRepository) ListBySubmitter(ctx context.Context, submitterID string, limit, offset int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + reportColumns + `
        FROM reports WHERE submitted_by=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, submitterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

func (r *reportRepository) FindCandidates(ctx context.Context, filter CandidateFilter) ([]domain.Report, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + reportColumns + `
        FROM reports
        WHERE block_id = $1 AND category = $2 AND created_at >= $3`
	args := []any{filter.BlockID, filter.Category, filter.Since}

	if filter.RoomNumber != nil && *filter.RoomNumber != "" {
		args = append(args, *filter.RoomNumber)
		query += ` AND (room_number = $4 OR room_number IS NULL)`
	}
	for _, status := range filter.ExcludeStatuses {
		args = append(args, status)
		query += fmt.Sprintf(" AND status <> $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) ListActiveWithPriority(ctx context.Context, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT ` + reportColumns + `
        FROM reports
        WHERE priority IS NOT NULL AND status NOT IN ('COMPLETED','CLOSED','REJECTED')
        ORDER BY created_at ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReports(rows)
}

func (r *reportRepository) UpdateInTransaction(ctx context.Context, reportID string, expectedStatus domain.ReportStatus, mutation ReportMutation, history *domain.WorkflowHistory) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `
        UPDATE reports SET
            status = $1,
            priority = COALESCE($2, priority),
            assigned_to = CASE WHEN $3 THEN NULL ELSE COALESCE($4, assigned_to) END,
            rejection_reason = COALESCE($5, rejection_reason),
            completion_notes = COALESCE($6, completion_notes),
            completed_at = COALESCE($7, completed_at),
            rating = COALESCE($8, rating),
            feedback = COALESCE($9, feedback),
            rated_at = COALESCE($10, rated_at),
            updated_at = NOW()
        WHERE id = $11 AND status = $12`,
		mutation.Status,
		mutation.Priority,
		mutation.ClearAssignedTo,
		mutation.AssignedTo,
		mutation.RejectionReason,
		mutation.CompletionNotes,
		mutation.CompletedAt,
		mutation.Rating,
		mutation.Feedback,
		mutation.RatedAt,
		reportID,
		expectedStatus,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Either the report vanished or its status moved under us;
		// distinguish so the caller can re-validate.
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM reports WHERE id=$1)`, reportID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStatusConflict
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO workflow_history (report_id, actor_id, from_status, to_status, action, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`,
		history.ReportID,
		history.ActorID,
		history.FromStatus,
		history.ToStatus,
		history.Action,
		history.Notes,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.TicketID,
		&report.Category,
		&report.Location.Type,
		&report.Location.BlockID,
		&report.Location.RoomNumber,
		&report.Location.Description,
		&report.EquipmentDescription,
		&report.ProblemDescription,
		&report.Status,
		&report.Priority,
		&report.SubmittedBy,
		&report.AssignedTo,
		&report.RejectionReason,
		&report.CompletionNotes,
		&report.Rating,
		&report.Feedback,
		&report.RatedAt,
		&report.CompletedAt,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &report, nil
}

func scanReports(rows pgx.Rows) ([]domain.Report, error) {
	var result []domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}
