package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// HistoryRepository stores the append-only workflow audit trail.
// Transition entries are written inside UpdateInTransaction; this
// repository covers the initial submitted entry and reads.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.WorkflowHistory) error
	ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.WorkflowHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.WorkflowHistory) error {
	const query = `
        INSERT INTO workflow_history (report_id, actor_id, from_status, to_status, action, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ReportID,
		entry.ActorID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Action,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByReport(ctx context.Context, reportID string, limit, offset int) ([]domain.WorkflowHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, report_id, actor_id, from_status, to_status, action, notes, created_at
        FROM workflow_history WHERE report_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, reportID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowHistory
	for rows.Next() {
		var entry domain.WorkflowHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.ReportID,
			&entry.ActorID,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Action,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
