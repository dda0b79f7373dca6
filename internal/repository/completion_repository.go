package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// CompletionRepository stores completion-detail records.
type CompletionRepository interface {
	Create(ctx context.Context, detail *domain.CompletionDetail) error
	GetByReport(ctx context.Context, reportID string) (*domain.CompletionDetail, error)
}

type completionRepository struct {
	pool *pgxpool.Pool
}

// NewCompletionRepository builds the repository.
func NewCompletionRepository(pool *pgxpool.Pool) CompletionRepository {
	return &completionRepository{pool: pool}
}

func (r *completionRepository) Create(ctx context.Context, detail *domain.CompletionDetail) error {
	const query = `
        INSERT INTO completion_details (report_id, fixer_id, notes, completed_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		detail.ReportID,
		detail.FixerID,
		detail.Notes,
		detail.CompletedAt,
	).Scan(&detail.ID, &detail.CreatedAt)
}

func (r *completionRepository) GetByReport(ctx context.Context, reportID string) (*domain.CompletionDetail, error) {
	const query = `
        SELECT id, report_id, fixer_id, notes, completed_at, created_at
        FROM completion_details WHERE report_id=$1`
	var detail domain.CompletionDetail
	if err := r.pool.QueryRow(ctx, query, reportID).Scan(
		&detail.ID,
		&detail.ReportID,
		&detail.FixerID,
		&detail.Notes,
		&detail.CompletedAt,
		&detail.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &detail, nil
}
