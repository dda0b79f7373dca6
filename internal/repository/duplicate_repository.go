package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// DuplicateRepository stores acknowledged duplicate relationships.
type DuplicateRepository interface {
	Create(ctx context.Context, rel *domain.DuplicateRelationship) error
	ListByOriginal(ctx context.Context, originalReportID string) ([]domain.DuplicateRelationship, error)
}

type duplicateRepository struct {
	pool *pgxpool.Pool
}

// NewDuplicateRepository builds the repository.
func NewDuplicateRepository(pool *pgxpool.Pool) DuplicateRepository {
	return &duplicateRepository{pool: pool}
}

func (r *duplicateRepository) Create(ctx context.Context, rel *domain.DuplicateRelationship) error {
	const query = `
        INSERT INTO duplicate_relationships (original_report_id, duplicate_report_id, similarity_score)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		rel.OriginalReportID,
		rel.DuplicateReportID,
		rel.SimilarityScore,
	).Scan(&rel.ID, &rel.CreatedAt)
}

func (r *duplicateRepository) ListByOriginal(ctx context.Context, originalReportID string) ([]domain.DuplicateRelationship, error) {
	const query = `
        SELECT id, original_report_id, duplicate_report_id, similarity_score, created_at
        FROM duplicate_relationships WHERE original_report_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, originalReportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DuplicateRelationship
	for rows.Next() {
		var rel domain.DuplicateRelationship
		if err := rows.Scan(
			&rel.ID,
			&rel.OriginalReportID,
			&rel.DuplicateReportID,
			&rel.SimilarityScore,
			&rel.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	return result, rows.Err()
}
