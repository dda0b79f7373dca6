package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// AssignmentRepository stores coordinator block assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.CoordinatorAssignment) error
	ListByCoordinator(ctx context.Context, coordinatorID string) ([]domain.CoordinatorAssignment, error)
	Delete(ctx context.Context, id string) error
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository builds the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *domain.CoordinatorAssignment) error {
	const query = `
        INSERT INTO coordinator_assignments (coordinator_id, block_id)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		assignment.CoordinatorID,
		assignment.BlockID,
	).Scan(&assignment.ID, &assignment.CreatedAt)
}

func (r *assignmentRepository) ListByCoordinator(ctx context.Context, coordinatorID string) ([]domain.CoordinatorAssignment, error) {
	const query = `
        SELECT id, coordinator_id, block_id, created_at
        FROM coordinator_assignments WHERE coordinator_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, coordinatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CoordinatorAssignment
	for rows.Next() {
		var assignment domain.CoordinatorAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.CoordinatorID,
			&assignment.BlockID,
			&assignment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignment)
	}
	return result, rows.Err()
}

func (r *assignmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM coordinator_assignments WHERE id=$1`, id)
	return err
}
