package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// AssignmentService manages the block scopes coordinators operate in.
type AssignmentService struct {
	assignments repository.AssignmentRepository
	users       repository.UserRepository
}

// NewAssignmentService builds the service.
func NewAssignmentService(assignments repository.AssignmentRepository, users repository.UserRepository) *AssignmentService {
	return &AssignmentService{assignments: assignments, users: users}
}

// Grant scopes a coordinator to a block. A nil blockID grants a
// wildcard covering every block and general locations.
func (s *AssignmentService) Grant(ctx context.Context, coordinatorID string, blockID *string) (*domain.CoordinatorAssignment, error) {
	user, err := s.users.GetByID(ctx, coordinatorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("coordinator", map[string]any{"user_id": coordinatorID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if user.Role != domain.RoleCoordinator {
		return nil, apperrors.NewValidationError("assignments can only be granted to coordinators", map[string]any{
			"user_id": coordinatorID,
			"role":    user.Role,
		})
	}

	assignment := &domain.CoordinatorAssignment{
		CoordinatorID: coordinatorID,
		BlockID:       blockID,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignment, nil
}

// List returns a coordinator's block assignments.
func (s *AssignmentService) List(ctx context.Context, coordinatorID string) ([]domain.CoordinatorAssignment, error) {
	assignments, err := s.assignments.ListByCoordinator(ctx, coordinatorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

// Revoke removes an assignment.
func (s *AssignmentService) Revoke(ctx context.Context, id string) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
