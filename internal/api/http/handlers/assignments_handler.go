package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// AssignmentsHandler manages coordinator block scopes.
type AssignmentsHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignments *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{assignments: assignments}
}

// Grant POST /admin/assignments.
func (h *AssignmentsHandler) Grant(c *fiber.Ctx) error {
	var req dto.GrantAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CoordinatorID == "" {
		return apperrors.NewValidationError("coordinator_id is required", map[string]any{"field": "coordinator_id"})
	}

	assignment, err := h.assignments.Grant(c.Context(), req.CoordinatorID, req.BlockID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(assignment)})
}

// List GET /admin/assignments/:coordinatorId.
func (h *AssignmentsHandler) List(c *fiber.Ctx) error {
	assignments, err := h.assignments.List(c.Context(), c.Params("coordinatorId"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		items = append(items, assignmentResponse(&assignments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Revoke DELETE /admin/assignments/:id.
func (h *AssignmentsHandler) Revoke(c *fiber.Ctx) error {
	if err := h.assignments.Revoke(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"revoked": true}})
}

func assignmentResponse(assignment *domain.CoordinatorAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:            assignment.ID,
		CoordinatorID: assignment.CoordinatorID,
		BlockID:       assignment.BlockID,
		CreatedAt:     assignment.CreatedAt,
	}
}
