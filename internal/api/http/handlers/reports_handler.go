package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/maintenance-service/internal/api/dto"
	"github.com/spec-kit/maintenance-service/internal/auth"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/workflow"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// ReportsHandler manages maintenance-report endpoints.
type ReportsHandler struct {
	lifecycle *service.LifecycleService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(lifecycle *service.LifecycleService) *ReportsHandler {
	return &ReportsHandler{lifecycle: lifecycle}
}

// CreateReport POST /reports.
func (h *ReportsHandler) CreateReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateReportInput{
		Category: req.Category,
		Location: domain.Location{
			Type:        req.Location.Type,
			BlockID:     req.Location.BlockID,
			RoomNumber:  req.Location.RoomNumber,
			Description: req.Location.Description,
		},
		EquipmentDescription: req.EquipmentDescription,
		ProblemDescription:   req.ProblemDescription,
	}
	result, err := h.lifecycle.CreateReport(c.Context(), principal.User.ID, input, req.IgnoreDuplicates)
	if err != nil {
		return err
	}

	response := dto.CreateReportResponse{
		Report:           reportResponse(result.Report, nil, nil),
		DetectorDegraded: result.DetectorDown,
	}
	for _, match := range result.LowConfidence {
		response.PossibleDuplicates = append(response.PossibleDuplicates, duplicateMatch(match))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": response})
}

// ListReports GET /reports. Reporters see their own submissions.
func (h *ReportsHandler) ListReports(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	reports, err := h.lifecycle.ListBySubmitter(c.Context(), principal.User.ID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, reportResponse(&reports[i], nil, nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetReport GET /reports/:id. Accepts internal IDs and ticket IDs.
func (h *ReportsHandler) GetReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.lifecycle.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.authorizeRead(principal, report); err != nil {
		return err
	}

	var sla *dto.SLAResponse
	if status, ok := h.lifecycle.CheckSLA(c.Context(), report); ok {
		sla = &dto.SLAResponse{
			Priority:  status.Priority,
			Deadline:  status.Deadline,
			Remaining: status.Remaining.String(),
			Violated:  status.Violated,
		}
	}
	allowed := workflow.AllowedTargets(report.Status)
	return c.JSON(fiber.Map{"data": reportResponse(report, sla, allowed)})
}

// TransitionReport POST /reports/:id/transition.
func (h *ReportsHandler) TransitionReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.lifecycle.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	updated, err := h.lifecycle.ExecuteTransition(c.Context(), principal.Actor(), report.ID, workflow.TransitionRequest{
		To:              req.Status,
		Priority:        req.Priority,
		AssignedTo:      req.AssignedTo,
		RejectionReason: req.RejectionReason,
		CompletionNotes: req.CompletionNotes,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(updated, nil, workflow.AllowedTargets(updated.Status))})
}

// RateReport POST /reports/:id/rating.
func (h *ReportsHandler) RateReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.lifecycle.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	updated, err := h.lifecycle.RateReport(c.Context(), principal.Actor(), report.ID, workflow.RatingInput{
		Rating:          req.Rating,
		Comment:         req.Comment,
		MarkStillBroken: req.StillBroken,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": reportResponse(updated, nil, workflow.AllowedTargets(updated.Status))})
}

// GetHistory GET /reports/:id/history.
func (h *ReportsHandler) GetHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.lifecycle.GetReport(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.authorizeRead(principal, report); err != nil {
		return err
	}

	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)
	entries, err := h.lifecycle.ListHistory(c.Context(), report.ID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.WorkflowHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.WorkflowHistoryResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Action:     entry.Action,
			Notes:      entry.Notes,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// authorizeRead limits reporters to their own reports; staff roles can
// read anything their transition permissions reach.
func (h *ReportsHandler) authorizeRead(principal *auth.Principal, report *domain.Report) error {
	if principal.User.Role == domain.RoleReporter && report.SubmittedBy != principal.User.ID {
		return apperrors.NewForbidden("reporters may only view their own reports")
	}
	return nil
}

func reportResponse(report *domain.Report, sla *dto.SLAResponse, allowed []domain.ReportStatus) dto.ReportResponse {
	return dto.ReportResponse{
		ID:       report.ID,
		TicketID: report.TicketID,
		Category: report.Category,
		Location: dto.LocationPayload{
			Type:        report.Location.Type,
			BlockID:     report.Location.BlockID,
			RoomNumber:  report.Location.RoomNumber,
			Description: report.Location.Description,
		},
		EquipmentDescription: report.EquipmentDescription,
		ProblemDescription:   report.ProblemDescription,
		Status:               report.Status,
		Priority:             report.Priority,
		SubmittedBy:          report.SubmittedBy,
		AssignedTo:           report.AssignedTo,
		RejectionReason:      report.RejectionReason,
		CompletionNotes:      report.CompletionNotes,
		Rating:               report.Rating,
		Feedback:             report.Feedback,
		RatedAt:              report.RatedAt,
		CompletedAt:          report.CompletedAt,
		CreatedAt:            report.CreatedAt,
		UpdatedAt:            report.UpdatedAt,
		AllowedTransitions:   allowed,
		SLA:                  sla,
	}
}

func duplicateMatch(match service.DuplicateMatch) dto.DuplicateMatchResponse {
	return dto.DuplicateMatchResponse{
		TicketID: match.Report.TicketID,
		Status:   match.Report.Status,
		Score:    match.Score,
	}
}
