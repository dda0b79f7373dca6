// Package workflow implements the role-gated state machine that governs
// every status change a report can undergo, plus the SLA monitor and the
// rating resolver. The machine is pure: planning a transition never
// touches storage; it returns the field updates, the history entry, and
// a list of deferred effects for the caller to execute after commit.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

const (
	minRejectionReasonLength = 10
	minRatingCommentLength   = 20
)

// Action names what a transition does; it is recorded verbatim in the
// workflow history and mapped to a notification event by the caller.
type Action string

const (
	ActionReview        Action = "review"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionResubmit      Action = "resubmit"
	ActionAssign        Action = "assign"
	ActionApproveAssign Action = "approve_and_assign"
	ActionStart         Action = "start"
	ActionComplete      Action = "complete"
	ActionClose         Action = "close"
	ActionReopen        Action = "reopen"
	ActionRatingReview  Action = "rating_review"
	ActionReassign      Action = "reassign"
)

// TransitionRequest is the caller's payload for a status change.
type TransitionRequest struct {
	To              domain.ReportStatus
	Priority        *domain.Priority
	AssignedTo      *string
	RejectionReason *string
	CompletionNotes *string
	Notes           *string
}

// EffectType enumerates deferred side effects of a transition.
type EffectType string

const (
	// EffectNotify emits a transition event to the notification sink.
	EffectNotify EffectType = "notify"
	// EffectSLACheck re-evaluates the SLA clock for the report.
	EffectSLACheck EffectType = "sla_check"
	// EffectCompletionDetail records the completion-detail entry.
	EffectCompletionDetail EffectType = "completion_detail"
)

// Effect is a side effect to run after the transition commits. Keeping
// them out of the machine keeps planning side-effect-free.
type Effect struct {
	Type   EffectType
	Action Action
}

// ReportUpdates lists the field changes a transition applies. Nil
// pointers mean "leave unchanged".
type ReportUpdates struct {
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

// Transition is a validated, ready-to-commit status change.
type Transition struct {
	From    domain.ReportStatus
	To      domain.ReportStatus
	Action  Action
	Updates ReportUpdates
	History domain.WorkflowHistory
	Effects []Effect
}

// roleSet is a closed membership set over domain.Role.
type roleSet map[domain.Role]struct{}

func roles(list ...domain.Role) roleSet {
	set := make(roleSet, len(list))
	for _, role := range list {
		set[role] = struct{}{}
	}
	return set
}

var (
	coordinatorOrAdmin = roles(domain.RoleCoordinator, domain.RoleAdmin)
	fixerOrAdmin       = roles(domain.RoleElectricalFixer, domain.RoleMechanicalFixer, domain.RoleAdmin)
	closedLoopRoles    = roles(domain.RoleReporter, domain.RoleCoordinator, domain.RoleAdmin)
)

type edge struct {
	action           Action
	allowed          roleSet
	requiresPriority bool
	requiresAssignee bool
	requiresReason   bool
	requiresNotes    bool
}

// closedLoop reports whether the edge answers "did the fix actually
// work". These edges belong to the report's submitter whatever role
// they hold, since any authenticated user can submit a report.
func (e edge) closedLoop() bool {
	switch e.action {
	case ActionClose, ActionReopen, ActionRatingReview:
		return true
	}
	return false
}

// transitions is the full status graph. Every status change in the
// system must exist as an entry here; anything else is rejected before
// any state is read for mutation.
var transitions = map[domain.ReportStatus]map[domain.ReportStatus]edge{
	domain.StatusSubmitted: {
		domain.StatusUnderReview: {action: ActionReview, allowed: coordinatorOrAdmin},
		domain.StatusRejected:    {action: ActionReject, allowed: coordinatorOrAdmin, requiresReason: true},
	},
	domain.StatusUnderReview: {
		domain.StatusApproved: {action: ActionApprove, allowed: coordinatorOrAdmin, requiresPriority: true},
		domain.StatusRejected: {action: ActionReject, allowed: coordinatorOrAdmin, requiresReason: true},
		// Shortcut for "approve and assign in one step" during review.
		domain.StatusAssigned: {action: ActionApproveAssign, allowed: coordinatorOrAdmin, requiresPriority: true, requiresAssignee: true},
	},
	domain.StatusApproved: {
		domain.StatusAssigned: {action: ActionAssign, allowed: coordinatorOrAdmin, requiresAssignee: true},
	},
	domain.StatusRejected: {
		domain.StatusUnderReview: {action: ActionResubmit, allowed: coordinatorOrAdmin},
	},
	domain.StatusAssigned: {
		domain.StatusInProgress: {action: ActionStart, allowed: fixerOrAdmin},
	},
	domain.StatusInProgress: {
		domain.StatusCompleted: {action: ActionComplete, allowed: fixerOrAdmin, requiresNotes: true},
	},
	domain.StatusCompleted: {
		domain.StatusClosed:      {action: ActionClose, allowed: closedLoopRoles},
		domain.StatusReopened:    {action: ActionReopen, allowed: closedLoopRoles},
		domain.StatusUnderReview: {action: ActionRatingReview, allowed: closedLoopRoles},
	},
	domain.StatusClosed: {
		domain.StatusReopened: {action: ActionReopen, allowed: closedLoopRoles},
	},
	domain.StatusReopened: {
		domain.StatusAssigned: {action: ActionReassign, allowed: coordinatorOrAdmin, requiresAssignee: true},
	},
}

// Machine plans workflow transitions.
type Machine struct{}

// NewMachine constructs the state machine.
func NewMachine() *Machine {
	return &Machine{}
}

// Plan validates the requested transition against the status graph, the
// actor's role and scope, and the payload requirements, and returns the
// committed-as-one-unit change set. assignments are the coordinator's
// block assignments (ignored for other roles). Plan never mutates the
// report.
func (m *Machine) Plan(report *domain.Report, actor domain.Actor, req TransitionRequest, assignments []domain.CoordinatorAssignment, now time.Time) (*Transition, error) {
	if !req.To.IsValid() {
		return nil, apperrors.NewTransitionError(
			fmt.Sprintf("unknown status %q", req.To),
			map[string]any{"to": req.To},
		)
	}

	edges, ok := transitions[report.Status]
	if !ok {
		return nil, apperrors.NewTransitionError(
			fmt.Sprintf("no transitions from status %q", report.Status),
			map[string]any{"from": report.Status},
		)
	}
	selected, ok := edges[req.To]
	if !ok {
		return nil, apperrors.NewTransitionError(
			fmt.Sprintf("cannot move report from %q to %q", report.Status, req.To),
			map[string]any{"from": report.Status, "to": req.To},
		)
	}

	if err := m.authorize(report, actor, selected, assignments); err != nil {
		return nil, err
	}

	updates, err := m.applyRequirements(report, selected, req, now)
	if err != nil {
		return nil, err
	}

	transition := &Transition{
		From:    report.Status,
		To:      req.To,
		Action:  selected.action,
		Updates: updates,
		History: domain.WorkflowHistory{
			ReportID:   report.ID,
			ActorID:    actor.ID,
			FromStatus: report.Status,
			ToStatus:   req.To,
			Action:     string(selected.action),
			Notes:      req.Notes,
		},
		Effects: []Effect{
			{Type: EffectNotify, Action: selected.action},
			{Type: EffectSLACheck, Action: selected.action},
		},
	}
	if selected.action == ActionComplete {
		transition.Effects = append(transition.Effects, Effect{Type: EffectCompletionDetail, Action: selected.action})
	}
	return transition, nil
}

func (m *Machine) authorize(report *domain.Report, actor domain.Actor, selected edge, assignments []domain.CoordinatorAssignment) error {
	// The submitter takes the closed-loop edges as a plain submitter; a
	// coordinator rating their own report needs no covering assignment
	// and a fixer rating their own report needs no specialty match.
	if selected.closedLoop() && report.SubmittedBy == actor.ID {
		return nil
	}

	if _, ok := selected.allowed[actor.Role]; !ok {
		return apperrors.NewForbidden(
			fmt.Sprintf("role %q may not perform %q", actor.Role, selected.action),
		)
	}

	// Role membership grants the edge; the checks below narrow it to the
	// actor's scope. The switch is exhaustive over the role enum.
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleReporter:
		if report.SubmittedBy != actor.ID {
			return apperrors.NewForbidden("reporters may only act on their own reports")
		}
		return nil
	case domain.RoleElectricalFixer, domain.RoleMechanicalFixer:
		specialty, _ := actor.Role.Specialty()
		if report.Category != specialty {
			return apperrors.NewForbidden(
				fmt.Sprintf("fixer specialty %q does not match report category %q", specialty, report.Category),
			)
		}
		if report.Status == domain.StatusAssigned && report.AssignedTo != nil && *report.AssignedTo != actor.ID {
			return apperrors.NewForbidden("report is assigned to another fixer")
		}
		return nil
	case domain.RoleCoordinator:
		for _, assignment := range assignments {
			if assignment.CoordinatorID != actor.ID {
				continue
			}
			if assignment.Covers(report.Location) {
				return nil
			}
		}
		return apperrors.NewForbidden("coordinator has no assignment covering this location")
	}
	return apperrors.NewForbidden(fmt.Sprintf("unknown role %q", actor.Role))
}

func (m *Machine) applyRequirements(report *domain.Report, selected edge, req TransitionRequest, now time.Time) (ReportUpdates, error) {
	updates := ReportUpdates{Status: req.To}

	if selected.requiresPriority {
		if req.Priority == nil || !req.Priority.IsValid() {
			return updates, apperrors.NewValidationError("priority is required for this transition", map[string]any{"field": "priority"})
		}
		// Priority is set exactly once; a conflicting value is an error,
		// not an overwrite.
		if report.Priority != nil && *report.Priority != *req.Priority {
			return updates, apperrors.NewValidationError("priority is already set and cannot change", map[string]any{
				"current":   *report.Priority,
				"requested": *req.Priority,
			})
		}
		updates.Priority = req.Priority
	}

	if selected.requiresAssignee {
		if req.AssignedTo == nil || strings.TrimSpace(*req.AssignedTo) == "" {
			return updates, apperrors.NewValidationError("assigned_to is required for this transition", map[string]any{"field": "assigned_to"})
		}
		updates.AssignedTo = req.AssignedTo
	}

	if selected.requiresReason {
		if req.RejectionReason == nil || len(strings.TrimSpace(*req.RejectionReason)) < minRejectionReasonLength {
			return updates, apperrors.NewValidationError(
				fmt.Sprintf("rejection_reason of at least %d characters is required", minRejectionReasonLength),
				map[string]any{"field": "rejection_reason"},
			)
		}
		updates.RejectionReason = req.RejectionReason
	}

	if selected.requiresNotes {
		if req.CompletionNotes == nil || strings.TrimSpace(*req.CompletionNotes) == "" {
			return updates, apperrors.NewValidationError("completion_notes is required for this transition", map[string]any{"field": "completion_notes"})
		}
		updates.CompletionNotes = req.CompletionNotes
		completedAt := now
		updates.CompletedAt = &completedAt
	}

	if selected.action == ActionReopen {
		updates.ClearAssignedTo = true
	}

	return updates, nil
}

// AllowedTargets returns the statuses reachable from the given status.
// Used by handlers to describe valid next actions.
func AllowedTargets(from domain.ReportStatus) []domain.ReportStatus {
	edges := transitions[from]
	targets := make([]domain.ReportStatus, 0, len(edges))
	for _, status := range domain.AllStatuses {
		if _, ok := edges[status]; ok {
			targets = append(targets, status)
		}
	}
	return targets
}
