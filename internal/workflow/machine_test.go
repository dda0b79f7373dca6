package workflow

import (
	"testing"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func priorityPtr(p domain.Priority) *domain.Priority { return &p }

func testReport(status domain.ReportStatus) *domain.Report {
	block := "block-5"
	return &domain.Report{
		ID:                   "report-1",
		TicketID:             "FMS-FIX-20250310-0001",
		Category:             domain.CategoryElectrical,
		Location:             domain.Location{Type: domain.LocationSpecific, BlockID: &block},
		EquipmentDescription: "light switch",
		ProblemDescription:   "not working",
		Status:               status,
		SubmittedBy:          "reporter-1",
		CreatedAt:            testNow.Add(-time.Hour),
	}
}

func coordinatorFor(block string) (domain.Actor, []domain.CoordinatorAssignment) {
	actor := domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator}
	blockID := block
	return actor, []domain.CoordinatorAssignment{
		{ID: "assign-1", CoordinatorID: "coord-1", BlockID: &blockID},
	}
}

func TestPlanEveryDeclaredEdge(t *testing.T) {
	t.Parallel()

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	tests := []struct {
		from       domain.ReportStatus
		to         domain.ReportStatus
		req        TransitionRequest
		wantAction Action
	}{
		{domain.StatusSubmitted, domain.StatusUnderReview, TransitionRequest{To: domain.StatusUnderReview}, ActionReview},
		{domain.StatusSubmitted, domain.StatusRejected, TransitionRequest{To: domain.StatusRejected, RejectionReason: strPtr("duplicate of earlier report")}, ActionReject},
		{domain.StatusUnderReview, domain.StatusApproved, TransitionRequest{To: domain.StatusApproved, Priority: priorityPtr(domain.PriorityHigh)}, ActionApprove},
		{domain.StatusUnderReview, domain.StatusRejected, TransitionRequest{To: domain.StatusRejected, RejectionReason: strPtr("not actionable as written")}, ActionReject},
		{domain.StatusUnderReview, domain.StatusAssigned, TransitionRequest{To: domain.StatusAssigned, Priority: priorityPtr(domain.PriorityHigh), AssignedTo: strPtr("fixer-1")}, ActionApproveAssign},
		{domain.StatusApproved, domain.StatusAssigned, TransitionRequest{To: domain.StatusAssigned, AssignedTo: strPtr("fixer-1")}, ActionAssign},
		{domain.StatusRejected, domain.StatusUnderReview, TransitionRequest{To: domain.StatusUnderReview}, ActionResubmit},
		{domain.StatusAssigned, domain.StatusInProgress, TransitionRequest{To: domain.StatusInProgress}, ActionStart},
		{domain.StatusInProgress, domain.StatusCompleted, TransitionRequest{To: domain.StatusCompleted, CompletionNotes: strPtr("replaced switch")}, ActionComplete},
		{domain.StatusCompleted, domain.StatusClosed, TransitionRequest{To: domain.StatusClosed}, ActionClose},
		{domain.StatusCompleted, domain.StatusReopened, TransitionRequest{To: domain.StatusReopened}, ActionReopen},
		{domain.StatusCompleted, domain.StatusUnderReview, TransitionRequest{To: domain.StatusUnderReview}, ActionRatingReview},
		{domain.StatusClosed, domain.StatusReopened, TransitionRequest{To: domain.StatusReopened}, ActionReopen},
		{domain.StatusReopened, domain.StatusAssigned, TransitionRequest{To: domain.StatusAssigned, AssignedTo: strPtr("fixer-2")}, ActionReassign},
	}

	machine := NewMachine()
	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			t.Parallel()
			report := testReport(tc.from)
			transition, err := machine.Plan(report, admin, tc.req, nil, testNow)
			if err != nil {
				t.Fatalf("Plan(%s -> %s): %v", tc.from, tc.to, err)
			}
			if transition.Action != tc.wantAction {
				t.Errorf("action = %q, want %q", transition.Action, tc.wantAction)
			}
			if transition.Updates.Status != tc.to {
				t.Errorf("updates.Status = %q, want %q", transition.Updates.Status, tc.to)
			}
			if transition.History.FromStatus != tc.from || transition.History.ToStatus != tc.to {
				t.Errorf("history = %q -> %q, want %q -> %q",
					transition.History.FromStatus, transition.History.ToStatus, tc.from, tc.to)
			}
		})
	}
}

func TestPlanRejectsUndeclaredEdges(t *testing.T) {
	t.Parallel()

	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	machine := NewMachine()
	tests := []struct {
		from domain.ReportStatus
		to   domain.ReportStatus
	}{
		{domain.StatusSubmitted, domain.StatusApproved},
		{domain.StatusSubmitted, domain.StatusCompleted},
		{domain.StatusApproved, domain.StatusInProgress},
		{domain.StatusAssigned, domain.StatusCompleted},
		{domain.StatusInProgress, domain.StatusClosed},
		{domain.StatusClosed, domain.StatusClosed},
	}
	for _, tc := range tests {
		tc := tc
		report := testReport(tc.from)
		_, err := machine.Plan(report, admin, TransitionRequest{To: tc.to}, nil, testNow)
		if !apperrors.IsKind(err, apperrors.KindTransition) {
			t.Errorf("Plan(%s -> %s) error = %v, want transition error", tc.from, tc.to, err)
		}
	}
}

func TestPlanUnknownTargetStatus(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	report := testReport(domain.StatusSubmitted)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	_, err := machine.Plan(report, admin, TransitionRequest{To: "ARCHIVED"}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindTransition) {
		t.Fatalf("error = %v, want transition error", err)
	}
}

func TestPlanRoleGating(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	tests := []struct {
		name  string
		from  domain.ReportStatus
		req   TransitionRequest
		actor domain.Actor
	}{
		{
			name:  "reporter cannot review",
			from:  domain.StatusSubmitted,
			req:   TransitionRequest{To: domain.StatusUnderReview},
			actor: domain.Actor{ID: "reporter-1", Role: domain.RoleReporter},
		},
		{
			name:  "fixer cannot approve",
			from:  domain.StatusUnderReview,
			req:   TransitionRequest{To: domain.StatusApproved, Priority: priorityPtr(domain.PriorityLow)},
			actor: domain.Actor{ID: "fixer-1", Role: domain.RoleElectricalFixer},
		},
		{
			name:  "coordinator cannot start repair",
			from:  domain.StatusAssigned,
			req:   TransitionRequest{To: domain.StatusInProgress},
			actor: domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := machine.Plan(testReport(tc.from), tc.actor, tc.req, nil, testNow)
			if !apperrors.IsKind(err, apperrors.KindAuthorization) {
				t.Fatalf("error = %v, want authorization error", err)
			}
		})
	}
}

func TestPlanReporterOwnership(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	report := testReport(domain.StatusCompleted)

	_, err := machine.Plan(report, domain.Actor{ID: "someone-else", Role: domain.RoleReporter},
		TransitionRequest{To: domain.StatusClosed}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("foreign reporter error = %v, want authorization error", err)
	}

	transition, err := machine.Plan(report, domain.Actor{ID: "reporter-1", Role: domain.RoleReporter},
		TransitionRequest{To: domain.StatusClosed}, nil, testNow)
	if err != nil {
		t.Fatalf("owner close: %v", err)
	}
	if transition.Action != ActionClose {
		t.Errorf("action = %q, want %q", transition.Action, ActionClose)
	}
}

func TestPlanFixerSpecialtyAndAssignment(t *testing.T) {
	t.Parallel()

	machine := NewMachine()

	report := testReport(domain.StatusAssigned)
	report.AssignedTo = strPtr("fixer-1")

	// Wrong specialty: mechanical fixer on an electrical report.
	_, err := machine.Plan(report, domain.Actor{ID: "fixer-1", Role: domain.RoleMechanicalFixer},
		TransitionRequest{To: domain.StatusInProgress}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("wrong specialty error = %v, want authorization error", err)
	}

	// Right specialty, but assigned to someone else.
	_, err = machine.Plan(report, domain.Actor{ID: "fixer-2", Role: domain.RoleElectricalFixer},
		TransitionRequest{To: domain.StatusInProgress}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("other assignee error = %v, want authorization error", err)
	}

	// The assigned fixer may start.
	if _, err := machine.Plan(report, domain.Actor{ID: "fixer-1", Role: domain.RoleElectricalFixer},
		TransitionRequest{To: domain.StatusInProgress}, nil, testNow); err != nil {
		t.Fatalf("assigned fixer start: %v", err)
	}

	// Unset assignee: any matching fixer may start.
	report.AssignedTo = nil
	if _, err := machine.Plan(report, domain.Actor{ID: "fixer-3", Role: domain.RoleElectricalFixer},
		TransitionRequest{To: domain.StatusInProgress}, nil, testNow); err != nil {
		t.Fatalf("unassigned start: %v", err)
	}
}

func TestPlanCoordinatorScope(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	report := testReport(domain.StatusSubmitted)
	req := TransitionRequest{To: domain.StatusUnderReview}

	actor, assignments := coordinatorFor("block-5")
	if _, err := machine.Plan(report, actor, req, assignments, testNow); err != nil {
		t.Fatalf("matching block: %v", err)
	}

	_, wrongBlock := coordinatorFor("block-9")
	if _, err := machine.Plan(report, actor, req, wrongBlock, testNow); !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("wrong block error = %v, want authorization error", err)
	}

	if _, err := machine.Plan(report, actor, req, nil, testNow); err == nil {
		t.Fatal("no assignments: want authorization error, got nil")
	}

	// Wildcard covers any block and general locations.
	wildcard := []domain.CoordinatorAssignment{{ID: "assign-w", CoordinatorID: actor.ID}}
	if _, err := machine.Plan(report, actor, req, wildcard, testNow); err != nil {
		t.Fatalf("wildcard on block: %v", err)
	}
	general := testReport(domain.StatusSubmitted)
	general.Location = domain.Location{Type: domain.LocationGeneral, Description: "north parking lot"}
	if _, err := machine.Plan(general, actor, req, wildcard, testNow); err != nil {
		t.Fatalf("wildcard on general location: %v", err)
	}
	if _, err := machine.Plan(general, actor, req, assignments, testNow); !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("block-scoped coordinator on general location error = %v, want authorization error", err)
	}
}

func TestPlanSubmitterClosedLoop(t *testing.T) {
	t.Parallel()

	machine := NewMachine()

	// A coordinator who submitted the report closes it without any
	// assignment covering the block.
	report := testReport(domain.StatusCompleted)
	report.SubmittedBy = "coord-1"
	transition, err := machine.Plan(report, domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator},
		TransitionRequest{To: domain.StatusClosed}, nil, testNow)
	if err != nil {
		t.Fatalf("coordinator submitter close: %v", err)
	}
	if transition.Action != ActionClose {
		t.Errorf("action = %q, want %q", transition.Action, ActionClose)
	}

	// A mechanical fixer who submitted an electrical report reopens it;
	// neither role membership nor specialty narrows the submitter here.
	report = testReport(domain.StatusCompleted)
	report.SubmittedBy = "fixer-9"
	if _, err := machine.Plan(report, domain.Actor{ID: "fixer-9", Role: domain.RoleMechanicalFixer},
		TransitionRequest{To: domain.StatusReopened}, nil, testNow); err != nil {
		t.Fatalf("fixer submitter reopen: %v", err)
	}

	// The bypass is for submitters only: a foreign coordinator still
	// needs a covering assignment.
	report = testReport(domain.StatusCompleted)
	_, err = machine.Plan(report, domain.Actor{ID: "coord-2", Role: domain.RoleCoordinator},
		TransitionRequest{To: domain.StatusClosed}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("foreign coordinator close error = %v, want authorization error", err)
	}

	// And only for closed-loop edges: a coordinator reviewing their own
	// submission is still scope-checked.
	report = testReport(domain.StatusSubmitted)
	report.SubmittedBy = "coord-1"
	_, err = machine.Plan(report, domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator},
		TransitionRequest{To: domain.StatusUnderReview}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindAuthorization) {
		t.Fatalf("own-report review error = %v, want authorization error", err)
	}
}

func TestPlanFieldRequirements(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	tests := []struct {
		name string
		from domain.ReportStatus
		req  TransitionRequest
	}{
		{"approve without priority", domain.StatusUnderReview, TransitionRequest{To: domain.StatusApproved}},
		{"approve with bad priority", domain.StatusUnderReview, TransitionRequest{To: domain.StatusApproved, Priority: priorityPtr("CRITICAL")}},
		{"reject without reason", domain.StatusSubmitted, TransitionRequest{To: domain.StatusRejected}},
		{"reject with short reason", domain.StatusSubmitted, TransitionRequest{To: domain.StatusRejected, RejectionReason: strPtr("too vague")}},
		{"assign without assignee", domain.StatusApproved, TransitionRequest{To: domain.StatusAssigned}},
		{"assign with blank assignee", domain.StatusApproved, TransitionRequest{To: domain.StatusAssigned, AssignedTo: strPtr("   ")}},
		{"complete without notes", domain.StatusInProgress, TransitionRequest{To: domain.StatusCompleted}},
		{"shortcut without assignee", domain.StatusUnderReview, TransitionRequest{To: domain.StatusAssigned, Priority: priorityPtr(domain.PriorityHigh)}},
		{"shortcut without priority", domain.StatusUnderReview, TransitionRequest{To: domain.StatusAssigned, AssignedTo: strPtr("fixer-1")}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := machine.Plan(testReport(tc.from), admin, tc.req, nil, testNow)
			if !apperrors.IsKind(err, apperrors.KindValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
		})
	}
}

func TestPlanPrioritySetOnce(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	report := testReport(domain.StatusUnderReview)
	report.Priority = priorityPtr(domain.PriorityHigh)

	// Re-approving with the same priority is a no-op on the field.
	if _, err := machine.Plan(report, admin,
		TransitionRequest{To: domain.StatusApproved, Priority: priorityPtr(domain.PriorityHigh)}, nil, testNow); err != nil {
		t.Fatalf("same priority: %v", err)
	}

	_, err := machine.Plan(report, admin,
		TransitionRequest{To: domain.StatusApproved, Priority: priorityPtr(domain.PriorityLow)}, nil, testNow)
	if !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("changed priority error = %v, want validation error", err)
	}
}

func TestPlanEffects(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	complete, err := machine.Plan(testReport(domain.StatusInProgress), admin,
		TransitionRequest{To: domain.StatusCompleted, CompletionNotes: strPtr("replaced breaker")}, nil, testNow)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !hasEffect(complete.Effects, EffectNotify) || !hasEffect(complete.Effects, EffectSLACheck) {
		t.Errorf("complete effects = %v, want notify and sla_check", complete.Effects)
	}
	if !hasEffect(complete.Effects, EffectCompletionDetail) {
		t.Errorf("complete effects = %v, want completion_detail", complete.Effects)
	}
	if complete.Updates.CompletedAt == nil || !complete.Updates.CompletedAt.Equal(testNow) {
		t.Errorf("CompletedAt = %v, want %v", complete.Updates.CompletedAt, testNow)
	}

	review, err := machine.Plan(testReport(domain.StatusSubmitted), admin,
		TransitionRequest{To: domain.StatusUnderReview}, nil, testNow)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if hasEffect(review.Effects, EffectCompletionDetail) {
		t.Errorf("review effects = %v, should not include completion_detail", review.Effects)
	}
}

func TestPlanReopenClearsAssignee(t *testing.T) {
	t.Parallel()

	machine := NewMachine()
	report := testReport(domain.StatusClosed)
	report.AssignedTo = strPtr("fixer-1")

	transition, err := machine.Plan(report, domain.Actor{ID: "reporter-1", Role: domain.RoleReporter},
		TransitionRequest{To: domain.StatusReopened}, nil, testNow)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !transition.Updates.ClearAssignedTo {
		t.Error("reopen should clear the assignee")
	}
}

func TestAllowedTargets(t *testing.T) {
	t.Parallel()

	targets := AllowedTargets(domain.StatusCompleted)
	want := map[domain.ReportStatus]bool{
		domain.StatusUnderReview: true,
		domain.StatusClosed:      true,
		domain.StatusReopened:    true,
	}
	if len(targets) != len(want) {
		t.Fatalf("AllowedTargets(completed) = %v, want 3 targets", targets)
	}
	for _, target := range targets {
		if !want[target] {
			t.Errorf("unexpected target %q", target)
		}
	}
}

func hasEffect(effects []Effect, effectType EffectType) bool {
	for _, effect := range effects {
		if effect.Type == effectType {
			return true
		}
	}
	return false
}
