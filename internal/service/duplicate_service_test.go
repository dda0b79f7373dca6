package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/clock"
	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newDetector(repo *fakeReportRepo) *DuplicateService {
	return NewDuplicateService(DuplicateDependencies{
		ReportRepo: repo,
		Cache:      nil,
		Config:     config.DefaultWorkflowConfig(),
		Clock:      clock.NewFixed(testNow),
		Logger:     zap.NewNop(),
	})
}

func specificLocation(blockID, room string) domain.Location {
	loc := domain.Location{Type: domain.LocationSpecific, BlockID: &blockID}
	if room != "" {
		loc.RoomNumber = &room
	}
	return loc
}

func seedOpenReport(repo *fakeReportRepo, ticketID, equipment, problem string, age time.Duration) *domain.Report {
	return repo.seed(domain.Report{
		TicketID:             ticketID,
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: equipment,
		ProblemDescription:   problem,
		Status:               domain.StatusSubmitted,
		SubmittedBy:          "reporter-1",
		CreatedAt:            testNow.Add(-age),
	})
}

func TestCheckGeneralLocationSkipsDetection(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	seedOpenReport(repo, "FMS-FIX-20250308-0001", "light switch", "switch not working", 48*time.Hour)

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             domain.Location{Type: domain.LocationGeneral, Description: "parking lot behind block 5"},
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if result.Blocking() {
		t.Fatalf("general location blocked: %+v", result)
	}
	if len(result.HighConfidence) != 0 || len(result.LowConfidence) != 0 {
		t.Fatalf("general location produced matches: %+v", result)
	}
}

func TestCheckHighConfidenceBlocksWithSingularWarning(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	seedOpenReport(repo, "FMS-FIX-20250308-0001", "Light switch", "Switch not working", 48*time.Hour)

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working!",
	})

	if !result.Blocking() {
		t.Fatalf("near-identical report did not block: %+v", result)
	}
	if len(result.HighConfidence) != 1 {
		t.Fatalf("HighConfidence count = %d, want 1", len(result.HighConfidence))
	}
	if got := result.HighConfidence[0].Score; got < 0.99 {
		t.Fatalf("score = %v, want ~1.0", got)
	}
	if !strings.Contains(result.Warning, "FMS-FIX-20250308-0001") {
		t.Fatalf("warning does not name the existing ticket: %q", result.Warning)
	}
	if !strings.Contains(result.Warning, "awaiting review") {
		t.Fatalf("warning does not describe the existing status: %q", result.Warning)
	}
}

func TestCheckPluralWarning(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	seedOpenReport(repo, "FMS-FIX-20250308-0001", "light switch", "switch not working", 48*time.Hour)
	seedOpenReport(repo, "FMS-FIX-20250309-0002", "light switch", "switch not working", 24*time.Hour)

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if len(result.HighConfidence) != 2 {
		t.Fatalf("HighConfidence count = %d, want 2", len(result.HighConfidence))
	}
	if !strings.Contains(result.Warning, "2 similar reports") {
		t.Fatalf("plural warning wrong: %q", result.Warning)
	}
}

func TestCheckLowConfidenceDoesNotBlock(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	// Same equipment, unrelated problem: scores above the low threshold
	// through the 0.6 equipment weight but below the high one.
	seedOpenReport(repo, "FMS-FIX-20250308-0001", "light switch", "water leaking from ceiling pipe", 48*time.Hour)

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if result.Blocking() {
		t.Fatalf("low-confidence match blocked submission: %+v", result)
	}
	if len(result.LowConfidence) != 1 {
		t.Fatalf("LowConfidence count = %d, want 1 (high=%d)", len(result.LowConfidence), len(result.HighConfidence))
	}
	if result.Warning != "" {
		t.Fatalf("low-confidence match produced a blocking warning: %q", result.Warning)
	}
}

func TestCheckIgnoresResolvedAndStaleReports(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	resolved := seedOpenReport(repo, "FMS-FIX-20250301-0001", "light switch", "switch not working", 72*time.Hour)
	resolved.Status = domain.StatusClosed
	seedOpenReport(repo, "FMS-FIX-20250101-0002", "light switch", "switch not working", 45*24*time.Hour)

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if result.Blocking() {
		t.Fatalf("resolved or stale report blocked submission: %+v", result)
	}
}

func TestCheckDifferentRoomStillMatches(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	// An existing report with no room number matches any room in the block.
	repo.seed(domain.Report{
		TicketID:             "FMS-FIX-20250308-0001",
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", ""),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
		Status:               domain.StatusSubmitted,
		SubmittedBy:          "reporter-1",
		CreatedAt:            testNow.Add(-48 * time.Hour),
	})

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if !result.Blocking() {
		t.Fatalf("block-wide report without room number was not matched: %+v", result)
	}
}

func TestCheckDetectorFailureDegrades(t *testing.T) {
	t.Parallel()
	repo := newFakeReportRepo()
	repo.findErr = errors.New("connection refused")

	result := newDetector(repo).Check(context.Background(), DuplicateInput{
		Category:             domain.CategoryElectrical,
		Location:             specificLocation("block-5", "204"),
		EquipmentDescription: "light switch",
		ProblemDescription:   "switch not working",
	})

	if !result.DetectorDown {
		t.Fatal("DetectorDown = false, want true")
	}
	if result.Blocking() {
		t.Fatal("degraded detector must not block submission")
	}
}

func TestCombinedReportScore(t *testing.T) {
	t.Parallel()
	if got := CombinedReportScore("light switch", "light switch", "not working", "not working"); got != 1.0 {
		t.Fatalf("identical reports score = %v, want 1.0", got)
	}

	// Equipment similarity carries more weight than problem similarity.
	same, diff := "light switch", "water pump"
	probA, probB := "switch not working", "pump makes loud noise"
	equipmentHeavy := CombinedReportScore(same, same, probA, probB)
	problemHeavy := CombinedReportScore(same, diff, probA, probA)
	if equipmentHeavy <= problemHeavy {
		t.Fatalf("equipment match %v should outweigh problem match %v", equipmentHeavy, problemHeavy)
	}

	if a, b := CombinedReportScore("a b", "c d", "e f", "g h"), CombinedReportScore("c d", "a b", "g h", "e f"); a != b {
		t.Fatalf("score is not symmetric: %v vs %v", a, b)
	}
}
