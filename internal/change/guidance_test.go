package change

import (
	"strings"
	"testing"

	"risksim/internal/risk"
)

func TestHighlightValidationAreas_Empty(t *testing.T) {
	d := NewDetector(0.10)
	if areas := d.HighlightValidationAreas(nil); areas != nil {
		t.Errorf("Expected nil guidance for a nil report, got %d areas", len(areas))
	}
	report := d.Detect(snapshot(), snapshot())
	if areas := d.HighlightValidationAreas(report); areas != nil {
		t.Errorf("Expected nil guidance for an empty report, got %d areas", len(areas))
	}
}

func TestHighlightValidationAreas_Grouping(t *testing.T) {
	d := NewDetector(0.10)
	current := snapshot()
	current[0].BaselineImpact = 90000 // low severity
	current[1].Distribution = risk.LogNormalDist{Mu: 10.8, Sigma: 0.4}

	report := d.Detect(current, snapshot())
	areas := d.HighlightValidationAreas(report)
	if len(areas) != 2 {
		t.Fatalf("Expected 2 validation areas, got %d", len(areas))
	}

	// The critical family change outranks the low baseline change.
	if areas[0].Priority != PriorityHigh {
		t.Errorf("Expected first area priority %s, got %s", PriorityHigh, areas[0].Priority)
	}
	if !strings.Contains(areas[0].Area, "Distribution parameters") {
		t.Errorf("Expected distribution area first, got %q", areas[0].Area)
	}
	if areas[1].Priority != PriorityLow {
		t.Errorf("Expected second area priority %s, got %s", PriorityLow, areas[1].Priority)
	}

	for _, area := range areas {
		if len(area.RecommendedActions) == 0 {
			t.Errorf("Expected recommended actions for area %q", area.Area)
		}
		if len(area.ValidationMethods) == 0 {
			t.Errorf("Expected validation methods for area %q", area.Area)
		}
		if len(area.RelatedRisks) == 0 {
			t.Errorf("Expected related risks for area %q", area.Area)
		}
	}
}

func TestHighlightValidationAreas_WorstSeverityWins(t *testing.T) {
	d := NewDetector(0.10)
	current := snapshot()
	current[0].BaselineImpact = 90000  // 20%, low
	current[1].BaselineImpact = 100000 // 100%, critical

	report := d.Detect(current, snapshot())
	areas := d.HighlightValidationAreas(report)
	if len(areas) != 1 {
		t.Fatalf("Expected 1 validation area, got %d", len(areas))
	}
	if areas[0].Priority != PriorityHigh {
		t.Errorf("Expected the critical record to lift priority to %s, got %s", PriorityHigh, areas[0].Priority)
	}
	if len(areas[0].RelatedRisks) != 2 {
		t.Errorf("Expected both risks listed, got %v", areas[0].RelatedRisks)
	}
	if areas[0].RelatedRisks[0] != "foundation" || areas[0].RelatedRisks[1] != "steel" {
		t.Errorf("Expected related risks sorted, got %v", areas[0].RelatedRisks)
	}
}

func TestHighlightValidationAreas_AddedRemoved(t *testing.T) {
	d := NewDetector(0.10)
	report := d.Detect(snapshot()[:1], snapshot())
	areas := d.HighlightValidationAreas(report)
	if len(areas) != 1 {
		t.Fatalf("Expected 1 validation area, got %d", len(areas))
	}
	if !strings.Contains(areas[0].Area, "Removed risks") {
		t.Errorf("Expected a removed-risks area, got %q", areas[0].Area)
	}
	if areas[0].Priority != PriorityHigh {
		t.Errorf("Expected removal priority %s, got %s", PriorityHigh, areas[0].Priority)
	}
}
