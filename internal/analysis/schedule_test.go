package analysis

import (
	"testing"
	"time"
)

func TestCalculateScheduleCompliance_Basics(t *testing.T) {
	// Delays between 0 and 40 days on a 100-day plan with a 120-day target.
	delays := make([]float64, 1000)
	for i := range delays {
		delays[i] = float64(i % 41) // 0..40 repeating
	}
	results := fakeResults(nil)
	results.ScheduleOutcomes = delays
	results.CostOutcomes = delays

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	req := ScheduleRequest{
		ProjectStart:        start,
		TargetDate:          start.AddDate(0, 0, 120),
		PlannedDurationDays: 100,
		ConfidenceLevels:    []float64{0.80},
	}

	report, err := CalculateScheduleCompliance(results, req)
	if err != nil {
		t.Fatalf("Expected compliance to compute, got %v", err)
	}

	// Delays of at most 20 days fit into the 20-day slack; 21 of 41
	// distinct delay values qualify.
	if report.CompletionProbability < 0.45 || report.CompletionProbability > 0.58 {
		t.Errorf("Expected completion probability near 0.51, got %f", report.CompletionProbability)
	}
	if report.ScheduleAtRisk != 1-report.CompletionProbability {
		t.Errorf("Expected at-risk to complement completion probability")
	}
	if !report.ExpectedCompletion.After(start) {
		t.Errorf("Expected completion after the project start")
	}
	if len(report.DateRanges) != 1 {
		t.Fatalf("Expected one date range, got %d", len(report.DateRanges))
	}
	if !report.DateRanges[0].Earliest.Before(report.DateRanges[0].Latest) {
		t.Errorf("Expected earliest before latest in the date range")
	}
}

func TestCalculateScheduleCompliance_MilestonesMonotone(t *testing.T) {
	delays := make([]float64, 1000)
	for i := range delays {
		delays[i] = float64(i % 30)
	}
	results := fakeResults(nil)
	results.ScheduleOutcomes = delays
	results.CostOutcomes = delays

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	req := ScheduleRequest{
		ProjectStart:        start,
		TargetDate:          start.AddDate(0, 0, 120),
		PlannedDurationDays: 100,
		Milestones: map[string]time.Time{
			"design":   start.AddDate(0, 0, 30),
			"build":    start.AddDate(0, 0, 70),
			"handover": start.AddDate(0, 0, 110),
		},
	}

	report, err := CalculateScheduleCompliance(results, req)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Milestones) != 3 {
		t.Fatalf("Expected 3 milestones, got %d", len(report.Milestones))
	}
	// Milestones are sorted by date; probabilities never increase as the
	// milestone moves later into the schedule.
	for i := 1; i < len(report.Milestones); i++ {
		prev, cur := report.Milestones[i-1], report.Milestones[i]
		if !prev.Date.Before(cur.Date) {
			t.Errorf("Milestones not sorted by date")
		}
		if cur.Probability > prev.Probability {
			t.Errorf("Milestone %s probability %f exceeds earlier %s probability %f", cur.Name, cur.Probability, prev.Name, prev.Probability)
		}
	}
}

func TestCalculateScheduleCompliance_TargetMonotone(t *testing.T) {
	delays := make([]float64, 1000)
	for i := range delays {
		delays[i] = float64(i % 41)
	}
	results := fakeResults(nil)
	results.ScheduleOutcomes = delays
	results.CostOutcomes = delays

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	compliance := func(targetDays int) *ScheduleCompliance {
		report, err := CalculateScheduleCompliance(results, ScheduleRequest{
			ProjectStart:        start,
			TargetDate:          start.AddDate(0, 0, targetDays),
			PlannedDurationDays: 100,
		})
		if err != nil {
			t.Fatalf("Expected compliance for a %d-day target, got %v", targetDays, err)
		}
		return report
	}

	// A later target can only be easier to hit.
	prev := compliance(105)
	for _, targetDays := range []int{115, 125, 145} {
		cur := compliance(targetDays)
		if cur.CompletionProbability < prev.CompletionProbability {
			t.Errorf("Completion probability dropped from %f to %f as the target moved to day %d",
				prev.CompletionProbability, cur.CompletionProbability, targetDays)
		}
		if cur.ScheduleAtRisk > prev.ScheduleAtRisk {
			t.Errorf("At-risk probability rose from %f to %f as the target moved to day %d",
				prev.ScheduleAtRisk, cur.ScheduleAtRisk, targetDays)
		}
		prev = cur
	}

	// The extremes pin the range: no slack vs slack beyond the worst delay.
	if tight := compliance(100); tight.CompletionProbability > 0.05 {
		t.Errorf("Expected near-zero completion probability with no slack, got %f", tight.CompletionProbability)
	}
	if loose := compliance(145); loose.CompletionProbability != 1 {
		t.Errorf("Expected certain completion with slack beyond the worst delay, got %f", loose.CompletionProbability)
	}
}

func TestCalculateScheduleCompliance_InputChecks(t *testing.T) {
	results := fakeResults(nil)
	results.ScheduleOutcomes = []float64{1, 2, 3}
	results.CostOutcomes = []float64{1, 2, 3}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := CalculateScheduleCompliance(results, ScheduleRequest{TargetDate: start}); err == nil {
		t.Errorf("Expected error for missing project start")
	}
	if _, err := CalculateScheduleCompliance(results, ScheduleRequest{ProjectStart: start, TargetDate: start}); err == nil {
		t.Errorf("Expected error for target not after start")
	}
	if _, err := CalculateScheduleCompliance(results, ScheduleRequest{
		ProjectStart:     start,
		TargetDate:       start.AddDate(0, 0, 10),
		ConfidenceLevels: []float64{2},
	}); err == nil {
		t.Errorf("Expected error for invalid confidence level")
	}
}
