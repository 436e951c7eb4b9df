package simulation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"risksim/internal/risk"
)

func syntheticHistory(n int) []risk.ProjectOutcome {
	impacts := []float64{42000, 55000, 48000, 61000, 45000, 52000, 58000, 47000, 50000, 44000, 59000, 53000}
	outcomes := make([]risk.ProjectOutcome, n)
	for i := 0; i < n; i++ {
		impact := impacts[i%len(impacts)]
		outcomes[i] = risk.ProjectOutcome{
			ProjectID:   fmt.Sprintf("proj-%02d", i),
			ProjectType: "construction",
			CompletedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0),
			TotalCost:   impact,
			RiskOutcomes: []risk.RiskOutcome{
				{
					RiskID:       fmt.Sprintf("tech-%02d", i),
					Category:     risk.CategoryTechnical,
					Occurred:     true,
					ActualImpact: impact,
					ImpactType:   risk.ImpactCost,
				},
			},
		}
	}
	return outcomes
}

func TestWalkForward_Execute(t *testing.T) {
	wf := NewWalkForwardEngine(NewEngine(), syntheticHistory(10))
	result, err := wf.Execute(context.Background(), WalkForwardConfig{
		ProjectType:      "construction",
		MinTrainProjects: 5,
		Seed:             11,
	})
	if err != nil {
		t.Fatalf("Expected walk-forward to succeed, got %v", err)
	}

	if len(result.Checkpoints) == 0 {
		t.Fatalf("Expected at least one checkpoint: %s", result.ValidationMessage)
	}
	for _, cp := range result.Checkpoints {
		if cp.PredictedP50 > cp.PredictedP85 || cp.PredictedP85 > cp.PredictedP95 {
			t.Errorf("Checkpoint %s has a misordered forecast cone: %f / %f / %f", cp.ProjectID, cp.PredictedP50, cp.PredictedP85, cp.PredictedP95)
		}
		if cp.ActualImpact <= 0 {
			t.Errorf("Checkpoint %s has no actual impact", cp.ProjectID)
		}
	}
	if result.AccuracyScore < 0 || result.AccuracyScore > 1 {
		t.Errorf("Accuracy score outside [0,1]: %f", result.AccuracyScore)
	}
	if result.ValidationMessage == "" {
		t.Errorf("Expected a validation message")
	}
}

func TestWalkForward_InsufficientHistory(t *testing.T) {
	wf := NewWalkForwardEngine(NewEngine(), syntheticHistory(3))
	result, err := wf.Execute(context.Background(), WalkForwardConfig{
		ProjectType:      "construction",
		MinTrainProjects: 5,
	})
	if err != nil {
		t.Fatalf("Expected graceful handling, got %v", err)
	}
	if len(result.Checkpoints) != 0 {
		t.Errorf("Expected no checkpoints with 3 projects")
	}
	if result.ValidationMessage == "" {
		t.Errorf("Expected an explanatory message")
	}
}

func TestLogNormalFromMoments_MatchesMean(t *testing.T) {
	d := logNormalFromMoments(50000, 1e8)
	if got := d.Mean(); got < 49000 || got > 51000 {
		t.Errorf("Expected moment-matched mean near 50000, got %f", got)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Expected valid lognormal, got %v", err)
	}
}
