package analysis

import (
	"context"
	"testing"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

func TestIdentifyTopRiskContributors_RanksByVariance(t *testing.T) {
	risks := []risk.Risk{
		{ID: "big", Name: "Big", Category: risk.CategoryFinancial, ImpactType: risk.ImpactCost, Distribution: risk.NormalDist{Mu: 100, Sigma: 50}, BaselineImpact: 100},
		{ID: "small", Name: "Small", Category: risk.CategoryFinancial, ImpactType: risk.ImpactCost, Distribution: risk.NormalDist{Mu: 100, Sigma: 5}, BaselineImpact: 100},
	}
	engine := simulation.NewEngine()
	results, err := engine.Run(context.Background(), risks, simulation.Options{Iterations: 20000, Seed: 8})
	if err != nil {
		t.Fatal(err)
	}

	report, err := IdentifyTopRiskContributors(results, OutcomeCost, 2)
	if err != nil {
		t.Fatalf("Expected contributors to compute, got %v", err)
	}
	if len(report.Contributors) != 2 {
		t.Fatalf("Expected 2 contributors, got %d", len(report.Contributors))
	}
	if report.Contributors[0].RiskID != "big" {
		t.Errorf("Expected the high-variance risk ranked first, got %s", report.Contributors[0].RiskID)
	}
	if report.Contributors[0].Rank != 1 || report.Contributors[1].Rank != 2 {
		t.Errorf("Ranks not assigned sequentially: %+v", report.Contributors)
	}
	if report.Contributors[0].VarianceShare <= report.Contributors[1].VarianceShare {
		t.Errorf("Shares not descending: %+v", report.Contributors)
	}
	// For independent additive risks the explained share should be close
	// to 1.
	if report.ExplainedShare < 0.7 || report.ExplainedShare > 1.1 {
		t.Errorf("Expected explained share near 1, got %f", report.ExplainedShare)
	}
}

func TestIdentifyTopRiskContributors_CorrelatedModel(t *testing.T) {
	risks := []risk.Risk{
		{ID: "foundation", Name: "Foundation problems", Category: risk.CategoryTechnical, ImpactType: risk.ImpactCost, Distribution: risk.TriangularDist{Min: 25000, Mode: 75000, Max: 150000}, BaselineImpact: 75000},
		{ID: "steel", Name: "Steel price volatility", Category: risk.CategoryFinancial, ImpactType: risk.ImpactCost, Distribution: risk.NormalDist{Mu: 50000, Sigma: 20000}, BaselineImpact: 50000},
		{ID: "weather", Name: "Weather delays", Category: risk.CategoryExternal, ImpactType: risk.ImpactSchedule, Distribution: risk.LogNormalDist{Mu: 2.5, Sigma: 0.8}, BaselineImpact: 12},
	}
	m := risk.NewCorrelationMatrix([]string{"foundation", "steel", "weather"})
	if err := m.Set("foundation", "steel", 0.6); err != nil {
		t.Fatal(err)
	}

	engine := simulation.NewEngine()
	results, err := engine.Run(context.Background(), risks, simulation.Options{
		Iterations:   simulation.MinIterations,
		Correlations: m,
		Seed:         42,
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := IdentifyTopRiskContributors(results, OutcomeCost, 2)
	if err != nil {
		t.Fatalf("Expected contributors to compute, got %v", err)
	}
	if len(report.Contributors) != 2 {
		t.Fatalf("Expected 2 contributors, got %d", len(report.Contributors))
	}
	// Foundation carries the larger marginal variance; both cost risks
	// outrank the schedule-only weather risk.
	if report.Contributors[0].RiskID != "foundation" {
		t.Errorf("Expected foundation ranked first, got %s", report.Contributors[0].RiskID)
	}
	if report.Contributors[1].RiskID != "steel" {
		t.Errorf("Expected steel ranked second, got %s", report.Contributors[1].RiskID)
	}
	for _, c := range report.Contributors {
		if c.VarianceShare <= 0 {
			t.Errorf("Expected a positive variance share for %s, got %f", c.RiskID, c.VarianceShare)
		}
	}
}

func TestIdentifyTopRiskContributors_TopNTruncation(t *testing.T) {
	results := fakeResults(normalCosts(5000, 10, 2, 6))
	report, err := IdentifyTopRiskContributors(results, OutcomeCost, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Contributors) != 1 {
		t.Errorf("Expected truncation to 1 contributor, got %d", len(report.Contributors))
	}

	if _, err := IdentifyTopRiskContributors(results, OutcomeCost, 0); err == nil {
		t.Errorf("Expected error for top_n = 0")
	}
}

func TestIdentifyTopRiskContributors_ZeroVariance(t *testing.T) {
	constant := make([]float64, 100)
	for i := range constant {
		constant[i] = 7
	}
	report, err := IdentifyTopRiskContributors(fakeResults(constant), OutcomeCost, 3)
	if err != nil {
		t.Fatalf("Expected degenerate run to be handled, got %v", err)
	}
	if len(report.Contributors) != 0 {
		t.Errorf("Expected no contributors for zero-variance outcome")
	}
}
