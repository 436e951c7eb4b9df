package analysis

import (
	"math/rand/v2"
	"testing"

	"risksim/internal/simulation"
)

// fakeResults builds a Results with the given cost stream; schedule is a
// scaled copy.
func fakeResults(costs []float64) *simulation.Results {
	schedules := make([]float64, len(costs))
	for i, c := range costs {
		schedules[i] = c / 1000
	}
	return &simulation.Results{
		SimulationID:     "test",
		IterationCount:   len(costs),
		CostOutcomes:     costs,
		ScheduleOutcomes: schedules,
		RiskContributions: map[string][]float64{
			"whole": costs,
		},
	}
}

func normalCosts(n int, mu, sigma float64, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, 0))
	out := make([]float64, n)
	for i := range out {
		out[i] = mu + sigma*rng.NormFloat64()
	}
	return out
}

func TestCalculatePercentiles_Ordering(t *testing.T) {
	results := fakeResults(normalCosts(10000, 100000, 25000, 1))
	summary, err := CalculatePercentiles(results, OutcomeCost)
	if err != nil {
		t.Fatalf("Expected percentiles to compute, got %v", err)
	}

	ladder := []string{"p10", "p25", "p50", "p75", "p90", "p95", "p99"}
	for i := 1; i < len(ladder); i++ {
		lo, hi := summary.Percentiles[ladder[i-1]], summary.Percentiles[ladder[i]]
		if lo > hi {
			t.Errorf("Percentile ladder not monotone: %s=%f > %s=%f", ladder[i-1], lo, ladder[i], hi)
		}
	}
	if summary.Mean < 95000 || summary.Mean > 105000 {
		t.Errorf("Expected mean near 100000, got %f", summary.Mean)
	}
	if summary.CoefficientOfVariation <= 0 {
		t.Errorf("Expected positive CV, got %f", summary.CoefficientOfVariation)
	}
}

func TestCalculatePercentiles_InputChecks(t *testing.T) {
	if _, err := CalculatePercentiles(nil, OutcomeCost); err == nil {
		t.Errorf("Expected error for nil results")
	}
	if _, err := CalculatePercentiles(fakeResults(nil), OutcomeCost); err == nil {
		t.Errorf("Expected error for empty outcomes")
	}
	if _, err := CalculatePercentiles(fakeResults([]float64{1}), "vibes"); err == nil {
		t.Errorf("Expected error for unknown outcome type")
	}
}

func TestGenerateConfidenceIntervals_Nested(t *testing.T) {
	results := fakeResults(normalCosts(10000, 0, 1, 2))
	intervals, err := GenerateConfidenceIntervals(results, OutcomeCost, []float64{0.80, 0.90, 0.95})
	if err != nil {
		t.Fatalf("Expected intervals to compute, got %v", err)
	}
	if len(intervals) != 3 {
		t.Fatalf("Expected 3 intervals, got %d", len(intervals))
	}
	for i := 1; i < len(intervals); i++ {
		inner, outer := intervals[i-1], intervals[i]
		if outer.Lower > inner.Lower || outer.Upper < inner.Upper {
			t.Errorf("Interval at %.2f does not contain the %.2f interval", outer.Level, inner.Level)
		}
	}
	for _, iv := range intervals {
		if iv.Lower >= iv.Upper {
			t.Errorf("Interval at %.2f violates Lower < Upper: [%f, %f]", iv.Level, iv.Lower, iv.Upper)
		}
	}
}

func TestGenerateConfidenceIntervals_DegenerateSample(t *testing.T) {
	constant := make([]float64, 100)
	for i := range constant {
		constant[i] = 42
	}
	intervals, err := GenerateConfidenceIntervals(fakeResults(constant), OutcomeCost, []float64{0.90})
	if err != nil {
		t.Fatalf("Expected degenerate sample to be handled, got %v", err)
	}
	if intervals[0].Lower >= intervals[0].Upper {
		t.Errorf("Expected strict Lower < Upper even for constant data: [%f, %f]", intervals[0].Lower, intervals[0].Upper)
	}
}

func TestGenerateConfidenceIntervals_BadLevel(t *testing.T) {
	results := fakeResults(normalCosts(100, 0, 1, 3))
	if _, err := GenerateConfidenceIntervals(results, OutcomeCost, []float64{1.2}); err == nil {
		t.Errorf("Expected error for level outside (0, 1)")
	}
	if _, err := GenerateConfidenceIntervals(results, OutcomeCost, []float64{0}); err == nil {
		t.Errorf("Expected error for level 0")
	}
}
