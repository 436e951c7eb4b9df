// Package analysis derives reporting statistics from raw simulation
// results: percentile ladders, confidence intervals, VaR/CVaR, risk
// contribution rankings, scenario deltas and schedule compliance.
// Everything returned is plain structured data, directly serializable by
// any calling layer.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

// OutcomeType selects which outcome array an analysis reads.
type OutcomeType string

const (
	OutcomeCost     OutcomeType = "cost"
	OutcomeSchedule OutcomeType = "schedule"
)

// percentileLadder is the fixed reporting ladder.
var percentileLadder = []struct {
	Name string
	P    float64
}{
	{"p10", 0.10},
	{"p25", 0.25},
	{"p50", 0.50},
	{"p75", 0.75},
	{"p90", 0.90},
	{"p95", 0.95},
	{"p99", 0.99},
}

// PercentileSummary holds the moments and the fixed percentile ladder for
// one outcome dimension. The ladder is non-decreasing by construction.
type PercentileSummary struct {
	OutcomeType            OutcomeType        `json:"outcome_type"`
	Mean                   float64            `json:"mean"`
	Median                 float64            `json:"median"`
	StdDev                 float64            `json:"std_dev"`
	CoefficientOfVariation float64            `json:"coefficient_of_variation"`
	Percentiles            map[string]float64 `json:"percentiles"`
}

// outcomes extracts the requested outcome array.
func outcomes(results *simulation.Results, outcomeType OutcomeType) ([]float64, error) {
	if results == nil {
		return nil, &risk.ValidationError{Field: "results", Constraint: "required", Message: "simulation results are nil"}
	}
	switch outcomeType {
	case OutcomeCost:
		return results.CostOutcomes, nil
	case OutcomeSchedule:
		return results.ScheduleOutcomes, nil
	default:
		return nil, &risk.ValidationError{Field: "outcome_type", Constraint: "enum", Message: "unknown outcome type: " + string(outcomeType)}
	}
}

// sortedCopy returns data sorted ascending without mutating the original.
func sortedCopy(data []float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	sort.Float64s(out)
	return out
}

// quantile reads an empirical quantile from pre-sorted data.
func quantile(sorted []float64, p float64) float64 {
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// CalculatePercentiles computes the summary statistics and the percentile
// ladder for one outcome dimension.
func CalculatePercentiles(results *simulation.Results, outcomeType OutcomeType) (*PercentileSummary, error) {
	data, err := outcomes(results, outcomeType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to analyze"}
	}

	sorted := sortedCopy(data)
	mean := stat.Mean(sorted, nil)
	std := stat.StdDev(sorted, nil)

	cv := 0.0
	if math.Abs(mean) > 1e-12 {
		cv = std / math.Abs(mean)
	}

	summary := &PercentileSummary{
		OutcomeType:            outcomeType,
		Mean:                   mean,
		Median:                 quantile(sorted, 0.50),
		StdDev:                 std,
		CoefficientOfVariation: cv,
		Percentiles:            make(map[string]float64, len(percentileLadder)),
	}
	for _, entry := range percentileLadder {
		summary.Percentiles[entry.Name] = quantile(sorted, entry.P)
	}
	return summary, nil
}

// ConfidenceInterval is a single two-sided interval.
type ConfidenceInterval struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// GenerateConfidenceIntervals computes equal-tailed intervals for the given
// levels. Intervals are nested: a higher level always contains a lower one,
// and Lower < Upper always holds.
func GenerateConfidenceIntervals(results *simulation.Results, outcomeType OutcomeType, levels []float64) ([]ConfidenceInterval, error) {
	data, err := outcomes(results, outcomeType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to analyze"}
	}
	for _, level := range levels {
		if level <= 0 || level >= 1 {
			return nil, &risk.ValidationError{Field: "confidence_levels", Constraint: "range", Message: fmt.Sprintf("confidence level must be in (0, 1), got %g", level)}
		}
	}

	sorted := sortedCopy(data)
	intervals := make([]ConfidenceInterval, 0, len(levels))
	for _, level := range levels {
		tail := (1 - level) / 2
		lower := quantile(sorted, tail)
		upper := quantile(sorted, 1-tail)
		if upper <= lower {
			// Degenerate sample; keep the strict ordering contract.
			upper = lower + math.Max(math.Abs(lower)*1e-12, 1e-12)
		}
		intervals = append(intervals, ConfidenceInterval{Level: level, Lower: lower, Upper: upper})
	}
	return intervals, nil
}
