package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

// ScenarioDelta is the structured difference between two simulation runs,
// typically a base model against a mitigation scenario.
type ScenarioDelta struct {
	OutcomeType         OutcomeType        `json:"outcome_type"`
	MeanShift           float64            `json:"mean_shift"`     // b - a
	MeanShiftPct        float64            `json:"mean_shift_pct"` // relative to a
	MedianShift         float64            `json:"median_shift"`
	StdDevShift         float64            `json:"std_dev_shift"`
	PercentileShifts    map[string]float64 `json:"percentile_shifts"`
	DistributionalShift float64            `json:"distributional_shift"` // two-sample KS statistic
	Improved            bool               `json:"improved"`             // true when b has the lower mean
}

// CompareScenarios computes a delta between two runs for one outcome
// dimension. Positive shifts mean scenario B produces larger outcomes.
func CompareScenarios(a, b *simulation.Results, outcomeType OutcomeType) (*ScenarioDelta, error) {
	dataA, err := outcomes(a, outcomeType)
	if err != nil {
		return nil, err
	}
	dataB, err := outcomes(b, outcomeType)
	if err != nil {
		return nil, err
	}
	if len(dataA) == 0 || len(dataB) == 0 {
		return nil, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to compare"}
	}

	sortedA := sortedCopy(dataA)
	sortedB := sortedCopy(dataB)

	meanA := stat.Mean(sortedA, nil)
	meanB := stat.Mean(sortedB, nil)

	delta := &ScenarioDelta{
		OutcomeType:         outcomeType,
		MeanShift:           meanB - meanA,
		MedianShift:         quantile(sortedB, 0.50) - quantile(sortedA, 0.50),
		StdDevShift:         stat.StdDev(sortedB, nil) - stat.StdDev(sortedA, nil),
		PercentileShifts:    make(map[string]float64, len(percentileLadder)),
		DistributionalShift: twoSampleKS(sortedA, sortedB),
		Improved:            meanB < meanA,
	}
	if math.Abs(meanA) > 1e-12 {
		delta.MeanShiftPct = (meanB - meanA) / math.Abs(meanA)
	}
	for _, entry := range percentileLadder {
		delta.PercentileShifts[entry.Name] = quantile(sortedB, entry.P) - quantile(sortedA, entry.P)
	}
	return delta, nil
}

// twoSampleKS computes the two-sample Kolmogorov-Smirnov statistic on
// pre-sorted samples.
func twoSampleKS(sortedA, sortedB []float64) float64 {
	merged := make([]float64, 0, len(sortedA)+len(sortedB))
	merged = append(merged, sortedA...)
	merged = append(merged, sortedB...)
	sort.Float64s(merged)

	ecdf := func(sorted []float64, x float64) float64 {
		// count of values <= x
		idx := sort.SearchFloat64s(sorted, x)
		for idx < len(sorted) && sorted[idx] == x {
			idx++
		}
		return float64(idx) / float64(len(sorted))
	}

	dMax := 0.0
	for _, x := range merged {
		d := math.Abs(ecdf(sortedA, x) - ecdf(sortedB, x))
		if d > dMax {
			dMax = d
		}
	}
	return dMax
}
