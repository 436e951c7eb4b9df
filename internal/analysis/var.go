package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
	"risksim/internal/simulation"
)

// ValueAtRisk returns the outcome value below which the given confidence
// fraction of simulated outcomes fall. The result always lies within the
// observed data range and is non-decreasing in the confidence level.
func ValueAtRisk(results *simulation.Results, outcomeType OutcomeType, confidence float64) (float64, error) {
	data, err := outcomes(results, outcomeType)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to analyze"}
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, &risk.ValidationError{Field: "confidence", Constraint: "range", Message: fmt.Sprintf("confidence level must be in (0, 1), got %g", confidence)}
	}
	return quantile(sortedCopy(data), confidence), nil
}

// ConditionalValueAtRisk returns the expected outcome given that it exceeds
// the VaR threshold at the same confidence level. CVaR >= VaR by
// definition.
func ConditionalValueAtRisk(results *simulation.Results, outcomeType OutcomeType, confidence float64) (float64, error) {
	data, err := outcomes(results, outcomeType)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &risk.ValidationError{Field: "results", Constraint: "empty", Message: "no outcomes to analyze"}
	}
	if confidence <= 0 || confidence >= 1 {
		return 0, &risk.ValidationError{Field: "confidence", Constraint: "range", Message: fmt.Sprintf("confidence level must be in (0, 1), got %g", confidence)}
	}

	sorted := sortedCopy(data)
	threshold := quantile(sorted, confidence)

	var tail []float64
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] < threshold {
			break
		}
		tail = append(tail, sorted[i])
	}
	if len(tail) == 0 {
		return threshold, nil
	}
	return stat.Mean(tail, nil), nil
}
