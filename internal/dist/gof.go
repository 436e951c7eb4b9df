package dist

import (
	"fmt"
	"math"

	"risksim/internal/risk"
)

// FitAssessment is the qualitative verdict of a goodness-of-fit test.
type FitAssessment string

const (
	GoodFit     FitAssessment = "GOOD_FIT"
	MarginalFit FitAssessment = "MARGINAL_FIT"
	PoorFit     FitAssessment = "POOR_FIT"
)

// significance level for the KS rejection decision.
const gofAlpha = 0.05

// GoodnessOfFit reports how well a distribution matches a sample.
type GoodnessOfFit struct {
	Statistic      float64       `json:"ks_statistic"`
	PValue         float64       `json:"p_value"`
	Significant    bool          `json:"significant"` // true when the fit is rejected at alpha=0.05
	Assessment     FitAssessment `json:"assessment"`
	Recommendation string        `json:"recommendation"`
}

// PerformGoodnessOfFitTest runs a one-sample KS test of data against d and
// turns the result into a qualitative assessment.
func PerformGoodnessOfFitTest(data []float64, d risk.Distribution) (*GoodnessOfFit, error) {
	if len(data) < 3 {
		return nil, &risk.ValidationError{
			Field:      "data",
			Constraint: "sample_size",
			Message:    fmt.Sprintf("goodness-of-fit testing requires at least 3 data points, got %d", len(data)),
		}
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &risk.ValidationError{
				Field:      "data",
				Constraint: "finite",
				Message:    "data contains non-finite values (NaN/Inf)",
			}
		}
	}
	if d == nil {
		return nil, &risk.ValidationError{Field: "distribution", Constraint: "required", Message: "distribution is nil"}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	ks := kolmogorovSmirnov(data, d)
	gof := &GoodnessOfFit{
		Statistic:   ks.Statistic,
		PValue:      ks.PValue,
		Significant: ks.PValue < gofAlpha,
	}

	switch {
	case ks.PValue >= 0.10:
		gof.Assessment = GoodFit
		gof.Recommendation = fmt.Sprintf("The %s distribution is consistent with the observed data (KS p=%.3f); safe to use for simulation.", d.Kind(), ks.PValue)
	case ks.PValue >= gofAlpha:
		gof.Assessment = MarginalFit
		gof.Recommendation = fmt.Sprintf("The %s distribution is a marginal fit (KS p=%.3f); consider comparing alternative families before relying on tail percentiles.", d.Kind(), ks.PValue)
	default:
		gof.Assessment = PoorFit
		gof.Recommendation = fmt.Sprintf("The %s distribution is rejected at the %.0f%% level (KS p=%.3f); refit with a different family or gather more data.", d.Kind(), gofAlpha*100, ks.PValue)
	}
	return gof, nil
}
