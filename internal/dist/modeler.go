// Package dist builds and fits probability distributions for risk modeling.
// Construction is deterministic (given parameters in, validated distribution
// out); fitting is statistical estimation from a historical sample. Both
// guarantee the result is immediately sampleable and finite-valued.
package dist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
)

// ThreePointEstimate is the classic (optimistic, most likely, pessimistic)
// expert input.
type ThreePointEstimate struct {
	Optimistic  float64 `json:"optimistic"`
	MostLikely  float64 `json:"most_likely"`
	Pessimistic float64 `json:"pessimistic"`
}

// RiskData carries whichever raw inputs are available for a risk when a
// distribution has to be built.
type RiskData struct {
	HistoricalImpacts []float64           `json:"historical_impacts,omitempty"`
	ThreePoint        *ThreePointEstimate `json:"three_point_estimate,omitempty"`
}

// CreateTriangularFromThreePoint builds a triangular distribution from a
// three-point estimate. Ordering is checked before degeneracy: an estimate
// violating both reports the ordering error.
func CreateTriangularFromThreePoint(optimistic, mostLikely, pessimistic float64) (risk.TriangularDist, error) {
	if optimistic > mostLikely || mostLikely > pessimistic {
		return risk.TriangularDist{}, &risk.ValidationError{
			Field:      "three_point_estimate",
			Constraint: "ordering",
			Message:    fmt.Sprintf("three-point estimate must satisfy optimistic <= most_likely <= pessimistic, got (%g, %g, %g)", optimistic, mostLikely, pessimistic),
		}
	}
	if optimistic == pessimistic {
		return risk.TriangularDist{}, &risk.ValidationError{
			Field:      "three_point_estimate",
			Constraint: "degenerate",
			Message:    fmt.Sprintf("three-point estimate is degenerate: optimistic == pessimistic == %g", optimistic),
		}
	}
	d := risk.TriangularDist{Min: optimistic, Mode: mostLikely, Max: pessimistic}
	if err := d.Validate(); err != nil {
		return risk.TriangularDist{}, err
	}
	return d, nil
}

// ValidateThreePointEstimate runs the same checks as
// CreateTriangularFromThreePoint but collects every failure instead of
// returning on the first one. Intended for pre-checks where the caller
// wants the full error list.
func ValidateThreePointEstimate(optimistic, mostLikely, pessimistic float64) risk.ValidationResult {
	res := risk.NewValidationResult()
	for name, v := range map[string]float64{"optimistic": optimistic, "most_likely": mostLikely, "pessimistic": pessimistic} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res.Add(fmt.Sprintf("%s value must be finite, got %g", name, v))
		}
	}
	if optimistic > mostLikely {
		res.Add(fmt.Sprintf("optimistic (%g) must not exceed most_likely (%g)", optimistic, mostLikely))
	}
	if mostLikely > pessimistic {
		res.Add(fmt.Sprintf("most_likely (%g) must not exceed pessimistic (%g)", mostLikely, pessimistic))
	}
	if optimistic == pessimistic {
		res.Add(fmt.Sprintf("estimate is degenerate: optimistic == pessimistic == %g", optimistic))
	}
	return res
}

// CreateDistribution builds the requested distribution kind from whatever
// data the risk carries. Historical impacts take precedence over a
// three-point estimate when both are present.
func CreateDistribution(data RiskData, kind risk.DistributionKind) (risk.Distribution, error) {
	switch {
	case len(data.HistoricalImpacts) > 0:
		return createFromHistorical(data.HistoricalImpacts, kind)
	case data.ThreePoint != nil:
		return createFromThreePoint(*data.ThreePoint, kind)
	default:
		return nil, &risk.ValidationError{
			Field:      "risk_data",
			Constraint: "required",
			Message:    "distribution creation requires either historical_impacts or three_point_estimate",
		}
	}
}

func createFromThreePoint(tp ThreePointEstimate, kind risk.DistributionKind) (risk.Distribution, error) {
	o, m, p := tp.Optimistic, tp.MostLikely, tp.Pessimistic

	switch kind {
	case risk.Triangular:
		return CreateTriangularFromThreePoint(o, m, p)
	case risk.PERT:
		if _, err := CreateTriangularFromThreePoint(o, m, p); err != nil {
			return nil, err
		}
		return risk.PERTDist{Min: o, Mode: m, Max: p}, nil
	case risk.Uniform:
		d := risk.UniformDist{Min: o, Max: p}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	case risk.Normal:
		// PERT moment approximation of the expert estimate.
		mean := (o + 4*m + p) / 6
		std := (p - o) / 6
		d := risk.NormalDist{Mu: mean, Sigma: std}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	case risk.LogNormal:
		if o <= 0 || m <= 0 || p <= 0 {
			return nil, &risk.ValidationError{
				Field:      "three_point_estimate",
				Constraint: "positive",
				Message:    "lognormal distribution requires positive three-point estimates",
			}
		}
		mean := (o + 4*m + p) / 6
		std := (p - o) / 6
		if std <= 0 {
			return nil, &risk.ValidationError{
				Field:      "three_point_estimate",
				Constraint: "degenerate",
				Message:    fmt.Sprintf("three-point estimate is degenerate: optimistic == pessimistic == %g", o),
			}
		}
		mu, sigma := logNormalFromMoments(mean, std)
		d := risk.LogNormalDist{Mu: mu, Sigma: sigma}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil
	case risk.Beta:
		if _, err := CreateTriangularFromThreePoint(o, m, p); err != nil {
			return nil, err
		}
		a := 1 + 4*(m-o)/(p-o)
		b := 1 + 4*(p-m)/(p-o)
		return risk.BetaDist{Alpha: a, Beta: b, Min: o, Max: p}, nil
	default:
		return nil, &risk.ValidationError{Field: "distribution_type", Constraint: "enum", Message: "unknown distribution type: " + string(kind)}
	}
}

func createFromHistorical(values []float64, kind risk.DistributionKind) (risk.Distribution, error) {
	if len(values) < 2 {
		return nil, &risk.ValidationError{
			Field:      "historical_impacts",
			Constraint: "sample_size",
			Message:    fmt.Sprintf("distribution creation from historical data requires at least 2 values, got %d", len(values)),
		}
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &risk.ValidationError{
				Field:      "historical_impacts",
				Constraint: "finite",
				Message:    "historical data contains non-finite values (NaN/Inf)",
			}
		}
	}

	if kind == risk.LogNormal {
		for _, v := range values {
			if v <= 0 {
				return nil, &risk.ValidationError{
					Field:      "historical_impacts",
					Constraint: "positive",
					Message:    "lognormal distribution requires positive data",
				}
			}
		}
	}

	d, reason := estimate(kind, values)
	if d == nil {
		return nil, &risk.ValidationError{
			Field:      "historical_impacts",
			Constraint: "unsuitable",
			Message:    fmt.Sprintf("%s distribution cannot be built from the supplied data: %s", kind, reason),
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// logNormalFromMoments converts a real-space mean/std pair to log-space
// parameters by moment matching.
func logNormalFromMoments(mean, std float64) (mu, sigma float64) {
	cv2 := (std * std) / (mean * mean)
	sigma2 := math.Log(1 + cv2)
	return math.Log(mean) - sigma2/2, math.Sqrt(sigma2)
}

// ValidateParameters performs structural validation of a distribution,
// independent of any data.
func ValidateParameters(d risk.Distribution) risk.ValidationResult {
	res := risk.NewValidationResult()
	if d == nil {
		res.Add("distribution is nil")
		return res
	}
	if err := d.Validate(); err != nil {
		res.Add(err.Error())
	}
	return res
}

// summarize computes the basic moments used by the estimators and fit reports.
func summarize(values []float64) (mean, std, min, max float64) {
	mean = stat.Mean(values, nil)
	std = math.Sqrt(stat.PopVariance(values, nil))
	min, max = values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return mean, std, min, max
}
