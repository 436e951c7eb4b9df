package dist

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"risksim/internal/risk"
)

// CandidateFit records the outcome of fitting a single distribution family,
// successful or not. Unsuitable families (say, lognormal on data containing
// zeros) are recorded here instead of failing the whole fitting call.
type CandidateFit struct {
	Kind          risk.DistributionKind `json:"kind"`
	Succeeded     bool                  `json:"succeeded"`
	FailureReason string                `json:"failure_reason,omitempty"`
	AIC           float64               `json:"aic,omitempty"`
	LogLikelihood float64               `json:"log_likelihood,omitempty"`
	KSStatistic   float64               `json:"ks_statistic,omitempty"`
	KSPValue      float64               `json:"ks_p_value,omitempty"`
	Params        map[string]float64    `json:"params,omitempty"`
}

// DataSummary describes the sample a fit was computed from.
type DataSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// FitResult is the outcome of fitting one or more candidate families to a
// historical sample, ranked by AIC.
type FitResult struct {
	Best          risk.Distribution     `json:"-"`
	BestKind      risk.DistributionKind `json:"best_kind"`
	AIC           float64               `json:"aic"`
	LogLikelihood float64               `json:"log_likelihood"`
	KSStatistic   float64               `json:"ks_statistic"`
	KSPValue      float64               `json:"ks_p_value"`
	DataSummary   DataSummary           `json:"data_summary"`
	AllFits       []CandidateFit        `json:"all_fits"`
}

// paramCount is the k in AIC = 2k - 2 ln L.
func paramCount(kind risk.DistributionKind) int {
	switch kind {
	case risk.Triangular, risk.PERT:
		return 3
	case risk.Beta:
		return 4 // alpha, beta plus the fitted range
	default:
		return 2
	}
}

// FitFromHistorical fits candidate distribution families to a sample using
// closed-form maximum-likelihood or moment estimators, scores each by AIC
// and returns the best fit. A nil candidate list tries every family.
func FitFromHistorical(data []float64, candidates []risk.DistributionKind) (*FitResult, error) {
	if len(data) < 3 {
		return nil, &risk.ValidationError{
			Field:      "data",
			Constraint: "sample_size",
			Message:    fmt.Sprintf("distribution fitting requires at least 3 data points, got %d", len(data)),
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
	if candidates == nil {
		candidates = risk.DistributionKinds()
	}

	mean, std, lo, hi := summarize(data)
	result := &FitResult{
		DataSummary: DataSummary{Count: len(data), Mean: mean, Std: std, Min: lo, Max: hi},
		AIC:         math.Inf(1),
	}

	for _, kind := range candidates {
		fit := CandidateFit{Kind: kind}

		d, reason := estimate(kind, data)
		if d == nil {
			fit.FailureReason = reason
			result.AllFits = append(result.AllFits, fit)
			continue
		}
		if err := d.Validate(); err != nil {
			fit.FailureReason = err.Error()
			result.AllFits = append(result.AllFits, fit)
			continue
		}

		logLik := 0.0
		for _, v := range data {
			lp := d.LogProb(v)
			if math.IsNaN(lp) || math.IsInf(lp, 1) {
				lp = math.Inf(-1)
			}
			logLik += lp
		}
		if math.IsInf(logLik, -1) {
			fit.FailureReason = "data falls outside the fitted support"
			result.AllFits = append(result.AllFits, fit)
			continue
		}

		ks := kolmogorovSmirnov(data, d)

		fit.Succeeded = true
		fit.LogLikelihood = logLik
		fit.AIC = 2*float64(paramCount(kind)) - 2*logLik
		fit.KSStatistic = ks.Statistic
		fit.KSPValue = ks.PValue
		fit.Params = d.Params()
		result.AllFits = append(result.AllFits, fit)

		if fit.AIC < result.AIC {
			result.Best = d
			result.BestKind = kind
			result.AIC = fit.AIC
			result.LogLikelihood = logLik
			result.KSStatistic = ks.Statistic
			result.KSPValue = ks.PValue
		}
	}

	if result.Best == nil {
		return nil, fmt.Errorf("no candidate distribution could be fitted to the data")
	}
	return result, nil
}

// estimate produces a distribution of the given family from the sample, or
// nil plus a reason when the family is unsuitable for this data.
func estimate(kind risk.DistributionKind, data []float64) (risk.Distribution, string) {
	mean, std, lo, hi := summarize(data)
	if lo == hi {
		return nil, "data has zero variance"
	}

	switch kind {
	case risk.Normal:
		return risk.NormalDist{Mu: mean, Sigma: std}, ""

	case risk.LogNormal:
		logs := make([]float64, len(data))
		for i, v := range data {
			if v <= 0 {
				return nil, "lognormal distribution requires positive data"
			}
			logs[i] = math.Log(v)
		}
		mu := stat.Mean(logs, nil)
		sigma := math.Sqrt(stat.PopVariance(logs, nil))
		if sigma <= 0 {
			return nil, "log-space variance is zero"
		}
		return risk.LogNormalDist{Mu: mu, Sigma: sigma}, ""

	case risk.Uniform:
		return risk.UniformDist{Min: lo, Max: hi}, ""

	case risk.Triangular:
		mode := 3*mean - lo - hi
		if mode < lo {
			mode = lo
		}
		if mode > hi {
			mode = hi
		}
		return risk.TriangularDist{Min: lo, Mode: mode, Max: hi}, ""

	case risk.PERT:
		mode := (6*mean - lo - hi) / 4
		if mode < lo {
			mode = lo
		}
		if mode > hi {
			mode = hi
		}
		return risk.PERTDist{Min: lo, Mode: mode, Max: hi}, ""

	case risk.Beta:
		// Extend the observed range slightly so no observation sits exactly
		// on an endpoint with zero density.
		span := hi - lo
		blo := lo - 0.001*span
		bhi := hi + 0.001*span
		width := bhi - blo

		m := (mean - blo) / width
		v := (std * std) / (width * width)
		if v <= 0 || v >= m*(1-m) {
			return nil, "sample variance too large for a beta distribution"
		}
		common := m*(1-m)/v - 1
		return risk.BetaDist{Alpha: m * common, Beta: (1 - m) * common, Min: blo, Max: bhi}, ""

	default:
		return nil, "unknown distribution type: " + string(kind)
	}
}

// KSResult holds a one-sample Kolmogorov-Smirnov comparison of a sample
// against a fitted distribution.
type KSResult struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// kolmogorovSmirnov computes the one-sample KS statistic against the
// distribution's CDF with the asymptotic p-value approximation.
func kolmogorovSmirnov(data []float64, d risk.Distribution) KSResult {
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	dMax := 0.0
	for i, x := range sorted {
		cdf := d.CDF(x)
		upper := math.Abs(float64(i+1)/n - cdf)
		lower := math.Abs(cdf - float64(i)/n)
		if upper > dMax {
			dMax = upper
		}
		if lower > dMax {
			dMax = lower
		}
	}

	return KSResult{Statistic: dMax, PValue: ksPValue(dMax, len(sorted))}
}

// ksPValue uses the Marsaglia-style asymptotic series for the Kolmogorov
// distribution.
func ksPValue(d float64, n int) float64 {
	if d <= 0 {
		return 1
	}
	sqrtN := math.Sqrt(float64(n))
	lambda := (sqrtN + 0.12 + 0.11/sqrtN) * d

	sum := 0.0
	for k := 1; k <= 100; k++ {
		term := 2 * math.Pow(-1, float64(k-1)) * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-10 {
			break
		}
	}
	if sum < 0 {
		return 0
	}
	if sum > 1 {
		return 1
	}
	return sum
}
