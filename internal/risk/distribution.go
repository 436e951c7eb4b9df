package risk

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DistributionKind enumerates the closed set of supported distribution families.
type DistributionKind string

const (
	Triangular DistributionKind = "triangular"
	Normal     DistributionKind = "normal"
	LogNormal  DistributionKind = "lognormal"
	Uniform    DistributionKind = "uniform"
	Beta       DistributionKind = "beta"
	PERT       DistributionKind = "pert"
)

// DistributionKinds lists every supported family in stable order.
func DistributionKinds() []DistributionKind {
	return []DistributionKind{Triangular, Normal, LogNormal, Uniform, Beta, PERT}
}

// quantile arguments are clamped away from the exact endpoints so unbounded
// families never map u=0 or u=1 to an infinity.
const quantileEps = 1e-12

// Distribution is an immutable, sampleable probability distribution.
// The set of implementations is closed; construction goes through the
// dist package so invalid parameter combinations are rejected up front.
type Distribution interface {
	Kind() DistributionKind
	// Validate checks parameter bounds and ordering, independent of any data.
	Validate() error
	// Quantile returns the inverse CDF at p. All sampling is quantile-based
	// so a run is bit-reproducible from its uniform stream alone.
	Quantile(p float64) float64
	CDF(x float64) float64
	LogProb(x float64) float64
	Mean() float64
	// Support returns the closed range samples fall in; unbounded sides are ±Inf.
	Support() (lo, hi float64)
	// Params returns the wire/storage form of the parameters.
	Params() map[string]float64

	isDistribution()
}

// Sample draws n values from d using the supplied generator. The result
// always holds exactly n finite values inside the distribution's support.
func Sample(d Distribution, n int, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = SampleOne(d, rng)
	}
	return out
}

// SampleOne draws a single finite value from d.
func SampleOne(d Distribution, rng *rand.Rand) float64 {
	u := rng.Float64()
	if u < quantileEps {
		u = quantileEps
	} else if u > 1-quantileEps {
		u = 1 - quantileEps
	}
	v := d.Quantile(u)
	lo, hi := d.Support()
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return v
}

// TriangularDist is the classic three-point distribution on [Min, Max] with
// peak density at Mode.
type TriangularDist struct {
	Min  float64
	Mode float64
	Max  float64
}

func (t TriangularDist) Kind() DistributionKind { return Triangular }
func (t TriangularDist) isDistribution()        {}

func (t TriangularDist) Validate() error {
	if math.IsNaN(t.Min) || math.IsNaN(t.Mode) || math.IsNaN(t.Max) ||
		math.IsInf(t.Min, 0) || math.IsInf(t.Mode, 0) || math.IsInf(t.Max, 0) {
		return &ValidationError{Field: "triangular", Constraint: "finite", Message: "triangular parameters must be finite"}
	}
	if t.Min > t.Mode || t.Mode > t.Max {
		return &ValidationError{Field: "triangular", Constraint: "ordering", Message: fmt.Sprintf("triangular requires min <= mode <= max, got min=%g mode=%g max=%g", t.Min, t.Mode, t.Max)}
	}
	if t.Min == t.Max {
		return &ValidationError{Field: "triangular", Constraint: "degenerate", Message: "triangular requires min != max (zero-width distribution)"}
	}
	return nil
}

func (t TriangularDist) dist() distuv.Triangle {
	return distuv.NewTriangle(t.Min, t.Max, t.Mode, nil)
}

func (t TriangularDist) Quantile(p float64) float64 { return t.dist().Quantile(p) }
func (t TriangularDist) CDF(x float64) float64      { return t.dist().CDF(x) }
func (t TriangularDist) LogProb(x float64) float64  { return t.dist().LogProb(x) }
func (t TriangularDist) Mean() float64              { return (t.Min + t.Mode + t.Max) / 3 }
func (t TriangularDist) Support() (float64, float64) {
	return t.Min, t.Max
}
func (t TriangularDist) Params() map[string]float64 {
	return map[string]float64{"min": t.Min, "mode": t.Mode, "max": t.Max}
}

// NormalDist is a Gaussian with mean Mu and standard deviation Sigma.
type NormalDist struct {
	Mu    float64
	Sigma float64
}

func (n NormalDist) Kind() DistributionKind { return Normal }
func (n NormalDist) isDistribution()        {}

func (n NormalDist) Validate() error {
	if math.IsNaN(n.Mu) || math.IsInf(n.Mu, 0) || math.IsNaN(n.Sigma) || math.IsInf(n.Sigma, 0) {
		return &ValidationError{Field: "normal", Constraint: "finite", Message: "normal parameters must be finite"}
	}
	if n.Sigma <= 0 {
		return &ValidationError{Field: "normal", Constraint: "positive", Message: fmt.Sprintf("normal requires std > 0, got %g", n.Sigma)}
	}
	return nil
}

func (n NormalDist) dist() distuv.Normal {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}
}

func (n NormalDist) Quantile(p float64) float64 { return n.dist().Quantile(p) }
func (n NormalDist) CDF(x float64) float64      { return n.dist().CDF(x) }
func (n NormalDist) LogProb(x float64) float64  { return n.dist().LogProb(x) }
func (n NormalDist) Mean() float64              { return n.Mu }
func (n NormalDist) Support() (float64, float64) {
	return math.Inf(-1), math.Inf(1)
}
func (n NormalDist) Params() map[string]float64 {
	return map[string]float64{"mean": n.Mu, "std": n.Sigma}
}

// LogNormalDist has log-space location Mu and scale Sigma; its support is
// strictly positive.
type LogNormalDist struct {
	Mu    float64
	Sigma float64
}

func (l LogNormalDist) Kind() DistributionKind { return LogNormal }
func (l LogNormalDist) isDistribution()        {}

func (l LogNormalDist) Validate() error {
	if math.IsNaN(l.Mu) || math.IsInf(l.Mu, 0) || math.IsNaN(l.Sigma) || math.IsInf(l.Sigma, 0) {
		return &ValidationError{Field: "lognormal", Constraint: "finite", Message: "lognormal parameters must be finite"}
	}
	if l.Sigma <= 0 {
		return &ValidationError{Field: "lognormal", Constraint: "positive", Message: fmt.Sprintf("lognormal requires sigma > 0, got %g", l.Sigma)}
	}
	return nil
}

func (l LogNormalDist) dist() distuv.LogNormal {
	return distuv.LogNormal{Mu: l.Mu, Sigma: l.Sigma}
}

func (l LogNormalDist) Quantile(p float64) float64 { return l.dist().Quantile(p) }
func (l LogNormalDist) CDF(x float64) float64      { return l.dist().CDF(x) }
func (l LogNormalDist) LogProb(x float64) float64  { return l.dist().LogProb(x) }
func (l LogNormalDist) Mean() float64              { return math.Exp(l.Mu + l.Sigma*l.Sigma/2) }
func (l LogNormalDist) Support() (float64, float64) {
	return math.SmallestNonzeroFloat64, math.Inf(1)
}
func (l LogNormalDist) Params() map[string]float64 {
	return map[string]float64{"mu": l.Mu, "sigma": l.Sigma}
}

// UniformDist is flat on [Min, Max].
type UniformDist struct {
	Min float64
	Max float64
}

func (u UniformDist) Kind() DistributionKind { return Uniform }
func (u UniformDist) isDistribution()        {}

func (u UniformDist) Validate() error {
	if math.IsNaN(u.Min) || math.IsInf(u.Min, 0) || math.IsNaN(u.Max) || math.IsInf(u.Max, 0) {
		return &ValidationError{Field: "uniform", Constraint: "finite", Message: "uniform parameters must be finite"}
	}
	if u.Min >= u.Max {
		return &ValidationError{Field: "uniform", Constraint: "ordering", Message: fmt.Sprintf("uniform requires min < max, got min=%g max=%g", u.Min, u.Max)}
	}
	return nil
}

func (u UniformDist) dist() distuv.Uniform {
	return distuv.Uniform{Min: u.Min, Max: u.Max}
}

func (u UniformDist) Quantile(p float64) float64 { return u.dist().Quantile(p) }
func (u UniformDist) CDF(x float64) float64      { return u.dist().CDF(x) }
func (u UniformDist) LogProb(x float64) float64  { return u.dist().LogProb(x) }
func (u UniformDist) Mean() float64              { return (u.Min + u.Max) / 2 }
func (u UniformDist) Support() (float64, float64) {
	return u.Min, u.Max
}
func (u UniformDist) Params() map[string]float64 {
	return map[string]float64{"min": u.Min, "max": u.Max}
}

// BetaDist is a Beta(Alpha, Beta) variable, optionally rescaled from [0,1]
// to [Min, Max]. The zero values of Min and Max select the unit interval.
type BetaDist struct {
	Alpha float64
	Beta  float64
	Min   float64
	Max   float64
}

func (b BetaDist) Kind() DistributionKind { return Beta }
func (b BetaDist) isDistribution()        {}

func (b BetaDist) lo() float64 { return b.Min }
func (b BetaDist) hi() float64 {
	if b.Min == 0 && b.Max == 0 {
		return 1
	}
	return b.Max
}

func (b BetaDist) Validate() error {
	if math.IsNaN(b.Alpha) || math.IsInf(b.Alpha, 0) || math.IsNaN(b.Beta) || math.IsInf(b.Beta, 0) {
		return &ValidationError{Field: "beta", Constraint: "finite", Message: "beta parameters must be finite"}
	}
	if b.Alpha <= 0 || b.Beta <= 0 {
		return &ValidationError{Field: "beta", Constraint: "positive", Message: fmt.Sprintf("beta requires alpha > 0 and beta > 0, got alpha=%g beta=%g", b.Alpha, b.Beta)}
	}
	if b.lo() >= b.hi() {
		return &ValidationError{Field: "beta", Constraint: "ordering", Message: fmt.Sprintf("beta range requires min < max, got min=%g max=%g", b.lo(), b.hi())}
	}
	return nil
}

func (b BetaDist) dist() distuv.Beta {
	return distuv.Beta{Alpha: b.Alpha, Beta: b.Beta}
}

func (b BetaDist) Quantile(p float64) float64 {
	return b.lo() + (b.hi()-b.lo())*b.dist().Quantile(p)
}

func (b BetaDist) CDF(x float64) float64 {
	return b.dist().CDF((x - b.lo()) / (b.hi() - b.lo()))
}

func (b BetaDist) LogProb(x float64) float64 {
	width := b.hi() - b.lo()
	return b.dist().LogProb((x-b.lo())/width) - math.Log(width)
}

func (b BetaDist) Mean() float64 {
	return b.lo() + (b.hi()-b.lo())*b.Alpha/(b.Alpha+b.Beta)
}

func (b BetaDist) Support() (float64, float64) {
	return b.lo(), b.hi()
}

func (b BetaDist) Params() map[string]float64 {
	return map[string]float64{"alpha": b.Alpha, "beta": b.Beta, "min": b.lo(), "max": b.hi()}
}

// PERTDist is the smoothed three-point distribution: a Beta with shape
// derived from (min, mode, max) using the standard lambda=4 weighting.
type PERTDist struct {
	Min  float64
	Mode float64
	Max  float64
}

func (p PERTDist) Kind() DistributionKind { return PERT }
func (p PERTDist) isDistribution()        {}

func (p PERTDist) Validate() error {
	if math.IsNaN(p.Min) || math.IsInf(p.Min, 0) || math.IsNaN(p.Mode) || math.IsInf(p.Mode, 0) ||
		math.IsNaN(p.Max) || math.IsInf(p.Max, 0) {
		return &ValidationError{Field: "pert", Constraint: "finite", Message: "pert parameters must be finite"}
	}
	if p.Min > p.Mode || p.Mode > p.Max {
		return &ValidationError{Field: "pert", Constraint: "ordering", Message: fmt.Sprintf("pert requires min <= mode <= max, got min=%g mode=%g max=%g", p.Min, p.Mode, p.Max)}
	}
	if p.Min == p.Max {
		return &ValidationError{Field: "pert", Constraint: "degenerate", Message: "pert requires min != max (zero-width distribution)"}
	}
	return nil
}

func (p PERTDist) shape() (alpha, beta float64) {
	width := p.Max - p.Min
	alpha = 1 + 4*(p.Mode-p.Min)/width
	beta = 1 + 4*(p.Max-p.Mode)/width
	return alpha, beta
}

func (p PERTDist) scaled() BetaDist {
	a, b := p.shape()
	return BetaDist{Alpha: a, Beta: b, Min: p.Min, Max: p.Max}
}

func (p PERTDist) Quantile(q float64) float64 { return p.scaled().Quantile(q) }
func (p PERTDist) CDF(x float64) float64      { return p.scaled().CDF(x) }
func (p PERTDist) LogProb(x float64) float64  { return p.scaled().LogProb(x) }
func (p PERTDist) Mean() float64              { return (p.Min + 4*p.Mode + p.Max) / 6 }
func (p PERTDist) Support() (float64, float64) {
	return p.Min, p.Max
}
func (p PERTDist) Params() map[string]float64 {
	return map[string]float64{"min": p.Min, "mode": p.Mode, "max": p.Max}
}
