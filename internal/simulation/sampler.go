package simulation

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"risksim/internal/risk"
)

// sampler draws one joint impact vector per iteration. Risks that take part
// in a correlation pair are sampled through a Gaussian copula; everything
// else is sampled independently. Splitting the set keeps the per-iteration
// cost linear in total risk count when only a bounded subset is correlated.
type sampler struct {
	risks []risk.Risk

	// correlated holds indices into risks, in matrix order; chol is the
	// lower Cholesky factor of their correlation sub-matrix.
	correlated []int
	chol       *mat.TriDense

	independent []int

	// factors caches the per-risk mitigation multiplier.
	factors []float64
}

// drawState is per-worker scratch so the sampling loop never shares
// mutable state between workers.
type drawState struct {
	z []float64
	x []float64
}

func (s *sampler) newDrawState() *drawState {
	return &drawState{
		z: make([]float64, len(s.correlated)),
		x: make([]float64, len(s.correlated)),
	}
}

// newSampler partitions the risk set and factorizes the correlation
// structure once, before any iteration runs.
func newSampler(risks []risk.Risk, correlations *risk.CorrelationMatrix) (*sampler, error) {
	s := &sampler{
		risks:   risks,
		factors: make([]float64, len(risks)),
	}
	for i := range risks {
		s.factors[i] = risks[i].MitigationFactor()
	}

	indexByID := make(map[string]int, len(risks))
	for i := range risks {
		indexByID[risks[i].ID] = i
	}

	inCopula := make(map[int]bool)
	if correlations != nil && correlations.HasCorrelations() {
		// Matrix order must be deterministic: sorted ids restricted to
		// risks that actually appear in a stored pair.
		var ids []string
		for _, id := range correlations.IDs() {
			if _, ok := indexByID[id]; !ok {
				return nil, &risk.ValidationError{
					Field:      "correlations",
					Constraint: "unknown_id",
					Message:    "correlation matrix references unknown risk id: " + id,
				}
			}
			if hasPair(correlations, id) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)

		if len(ids) > 1 {
			chol, err := correlations.CholeskyFactor(ids)
			if err != nil {
				return nil, err
			}
			s.chol = chol
			for _, id := range ids {
				idx := indexByID[id]
				s.correlated = append(s.correlated, idx)
				inCopula[idx] = true
			}
		}
	}

	for i := range risks {
		if !inCopula[i] {
			s.independent = append(s.independent, i)
		}
	}
	return s, nil
}

// hasPair reports whether id participates in at least one non-zero
// coefficient.
func hasPair(m *risk.CorrelationMatrix, id string) bool {
	for _, other := range m.IDs() {
		if other != id && m.Get(id, other) != 0 {
			return true
		}
	}
	return false
}

// sampleInto fills impacts (len == number of risks) with one joint draw.
// The rng consumption order is fixed (copula block first, then independent
// risks in index order) so a run is bit-reproducible from the seed alone.
func (s *sampler) sampleInto(impacts []float64, rng *rand.Rand, st *drawState) {
	if s.chol != nil {
		for j := range st.z {
			st.z[j] = rng.NormFloat64()
		}
		// x = L z; L is lower triangular.
		for i := range st.x {
			sum := 0.0
			for j := 0; j <= i; j++ {
				sum += s.chol.At(i, j) * st.z[j]
			}
			st.x[i] = sum
		}
		for j, idx := range s.correlated {
			u := stdNormCDF(st.x[j])
			if u < 1e-12 {
				u = 1e-12
			} else if u > 1-1e-12 {
				u = 1 - 1e-12
			}
			impacts[idx] = s.clampToSupport(idx, s.risks[idx].Distribution.Quantile(u)) * s.factors[idx]
		}
	}

	for _, idx := range s.independent {
		impacts[idx] = risk.SampleOne(s.risks[idx].Distribution, rng) * s.factors[idx]
	}
}

func (s *sampler) clampToSupport(idx int, v float64) float64 {
	lo, hi := s.risks[idx].Distribution.Support()
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
