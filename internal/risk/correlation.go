package risk

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CorrelationMatrix stores pairwise correlation coefficients between risks.
// Lookup is symmetric: Get(a, b) == Get(b, a). Self-correlation is always 1
// and never stored.
type CorrelationMatrix struct {
	coefficients map[pairKey]float64
	ids          map[string]bool
}

type pairKey struct {
	a, b string
}

func orderedPair(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// NewCorrelationMatrix creates an empty matrix over the given risk ids.
func NewCorrelationMatrix(riskIDs []string) *CorrelationMatrix {
	ids := make(map[string]bool, len(riskIDs))
	for _, id := range riskIDs {
		ids[id] = true
	}
	return &CorrelationMatrix{
		coefficients: make(map[pairKey]float64),
		ids:          ids,
	}
}

// Set records the correlation between two risks. It rejects coefficients
// outside [-1, 1], unknown risk ids and self-pairs.
func (m *CorrelationMatrix) Set(a, b string, r float64) error {
	if math.IsNaN(r) || r < -1 || r > 1 {
		return &ValidationError{Field: "correlation", Constraint: "range", Message: fmt.Sprintf("correlation coefficient must be in [-1, 1], got %g for (%s, %s)", r, a, b)}
	}
	if a == b {
		return &ValidationError{Field: "correlation", Constraint: "self", Message: "self-correlation is implicit and cannot be set: " + a}
	}
	if !m.ids[a] {
		return &ValidationError{Field: "correlation", Constraint: "unknown_id", Message: "correlation references unknown risk id: " + a}
	}
	if !m.ids[b] {
		return &ValidationError{Field: "correlation", Constraint: "unknown_id", Message: "correlation references unknown risk id: " + b}
	}
	m.coefficients[orderedPair(a, b)] = r
	return nil
}

// Get returns the coefficient for a pair, in either order. Unset pairs are
// independent (0); self-pairs are 1.
func (m *CorrelationMatrix) Get(a, b string) float64 {
	if a == b {
		return 1
	}
	return m.coefficients[orderedPair(a, b)]
}

// IDs returns the participating risk ids in stable sorted order.
func (m *CorrelationMatrix) IDs() []string {
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Pairs returns the number of explicitly stored coefficients.
func (m *CorrelationMatrix) Pairs() int {
	return len(m.coefficients)
}

// HasCorrelations reports whether any non-zero coefficient is stored.
func (m *CorrelationMatrix) HasCorrelations() bool {
	for _, r := range m.coefficients {
		if r != 0 {
			return true
		}
	}
	return false
}

// ToSym materializes the full symmetric matrix in the given id order.
func (m *CorrelationMatrix) ToSym(order []string) *mat.SymDense {
	n := len(order)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sym.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, m.Get(order[i], order[j]))
		}
	}
	return sym
}

// CholeskyFactor returns the lower-triangular factor of the matrix in the
// given id order, repairing an indefinite matrix by eigenvalue clipping
// first. Sampling needs the factor, not the raw coefficients, so this is
// the single place where positive-semi-definiteness is enforced.
func (m *CorrelationMatrix) CholeskyFactor(order []string) (*mat.TriDense, error) {
	sym := m.ToSym(order)

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		repaired, err := nearestPSD(sym)
		if err != nil {
			return nil, err
		}
		if !chol.Factorize(repaired) {
			return nil, fmt.Errorf("correlation matrix is not positive semi-definite and could not be repaired")
		}
	}

	var lower mat.TriDense
	chol.LTo(&lower)
	return &lower, nil
}

// nearestPSD clips negative eigenvalues to a small positive floor and
// restores the unit diagonal (Higham-style projection).
func nearestPSD(sym *mat.SymDense) (*mat.SymDense, error) {
	n, _ := sym.Dims()

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, fmt.Errorf("eigendecomposition of correlation matrix failed")
	}

	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	const floor = 1e-8
	for i, v := range values {
		if v < floor {
			values[i] = floor
		}
	}

	// Reconstruct V * diag(clipped) * V^T.
	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			scaled.Set(i, j, vectors.At(i, j)*values[j])
		}
	}
	var prod mat.Dense
	prod.Mul(scaled, vectors.T())

	// Rescale to a unit diagonal so the result stays a correlation matrix.
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		di := prod.At(i, i)
		for j := i; j < n; j++ {
			dj := prod.At(j, j)
			out.SetSym(i, j, prod.At(i, j)/math.Sqrt(di*dj))
		}
	}
	return out, nil
}

// Validate checks every stored coefficient against the supplied risk set.
func (m *CorrelationMatrix) Validate(risks []Risk) error {
	known := make(map[string]bool, len(risks))
	for i := range risks {
		known[risks[i].ID] = true
	}
	for pair, r := range m.coefficients {
		if math.IsNaN(r) || r < -1 || r > 1 {
			return &ValidationError{Field: "correlation", Constraint: "range", Message: fmt.Sprintf("correlation coefficient must be in [-1, 1], got %g for (%s, %s)", r, pair.a, pair.b)}
		}
		if !known[pair.a] {
			return &ValidationError{Field: "correlation", Constraint: "unknown_id", Message: "correlation references unknown risk id: " + pair.a}
		}
		if !known[pair.b] {
			return &ValidationError{Field: "correlation", Constraint: "unknown_id", Message: "correlation references unknown risk id: " + pair.b}
		}
	}
	return nil
}
