package risk

import (
	"encoding/json"
	"fmt"
)

// DistributionSpec is the loosely-typed wire form of a distribution. It is
// only ever a boundary format: decoding converts it to the typed union
// before anything samples it.
type DistributionSpec struct {
	Type       DistributionKind   `json:"type"`
	Parameters map[string]float64 `json:"parameters"`
}

// SpecFor returns the wire form of a distribution.
func SpecFor(d Distribution) DistributionSpec {
	return DistributionSpec{Type: d.Kind(), Parameters: d.Params()}
}

// Build converts the wire form into a validated typed distribution.
func (s DistributionSpec) Build() (Distribution, error) {
	get := func(name string) (float64, error) {
		v, ok := s.Parameters[name]
		if !ok {
			return 0, &ValidationError{Field: "parameters." + name, Constraint: "required", Message: fmt.Sprintf("%s distribution requires parameter %q", s.Type, name)}
		}
		return v, nil
	}

	var d Distribution
	switch s.Type {
	case Triangular:
		min, err := get("min")
		if err != nil {
			return nil, err
		}
		mode, err := get("mode")
		if err != nil {
			return nil, err
		}
		max, err := get("max")
		if err != nil {
			return nil, err
		}
		d = TriangularDist{Min: min, Mode: mode, Max: max}
	case Normal:
		mean, err := get("mean")
		if err != nil {
			return nil, err
		}
		std, err := get("std")
		if err != nil {
			return nil, err
		}
		d = NormalDist{Mu: mean, Sigma: std}
	case LogNormal:
		mu, err := get("mu")
		if err != nil {
			return nil, err
		}
		sigma, err := get("sigma")
		if err != nil {
			return nil, err
		}
		d = LogNormalDist{Mu: mu, Sigma: sigma}
	case Uniform:
		min, err := get("min")
		if err != nil {
			return nil, err
		}
		max, err := get("max")
		if err != nil {
			return nil, err
		}
		d = UniformDist{Min: min, Max: max}
	case Beta:
		alpha, err := get("alpha")
		if err != nil {
			return nil, err
		}
		beta, err := get("beta")
		if err != nil {
			return nil, err
		}
		b := BetaDist{Alpha: alpha, Beta: beta}
		if min, ok := s.Parameters["min"]; ok {
			b.Min = min
		}
		if max, ok := s.Parameters["max"]; ok {
			b.Max = max
		}
		d = b
	case PERT:
		min, err := get("min")
		if err != nil {
			return nil, err
		}
		mode, err := get("mode")
		if err != nil {
			return nil, err
		}
		max, err := get("max")
		if err != nil {
			return nil, err
		}
		d = PERTDist{Min: min, Mode: mode, Max: max}
	default:
		return nil, &ValidationError{Field: "type", Constraint: "enum", Message: "unknown distribution type: " + string(s.Type)}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// riskWire mirrors Risk for JSON with the distribution in spec form.
type riskWire struct {
	ID                      string               `json:"id"`
	Name                    string               `json:"name"`
	Category                Category             `json:"category"`
	ImpactType              ImpactType           `json:"impact_type"`
	Distribution            DistributionSpec     `json:"probability_distribution"`
	BaselineImpact          float64              `json:"baseline_impact"`
	CorrelationDependencies []string             `json:"correlation_dependencies,omitempty"`
	Mitigations             []MitigationStrategy `json:"mitigation_strategies,omitempty"`
}

// MarshalJSON encodes the risk with its distribution in wire form.
func (r Risk) MarshalJSON() ([]byte, error) {
	w := riskWire{
		ID:                      r.ID,
		Name:                    r.Name,
		Category:                r.Category,
		ImpactType:              r.ImpactType,
		BaselineImpact:          r.BaselineImpact,
		CorrelationDependencies: r.CorrelationDependencies,
		Mitigations:             r.Mitigations,
	}
	if r.Distribution != nil {
		w.Distribution = SpecFor(r.Distribution)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form, rebuilding the typed distribution.
func (r *Risk) UnmarshalJSON(data []byte) error {
	var w riskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.ID = w.ID
	r.Name = w.Name
	r.Category = w.Category
	r.ImpactType = w.ImpactType
	r.BaselineImpact = w.BaselineImpact
	r.CorrelationDependencies = w.CorrelationDependencies
	r.Mitigations = w.Mitigations
	if w.Distribution.Type != "" {
		d, err := w.Distribution.Build()
		if err != nil {
			return fmt.Errorf("risk %s: %w", w.ID, err)
		}
		r.Distribution = d
	}
	return nil
}

// CorrelationEntry is the wire form of a single matrix coefficient.
type CorrelationEntry struct {
	RiskA       string  `json:"risk_a"`
	RiskB       string  `json:"risk_b"`
	Coefficient float64 `json:"coefficient"`
}

// MarshalJSON flattens the matrix into a sorted entry list.
func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	entries := make([]CorrelationEntry, 0, len(m.coefficients))
	for pair, r := range m.coefficients {
		entries = append(entries, CorrelationEntry{RiskA: pair.a, RiskB: pair.b, Coefficient: r})
	}
	// Deterministic output for golden comparisons.
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].RiskA < entries[i].RiskA ||
				(entries[j].RiskA == entries[i].RiskA && entries[j].RiskB < entries[i].RiskB) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	return json.Marshal(struct {
		IDs     []string           `json:"risk_ids"`
		Entries []CorrelationEntry `json:"entries"`
	}{IDs: m.IDs(), Entries: entries})
}

// UnmarshalJSON rebuilds the matrix, re-validating every coefficient.
func (m *CorrelationMatrix) UnmarshalJSON(data []byte) error {
	var w struct {
		IDs     []string           `json:"risk_ids"`
		Entries []CorrelationEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rebuilt := NewCorrelationMatrix(w.IDs)
	for _, e := range w.Entries {
		if err := rebuilt.Set(e.RiskA, e.RiskB, e.Coefficient); err != nil {
			return err
		}
	}
	*m = *rebuilt
	return nil
}
