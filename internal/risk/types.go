package risk

import (
	"time"
)

// Category classifies the origin of a project risk.
type Category string

const (
	CategoryTechnical  Category = "technical"
	CategoryFinancial  Category = "financial"
	CategorySchedule   Category = "schedule"
	CategoryResource   Category = "resource"
	CategoryRegulatory Category = "regulatory"
	CategoryExternal   Category = "external"
)

// Categories lists every known category in stable order.
func Categories() []Category {
	return []Category{
		CategoryTechnical,
		CategoryFinancial,
		CategorySchedule,
		CategoryResource,
		CategoryRegulatory,
		CategoryExternal,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryFinancial, CategorySchedule,
		CategoryResource, CategoryRegulatory, CategoryExternal:
		return true
	}
	return false
}

// ImpactType states which outcome dimension a risk affects.
type ImpactType string

const (
	ImpactCost     ImpactType = "cost"
	ImpactSchedule ImpactType = "schedule"
	ImpactBoth     ImpactType = "both"
)

// Valid reports whether t is a known impact type.
func (t ImpactType) Valid() bool {
	return t == ImpactCost || t == ImpactSchedule || t == ImpactBoth
}

// AffectsCost reports whether samples of this risk count towards cost outcomes.
func (t ImpactType) AffectsCost() bool {
	return t == ImpactCost || t == ImpactBoth
}

// AffectsSchedule reports whether samples of this risk count towards schedule outcomes.
func (t ImpactType) AffectsSchedule() bool {
	return t == ImpactSchedule || t == ImpactBoth
}

// MitigationStrategy describes one planned countermeasure for a risk.
type MitigationStrategy struct {
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	ImpactReduction float64 `json:"impact_reduction"` // fraction of baseline impact removed when active, [0,1]
	Cost            float64 `json:"cost,omitempty"`
	Active          bool    `json:"active"`
}

// Risk is a single project risk with a sampleable impact distribution.
type Risk struct {
	ID                      string               `json:"id"`
	Name                    string               `json:"name"`
	Category                Category             `json:"category"`
	ImpactType              ImpactType           `json:"impact_type"`
	Distribution            Distribution         `json:"-"`
	BaselineImpact          float64              `json:"baseline_impact"`
	CorrelationDependencies []string             `json:"correlation_dependencies,omitempty"`
	Mitigations             []MitigationStrategy `json:"mitigation_strategies,omitempty"`
}

// MitigationFactor returns the multiplier applied to sampled impacts once
// every active mitigation is accounted for. Reductions compose
// multiplicatively and the result never drops below zero.
func (r *Risk) MitigationFactor() float64 {
	factor := 1.0
	for _, m := range r.Mitigations {
		if !m.Active {
			continue
		}
		red := m.ImpactReduction
		if red < 0 {
			red = 0
		}
		if red > 1 {
			red = 1
		}
		factor *= 1 - red
	}
	return factor
}

// Validate checks the structural invariants of a risk definition.
func (r *Risk) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Constraint: "required", Message: "risk id must not be empty"}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "category", Constraint: "enum", Message: "unknown risk category: " + string(r.Category)}
	}
	if !r.ImpactType.Valid() {
		return &ValidationError{Field: "impact_type", Constraint: "enum", Message: "unknown impact type: " + string(r.ImpactType)}
	}
	if r.BaselineImpact <= 0 {
		return &ValidationError{Field: "baseline_impact", Constraint: "positive", Message: "baseline impact must be > 0"}
	}
	if r.Distribution == nil {
		return &ValidationError{Field: "probability_distribution", Constraint: "required", Message: "risk has no probability distribution"}
	}
	return r.Distribution.Validate()
}

// Clone returns a deep, independent copy of the risk. Distributions are
// immutable values, so sharing the same Distribution is safe; every mutable
// field is copied.
func (r *Risk) Clone() Risk {
	c := *r
	if r.CorrelationDependencies != nil {
		c.CorrelationDependencies = append([]string(nil), r.CorrelationDependencies...)
	}
	if r.Mitigations != nil {
		c.Mitigations = append([]MitigationStrategy(nil), r.Mitigations...)
	}
	return c
}

// CloneSet deep-copies a whole risk set.
func CloneSet(risks []Risk) []Risk {
	out := make([]Risk, len(risks))
	for i := range risks {
		out[i] = risks[i].Clone()
	}
	return out
}

// RiskOutcome records how a single risk actually played out on a finished project.
type RiskOutcome struct {
	RiskID         string     `json:"risk_id"`
	Category       Category   `json:"category"`
	Occurred       bool       `json:"occurred"`
	ActualImpact   float64    `json:"actual_impact"`
	ImpactType     ImpactType `json:"impact_type"`
	MitigationUsed string     `json:"mitigation_used,omitempty"`
	// PredictedImpact is the pre-project baseline, kept so mitigation
	// effectiveness can be derived after the fact.
	PredictedImpact float64 `json:"predicted_impact,omitempty"`
}

// ProjectOutcome is the historical record ingested by the pattern database.
type ProjectOutcome struct {
	ProjectID    string        `json:"project_id"`
	ProjectType  string        `json:"project_type"`
	ProjectPhase string        `json:"project_phase,omitempty"`
	CompletedAt  time.Time     `json:"completed_at"`
	TotalCost    float64       `json:"total_cost,omitempty"`
	TotalDays    float64       `json:"total_days,omitempty"`
	RiskOutcomes []RiskOutcome `json:"risk_outcomes"`
}
