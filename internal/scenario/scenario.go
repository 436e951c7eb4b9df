// Package scenario builds what-if variants of a risk set without mutating
// the base model. Scenarios hold deep copies; applying a modification can
// never leak back into the risks they were derived from.
package scenario

import (
	"fmt"
	"time"

	"risksim/internal/risk"
)

// Modification is the set of overrides applied to a single risk inside a
// scenario. Nil fields leave the base value untouched.
type Modification struct {
	// Distribution replaces the risk's distribution in wire form.
	Distribution *risk.DistributionSpec `json:"distribution,omitempty"`
	// BaselineImpact overrides the baseline anchor.
	BaselineImpact *float64 `json:"baseline_impact,omitempty"`
	// MitigationToggles switches named mitigations on or off.
	MitigationToggles map[string]bool `json:"mitigation_toggles,omitempty"`
	// Removed drops the risk from the scenario entirely.
	Removed bool `json:"removed,omitempty"`
}

// Scenario is an independent risk-set variant plus the record of how it
// differs from its base.
type Scenario struct {
	Name          string                  `json:"name"`
	Description   string                  `json:"description"`
	CreatedAt     time.Time               `json:"created_at"`
	Risks         []risk.Risk             `json:"risks"`
	Modifications map[string]Modification `json:"modifications"`
}

// Create builds a scenario from a base risk set. The returned scenario
// owns deep copies of every risk; the base set is never touched.
func Create(baseRisks []risk.Risk, modifications map[string]Modification, name, description string) (*Scenario, error) {
	known := make(map[string]bool, len(baseRisks))
	for i := range baseRisks {
		known[baseRisks[i].ID] = true
	}
	for id := range modifications {
		if !known[id] {
			return nil, &risk.ValidationError{
				Field:      "modifications",
				Constraint: "unknown_id",
				Message:    "modification references unknown risk id: " + id,
			}
		}
	}

	s := &Scenario{
		Name:          name,
		Description:   description,
		CreatedAt:     time.Now(),
		Modifications: make(map[string]Modification, len(modifications)),
	}
	for id, mod := range modifications {
		s.Modifications[id] = mod
	}

	for i := range baseRisks {
		clone := baseRisks[i].Clone()
		mod, hasMod := modifications[clone.ID]
		if hasMod && mod.Removed {
			continue
		}
		if hasMod {
			if err := applyModification(&clone, mod); err != nil {
				return nil, fmt.Errorf("scenario %q: %w", name, err)
			}
		}
		s.Risks = append(s.Risks, clone)
	}
	return s, nil
}

func applyModification(r *risk.Risk, mod Modification) error {
	if mod.Distribution != nil {
		d, err := mod.Distribution.Build()
		if err != nil {
			return fmt.Errorf("risk %s: %w", r.ID, err)
		}
		r.Distribution = d
	}
	if mod.BaselineImpact != nil {
		if *mod.BaselineImpact <= 0 {
			return &risk.ValidationError{
				Field:      r.ID + ".baseline_impact",
				Constraint: "positive",
				Message:    "baseline impact override must be > 0",
			}
		}
		r.BaselineImpact = *mod.BaselineImpact
	}
	for name, active := range mod.MitigationToggles {
		found := false
		for i := range r.Mitigations {
			if r.Mitigations[i].Name == name {
				r.Mitigations[i].Active = active
				found = true
				break
			}
		}
		if !found {
			return &risk.ValidationError{
				Field:      r.ID + ".mitigation_strategies",
				Constraint: "unknown_id",
				Message:    fmt.Sprintf("risk %s has no mitigation named %q", r.ID, name),
			}
		}
	}
	return nil
}
