package scenario

import (
	"testing"

	"risksim/internal/risk"
)

func baseRisks() []risk.Risk {
	return []risk.Risk{
		{
			ID:             "foundation",
			Name:           "Foundation problems",
			Category:       risk.CategoryTechnical,
			ImpactType:     risk.ImpactCost,
			Distribution:   risk.TriangularDist{Min: 25000, Mode: 75000, Max: 150000},
			BaselineImpact: 75000,
			Mitigations: []risk.MitigationStrategy{
				{Name: "soil survey", ImpactReduction: 0.4, Active: false},
			},
		},
		{
			ID:             "steel",
			Name:           "Steel price volatility",
			Category:       risk.CategoryFinancial,
			ImpactType:     risk.ImpactCost,
			Distribution:   risk.NormalDist{Mu: 50000, Sigma: 20000},
			BaselineImpact: 50000,
		},
	}
}

func TestCreate_BaseUntouched(t *testing.T) {
	base := baseRisks()
	newBaseline := 90000.0
	sc, err := Create(base, map[string]Modification{
		"foundation": {
			BaselineImpact:    &newBaseline,
			MitigationToggles: map[string]bool{"soil survey": true},
		},
	}, "mitigated", "soil survey applied")
	if err != nil {
		t.Fatalf("Expected scenario creation to succeed, got %v", err)
	}

	// Scenario carries the override.
	var found bool
	for _, r := range sc.Risks {
		if r.ID == "foundation" {
			found = true
			if r.BaselineImpact != 90000 {
				t.Errorf("Expected overridden baseline 90000, got %f", r.BaselineImpact)
			}
			if !r.Mitigations[0].Active {
				t.Errorf("Expected mitigation toggled on in scenario")
			}
		}
	}
	if !found {
		t.Fatalf("Foundation risk missing from scenario")
	}

	// Base set is untouched.
	if base[0].BaselineImpact != 75000 {
		t.Errorf("Base baseline mutated to %f", base[0].BaselineImpact)
	}
	if base[0].Mitigations[0].Active {
		t.Errorf("Base mitigation mutated")
	}
}

func TestCreate_DistributionOverride(t *testing.T) {
	sc, err := Create(baseRisks(), map[string]Modification{
		"steel": {
			Distribution: &risk.DistributionSpec{
				Type:       risk.Uniform,
				Parameters: map[string]float64{"min": 10000, "max": 30000},
			},
		},
	}, "capped steel", "")
	if err != nil {
		t.Fatalf("Expected creation to succeed, got %v", err)
	}
	for _, r := range sc.Risks {
		if r.ID == "steel" && r.Distribution.Kind() != risk.Uniform {
			t.Errorf("Expected uniform override, got %s", r.Distribution.Kind())
		}
	}
}

func TestCreate_RemovedRisk(t *testing.T) {
	sc, err := Create(baseRisks(), map[string]Modification{
		"steel": {Removed: true},
	}, "no steel", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Risks) != 1 {
		t.Fatalf("Expected 1 risk after removal, got %d", len(sc.Risks))
	}
	if sc.Risks[0].ID != "foundation" {
		t.Errorf("Wrong risk removed: %s survived", sc.Risks[0].ID)
	}
}

func TestCreate_Rejections(t *testing.T) {
	if _, err := Create(baseRisks(), map[string]Modification{"ghost": {}}, "x", ""); err == nil {
		t.Errorf("Expected unknown risk id to be rejected")
	}

	bad := -5.0
	if _, err := Create(baseRisks(), map[string]Modification{"steel": {BaselineImpact: &bad}}, "x", ""); err == nil {
		t.Errorf("Expected non-positive baseline override to be rejected")
	}

	if _, err := Create(baseRisks(), map[string]Modification{
		"steel": {MitigationToggles: map[string]bool{"nonexistent": true}},
	}, "x", ""); err == nil {
		t.Errorf("Expected unknown mitigation name to be rejected")
	}

	if _, err := Create(baseRisks(), map[string]Modification{
		"steel": {Distribution: &risk.DistributionSpec{Type: risk.Normal, Parameters: map[string]float64{"mean": 1, "std": -1}}},
	}, "x", ""); err == nil {
		t.Errorf("Expected invalid distribution override to be rejected")
	}
}
