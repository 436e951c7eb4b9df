package defaults

import (
	"math"
	"strings"
	"testing"
	"time"

	"risksim/internal/dist"
	"risksim/internal/patterns"
	"risksim/internal/risk"
)

// seededDB builds a pattern database with enough technical outcomes on
// construction projects to outrank configured defaults.
func seededDB(t *testing.T, impacts ...float64) *patterns.Database {
	t.Helper()
	db := patterns.NewDatabase()
	for i, impact := range impacts {
		err := db.AddProjectOutcome(risk.ProjectOutcome{
			ProjectID:   "p" + string(rune('1'+i)),
			ProjectType: "construction",
			CompletedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0),
			RiskOutcomes: []risk.RiskOutcome{
				{RiskID: "geotech", Category: risk.CategoryTechnical, Occurred: true, ActualImpact: impact, ImpactType: risk.ImpactCost},
			},
		})
		if err != nil {
			t.Fatalf("Expected outcome to ingest, got %v", err)
		}
	}
	return db
}

func TestGenerateDefaults_RequiresID(t *testing.T) {
	h := NewHandler(NewConfig(), nil)
	if _, err := h.GenerateDefaults(AvailableData{Category: risk.CategoryTechnical}, nil); err == nil {
		t.Error("Expected an error for missing risk id")
	}
}

func TestGenerateDefaults_SystemDefault(t *testing.T) {
	h := NewHandler(NewConfig(), nil)

	p, err := h.GenerateDefaults(AvailableData{ID: "r1"}, nil)
	if err != nil {
		t.Fatalf("Expected defaults for an empty risk, got %v", err)
	}
	if p.Source != SourceSystemDefault {
		t.Errorf("Expected source %s, got %s", SourceSystemDefault, p.Source)
	}
	if p.BaselineImpact != 50000 {
		t.Errorf("Expected the system baseline 50000, got %f", p.BaselineImpact)
	}
	if p.ImpactType != risk.ImpactCost {
		t.Errorf("Expected system impact type cost, got %s", p.ImpactType)
	}
	if p.Distribution == nil || p.Distribution.Kind() != risk.PERT {
		t.Errorf("Expected a PERT distribution from the system profile, got %v", p.Distribution)
	}
	// No category, no impact type, no baseline, no distribution input.
	if p.Confidence > 0.5 {
		t.Errorf("Expected confidence capped at 0.5 for fully guessed defaults, got %f", p.Confidence)
	}
	if !strings.Contains(p.Reasoning, "system default") {
		t.Errorf("Expected reasoning to mention the system default, got %q", p.Reasoning)
	}
}

func TestGenerateDefaults_CategoryProfile(t *testing.T) {
	h := NewHandler(NewConfig(), nil)

	p, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategorySchedule}, nil)
	if err != nil {
		t.Fatalf("Expected schedule defaults, got %v", err)
	}
	if p.Source != SourceCategoryDefault {
		t.Errorf("Expected source %s, got %s", SourceCategoryDefault, p.Source)
	}
	if p.ImpactType != risk.ImpactSchedule {
		t.Errorf("Expected schedule impact type from the category profile, got %s", p.ImpactType)
	}
	if p.BaselineImpact != 15 {
		t.Errorf("Expected the schedule baseline 15, got %f", p.BaselineImpact)
	}
	pert, ok := p.Distribution.(risk.PERTDist)
	if !ok {
		t.Fatalf("Expected a PERT distribution, got %T", p.Distribution)
	}
	if pert.Min != 15*0.4 || pert.Mode != 15 || pert.Max != 15*3.0 {
		t.Errorf("Expected PERT 6/15/45 from the schedule factors, got %v", pert)
	}
}

func TestGenerateDefaults_Deterministic(t *testing.T) {
	h := NewHandler(NewConfig(), nil)
	data := AvailableData{ID: "r1", Category: risk.CategoryTechnical}

	first, err := h.GenerateDefaults(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.GenerateDefaults(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.ImpactType != second.ImpactType {
		t.Errorf("Expected identical impact types, got %s and %s", first.ImpactType, second.ImpactType)
	}
	if first.Distribution.Kind() != second.Distribution.Kind() {
		t.Errorf("Expected identical distribution families, got %s and %s", first.Distribution.Kind(), second.Distribution.Kind())
	}
	if first.Confidence != second.Confidence {
		t.Errorf("Expected identical confidence, got %f and %f", first.Confidence, second.Confidence)
	}
}

func TestGenerateDefaults_HistoricalPattern(t *testing.T) {
	db := seededDB(t, 40000, 50000, 60000)
	h := NewHandler(NewConfig(), db)

	p, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategoryTechnical}, &ProjectContext{ProjectType: "construction"})
	if err != nil {
		t.Fatalf("Expected historical defaults, got %v", err)
	}
	if p.Source != SourceHistorical {
		t.Errorf("Expected source %s, got %s", SourceHistorical, p.Source)
	}
	if math.Abs(p.BaselineImpact-50000) > 1 {
		t.Errorf("Expected the pattern average 50000 as baseline, got %f", p.BaselineImpact)
	}
	if p.Distribution == nil || p.Distribution.Kind() != risk.LogNormal {
		t.Errorf("Expected the pattern's lognormal shape, got %v", p.Distribution)
	}
	if !strings.Contains(p.Reasoning, "historical") {
		t.Errorf("Expected reasoning to mention historical data, got %q", p.Reasoning)
	}

	// The category-only fallback finds the same pattern for an unknown
	// project type.
	fallback, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategoryTechnical}, &ProjectContext{ProjectType: "spacecraft"})
	if err != nil {
		t.Fatal(err)
	}
	if fallback.Source != SourceHistorical {
		t.Errorf("Expected the category fallback to reach the pattern, got source %s", fallback.Source)
	}
}

func TestGenerateDefaults_ThinPatternIgnored(t *testing.T) {
	// Two samples sit below the minimum, so configuration wins.
	db := seededDB(t, 40000, 60000)
	h := NewHandler(NewConfig(), db)

	p, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategoryTechnical}, &ProjectContext{ProjectType: "construction"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Source != SourceCategoryDefault {
		t.Errorf("Expected thin patterns to be ignored, got source %s", p.Source)
	}
	if p.BaselineImpact != 50000 {
		t.Errorf("Expected the configured technical baseline 50000, got %f", p.BaselineImpact)
	}
}

func TestGenerateDefaults_OwnDataWins(t *testing.T) {
	db := seededDB(t, 40000, 50000, 60000)
	h := NewHandler(NewConfig(), db)

	data := AvailableData{
		ID:             "r1",
		Category:       risk.CategoryTechnical,
		ImpactType:     risk.ImpactSchedule,
		BaselineImpact: 12345,
		ThreePoint:     &dist.ThreePointEstimate{Optimistic: 5000, MostLikely: 12000, Pessimistic: 30000},
	}
	p, err := h.GenerateDefaults(data, &ProjectContext{ProjectType: "construction"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ImpactType != risk.ImpactSchedule {
		t.Errorf("Expected the caller's impact type to win, got %s", p.ImpactType)
	}
	if p.BaselineImpact != 12345 {
		t.Errorf("Expected the caller's baseline to win, got %f", p.BaselineImpact)
	}
	tri, ok := p.Distribution.(risk.TriangularDist)
	if !ok {
		t.Fatalf("Expected a triangular distribution from the three-point estimate, got %T", p.Distribution)
	}
	if tri.Min != 5000 || tri.Mode != 12000 || tri.Max != 30000 {
		t.Errorf("Expected triangular 5000/12000/30000, got %v", tri)
	}
	// Fully populated data earns higher confidence than a bare category.
	bare, err := h.GenerateDefaults(AvailableData{ID: "r2", Category: risk.CategoryTechnical}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Confidence <= bare.Confidence {
		t.Errorf("Expected complete data confidence %f to exceed bare-category %f", p.Confidence, bare.Confidence)
	}
}

func TestGenerateDefaults_FitFromOwnHistory(t *testing.T) {
	h := NewHandler(NewConfig(), nil)

	data := AvailableData{
		ID:                "r1",
		Category:          risk.CategoryTechnical,
		HistoricalImpacts: []float64{9000, 10000, 11000, 10500, 9500, 10200, 9800, 10100},
	}
	p, err := h.GenerateDefaults(data, nil)
	if err != nil {
		t.Fatalf("Expected a fitted distribution, got %v", err)
	}
	if p.Distribution == nil {
		t.Fatal("Expected a distribution")
	}
	if !strings.Contains(p.Reasoning, "fitted") {
		t.Errorf("Expected reasoning to mention the fit, got %q", p.Reasoning)
	}
	if mean := p.Distribution.Mean(); math.Abs(mean-10012.5) > 1500 {
		t.Errorf("Expected the fitted mean near the sample mean, got %f", mean)
	}
}

func TestGenerateDefaults_ConfidenceCaps(t *testing.T) {
	db := seededDB(t, 40000, 50000, 60000, 45000, 55000)
	h := NewHandler(NewConfig(), db)

	// Only the category is known: completeness 0.25 caps confidence at 0.5
	// even with a strong historical pattern behind it.
	p, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategoryTechnical}, &ProjectContext{ProjectType: "construction"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Source != SourceHistorical {
		t.Fatalf("Expected a historical source, got %s", p.Source)
	}
	if p.Confidence > 0.5 {
		t.Errorf("Expected confidence capped at 0.5 for mostly missing data, got %f", p.Confidence)
	}

	// Half-complete data is capped at 0.7.
	half, err := h.GenerateDefaults(AvailableData{
		ID:         "r2",
		Category:   risk.CategoryTechnical,
		ImpactType: risk.ImpactCost,
	}, &ProjectContext{ProjectType: "construction"})
	if err != nil {
		t.Fatal(err)
	}
	if half.Confidence > 0.7 {
		t.Errorf("Expected confidence capped at 0.7 for half-complete data, got %f", half.Confidence)
	}
	if half.Confidence <= p.Confidence {
		t.Errorf("Expected more data to raise confidence, got %f then %f", p.Confidence, half.Confidence)
	}
}

func TestValidateGeneratedDefaults(t *testing.T) {
	h := NewHandler(NewConfig(), nil)
	p, err := h.GenerateDefaults(AvailableData{ID: "r1", Category: risk.CategoryFinancial, ImpactType: risk.ImpactCost, BaselineImpact: 80000}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := ValidateGeneratedDefaults(p)
	if !res.Valid {
		t.Errorf("Expected generated defaults to validate, got %v", res.Errors)
	}

	res = ValidateGeneratedDefaults(nil)
	if res.Valid {
		t.Error("Expected nil parameters to fail validation")
	}

	broken := *p
	broken.Distribution = nil
	broken.BaselineImpact = -1
	res = ValidateGeneratedDefaults(&broken)
	if res.Valid {
		t.Error("Expected broken parameters to fail validation")
	}
	if len(res.Errors) < 2 {
		t.Errorf("Expected both defects reported, got %v", res.Errors)
	}

	weak := *p
	weak.Confidence = 0.2
	res = ValidateGeneratedDefaults(&weak)
	if !res.Valid {
		t.Errorf("Expected low confidence to warn, not fail, got %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Error("Expected a low-confidence warning")
	}
}
