package dist

import (
	"math"
	"testing"

	"risksim/internal/risk"
)

func TestCreateTriangularFromThreePoint(t *testing.T) {
	d, err := CreateTriangularFromThreePoint(25000, 75000, 150000)
	if err != nil {
		t.Fatalf("Expected creation to succeed, got %v", err)
	}
	if d.Min != 25000 || d.Mode != 75000 || d.Max != 150000 {
		t.Errorf("Parameters not carried through: %+v", d)
	}
}

func TestCreateTriangularFromThreePoint_OrderingBeforeDegeneracy(t *testing.T) {
	// A misordered estimate reports the ordering violation.
	_, err := CreateTriangularFromThreePoint(100, 50, 200)
	ve, ok := err.(*risk.ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if ve.Constraint != "ordering" {
		t.Errorf("Expected ordering constraint, got %q", ve.Constraint)
	}

	// A fully collapsed estimate is degenerate.
	_, err = CreateTriangularFromThreePoint(80, 80, 80)
	ve, ok = err.(*risk.ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if ve.Constraint != "degenerate" {
		t.Errorf("Expected degenerate constraint, got %q", ve.Constraint)
	}
}

func TestValidateThreePointEstimate_CollectsAll(t *testing.T) {
	res := ValidateThreePointEstimate(200, 100, 100)
	if res.Valid {
		t.Fatalf("Expected invalid result")
	}
	if len(res.Errors) < 1 {
		t.Errorf("Expected at least one error, got %v", res.Errors)
	}

	res = ValidateThreePointEstimate(math.NaN(), 2, 1)
	if res.Valid {
		t.Fatalf("Expected invalid result for NaN input")
	}
	// NaN finiteness and the ordering violation should both be reported.
	if len(res.Errors) < 2 {
		t.Errorf("Expected multiple collected errors, got %v", res.Errors)
	}
}

func TestCreateDistribution_HistoricalPrecedence(t *testing.T) {
	data := RiskData{
		HistoricalImpacts: []float64{10, 12, 14, 16, 18},
		ThreePoint:        &ThreePointEstimate{Optimistic: 1000, MostLikely: 2000, Pessimistic: 3000},
	}
	d, err := CreateDistribution(data, risk.Normal)
	if err != nil {
		t.Fatalf("Expected creation to succeed, got %v", err)
	}
	// The fitted mean must come from the historical sample, not the
	// three-point estimate.
	if got := d.Mean(); math.Abs(got-14) > 1e-9 {
		t.Errorf("Expected mean 14 from historical data, got %f", got)
	}
}

func TestCreateDistribution_NoData(t *testing.T) {
	_, err := CreateDistribution(RiskData{}, risk.Normal)
	if err == nil {
		t.Fatalf("Expected error without any input data")
	}
	ve, ok := err.(*risk.ValidationError)
	if !ok {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if ve.Constraint != "required" {
		t.Errorf("Expected required constraint, got %q", ve.Constraint)
	}
}

func TestCreateDistribution_LogNormalPositivity(t *testing.T) {
	_, err := CreateDistribution(RiskData{HistoricalImpacts: []float64{5, -1, 7}}, risk.LogNormal)
	if err == nil {
		t.Fatalf("Expected error for non-positive historical data")
	}

	_, err = CreateDistribution(RiskData{ThreePoint: &ThreePointEstimate{Optimistic: -5, MostLikely: 10, Pessimistic: 20}}, risk.LogNormal)
	if err == nil {
		t.Fatalf("Expected error for non-positive three-point estimate")
	}
}

func TestCreateDistribution_PERTFromThreePoint(t *testing.T) {
	d, err := CreateDistribution(RiskData{ThreePoint: &ThreePointEstimate{Optimistic: 10, MostLikely: 20, Pessimistic: 40}}, risk.PERT)
	if err != nil {
		t.Fatalf("Expected creation to succeed, got %v", err)
	}
	want := (10 + 4*20 + 40) / 6.0
	if got := d.Mean(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected PERT mean %f, got %f", want, got)
	}
	lo, hi := d.Support()
	if lo != 10 || hi != 40 {
		t.Errorf("Expected support [10, 40], got [%f, %f]", lo, hi)
	}
}

func TestLogNormalFromMoments(t *testing.T) {
	mu, sigma := logNormalFromMoments(100, 30)
	d := risk.LogNormalDist{Mu: mu, Sigma: sigma}
	if got := d.Mean(); math.Abs(got-100) > 1e-6 {
		t.Errorf("Expected moment-matched mean 100, got %f", got)
	}
}
