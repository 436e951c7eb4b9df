package analysis

import (
	"testing"
)

func TestValueAtRisk_MonotoneInConfidence(t *testing.T) {
	results := fakeResults(normalCosts(10000, 100000, 25000, 4))

	prev := 0.0
	for i, conf := range []float64{0.5, 0.8, 0.9, 0.95, 0.99} {
		v, err := ValueAtRisk(results, OutcomeCost, conf)
		if err != nil {
			t.Fatalf("Expected VaR at %.2f to compute, got %v", conf, err)
		}
		if i > 0 && v < prev {
			t.Errorf("VaR decreased with confidence: %.2f gave %f after %f", conf, v, prev)
		}
		prev = v
	}
}

func TestValueAtRisk_WithinRange(t *testing.T) {
	costs := []float64{10, 20, 30, 40, 50}
	results := fakeResults(costs)
	v, err := ValueAtRisk(results, OutcomeCost, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if v < 10 || v > 50 {
		t.Errorf("Expected VaR within observed range [10, 50], got %f", v)
	}
}

func TestConditionalValueAtRisk_AtLeastVaR(t *testing.T) {
	results := fakeResults(normalCosts(10000, 100000, 25000, 5))

	for _, conf := range []float64{0.8, 0.9, 0.95} {
		v, err := ValueAtRisk(results, OutcomeCost, conf)
		if err != nil {
			t.Fatal(err)
		}
		cv, err := ConditionalValueAtRisk(results, OutcomeCost, conf)
		if err != nil {
			t.Fatal(err)
		}
		if cv < v {
			t.Errorf("CVaR %f below VaR %f at confidence %.2f", cv, v, conf)
		}
	}
}

func TestValueAtRisk_BadConfidence(t *testing.T) {
	results := fakeResults([]float64{1, 2, 3})
	if _, err := ValueAtRisk(results, OutcomeCost, 0); err == nil {
		t.Errorf("Expected error for confidence 0")
	}
	if _, err := ValueAtRisk(results, OutcomeCost, 1); err == nil {
		t.Errorf("Expected error for confidence 1")
	}
	if _, err := ConditionalValueAtRisk(results, OutcomeCost, 1.5); err == nil {
		t.Errorf("Expected error for confidence above 1")
	}
}
