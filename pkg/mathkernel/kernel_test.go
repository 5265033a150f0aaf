package mathkernel

import (
	"errors"
	"math"
	"testing"
)

func TestHarmonicEqualWeights(t *testing.T) {
	metrics := []WeightedMetric{
		{Name: "acc", Weight: 0.4, Value: 0.85},
		{Name: "robust", Weight: 0.4, Value: 0.78},
		{Name: "priv", Weight: 0.2, Value: 0.92},
	}
	h, err := Harmonic(metrics, DefaultEpsilon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Harmonic mean is never greater than the minimum metric.
	min := 0.78
	if h > min+1e-9 {
		t.Fatalf("harmonic %v exceeds min metric %v", h, min)
	}
}

func TestHarmonicRejectsBadWeights(t *testing.T) {
	metrics := []WeightedMetric{
		{Name: "a", Weight: 0.5, Value: 0.5},
		{Name: "b", Weight: 0.6, Value: 0.5},
	}
	if _, err := Harmonic(metrics, DefaultEpsilon); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHarmonicRejectsNegativeMetric(t *testing.T) {
	metrics := []WeightedMetric{{Name: "a", Weight: 1.0, Value: -0.1}}
	if _, err := Harmonic(metrics, DefaultEpsilon); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLInfEthicsGateForcesZero(t *testing.T) {
	p := LInfParams{
		Metrics:         []WeightedMetric{{Name: "a", Weight: 1.0, Value: 0.9}},
		Cost:            0.1,
		EthicsOK:        false,
		ContractivityOK: true,
	}
	v, err := LInf(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.0 {
		t.Fatalf("expected exactly 0.0 when ethics_ok=false, got %v", v)
	}
}

func TestLInfContractivityGateForcesZero(t *testing.T) {
	p := LInfParams{
		Metrics:         []WeightedMetric{{Name: "a", Weight: 1.0, Value: 0.9}},
		Cost:            0.1,
		EthicsOK:        true,
		ContractivityOK: false,
	}
	v, err := LInf(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0.0 {
		t.Fatalf("expected exactly 0.0 when contractivity_ok=false, got %v", v)
	}
}

func TestLInfZeroMetricNegligible(t *testing.T) {
	p := LInfParams{
		Metrics: []WeightedMetric{
			{Name: "acc", Weight: 0.5, Value: 0.0},
			{Name: "robust", Weight: 0.5, Value: 0.9},
		},
		Cost:            0.1,
		EthicsOK:        true,
		ContractivityOK: true,
	}
	v, err := LInf(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v > 1e-9 {
		t.Fatalf("expected L_inf negligible for a zero metric, got %v", v)
	}
}

func TestLInfMonotoneNondecreasing(t *testing.T) {
	base := LInfParams{
		Metrics: []WeightedMetric{
			{Name: "acc", Weight: 0.5, Value: 0.6},
			{Name: "robust", Weight: 0.5, Value: 0.6},
		},
		Cost:            0.1,
		EthicsOK:        true,
		ContractivityOK: true,
	}
	v1, err := LInf(base)
	if err != nil {
		t.Fatal(err)
	}
	bumped := base
	bumped.Metrics = []WeightedMetric{
		{Name: "acc", Weight: 0.5, Value: 0.7},
		{Name: "robust", Weight: 0.5, Value: 0.6},
	}
	v2, err := LInf(bumped)
	if err != nil {
		t.Fatal(err)
	}
	if v2 < v1 {
		t.Fatalf("increasing a metric decreased L_inf: %v -> %v", v1, v2)
	}
}

func TestCAOSPlusZeroComponent(t *testing.T) {
	v, err := CAOSPlus(CAOSComponents{C: 0, A: 0.5, O: 0.5, S: 0.5}, CAOSParams{})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-1.0) > 1e-9 {
		t.Fatalf("CAOS+(0,.,.,.) should be 1, got %v", v)
	}
}

func TestCAOSPlusMonotone(t *testing.T) {
	v1, err := CAOSPlus(CAOSComponents{C: 0.5, A: 0.5, O: 0.5, S: 0.5}, CAOSParams{})
	if err != nil {
		t.Fatal(err)
	}
	v2, err := CAOSPlus(CAOSComponents{C: 0.6, A: 0.5, O: 0.5, S: 0.5}, CAOSParams{})
	if err != nil {
		t.Fatal(err)
	}
	if v2 < v1 {
		t.Fatalf("CAOS+ not monotone nondecreasing in C: %v -> %v", v1, v2)
	}
}

func TestCAOSPlusRejectsOutOfRange(t *testing.T) {
	_, err := CAOSPlus(CAOSComponents{C: 1.5, A: 0.5, O: 0.5, S: 0.5}, CAOSParams{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCAOSPlusClamped(t *testing.T) {
	v, err := CAOSPlus(CAOSComponents{C: 1, A: 1, O: 1, S: 1}, CAOSParams{Kappa: 1000, CAOSMax: 10})
	if err != nil {
		t.Fatal(err)
	}
	if v > 10.0+1e-9 {
		t.Fatalf("expected clamp to 10.0, got %v", v)
	}
}

func TestSROmegaEthicsCollapse(t *testing.T) {
	r, err := SROmega(SRComponents{Awareness: 0.9, EthicsOK: false, Autocorrection: 0.9, Metacognition: 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if r > 0.01 {
		t.Fatalf("expected R to collapse toward 0 when ethics_ok=false, got %v", r)
	}
	if math.IsNaN(r) {
		t.Fatal("R must not be NaN")
	}
}

func TestSmoothCAOSFirstCallPassesThrough(t *testing.T) {
	raw := CAOSComponents{C: 0.5, A: 0.5, O: 0.5, S: 0.5}
	smoothed, state, err := SmoothCAOS(raw, 4, EMAState{})
	if err != nil {
		t.Fatal(err)
	}
	if smoothed != raw {
		t.Fatalf("first call should pass through unchanged, got %+v", smoothed)
	}
	if !state.Initialized {
		t.Fatal("expected state to be initialized")
	}
}

func TestSmoothCAOSConverges(t *testing.T) {
	state := EMAState{}
	raw := CAOSComponents{C: 0, A: 0, O: 0, S: 0}
	_, state, _ = SmoothCAOS(raw, 2, state)
	target := CAOSComponents{C: 1, A: 1, O: 1, S: 1}
	var smoothed CAOSComponents
	for i := 0; i < 50; i++ {
		smoothed, state, _ = SmoothCAOS(target, 2, state)
	}
	if math.Abs(smoothed.C-1.0) > 1e-6 {
		t.Fatalf("EMA failed to converge toward target, got %v", smoothed.C)
	}
}

func TestEffectiveStepRejectsBadGamma(t *testing.T) {
	_, err := EffectiveStep(1.0, 2.0, 3.0, 0.5)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
