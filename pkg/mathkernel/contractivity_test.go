package mathkernel

import "testing"

func TestVerifyContractivePass(t *testing.T) {
	before := map[string]float64{"harm": 1.0, "bias": 2.0}
	after := map[string]float64{"harm": 0.5, "bias": 1.0}
	ok, ratios, err := VerifyContractive(before, after, 0.85)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected contractive, ratios=%+v", ratios)
	}
	for _, r := range ratios {
		if r.Ratio > 0.85 {
			t.Fatalf("ratio for %s (%v) should be <= rho 0.85", r.Class, r.Ratio)
		}
	}
}

func TestVerifyContractiveFail(t *testing.T) {
	before := map[string]float64{"harm": 1.0}
	after := map[string]float64{"harm": 0.95}
	ok, _, err := VerifyContractive(before, after, 0.85)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected non-contractive result")
	}
}

func TestVerifyContractiveMonotonicity(t *testing.T) {
	before := map[string]float64{"a": 1.0, "b": 1.0}
	after := map[string]float64{"a": 0.4, "b": 0.4}
	ok, ratios, err := VerifyContractive(before, after, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected contractive")
	}
	for _, r := range ratios {
		if r.Ratio > 0.5 {
			t.Fatalf("monotonicity violated for class %s", r.Class)
		}
	}
}

func TestVerifyContractiveRejectsBadRho(t *testing.T) {
	before := map[string]float64{"a": 1.0}
	after := map[string]float64{"a": 0.5}
	if _, _, err := VerifyContractive(before, after, 1.5); err == nil {
		t.Fatal("expected error for rho outside (0,1)")
	}
}

func TestVerifyContractiveMissingClass(t *testing.T) {
	before := map[string]float64{"a": 1.0, "b": 1.0}
	after := map[string]float64{"a": 0.5}
	if _, _, err := VerifyContractive(before, after, 0.8); err == nil {
		t.Fatal("expected error for missing risk class in after")
	}
}
