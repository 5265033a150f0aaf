package guard

import "testing"

func passingSnapshot() Snapshot {
	return Snapshot{
		ContractivityRho:    0.85,
		ECE:                 0.008,
		BiasRho:             1.03,
		SROmega:             0.84,
		GlobalCoherence:     0.88,
		DeltaLInf:           0.03,
		CostIncreasePct:     0.08,
		CAOSPlusGain:        22,
		Consent:             true,
		EcologicalOK:        true,
		HasChampionBaseline: true,
	}
}

// TestEvaluateAllPass mirrors spec seed scenario S1 ("clean promotion"):
// every gate individually satisfied.
func TestEvaluateAllPass(t *testing.T) {
	v := Evaluate(passingSnapshot(), DefaultThresholds())
	if !v.Pass {
		t.Fatalf("expected pass, got fail with reason %q, gates %+v", v.Reason, v.Gates)
	}
	if v.Aggregate <= 0 {
		t.Fatal("expected positive diagnostic aggregate when all gates pass")
	}
}

// TestEvaluateBiasNearMissFails mirrors spec seed scenario S3: bias_rho
// 1.07 > 1.05 alone must flip the verdict to fail even though every
// other gate passes comfortably.
func TestEvaluateBiasNearMissFails(t *testing.T) {
	s := passingSnapshot()
	s.BiasRho = 1.07
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected fail on bias gate")
	}
	if v.Reason != "bias>1.05" {
		t.Fatalf("expected reason %q, got %q", "bias>1.05", v.Reason)
	}
}

// TestEvaluateNonCompensatorySingleFailure is spec invariant 8: exactly
// one failing gate, regardless of how well the others score, fails the
// whole verdict.
func TestEvaluateNonCompensatorySingleFailure(t *testing.T) {
	s := passingSnapshot()
	s.SROmega = 0.0 // far below threshold, everything else perfect
	s.ECE = 0.0
	s.BiasRho = 1.0
	s.GlobalCoherence = 1.0
	s.CAOSPlusGain = 1000
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected single failing gate to fail the whole verdict")
	}
}

func TestEvaluateMissingChampionBaselineFails(t *testing.T) {
	s := passingSnapshot()
	s.HasChampionBaseline = false
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected missing champion baseline to fail")
	}
	var minImprovement, costIncrease GateResult
	for _, g := range v.Gates {
		if g.Name == GateMinImprovement {
			minImprovement = g
		}
		if g.Name == GateCostIncrease {
			costIncrease = g
		}
	}
	if minImprovement.Reason != noChampionBaselineReason {
		t.Fatalf("expected minimum_improvement reason %q, got %q", noChampionBaselineReason, minImprovement.Reason)
	}
	if costIncrease.Reason != noChampionBaselineReason {
		t.Fatalf("expected cost_increase reason %q, got %q", noChampionBaselineReason, costIncrease.Reason)
	}
}

func TestEvaluateMissingMetricFailsWithMissingReason(t *testing.T) {
	s := passingSnapshot()
	s.Missing = map[GateName]bool{GateCalibration: true}
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected missing metric to fail its gate")
	}
	for _, g := range v.Gates {
		if g.Name == GateCalibration && g.Reason != "missing" {
			t.Fatalf("expected reason \"missing\", got %q", g.Reason)
		}
	}
}

func TestEvaluateAllGatesAlwaysReported(t *testing.T) {
	s := passingSnapshot()
	s.Consent = false
	v := Evaluate(s, DefaultThresholds())
	if len(v.Gates) != len(GateOrder) {
		t.Fatalf("expected all %d gates reported, got %d", len(GateOrder), len(v.Gates))
	}
}

func TestEvaluateConsentGateFailsAlone(t *testing.T) {
	s := passingSnapshot()
	s.Consent = false
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected fail when consent is false")
	}
}

func TestEvaluateEcologicalGateFailsAlone(t *testing.T) {
	s := passingSnapshot()
	s.EcologicalOK = false
	v := Evaluate(s, DefaultThresholds())
	if v.Pass {
		t.Fatal("expected fail when ecological check is false")
	}
}
