package guard

import (
	"fmt"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/mathkernel"
)

const noChampionBaselineReason = "no champion baseline"

// Evaluate runs all ten gates against snapshot under thresholds and
// returns the non-compensatory Verdict. Gates are accumulated in
// GateOrder regardless of earlier failures — every gate always runs, so
// auditors see the complete picture rather than a short-circuited one.
func Evaluate(snapshot Snapshot, thresholds Thresholds) Verdict {
	var gates []GateResult

	add := func(r GateResult) {
		if snapshot.Missing[r.Name] {
			r.Passed = false
			r.Reason = "missing"
		}
		gates = append(gates, r)
	}

	// 1. Contractivity: rho < 1.
	add(boolGate(GateContractivity, snapshot.ContractivityRho < 1.0, snapshot.ContractivityRho, 1.0, "contractivity_rho>=1"))

	// 2. Calibration: ECE <= max.
	add(boolGate(GateCalibration, snapshot.ECE <= thresholds.MaxECE, snapshot.ECE, thresholds.MaxECE, fmt.Sprintf("ece>%g", thresholds.MaxECE)))

	// 3. Bias: rho_bias <= max. Reason token is "bias>threshold" (seed
	// scenario S3 expects the literal "bias>1.05" at the default
	// threshold) so auditors can reconstruct the failure from the ledger
	// against the spec vocabulary without cross-referencing gate metadata.
	add(boolGate(GateBias, snapshot.BiasRho <= thresholds.MaxBiasRho, snapshot.BiasRho, thresholds.MaxBiasRho, fmt.Sprintf("bias>%g", thresholds.MaxBiasRho)))

	// 4. Reflexive score: SR-Omega-infinity >= min.
	add(boolGate(GateReflexiveScore, snapshot.SROmega >= thresholds.MinSROmega, snapshot.SROmega, thresholds.MinSROmega, fmt.Sprintf("sr_omega<%g", thresholds.MinSROmega)))

	// 5. Global coherence: G >= min.
	add(boolGate(GateGlobalCoherence, snapshot.GlobalCoherence >= thresholds.MinGlobalCoherence, snapshot.GlobalCoherence, thresholds.MinGlobalCoherence, fmt.Sprintf("coherence<%g", thresholds.MinGlobalCoherence)))

	// 6. Minimum improvement: Delta L-infinity >= beta_min. Requires a
	// champion baseline; its absence is itself a failure.
	if !snapshot.HasChampionBaseline {
		add(GateResult{Name: GateMinImprovement, Passed: false, Value: snapshot.DeltaLInf, Threshold: thresholds.MinDeltaLInf, Reason: noChampionBaselineReason})
	} else {
		add(boolGate(GateMinImprovement, snapshot.DeltaLInf >= thresholds.MinDeltaLInf, snapshot.DeltaLInf, thresholds.MinDeltaLInf, fmt.Sprintf("delta_linf<%g", thresholds.MinDeltaLInf)))
	}

	// 7. Cost increase: <= max fraction over champion. Same baseline
	// dependency as gate 6.
	if !snapshot.HasChampionBaseline {
		add(GateResult{Name: GateCostIncrease, Passed: false, Value: snapshot.CostIncreasePct, Threshold: thresholds.MaxCostIncreasePct, Reason: noChampionBaselineReason})
	} else {
		add(boolGate(GateCostIncrease, snapshot.CostIncreasePct <= thresholds.MaxCostIncreasePct, snapshot.CostIncreasePct, thresholds.MaxCostIncreasePct, fmt.Sprintf("cost_increase>%g", thresholds.MaxCostIncreasePct)))
	}

	// 8. CAOS+ gain: kappa >= floor.
	add(boolGate(GateCAOSPlusGain, snapshot.CAOSPlusGain >= thresholds.MinCAOSPlusGain, snapshot.CAOSPlusGain, thresholds.MinCAOSPlusGain, fmt.Sprintf("caos_gain<%g", thresholds.MinCAOSPlusGain)))

	// 9. Consent: must be true.
	add(flagGate(GateConsent, snapshot.Consent, "consent not granted"))

	// 10. Ecological: must be true.
	add(flagGate(GateEcological, snapshot.EcologicalOK, "ecological check failed"))

	return buildVerdict(gates)
}

func boolGate(name GateName, passed bool, value, threshold float64, reason string) GateResult {
	r := GateResult{Name: name, Passed: passed, Value: value, Threshold: threshold}
	if !passed {
		r.Reason = reason
	}
	return r
}

func flagGate(name GateName, ok bool, reason string) GateResult {
	v := 0.0
	if ok {
		v = 1.0
	}
	r := GateResult{Name: name, Passed: ok, Value: v, Threshold: 1.0}
	if !ok {
		r.Reason = reason
	}
	return r
}

func buildVerdict(gates []GateResult) Verdict {
	pass := true
	reason := ""
	metrics := make([]mathkernel.WeightedMetric, len(gates))
	weight := 1.0 / float64(len(gates))
	for i, g := range gates {
		if !g.Passed {
			pass = false
			if reason == "" {
				// Bare gate reason, not prefixed with the gate name: spec
				// seed scenarios document the literal token itself (e.g.
				// "bias>1.05"), and GateResult.Name is already available
				// alongside it in Gates for anything that needs the gate
				// identity too.
				reason = g.Reason
			}
		}
		v := 0.0
		if g.Passed {
			v = 1.0
		}
		metrics[i] = mathkernel.WeightedMetric{Name: string(g.Name), Weight: weight, Value: v}
	}
	aggregate, err := mathkernel.Harmonic(metrics, mathkernel.DefaultEpsilon)
	if err != nil {
		// Weights are constructed here to always sum to 1 and values are
		// always 0 or 1, so Harmonic cannot reject this input; if it
		// somehow did, a diagnostic-only 0 is the safe fallback.
		aggregate = 0
	}
	return Verdict{Pass: pass, Gates: gates, Aggregate: aggregate, Reason: reason}
}
