// Package guard implements Sigma-Guard, the non-compensatory gate
// evaluator of spec 4.F: ten hard thresholds over one metric snapshot,
// verdict pass iff every gate passes.
package guard

// Snapshot is the metric evidence one Sigma-Guard evaluation runs
// against. A zero-valued float is indistinguishable from "the metric
// was legitimately zero" from Go's perspective, so callers must not
// omit a field they actually measured — Evaluate treats a field as
// present once it appears in this struct; true "missing metric"
// reporting is the caller's responsibility via Snapshot.Missing.
type Snapshot struct {
	ContractivityRho float64 // rho from pkg/mathkernel.VerifyContractive; gate wants rho < 1
	ECE              float64 // expected calibration error
	BiasRho          float64 // bias ratio rho_bias
	SROmega          float64 // SR-Omega-infinity reflexive score
	GlobalCoherence  float64 // G
	DeltaLInf        float64 // L-infinity improvement over champion
	CostIncreasePct  float64 // cost increase over champion, as a fraction (0.1 == 10%)
	CAOSPlusGain     float64 // kappa, the CAOS+ gain factor
	Consent          bool
	EcologicalOK     bool

	// HasChampionBaseline must be true for DeltaLInf and CostIncreasePct
	// to be evaluated at all; per spec 4.F edge cases, its absence fails
	// those two gates with reason "no champion baseline" rather than
	// silently skipping them.
	HasChampionBaseline bool

	// Missing names gates whose input metric was never collected (as
	// opposed to legitimately measured as zero). Each named gate fails
	// immediately with reason "missing" before its threshold is even
	// consulted.
	Missing map[GateName]bool
}

// Thresholds holds the ten gates' configured bounds, per spec 6. All
// fields are immutable within one Evaluate call.
type Thresholds struct {
	MaxECE             float64 // default 0.01
	MaxBiasRho         float64 // default 1.05
	MinSROmega         float64 // default 0.80
	MinGlobalCoherence float64 // default 0.85
	MinDeltaLInf       float64 // beta_min, default 0.01
	MaxCostIncreasePct float64 // default 0.10
	MinCAOSPlusGain    float64 // kappa floor, default 20
}

// DefaultThresholds returns the reference gate set's stated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxECE:             0.01,
		MaxBiasRho:         1.05,
		MinSROmega:         0.80,
		MinGlobalCoherence: 0.85,
		MinDeltaLInf:       0.01,
		MaxCostIncreasePct: 0.10,
		MinCAOSPlusGain:    20,
	}
}

// GateName identifies one of the ten gates, in their reference order.
type GateName string

const (
	GateContractivity  GateName = "contractivity"
	GateCalibration    GateName = "calibration"
	GateBias           GateName = "bias"
	GateReflexiveScore GateName = "reflexive_score"
	GateGlobalCoherence GateName = "global_coherence"
	GateMinImprovement GateName = "minimum_improvement"
	GateCostIncrease   GateName = "cost_increase"
	GateCAOSPlusGain   GateName = "caos_plus_gain"
	GateConsent        GateName = "consent"
	GateEcological     GateName = "ecological"
)

// GateOrder is the reference order the ten gates are evaluated and
// reported in.
var GateOrder = []GateName{
	GateContractivity,
	GateCalibration,
	GateBias,
	GateReflexiveScore,
	GateGlobalCoherence,
	GateMinImprovement,
	GateCostIncrease,
	GateCAOSPlusGain,
	GateConsent,
	GateEcological,
}

// GateResult is one gate's outcome: whether it passed, the value that
// was checked, the threshold it was checked against, and a short reason
// string populated on failure.
type GateResult struct {
	Name      GateName `json:"name"`
	Passed    bool     `json:"passed"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Reason    string   `json:"reason,omitempty"`
}

// Verdict is Sigma-Guard's output for one evaluation: the binding
// non-compensatory pass/fail plus the diagnostic-only aggregate.
type Verdict struct {
	Pass      bool         `json:"pass"`
	Gates     []GateResult `json:"gates"`
	Aggregate float64      `json:"aggregate"` // harmonic_mean(gate booleans); diagnostic only
	Reason    string       `json:"reason,omitempty"` // first failing gate's reason, if any
}
