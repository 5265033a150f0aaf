package mathkernel

import (
	"math"
	"sort"
)

// RiskClassRatio is the per-class entropy ratio (after/before) computed by
// VerifyContractive, keyed by risk class name (idolatry, harm, privacy,
// bias, ecology, ...).
type RiskClassRatio struct {
	Class string
	Ratio float64
}

// VerifyContractive checks the IR->IC contractivity invariant: for every
// risk class k, H_after(k) <= rho * H_before(k), with 0 < rho < 1.
//
// Returns whether the aggregate check passed and the per-class ratios
// (after/before) for diagnostics, sorted by class name for determinism.
func VerifyContractive(before, after map[string]float64, rho float64) (bool, []RiskClassRatio, error) {
	if rho <= 0 || rho >= 1 {
		return false, nil, invalid("rho must be in (0,1), got %v", rho)
	}
	if len(before) == 0 {
		return false, nil, invalid("no risk classes supplied")
	}

	classes := make([]string, 0, len(before))
	for k := range before {
		classes = append(classes, k)
	}
	sort.Strings(classes)

	ratios := make([]RiskClassRatio, 0, len(classes))
	contractive := true
	for _, k := range classes {
		b := before[k]
		a, ok := after[k]
		if !ok {
			return false, nil, invalid("risk class %q missing from 'after' entropies", k)
		}
		if err := checkFinite("before:"+k, b); err != nil {
			return false, nil, err
		}
		if err := checkFinite("after:"+k, a); err != nil {
			return false, nil, err
		}
		if b < 0 || a < 0 {
			return false, nil, invalid("entropy for risk class %q must be >= 0", k)
		}

		var ratio float64
		switch {
		case b == 0 && a == 0:
			ratio = 0
		case b == 0:
			// Any positive entropy appearing from nothing is non-contractive.
			ratio = math.Inf(1)
		default:
			ratio = a / b
		}
		ratios = append(ratios, RiskClassRatio{Class: k, Ratio: ratio})

		if !(a <= rho*b) {
			contractive = false
		}
	}

	return contractive, ratios, nil
}
