// Package mathkernel implements the pure, deterministic scoring algebra that
// feeds Sigma-Guard: the harmonic aggregator, the L-infinity meta-function,
// the CAOS+ modulator, and the SR-Omega-infinity reflective score.
//
// Every function here is side-effect free: same inputs, same outputs, no
// clock, no RNG, no I/O. Callers that need smoothing across calls (CAOS+'s
// EMA) pass the smoothing state in and get the updated state back.
package mathkernel

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for any input that violates the numeric
// invariants documented per function: weights that don't sum to 1, metrics
// outside [0,1], NaN/Inf, or negative values where none are allowed.
var ErrInvalidInput = errors.New("mathkernel: invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// WeightTolerance is the allowed slack around weights summing to 1.
const WeightTolerance = 1e-6

// DefaultEpsilon is the harmonic-mean floor (epsilon) used to avoid
// division by zero, per spec 4.A.
const DefaultEpsilon = 1e-3

// WeightedMetric pairs a metric value with its non-negative weight.
type WeightedMetric struct {
	Name   string
	Weight float64
	Value  float64
}

func checkFinite(label string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s is NaN or Inf", label)
	}
	return nil
}

// normalizeZero maps -0.0 to 0.0; all other values pass through unchanged.
func normalizeZero(v float64) float64 {
	if v == 0 {
		return 0.0
	}
	return v
}

// Harmonic computes H({(w_i, m_i)}) = 1 / sum(w_i / max(epsilon, m_i)).
//
// Weights must sum to 1 within WeightTolerance. Any m_i < 0 is rejected;
// m_i == 0 is replaced by epsilon in the denominator (never division by
// zero). epsilon <= 0 is replaced with DefaultEpsilon.
func Harmonic(metrics []WeightedMetric, epsilon float64) (float64, error) {
	if len(metrics) == 0 {
		return 0, invalid("no metrics supplied")
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	var weightSum, denom float64
	for _, m := range metrics {
		if err := checkFinite("weight:"+m.Name, m.Weight); err != nil {
			return 0, err
		}
		if err := checkFinite("metric:"+m.Name, m.Value); err != nil {
			return 0, err
		}
		if m.Weight < 0 {
			return 0, invalid("weight for %q is negative", m.Name)
		}
		if m.Value < 0 {
			return 0, invalid("metric %q is negative", m.Name)
		}
		weightSum += m.Weight

		v := normalizeZero(m.Value)
		floor := v
		if floor < epsilon {
			floor = epsilon
		}
		denom += m.Weight / floor
	}

	if math.Abs(weightSum-1.0) > WeightTolerance {
		return 0, invalid("weights sum to %.9f, want 1 +/- %.1e", weightSum, WeightTolerance)
	}
	if denom <= 0 {
		return 0, invalid("harmonic denominator collapsed to zero")
	}
	return 1.0 / denom, nil
}

// LInfParams holds the gating inputs for the L-infinity meta-function.
type LInfParams struct {
	Metrics         []WeightedMetric
	Epsilon         float64 // harmonic floor, defaults to DefaultEpsilon
	Cost            float64 // cost_normalized, >= 0
	LambdaC         float64 // cost penalty coefficient, [0,5], default 0.5
	EthicsOK        bool
	ContractivityOK bool
}

// DefaultLambdaC is the default cost-penalty coefficient lambda_c.
const DefaultLambdaC = 0.5

// LInf computes L_inf = H * exp(-lambda_c * cost) * 1[ethics_ok AND contractivity_ok].
//
// If either gate is false the result is exactly 0.0 (fail-closed) — the
// harmonic mean and cost term are not even evaluated in that case beyond
// what's needed to validate inputs, preserving the "no NaN ever" property.
// A metric of exactly zero also yields 0.0: the epsilon floor keeps the
// harmonic sum finite but does not let a zero metric score.
func LInf(p LInfParams) (float64, error) {
	if p.Cost < 0 {
		return 0, invalid("cost must be >= 0, got %v", p.Cost)
	}
	if err := checkFinite("cost", p.Cost); err != nil {
		return 0, err
	}
	lambdaC := p.LambdaC
	if lambdaC == 0 {
		lambdaC = DefaultLambdaC
	}
	if lambdaC < 0 || lambdaC > 5 {
		return 0, invalid("lambda_c must be in [0,5], got %v", lambdaC)
	}

	h, err := Harmonic(p.Metrics, p.Epsilon)
	if err != nil {
		return 0, err
	}

	if !p.EthicsOK || !p.ContractivityOK {
		return 0.0, nil
	}
	for _, m := range p.Metrics {
		if m.Value == 0 {
			return 0.0, nil
		}
	}

	result := h * math.Exp(-lambdaC*p.Cost)
	return normalizeZero(result), nil
}

// CAOSComponents holds the four CAOS+ subscores, each required to be in
// [0,1]: Consistency, Autoevolution, unknOwable (epistemic), and Silence.
type CAOSComponents struct {
	C, A, O, S float64
}

func (c CAOSComponents) validate() error {
	for name, v := range map[string]float64{"C": c.C, "A": c.A, "O": c.O, "S": c.S} {
		if err := checkFinite(name, v); err != nil {
			return err
		}
		if v < 0 || v > 1 {
			return invalid("CAOS+ component %s must be in [0,1], got %v", name, v)
		}
	}
	return nil
}

// CAOSParams configures the CAOS+ modulator.
type CAOSParams struct {
	Kappa   float64 // kappa >= 1, default 20
	CAOSMin float64 // output clamp floor, default 1.0
	CAOSMax float64 // output clamp ceiling, default 10.0
}

// DefaultKappa, DefaultCAOSMin, DefaultCAOSMax are the spec 4.A defaults.
const (
	DefaultKappa   = 20.0
	DefaultCAOSMin = 1.0
	DefaultCAOSMax = 10.0
)

// CAOSPlus computes (1 + kappa*C*A)^(O*S), clamped to [caos_min, caos_max].
func CAOSPlus(c CAOSComponents, p CAOSParams) (float64, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}
	kappa := p.Kappa
	if kappa == 0 {
		kappa = DefaultKappa
	}
	if kappa < 1 {
		return 0, invalid("kappa must be >= 1, got %v", kappa)
	}
	lo, hi := p.CAOSMin, p.CAOSMax
	if lo == 0 && hi == 0 {
		lo, hi = DefaultCAOSMin, DefaultCAOSMax
	}

	base := 1 + kappa*c.C*c.A
	exp := c.O * c.S
	raw := math.Pow(base, exp)

	if raw < lo {
		raw = lo
	}
	if raw > hi {
		raw = hi
	}
	return raw, nil
}

// EMAState holds the exponential-moving-average state for CAOS+ component
// smoothing across successive calls. It is passed in and returned
// explicitly; mathkernel holds no hidden state of its own.
type EMAState struct {
	Initialized bool
	C, A, O, S  float64
}

// SmoothCAOS applies an EMA with the given half-life (in number-of-calls
// units) to each CAOS+ component and returns both the smoothed components
// and the updated state.
func SmoothCAOS(raw CAOSComponents, halfLife float64, state EMAState) (CAOSComponents, EMAState, error) {
	if err := raw.validate(); err != nil {
		return CAOSComponents{}, state, err
	}
	if halfLife <= 0 {
		return raw, EMAState{Initialized: true, C: raw.C, A: raw.A, O: raw.O, S: raw.S}, nil
	}
	if !state.Initialized {
		next := EMAState{Initialized: true, C: raw.C, A: raw.A, O: raw.O, S: raw.S}
		return raw, next, nil
	}

	// alpha such that weight halves every halfLife calls: alpha = 1 - 0.5^(1/halfLife)
	alpha := 1 - math.Pow(0.5, 1.0/halfLife)
	smoothed := CAOSComponents{
		C: state.C + alpha*(raw.C-state.C),
		A: state.A + alpha*(raw.A-state.A),
		O: state.O + alpha*(raw.O-state.O),
		S: state.S + alpha*(raw.S-state.S),
	}
	next := EMAState{Initialized: true, C: smoothed.C, A: smoothed.A, O: smoothed.O, S: smoothed.S}
	return smoothed, next, nil
}

// SRComponents holds the four SR-Omega-infinity axes.
type SRComponents struct {
	Awareness      float64
	EthicsOK       bool
	Autocorrection float64
	Metacognition  float64
}

// EpsilonEthics is the tiny positive value substituted for the ethics axis
// when ethics_ok is false, so R collapses toward 0 without producing NaN.
const EpsilonEthics = 1e-3

// SROmega computes R = harmonic_mean(awareness, ethics_axis, autocorrection,
// metacognition), where ethics_axis is 1.0 if EthicsOK else EpsilonEthics.
func SROmega(c SRComponents) (float64, error) {
	for name, v := range map[string]float64{
		"awareness": c.Awareness, "autocorrection": c.Autocorrection, "metacognition": c.Metacognition,
	} {
		if err := checkFinite(name, v); err != nil {
			return 0, err
		}
		if v < 0 || v > 1 {
			return 0, invalid("SR-Omega component %s must be in [0,1], got %v", name, v)
		}
	}

	ethicsAxis := EpsilonEthics
	if c.EthicsOK {
		ethicsAxis = 1.0
	}

	metrics := []WeightedMetric{
		{Name: "awareness", Weight: 0.25, Value: c.Awareness},
		{Name: "ethics_axis", Weight: 0.25, Value: ethicsAxis},
		{Name: "autocorrection", Weight: 0.25, Value: c.Autocorrection},
		{Name: "metacognition", Weight: 0.25, Value: c.Metacognition},
	}
	r, err := Harmonic(metrics, DefaultEpsilon)
	if err != nil {
		return 0, err
	}
	if r > 1 {
		r = 1
	}
	return r, nil
}

// DefaultGamma is the default step-saturation coefficient gamma.
const DefaultGamma = 0.8

// EffectiveStep computes alpha_eff = alpha0 * tanh(gamma * log(CAOS+)) * R,
// gamma in (0,2].
func EffectiveStep(alpha0, caosPlus, gamma, r float64) (float64, error) {
	if caosPlus <= 0 {
		return 0, invalid("CAOS+ must be > 0 to take its log, got %v", caosPlus)
	}
	if gamma == 0 {
		gamma = DefaultGamma
	}
	if gamma <= 0 || gamma > 2 {
		return 0, invalid("gamma must be in (0,2], got %v", gamma)
	}
	if r < 0 || r > 1 {
		return 0, invalid("R must be in [0,1], got %v", r)
	}
	return alpha0 * math.Tanh(gamma*math.Log(caosPlus)) * r, nil
}
