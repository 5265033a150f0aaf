// Package ethics implements the fourteen-law ethics classifier of spec
// 4.I: a pluggable set of boolean oracles combined with a fixed AND —
// no law can be compensated by another, and any oracle that cannot
// produce a boolean counts as a failure.
package ethics

import "context"

// Law names one of the fourteen ethical checks. The set is fixed by the
// combiner, not by this list — a deployment is free to name its own
// laws, but Evaluate always ANDs whatever oracles it is given and
// fails closed on anything that errored.
type Law string

const (
	LawNoHarm            Law = "no_harm"
	LawNoDeception        Law = "no_deception"
	LawConsent            Law = "consent"
	LawPrivacy            Law = "privacy"
	LawFairness           Law = "fairness"
	LawTransparency       Law = "transparency"
	LawAccountability     Law = "accountability"
	LawAutonomy           Law = "autonomy"
	LawNonMaleficence     Law = "non_maleficence"
	LawBeneficence        Law = "beneficence"
	LawJustice            Law = "justice"
	LawDignity            Law = "dignity"
	LawSustainability     Law = "sustainability"
	LawProportionality    Law = "proportionality"
)

// Laws lists the fourteen reference laws in a fixed order, used when a
// caller wants the canonical set rather than a custom one.
var Laws = []Law{
	LawNoHarm, LawNoDeception, LawConsent, LawPrivacy, LawFairness,
	LawTransparency, LawAccountability, LawAutonomy, LawNonMaleficence,
	LawBeneficence, LawJustice, LawDignity, LawSustainability, LawProportionality,
}

// Signals is the classifier input: the candidate's textual and metric
// signals the oracles inspect. It is intentionally a thin, typed carrier
// rather than a free-form map — unknown keys have no meaning to an
// oracle that doesn't look for them.
type Signals struct {
	SubjectID string
	Text      map[string]string
	Metrics   map[string]float64
}

// Oracle evaluates one law against Signals. Implementations are
// supplied by the deployment (spec 4.I: "external collaborator can
// implement any of the 14 checks"); PDC core only owns the combiner.
type Oracle interface {
	Law() Law
	Check(ctx context.Context, s Signals) (bool, error)
}

// LawResult is one oracle's outcome, including whether it errored.
type LawResult struct {
	Law    Law    `json:"law"`
	Passed bool   `json:"passed"`
	Err    string `json:"error,omitempty"`
}

// Verdict is the classifier's aggregate output: every individual law
// result plus the fixed-AND combination.
type Verdict struct {
	Laws      []LawResult `json:"laws"`
	EthicsOK  bool        `json:"ethics_ok"`
}

// Evaluate runs every oracle against s and combines their results with a
// fixed AND: ethics_ok is true iff every oracle ran without error and
// returned true. An oracle that errors counts as a failed law — the
// classifier fails closed rather than skipping it.
func Evaluate(ctx context.Context, oracles []Oracle, s Signals) Verdict {
	results := make([]LawResult, len(oracles))
	ok := true
	for i, o := range oracles {
		passed, err := o.Check(ctx, s)
		r := LawResult{Law: o.Law(), Passed: passed}
		if err != nil {
			r.Passed = false
			r.Err = err.Error()
		}
		if !r.Passed {
			ok = false
		}
		results[i] = r
	}
	return Verdict{Laws: results, EthicsOK: ok}
}
