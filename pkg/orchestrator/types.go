// Package orchestrator implements the promotion decision state machine
// of spec 4.H: Generated -> Shadow -> Canary -> Promoted/Rejected/RolledBack,
// each transition gated by Sigma-Guard and the SR-Omega-infinity
// validator, chain-verified, and sealed to the WORM ledger before the
// in-memory candidate state advances.
package orchestrator

import (
	"errors"
	"sync"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/guard"
)

// State is one candidate's position in the promotion state machine.
type State string

const (
	StateGenerated  State = "generated"
	StateShadow     State = "shadow"
	StateCanary     State = "canary"
	StatePromoted   State = "promoted"
	StateRejected   State = "rejected"
	StateRolledBack State = "rolled_back"
)

// ErrCancelled is surfaced by any long operation cancelled via its
// context, per spec 5. No ledger state beyond what was already sealed
// is mutated when this is returned.
var ErrCancelled = errors.New("orchestrator: cancelled")

// ErrInvalidTransition is returned when EvaluateCandidate is called on a
// candidate whose current state has no onward transition (Promoted,
// Rejected and RolledBack are terminal).
var ErrInvalidTransition = errors.New("orchestrator: no transition from current state")

// ErrCanarySlotBusy is returned when a candidate tries to enter Canary
// while another candidate already occupies the same champion slot.
var ErrCanarySlotBusy = errors.New("orchestrator: canary slot occupied by another candidate")

// Candidate is one challenger's mutable state in the promotion pipeline.
// Access is serialized by the Orchestrator's per-candidate lock; callers
// never see a torn read.
type Candidate struct {
	ID                 string
	ChampionSlot        string
	State               State
	RollbackCheckpoint string
	mu                  sync.Mutex
}

// EvalInput is everything one state transition's Sigma-Guard/SR-Omega
// evaluation needs. A fresh EvalInput is supplied at every transition —
// nothing here is cached across calls.
type EvalInput struct {
	Snapshot    guard.Snapshot
	SRScore     float64 // mathkernel.SROmega output for this evaluation
	EthicsOK    bool
	LInfValue   float64 // mathkernel.LInf output, informational / carried into the ledger payload
	CostValue   float64
}

// Decision is what one EvaluateCandidate call produced: the resulting
// state plus the artifacts an auditor would want to see.
type Decision struct {
	CandidateID string
	FromState   State
	ToState     State
	GuardVerdict guard.Verdict
	ChainHash   string
	Reason      string
}
