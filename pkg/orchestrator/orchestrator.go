package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/anchorsink"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/attestation"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/guard"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/ledger"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/pcag"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/sig"
)

// AuditSink mirrors one sealed ledger event into an external store.
// pkg/auditsink's PostgresSink and FirestoreSink both satisfy it. A
// mirror failure is logged and never blocks or reverses a promotion
// decision already sealed in the ledger.
type AuditSink interface {
	MirrorEvent(ctx context.Context, ev ledger.Event) error
}

// Anchor submits the ledger's Merkle root to an external chain, tagged
// with the ledger sequence it covers. pkg/anchorsink.EthereumAnchor
// satisfies it. It runs once per promotion; its failure is logged and
// never reverses the decision already sealed in the ledger.
type Anchor interface {
	Anchor(ctx context.Context, merkleRootHex string, ledgerSequence uint64) (anchorsink.Receipt, error)
}

// Orchestrator runs the promotion state machine across many candidates
// concurrently. Within one candidate's lifecycle transitions are
// strictly sequential (enforced by the candidate's own lock); across
// candidates there is no ordering guarantee except the Canary
// mutual-exclusion per champion slot.
type Orchestrator struct {
	logger *log.Logger

	ledger *ledger.Ledger

	// signingKeys holds one Ed25519 keypair per validator service, so
	// SR-Omega-infinity and Sigma-Guard attestations are never signed
	// with the same key.
	signingKeys map[attestation.ServiceType]sig.KeyPair

	guardThresholds guard.Thresholds

	candidatesMu sync.Mutex
	candidates   map[string]*Candidate

	canarySlotsMu sync.Mutex
	canarySlots   map[string]string // championSlot -> candidateID currently occupying it

	auditSinks []AuditSink
	anchor     Anchor
}

// Option configures optional Orchestrator behavior beyond the required
// ledger, signing keys and thresholds.
type Option func(*Orchestrator)

// WithAuditSinks registers external mirrors for every sealed ledger
// event. Mirroring is best-effort: a sink error is logged and does not
// affect the promotion decision already sealed in the ledger.
func WithAuditSinks(sinks ...AuditSink) Option {
	return func(o *Orchestrator) {
		o.auditSinks = append(o.auditSinks, sinks...)
	}
}

// WithAnchor registers an external chain anchor for the ledger's
// Merkle root, submitted once per promotion.
func WithAnchor(a Anchor) Option {
	return func(o *Orchestrator) {
		o.anchor = a
	}
}

// New builds an Orchestrator around an already-opened ledger and the
// validator signing keys for SR-Omega-infinity and Sigma-Guard.
func New(l *ledger.Ledger, signingKeys map[attestation.ServiceType]sig.KeyPair, thresholds guard.Thresholds, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:          log.New(log.Writer(), "[Orchestrator] ", log.LstdFlags),
		ledger:          l,
		signingKeys:     signingKeys,
		guardThresholds: thresholds,
		candidates:      make(map[string]*Candidate),
		canarySlots:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// appendAndMirror appends one event to the ledger and, on success,
// best-effort mirrors it to every configured audit sink.
func (o *Orchestrator) appendAndMirror(ctx context.Context, eventType ledger.EventType, payload any, now time.Time) (ledger.Event, error) {
	ev, err := o.ledger.Append(eventType, payload, now)
	if err != nil {
		return ledger.Event{}, err
	}
	o.mirror(ctx, ev)
	return ev, nil
}

// mirror fans one sealed event out to every configured audit sink. A
// sink error is logged, not returned: per pkg/auditsink's own
// invariant, external copies are advisory and must never retroactively
// fail a decision already sealed in the ledger.
func (o *Orchestrator) mirror(ctx context.Context, ev ledger.Event) {
	for _, sink := range o.auditSinks {
		if err := sink.MirrorEvent(ctx, ev); err != nil {
			o.logger.Printf("audit sink mirror failed for event %d (%s): %v", ev.Sequence, ev.Type, err)
		}
	}
}

// RegisterCandidate adds a new candidate in the Generated state and
// ledgers its registration.
func (o *Orchestrator) RegisterCandidate(ctx context.Context, candidateID, championSlot string, now time.Time) (*Candidate, error) {
	o.candidatesMu.Lock()
	if _, exists := o.candidates[candidateID]; exists {
		o.candidatesMu.Unlock()
		return nil, fmt.Errorf("orchestrator: candidate %s already registered", candidateID)
	}
	c := &Candidate{ID: candidateID, ChampionSlot: championSlot, State: StateGenerated}
	o.candidates[candidateID] = c
	o.candidatesMu.Unlock()

	if _, err := o.appendAndMirror(ctx, ledger.EventCandidateRegistered, map[string]any{
		"candidate_id":  candidateID,
		"champion_slot": championSlot,
	}, now); err != nil {
		return nil, fmt.Errorf("orchestrator: ledgering registration: %w", err)
	}
	return c, nil
}

// Get returns the candidate by ID, or nil if unregistered.
func (o *Orchestrator) Get(candidateID string) *Candidate {
	o.candidatesMu.Lock()
	defer o.candidatesMu.Unlock()
	return o.candidates[candidateID]
}

// evaluableStates lists the states of spec 4.H's state machine from which
// EvaluateCandidate may attempt a transition at all. The target state is
// chosen per outcome in transitionToShadow, transitionFromShadow and
// transitionFromCanary, not here.
var evaluableStates = map[State]bool{
	StateGenerated: true,
	StateShadow:    true,
	StateCanary:    true,
}

// EvaluateCandidate runs one state-machine transition for candidateID:
// evaluates Sigma-Guard and the SR-Omega-infinity validator, composes
// and verifies their attestation chain, ledgers the outcome, and only
// then advances (or rolls back) the in-memory candidate state.
func (o *Orchestrator) EvaluateCandidate(ctx context.Context, candidateID string, in EvalInput, now time.Time) (Decision, error) {
	c := o.Get(candidateID)
	if c == nil {
		return Decision{}, fmt.Errorf("orchestrator: unknown candidate %s", candidateID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !evaluableStates[c.State] {
		return Decision{}, fmt.Errorf("%w: candidate %s is in terminal state %s", ErrInvalidTransition, candidateID, c.State)
	}

	if c.State == StateGenerated {
		return o.transitionToShadow(ctx, c, in, now)
	}
	if c.State == StateShadow {
		return o.transitionFromShadow(ctx, c, in, now)
	}
	return o.transitionFromCanary(ctx, c, in, now)
}

func (o *Orchestrator) transitionToShadow(ctx context.Context, c *Candidate, in EvalInput, now time.Time) (Decision, error) {
	select {
	case <-ctx.Done():
		return Decision{}, ErrCancelled
	default:
	}
	if _, err := o.appendAndMirror(ctx, ledger.EventShadowStarted, map[string]any{"candidate_id": c.ID}, now); err != nil {
		return Decision{}, fmt.Errorf("orchestrator: ledgering shadow start: %w", err)
	}
	c.State = StateShadow
	return Decision{CandidateID: c.ID, FromState: StateGenerated, ToState: StateShadow, Reason: "accepted into shadow"}, nil
}

func (o *Orchestrator) transitionFromShadow(ctx context.Context, c *Candidate, in EvalInput, now time.Time) (Decision, error) {
	verdict, chain, chainHash, err := o.evaluateGates(ctx, c, in, now)
	if err != nil {
		return Decision{}, err
	}

	if !verdict.Pass {
		if err := o.ledgerNegativeOutcome(ctx, c, ledger.EventRejected, verdict, chain, chainHash, "shadow metrics failed guard", now); err != nil {
			return Decision{}, err
		}
		c.State = StateRejected
		return Decision{CandidateID: c.ID, FromState: StateShadow, ToState: StateRejected, GuardVerdict: verdict, ChainHash: chainHash, Reason: verdict.Reason}, nil
	}

	if err := o.acquireCanarySlot(c); err != nil {
		if lerr := o.ledgerNegativeOutcome(ctx, c, ledger.EventRejected, verdict, chain, chainHash, err.Error(), now); lerr != nil {
			return Decision{}, lerr
		}
		c.State = StateRejected
		return Decision{}, err
	}

	payload := map[string]any{
		"candidate_id": c.ID,
		"chain_hash":   chainHash,
		"chain":        chain,
	}
	if _, err := o.appendAndMirror(ctx, ledger.EventShadowCompleted, payload, now); err != nil {
		o.releaseCanarySlot(c)
		return Decision{}, fmt.Errorf("orchestrator: ledgering shadow completion: %w", err)
	}
	c.State = StateCanary
	return Decision{CandidateID: c.ID, FromState: StateShadow, ToState: StateCanary, GuardVerdict: verdict, ChainHash: chainHash, Reason: "shadow metrics passed guard"}, nil
}

func (o *Orchestrator) transitionFromCanary(ctx context.Context, c *Candidate, in EvalInput, now time.Time) (Decision, error) {
	verdict, chain, chainHash, err := o.evaluateGates(ctx, c, in, now)
	if err != nil {
		return Decision{}, err
	}

	if !verdict.Pass {
		o.releaseCanarySlot(c)
		if err := o.ledgerNegativeOutcome(ctx, c, ledger.EventRolledBack, verdict, chain, chainHash, "canary chain failed guard", now); err != nil {
			return Decision{}, err
		}
		c.State = StateRolledBack
		return Decision{CandidateID: c.ID, FromState: StateCanary, ToState: StateRolledBack, GuardVerdict: verdict, ChainHash: chainHash, Reason: verdict.Reason}, nil
	}

	artifactID := fmt.Sprintf("pcag-%s-%s", c.ID, uuid.New().String())
	artifact, err := pcag.Build(pcag.BuildParams{
		ArtifactID:           artifactID,
		Type:                 "promotion_proof",
		ParentRunID:          c.ID,
		SubjectID:            c.ID,
		Metrics:              map[string]float64{"linf": in.LInfValue, "cost": in.CostValue, "sr_omega": in.SRScore},
		Gates:                verdict.Gates,
		Decision:             pcag.Decision{Verdict: "promoted", Reason: "canary chain passed guard"},
		AttestationChainHash: chainHash,
		Now:                  now,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("orchestrator: building PCAg: %w", err)
	}

	payload := map[string]any{
		"candidate_id": c.ID,
		"chain_hash":   chainHash,
		"chain":        chain,
	}
	if _, err := o.appendAndMirror(ctx, ledger.EventPromoted, payload, now); err != nil {
		return Decision{}, fmt.Errorf("orchestrator: ledgering promotion: %w", err)
	}
	pcagEvent, err := o.appendAndMirror(ctx, ledger.EventPCAgEmitted, artifact, now)
	if err != nil {
		return Decision{}, fmt.Errorf("orchestrator: ledgering PCAg: %w", err)
	}

	o.anchorPromotion(ctx, pcagEvent.Sequence)

	o.releaseCanarySlot(c)
	c.State = StatePromoted
	return Decision{CandidateID: c.ID, FromState: StateCanary, ToState: StatePromoted, GuardVerdict: verdict, ChainHash: chainHash, Reason: "promoted"}, nil
}

// anchorPromotion submits the ledger's current Merkle root to the
// configured external chain anchor, tagged with the sequence of the
// pcag_emitted event that closed out this promotion. A no-op when no
// anchor is configured; a failure is logged, not propagated, since the
// promotion is already sealed in the ledger by the time this runs.
func (o *Orchestrator) anchorPromotion(ctx context.Context, ledgerSequence uint64) {
	if o.anchor == nil {
		return
	}
	root, err := o.ledger.MerkleRoot()
	if err != nil {
		o.logger.Printf("computing merkle root for anchor: %v", err)
		return
	}
	if _, err := o.anchor.Anchor(ctx, root, ledgerSequence); err != nil {
		o.logger.Printf("anchoring merkle root failed: %v", err)
	}
}

// Cancel ledgers a rollback with reason "cancelled" and releases any
// canary slot the candidate held, per spec 4.H.
func (o *Orchestrator) Cancel(ctx context.Context, c *Candidate, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State == StatePromoted || c.State == StateRejected || c.State == StateRolledBack {
		return fmt.Errorf("%w: candidate %s already terminal", ErrInvalidTransition, c.ID)
	}
	o.releaseCanarySlot(c)
	if _, err := o.appendAndMirror(ctx, ledger.EventRolledBack, map[string]any{
		"candidate_id": c.ID,
		"reason":       "cancelled",
	}, now); err != nil {
		return fmt.Errorf("orchestrator: ledgering cancellation: %w", err)
	}
	c.State = StateRolledBack
	return nil
}

// evaluateGates runs Sigma-Guard and produces the two required
// validator attestations (SR-Omega-infinity first, Sigma-Guard second —
// spec 4.H's canonical insertion order), composes and verifies the
// chain.
func (o *Orchestrator) evaluateGates(ctx context.Context, c *Candidate, in EvalInput, now time.Time) (guard.Verdict, *attestation.Chain, string, error) {
	select {
	case <-ctx.Done():
		return guard.Verdict{}, nil, "", ErrCancelled
	default:
	}

	verdict := guard.Evaluate(in.Snapshot, o.guardThresholds)

	srKey, ok := o.signingKeys[attestation.ServiceSROmega]
	if !ok {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: no signing key for %s", attestation.ServiceSROmega)
	}
	guardKey, ok := o.signingKeys[attestation.ServiceSigmaGuard]
	if !ok {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: no signing key for %s", attestation.ServiceSigmaGuard)
	}

	srVerdict := attestation.VerdictPass
	if in.SRScore < o.guardThresholds.MinSROmega || !in.EthicsOK {
		srVerdict = attestation.VerdictFail
	}
	srAtt, err := attestation.Create(attestation.ServiceSROmega, srVerdict, c.ID, map[string]float64{"sr_omega": in.SRScore}, now, srKey)
	if err != nil {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: signing SR-Omega-infinity attestation: %w", err)
	}

	guardVerdict := attestation.VerdictPass
	if !verdict.Pass {
		guardVerdict = attestation.VerdictFail
	}
	guardAtt, err := attestation.Create(attestation.ServiceSigmaGuard, guardVerdict, c.ID, map[string]float64{"aggregate": verdict.Aggregate}, now, guardKey)
	if err != nil {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: signing Sigma-Guard attestation: %w", err)
	}

	chain := attestation.NewChain(c.ID)
	if err := chain.Add(srAtt); err != nil {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: adding SR-Omega-infinity attestation to chain: %w", err)
	}
	if err := chain.Add(guardAtt); err != nil {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: adding Sigma-Guard attestation to chain: %w", err)
	}

	chainHash, err := chain.Verify()
	if err != nil {
		return guard.Verdict{}, nil, "", fmt.Errorf("orchestrator: verifying attestation chain: %w", err)
	}

	// A fail verdict from any attestation in the chain overrides a
	// numerically passing Sigma-Guard verdict (a failing guard verdict
	// has already produced a failing Sigma-Guard attestation), so no
	// validator's failure is compensated by another's pass. The
	// reason token mirrors the spec's documented vocabulary (seed
	// scenario S2: ethics_ok=false alone fails the verdict with that
	// exact reason) so auditors can reconstruct the failure from the
	// ledger without inspecting the raw attestation chain.
	if chain.AnyFailed() && verdict.Pass {
		verdict.Pass = false
		switch {
		case !in.EthicsOK:
			verdict.Reason = "ethics_ok=false"
		case verdict.Reason == "":
			verdict.Reason = "validator attestation chain carries a fail verdict"
		}
	}

	return verdict, chain, chainHash, nil
}

func (o *Orchestrator) ledgerNegativeOutcome(ctx context.Context, c *Candidate, eventType ledger.EventType, verdict guard.Verdict, chain *attestation.Chain, chainHash, reason string, now time.Time) error {
	payload := map[string]any{
		"candidate_id": c.ID,
		"reason":       reason,
		"chain_hash":   chainHash,
	}
	if verdict.Gates != nil {
		payload["gates"] = verdict.Gates
	}
	if chain != nil {
		payload["chain"] = chain
	}
	if _, err := o.appendAndMirror(ctx, eventType, payload, now); err != nil {
		return fmt.Errorf("orchestrator: ledgering %s: %w", eventType, err)
	}
	return nil
}

func (o *Orchestrator) acquireCanarySlot(c *Candidate) error {
	o.canarySlotsMu.Lock()
	defer o.canarySlotsMu.Unlock()
	if holder, occupied := o.canarySlots[c.ChampionSlot]; occupied && holder != c.ID {
		return fmt.Errorf("%w: slot %s held by %s", ErrCanarySlotBusy, c.ChampionSlot, holder)
	}
	o.canarySlots[c.ChampionSlot] = c.ID
	return nil
}

func (o *Orchestrator) releaseCanarySlot(c *Candidate) {
	o.canarySlotsMu.Lock()
	defer o.canarySlotsMu.Unlock()
	if o.canarySlots[c.ChampionSlot] == c.ID {
		delete(o.canarySlots, c.ChampionSlot)
	}
}

