package ledger

import "time"

// EventType distinguishes the kinds of records the WORM ledger carries,
// per spec 6. Every promotion-orchestrator state transition and every
// emitted PCAg is ledgered as one of these.
type EventType string

const (
	EventCandidateRegistered EventType = "candidate_registered"
	EventShadowStarted       EventType = "shadow_started"
	EventShadowCompleted     EventType = "shadow_completed"
	EventCanaryStarted       EventType = "canary_started"
	EventCanaryObservation   EventType = "canary_observation"
	EventGuardVerdict        EventType = "guard_verdict"
	EventAttestationChain    EventType = "attestation_chain"
	EventPromoted            EventType = "promoted"
	EventRejected            EventType = "rejected"
	EventRolledBack          EventType = "rolled_back"
	EventPCAgEmitted         EventType = "pcag_emitted"
)

// Event is one append-only record in the ledger. Its fields follow the
// order spec 3 and 6 fix (sequence, event_type, event_id, timestamp_utc,
// payload, prev_hash, event_hash), with payload_hash added after payload;
// on disk each event is one canonical JSON line, so its keys appear
// sorted. Sequence, EventID, PayloadHash, PrevHash and EventHash are
// computed by Append; callers supply Type, Payload and the timestamp.
type Event struct {
	Sequence     uint64          `json:"sequence"`
	Type         EventType       `json:"event_type"`
	EventID      string          `json:"event_id"`
	TimestampUTC time.Time       `json:"timestamp_utc"`
	Payload      any             `json:"payload"`
	PayloadHash  string          `json:"payload_hash"`
	PrevHash     string          `json:"prev_hash"`
	EventHash    string          `json:"event_hash"`
}

// Header is the first line of a ledger file, written once at creation
// and never rewritten.
type Header struct {
	FormatVersion int       `json:"format_version"`
	GenesisHash   string    `json:"genesis_hash"`
	CreatedUTC    time.Time `json:"created_utc"`
	HashAlgorithm string    `json:"hash_algorithm"`
}

const CurrentFormatVersion = 1
