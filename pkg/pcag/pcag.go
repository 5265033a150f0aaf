// Package pcag builds the Proof-Carrying Artifact of spec 4.G: the
// self-describing proof an external auditor needs to reverify a
// promotion decision without access to anything but the ledger.
package pcag

import (
	"errors"
	"time"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/hashchain"
)

// ErrRejectedDecision is returned by Build when asked to build an
// artifact for anything other than a promotion — per spec 4.G, a PCAg
// must never be emitted for a decision the guard rejected.
var ErrRejectedDecision = errors.New("pcag: must not be built for a non-promoted decision")

// Decision mirrors the orchestrator's final verdict for the one
// candidate this artifact proves.
type Decision struct {
	Verdict            string `json:"verdict"` // always "promoted" for a built PCAg
	Reason             string `json:"reason"`
	RollbackCheckpoint string `json:"rollback_checkpoint,omitempty"`
}

// Artifact is the Proof-Carrying Artifact itself.
type Artifact struct {
	ArtifactID           string             `json:"artifact_id"`
	Type                 string             `json:"type"`
	ParentRunID          string             `json:"parent_run_id"`
	SubjectID            string             `json:"subject_id"`
	Metrics              map[string]float64 `json:"metrics"`
	Gates                any                `json:"gates"` // []guard.GateResult from the orchestrator; any JSON-encodable value is accepted
	Decision             Decision           `json:"decision"`
	ConfigHash           string             `json:"config_hash"`
	CodeHash             string             `json:"code_hash"`
	DataHash             string             `json:"data_hash"`
	AttestationChainHash string             `json:"attestation_chain_hash"`
	CreatedUTC           time.Time          `json:"created_utc"`
	ArtifactHash         string             `json:"artifact_hash"`
}

// BuildParams collects everything Build needs to assemble one artifact.
type BuildParams struct {
	ArtifactID           string
	Type                 string
	ParentRunID          string
	SubjectID            string
	Metrics              map[string]float64
	Gates                any
	Decision             Decision
	ConfigHash           string
	CodeHash             string
	DataHash             string
	AttestationChainHash string
	Now                  time.Time
}

// unsignedFields is everything artifact_hash commits to — the full
// artifact minus the hash field itself.
type unsignedFields struct {
	ArtifactID           string             `json:"artifact_id"`
	Type                 string             `json:"type"`
	ParentRunID          string             `json:"parent_run_id"`
	SubjectID            string             `json:"subject_id"`
	Metrics              map[string]float64 `json:"metrics"`
	Gates                any                `json:"gates"`
	Decision             Decision           `json:"decision"`
	ConfigHash           string             `json:"config_hash"`
	CodeHash             string             `json:"code_hash"`
	DataHash             string             `json:"data_hash"`
	AttestationChainHash string             `json:"attestation_chain_hash"`
	CreatedUTC           time.Time          `json:"created_utc"`
}

// Build assembles and hashes a PCAg. It refuses any Decision.Verdict
// other than "promoted" — rejections and rollbacks are ledgered, but
// they never get a PCAg.
func Build(p BuildParams) (Artifact, error) {
	if p.Decision.Verdict != "promoted" {
		return Artifact{}, ErrRejectedDecision
	}

	unsigned := unsignedFields{
		ArtifactID:           p.ArtifactID,
		Type:                 p.Type,
		ParentRunID:          p.ParentRunID,
		SubjectID:            p.SubjectID,
		Metrics:              p.Metrics,
		Gates:                p.Gates,
		Decision:             p.Decision,
		ConfigHash:           p.ConfigHash,
		CodeHash:             p.CodeHash,
		DataHash:             p.DataHash,
		AttestationChainHash: p.AttestationChainHash,
		CreatedUTC:           p.Now.UTC(),
	}
	artifactHash, err := hashchain.HashCanonical(unsigned)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		ArtifactID:           unsigned.ArtifactID,
		Type:                 unsigned.Type,
		ParentRunID:          unsigned.ParentRunID,
		SubjectID:            unsigned.SubjectID,
		Metrics:              unsigned.Metrics,
		Gates:                unsigned.Gates,
		Decision:             unsigned.Decision,
		ConfigHash:           unsigned.ConfigHash,
		CodeHash:             unsigned.CodeHash,
		DataHash:             unsigned.DataHash,
		AttestationChainHash: unsigned.AttestationChainHash,
		CreatedUTC:           unsigned.CreatedUTC,
		ArtifactHash:         artifactHash,
	}, nil
}

// Verify recomputes artifact_hash and checks it against the stored
// value — the second of the three checks spec 4.G gives an auditor.
func Verify(a Artifact) (bool, error) {
	unsigned := unsignedFields{
		ArtifactID:           a.ArtifactID,
		Type:                 a.Type,
		ParentRunID:          a.ParentRunID,
		SubjectID:            a.SubjectID,
		Metrics:              a.Metrics,
		Gates:                a.Gates,
		Decision:             a.Decision,
		ConfigHash:           a.ConfigHash,
		CodeHash:             a.CodeHash,
		DataHash:             a.DataHash,
		AttestationChainHash: a.AttestationChainHash,
		CreatedUTC:           a.CreatedUTC,
	}
	recomputed, err := hashchain.HashCanonical(unsigned)
	if err != nil {
		return false, err
	}
	return recomputed == a.ArtifactHash, nil
}
