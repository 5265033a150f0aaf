// Package attestation implements the validator attestation and attestation
// chain described in spec 3 and 4.D: a signed verdict from one validator
// service about one candidate, and the ordered, hash-linked composition of
// several validators' attestations into one verifiable chain.
package attestation

import (
	"encoding/hex"
	"time"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/hashchain"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/sig"
)

// ServiceType identifies which validator produced an attestation.
type ServiceType string

const (
	ServiceSROmega  ServiceType = "SR-Omega-infinity"
	ServiceSigmaGuard ServiceType = "Sigma-Guard"
	// Extensions beyond the two required validators are deployment-defined;
	// ACFA is the third signer mentioned in some source material (spec 9
	// Open Questions) and is supported here as an ordinary extension.
	ServiceACFA ServiceType = "ACFA"
)

// Verdict is one validator's individual verdict on a candidate.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictFail   Verdict = "fail"
	VerdictCanary Verdict = "canary"
)

// Attestation is a single validator's signed verdict on one candidate, per
// spec 3. Once Sign has produced ContentHash/PublicKey/Signature, an
// Attestation must never be mutated — the chain that holds it only reads
// it by value.
type Attestation struct {
	ServiceType ServiceType        `json:"service_type"`
	VerdictVal  Verdict            `json:"verdict"`
	SubjectID   string             `json:"subject_id"`
	Metrics     map[string]float64 `json:"metrics"`
	TimestampUTC time.Time         `json:"timestamp_utc"`

	// ContentHash is BLAKE2b-256 over the canonical JSON of all fields
	// above. It is computed once, at signing time, and never recomputed
	// in place — Verify recomputes it fresh into a local variable for
	// comparison.
	ContentHash string `json:"content_hash"`
	PublicKey   string `json:"public_key"` // 32 bytes, hex
	Signature   string `json:"signature"`  // 64 bytes, hex
}

// signingFields is the subset of Attestation whose canonical JSON feeds
// ContentHash — i.e. everything except ContentHash/PublicKey/Signature
// themselves.
type signingFields struct {
	ServiceType  ServiceType        `json:"service_type"`
	Verdict      Verdict            `json:"verdict"`
	SubjectID    string             `json:"subject_id"`
	Metrics      map[string]float64 `json:"metrics"`
	TimestampUTC time.Time          `json:"timestamp_utc"`
}

func (a Attestation) fields() signingFields {
	return signingFields{
		ServiceType:  a.ServiceType,
		Verdict:      a.VerdictVal,
		SubjectID:    a.SubjectID,
		Metrics:      a.Metrics,
		TimestampUTC: a.TimestampUTC,
	}
}

// computeContentHash recomputes BLAKE2b-256 over the canonical JSON of the
// signing fields.
func (a Attestation) computeContentHash() (string, error) {
	return hashchain.HashCanonical(a.fields())
}

// Create builds and signs a new Attestation. The timestamp is captured at
// call time (now); the caller supplies it so the function stays
// deterministic and testable — pass time.Now() in production code.
func Create(serviceType ServiceType, verdict Verdict, subjectID string, metrics map[string]float64, now time.Time, key sig.KeyPair) (Attestation, error) {
	a := Attestation{
		ServiceType:  serviceType,
		VerdictVal:   verdict,
		SubjectID:    subjectID,
		Metrics:      metrics,
		TimestampUTC: now.UTC(),
		PublicKey:    key.PublicKeyHex(),
	}

	contentHash, err := a.computeContentHash()
	if err != nil {
		return Attestation{}, err
	}
	a.ContentHash = contentHash

	msg, err := hashchain.DecodeHex(contentHash)
	if err != nil {
		return Attestation{}, err
	}
	signature, err := key.Sign(msg)
	if err != nil {
		return Attestation{}, err
	}
	a.Signature = hex.EncodeToString(signature)

	return a, nil
}

// Verify recomputes content_hash from the attestation's fields and checks
// it against the stored value, then verifies the Ed25519 signature over
// that hash. Both checks must pass for Verify to return true.
func Verify(a Attestation) (bool, string) {
	recomputed, err := a.computeContentHash()
	if err != nil {
		return false, "content_hash recomputation failed: " + err.Error()
	}
	if recomputed != a.ContentHash {
		return false, "content_hash mismatch"
	}

	msg, err := hashchain.DecodeHex(a.ContentHash)
	if err != nil {
		return false, "invalid content_hash hex: " + err.Error()
	}
	sigBytes, err := hex.DecodeString(a.Signature)
	if err != nil {
		return false, "invalid signature hex: " + err.Error()
	}
	ok, err := sig.Verify(a.PublicKey, msg, sigBytes)
	if err != nil {
		return false, "signature verification error: " + err.Error()
	}
	if !ok {
		return false, "signature invalid"
	}
	return true, ""
}
