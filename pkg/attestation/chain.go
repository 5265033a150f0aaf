package attestation

import (
	"encoding/json"
	"fmt"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/hashchain"
)

// RequiredServices lists the validators whose attestation a chain must
// carry before Verify will consider it complete, per spec 4.D. Deployments
// may add further signers (see ServiceACFA) but these two are the
// non-negotiable floor.
var RequiredServices = []ServiceType{ServiceSROmega, ServiceSigmaGuard}

// Chain is the ordered, hash-linked composition of one or more validators'
// attestations about a single candidate. Attestations are stored in the
// order they were added; chain_hash commits to that order.
type Chain struct {
	SubjectID    string        `json:"subject_id"`
	Attestations []Attestation `json:"attestations"`
}

// NewChain starts an empty chain for subjectID.
func NewChain(subjectID string) *Chain {
	return &Chain{SubjectID: subjectID}
}

// Add appends att to the chain. It rejects attestations for a different
// subject, a service_type already present in the chain, or an attestation
// that does not self-verify (bad content_hash or signature).
func (c *Chain) Add(att Attestation) error {
	if c.SubjectID != "" && att.SubjectID != c.SubjectID {
		return fmt.Errorf("%w: chain subject %q, attestation subject %q", ErrSubjectMismatch, c.SubjectID, att.SubjectID)
	}
	for _, existing := range c.Attestations {
		if existing.ServiceType == att.ServiceType {
			return fmt.Errorf("%w: %s", ErrDuplicateService, att.ServiceType)
		}
	}
	if ok, reason := Verify(att); !ok {
		return fmt.Errorf("%w: %s", ErrInvalidAttestation, reason)
	}
	if c.SubjectID == "" {
		c.SubjectID = att.SubjectID
	}
	c.Attestations = append(c.Attestations, att)
	return nil
}

// HasService reports whether the chain already carries an attestation
// from serviceType.
func (c *Chain) HasService(serviceType ServiceType) bool {
	for _, a := range c.Attestations {
		if a.ServiceType == serviceType {
			return true
		}
	}
	return false
}

// IsComplete reports whether every entry in RequiredServices has a
// corresponding attestation in the chain.
func (c *Chain) IsComplete() bool {
	for _, required := range RequiredServices {
		if !c.HasService(required) {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any attestation in the chain carries a fail
// verdict. A promotion decision must treat this as fail-closed regardless
// of what other validators said.
func (c *Chain) AnyFailed() bool {
	for _, a := range c.Attestations {
		if a.VerdictVal == VerdictFail {
			return true
		}
	}
	return false
}

// ChainHash commits to every attestation's content_hash in chain order:
// BLAKE2b-256 over the canonical JSON array of content_hash strings. Two
// chains with the same attestations in a different order hash
// differently — order is part of what is attested to.
func (c *Chain) ChainHash() (string, error) {
	hashes := make([]string, len(c.Attestations))
	for i, a := range c.Attestations {
		hashes[i] = a.ContentHash
	}
	return hashchain.HashCanonical(hashes)
}

// Verify checks that the chain is complete (carries every required
// validator), that every attestation self-verifies, that all
// attestations share one subject_id, and that no validator appears
// twice. It returns the chain_hash on success.
func (c *Chain) Verify() (chainHash string, err error) {
	if len(c.Attestations) == 0 {
		return "", fmt.Errorf("%w: empty chain", ErrIncompleteChain)
	}
	seen := make(map[ServiceType]bool, len(c.Attestations))
	for _, a := range c.Attestations {
		if a.SubjectID != c.SubjectID {
			return "", fmt.Errorf("%w: %s", ErrSubjectMismatch, a.SubjectID)
		}
		if seen[a.ServiceType] {
			return "", fmt.Errorf("%w: %s", ErrDuplicateService, a.ServiceType)
		}
		seen[a.ServiceType] = true
		if ok, reason := Verify(a); !ok {
			return "", fmt.Errorf("%w: %s: %s", ErrInvalidAttestation, a.ServiceType, reason)
		}
	}
	if !c.IsComplete() {
		return "", fmt.Errorf("%w: have %d attestations, need %v", ErrIncompleteChain, len(c.Attestations), RequiredServices)
	}
	return c.ChainHash()
}

// ToCanonical serializes the chain to its canonical JSON form, suitable
// for ledgering or hashing as a unit.
func (c *Chain) ToCanonical() ([]byte, error) {
	return hashchain.Canonicalize(c)
}

// FromCanonical parses a chain previously produced by ToCanonical.
func FromCanonical(data []byte) (*Chain, error) {
	var c Chain
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("attestation: decode chain: %w", err)
	}
	return &c, nil
}
