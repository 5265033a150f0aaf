package attestation

import "errors"

// Sentinel errors for chain assembly and verification, per spec 7.
var (
	// ErrDuplicateService is returned when Chain.Add is called twice for
	// the same ServiceType — one validator gets exactly one vote.
	ErrDuplicateService = errors.New("attestation: duplicate service_type in chain")

	// ErrIncompleteChain is returned by Verify when the chain is missing
	// one of the required validators (SR-Omega-infinity, Sigma-Guard).
	ErrIncompleteChain = errors.New("attestation: chain missing required validator")

	// ErrInvalidAttestation is returned when an attestation's own
	// content_hash/signature fails Verify before it is ever added to a
	// chain.
	ErrInvalidAttestation = errors.New("attestation: invalid attestation")

	// ErrSubjectMismatch is returned when attestations in the same chain
	// disagree about which candidate they attest to.
	ErrSubjectMismatch = errors.New("attestation: subject_id mismatch within chain")
)
