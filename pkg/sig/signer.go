// Package sig provides Ed25519 key lifecycle and sign/verify operations for
// the PDC, per spec 4.B. The byte sequence actually signed is always the
// BLAKE2b-256 content hash of a canonical payload, never the raw payload —
// callers in pkg/attestation rely on that to keep "verify signature" and
// "recompute content_hash" as independent checks over the same bytes.
//
// Key material lives only in process memory. Nothing in this package ever
// writes a private key to the ledger or an attestation.
package sig

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Error kinds for the signature service, per spec 7.
var (
	ErrMalformed = errors.New("sig: malformed key or signature")
	ErrMismatch  = errors.New("sig: signature verification failed")
	ErrKeyUnknown = errors.New("sig: key unknown")
)

// KeyPair is an in-memory Ed25519 keypair.
type KeyPair struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// Generate creates a fresh Ed25519 keypair using crypto/rand.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("sig: generate: %w", err)
	}
	return KeyPair{Public: pub, private: priv}, nil
}

// FromPrivateKeyHex reconstructs a KeyPair from a hex-encoded Ed25519
// private key (64 bytes: seed || public key, as crypto/ed25519 stores it).
func FromPrivateKeyHex(hexKey string) (KeyPair, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: invalid hex: %v", ErrMalformed, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return KeyPair{}, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrMalformed, ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	return KeyPair{Public: priv.Public().(ed25519.PublicKey), private: priv}, nil
}

// PrivateKeyHex returns the hex-encoded private key. Callers must treat
// this as sensitive; the PDC itself never persists it.
func (k KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(k.private)
}

// PublicKeyHex returns the hex-encoded public key (32 bytes).
func (k KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.Public)
}

// Sign signs message (expected to be a content_hash digest) and returns the
// 64-byte signature.
func (k KeyPair) Sign(message []byte) ([]byte, error) {
	if len(k.private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: keypair has no private key loaded", ErrMalformed)
	}
	return ed25519.Sign(k.private, message), nil
}

// Verify checks that signature over message is valid under publicKeyHex.
// Returns (false, nil) for a well-formed-but-invalid signature, and a
// non-nil error only for malformed inputs (wrong key/signature size, bad
// hex).
func Verify(publicKeyHex string, message, signature []byte) (bool, error) {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("%w: invalid public key hex: %v", ErrMalformed, err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrMalformed, ed25519.PublicKeySize, len(pub))
	}
	if len(signature) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: signature must be %d bytes, got %d", ErrMalformed, ed25519.SignatureSize, len(signature))
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature), nil
}

// VerifyHex is Verify with a hex-encoded signature, as stored on the wire.
func VerifyHex(publicKeyHex, messageHex, signatureHex string) (bool, error) {
	message, err := hex.DecodeString(messageHex)
	if err != nil {
		return false, fmt.Errorf("%w: invalid message hex: %v", ErrMalformed, err)
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false, fmt.Errorf("%w: invalid signature hex: %v", ErrMalformed, err)
	}
	return Verify(publicKeyHex, message, signature)
}
