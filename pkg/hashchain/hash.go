// Package hashchain is the single module all hashing in the PDC goes
// through, per spec 4.C: "one module so algorithm changes are one-point."
//
// The primary algorithm is BLAKE2b-256. Legacy SHA-256 reads are tolerated
// when a ledger header declares it; new writes always use BLAKE2b. Keyed
// hashing uses BLAKE2b's native keyed mode, falling back to HMAC-SHA-256
// for legacy.
package hashchain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Algorithm identifies a hash algorithm by its ledger-header name.
type Algorithm string

const (
	AlgoBLAKE2b256 Algorithm = "blake2b-256"
	AlgoSHA256     Algorithm = "sha256"
)

// ZeroHash is 64 lowercase '0' characters, used as prev_hash for sequence 0
// and as the Merkle root of an empty ledger.
const ZeroHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ErrUnknownAlgorithm is returned for any Algorithm value other than the
// ones this package implements.
var ErrUnknownAlgorithm = errors.New("hashchain: unknown algorithm")

// Sum computes the digest of data under the given algorithm and returns it
// as lowercase hex.
func Sum(algo Algorithm, data []byte) (string, error) {
	switch algo {
	case AlgoBLAKE2b256, "":
		h := blake2b.Sum256(data)
		return hex.EncodeToString(h[:]), nil
	case AlgoSHA256:
		h := sha256.Sum256(data)
		return hex.EncodeToString(h[:]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

// SumBLAKE2b256 is a convenience wrapper for the (default, write-path)
// algorithm.
func SumBLAKE2b256(data []byte) string {
	h := blake2b.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Keyed computes a keyed MAC of data under the given algorithm: BLAKE2b's
// native keyed mode for the primary algorithm, HMAC-SHA-256 for legacy.
func Keyed(algo Algorithm, key, data []byte) (string, error) {
	switch algo {
	case AlgoBLAKE2b256, "":
		h, err := blake2b.New256(key)
		if err != nil {
			return "", fmt.Errorf("hashchain: keyed blake2b-256: %w", err)
		}
		h.Write(data)
		return hex.EncodeToString(h.Sum(nil)), nil
	case AlgoSHA256:
		mac := hmac.New(sha256.New, key)
		mac.Write(data)
		return hex.EncodeToString(mac.Sum(nil)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
}

// CombinePair hashes left||right under the given algorithm — the canonical
// Merkle node compression used by the ledger's Merkle tree.
func CombinePair(algo Algorithm, left, right []byte) (string, error) {
	combined := make([]byte, 0, len(left)+len(right))
	combined = append(combined, left...)
	combined = append(combined, right...)
	return Sum(algo, combined)
}

// DecodeHex decodes a lowercase hex digest, rejecting anything that isn't
// exactly the digest length in bytes (32, for both supported algorithms).
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hashchain: invalid hex: %w", err)
	}
	if len(b) != blake2b.Size256 {
		return nil, fmt.Errorf("hashchain: digest must be %d bytes, got %d", blake2b.Size256, len(b))
	}
	return b, nil
}
