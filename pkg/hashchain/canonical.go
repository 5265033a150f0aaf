package hashchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonicalize re-serializes arbitrary JSON-able data (struct, map, or raw
// JSON bytes) into the canonical form used for content hashing and signing
// everywhere in the PDC: object keys sorted lexicographically, no
// insignificant whitespace, UTF-8, numbers in Go's shortest round-trip
// form (as produced by encoding/json).
//
// Canonicalize accepts either a Go value (marshaled first) or raw JSON
// bytes (re-marshaled through the same sorting pass), so both "build a
// struct and hash it" and "re-parse stored JSON and re-hash it" callers
// get byte-identical output.
func Canonicalize(v any) ([]byte, error) {
	var raw json.RawMessage
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("hashchain: marshal for canonicalization: %w", err)
		}
		raw = b
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("hashchain: decode for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HashCanonical canonicalizes v and returns its BLAKE2b-256 digest as
// lowercase hex — the only supported structured-data hash.
func HashCanonical(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return SumBLAKE2b256(b), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(x.String())
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("hashchain: unsupported type %T in canonical form", v)
	}
	return nil
}
