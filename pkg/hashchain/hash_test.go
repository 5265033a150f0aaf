package hashchain

import (
	"encoding/json"
	"testing"
)

func TestSumBLAKE2b256Deterministic(t *testing.T) {
	a, err := Sum(AlgoBLAKE2b256, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sum(AlgoBLAKE2b256, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars (32 bytes), got %d", len(a))
	}
}

func TestSumUnknownAlgorithm(t *testing.T) {
	if _, err := Sum("md5", []byte("x")); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestKeyedDiffersFromUnkeyed(t *testing.T) {
	unkeyed := SumBLAKE2b256([]byte("data"))
	keyed, err := Keyed(AlgoBLAKE2b256, []byte("secret-key-material"), []byte("data"))
	if err != nil {
		t.Fatal(err)
	}
	if unkeyed == keyed {
		t.Fatal("keyed and unkeyed hashes should differ")
	}
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	type payload struct {
		B int    `json:"b"`
		A string `json:"a"`
	}
	out, err := Canonicalize(payload{B: 2, A: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"a":"x","b":2}` {
		t.Fatalf("unexpected canonical form: %s", out)
	}
}

func TestCanonicalizeIdempotentAcrossReparse(t *testing.T) {
	first, err := Canonicalize(map[string]any{"z": 1, "a": []any{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	var reparsed json.RawMessage = first
	second, err := Canonicalize(reparsed)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Fatalf("canonical form not idempotent: %s vs %s", first, second)
	}
}

func TestHashCanonicalStableUnderFieldOrder(t *testing.T) {
	h1, err := HashCanonical(map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashCanonical(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hash should be stable regardless of map iteration order: %s vs %s", h1, h2)
	}
}
