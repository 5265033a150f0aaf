package pcag

import (
	"testing"
	"time"
)

func sampleParams() BuildParams {
	return BuildParams{
		ArtifactID:           "artifact-1",
		Type:                 "promotion_proof",
		ParentRunID:          "run-1",
		SubjectID:            "candidate-1",
		Metrics:              map[string]float64{"linf": 0.738},
		Gates:                []string{"contractivity:pass"},
		Decision:             Decision{Verdict: "promoted", Reason: "all gates passed"},
		ConfigHash:           "abc",
		CodeHash:             "def",
		DataHash:             "ghi",
		AttestationChainHash: "jkl",
		Now:                  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildRejectsNonPromotedDecision(t *testing.T) {
	p := sampleParams()
	p.Decision.Verdict = "rejected"
	if _, err := Build(p); err != ErrRejectedDecision {
		t.Fatalf("expected ErrRejectedDecision, got %v", err)
	}
}

func TestBuildVerifyRoundTrip(t *testing.T) {
	a, err := Build(sampleParams())
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify(a)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected freshly built artifact to verify")
	}
}

func TestVerifyFailsAfterTamper(t *testing.T) {
	a, err := Build(sampleParams())
	if err != nil {
		t.Fatal(err)
	}
	a.Decision.Reason = "tampered"
	ok, err := Verify(a)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected verification to fail after mutating decision reason")
	}
}
