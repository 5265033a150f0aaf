package attestation

import (
	"testing"
	"time"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/sig"
)

func mustKey(t *testing.T) sig.KeyPair {
	t.Helper()
	kp, err := sig.Generate()
	if err != nil {
		t.Fatal(err)
	}
	return kp
}

func TestCreateVerifyRoundTrip(t *testing.T) {
	kp := mustKey(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	att, err := Create(ServiceSROmega, VerdictPass, "candidate-1", map[string]float64{"sr": 0.91}, now, kp)
	if err != nil {
		t.Fatal(err)
	}
	if ok, reason := Verify(att); !ok {
		t.Fatalf("expected attestation to verify, got: %s", reason)
	}
}

func TestVerifyFailsAfterMetricTamper(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	att, err := Create(ServiceSROmega, VerdictPass, "candidate-1", map[string]float64{"sr": 0.91}, now, kp)
	if err != nil {
		t.Fatal(err)
	}
	att.Metrics["sr"] = 0.50
	if ok, _ := Verify(att); ok {
		t.Fatal("expected verification to fail after metric tamper")
	}
}

func TestChainAddRejectsDuplicateService(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	att1, _ := Create(ServiceSROmega, VerdictPass, "candidate-1", nil, now, kp)
	if err := c.Add(att1); err != nil {
		t.Fatal(err)
	}
	att2, _ := Create(ServiceSROmega, VerdictFail, "candidate-1", nil, now, kp)
	if err := c.Add(att2); err == nil {
		t.Fatal("expected duplicate service_type to be rejected")
	}
}

func TestChainAddRejectsSubjectMismatch(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	att, _ := Create(ServiceSROmega, VerdictPass, "candidate-2", nil, now, kp)
	if err := c.Add(att); err == nil {
		t.Fatal("expected subject mismatch to be rejected")
	}
}

func TestChainIncompleteFailsVerify(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	att, _ := Create(ServiceSROmega, VerdictPass, "candidate-1", nil, now, kp)
	if err := c.Add(att); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Verify(); err == nil {
		t.Fatal("expected incomplete chain (missing Sigma-Guard) to fail verify")
	}
}

func TestChainCompleteVerifies(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	srAtt, _ := Create(ServiceSROmega, VerdictPass, "candidate-1", nil, now, kp)
	guardAtt, _ := Create(ServiceSigmaGuard, VerdictPass, "candidate-1", nil, now, kp)
	if err := c.Add(srAtt); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(guardAtt); err != nil {
		t.Fatal(err)
	}
	hash, err := c.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if hash == "" {
		t.Fatal("expected non-empty chain hash")
	}
}

func TestChainHashOrderSensitive(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()

	c1 := NewChain("candidate-1")
	srAtt, _ := Create(ServiceSROmega, VerdictPass, "candidate-1", nil, now, kp)
	guardAtt, _ := Create(ServiceSigmaGuard, VerdictPass, "candidate-1", nil, now, kp)
	c1.Add(srAtt)
	c1.Add(guardAtt)

	c2 := NewChain("candidate-1")
	c2.Add(guardAtt)
	c2.Add(srAtt)

	h1, err := c1.ChainHash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c2.ChainHash()
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("expected different chain_hash for different attestation order")
	}
}

func TestChainAnyFailed(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	srAtt, _ := Create(ServiceSROmega, VerdictFail, "candidate-1", nil, now, kp)
	c.Add(srAtt)
	if !c.AnyFailed() {
		t.Fatal("expected AnyFailed to be true")
	}
}

func TestChainCanonicalRoundTrip(t *testing.T) {
	kp := mustKey(t)
	now := time.Now()
	c := NewChain("candidate-1")
	srAtt, _ := Create(ServiceSROmega, VerdictPass, "candidate-1", map[string]float64{"sr": 0.9}, now, kp)
	guardAtt, _ := Create(ServiceSigmaGuard, VerdictPass, "candidate-1", nil, now, kp)
	c.Add(srAtt)
	c.Add(guardAtt)

	data, err := c.ToCanonical()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromCanonical(data)
	if err != nil {
		t.Fatal(err)
	}
	if restored.SubjectID != c.SubjectID || len(restored.Attestations) != len(c.Attestations) {
		t.Fatal("round-tripped chain does not match original")
	}
	if _, err := restored.Verify(); err != nil {
		t.Fatalf("restored chain should verify: %v", err)
	}
}
