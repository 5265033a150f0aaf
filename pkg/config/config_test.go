package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoThresholdsFile(t *testing.T) {
	os.Setenv("PDC_SIGNING_KEY_PATH", "/tmp/key")
	defer os.Unsetenv("PDC_SIGNING_KEY_PATH")

	b, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if b.Kappa != 20.0 {
		t.Fatalf("expected default kappa 20.0, got %v", b.Kappa)
	}
	if len(b.RequiredValidators) != 2 {
		t.Fatalf("expected 2 default required validators, got %d", len(b.RequiredValidators))
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected valid bundle, got: %v", err)
	}
}

func TestLoadParsesYAMLThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thresholds.yaml")
	yamlContent := []byte("kappa: 25.5\nguard:\n  max_ece: 0.02\n")
	if err := os.WriteFile(path, yamlContent, 0o600); err != nil {
		t.Fatal(err)
	}

	os.Setenv("PDC_SIGNING_KEY_PATH", "/tmp/key")
	defer os.Unsetenv("PDC_SIGNING_KEY_PATH")

	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Kappa != 25.5 {
		t.Fatalf("expected kappa 25.5 from YAML, got %v", b.Kappa)
	}
	if b.Guard.MaxECE != 0.02 {
		t.Fatalf("expected max_ece 0.02 from YAML, got %v", b.Guard.MaxECE)
	}
}

func TestValidateRejectsMissingSigningKeyPath(t *testing.T) {
	os.Unsetenv("PDC_SIGNING_KEY_PATH")
	b, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Validate(); err == nil {
		t.Fatal("expected validation error for missing signing key path")
	}
}

func TestValidateRejectsOutOfRangeLambdaC(t *testing.T) {
	os.Setenv("PDC_SIGNING_KEY_PATH", "/tmp/key")
	defer os.Unsetenv("PDC_SIGNING_KEY_PATH")

	b, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	b.LambdaC = 10
	if err := b.Validate(); err == nil {
		t.Fatal("expected validation error for lambda_c out of range")
	}
}
