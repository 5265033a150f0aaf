package ethics

import (
	"context"
	"errors"
	"testing"
)

type fixedOracle struct {
	law    Law
	passed bool
	err    error
}

func (o fixedOracle) Law() Law { return o.law }
func (o fixedOracle) Check(ctx context.Context, s Signals) (bool, error) {
	return o.passed, o.err
}

func allPassOracles() []Oracle {
	out := make([]Oracle, len(Laws))
	for i, l := range Laws {
		out[i] = fixedOracle{law: l, passed: true}
	}
	return out
}

func TestEvaluateAllPassYieldsEthicsOK(t *testing.T) {
	v := Evaluate(context.Background(), allPassOracles(), Signals{SubjectID: "c1"})
	if !v.EthicsOK {
		t.Fatal("expected ethics_ok true when every law passes")
	}
	if len(v.Laws) != 14 {
		t.Fatalf("expected 14 law results, got %d", len(v.Laws))
	}
}

func TestEvaluateSingleFailureCollapsesAggregate(t *testing.T) {
	oracles := allPassOracles()
	oracles[7] = fixedOracle{law: Laws[7], passed: false}
	v := Evaluate(context.Background(), oracles, Signals{SubjectID: "c1"})
	if v.EthicsOK {
		t.Fatal("expected ethics_ok false when any single law fails")
	}
}

func TestEvaluateOracleErrorFailsClosed(t *testing.T) {
	oracles := allPassOracles()
	oracles[3] = fixedOracle{law: Laws[3], passed: true, err: errors.New("dependency unavailable")}
	v := Evaluate(context.Background(), oracles, Signals{SubjectID: "c1"})
	if v.EthicsOK {
		t.Fatal("expected ethics_ok false when an oracle errors, regardless of its reported boolean")
	}
	found := false
	for _, r := range v.Laws {
		if r.Law == Laws[3] {
			found = true
			if r.Passed {
				t.Fatal("expected errored oracle's law result to be recorded as failed")
			}
			if r.Err == "" {
				t.Fatal("expected error message to be recorded")
			}
		}
	}
	if !found {
		t.Fatal("expected law result for the errored oracle")
	}
}
