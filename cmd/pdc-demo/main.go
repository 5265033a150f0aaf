// Command pdc-demo wires every PDC component together end to end: it
// registers one candidate, evaluates it through Shadow and Canary to
// Promoted (which ledgers a PCAg), and prints the final candidate state
// and the ledger's Merkle root. It exists to exercise the full
// promotion pipeline outside of a test binary, not as a production
// entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/anchorsink"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/attestation"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/auditsink"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/config"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/ethics"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/guard"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/ledger"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/mathkernel"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/orchestrator"
	"github.com/danielgonzagat/penin-omega-pdc/pkg/sig"
)

func main() {
	ledgerPath := flag.String("ledger", "./data/demo-ledger.jsonl", "path to the WORM ledger file")
	thresholdsPath := flag.String("thresholds", "", "path to a gate-thresholds YAML file (optional)")
	candidateID := flag.String("candidate", "candidate-demo", "candidate identifier to run through the pipeline")
	championSlot := flag.String("slot", "champion-default", "champion slot this candidate competes for")
	flag.Parse()

	logger := log.New(log.Writer(), "[pdc-demo] ", log.LstdFlags)

	if err := os.Setenv("PDC_SIGNING_KEY_PATH", "unused-in-demo"); err != nil {
		logger.Fatalf("setting demo env: %v", err)
	}
	bundle, err := config.Load(*thresholdsPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	if err := os.MkdirAll("./data", 0o755); err != nil {
		logger.Fatalf("creating data dir: %v", err)
	}
	l, err := ledger.Open(*ledgerPath)
	if err != nil {
		logger.Fatalf("opening ledger: %v", err)
	}
	defer l.Close()

	srKey, err := sig.Generate()
	if err != nil {
		logger.Fatalf("generating SR-Omega-infinity key: %v", err)
	}
	guardKey, err := sig.Generate()
	if err != nil {
		logger.Fatalf("generating Sigma-Guard key: %v", err)
	}

	ctx := context.Background()
	now := time.Now()

	opts := buildSinkOptions(ctx, bundle, logger)

	o := orchestrator.New(l, map[attestation.ServiceType]sig.KeyPair{
		attestation.ServiceSROmega:    srKey,
		attestation.ServiceSigmaGuard: guardKey,
	}, bundle.Guard, opts...)

	c, err := o.RegisterCandidate(ctx, *candidateID, *championSlot, now)
	if err != nil {
		logger.Fatalf("registering candidate: %v", err)
	}

	ethicsVerdict := ethics.Evaluate(ctx, allLawsPassOracles(), ethics.Signals{SubjectID: c.ID})

	metrics := []mathkernel.WeightedMetric{
		{Name: "accuracy", Weight: 0.4, Value: 0.85},
		{Name: "robustness", Weight: 0.4, Value: 0.78},
		{Name: "privacy", Weight: 0.2, Value: 0.92},
	}
	harmonic, err := mathkernel.Harmonic(metrics, bundle.Epsilon)
	if err != nil {
		logger.Fatalf("computing harmonic score: %v", err)
	}

	contractiveOK, _, err := mathkernel.VerifyContractive(
		map[string]float64{"high": 1.0}, map[string]float64{"high": 0.8}, bundle.Rho,
	)
	if err != nil {
		logger.Fatalf("verifying contractivity: %v", err)
	}

	lInf, err := mathkernel.LInf(mathkernel.LInfParams{
		Metrics:         metrics,
		Epsilon:         bundle.Epsilon,
		Cost:            0.15,
		LambdaC:         bundle.LambdaC,
		EthicsOK:        ethicsVerdict.EthicsOK,
		ContractivityOK: contractiveOK,
	})
	if err != nil {
		logger.Fatalf("computing L-infinity: %v", err)
	}

	srComponents := mathkernel.SRComponents{Awareness: 0.9, EthicsOK: ethicsVerdict.EthicsOK, Autocorrection: 0.8, Metacognition: 0.85}
	srScore, err := mathkernel.SROmega(srComponents)
	if err != nil {
		logger.Fatalf("computing SR-Omega-infinity: %v", err)
	}

	snapshot := guard.Snapshot{
		ContractivityRho:    0.85,
		ECE:                 0.008,
		BiasRho:             1.03,
		SROmega:             srScore,
		GlobalCoherence:     0.88,
		DeltaLInf:           lInf,
		CostIncreasePct:     0.08,
		CAOSPlusGain:        22,
		Consent:             true,
		EcologicalOK:        true,
		HasChampionBaseline: true,
	}
	in := orchestrator.EvalInput{
		Snapshot:  snapshot,
		SRScore:   srScore,
		EthicsOK:  ethicsVerdict.EthicsOK,
		LInfValue: lInf,
		CostValue: 0.15,
	}

	logger.Printf("harmonic score: %.4f", harmonic)

	for _, stage := range []string{"shadow", "canary", "promotion"} {
		d, err := o.EvaluateCandidate(ctx, c.ID, in, now)
		if err != nil {
			logger.Fatalf("evaluating %s stage: %v", stage, err)
		}
		logger.Printf("%s -> %s (%s)", d.FromState, d.ToState, d.Reason)
	}

	root, err := l.MerkleRoot()
	if err != nil {
		logger.Fatalf("computing ledger merkle root: %v", err)
	}
	fmt.Printf("final candidate state: %s\nledger merkle root: %s\n", c.State, root)
}

// buildSinkOptions assembles the orchestrator.Option set for whichever
// optional audit sinks and chain anchor the bundle's environment
// variables configure. Every sink is best-effort: a misconfigured or
// unreachable one is logged and skipped rather than aborting the run,
// since none of them gate a promotion decision.
func buildSinkOptions(ctx context.Context, bundle *config.Bundle, logger *log.Logger) []orchestrator.Option {
	var opts []orchestrator.Option

	if bundle.AuditPostgresDSN != "" {
		pg, err := auditsink.NewPostgresSink(bundle.AuditPostgresDSN)
		if err != nil {
			logger.Printf("postgres audit sink disabled: %v", err)
		} else if err := pg.EnsureSchema(ctx); err != nil {
			logger.Printf("postgres audit sink schema setup failed, disabling: %v", err)
		} else {
			opts = append(opts, orchestrator.WithAuditSinks(pg))
		}
	}

	fs, err := auditsink.NewFirestoreSink(ctx, auditsink.FirestoreConfig{
		ProjectID:       bundle.FirestoreProjectID,
		CredentialsFile: bundle.FirestoreCredentialsFile,
		Enabled:         bundle.FirestoreEnabled,
	})
	if err != nil {
		logger.Printf("firestore audit sink disabled: %v", err)
	} else {
		opts = append(opts, orchestrator.WithAuditSinks(fs))
	}

	if bundle.EthereumRPCURL != "" && bundle.EthereumPrivateKeyHex != "" && bundle.EthereumAnchorContract != "" {
		anchor, err := anchorsink.NewEthereumAnchor(ctx, bundle.EthereumRPCURL, bundle.EthereumChainID, bundle.EthereumAnchorContract, bundle.EthereumPrivateKeyHex)
		if err != nil {
			logger.Printf("ethereum anchor disabled: %v", err)
		} else {
			opts = append(opts, orchestrator.WithAnchor(anchor))
		}
	}

	return opts
}

// allLawsPassOracles stands in for the pluggable fourteen-law classifier
// a real deployment would supply; it exists only so this demo has
// something concrete to evaluate.
func allLawsPassOracles() []ethics.Oracle {
	out := make([]ethics.Oracle, len(ethics.Laws))
	for i, law := range ethics.Laws {
		out[i] = passingOracle{law: law}
	}
	return out
}

type passingOracle struct {
	law ethics.Law
}

func (p passingOracle) Law() ethics.Law { return p.law }
func (p passingOracle) Check(ctx context.Context, s ethics.Signals) (bool, error) {
	return true, nil
}
