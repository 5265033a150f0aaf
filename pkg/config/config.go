// Package config loads the PDC's configuration bundle, per spec 6:
// secrets and paths from environment variables, gate thresholds and
// numeric tuning from a YAML file, combined into one immutable-per-run
// Bundle.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielgonzagat/penin-omega-pdc/pkg/guard"
)

// Bundle is the full configuration a PDC run is pinned to for its
// lifetime. Nothing in the orchestrator mutates a Bundle after Load
// returns it.
type Bundle struct {
	// Secrets and paths, from the environment.
	SigningKeyPath string
	LedgerPath     string
	DataDir        string
	LogLevel       string

	AuditPostgresDSN string // empty disables the Postgres audit mirror
	FirestoreProjectID string
	FirestoreCredentialsFile string
	FirestoreEnabled  bool
	EthereumRPCURL    string
	EthereumAnchorContract string
	EthereumPrivateKeyHex string
	EthereumChainID   int64

	// Numeric tuning and gate thresholds, from YAML.
	HashAlgorithm      string
	RequiredValidators []string
	CanaryFraction     float64
	CanaryMinSamples   int
	EMAHalfLife        float64

	Kappa    float64
	LambdaC  float64
	BetaMin  float64
	Epsilon  float64
	Gamma    float64
	Rho      float64

	Guard guard.Thresholds

	Timeouts Timeouts
}

// Timeouts holds the caller-supplied defaults from spec 5.
type Timeouts struct {
	LedgerAppend  time.Duration
	ChainVerify   time.Duration
	GuardEval     time.Duration
	FullPipeline  time.Duration
}

// DefaultTimeouts returns the spec 5 stated defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		LedgerAppend: 5 * time.Second,
		ChainVerify:  500 * time.Millisecond,
		GuardEval:    2 * time.Second,
		FullPipeline: 60 * time.Second,
	}
}

// yamlThresholds mirrors the subset of Bundle that comes from the
// thresholds YAML file. Kept separate from Bundle so YAML field tags
// don't leak into the rest of the struct.
type yamlThresholds struct {
	HashAlgorithm      string   `yaml:"hash_algorithm"`
	RequiredValidators []string `yaml:"required_validators"`
	CanaryFraction     float64  `yaml:"canary_fraction"`
	CanaryMinSamples   int      `yaml:"canary_min_samples"`
	EMAHalfLife        float64  `yaml:"ema_half_life"`

	Kappa   float64 `yaml:"kappa"`
	LambdaC float64 `yaml:"lambda_c"`
	BetaMin float64 `yaml:"beta_min"`
	Epsilon float64 `yaml:"epsilon"`
	Gamma   float64 `yaml:"gamma"`
	Rho     float64 `yaml:"rho"`

	Guard struct {
		MaxECE             float64 `yaml:"max_ece"`
		MaxBiasRho         float64 `yaml:"max_bias_rho"`
		MinSROmega         float64 `yaml:"min_sr_omega"`
		MinGlobalCoherence float64 `yaml:"min_global_coherence"`
		MinDeltaLInf       float64 `yaml:"min_delta_linf"`
		MaxCostIncreasePct float64 `yaml:"max_cost_increase_pct"`
		MinCAOSPlusGain    float64 `yaml:"min_caos_plus_gain"`
	} `yaml:"guard"`
}

// Load reads secrets and paths from the environment and gate thresholds
// from the YAML file at thresholdsPath, merging them into one Bundle.
// A missing thresholdsPath falls back to the reference defaults from
// spec 4.A/4.F rather than failing — the environment-sourced fields are
// the ones with no safe default.
func Load(thresholdsPath string) (*Bundle, error) {
	b := &Bundle{
		SigningKeyPath: getEnv("PDC_SIGNING_KEY_PATH", ""),
		LedgerPath:     getEnv("PDC_LEDGER_PATH", "./data/ledger.jsonl"),
		DataDir:        getEnv("PDC_DATA_DIR", "./data"),
		LogLevel:       getEnv("PDC_LOG_LEVEL", "info"),

		AuditPostgresDSN:         getEnv("PDC_AUDIT_POSTGRES_DSN", ""),
		FirestoreProjectID:       getEnv("PDC_FIRESTORE_PROJECT_ID", ""),
		FirestoreCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirestoreEnabled:         getEnv("PDC_FIRESTORE_PROJECT_ID", "") != "",
		EthereumRPCURL:           getEnv("PDC_ETHEREUM_RPC_URL", ""),
		EthereumAnchorContract:   getEnv("PDC_ETHEREUM_ANCHOR_CONTRACT", ""),
		EthereumPrivateKeyHex:    getEnv("PDC_ETHEREUM_PRIVATE_KEY", ""),
		EthereumChainID:          getEnvInt64("PDC_ETHEREUM_CHAIN_ID", 1),

		Timeouts: DefaultTimeouts(),
	}

	yt := defaultYAMLThresholds()
	if thresholdsPath != "" {
		data, err := os.ReadFile(thresholdsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading thresholds file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &yt); err != nil {
			return nil, fmt.Errorf("config: parsing thresholds YAML: %w", err)
		}
	}

	b.HashAlgorithm = yt.HashAlgorithm
	b.RequiredValidators = yt.RequiredValidators
	b.CanaryFraction = yt.CanaryFraction
	b.CanaryMinSamples = yt.CanaryMinSamples
	b.EMAHalfLife = yt.EMAHalfLife
	b.Kappa = yt.Kappa
	b.LambdaC = yt.LambdaC
	b.BetaMin = yt.BetaMin
	b.Epsilon = yt.Epsilon
	b.Gamma = yt.Gamma
	b.Rho = yt.Rho
	b.Guard = guard.Thresholds{
		MaxECE:             yt.Guard.MaxECE,
		MaxBiasRho:         yt.Guard.MaxBiasRho,
		MinSROmega:         yt.Guard.MinSROmega,
		MinGlobalCoherence: yt.Guard.MinGlobalCoherence,
		MinDeltaLInf:       yt.Guard.MinDeltaLInf,
		MaxCostIncreasePct: yt.Guard.MaxCostIncreasePct,
		MinCAOSPlusGain:    yt.Guard.MinCAOSPlusGain,
	}

	return b, nil
}

func defaultYAMLThresholds() yamlThresholds {
	var yt yamlThresholds
	yt.HashAlgorithm = "blake2b-256"
	yt.RequiredValidators = []string{"SR-Omega-infinity", "Sigma-Guard"}
	yt.CanaryFraction = 0.05
	yt.CanaryMinSamples = 1000
	yt.EMAHalfLife = 5
	yt.Kappa = 20.0
	yt.LambdaC = 0.5
	yt.BetaMin = 0.01
	yt.Epsilon = 1e-3
	yt.Gamma = 0.8
	yt.Rho = 0.85
	gt := guard.DefaultThresholds()
	yt.Guard.MaxECE = gt.MaxECE
	yt.Guard.MaxBiasRho = gt.MaxBiasRho
	yt.Guard.MinSROmega = gt.MinSROmega
	yt.Guard.MinGlobalCoherence = gt.MinGlobalCoherence
	yt.Guard.MinDeltaLInf = gt.MinDeltaLInf
	yt.Guard.MaxCostIncreasePct = gt.MaxCostIncreasePct
	yt.Guard.MinCAOSPlusGain = gt.MinCAOSPlusGain
	return yt
}

// Validate checks that every field with no safe default is present and
// that numeric tuning stays within the ranges spec 4.A and 4.F impose.
// It accumulates every violation rather than stopping at the first, so
// an operator sees the whole picture in one pass.
func (b *Bundle) Validate() error {
	var problems []string

	if b.SigningKeyPath == "" {
		problems = append(problems, "PDC_SIGNING_KEY_PATH is required but not set")
	}
	if b.LedgerPath == "" {
		problems = append(problems, "PDC_LEDGER_PATH is required but not set")
	}
	if len(b.RequiredValidators) == 0 {
		problems = append(problems, "required_validators must be non-empty")
	}
	if b.LambdaC < 0 || b.LambdaC > 5 {
		problems = append(problems, "lambda_c must be in [0,5]")
	}
	if b.Rho <= 0 || b.Rho >= 1 {
		problems = append(problems, "rho must be in (0,1)")
	}
	if b.CanaryFraction < 0 || b.CanaryFraction > 1 {
		problems = append(problems, "canary_fraction must be in [0,1]")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid bundle: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
