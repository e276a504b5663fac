// Package hdpconfig loads Orchestrator configuration from three sources —
// built-in defaults, environment variables, and CLI flags — merged in that
// priority order (last writer wins), following the teacher's
// cmd/eth2028/config_loader.go idiom.
package hdpconfig

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configuration errors (spec §7's ConfigError family).
var (
	ErrInvalidConfig  = errors.New("hdpconfig: invalid configuration")
	ErrMissingRPCURL  = errors.New("hdpconfig: RPC_URL is required")
	ErrMissingChainID = errors.New("hdpconfig: CHAIN_ID is required")
)

// defaultRPCChunkSize is RPC_CHUNK_SIZE's value when neither the
// environment nor a flag sets it.
const defaultRPCChunkSize = 40

// defaultLogLevel is HDP_LOG_LEVEL's value when unset.
const defaultLogLevel = "info"

// Config aggregates everything the Orchestrator and its collaborators need
// to run: the target chain, the archival RPC endpoint, the module class
// registry endpoint, and one indexer/provider URL per chain the batch may
// reference.
type Config struct {
	// ChainID is the homogeneous chain every task in a batch must share
	// (spec §4.1's chain-homogeneity invariant).
	ChainID uint64

	// RPCURL is the archival JSON-RPC endpoint EVMProvider dials for
	// eth_getProof / eth_getBlockReceipts / raw transaction lookups.
	RPCURL string

	// RPCChunkSize bounds how many RPC requests EVMProvider issues
	// concurrently per fetch phase (spec §5's concurrency model).
	RPCChunkSize int

	// ModuleRegistryRPCURL is where the compiler's class registry resolves
	// a module's CASM class by class hash, when not given a
	// --local-class-path.
	ModuleRegistryRPCURL string

	// ProviderURLs maps a chain name (the PROVIDER_URL_<NAME> suffix,
	// lowercased) to its MMR accumulator indexer base URL.
	ProviderURLs map[string]string

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
}

// defaults returns a Config with every field set to its built-in default.
func defaults() *Config {
	return &Config{
		RPCChunkSize: defaultRPCChunkSize,
		ProviderURLs: make(map[string]string),
		LogLevel:     defaultLogLevel,
	}
}

// Load builds a Config by merging built-in defaults, then environment
// variables, then CLI flags parsed from args (excluding the program name),
// in that order. args may be nil, in which case only defaults and the
// environment apply.
func Load(args []string) (*Config, error) {
	cfg := defaults()
	mergeEnv(cfg)
	if err := mergeFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeEnv overlays environment variables onto cfg, leaving fields alone
// when their variable is unset or unparsable as the expected type.
func mergeEnv(cfg *Config) {
	if v, ok := os.LookupEnv("CHAIN_ID"); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.ChainID = n
		}
	}
	if v, ok := os.LookupEnv("RPC_URL"); ok {
		cfg.RPCURL = v
	}
	if v, ok := os.LookupEnv("RPC_CHUNK_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RPCChunkSize = n
		}
	}
	if v, ok := os.LookupEnv("MODULE_REGISTRY_RPC_URL"); ok {
		cfg.ModuleRegistryRPCURL = v
	}
	if v, ok := os.LookupEnv("HDP_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}

	// PROVIDER_URL_* is a family, not a single variable: every
	// PROVIDER_URL_<NAME> entry in the environment names one chain's
	// indexer endpoint.
	const prefix = "PROVIDER_URL_"
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(k, prefix))
		if name == "" {
			continue
		}
		cfg.ProviderURLs[name] = v
	}
}

// mergeFlags overlays CLI flags onto cfg. Flags take precedence over both
// defaults and the environment, matching the teacher's
// defaults-then-overrides merge order.
func mergeFlags(cfg *Config, args []string) error {
	if len(args) == 0 {
		return nil
	}
	fs := flag.NewFlagSet("hdpconfig", flag.ContinueOnError)
	chainID := fs.Uint64("chain-id", cfg.ChainID, "target chain ID")
	rpcURL := fs.String("rpc-url", cfg.RPCURL, "archival JSON-RPC endpoint")
	rpcChunkSize := fs.Int("rpc-chunk-size", cfg.RPCChunkSize, "concurrent RPC request bound")
	moduleRegistryURL := fs.String("module-registry-rpc-url", cfg.ModuleRegistryRPCURL, "module class registry endpoint")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	providerURL := fs.String("provider-url", "", "chain=url pair for an indexer endpoint, may be repeated via comma separation")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg.ChainID = *chainID
	cfg.RPCURL = *rpcURL
	if *rpcChunkSize > 0 {
		cfg.RPCChunkSize = *rpcChunkSize
	}
	cfg.ModuleRegistryRPCURL = *moduleRegistryURL
	cfg.LogLevel = *logLevel

	if *providerURL != "" {
		for _, pair := range strings.Split(*providerURL, ",") {
			name, url, found := strings.Cut(pair, "=")
			if !found {
				return fmt.Errorf("%w: --provider-url entry %q must be chain=url", ErrInvalidConfig, pair)
			}
			cfg.ProviderURLs[strings.ToLower(name)] = url
		}
	}
	return nil
}

// Validate checks that a Config carries the minimum fields the Orchestrator
// needs to run a batch: a chain ID, an RPC endpoint, and a positive RPC
// chunk size. It does not check that an indexer URL is configured.
func Validate(cfg *Config) error {
	if cfg.ChainID == 0 {
		return ErrMissingChainID
	}
	if cfg.RPCURL == "" {
		return ErrMissingRPCURL
	}
	if cfg.RPCChunkSize <= 0 {
		return fmt.Errorf("%w: RPC_CHUNK_SIZE must be positive", ErrInvalidConfig)
	}
	return nil
}
