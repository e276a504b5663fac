package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/HerodotusDev/hdp-sub002/compiler"
	"github.com/HerodotusDev/hdp-sub002/hdp"
	"github.com/HerodotusDev/hdp-sub002/hdpconfig"
	"github.com/HerodotusDev/hdp-sub002/log"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/HerodotusDev/hdp-sub002/provider"
)

// pipelineFlags are the flags shared by run, run-datalake and run-module:
// everything needed to stand up a Compiler, an EVMProvider and a
// SoundRunner (spec §6).
type pipelineFlags struct {
	rpcURL               *string
	chainID              *uint64
	indexerURL            *string
	moduleRegistryRPCURL  *string
	rpcChunkSize          *int
	dryVMBinary           *string
	soundVMBinary         *string
	programPath           *string
	programInputFile      *string
	pieOutputFile         *string
	soundRunOutputFile    *string
	cairoFormat           *bool
}

func registerPipelineFlags(fs *flag.FlagSet, env *hdpconfig.Config) *pipelineFlags {
	pf := &pipelineFlags{}
	pf.chainID = fs.Uint64("chain-id", env.ChainID, "target chain ID")
	pf.rpcURL = fs.String("rpc-url", env.RPCURL, "archival JSON-RPC endpoint")
	pf.rpcChunkSize = fs.Int("rpc-chunk-size", env.RPCChunkSize, "concurrent RPC request bound")
	pf.moduleRegistryRPCURL = fs.String("module-registry-rpc-url", env.ModuleRegistryRPCURL, "module class registry endpoint")
	pf.indexerURL = fs.String("indexer-url", "", "MMR accumulator indexer base URL (PROVIDER_URL_<chain>)")
	pf.dryVMBinary = fs.String("dry-vm-binary", "", "dry VM executable path")
	pf.soundVMBinary = fs.String("sound-vm-binary", "", "sound VM executable path")
	pf.programPath = fs.String("program-path", "", "compiled Cairo program path")
	pf.programInputFile = fs.String("program-input-file", "program_input.json", "where to write the VM program input")
	pf.pieOutputFile = fs.String("cairo-pie-file", "batch.pie", "where the sound VM writes its PIE bundle")
	pf.soundRunOutputFile = fs.String("sound-run-cairo-file", "cairo_run_output.json", "where the sound VM writes raw_results")
	pf.cairoFormat = fs.Bool("cairo-format", false, "felt-project the program input instead of writing it raw")
	return pf
}

// buildOrchestratorConfig resolves a pipelineFlags set and an env-sourced
// hdpconfig.Config into an hdp.Config ready for hdp.Run.
func buildOrchestratorConfig(pf *pipelineFlags, env *hdpconfig.Config) (hdp.Config, error) {
	if *pf.rpcURL == "" {
		return hdp.Config{}, fmt.Errorf("cmd/hdp: --rpc-url (or RPC_URL) is required")
	}
	if *pf.chainID == 0 {
		return hdp.Config{}, fmt.Errorf("cmd/hdp: --chain-id (or CHAIN_ID) is required")
	}

	indexerURL := *pf.indexerURL
	if indexerURL == "" {
		indexerURL = resolveProviderURL(env, *pf.chainID)
	}
	if indexerURL == "" {
		return hdp.Config{}, fmt.Errorf("cmd/hdp: no indexer URL for chain %d (set --indexer-url or PROVIDER_URL_<chain>)", *pf.chainID)
	}

	rpcClient, err := provider.DialRPCClient(context.Background(), *pf.rpcURL)
	if err != nil {
		return hdp.Config{}, err
	}
	indexer := provider.NewIndexerClient(indexerURL)
	evmProvider := provider.NewEVMProvider(*pf.chainID, indexer, rpcClient, *pf.rpcChunkSize)

	if *pf.soundVMBinary == "" {
		return hdp.Config{}, fmt.Errorf("cmd/hdp: --sound-vm-binary is required")
	}

	cfg := hdp.Config{
		Compiler: compiler.Config{
			Registry: compiler.NewClassRegistry(*pf.moduleRegistryRPCURL),
			DryVM:    &compiler.DryRunner{BinaryPath: *pf.dryVMBinary},
		},
		Provider:           evmProvider,
		SoundVM:            &hdp.SoundRunner{ProgramPath: *pf.programPath, BinaryPath: *pf.soundVMBinary},
		ProgramInputFile:   *pf.programInputFile,
		PieOutputFile:      *pf.pieOutputFile,
		SoundRunOutputFile: *pf.soundRunOutputFile,
		CairoFormat:        *pf.cairoFormat,
	}
	return cfg, nil
}

func resolveProviderURL(env *hdpconfig.Config, chainID uint64) string {
	switch primitives.ChainId(chainID) {
	case primitives.ChainEthereumMainnet:
		return env.ProviderURLs["ethereum_mainnet"]
	case primitives.ChainEthereumSepolia:
		return env.ProviderURLs["ethereum_sepolia"]
	default:
		return ""
	}
}

func runBatch(ctx context.Context, args []string) error {
	env, err := hdpconfig.Load(nil)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	requestFile := fs.String("request-file", "", "path to the batch request JSON document")
	batchProofFile := fs.String("batch-proof-file", "batch_proof.json", "where to write the ProcessorOutput record")
	pf := registerPipelineFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *requestFile == "" {
		return fmt.Errorf("cmd/hdp: --request-file is required")
	}

	body, err := os.ReadFile(*requestFile)
	if err != nil {
		return fmt.Errorf("cmd/hdp: read request file: %w", err)
	}
	tasks, err := parseRequestFile(body)
	if err != nil {
		return err
	}

	cfg, err := buildOrchestratorConfig(pf, env)
	if err != nil {
		return err
	}

	out, err := hdp.Run(ctx, tasks, cfg)
	if err != nil {
		return err
	}
	if err := writeJSONFile(*batchProofFile, out); err != nil {
		return err
	}
	log.Default().Info("batch complete", "tasks", len(tasks), "batch_proof_file", *batchProofFile)
	return nil
}

// runDatalake is a single-task convenience wrapper over runBatch, for
// scripting a lone datalake_compute task without hand-writing a request
// file.
func runDatalake(ctx context.Context, args []string) error {
	env, err := hdpconfig.Load(nil)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("run-datalake", flag.ContinueOnError)
	batchProofFile := fs.String("batch-proof-file", "batch_proof.json", "where to write the ProcessorOutput record")
	blockStart := fs.Uint64("block-range-start", 0, "first block in range")
	blockEnd := fs.Uint64("block-range-end", 0, "last block in range")
	increment := fs.Uint64("increment", 1, "block step")
	propertyType := fs.String("property-type", "header", "header, account or storage")
	field := fs.Uint64("field", 0, "header/account field index")
	address := fs.String("address", "", "account/storage address")
	slot := fs.String("slot", "", "storage slot")
	aggregateFn := fs.String("aggregate-fn", "avg", "avg, sum, min, max, count_if, std, merkle")
	operator := fs.String("operator", "", "eq, lt, le, gt, ge (count_if only)")
	threshold := fs.String("threshold", "0", "count_if comparison threshold")
	pf := registerPipelineFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rd := requestDatalake{
		Type:            "block_sampled",
		ChainId:         *pf.chainID,
		BlockRangeStart: *blockStart,
		BlockRangeEnd:   *blockEnd,
		Increment:       *increment,
		PropertyType:    *propertyType,
		Field:           uint8(*field),
		Address:         *address,
		Slot:            *slot,
	}
	dl, err := parseDatalake(rd)
	if err != nil {
		return err
	}
	compute, err := parseCompute(requestCompute{AggregateFn: *aggregateFn, Operator: *operator, Threshold: *threshold})
	if err != nil {
		return err
	}

	cfg, err := buildOrchestratorConfig(pf, env)
	if err != nil {
		return err
	}

	out, err := hdp.Run(ctx, []primitives.TaskEnvelope{primitives.DatalakeCompute{Datalake: dl, Computation: compute}}, cfg)
	if err != nil {
		return err
	}
	if err := writeJSONFile(*batchProofFile, out); err != nil {
		return err
	}
	log.Default().Info("datalake task complete", "batch_proof_file", *batchProofFile)
	return nil
}

// runModule is the single-task convenience wrapper for a module task.
func runModule(ctx context.Context, args []string) error {
	env, err := hdpconfig.Load(nil)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("run-module", flag.ContinueOnError)
	batchProofFile := fs.String("batch-proof-file", "batch_proof.json", "where to write the ProcessorOutput record")
	programHash := fs.String("program-hash", "", "module program hash (decimal or 0x-hex felt)")
	localClassPath := fs.String("local-class-path", "", "local CASM class file, bypassing the module registry")
	pf := registerPipelineFlags(fs, env)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *programHash == "" {
		return fmt.Errorf("cmd/hdp: --program-hash is required")
	}

	module, err := parseModule(requestTask{ProgramHash: *programHash, LocalClassPath: *localClassPath})
	if err != nil {
		return err
	}

	cfg, err := buildOrchestratorConfig(pf, env)
	if err != nil {
		return err
	}

	out, err := hdp.Run(ctx, []primitives.TaskEnvelope{primitives.ExtendedModule{Module: module}}, cfg)
	if err != nil {
		return err
	}
	if err := writeJSONFile(*batchProofFile, out); err != nil {
		return err
	}
	log.Default().Info("module task complete", "batch_proof_file", *batchProofFile)
	return nil
}
