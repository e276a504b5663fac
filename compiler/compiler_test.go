package compiler

import (
	"context"
	"testing"

	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/holiman/uint256"
)

func TestCompileDatalakeOnlyBatchNeedsNoDryVM(t *testing.T) {
	dl := primitives.BlockSampledDatalake{
		ChainId:         primitives.ChainEthereumMainnet,
		BlockRangeStart: 1,
		BlockRangeEnd:   1,
		Increment:       1,
		SampledProperty: primitives.HeaderProperty(0),
	}
	c := primitives.Computation{AggregateFnID: primitives.AggregateSum, Operator: primitives.OperatorNone, Threshold: uint256.NewInt(0)}
	tasks := []primitives.TaskEnvelope{primitives.DatalakeCompute{Datalake: dl, Computation: c}}

	keys, results, err := Compile(context.Background(), tasks, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if keys.Len() == 0 {
		t.Fatal("expected at least one fetch key from the datalake")
	}
	if results[0].Result != nil {
		t.Fatal("datalake-compute result should remain nil until aggregation runs")
	}
}

func TestCompileModuleWithoutDryVMConfiguredFails(t *testing.T) {
	m := primitives.Module{ProgramHash: uint256.NewInt(1), Inputs: nil}
	tasks := []primitives.TaskEnvelope{primitives.ExtendedModule{Module: m, CasmClass: []byte{0x01}, ModuleChainID: primitives.ChainEthereumMainnet}}

	_, _, err := Compile(context.Background(), tasks, Config{})
	if err == nil {
		t.Fatal("expected an error when a module task has no dry VM configured")
	}
}

func TestCompileModuleRunsDryVMAndMergesFetchKeys(t *testing.T) {
	script := fakeDryVMScript(t, `
input_path="$3"
out_path=$(sed -n 's/.*"dry_run_output_path":"\([^"]*\)".*/\1/p' "$input_path")
cat > "$out_path" <<EOF
{"modules":[{"program_hash":"0x09","fetch_keys":[{"type":"account","chain_id":1,"block_number":100,"address":"0x0000000000000000000000000000000000000002"}],"result":"0x5"}]}
EOF
`)

	m := primitives.Module{ProgramHash: uint256.NewInt(9), Inputs: nil}
	tasks := []primitives.TaskEnvelope{primitives.ExtendedModule{Module: m, CasmClass: []byte{0x01}, ModuleChainID: primitives.ChainEthereumMainnet}}

	cfg := Config{DryVM: &DryRunner{BinaryPath: script}}
	keys, results, err := Compile(context.Background(), tasks, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys.Accounts) != 1 {
		t.Fatalf("expected 1 account key from dry run, got %d", len(keys.Accounts))
	}
	if results[0].Result == nil || results[0].Result.Uint64() != 5 {
		t.Fatalf("expected module result 5, got %v", results[0].Result)
	}
}
