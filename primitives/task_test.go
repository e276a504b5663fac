package primitives

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestDatalakeCompute_Commitment(t *testing.T) {
	dl := BlockSampledDatalake{
		ChainId:         ChainEthereumMainnet,
		BlockRangeStart: 1,
		BlockRangeEnd:   1,
		Increment:       1,
		SampledProperty: HeaderProperty(0),
	}
	c := Computation{AggregateFnID: AggregateSum, Operator: OperatorNone, Threshold: uint256.NewInt(0)}
	task := DatalakeCompute{Datalake: dl, Computation: c}

	if task.Kind() != TaskDatalakeCompute {
		t.Fatalf("unexpected kind: %v", task.Kind())
	}
	if task.ChainID() != ChainEthereumMainnet {
		t.Fatalf("unexpected chain id: %v", task.ChainID())
	}

	a, err := task.Commitment()
	if err != nil {
		t.Fatal(err)
	}
	b, err := task.Commitment()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("commitment not stable")
	}

	other := task
	other.Computation.AggregateFnID = AggregateAvg
	oc, err := other.Commitment()
	if err != nil {
		t.Fatal(err)
	}
	if a == oc {
		t.Fatal("distinct computations produced identical commitments")
	}
}

func TestExtendedModule_Commitment(t *testing.T) {
	m := Module{
		ProgramHash: uint256.NewInt(7),
		Inputs: []ModuleInput{
			{Value: uint256.NewInt(1), Visibility: VisibilityPublic},
		},
	}
	task := ExtendedModule{Module: m, CasmClass: []byte{0x01}, ModuleChainID: ChainEthereumSepolia}

	if task.Kind() != TaskExtendedModule {
		t.Fatalf("unexpected kind: %v", task.Kind())
	}
	if task.ChainID() != ChainEthereumSepolia {
		t.Fatalf("unexpected chain id: %v", task.ChainID())
	}

	commit, err := task.Commitment()
	if err != nil {
		t.Fatal(err)
	}
	if commit != m.Commitment() {
		t.Fatal("extended module commitment must delegate to Module.Commitment()")
	}
}

func TestValidateChainHomogeneity_Empty(t *testing.T) {
	if err := ValidateChainHomogeneity(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
}

func TestValidateChainHomogeneity_SingleChainOK(t *testing.T) {
	dl := BlockSampledDatalake{ChainId: ChainEthereumMainnet, BlockRangeStart: 1, BlockRangeEnd: 1, Increment: 1, SampledProperty: HeaderProperty(0)}
	c := Computation{AggregateFnID: AggregateSum, Operator: OperatorNone, Threshold: uint256.NewInt(0)}
	tasks := []TaskEnvelope{
		DatalakeCompute{Datalake: dl, Computation: c},
		DatalakeCompute{Datalake: dl, Computation: c},
	}
	if err := ValidateChainHomogeneity(tasks); err != nil {
		t.Fatalf("expected nil error for single-chain batch, got %v", err)
	}
}

func TestValidateChainHomogeneity_MismatchRejected(t *testing.T) {
	dlA := BlockSampledDatalake{ChainId: ChainEthereumMainnet, BlockRangeStart: 1, BlockRangeEnd: 1, Increment: 1, SampledProperty: HeaderProperty(0)}
	dlB := BlockSampledDatalake{ChainId: ChainEthereumSepolia, BlockRangeStart: 1, BlockRangeEnd: 1, Increment: 1, SampledProperty: HeaderProperty(0)}
	c := Computation{AggregateFnID: AggregateSum, Operator: OperatorNone, Threshold: uint256.NewInt(0)}
	tasks := []TaskEnvelope{
		DatalakeCompute{Datalake: dlA, Computation: c},
		DatalakeCompute{Datalake: dlB, Computation: c},
	}
	err := ValidateChainHomogeneity(tasks)
	if err != ErrChainMismatch {
		t.Fatalf("expected ErrChainMismatch, got %v", err)
	}
}

func TestDatalakeCompute_EncodeDeterministic(t *testing.T) {
	dl := BlockSampledDatalake{ChainId: ChainEthereumMainnet, BlockRangeStart: 1, BlockRangeEnd: 1, Increment: 1, SampledProperty: HeaderProperty(0)}
	c := Computation{AggregateFnID: AggregateSum, Operator: OperatorNone, Threshold: uint256.NewInt(0)}
	task := DatalakeCompute{Datalake: dl, Computation: c}

	a, err := task.Encode()
	if err != nil {
		t.Fatal(err)
	}
	b, err := task.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatal("encode not deterministic")
	}
	if a[0] != byte(TaskDatalakeCompute) {
		t.Fatalf("expected leading task kind tag, got %d", a[0])
	}
}

func TestExtendedModule_EncodeIncludesCasmClass(t *testing.T) {
	m := Module{ProgramHash: uint256.NewInt(7), Inputs: []ModuleInput{{Value: uint256.NewInt(1), Visibility: VisibilityPublic}}}
	task := ExtendedModule{Module: m, CasmClass: []byte{0xde, 0xad}, ModuleChainID: ChainEthereumSepolia}
	enc, err := task.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if enc[len(enc)-2] != 0xde || enc[len(enc)-1] != 0xad {
		t.Fatal("expected casm class bytes appended at the tail of the encoding")
	}
}
