package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/holiman/uint256"
)

// requestFile is the top-level shape of a --request-file document (spec
// §6): one batch, described as a list of tagged tasks.
type requestFile struct {
	Tasks []requestTask `json:"tasks"`
}

// requestTask is the tagged union `{type: "datalake_compute", ...} |
// {type: "module", ...}`. Only the fields matching Type are meaningful.
type requestTask struct {
	Type string `json:"type"`

	// datalake_compute fields.
	Datalake *requestDatalake `json:"datalake,omitempty"`
	Compute  *requestCompute  `json:"compute,omitempty"`

	// module fields.
	ProgramHash    string              `json:"program_hash,omitempty"`
	Inputs         []requestModuleInput `json:"inputs,omitempty"`
	LocalClassPath string              `json:"local_class_path,omitempty"`
}

type requestDatalake struct {
	Type            string `json:"type"` // "block_sampled" | "transactions_in_block"
	ChainId         uint64 `json:"chain_id"`
	BlockRangeStart uint64 `json:"block_range_start,omitempty"`
	BlockRangeEnd   uint64 `json:"block_range_end,omitempty"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	StartIndex      uint64 `json:"start_index,omitempty"`
	EndIndex        uint64 `json:"end_index,omitempty"`
	Increment       uint64 `json:"increment"`

	// property, shared by both datalake kinds but interpreted differently.
	PropertyType string `json:"property_type"` // "header" | "account" | "storage" | "transaction" | "receipt"
	Field        uint8  `json:"field,omitempty"`
	Address      string `json:"address,omitempty"`
	Slot         string `json:"slot,omitempty"`
}

type requestCompute struct {
	AggregateFn string `json:"aggregate_fn"` // "avg" | "sum" | "min" | "max" | "count_if" | "std" | "merkle"
	Operator    string `json:"operator,omitempty"`
	Threshold   string `json:"threshold,omitempty"` // decimal or 0x-hex
}

type requestModuleInput struct {
	Visibility string `json:"visibility"` // "public" | "private"
	Value      string `json:"value"`      // decimal or 0x-hex
}

// parseRequestFile decodes a request document into the task batch the
// Orchestrator runs.
func parseRequestFile(b []byte) ([]primitives.TaskEnvelope, error) {
	var req requestFile
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, fmt.Errorf("cmd/hdp: decode request file: %w", err)
	}
	if len(req.Tasks) == 0 {
		return nil, fmt.Errorf("cmd/hdp: request file has no tasks")
	}

	tasks := make([]primitives.TaskEnvelope, len(req.Tasks))
	for i, rt := range req.Tasks {
		t, err := parseRequestTask(rt)
		if err != nil {
			return nil, fmt.Errorf("cmd/hdp: task %d: %w", i, err)
		}
		tasks[i] = t
	}
	return tasks, nil
}

func parseRequestTask(rt requestTask) (primitives.TaskEnvelope, error) {
	switch rt.Type {
	case "datalake_compute":
		if rt.Datalake == nil || rt.Compute == nil {
			return nil, fmt.Errorf("datalake_compute task requires datalake and compute")
		}
		dl, err := parseDatalake(*rt.Datalake)
		if err != nil {
			return nil, err
		}
		compute, err := parseCompute(*rt.Compute)
		if err != nil {
			return nil, err
		}
		return primitives.DatalakeCompute{Datalake: dl, Computation: compute}, nil
	case "module":
		module, err := parseModule(rt)
		if err != nil {
			return nil, err
		}
		return primitives.ExtendedModule{Module: module}, nil
	default:
		return nil, fmt.Errorf("unknown task type %q", rt.Type)
	}
}

func parseDatalake(rd requestDatalake) (primitives.Datalake, error) {
	switch rd.Type {
	case "block_sampled":
		prop, err := parseSampledProperty(rd)
		if err != nil {
			return nil, err
		}
		return primitives.BlockSampledDatalake{
			ChainId:         primitives.ChainId(rd.ChainId),
			BlockRangeStart: rd.BlockRangeStart,
			BlockRangeEnd:   rd.BlockRangeEnd,
			Increment:       rd.Increment,
			SampledProperty: prop,
		}, nil
	case "transactions_in_block":
		prop, err := parseTxSampledProperty(rd)
		if err != nil {
			return nil, err
		}
		return primitives.TransactionsInBlockDatalake{
			ChainId:         primitives.ChainId(rd.ChainId),
			BlockNumber:     rd.BlockNumber,
			StartIndex:      rd.StartIndex,
			EndIndex:        rd.EndIndex,
			Increment:       rd.Increment,
			SampledProperty: prop,
		}, nil
	default:
		return nil, fmt.Errorf("unknown datalake type %q", rd.Type)
	}
}

func parseSampledProperty(rd requestDatalake) (primitives.SampledProperty, error) {
	switch rd.PropertyType {
	case "header":
		return primitives.HeaderProperty(rd.Field), nil
	case "account":
		addr, err := parseAddress(rd.Address)
		if err != nil {
			return primitives.SampledProperty{}, err
		}
		return primitives.AccountProperty(addr, rd.Field), nil
	case "storage":
		addr, err := parseAddress(rd.Address)
		if err != nil {
			return primitives.SampledProperty{}, err
		}
		slot, err := parseHash(rd.Slot)
		if err != nil {
			return primitives.SampledProperty{}, err
		}
		return primitives.StorageProperty(addr, slot), nil
	default:
		return primitives.SampledProperty{}, fmt.Errorf("unknown property_type %q for block_sampled datalake", rd.PropertyType)
	}
}

func parseTxSampledProperty(rd requestDatalake) (primitives.TxSampledProperty, error) {
	switch rd.PropertyType {
	case "transaction":
		return primitives.TxSampledProperty{Kind: primitives.PropertyTransaction, Field: rd.Field}, nil
	case "receipt":
		return primitives.TxSampledProperty{Kind: primitives.PropertyReceipt, Field: rd.Field}, nil
	default:
		return primitives.TxSampledProperty{}, fmt.Errorf("unknown property_type %q for transactions_in_block datalake", rd.PropertyType)
	}
}

var aggregateFnNames = map[string]primitives.AggregateFnID{
	"avg":      primitives.AggregateAvg,
	"sum":      primitives.AggregateSum,
	"min":      primitives.AggregateMin,
	"max":      primitives.AggregateMax,
	"count_if": primitives.AggregateCountIf,
	"std":      primitives.AggregateStd,
	"merkle":   primitives.AggregateMerkle,
}

var operatorNames = map[string]primitives.Operator{
	"":   primitives.OperatorNone,
	"eq": primitives.OperatorEq,
	"lt": primitives.OperatorLt,
	"le": primitives.OperatorLe,
	"gt": primitives.OperatorGt,
	"ge": primitives.OperatorGe,
}

func parseCompute(rc requestCompute) (primitives.Computation, error) {
	fn, ok := aggregateFnNames[rc.AggregateFn]
	if !ok {
		return primitives.Computation{}, fmt.Errorf("unknown aggregate_fn %q", rc.AggregateFn)
	}
	op, ok := operatorNames[rc.Operator]
	if !ok {
		return primitives.Computation{}, fmt.Errorf("unknown operator %q", rc.Operator)
	}
	threshold := new(uint256.Int)
	if rc.Threshold != "" {
		var err error
		threshold, err = parseU256(rc.Threshold)
		if err != nil {
			return primitives.Computation{}, fmt.Errorf("threshold: %w", err)
		}
	}
	return primitives.Computation{AggregateFnID: fn, Operator: op, Threshold: threshold}, nil
}

func parseModule(rt requestTask) (primitives.Module, error) {
	programHash, err := parseU256(rt.ProgramHash)
	if err != nil {
		return primitives.Module{}, fmt.Errorf("program_hash: %w", err)
	}
	inputs := make([]primitives.ModuleInput, len(rt.Inputs))
	for i, in := range rt.Inputs {
		v, err := parseU256(in.Value)
		if err != nil {
			return primitives.Module{}, fmt.Errorf("input %d value: %w", i, err)
		}
		var vis primitives.Visibility
		switch in.Visibility {
		case "public":
			vis = primitives.VisibilityPublic
		case "private":
			vis = primitives.VisibilityPrivate
		default:
			return primitives.Module{}, fmt.Errorf("input %d: unknown visibility %q", i, in.Visibility)
		}
		inputs[i] = primitives.ModuleInput{Value: v, Visibility: vis}
	}
	return primitives.Module{ProgramHash: programHash, Inputs: inputs, LocalClassPath: rt.LocalClassPath}, nil
}

func parseU256(s string) (*uint256.Int, error) {
	n, ok := new(big.Int).SetString(trimHex(s), hexOrDecBase(s))
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("value %q overflows 256 bits", s)
	}
	return v, nil
}

func hexOrDecBase(s string) int {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return 16
	}
	return 10
}

func trimHex(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func parseAddress(s string) (types.Address, error) {
	if s == "" {
		return types.Address{}, fmt.Errorf("address is required")
	}
	return types.HexToAddress(s), nil
}

func parseHash(s string) (types.Hash, error) {
	if s == "" {
		return types.Hash{}, fmt.Errorf("slot is required")
	}
	return types.HexToHash(s), nil
}
