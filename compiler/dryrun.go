package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/holiman/uint256"
)

// dryRunModuleEntry is one module's input to the dry-run VM invocation
// (spec §4.4 step 2).
type dryRunModuleEntry struct {
	ProgramHash string   `json:"program_hash"`
	Inputs      []string `json:"inputs"`
	ModuleClass string   `json:"module_class"`
}

// dryRunRequest is the JSON document written to disk and handed to the
// external dry VM binary as its program input.
type dryRunRequest struct {
	DryRunOutputPath string              `json:"dry_run_output_path"`
	Modules          []dryRunModuleEntry `json:"modules"`
}

// dryRunFetchKey is the wire shape of one fetch key emitted by the dry VM.
// Type discriminates which of the remaining fields are meaningful,
// mirroring the TaskKind/FetchKey tagged-union convention used throughout
// the primitives package.
type dryRunFetchKey struct {
	Type        string `json:"type"`
	ChainId     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	Address     string `json:"address,omitempty"`
	Slot        string `json:"slot,omitempty"`
	Index       uint64 `json:"index,omitempty"`
}

// dryRunModuleResult is one module's discovered requirements: the fetch
// keys it touched, its reported program hash (checked against the task's
// own ProgramHash), and a placeholder result to carry forward until the
// sound run fills in the real value.
type dryRunModuleResult struct {
	ProgramHash string            `json:"program_hash"`
	FetchKeys   []dryRunFetchKey  `json:"fetch_keys"`
	Result      string            `json:"result"`
}

// dryRunOutput is the JSON document the dry VM writes to DryRunOutputPath.
type dryRunOutput struct {
	Modules []dryRunModuleResult `json:"modules"`
}

// DryRunner invokes an external dry VM binary to discover a module's data
// requirements by executing it once with placeholder/symbolic chain data
// and observing which fetch keys it touches (spec §4.4 step 2-3). The dry
// VM is never asked for a sound result, only for the access pattern.
type DryRunner struct {
	// BinaryPath is the dry VM executable (e.g. a "sound-run" build
	// invoked in dry mode). Required.
	BinaryPath string
}

// Run executes the dry VM over every ExtendedModule task in entries,
// returning each module's discovered fetch keys alongside its placeholder
// result, in the same order as entries.
func (d *DryRunner) Run(ctx context.Context, entries []dryRunModuleInput) ([]dryRunModuleResult, error) {
	req := dryRunRequest{}

	tmp, err := os.CreateTemp("", "hdp-dryrun-*.json")
	if err != nil {
		return nil, fmt.Errorf("%w: create dry run output file: %v", ErrDryRunFailed, err)
	}
	outPath := tmp.Name()
	tmp.Close()
	defer os.Remove(outPath)

	req.DryRunOutputPath = outPath
	for _, e := range entries {
		req.Modules = append(req.Modules, dryRunModuleEntry{
			ProgramHash: hexUint256(e.ProgramHash),
			Inputs:      hexInputs(e.Inputs),
			ModuleClass: "0x" + fmt.Sprintf("%x", e.CasmClass),
		})
	}

	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal dry run request: %v", ErrDryRunFailed, err)
	}
	reqFile, err := os.CreateTemp("", "hdp-dryrun-input-*.json")
	if err != nil {
		return nil, fmt.Errorf("%w: create dry run input file: %v", ErrDryRunFailed, err)
	}
	reqPath := reqFile.Name()
	defer os.Remove(reqPath)
	if _, err := reqFile.Write(reqBytes); err != nil {
		reqFile.Close()
		return nil, fmt.Errorf("%w: write dry run request: %v", ErrDryRunFailed, err)
	}
	reqFile.Close()

	cmd := exec.CommandContext(ctx, d.BinaryPath, "--dry-run", "--input", reqPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: dry run process exited: %v: %s", ErrDryRunFailed, err, string(out))
	}

	outBytes, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read dry run output: %v", ErrDryRunFailed, err)
	}
	var parsed dryRunOutput
	if err := json.Unmarshal(outBytes, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode dry run output: %v", ErrDryRunFailed, err)
	}
	if len(parsed.Modules) != len(entries) {
		return nil, fmt.Errorf("%w: expected %d module results, got %d", ErrDryRunFailed, len(entries), len(parsed.Modules))
	}

	for i, result := range parsed.Modules {
		want := hexUint256(entries[i].ProgramHash)
		if result.ProgramHash != "" && result.ProgramHash != want {
			return nil, fmt.Errorf("%w: module %d reported %s, expected %s", ErrClassIdMismatch, i, result.ProgramHash, want)
		}
	}
	return parsed.Modules, nil
}

// dryRunModuleInput bundles an ExtendedModule task's fields needed to
// build its dry-run request entry.
type dryRunModuleInput struct {
	ProgramHash *uint256.Int
	Inputs      []primitives.ModuleInput
	CasmClass   []byte
}

// hexUint256 renders a felt as a 0x-prefixed hex string with leading zero
// bytes stripped ("0x0" for zero). Whole bytes are kept, so a value whose
// top byte is below 0x10 keeps one leading zero nibble (9 -> "0x09").
func hexUint256(v *uint256.Int) string {
	if v == nil {
		v = new(uint256.Int)
	}
	if v.IsZero() {
		return "0x0"
	}
	word := v.Bytes32()
	i := 0
	for i < len(word) && word[i] == 0 {
		i++
	}
	return fmt.Sprintf("0x%x", word[i:])
}

func hexInputs(inputs []primitives.ModuleInput) []string {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = hexUint256(in.Value)
	}
	return out
}

// toFetchKey converts one wire-format dry-run fetch key into the matching
// primitives.FetchKey variant. Unrecognized types are skipped rather than
// failing the whole run, since the dry VM's key set is advisory input to
// the planner, not an on-chain invariant.
func toFetchKey(k dryRunFetchKey) (primitives.FetchKey, bool) {
	chain := primitives.ChainId(k.ChainId)
	switch k.Type {
	case "header":
		return primitives.HeaderKey{ChainId: chain, BlockNumber: k.BlockNumber}, true
	case "account":
		return primitives.AccountKey{ChainId: chain, BlockNumber: k.BlockNumber, Address: types.HexToAddress(k.Address)}, true
	case "storage":
		return primitives.StorageKey{ChainId: chain, BlockNumber: k.BlockNumber, Address: types.HexToAddress(k.Address), Slot: types.HexToHash(k.Slot)}, true
	case "tx":
		return primitives.TxKey{ChainId: chain, BlockNumber: k.BlockNumber, Index: k.Index}, true
	case "receipt":
		return primitives.ReceiptKey{ChainId: chain, BlockNumber: k.BlockNumber, Index: k.Index}, true
	default:
		return nil, false
	}
}
