// Package hdp implements the Orchestrator (spec §4.7): the top-level
// pipeline that drives a task batch through compilation, proof fetching,
// program-input assembly, sound VM execution, and result-tree construction
// to produce a PIE proof bundle's accompanying ProcessorOutput record.
package hdp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/HerodotusDev/hdp-sub002/aggregate"
	"github.com/HerodotusDev/hdp-sub002/compiler"
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/log"
	"github.com/HerodotusDev/hdp-sub002/merkle"
	"github.com/HerodotusDev/hdp-sub002/metrics"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/HerodotusDev/hdp-sub002/processed/cairo"
	"github.com/HerodotusDev/hdp-sub002/provider"
	"github.com/holiman/uint256"
)

var orchestratorLog = log.Default().Module("hdp")

// Config bundles the Orchestrator's external collaborators: a compiler
// (class registry + dry VM), a chain provider bound to the batch's chain,
// and a sound VM runner. ProgramInputFile, PieOutputFile and
// SoundRunOutputFile are scratch paths the orchestrator writes to and the
// sound VM reads/writes, mirroring the CLI's --program-input-file,
// --cairo-pie-file and --sound-run-cairo-file flags (spec §6).
type Config struct {
	Compiler compiler.Config
	Provider *provider.EVMProvider
	SoundVM  *SoundRunner

	ProgramInputFile   string
	PieOutputFile      string
	SoundRunOutputFile string

	// CairoFormat, when true, projects the witness bundle and encoded task
	// bytes into the felt-chunked mirror (spec §4.2) instead of writing the
	// plain byte form.
	CairoFormat bool
}

// Run executes all six orchestrator phases from spec §4.7 over a
// chain-homogeneous task batch and returns the resulting ProcessorOutput.
func Run(ctx context.Context, tasks []primitives.TaskEnvelope, cfg Config) (*ProcessorOutput, error) {
	if len(tasks) == 0 {
		return nil, ErrEmptyBatch
	}
	if err := primitives.ValidateChainHomogeneity(tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		metrics.IncBatchTask(taskKindLabel(t.Kind()))
	}

	// Phase 2: compile.
	start := time.Now()
	keys, compiledTasks, err := compiler.Compile(ctx, tasks, cfg.Compiler)
	metrics.ObservePhase("compile", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	// Phase 3: fetch.
	start = time.Now()
	bundle, err := cfg.Provider.FetchAll(ctx, keys)
	metrics.ObservePhase("fetch", time.Since(start).Seconds())
	if err != nil {
		metrics.IncProviderRequest("batch", "error")
		return nil, err
	}
	metrics.IncProviderRequest("batch", "ok")
	bundle.Finalize()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	// Host-side aggregation for DatalakeCompute tasks happens before the
	// sound run: its result is itself an input the program commits to, not
	// a value the VM derives (spec §4.6).
	taskCommitments := make([]types.Hash, len(tasks))
	for i, t := range tasks {
		dc, ok := t.(primitives.DatalakeCompute)
		if !ok {
			taskCommitments[i] = compiledTasks[i].Commitment
			continue
		}
		taskCommitments[i] = compiledTasks[i].Commitment
		if dc.Computation.AggregateFnID == primitives.AggregateMerkle {
			// MERKLE results come from the result tree itself, not
			// host-side aggregation; leave the placeholder for phase 6.
			continue
		}
		points, err := sampleDatalakePoints(dc.Datalake, bundle)
		if err != nil {
			return nil, fmt.Errorf("hdp: sampling task %d: %w", i, err)
		}
		result, err := aggregate.Evaluate(dc.Computation.AggregateFnID, dc.Computation.Operator, dc.Computation.Threshold, points)
		if err != nil {
			return nil, fmt.Errorf("hdp: aggregating task %d: %w", i, err)
		}
		compiledTasks[i].Result = result
	}

	// Phase 4: assemble and write the program input.
	start = time.Now()
	taskTree, err := merkle.BuildTaskTree(taskCommitments)
	if err != nil {
		return nil, fmt.Errorf("hdp: building task tree: %w", err)
	}

	// Module tasks don't have a known result until the sound run produces
	// raw_results; the pre-run result tree carries a zero placeholder for
	// them; the VM independently recomputes the same tree in-circuit
	// against its own module outputs and proves the two agree.
	preResults := make([]*uint256.Int, len(tasks))
	for i, ct := range compiledTasks {
		if ct.Result != nil {
			preResults[i] = ct.Result
		} else {
			preResults[i] = new(uint256.Int)
		}
	}
	preResultTree, err := merkle.BuildResultTree(taskCommitments, preResults)
	if err != nil {
		return nil, fmt.Errorf("hdp: building pre-run result tree: %w", err)
	}

	input := ProcessorInput{
		CairoRunOutputPath: cfg.SoundRunOutputFile,
		TasksRoot:          taskTree.Root(),
		ResultsRoot:        preResultTree.Root(),
		Tasks:              make([]TaskInput, len(tasks)),
	}
	for i, ct := range compiledTasks {
		ti := TaskInput{Kind: ct.Kind, Commitment: ct.Commitment}
		if cfg.CairoFormat {
			fb := cairo.Project(ct.Encoded)
			ti.Encoded = &fb
		} else {
			ti.EncodedRaw = ct.Encoded
		}
		input.Tasks[i] = ti
	}
	if cfg.CairoFormat {
		cp := bundle.AsCairoFormat()
		input.CairoProofs = &cp
	} else {
		input.Proofs = bundle
	}

	if err := writeJSONFile(cfg.ProgramInputFile, input); err != nil {
		metrics.ObservePhase("assemble", time.Since(start).Seconds())
		return nil, err
	}
	metrics.ObservePhase("assemble", time.Since(start).Seconds())
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	// Phase 5: invoke the sound VM.
	start = time.Now()
	rawResults, err := cfg.SoundVM.Run(ctx, cfg.ProgramInputFile, cfg.PieOutputFile, cfg.SoundRunOutputFile)
	metrics.ObservePhase("sound_run", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	// Phase 6: merge raw results, build the result tree, emit output.
	start = time.Now()
	results := make([]*uint256.Int, len(tasks))
	for i, ct := range compiledTasks {
		switch {
		case ct.Kind == primitives.TaskExtendedModule:
			if i < len(rawResults) {
				results[i] = rawResults[i]
			} else {
				results[i] = new(uint256.Int)
			}
		case ct.Result != nil:
			results[i] = ct.Result
		case i < len(rawResults):
			results[i] = rawResults[i]
		default:
			results[i] = new(uint256.Int)
		}
	}

	resultTree, err := merkle.BuildResultTree(taskCommitments, results)
	if err != nil {
		return nil, fmt.Errorf("hdp: building result tree: %w", err)
	}

	out := &ProcessorOutput{
		TasksRoot:   taskTree.Root(),
		ResultsRoot: resultTree.Root(),
		Tasks:       make([]TaskOutput, len(tasks)),
	}
	for _, g := range bundle.MMRWithHeaders {
		out.MMRMetas = append(out.MMRMetas, g.Meta)
	}
	for i, ct := range compiledTasks {
		taskProof, err := taskTree.Prove(i)
		if err != nil {
			return nil, fmt.Errorf("hdp: task inclusion proof %d: %w", i, err)
		}
		resultProof, err := resultTree.Prove(i)
		if err != nil {
			return nil, fmt.Errorf("hdp: result inclusion proof %d: %w", i, err)
		}
		out.Tasks[i] = TaskOutput{
			Kind:            ct.Kind,
			Commitment:      ct.Commitment,
			Result:          results[i],
			TaskInclusion:   taskProof,
			ResultInclusion: resultProof,
		}
	}
	metrics.ObservePhase("finalize", time.Since(start).Seconds())

	orchestratorLog.Info("run complete", "tasks", len(tasks), "tasks_root", out.TasksRoot.Hex(), "results_root", out.ResultsRoot.Hex())
	return out, nil
}

func taskKindLabel(k primitives.TaskKind) string {
	switch k {
	case primitives.TaskDatalakeCompute:
		return "datalake_compute"
	case primitives.TaskExtendedModule:
		return "extended_module"
	default:
		return "unknown"
	}
}

func writeJSONFile(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("hdp: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("hdp: write %s: %w", path, err)
	}
	return nil
}
