package compiler

import (
	"context"
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/fetch"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/HerodotusDev/hdp-sub002/processed"
	"github.com/holiman/uint256"
)

// Config bundles the Compiler's two external dependencies: where to
// resolve a module's casm class, and how to run the dry VM.
type Config struct {
	Registry *ClassRegistry
	DryVM    *DryRunner
}

// Compile runs the two-phase task compilation described in spec §4.4: for
// every DatalakeCompute task it statically derives the datalake's fetch
// keys; for every ExtendedModule task it resolves the casm class and
// drives a dry run to discover the module's fetch keys. The union of both
// (deduplicated by the fetch package) is returned alongside one
// processed.Task placeholder per input task, in input order.
func Compile(ctx context.Context, tasks []primitives.TaskEnvelope, cfg Config) (fetch.CategorizedFetchKeys, []processed.Task, error) {
	if err := primitives.ValidateChainHomogeneity(tasks); err != nil {
		return fetch.CategorizedFetchKeys{}, nil, err
	}

	var moduleInputs []dryRunModuleInput
	var moduleTaskIndex []int // index into tasks, parallel to moduleInputs
	var extraKeys []primitives.FetchKey
	results := make([]processed.Task, len(tasks))

	for i, t := range tasks {
		commitment, err := t.Commitment()
		if err != nil {
			return fetch.CategorizedFetchKeys{}, nil, fmt.Errorf("compiler: commitment for task %d: %w", i, err)
		}
		encoded, err := t.Encode()
		if err != nil {
			return fetch.CategorizedFetchKeys{}, nil, fmt.Errorf("compiler: encode task %d: %w", i, err)
		}
		results[i] = processed.Task{Kind: t.Kind(), Commitment: commitment, Encoded: encoded}

		em, ok := t.(primitives.ExtendedModule)
		if !ok {
			continue
		}
		casmClass := em.CasmClass
		if len(casmClass) == 0 {
			resolved, err := cfg.Registry.Resolve(ctx, em.Module.ProgramHash, em.Module.LocalClassPath)
			if err != nil {
				return fetch.CategorizedFetchKeys{}, nil, fmt.Errorf("%w: task %d: %v", ErrModuleClassNotFound, i, err)
			}
			casmClass = resolved
		}
		moduleInputs = append(moduleInputs, dryRunModuleInput{
			ProgramHash: em.Module.ProgramHash,
			Inputs:      em.Module.Inputs,
			CasmClass:   casmClass,
		})
		moduleTaskIndex = append(moduleTaskIndex, i)
	}

	if len(moduleInputs) > 0 {
		if cfg.DryVM == nil {
			return fetch.CategorizedFetchKeys{}, nil, fmt.Errorf("%w: no dry VM configured for %d module task(s)", ErrDryRunFailed, len(moduleInputs))
		}
		dryResults, err := cfg.DryVM.Run(ctx, moduleInputs)
		if err != nil {
			return fetch.CategorizedFetchKeys{}, nil, err
		}
		for j, dr := range dryResults {
			for _, k := range dr.FetchKeys {
				if fk, ok := toFetchKey(k); ok {
					extraKeys = append(extraKeys, fk)
				}
			}
			if dr.Result != "" {
				taskIdx := moduleTaskIndex[j]
				val, err := parseFeltHex(dr.Result)
				if err != nil {
					return fetch.CategorizedFetchKeys{}, nil, fmt.Errorf("compiler: parse dry run result for task %d: %w", taskIdx, err)
				}
				results[taskIdx].Result = val
			}
		}
	}

	keys := fetch.PlanBatch(tasks, extraKeys)
	return keys, results, nil
}

func parseFeltHex(s string) (*uint256.Int, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}
