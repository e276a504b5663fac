package hdp

import (
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/merkle"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/HerodotusDev/hdp-sub002/processed"
	"github.com/HerodotusDev/hdp-sub002/processed/cairo"
	"github.com/holiman/uint256"
)

// TaskInput is one task's entry in ProcessorInput (spec §4.7 step 4): its
// kind, commitment, and encoded bytes, either raw or felt-projected
// depending on the run's CairoFormat setting.
type TaskInput struct {
	Kind       primitives.TaskKind `json:"kind"`
	Commitment types.Hash          `json:"commitment"`
	EncodedRaw []byte              `json:"encoded_raw,omitempty"`
	Encoded    *cairo.FeltBytes    `json:"encoded,omitempty"`
}

// ProcessorInput is the VM program input written to program_input_file
// (spec §4.7 step 4, §6). Proofs holds the plain bundle when CairoFormat
// is false; CairoProofs holds the felt-projected mirror when true. Exactly
// one of the two is populated.
type ProcessorInput struct {
	CairoRunOutputPath string                        `json:"cairo_run_output_path"`
	TasksRoot          types.Hash                    `json:"tasks_root"`
	ResultsRoot        types.Hash                     `json:"results_root"`
	Proofs             *processed.ProcessedBlockProofs `json:"proofs,omitempty"`
	CairoProofs        *processed.CairoBlockProofs     `json:"cairo_proofs,omitempty"`
	Tasks              []TaskInput                    `json:"tasks"`
}

// TaskOutput is one task's entry in ProcessorOutput: its commitment, final
// result, and inclusion proofs in both the task tree and the result tree.
type TaskOutput struct {
	Kind             primitives.TaskKind `json:"kind"`
	Commitment       types.Hash          `json:"commitment"`
	Result           *uint256.Int        `json:"result"`
	TaskInclusion    merkle.Proof        `json:"task_inclusion_proof"`
	ResultInclusion  merkle.Proof        `json:"result_inclusion_proof"`
}

// ProcessorOutput is the batch_proof_file record (spec §4.7 step 6, §6):
// both roots, the MMR metadata referenced by the batch's headers, and
// every task's commitment/result/inclusion proofs.
type ProcessorOutput struct {
	TasksRoot   types.Hash        `json:"tasks_root"`
	ResultsRoot types.Hash        `json:"results_root"`
	MMRMetas    []processed.MMRMeta `json:"mmr_metas"`
	Tasks       []TaskOutput        `json:"tasks"`
}
