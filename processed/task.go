package processed

import (
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/holiman/uint256"
)

// Task is the compiler's per-task output (spec §4.4 step 4): the task's
// commitment, its canonical encoded bytes, and a placeholder result that is
// filled in after the sound run (for module tasks) or computed host-side
// by the aggregate package (for datalake-compute tasks).
type Task struct {
	Kind       primitives.TaskKind
	Commitment types.Hash
	Encoded    []byte
	Result     *uint256.Int // nil until the result is known
}
