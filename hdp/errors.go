package hdp

import "errors"

// Orchestrator-level sentinel errors (spec §7's VmError/IoError/Cancelled
// families; CodecError/CompileError/ProviderError are surfaced as-is from
// the packages that raise them).
var (
	ErrEmptyBatch    = errors.New("hdp: batch has no tasks")
	ErrSoundRunFailed = errors.New("hdp: sound run failed")
	ErrCancelled     = errors.New("hdp: run cancelled")
)
