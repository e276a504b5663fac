package compiler

import "errors"

// Sentinel errors for the compile phase (spec §4.4). Wrapped with
// fmt.Errorf("...: %w", ...) at each call site so callers can dispatch
// with errors.Is while still getting a task-specific message.
var (
	// ErrDryRunFailed covers both a non-zero dry VM exit and a dry-run
	// output file that fails to parse as the expected JSON shape.
	ErrDryRunFailed = errors.New("compiler: dry run failed")

	// ErrModuleClassNotFound covers a module whose casm class could not be
	// resolved from either a local class path or the registry.
	ErrModuleClassNotFound = errors.New("compiler: module class not found")

	// ErrClassIdMismatch is returned when a dry-run module entry's
	// reported program hash disagrees with the task's own ProgramHash.
	ErrClassIdMismatch = errors.New("compiler: class id mismatch")
)
