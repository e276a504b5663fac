package hdp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/holiman/uint256"
)

// soundRunOutput is the JSON document the sound VM writes to its
// cairo_run_output_path scratch file (spec §4.7 step 6, §6): one raw
// result per task, in batch-input order.
type soundRunOutput struct {
	RawResults []string `json:"raw_results"`
}

// SoundRunner invokes the external sound VM binary that actually proves the
// batch, producing a PIE bundle and the program's raw per-task results
// (spec §4.7 step 5). Unlike DryRunner it is never asked for fetch keys:
// the program input it's given already carries every witness the compile
// phase discovered.
type SoundRunner struct {
	// ProgramPath is the compiled Cairo program the VM executes (the
	// "program_path" argument of spec §4.7 step 5).
	ProgramPath string
	// BinaryPath is the sound VM executable. Required.
	BinaryPath string
}

// Run executes the sound VM over the program input already written to
// inputPath, producing a PIE bundle at pieOutputPath and a raw-results
// scratch file at cairoRunOutputPath, then parses and returns those raw
// results in task order.
func (s *SoundRunner) Run(ctx context.Context, inputPath, pieOutputPath, cairoRunOutputPath string) ([]*uint256.Int, error) {
	cmd := exec.CommandContext(ctx, s.BinaryPath,
		"--program", s.ProgramPath,
		"--program-input", inputPath,
		"--pie-output", pieOutputPath,
		"--cairo-run-output", cairoRunOutputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: sound run process exited: %v: %s", ErrSoundRunFailed, err, string(out))
	}

	raw, err := os.ReadFile(cairoRunOutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read cairo run output: %v", ErrSoundRunFailed, err)
	}
	var parsed soundRunOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode cairo run output: %v", ErrSoundRunFailed, err)
	}

	results := make([]*uint256.Int, len(parsed.RawResults))
	for i, r := range parsed.RawResults {
		v, err := parseFeltHexString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: raw result %d: %v", ErrSoundRunFailed, i, err)
		}
		results[i] = v
	}
	return results, nil
}

// parseFeltHexString decodes a 0x-prefixed felt, mirroring the compiler
// package's own hex felt parsing.
func parseFeltHexString(s string) (*uint256.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}
