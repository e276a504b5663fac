package primitives

import (
	"encoding/binary"

	"github.com/HerodotusDev/hdp-sub002/core/types"
)

// TaskKind discriminates the TaskEnvelope sum type.
type TaskKind uint8

const (
	TaskDatalakeCompute TaskKind = iota
	TaskExtendedModule
)

// TaskEnvelope is the sum type `DatalakeCompute | ExtendedModule` from
// spec §3. Dispatch is by Kind(), never by type assertion chains.
type TaskEnvelope interface {
	Kind() TaskKind
	ChainID() ChainId
	Commitment() (types.Hash, error)

	// Encode returns the task's canonical byte encoding, the form felt-
	// projected into the VM's program input (spec §4.2, "encoded task
	// bytes"). It is prefixed with the same one-byte Kind() tag used to
	// make the encoding self-describing, mirroring Datalake.Encode.
	Encode() ([]byte, error)
}

// DatalakeCompute is `{datalake, compute}`; its commitment is
// `keccak(datalake_commit || compute_commit)` per spec §3/§4.1.
type DatalakeCompute struct {
	Datalake    Datalake
	Computation Computation
}

func (t DatalakeCompute) Kind() TaskKind   { return TaskDatalakeCompute }
func (t DatalakeCompute) ChainID() ChainId { return t.Datalake.ChainID() }

func (t DatalakeCompute) Commitment() (types.Hash, error) {
	dc, err := CommitDatalake(t.Datalake)
	if err != nil {
		return types.Hash{}, err
	}
	cc, err := CommitComputation(t.Computation)
	if err != nil {
		return types.Hash{}, err
	}
	return commitKeccakPair(dc, cc), nil
}

// Encode packs the datalake encoding length-prefixed ahead of the compute
// encoding, so the two variable/fixed-length sections can be split back
// apart unambiguously.
func (t DatalakeCompute) Encode() ([]byte, error) {
	de, err := t.Datalake.Encode()
	if err != nil {
		return nil, err
	}
	ce, err := t.Computation.Encode()
	if err != nil {
		return nil, err
	}
	out := []byte{byte(TaskDatalakeCompute)}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(de)))
	out = append(out, lenBuf[:]...)
	out = append(out, de...)
	out = append(out, ce...)
	return out, nil
}

// ExtendedModule is `{module, casm_class}` where CasmClass is the compiled
// VM bytecode resolved by the compiler (registry lookup or local file),
// per spec §3/§4.4.
type ExtendedModule struct {
	Module    Module
	CasmClass []byte

	// ModuleChainID is the value ChainID reports. Modules have no intrinsic
	// chain id of their own (they read chain data through fetch keys
	// derived at dry-run time, not through a datalake descriptor), so it is
	// whatever the code building the task sets; neither the compiler nor the
	// orchestrator fills it in, and left unset it reports chain id 0.
	ModuleChainID ChainId
}

func (t ExtendedModule) Kind() TaskKind   { return TaskExtendedModule }
func (t ExtendedModule) ChainID() ChainId { return t.ModuleChainID }

func (t ExtendedModule) Commitment() (types.Hash, error) {
	return t.Module.Commitment(), nil
}

// Encode packs the program hash, then each input's visibility tag and
// value, then the casm class bytes. Private inputs are included (the
// module itself reads them inside the VM) even though they are excluded
// from the public commitment.
func (t ExtendedModule) Encode() ([]byte, error) {
	out := []byte{byte(TaskExtendedModule)}
	programHash := t.Module.ProgramHash
	var phWord [32]byte
	if programHash != nil {
		phWord = programHash.Bytes32()
	}
	out = append(out, phWord[:]...)

	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(t.Module.Inputs)))
	out = append(out, countBuf[:]...)
	for _, in := range t.Module.Inputs {
		out = append(out, byte(in.Visibility))
		var word [32]byte
		if in.Value != nil {
			word = in.Value.Bytes32()
		}
		out = append(out, word[:]...)
	}
	out = append(out, t.CasmClass...)
	return out, nil
}
