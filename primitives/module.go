package primitives

import (
	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
	"github.com/holiman/uint256"
)

// Visibility tags a module input as part of the public commitment or kept
// out of it (a private witness the module still reads inside the VM).
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
)

// ModuleInput is one field-element input to a module task, tagged with its
// visibility per spec §3.
type ModuleInput struct {
	Value      *uint256.Int
	Visibility Visibility
}

// Module is `{program_hash, inputs, local_class_path?}` from spec §3.
// ProgramHash is itself a field element (represented with the same
// 256-bit integer type used for Cairo felts elsewhere in the module).
type Module struct {
	ProgramHash    *uint256.Int
	Inputs         []ModuleInput
	LocalClassPath string
}

// PublicInputs returns the Value of every input tagged VisibilityPublic, in
// order.
func (m Module) PublicInputs() []*uint256.Int {
	out := make([]*uint256.Int, 0, len(m.Inputs))
	for _, in := range m.Inputs {
		if in.Visibility == VisibilityPublic {
			out = append(out, in.Value)
		}
	}
	return out
}

// Commitment computes keccak(program_hash ‖ keccak(public_inputs)), per
// spec §3.
func (m Module) Commitment() types.Hash {
	var publicBytes []byte
	for _, v := range m.PublicInputs() {
		b := v.Bytes32()
		publicBytes = append(publicBytes, b[:]...)
	}
	publicCommit := crypto.Keccak256(publicBytes)

	programHash := m.ProgramHash
	if programHash == nil {
		programHash = new(uint256.Int)
	}
	phBytes := programHash.Bytes32()

	return crypto.Keccak256Hash(phBytes[:], publicCommit)
}
