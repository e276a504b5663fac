package primitives

import "errors"

// CodecError values. Malformed bytes, unknown tags and length mismatches
// are surfaced directly; none of these are retried by a caller.
var (
	ErrMalformed      = errors.New("primitives: malformed encoding")
	ErrUnknownTag     = errors.New("primitives: unknown type tag")
	ErrLengthMismatch = errors.New("primitives: length mismatch")
	ErrFieldRange     = errors.New("primitives: field out of range")
	ErrChainMismatch  = errors.New("primitives: chain id mismatch across batch")
)
