package primitives

import (
	"fmt"

	"github.com/HerodotusDev/hdp-sub002/core/types"
	"github.com/HerodotusDev/hdp-sub002/crypto"
	"github.com/holiman/uint256"
)

// AggregateFnID identifies the aggregation function a Computation applies
// over a datalake's sampled values.
type AggregateFnID uint8

const (
	AggregateAvg AggregateFnID = iota
	AggregateSum
	AggregateMin
	AggregateMax
	AggregateCountIf
	AggregateStd
	AggregateMerkle
)

func (f AggregateFnID) String() string {
	switch f {
	case AggregateAvg:
		return "AVG"
	case AggregateSum:
		return "SUM"
	case AggregateMin:
		return "MIN"
	case AggregateMax:
		return "MAX"
	case AggregateCountIf:
		return "COUNT_IF"
	case AggregateStd:
		return "STD"
	case AggregateMerkle:
		return "MERKLE"
	default:
		return fmt.Sprintf("AggregateFnID(%d)", uint8(f))
	}
}

func validAggregateFn(f AggregateFnID) bool {
	return f <= AggregateMerkle
}

// Operator is the relational code used by COUNT_IF to compare each sampled
// value against Computation.Threshold.
type Operator uint8

const (
	OperatorNone Operator = iota
	OperatorEq
	OperatorLt
	OperatorLe
	OperatorGt
	OperatorGe
)

func (op Operator) String() string {
	switch op {
	case OperatorNone:
		return "None"
	case OperatorEq:
		return "Eq"
	case OperatorLt:
		return "Lt"
	case OperatorLe:
		return "Le"
	case OperatorGt:
		return "Gt"
	case OperatorGe:
		return "Ge"
	default:
		return fmt.Sprintf("Operator(%d)", uint8(op))
	}
}

func validOperator(op Operator) bool {
	return op <= OperatorGe
}

// Computation is `{aggregate_fn_id, aggregate_fn_ctx = {Operator, U256}}`
// from spec §3.
type Computation struct {
	AggregateFnID AggregateFnID
	Operator      Operator
	Threshold     *uint256.Int
}

// Encode packs aggregate_fn_id (u8), operator (u8) and the U256 threshold,
// per spec §4.1.
func (c Computation) Encode() ([]byte, error) {
	if !validAggregateFn(c.AggregateFnID) {
		return nil, fmt.Errorf("%w: aggregate fn %d", ErrUnknownTag, c.AggregateFnID)
	}
	if !validOperator(c.Operator) {
		return nil, fmt.Errorf("%w: operator %d", ErrUnknownTag, c.Operator)
	}
	threshold := c.Threshold
	if threshold == nil {
		threshold = new(uint256.Int)
	}
	out := make([]byte, 0, 2+32)
	out = append(out, byte(c.AggregateFnID), byte(c.Operator))
	tb := threshold.Bytes32()
	out = append(out, tb[:]...)
	return out, nil
}

// DecodeComputation is the exact inverse of Computation.Encode.
func DecodeComputation(b []byte) (Computation, error) {
	if len(b) != 2+32 {
		return Computation{}, ErrLengthMismatch
	}
	fn := AggregateFnID(b[0])
	op := Operator(b[1])
	if !validAggregateFn(fn) {
		return Computation{}, fmt.Errorf("%w: aggregate fn %d", ErrUnknownTag, fn)
	}
	if !validOperator(op) {
		return Computation{}, fmt.Errorf("%w: operator %d", ErrUnknownTag, op)
	}
	threshold := new(uint256.Int).SetBytes(b[2:34])
	return Computation{AggregateFnID: fn, Operator: op, Threshold: threshold}, nil
}

// CommitComputation returns keccak(encode(computation)).
func CommitComputation(c Computation) (types.Hash, error) {
	b, err := c.Encode()
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Keccak256Hash(b), nil
}
