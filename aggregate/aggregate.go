// Package aggregate implements host-side evaluation of a DatalakeCompute
// task's aggregate function over its fetched sample points (spec §3/§4.1
// supplemental: datalake-compute results are computed by the orchestrator,
// not by the sound VM, which only ever evaluates ExtendedModule programs).
package aggregate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/HerodotusDev/hdp-sub002/primitives"
	"github.com/holiman/uint256"
)

// Evaluate errors.
var (
	ErrEmptyPoints        = errors.New("aggregate: no sample points")
	ErrUnknownFunction    = errors.New("aggregate: unknown aggregate function")
	ErrMerkleNotSupported = errors.New("aggregate: MERKLE is produced by the result tree, not host-side evaluation")
)

// Evaluate reduces points (the sampled values for a BlockSampledDatalake or
// TransactionsInBlockDatalake, in fetch order) per the Computation's
// aggregate function, applying operator/threshold filtering first for
// COUNT_IF. Matches the strict semantics from spec §4.1: Lt/Gt are
// exclusive, Le/Ge inclusive, Eq exact.
func Evaluate(fn primitives.AggregateFnID, operator primitives.Operator, threshold *uint256.Int, points []*uint256.Int) (*uint256.Int, error) {
	if fn == primitives.AggregateCountIf {
		return countIf(operator, threshold, points)
	}
	if len(points) == 0 {
		return nil, ErrEmptyPoints
	}
	switch fn {
	case primitives.AggregateSum:
		return sum(points), nil
	case primitives.AggregateAvg:
		return avg(points), nil
	case primitives.AggregateMin:
		return min(points), nil
	case primitives.AggregateMax:
		return max(points), nil
	case primitives.AggregateStd:
		return std(points), nil
	case primitives.AggregateMerkle:
		return nil, ErrMerkleNotSupported
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, fn)
	}
}

func sum(points []*uint256.Int) *uint256.Int {
	acc := new(big.Int)
	for _, p := range points {
		acc.Add(acc, toBig(p))
	}
	return fromBig(acc)
}

func avg(points []*uint256.Int) *uint256.Int {
	acc := new(big.Int)
	for _, p := range points {
		acc.Add(acc, toBig(p))
	}
	acc.Div(acc, big.NewInt(int64(len(points))))
	return fromBig(acc)
}

func min(points []*uint256.Int) *uint256.Int {
	m := points[0]
	for _, p := range points[1:] {
		if p.Lt(m) {
			m = p
		}
	}
	return m
}

func max(points []*uint256.Int) *uint256.Int {
	m := points[0]
	for _, p := range points[1:] {
		if p.Gt(m) {
			m = p
		}
	}
	return m
}

// std returns the population standard deviation, floored to an integer
// (there is no fractional felt representation to carry remainder precision
// into).
func std(points []*uint256.Int) *uint256.Int {
	n := big.NewInt(int64(len(points)))
	meanAcc := new(big.Int)
	for _, p := range points {
		meanAcc.Add(meanAcc, toBig(p))
	}
	mean := new(big.Int).Div(meanAcc, n)

	variance := new(big.Int)
	for _, p := range points {
		d := new(big.Int).Sub(toBig(p), mean)
		d.Mul(d, d)
		variance.Add(variance, d)
	}
	variance.Div(variance, n)

	return fromBig(new(big.Int).Sqrt(variance))
}

// countIf counts the sample points satisfying `point OP threshold`, per
// spec §4.1: Eq is exact equality, Lt/Gt strictly exclusive, Le/Ge
// inclusive. Operator must be one of the five comparison codes; OperatorNone
// is only valid for non-COUNT_IF functions and is rejected here.
func countIf(operator primitives.Operator, threshold *uint256.Int, points []*uint256.Int) (*uint256.Int, error) {
	if threshold == nil {
		threshold = new(uint256.Int)
	}
	switch operator {
	case primitives.OperatorEq, primitives.OperatorLt, primitives.OperatorLe, primitives.OperatorGt, primitives.OperatorGe:
	default:
		return nil, fmt.Errorf("aggregate: invalid operator %s for COUNT_IF", operator)
	}
	count := uint64(0)
	for _, p := range points {
		var match bool
		switch operator {
		case primitives.OperatorEq:
			match = p.Eq(threshold)
		case primitives.OperatorLt:
			match = p.Lt(threshold)
		case primitives.OperatorLe:
			match = p.Lt(threshold) || p.Eq(threshold)
		case primitives.OperatorGt:
			match = p.Gt(threshold)
		case primitives.OperatorGe:
			match = p.Gt(threshold) || p.Eq(threshold)
		default:
			return nil, fmt.Errorf("aggregate: invalid operator %s for COUNT_IF", operator)
		}
		if match {
			count++
		}
	}
	return uint256.NewInt(count), nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(v *big.Int) *uint256.Int {
	out, _ := uint256.FromBig(v)
	return out
}
