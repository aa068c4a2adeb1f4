// Package fpmath provides checked 64-bit fixed-point helpers used by the
// auction, fee, and partial-fill arithmetic. The intermediate product is
// computed at 128-bit width so a*b never wraps before the division.
package fpmath

import (
	"errors"
	"math"
	"math/bits"
)

// ErrArithmeticOverflow is returned when a result does not fit in uint64 or
// the denominator is zero.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// MulDivFloor returns floor(a*b/denom).
func MulDivFloor(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= denom {
		// Quotient would need more than 64 bits.
		return 0, ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, denom)
	return q, nil
}

// MulDivCeil returns ceil(a*b/denom).
func MulDivCeil(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= denom {
		return 0, ErrArithmeticOverflow
	}
	q, r := bits.Div64(hi, lo, denom)
	if r > 0 {
		if q == math.MaxUint64 {
			return 0, ErrArithmeticOverflow
		}
		q++
	}
	return q, nil
}
