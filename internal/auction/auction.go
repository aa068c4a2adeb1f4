// Package auction implements the two price curves of the protocol: the
// piecewise-linear rate-bump curve that decays a fill's destination premium
// over the auction window, and the linear cancellation-premium ramp that
// rewards resolvers for cancelling expired orders.
package auction

import (
	"github.com/unite-defi/fusion-settlement/internal/fpmath"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// RateBump evaluates the Dutch auction curve at now (unix seconds). The
// result is in parts per types.Base1E5.
//
// Before the auction starts the bump is pinned at InitialRateBump; after
// start+duration it is zero. In between the curve walks the breakpoints
// left-to-right and linearly interpolates inside the active segment, with a
// final segment down to zero at the auction end.
func RateBump(now int64, a *types.AuctionData) uint64 {
	start := int64(a.StartTime)
	end := start + int64(a.Duration)
	if now <= start {
		return uint64(a.InitialRateBump)
	}
	if now >= end {
		return 0
	}

	curTime := start
	curBump := uint64(a.InitialRateBump)
	for _, p := range a.PointsAndTimeDeltas {
		nextTime := curTime + int64(p.TimeDelta)
		nextBump := uint64(p.RateBump)
		if now <= nextTime {
			elapsed := uint64(now - curTime)
			left := uint64(nextTime - now)
			return (elapsed*nextBump + left*curBump) / uint64(p.TimeDelta)
		}
		curTime, curBump = nextTime, nextBump
	}

	// Past the last breakpoint: interpolate down to zero at the auction end.
	// now < end here, so end-curTime > 0.
	return uint64(end-now) * curBump / uint64(end-curTime)
}

// DstAmount converts a fill of amount source units into destination units:
// a ceiling-rounded pro-rata share of baseDst over the committed srcAmount,
// bumped by the auction curve when data is supplied.
func DstAmount(amount, srcAmount, baseDst uint64, data *types.AuctionData, now int64) (uint64, error) {
	dst, err := fpmath.MulDivCeil(baseDst, amount, srcAmount)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return dst, nil
	}
	return fpmath.MulDivCeil(dst, types.Base1E5+RateBump(now, data), types.Base1E5)
}

// CancellationPremium evaluates the resolver reward ramp at now: zero at or
// before expiration, rising linearly to max at expiration+duration and
// clamped there. Floor division, so the first instants after expiration can
// round to zero.
func CancellationPremium(now int64, expiration, duration uint32, max uint64) uint64 {
	if max == 0 || duration == 0 || now <= int64(expiration) {
		return 0
	}
	elapsed := now - int64(expiration)
	if elapsed >= int64(duration) {
		return max
	}
	// elapsed < duration bounds the result below max, so the checked
	// division cannot fail.
	premium, _ := fpmath.MulDivFloor(max, uint64(elapsed), uint64(duration))
	return premium
}
