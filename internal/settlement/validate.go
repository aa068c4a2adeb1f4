package settlement

import (
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// validateOrder checks the creation invariants of a committed order config
// against its bound accounts.
func validateOrder(o *types.OrderConfig, acc *types.OrderAccounts) error {
	if o.SrcAmount == 0 || o.MinDstAmount == 0 {
		return ErrInvalidAmount
	}
	if o.EstimatedDstAmount < o.MinDstAmount {
		return ErrInconsistentEstimatedDstAmount
	}
	if (o.Fee.ProtocolFee > 0 || o.Fee.SurplusPercentage > 0) != (acc.ProtocolDstAcc != nil) {
		return ErrInconsistentProtocolFeeConfig
	}
	if (o.Fee.IntegratorFee > 0) != (acc.IntegratorDstAcc != nil) {
		return ErrInconsistentIntegratorFeeConfig
	}
	// The native flag and the mint must agree in both directions.
	if o.SrcAssetIsNative != (acc.SrcMint == types.NativeMint) {
		return ErrInconsistentNativeSrcTrait
	}
	if o.DstAssetIsNative != (acc.DstMint == types.NativeMint) {
		return ErrInconsistentNativeDstTrait
	}
	if err := validateAuction(&o.DutchAuctionData, o.ExpirationTime); err != nil {
		return err
	}
	if o.Fee.MaxCancellationPremium > 0 && o.CancellationAuctionDuration == 0 {
		return ErrInvalidCancellationConfig
	}
	return nil
}

func validateAuction(a *types.AuctionData, expiration uint32) error {
	if a.StartTime > expiration {
		return ErrInvalidDutchAuctionData
	}
	if (a.InitialRateBump > 0 || len(a.PointsAndTimeDeltas) > 0) && a.Duration == 0 {
		return ErrInvalidDutchAuctionData
	}
	var total uint64
	for _, p := range a.PointsAndTimeDeltas {
		// A zero delta would make interpolation inside the segment undefined.
		if p.TimeDelta == 0 {
			return ErrInvalidDutchAuctionData
		}
		total += uint64(p.TimeDelta)
	}
	if total > uint64(a.Duration) {
		return ErrInvalidDutchAuctionData
	}
	return nil
}
