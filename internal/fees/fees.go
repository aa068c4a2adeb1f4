// Package fees splits a fill's gross destination amount between the
// protocol, the integrator, and the maker.
package fees

import (
	"github.com/unite-defi/fusion-settlement/internal/fpmath"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// Amounts is the three-way split of a gross destination amount. The parts
// always sum to the gross amount passed to Split.
type Amounts struct {
	Protocol   uint64
	Integrator uint64
	Maker      uint64
}

// Split divides dstAmount (gross, after the auction bump) according to fee.
// estimatedShare is the portion of the order's estimated destination amount
// corresponding to the filled source amount, computed without the auction
// bump. Whatever the maker would receive beyond that estimate is surplus,
// and the protocol takes SurplusPercentage of it.
//
// The surplus test deliberately compares the auction-adjusted actual against
// the unadjusted estimate, so early fills at a high rate bump yield larger
// surplus fees than late ones.
func Split(dstAmount, estimatedShare uint64, fee *types.FeeConfig) (Amounts, error) {
	integrator, err := fpmath.MulDivFloor(dstAmount, uint64(fee.IntegratorFee), types.Base1E5)
	if err != nil {
		return Amounts{}, err
	}
	protocol, err := fpmath.MulDivFloor(dstAmount, uint64(fee.ProtocolFee), types.Base1E5)
	if err != nil {
		return Amounts{}, err
	}
	if protocol+integrator > dstAmount {
		return Amounts{}, fpmath.ErrArithmeticOverflow
	}

	actual := dstAmount - protocol - integrator
	if actual > estimatedShare {
		surplus, err := fpmath.MulDivFloor(actual-estimatedShare, uint64(fee.SurplusPercentage), types.Base1E2)
		if err != nil {
			return Amounts{}, err
		}
		protocol += surplus
	}

	return Amounts{
		Protocol:   protocol,
		Integrator: integrator,
		Maker:      dstAmount - integrator - protocol,
	}, nil
}
