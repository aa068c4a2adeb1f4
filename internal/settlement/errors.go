package settlement

import (
	"errors"

	"github.com/unite-defi/fusion-settlement/internal/fpmath"
)

// Failure kinds returned by the settlement engine. Callers match them with
// errors.Is; Invalid*/Inconsistent*/Missing* and the authorization and
// expiry gates are caller errors, ErrArithmeticOverflow is fatal arithmetic,
// and ErrNotEnoughTokensInEscrow / ErrOrderNotFillable are liquidity-state
// signals off-chain systems may back off on.
var (
	ErrInvalidAmount                    = errors.New("invalid amount")
	ErrNotEnoughTokensInEscrow          = errors.New("not enough tokens in escrow")
	ErrOrderExpired                     = errors.New("order expired")
	ErrOrderNotExpired                  = errors.New("order not expired")
	ErrCancelOrderByResolverIsForbidden = errors.New("cancel order by resolver is forbidden")
	ErrInconsistentNativeSrcTrait       = errors.New("inconsistent native src trait")
	ErrInconsistentNativeDstTrait       = errors.New("inconsistent native dst trait")
	ErrInconsistentProtocolFeeConfig    = errors.New("inconsistent protocol fee config")
	ErrInconsistentIntegratorFeeConfig  = errors.New("inconsistent integrator fee config")
	ErrInconsistentEstimatedDstAmount   = errors.New("inconsistent estimated dst amount")
	ErrMissingMakerSrcAta               = errors.New("missing maker src ata")
	ErrMissingMakerDstAta               = errors.New("missing maker dst ata")
	ErrMissingTakerDstAta               = errors.New("missing taker dst ata")
	ErrOrderNotFillable                 = errors.New("order not fillable")
	ErrUnauthorized                     = errors.New("unauthorized")

	// ErrArithmeticOverflow surfaces the exact operation that overflowed.
	ErrArithmeticOverflow = fpmath.ErrArithmeticOverflow

	// Auction-shape and escrow-existence failures. On chain the latter two
	// surface as account-model errors rather than program codes; the engine
	// gives them names so callers can tell them apart.
	ErrInvalidDutchAuctionData   = errors.New("invalid dutch auction data")
	ErrInvalidCancellationConfig = errors.New("invalid cancellation auction config")
	ErrEscrowAlreadyExists       = errors.New("escrow already exists")
	ErrEscrowNotFound            = errors.New("escrow not found")
)
