package types

// Bases for the protocol's fixed-point units.
const (
	// Base1E5 is the denominator for fees and auction rate bumps
	// (parts per 100_000 = 100%).
	Base1E5 = 100_000
	// Base1E2 is the denominator for the surplus percentage (parts per 100).
	Base1E2 = 100
)

// FeeConfig describes how a fill's gross destination amount is split.
type FeeConfig struct {
	ProtocolFee            uint16 `json:"protocol_fee"`
	IntegratorFee          uint16 `json:"integrator_fee"`
	SurplusPercentage      uint8  `json:"surplus_percentage"`
	MaxCancellationPremium uint64 `json:"max_cancellation_premium,string"`
}

// PointAndTimeDelta is one breakpoint of the piecewise-linear auction curve.
// TimeDelta is relative to the previous breakpoint (or the auction start).
type PointAndTimeDelta struct {
	RateBump  uint16 `json:"rate_bump"`
	TimeDelta uint16 `json:"time_delta"`
}

// AuctionData parameterizes the Dutch auction price curve. The rate bump
// decays from InitialRateBump at StartTime through the breakpoints to zero at
// StartTime+Duration.
type AuctionData struct {
	StartTime           uint32              `json:"start_time"`
	Duration            uint32              `json:"duration"`
	InitialRateBump     uint16              `json:"initial_rate_bump"`
	PointsAndTimeDeltas []PointAndTimeDelta `json:"points_and_time_deltas"`
}

// OrderConfig is the committed, immutable description of an order. It is not
// persisted by the settlement engine; callers re-supply it and the engine
// re-derives the escrow address from its hash.
type OrderConfig struct {
	ID                          uint32      `json:"id"`
	SrcAmount                   uint64      `json:"src_amount,string"`
	MinDstAmount                uint64      `json:"min_dst_amount,string"`
	EstimatedDstAmount          uint64      `json:"estimated_dst_amount,string"`
	ExpirationTime              uint32      `json:"expiration_time"`
	SrcAssetIsNative            bool        `json:"src_asset_is_native"`
	DstAssetIsNative            bool        `json:"dst_asset_is_native"`
	Fee                         FeeConfig   `json:"fee"`
	DutchAuctionData            AuctionData `json:"dutch_auction_data"`
	CancellationAuctionDuration uint32      `json:"cancellation_auction_duration"`
}

// OrderAccounts are the accounts bound to an order outside OrderConfig but
// included in its identity. The optional recipients must be present exactly
// when the corresponding fee is configured.
type OrderAccounts struct {
	ProtocolDstAcc   *Address `json:"protocol_dst_acc,omitempty"`
	IntegratorDstAcc *Address `json:"integrator_dst_acc,omitempty"`
	SrcMint          Address  `json:"src_mint"`
	DstMint          Address  `json:"dst_mint"`
	MakerReceiver    Address  `json:"maker_receiver"`
}
