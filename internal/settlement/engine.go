// Package settlement is the deterministic core of the exchange: it creates
// escrows from committed order configs, fills them at the Dutch-auction
// price, and unwinds them through maker or resolver cancellation. Every
// operation is atomic — it either fully commits against the ledger or leaves
// no trace.
package settlement

import (
	"fmt"
	"sync"
	"time"

	"github.com/unite-defi/fusion-settlement/internal/auction"
	"github.com/unite-defi/fusion-settlement/internal/escrow"
	"github.com/unite-defi/fusion-settlement/internal/fees"
	"github.com/unite-defi/fusion-settlement/internal/fpmath"
	"github.com/unite-defi/fusion-settlement/internal/ledger"
	"github.com/unite-defi/fusion-settlement/internal/resolver"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// DefaultEscrowRent is the base-currency balance locked into each escrow
// account at creation and released when it closes.
const DefaultEscrowRent = 2_039_280

// Engine settles orders against a ledger. Operations are serialized; each
// one mutates a clone of the ledger and swaps it in only on success, so a
// failing operation has no observable effect.
type Engine struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	access  resolver.Access
	escrows map[types.Address]*escrow.Escrow
	rent    uint64
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRent overrides the per-escrow rent balance.
func WithRent(lamports uint64) Option {
	return func(e *Engine) { e.rent = lamports }
}

// New creates an engine over l, authorizing resolvers through access.
func New(l *ledger.Ledger, access resolver.Access, opts ...Option) *Engine {
	e := &Engine{
		ledger:  l,
		access:  access,
		escrows: make(map[types.Address]*escrow.Escrow),
		rent:    DefaultEscrowRent,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the engine's current committed ledger.
func (e *Engine) Ledger() *ledger.Ledger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger
}

// Escrow returns the escrow at addr, if open.
func (e *Engine) Escrow(addr types.Address) (*escrow.Escrow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	esc, ok := e.escrows[addr]
	return esc, ok
}

// EscrowByHash returns maker's escrow for orderHash, if open.
func (e *Engine) EscrowByHash(maker types.Address, orderHash types.Hash) (*escrow.Escrow, bool) {
	return e.Escrow(types.EscrowAddress(maker, orderHash))
}

// Escrows returns all open escrows.
func (e *Engine) Escrows() []*escrow.Escrow {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*escrow.Escrow, 0, len(e.escrows))
	for _, esc := range e.escrows {
		out = append(out, esc)
	}
	return out
}

// CreateParams are the caller-bound accounts of a create.
type CreateParams struct {
	Maker types.Address
	// MakerSrcAcc is the token account funding the escrow. Nil exactly when
	// the source asset is native.
	MakerSrcAcc *types.Address
}

// Create freezes order, derives its escrow, and locks SrcAmount of the
// source asset plus rent from the maker into it.
func (e *Engine) Create(order *types.OrderConfig, accounts *types.OrderAccounts, p CreateParams) (*escrow.Escrow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateOrder(order, accounts); err != nil {
		return nil, err
	}
	if !order.SrcAssetIsNative && p.MakerSrcAcc == nil {
		return nil, ErrMissingMakerSrcAta
	}
	if order.SrcAssetIsNative && p.MakerSrcAcc != nil {
		return nil, ErrInconsistentNativeSrcTrait
	}

	hash, err := types.OrderHash(order, accounts)
	if err != nil {
		return nil, err
	}
	addr := types.EscrowAddress(p.Maker, hash)
	if _, ok := e.escrows[addr]; ok {
		return nil, ErrEscrowAlreadyExists
	}

	work := e.ledger.Clone()
	if err := work.Apply(ledger.Native{From: p.Maker, To: addr, Amount: e.rent}); err != nil {
		return nil, fmt.Errorf("fund escrow rent: %w", err)
	}
	if order.SrcAssetIsNative {
		// Native source is held directly in the escrow's base-currency
		// balance alongside the rent.
		if err := work.Apply(ledger.Native{From: p.Maker, To: addr, Amount: order.SrcAmount}); err != nil {
			return nil, fmt.Errorf("fund escrow: %w", err)
		}
	} else {
		if err := work.CreateTokenAccount(addr, accounts.SrcMint, addr); err != nil {
			return nil, ErrEscrowAlreadyExists
		}
		if err := work.Apply(ledger.Token{From: *p.MakerSrcAcc, To: addr, Mint: accounts.SrcMint, Amount: order.SrcAmount}); err != nil {
			return nil, fmt.Errorf("fund escrow: %w", err)
		}
	}

	esc := &escrow.Escrow{
		Address:     addr,
		Maker:       p.Maker,
		OrderHash:   hash,
		SrcMint:     accounts.SrcMint,
		SrcIsNative: order.SrcAssetIsNative,
		Rent:        e.rent,
		CreatedAt:   e.now().Unix(),
	}
	e.ledger = work
	e.escrows[addr] = esc
	return esc, nil
}

// FillParams are the caller-bound accounts of a fill.
type FillParams struct {
	Taker types.Address
	// TakerSrcAcc receives the filled source tokens. Nil exactly when the
	// source asset is native, in which case the lamports go to Taker.
	TakerSrcAcc *types.Address
	// TakerDstAcc pays the destination tokens. Nil exactly when the
	// destination asset is native, in which case Taker pays lamports.
	TakerDstAcc *types.Address
	// MakerDstAcc receives the maker's destination tokens on behalf of
	// maker_receiver; created on first use. Nil exactly when the destination
	// asset is native.
	MakerDstAcc *types.Address
}

// FillResult reports what a successful fill settled.
type FillResult struct {
	OrderHash  types.Hash   `json:"order_hash"`
	Escrow     types.Address `json:"escrow"`
	Amount     uint64       `json:"amount,string"`
	RateBump   uint64       `json:"rate_bump"`
	GrossDst   uint64       `json:"gross_dst,string"`
	MakerDst   uint64       `json:"maker_dst,string"`
	Protocol   uint64       `json:"protocol_fee,string"`
	Integrator uint64       `json:"integrator_fee,string"`
	Closed     bool         `json:"closed"`
}

// Fill settles amount source units of maker's order at the current auction
// price. Only an authorized resolver may call it.
func (e *Engine) Fill(order *types.OrderConfig, accounts *types.OrderAccounts, maker types.Address, p FillParams, amount uint64) (*FillResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now().Unix()

	if !e.access.IsResolver(p.Taker) {
		return nil, ErrUnauthorized
	}
	if now >= int64(order.ExpirationTime) {
		return nil, ErrOrderExpired
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if order.SrcAssetIsNative != (accounts.SrcMint == types.NativeMint) {
		return nil, ErrInconsistentNativeSrcTrait
	}
	if order.DstAssetIsNative != (accounts.DstMint == types.NativeMint) {
		return nil, ErrInconsistentNativeDstTrait
	}
	// Account slots must mirror the native traits.
	if order.SrcAssetIsNative != (p.TakerSrcAcc == nil) {
		return nil, ErrInconsistentNativeSrcTrait
	}
	if order.DstAssetIsNative {
		if p.TakerDstAcc != nil || p.MakerDstAcc != nil {
			return nil, ErrInconsistentNativeDstTrait
		}
	} else {
		if p.MakerDstAcc == nil {
			return nil, ErrMissingMakerDstAta
		}
		if p.TakerDstAcc == nil {
			return nil, ErrMissingTakerDstAta
		}
	}
	if (order.Fee.ProtocolFee > 0 || order.Fee.SurplusPercentage > 0) != (accounts.ProtocolDstAcc != nil) {
		return nil, ErrInconsistentProtocolFeeConfig
	}
	if (order.Fee.IntegratorFee > 0) != (accounts.IntegratorDstAcc != nil) {
		return nil, ErrInconsistentIntegratorFeeConfig
	}

	hash, err := types.OrderHash(order, accounts)
	if err != nil {
		return nil, err
	}
	addr := types.EscrowAddress(maker, hash)
	esc, ok := e.escrows[addr]
	if !ok {
		return nil, ErrEscrowNotFound
	}
	if amount > esc.Balance(e.ledger) {
		return nil, ErrNotEnoughTokensInEscrow
	}

	// Price the fill. The destination side is always proportional to the
	// committed SrcAmount, not the remaining balance, so later partial fills
	// earn the same schedule the maker signed up for.
	bump := auction.RateBump(now, &order.DutchAuctionData)
	gross, err := auction.DstAmount(amount, order.SrcAmount, order.MinDstAmount, &order.DutchAuctionData, now)
	if err != nil {
		return nil, err
	}
	floor, err := fpmath.MulDivCeil(order.MinDstAmount, amount, order.SrcAmount)
	if err != nil {
		return nil, err
	}
	if gross < floor {
		return nil, ErrOrderNotFillable
	}
	estShare, err := fpmath.MulDivCeil(order.EstimatedDstAmount, amount, order.SrcAmount)
	if err != nil {
		return nil, err
	}
	split, err := fees.Split(gross, estShare, &order.Fee)
	if err != nil {
		return nil, err
	}

	work := e.ledger.Clone()

	// Destination legs: taker pays maker_receiver and the fee recipients.
	if order.DstAssetIsNative {
		if err := work.Apply(ledger.Native{From: p.Taker, To: accounts.MakerReceiver, Amount: split.Maker}); err != nil {
			return nil, fmt.Errorf("pay maker: %w", err)
		}
		if split.Protocol > 0 {
			if err := work.Apply(ledger.Native{From: p.Taker, To: *accounts.ProtocolDstAcc, Amount: split.Protocol}); err != nil {
				return nil, fmt.Errorf("pay protocol fee: %w", err)
			}
		}
		if split.Integrator > 0 {
			if err := work.Apply(ledger.Native{From: p.Taker, To: *accounts.IntegratorDstAcc, Amount: split.Integrator}); err != nil {
				return nil, fmt.Errorf("pay integrator fee: %w", err)
			}
		}
	} else {
		if _, ok := work.TokenAccount(*p.MakerDstAcc); !ok {
			if err := work.CreateTokenAccount(*p.MakerDstAcc, accounts.DstMint, accounts.MakerReceiver); err != nil {
				return nil, fmt.Errorf("create maker dst account: %w", err)
			}
		}
		if err := work.Apply(ledger.Token{From: *p.TakerDstAcc, To: *p.MakerDstAcc, Mint: accounts.DstMint, Amount: split.Maker}); err != nil {
			return nil, fmt.Errorf("pay maker: %w", err)
		}
		if split.Protocol > 0 {
			if err := work.Apply(ledger.Token{From: *p.TakerDstAcc, To: *accounts.ProtocolDstAcc, Mint: accounts.DstMint, Amount: split.Protocol}); err != nil {
				return nil, fmt.Errorf("pay protocol fee: %w", err)
			}
		}
		if split.Integrator > 0 {
			if err := work.Apply(ledger.Token{From: *p.TakerDstAcc, To: *accounts.IntegratorDstAcc, Mint: accounts.DstMint, Amount: split.Integrator}); err != nil {
				return nil, fmt.Errorf("pay integrator fee: %w", err)
			}
		}
	}

	// Source leg: escrow releases the filled amount to the taker.
	if order.SrcAssetIsNative {
		if err := work.Apply(ledger.Native{From: addr, To: p.Taker, Amount: amount}); err != nil {
			return nil, fmt.Errorf("release source: %w", err)
		}
	} else {
		if err := work.Apply(ledger.Token{From: addr, To: *p.TakerSrcAcc, Mint: accounts.SrcMint, Amount: amount}); err != nil {
			return nil, fmt.Errorf("release source: %w", err)
		}
	}

	closed := esc.Balance(work) == 0
	if closed {
		// Exhausted: close the escrow, residual rent back to the maker.
		if err := work.CloseAccount(addr, maker); err != nil {
			return nil, fmt.Errorf("close escrow: %w", err)
		}
	}

	e.ledger = work
	if closed {
		delete(e.escrows, addr)
	}
	return &FillResult{
		OrderHash:  hash,
		Escrow:     addr,
		Amount:     amount,
		RateBump:   bump,
		GrossDst:   gross,
		MakerDst:   split.Maker,
		Protocol:   split.Protocol,
		Integrator: split.Integrator,
		Closed:     closed,
	}, nil
}

// CancelParams are the caller-bound accounts of a maker cancel.
type CancelParams struct {
	Maker types.Address
	// MakerSrcAcc receives the remaining source tokens. Nil exactly when the
	// source asset is native, in which case closure returns the lamports
	// directly.
	MakerSrcAcc *types.Address
}

// CancelResult reports what a cancellation returned.
type CancelResult struct {
	OrderHash types.Hash    `json:"order_hash"`
	Escrow    types.Address `json:"escrow"`
	Returned  uint64        `json:"returned,string"`
	Rent      uint64        `json:"rent,string"`
	Premium   uint64        `json:"premium,string"`
}

// Cancel returns the full remaining source balance to the maker and closes
// the escrow. Only the order's maker can reach its escrow: the address is
// re-derived from (maker, orderHash), so anyone else derives an unknown
// account. Cancellation is allowed at any time, before or after expiration,
// and pays no resolver premium.
func (e *Engine) Cancel(orderHash types.Hash, srcIsNative bool, p CancelParams) (*CancelResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr := types.EscrowAddress(p.Maker, orderHash)
	esc, ok := e.escrows[addr]
	if !ok {
		return nil, ErrEscrowNotFound
	}
	if esc.SrcIsNative != srcIsNative {
		return nil, ErrInconsistentNativeSrcTrait
	}
	if !srcIsNative && p.MakerSrcAcc == nil {
		return nil, ErrMissingMakerSrcAta
	}

	returned := esc.Balance(e.ledger)
	work := e.ledger.Clone()
	if !srcIsNative && returned > 0 {
		if err := work.Apply(ledger.Token{From: addr, To: *p.MakerSrcAcc, Mint: esc.SrcMint, Amount: returned}); err != nil {
			return nil, fmt.Errorf("return source: %w", err)
		}
	}
	if err := work.CloseAccount(addr, p.Maker); err != nil {
		return nil, fmt.Errorf("close escrow: %w", err)
	}

	e.ledger = work
	delete(e.escrows, addr)
	return &CancelResult{
		OrderHash: orderHash,
		Escrow:    addr,
		Returned:  returned,
		Rent:      esc.Rent,
	}, nil
}

// ResolverCancelParams are the caller-bound accounts of a resolver cancel.
type ResolverCancelParams struct {
	Resolver types.Address
	Maker    types.Address
	// MakerSrcAcc receives the remaining source tokens. Nil exactly when the
	// source asset is native.
	MakerSrcAcc *types.Address
	// RewardLimit caps the premium the resolver accepts.
	RewardLimit uint64
}

// CancelByResolver lets an authorized resolver unwind an expired order. The
// remaining source returns to the maker; the resolver earns the
// time-weighted premium, capped by its reward limit, out of the escrow's
// closing rent.
func (e *Engine) CancelByResolver(order *types.OrderConfig, accounts *types.OrderAccounts, p ResolverCancelParams) (*CancelResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now().Unix()

	if !e.access.IsResolver(p.Resolver) {
		return nil, ErrUnauthorized
	}
	if order.Fee.MaxCancellationPremium == 0 {
		return nil, ErrCancelOrderByResolverIsForbidden
	}
	if now < int64(order.ExpirationTime) {
		return nil, ErrOrderNotExpired
	}
	if order.SrcAssetIsNative != (accounts.SrcMint == types.NativeMint) {
		return nil, ErrInconsistentNativeSrcTrait
	}
	if order.DstAssetIsNative != (accounts.DstMint == types.NativeMint) {
		return nil, ErrInconsistentNativeDstTrait
	}
	if !order.SrcAssetIsNative && p.MakerSrcAcc == nil {
		return nil, ErrMissingMakerSrcAta
	}

	hash, err := types.OrderHash(order, accounts)
	if err != nil {
		return nil, err
	}
	addr := types.EscrowAddress(p.Maker, hash)
	esc, ok := e.escrows[addr]
	if !ok {
		return nil, ErrEscrowNotFound
	}

	reward := auction.CancellationPremium(now, order.ExpirationTime, order.CancellationAuctionDuration, order.Fee.MaxCancellationPremium)
	if reward > p.RewardLimit {
		reward = p.RewardLimit
	}
	// The premium is carved out of the closing rent; it never touches the
	// maker's source refund.
	if reward > esc.Rent {
		reward = esc.Rent
	}

	returned := esc.Balance(e.ledger)
	work := e.ledger.Clone()
	if !order.SrcAssetIsNative && returned > 0 {
		if err := work.Apply(ledger.Token{From: addr, To: *p.MakerSrcAcc, Mint: esc.SrcMint, Amount: returned}); err != nil {
			return nil, fmt.Errorf("return source: %w", err)
		}
	}
	if reward > 0 {
		if err := work.Apply(ledger.Native{From: addr, To: p.Resolver, Amount: reward}); err != nil {
			return nil, fmt.Errorf("pay premium: %w", err)
		}
	}
	if err := work.CloseAccount(addr, p.Maker); err != nil {
		return nil, fmt.Errorf("close escrow: %w", err)
	}

	e.ledger = work
	delete(e.escrows, addr)
	return &CancelResult{
		OrderHash: hash,
		Escrow:    addr,
		Returned:  returned,
		Rent:      esc.Rent - reward,
		Premium:   reward,
	}, nil
}
