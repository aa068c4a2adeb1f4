// Package service glues the settlement engine to the escrow journal and the
// HTTP surface. The engine stays deterministic and silent; this layer logs
// operations and mirrors their outcomes into Postgres.
package service

import (
	"log/slog"

	"github.com/unite-defi/fusion-settlement/internal/database"
	"github.com/unite-defi/fusion-settlement/internal/escrow"
	"github.com/unite-defi/fusion-settlement/internal/resolver"
	"github.com/unite-defi/fusion-settlement/internal/settlement"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// SettlementService exposes the settlement operations to the API layer.
type SettlementService struct {
	engine    *settlement.Engine
	db        *database.EscrowRepository
	whitelist *resolver.Whitelist
	log       *slog.Logger
}

// New creates the service. db may be nil to run without a journal.
func New(engine *settlement.Engine, db *database.EscrowRepository, whitelist *resolver.Whitelist, log *slog.Logger) *SettlementService {
	return &SettlementService{
		engine:    engine,
		db:        db,
		whitelist: whitelist,
		log:       log.With("component", "settlement"),
	}
}

// CreateOrder creates an escrow for the order and journals it.
func (s *SettlementService) CreateOrder(order *types.OrderConfig, accounts *types.OrderAccounts, p settlement.CreateParams) (*escrow.Escrow, error) {
	esc, err := s.engine.Create(order, accounts, p)
	if err != nil {
		s.log.Warn("create rejected", "maker", p.Maker.String(), "error", err)
		return nil, err
	}

	s.log.Info("escrow created",
		"order_hash", esc.OrderHash.String(),
		"escrow", esc.Address.String(),
		"maker", esc.Maker.String(),
		"src_amount", order.SrcAmount,
	)

	if s.db != nil {
		rec := &database.EscrowRecord{
			OrderHash:     esc.OrderHash.String(),
			EscrowAddress: esc.Address.String(),
			Maker:         esc.Maker.String(),
			SrcMint:       esc.SrcMint.String(),
			SrcIsNative:   esc.SrcIsNative,
			SrcAmount:     order.SrcAmount,
			Remaining:     order.SrcAmount,
			Rent:          esc.Rent,
		}
		if err := s.db.CreateEscrow(rec); err != nil {
			// The journal is a mirror, not the source of truth; a write
			// failure must not unwind a committed settlement.
			s.log.Error("journal create failed", "order_hash", rec.OrderHash, "error", err)
		}
	}
	return esc, nil
}

// FillOrder fills the order and journals the fill.
func (s *SettlementService) FillOrder(order *types.OrderConfig, accounts *types.OrderAccounts, maker types.Address, p settlement.FillParams, amount uint64) (*settlement.FillResult, error) {
	res, err := s.engine.Fill(order, accounts, maker, p, amount)
	if err != nil {
		s.log.Warn("fill rejected", "taker", p.Taker.String(), "error", err)
		return nil, err
	}

	s.log.Info("order filled",
		"order_hash", res.OrderHash.String(),
		"taker", p.Taker.String(),
		"amount", res.Amount,
		"rate_bump", res.RateBump,
		"maker_dst", res.MakerDst,
		"closed", res.Closed,
	)

	if s.db != nil {
		var remaining uint64
		if esc, ok := s.engine.Escrow(res.Escrow); ok {
			remaining = esc.Balance(s.engine.Ledger())
		}
		rec := &database.FillRecord{
			OrderHash:     res.OrderHash.String(),
			Taker:         p.Taker.String(),
			Amount:        res.Amount,
			RateBump:      res.RateBump,
			GrossDst:      res.GrossDst,
			MakerDst:      res.MakerDst,
			ProtocolFee:   res.Protocol,
			IntegratorFee: res.Integrator,
		}
		if err := s.db.RecordFill(rec, remaining, res.Closed); err != nil {
			s.log.Error("journal fill failed", "order_hash", rec.OrderHash, "error", err)
		}
	}
	return res, nil
}

// CancelOrder unwinds an escrow on the maker's behalf.
func (s *SettlementService) CancelOrder(orderHash types.Hash, srcIsNative bool, p settlement.CancelParams) (*settlement.CancelResult, error) {
	res, err := s.engine.Cancel(orderHash, srcIsNative, p)
	if err != nil {
		s.log.Warn("cancel rejected", "maker", p.Maker.String(), "error", err)
		return nil, err
	}

	s.log.Info("order cancelled",
		"order_hash", res.OrderHash.String(),
		"maker", p.Maker.String(),
		"returned", res.Returned,
	)

	if s.db != nil {
		if err := s.db.CloseEscrow(res.OrderHash.String(), database.StatusCancelled); err != nil {
			s.log.Error("journal cancel failed", "order_hash", res.OrderHash.String(), "error", err)
		}
	}
	return res, nil
}

// CancelByResolver unwinds an expired escrow for a premium.
func (s *SettlementService) CancelByResolver(order *types.OrderConfig, accounts *types.OrderAccounts, p settlement.ResolverCancelParams) (*settlement.CancelResult, error) {
	res, err := s.engine.CancelByResolver(order, accounts, p)
	if err != nil {
		s.log.Warn("resolver cancel rejected", "resolver", p.Resolver.String(), "error", err)
		return nil, err
	}

	s.log.Info("order cancelled by resolver",
		"order_hash", res.OrderHash.String(),
		"resolver", p.Resolver.String(),
		"premium", res.Premium,
		"returned", res.Returned,
	)

	if s.db != nil {
		if err := s.db.CloseEscrow(res.OrderHash.String(), database.StatusCancelledByResolver); err != nil {
			s.log.Error("journal resolver cancel failed", "order_hash", res.OrderHash.String(), "error", err)
		}
	}
	return res, nil
}

// OpenEscrows lists the engine's live escrows.
func (s *SettlementService) OpenEscrows() []*escrow.Escrow {
	return s.engine.Escrows()
}

// EscrowByAddress returns one live escrow with its remaining balance.
func (s *SettlementService) EscrowByAddress(addr types.Address) (*escrow.Escrow, uint64, bool) {
	esc, ok := s.engine.Escrow(addr)
	if !ok {
		return nil, 0, false
	}
	return esc, esc.Balance(s.engine.Ledger()), true
}

// RegisterResolver authorizes a resolver.
func (s *SettlementService) RegisterResolver(addr types.Address) {
	s.whitelist.Register(addr)
	s.log.Info("resolver registered", "resolver", addr.String())
}

// DeregisterResolver revokes a resolver; the revocation is visible to the
// next settlement operation.
func (s *SettlementService) DeregisterResolver(addr types.Address) {
	s.whitelist.Deregister(addr)
	s.log.Info("resolver deregistered", "resolver", addr.String())
}

// Resolvers lists the active whitelist.
func (s *SettlementService) Resolvers() []types.Address {
	return s.whitelist.Active()
}
