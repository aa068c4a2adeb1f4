// Package database journals escrow lifecycle events to Postgres so
// operators and off-chain tooling can query settlement history. The journal
// mirrors the engine; the engine never reads it back.
package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Escrow statuses recorded in the journal.
const (
	StatusOpen                = "OPEN"
	StatusFilled              = "FILLED"
	StatusCancelled           = "CANCELLED"
	StatusCancelledByResolver = "CANCELLED_BY_RESOLVER"
)

// EscrowRecord is one journaled escrow.
type EscrowRecord struct {
	ID            int64     `json:"id"`
	OrderHash     string    `json:"orderHash"`
	EscrowAddress string    `json:"escrowAddress"`
	Maker         string    `json:"maker"`
	SrcMint       string    `json:"srcMint"`
	SrcIsNative   bool      `json:"srcIsNative"`
	SrcAmount     uint64    `json:"srcAmount,string"`
	Remaining     uint64    `json:"remaining,string"`
	Rent          uint64    `json:"rent,string"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FillRecord is one journaled fill.
type FillRecord struct {
	ID            int64     `json:"id"`
	OrderHash     string    `json:"orderHash"`
	Taker         string    `json:"taker"`
	Amount        uint64    `json:"amount,string"`
	RateBump      uint64    `json:"rateBump"`
	GrossDst      uint64    `json:"grossDst,string"`
	MakerDst      uint64    `json:"makerDst,string"`
	ProtocolFee   uint64    `json:"protocolFee,string"`
	IntegratorFee uint64    `json:"integratorFee,string"`
	FilledAt      time.Time `json:"filledAt"`
}

// EscrowRepository handles database operations for the escrow journal.
type EscrowRepository struct {
	db *sql.DB
}

// NewEscrowRepository creates a new escrow repository.
func NewEscrowRepository(db *sql.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// CreateEscrow journals a freshly created escrow.
func (r *EscrowRepository) CreateEscrow(rec *EscrowRecord) error {
	query := `
		INSERT INTO escrows (
			order_hash, escrow_address, maker, src_mint, src_is_native,
			src_amount, remaining, rent, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		rec.OrderHash,
		rec.EscrowAddress,
		rec.Maker,
		rec.SrcMint,
		rec.SrcIsNative,
		strconv.FormatUint(rec.SrcAmount, 10),
		strconv.FormatUint(rec.Remaining, 10),
		strconv.FormatUint(rec.Rent, 10),
		StatusOpen,
		now,
		now,
	).Scan(&rec.ID)

	if err != nil {
		return fmt.Errorf("failed to create escrow record: %w", err)
	}
	return nil
}

// RecordFill journals a fill and updates the escrow's remaining balance.
func (r *EscrowRepository) RecordFill(rec *FillRecord, remaining uint64, closed bool) error {
	query := `
		INSERT INTO escrow_fills (
			order_hash, taker, amount, rate_bump, gross_dst, maker_dst,
			protocol_fee, integrator_fee, filled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`

	err := r.db.QueryRow(
		query,
		rec.OrderHash,
		rec.Taker,
		strconv.FormatUint(rec.Amount, 10),
		rec.RateBump,
		strconv.FormatUint(rec.GrossDst, 10),
		strconv.FormatUint(rec.MakerDst, 10),
		strconv.FormatUint(rec.ProtocolFee, 10),
		strconv.FormatUint(rec.IntegratorFee, 10),
		time.Now(),
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to record fill: %w", err)
	}

	status := StatusOpen
	if closed {
		status = StatusFilled
	}
	update := `UPDATE escrows SET remaining = $1, status = $2, updated_at = $3 WHERE order_hash = $4`
	if _, err := r.db.Exec(update, strconv.FormatUint(remaining, 10), status, time.Now(), rec.OrderHash); err != nil {
		return fmt.Errorf("failed to update escrow after fill: %w", err)
	}
	return nil
}

// CloseEscrow marks an escrow cancelled.
func (r *EscrowRepository) CloseEscrow(orderHash, status string) error {
	query := `UPDATE escrows SET remaining = '0', status = $1, updated_at = $2 WHERE order_hash = $3`
	if _, err := r.db.Exec(query, status, time.Now(), orderHash); err != nil {
		return fmt.Errorf("failed to close escrow: %w", err)
	}
	return nil
}

// GetEscrowByHash retrieves a journaled escrow by order hash.
func (r *EscrowRepository) GetEscrowByHash(orderHash string) (*EscrowRecord, error) {
	query := `
		SELECT id, order_hash, escrow_address, maker, src_mint, src_is_native,
			   src_amount, remaining, rent, status, created_at, updated_at
		FROM escrows WHERE order_hash = $1`

	return r.scanEscrow(r.db.QueryRow(query, orderHash))
}

// GetOpenEscrows returns all escrows still open.
func (r *EscrowRepository) GetOpenEscrows() ([]*EscrowRecord, error) {
	query := `
		SELECT id, order_hash, escrow_address, maker, src_mint, src_is_native,
			   src_amount, remaining, rent, status, created_at, updated_at
		FROM escrows
		WHERE status = 'OPEN'
		ORDER BY created_at DESC`

	return r.queryEscrows(query)
}

// GetEscrowsByMaker returns escrows for a specific maker.
func (r *EscrowRepository) GetEscrowsByMaker(maker string) ([]*EscrowRecord, error) {
	query := `
		SELECT id, order_hash, escrow_address, maker, src_mint, src_is_native,
			   src_amount, remaining, rent, status, created_at, updated_at
		FROM escrows
		WHERE maker = $1
		ORDER BY created_at DESC`

	return r.queryEscrows(query, maker)
}

// GetFills returns the fill history of an order.
func (r *EscrowRepository) GetFills(orderHash string) ([]*FillRecord, error) {
	query := `
		SELECT id, order_hash, taker, amount, rate_bump, gross_dst, maker_dst,
			   protocol_fee, integrator_fee, filled_at
		FROM escrow_fills
		WHERE order_hash = $1
		ORDER BY filled_at ASC`

	rows, err := r.db.Query(query, orderHash)
	if err != nil {
		return nil, fmt.Errorf("failed to query fills: %w", err)
	}
	defer rows.Close()

	var fills []*FillRecord
	for rows.Next() {
		rec := &FillRecord{}
		var amount, gross, maker, protocol, integrator string
		err := rows.Scan(
			&rec.ID, &rec.OrderHash, &rec.Taker, &amount, &rec.RateBump,
			&gross, &maker, &protocol, &integrator, &rec.FilledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		if rec.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if rec.GrossDst, err = parseAmount(gross); err != nil {
			return nil, err
		}
		if rec.MakerDst, err = parseAmount(maker); err != nil {
			return nil, err
		}
		if rec.ProtocolFee, err = parseAmount(protocol); err != nil {
			return nil, err
		}
		if rec.IntegratorFee, err = parseAmount(integrator); err != nil {
			return nil, err
		}
		fills = append(fills, rec)
	}
	return fills, rows.Err()
}

func (r *EscrowRepository) queryEscrows(query string, args ...interface{}) ([]*EscrowRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query escrows: %w", err)
	}
	defer rows.Close()

	var escrows []*EscrowRecord
	for rows.Next() {
		rec, err := r.scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, rec)
	}
	return escrows, rows.Err()
}

// scanEscrow scans a database row into an EscrowRecord.
func (r *EscrowRepository) scanEscrow(scanner interface {
	Scan(dest ...interface{}) error
}) (*EscrowRecord, error) {
	rec := &EscrowRecord{}
	var srcAmount, remaining, rent string

	err := scanner.Scan(
		&rec.ID,
		&rec.OrderHash,
		&rec.EscrowAddress,
		&rec.Maker,
		&rec.SrcMint,
		&rec.SrcIsNative,
		&srcAmount,
		&remaining,
		&rent,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan escrow: %w", err)
	}

	if rec.SrcAmount, err = parseAmount(srcAmount); err != nil {
		return nil, err
	}
	if rec.Remaining, err = parseAmount(remaining); err != nil {
		return nil, err
	}
	if rec.Rent, err = parseAmount(rent); err != nil {
		return nil, err
	}
	return rec, nil
}

// Amounts are stored as decimal text so they survive any tooling that would
// round 64-bit integers through floats.
func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	return v, nil
}
