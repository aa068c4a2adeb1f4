// Package escrow models the per-order account holding a maker's locked
// source assets. An escrow is born at create, shrinks with each fill, and is
// destroyed by the fill that exhausts it or by either cancellation path.
package escrow

import (
	"github.com/unite-defi/fusion-settlement/internal/ledger"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// Escrow is the settlement engine's record of one order's locked source
// balance. The authoritative remaining size lives in the ledger account at
// Address; there is no separate fill counter.
type Escrow struct {
	Address     types.Address `json:"address"`
	Maker       types.Address `json:"maker"`
	OrderHash   types.Hash    `json:"order_hash"`
	SrcMint     types.Address `json:"src_mint"`
	SrcIsNative bool          `json:"src_is_native"`
	// Rent is the base-currency balance the maker funded the escrow account
	// with; it is returned (less any resolver premium) when the escrow
	// closes.
	Rent      uint64 `json:"rent,string"`
	CreatedAt int64  `json:"created_at"`
}

// Balance reads the remaining source amount from the ledger. For a native
// order the source balance is the escrow's lamports beyond rent.
func (e *Escrow) Balance(l *ledger.Ledger) uint64 {
	if e.SrcIsNative {
		total := l.Lamports(e.Address)
		if total <= e.Rent {
			return 0
		}
		return total - e.Rent
	}
	return l.TokenBalance(e.Address)
}
