package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/near/borsh-go"
)

// commitment is the canonical wire layout of an order's identity: the
// OrderConfig fields followed by the bound accounts, Borsh-encoded
// (little-endian fixed widths, one-byte Some/None tag on options, u32
// length-prefixed sequences). Field order is part of the protocol; any
// client composing order hashes must reproduce it bit-for-bit.
type commitment struct {
	ID                          uint32
	SrcAmount                   uint64
	MinDstAmount                uint64
	EstimatedDstAmount          uint64
	ExpirationTime              uint32
	SrcAssetIsNative            bool
	DstAssetIsNative            bool
	Fee                         FeeConfig
	DutchAuctionData            AuctionData
	CancellationAuctionDuration uint32
	ProtocolDstAcc              *Address
	IntegratorDstAcc            *Address
	SrcMint                     Address
	DstMint                     Address
	MakerReceiver               Address
}

// CommitmentBytes returns the canonical serialization hashed by OrderHash.
func CommitmentBytes(order *OrderConfig, accounts *OrderAccounts) ([]byte, error) {
	data, err := borsh.Serialize(commitment{
		ID:                          order.ID,
		SrcAmount:                   order.SrcAmount,
		MinDstAmount:                order.MinDstAmount,
		EstimatedDstAmount:          order.EstimatedDstAmount,
		ExpirationTime:              order.ExpirationTime,
		SrcAssetIsNative:            order.SrcAssetIsNative,
		DstAssetIsNative:            order.DstAssetIsNative,
		Fee:                         order.Fee,
		DutchAuctionData:            order.DutchAuctionData,
		CancellationAuctionDuration: order.CancellationAuctionDuration,
		ProtocolDstAcc:              accounts.ProtocolDstAcc,
		IntegratorDstAcc:            accounts.IntegratorDstAcc,
		SrcMint:                     accounts.SrcMint,
		DstMint:                     accounts.DstMint,
		MakerReceiver:               accounts.MakerReceiver,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize order commitment: %w", err)
	}
	return data, nil
}

// OrderHash computes the 32-byte identity digest of an order and its bound
// accounts. Two orders differing in any field, including receiver or fee
// recipients, hash to disjoint escrows.
func OrderHash(order *OrderConfig, accounts *OrderAccounts) (Hash, error) {
	data, err := CommitmentBytes(order, accounts)
	if err != nil {
		return Hash{}, err
	}
	return sha256.Sum256(data), nil
}
