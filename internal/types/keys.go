package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is a 32-byte account identifier, rendered as base58 text.
type Address [32]byte

// NativeMint is the well-known mint identifier of the platform's base
// currency. An asset flagged native must use exactly this mint.
var NativeMint = MustAddressFromBase58("So11111111111111111111111111111111111111112")

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

// AddressFromBase58 parses a base58-encoded 32-byte address.
func AddressFromBase58(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("decode address: got %d bytes, want %d", len(raw), len(a))
	}
	copy(a[:], raw)
	return a, nil
}

// MustAddressFromBase58 parses a base58 address and panics on failure.
// Intended for well-known constants.
func MustAddressFromBase58(s string) Address {
	a, err := AddressFromBase58(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := AddressFromBase58(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Hash is the 32-byte order identity digest.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// HashFromHex parses a hex-encoded 32-byte hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("decode hash: got %d bytes, want %d", len(raw), len(h))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := HashFromHex(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// EscrowAddress derives the deterministic, program-controlled address of the
// escrow holding an order's source assets. The order hash is the sole seed
// distinguishing escrows of the same maker.
func EscrowAddress(maker Address, orderHash Hash) Address {
	d := sha256.New()
	d.Write([]byte("escrow"))
	d.Write(maker[:])
	d.Write(orderHash[:])
	var a Address
	copy(a[:], d.Sum(nil))
	return a
}
