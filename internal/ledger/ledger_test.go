package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unite-defi/fusion-settlement/internal/types"
)

func addr(b byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestNativeTransfer(t *testing.T) {
	t.Parallel()

	l := New()
	alice, bob := addr(1), addr(2)
	l.CreditLamports(alice, 1000)

	require.NoError(t, l.Apply(Native{From: alice, To: bob, Amount: 400}))
	require.Equal(t, uint64(600), l.Lamports(alice))
	require.Equal(t, uint64(400), l.Lamports(bob))

	require.ErrorIs(t, l.Apply(Native{From: alice, To: bob, Amount: 601}), ErrInsufficientFunds)
	require.Equal(t, uint64(600), l.Lamports(alice))
}

func TestTokenTransfer(t *testing.T) {
	t.Parallel()

	l := New()
	mint := addr(9)
	a, b := addr(1), addr(2)
	require.NoError(t, l.CreateTokenAccount(a, mint, addr(11)))
	require.NoError(t, l.CreateTokenAccount(b, mint, addr(12)))
	require.NoError(t, l.MintTo(a, 500))

	require.NoError(t, l.Apply(Token{From: a, To: b, Mint: mint, Amount: 200}))
	require.Equal(t, uint64(300), l.TokenBalance(a))
	require.Equal(t, uint64(200), l.TokenBalance(b))

	require.ErrorIs(t, l.Apply(Token{From: a, To: b, Mint: mint, Amount: 301}), ErrInsufficientFunds)
	require.ErrorIs(t, l.Apply(Token{From: a, To: addr(3), Mint: mint, Amount: 1}), ErrUnknownAccount)
	require.ErrorIs(t, l.Apply(Token{From: a, To: b, Mint: addr(8), Amount: 1}), ErrMintMismatch)
}

func TestCreateTokenAccountTwice(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.CreateTokenAccount(addr(1), addr(9), addr(1)))
	require.ErrorIs(t, l.CreateTokenAccount(addr(1), addr(9), addr(1)), ErrAccountExists)
}

func TestCloseAccount(t *testing.T) {
	t.Parallel()

	l := New()
	escrowAddr, maker, mint := addr(1), addr(2), addr(9)
	require.NoError(t, l.CreateTokenAccount(escrowAddr, mint, escrowAddr))
	l.CreditLamports(escrowAddr, 777)

	// A funded token account refuses to close.
	require.NoError(t, l.MintTo(escrowAddr, 5))
	require.ErrorIs(t, l.CloseAccount(escrowAddr, maker), ErrAccountNotEmpty)

	// Drained, it closes and the lamports land on the destination.
	require.NoError(t, l.CreateTokenAccount(addr(3), mint, maker))
	require.NoError(t, l.Apply(Token{From: escrowAddr, To: addr(3), Mint: mint, Amount: 5}))
	require.NoError(t, l.CloseAccount(escrowAddr, maker))
	require.Equal(t, uint64(777), l.Lamports(maker))
	require.Equal(t, uint64(0), l.Lamports(escrowAddr))
	_, ok := l.TokenAccount(escrowAddr)
	require.False(t, ok)
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()

	l := New()
	alice, bob, mint := addr(1), addr(2), addr(9)
	l.CreditLamports(alice, 100)
	require.NoError(t, l.CreateTokenAccount(bob, mint, bob))
	require.NoError(t, l.MintTo(bob, 50))

	c := l.Clone()
	require.NoError(t, c.Apply(Native{From: alice, To: bob, Amount: 100}))
	require.NoError(t, c.MintTo(bob, 50))

	// The original is untouched.
	require.Equal(t, uint64(100), l.Lamports(alice))
	require.Equal(t, uint64(50), l.TokenBalance(bob))
	require.Equal(t, uint64(0), c.Lamports(alice))
	require.Equal(t, uint64(100), c.TokenBalance(bob))
}
