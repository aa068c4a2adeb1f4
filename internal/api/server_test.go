package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unite-defi/fusion-settlement/internal/config"
	"github.com/unite-defi/fusion-settlement/internal/ledger"
	"github.com/unite-defi/fusion-settlement/internal/resolver"
	"github.com/unite-defi/fusion-settlement/internal/service"
	"github.com/unite-defi/fusion-settlement/internal/settlement"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

func testAddr(b byte) types.Address {
	var a types.Address
	for i := range a {
		a[i] = b
	}
	return a
}

var (
	srcMint     = testAddr(0xA1)
	dstMint     = testAddr(0xB2)
	maker       = testAddr(0x01)
	taker       = testAddr(0x02)
	receiver    = testAddr(0x03)
	makerSrcAcc = testAddr(0x04)
	takerSrcAcc = testAddr(0x05)
	takerDstAcc = testAddr(0x06)
	makerDstAcc = testAddr(0x07)
)

func newTestServer(t *testing.T) (*Server, *resolver.Whitelist) {
	t.Helper()

	l := ledger.New()
	l.CreditLamports(maker, 1_000_000_000_000)
	l.CreditLamports(taker, 1_000_000_000_000)
	require.NoError(t, l.CreateTokenAccount(makerSrcAcc, srcMint, maker))
	require.NoError(t, l.MintTo(makerSrcAcc, 10_000_000_000_000))
	require.NoError(t, l.CreateTokenAccount(takerSrcAcc, srcMint, taker))
	require.NoError(t, l.CreateTokenAccount(takerDstAcc, dstMint, taker))
	require.NoError(t, l.MintTo(takerDstAcc, 10_000_000_000_000))

	w := resolver.NewWhitelist()
	w.Register(taker)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := settlement.New(l, w, settlement.WithClock(func() time.Time {
		return time.Unix(1_700_000_000, 0)
	}))
	svc := service.New(engine, nil, w, logger)
	return NewServer(config.APIConfig{}, svc, logger), w
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(blob)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func testOrder() (types.OrderConfig, types.OrderAccounts) {
	order := types.OrderConfig{
		ID:                 1,
		SrcAmount:          1_000_000_000_000,
		MinDstAmount:       900_000_000_000,
		EstimatedDstAmount: 1_000_000_000_000,
		ExpirationTime:     1_700_003_600,
		DutchAuctionData: types.AuctionData{
			StartTime:       1_700_000_000,
			Duration:        3600,
			InitialRateBump: 10_000,
		},
	}
	accounts := types.OrderAccounts{
		SrcMint:       srcMint,
		DstMint:       dstMint,
		MakerReceiver: receiver,
	}
	return order, accounts
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateFillCancelFlow(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	order, accounts := testOrder()

	msa := makerSrcAcc
	rec := do(t, s, http.MethodPost, "/orders", CreateOrderRequest{
		Order: order, Accounts: accounts, Maker: maker, MakerSrcAcc: &msa,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Address   types.Address `json:"address"`
		OrderHash types.Hash    `json:"order_hash"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// The escrow is listed while open.
	rec = do(t, s, http.MethodGet, "/escrows", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Equal(t, 1, listing.Count)

	rec = do(t, s, http.MethodGet, "/escrows/"+created.Address.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Partial fill, amounts as decimal strings.
	tsa, tda, mda := takerSrcAcc, takerDstAcc, makerDstAcc
	rec = do(t, s, http.MethodPost, "/orders/fill", FillRequest{
		Order: order, Accounts: accounts, Maker: maker, Taker: taker,
		TakerSrcAcc: &tsa, TakerDstAcc: &tda, MakerDstAcc: &mda,
		Amount: 250_000_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var fill struct {
		MakerDst string `json:"maker_dst"`
		Closed   bool   `json:"closed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fill))
	require.Equal(t, "247500000000", fill.MakerDst)
	require.False(t, fill.Closed)

	// Maker cancels the remainder.
	rec = do(t, s, http.MethodPost, "/orders/cancel", CancelRequest{
		OrderHash: created.OrderHash, Maker: maker, MakerSrcAcc: &msa,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled struct {
		Returned string `json:"returned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	require.Equal(t, "750000000000", cancelled.Returned)

	rec = do(t, s, http.MethodGet, "/escrows/"+created.Address.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFillUnauthorizedStatus(t *testing.T) {
	t.Parallel()
	s, w := newTestServer(t)
	order, accounts := testOrder()

	msa := makerSrcAcc
	rec := do(t, s, http.MethodPost, "/orders", CreateOrderRequest{
		Order: order, Accounts: accounts, Maker: maker, MakerSrcAcc: &msa,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	w.Deregister(taker)
	tsa, tda, mda := takerSrcAcc, takerDstAcc, makerDstAcc
	rec = do(t, s, http.MethodPost, "/orders/fill", FillRequest{
		Order: order, Accounts: accounts, Maker: maker, Taker: taker,
		TakerSrcAcc: &tsa, TakerDstAcc: &tda, MakerDstAcc: &mda,
		Amount: 1,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDuplicateCreateConflicts(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	order, accounts := testOrder()

	msa := makerSrcAcc
	req := CreateOrderRequest{Order: order, Accounts: accounts, Maker: maker, MakerSrcAcc: &msa}
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/orders", req).Code)
	require.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/orders", req).Code)
}

func TestResolverAdmin(t *testing.T) {
	t.Parallel()
	s, w := newTestServer(t)

	other := testAddr(0x42)
	rec := do(t, s, http.MethodPost, "/resolvers", ResolverRequest{Address: other})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, w.IsResolver(other))

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/resolvers/%s", other), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, w.IsResolver(other))
}
