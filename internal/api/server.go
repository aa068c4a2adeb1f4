// Package api exposes the settlement operations over HTTP JSON for
// operators and off-chain tooling. Amounts in request and response bodies
// are decimal strings; nothing 64-bit ever rides a float.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/unite-defi/fusion-settlement/internal/config"
	"github.com/unite-defi/fusion-settlement/internal/escrow"
	"github.com/unite-defi/fusion-settlement/internal/ledger"
	"github.com/unite-defi/fusion-settlement/internal/service"
	"github.com/unite-defi/fusion-settlement/internal/settlement"
	"github.com/unite-defi/fusion-settlement/internal/types"
)

// Server is the HTTP API server.
type Server struct {
	server  *http.Server
	config  config.APIConfig
	service *service.SettlementService
	mux     *http.ServeMux
	log     *slog.Logger
}

// NewServer creates a new API server over the settlement service.
func NewServer(cfg config.APIConfig, svc *service.SettlementService, log *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		config:  cfg,
		service: svc,
		mux:     mux,
		log:     log.With("component", "api"),
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	s.setupRoutes()
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting API server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.corsMiddleware(s.notFoundHandler))
	s.mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	s.mux.HandleFunc("/orders", s.corsMiddleware(s.createOrderHandler))
	s.mux.HandleFunc("/orders/fill", s.corsMiddleware(s.fillHandler))
	s.mux.HandleFunc("/orders/cancel", s.corsMiddleware(s.cancelHandler))
	s.mux.HandleFunc("/orders/cancel-by-resolver", s.corsMiddleware(s.resolverCancelHandler))
	s.mux.HandleFunc("/escrows", s.corsMiddleware(s.escrowsHandler))
	s.mux.HandleFunc("/escrows/", s.corsMiddleware(s.escrowDetailsHandler))
	s.mux.HandleFunc("/resolvers", s.corsMiddleware(s.resolversHandler))
	s.mux.HandleFunc("/resolvers/", s.corsMiddleware(s.resolverDetailsHandler))
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "fusion-settlement",
	})
}

// CreateOrderRequest carries a committed order config plus the maker-side
// bound accounts.
type CreateOrderRequest struct {
	Order       types.OrderConfig   `json:"order"`
	Accounts    types.OrderAccounts `json:"accounts"`
	Maker       types.Address       `json:"maker"`
	MakerSrcAcc *types.Address      `json:"maker_src_acc,omitempty"`
}

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	esc, err := s.service.CreateOrder(&req.Order, &req.Accounts, settlement.CreateParams{
		Maker:       req.Maker,
		MakerSrcAcc: req.MakerSrcAcc,
	})
	if err != nil {
		s.writeErrorResponse(w, errorStatus(err), "Failed to create order", err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, esc)
}

// FillRequest fills an escrow. The order config and accounts are re-supplied
// and re-hashed; a wrong config derives an unknown escrow.
type FillRequest struct {
	Order       types.OrderConfig   `json:"order"`
	Accounts    types.OrderAccounts `json:"accounts"`
	Maker       types.Address       `json:"maker"`
	Taker       types.Address       `json:"taker"`
	TakerSrcAcc *types.Address      `json:"taker_src_acc,omitempty"`
	TakerDstAcc *types.Address      `json:"taker_dst_acc,omitempty"`
	MakerDstAcc *types.Address      `json:"maker_dst_acc,omitempty"`
	Amount      uint64              `json:"amount,string"`
}

func (s *Server) fillHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req FillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	res, err := s.service.FillOrder(&req.Order, &req.Accounts, req.Maker, settlement.FillParams{
		Taker:       req.Taker,
		TakerSrcAcc: req.TakerSrcAcc,
		TakerDstAcc: req.TakerDstAcc,
		MakerDstAcc: req.MakerDstAcc,
	}, req.Amount)
	if err != nil {
		s.writeErrorResponse(w, errorStatus(err), "Failed to fill order", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, res)
}

// CancelRequest unwinds an escrow on the maker's behalf, identified by the
// order hash alone.
type CancelRequest struct {
	OrderHash   types.Hash     `json:"order_hash"`
	SrcIsNative bool           `json:"src_is_native"`
	Maker       types.Address  `json:"maker"`
	MakerSrcAcc *types.Address `json:"maker_src_acc,omitempty"`
}

func (s *Server) cancelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	res, err := s.service.CancelOrder(req.OrderHash, req.SrcIsNative, settlement.CancelParams{
		Maker:       req.Maker,
		MakerSrcAcc: req.MakerSrcAcc,
	})
	if err != nil {
		s.writeErrorResponse(w, errorStatus(err), "Failed to cancel order", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, res)
}

// ResolverCancelRequest unwinds an expired escrow for a premium.
type ResolverCancelRequest struct {
	Order       types.OrderConfig   `json:"order"`
	Accounts    types.OrderAccounts `json:"accounts"`
	Maker       types.Address       `json:"maker"`
	Resolver    types.Address       `json:"resolver"`
	MakerSrcAcc *types.Address      `json:"maker_src_acc,omitempty"`
	RewardLimit uint64              `json:"reward_limit,string"`
}

func (s *Server) resolverCancelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return
	}

	var req ResolverCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	res, err := s.service.CancelByResolver(&req.Order, &req.Accounts, settlement.ResolverCancelParams{
		Resolver:    req.Resolver,
		Maker:       req.Maker,
		MakerSrcAcc: req.MakerSrcAcc,
		RewardLimit: req.RewardLimit,
	})
	if err != nil {
		s.writeErrorResponse(w, errorStatus(err), "Failed to cancel order", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, res)
}

// EscrowView is an open escrow plus its live remaining balance.
type EscrowView struct {
	*escrow.Escrow
	Remaining uint64 `json:"remaining,string"`
}

func (s *Server) escrowsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	escrows := s.service.OpenEscrows()
	views := make([]EscrowView, 0, len(escrows))
	for _, esc := range escrows {
		_, remaining, ok := s.service.EscrowByAddress(esc.Address)
		if !ok {
			continue
		}
		views = append(views, EscrowView{Escrow: esc, Remaining: remaining})
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"escrows": views,
		"count":   len(views),
	})
}

func (s *Server) escrowDetailsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/escrows/")
	addr, err := types.AddressFromBase58(path)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid escrow address", err)
		return
	}

	esc, remaining, ok := s.service.EscrowByAddress(addr)
	if !ok {
		s.writeErrorResponse(w, http.StatusNotFound, "Escrow not found", nil)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, EscrowView{Escrow: esc, Remaining: remaining})
}

// ResolverRequest registers a resolver address.
type ResolverRequest struct {
	Address types.Address `json:"address"`
}

func (s *Server) resolversHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"resolvers": s.service.Resolvers(),
		})
	case http.MethodPost:
		var req ResolverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON", err)
			return
		}
		s.service.RegisterResolver(req.Address)
		s.writeJSONResponse(w, http.StatusCreated, map[string]string{"status": "registered"})
	default:
		s.methodNotAllowed(w)
	}
}

func (s *Server) resolverDetailsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/resolvers/")
	addr, err := types.AddressFromBase58(path)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid resolver address", err)
		return
	}

	s.service.DeregisterResolver(addr)
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deregistered"})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeErrorResponse(w, http.StatusNotFound, "Endpoint not found", nil)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	}

	if err != nil {
		s.log.Warn("request failed", "message", message, "error", err)
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}

// errorStatus maps settlement failure kinds onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, settlement.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, settlement.ErrEscrowNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrEscrowAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, settlement.ErrNotEnoughTokensInEscrow),
		errors.Is(err, settlement.ErrOrderNotFillable),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
