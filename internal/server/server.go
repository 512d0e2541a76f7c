package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fracvault/internal/domain"
	"github.com/alanyoungcy/fracvault/internal/server/handler"
	"github.com/alanyoungcy/fracvault/internal/server/middleware"
	"github.com/alanyoungcy/fracvault/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per RateWindow per client IP. Zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Vault      *handler.VaultHandler
	Auctions   *handler.AuctionHandler
	Payouts    *handler.PayoutHandler
	Governance *handler.GovernanceHandler
	Events     *handler.EventHandler
}

// Server is the headless HTTP + WebSocket API for the custody and auction
// engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches the
// WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Custody vault endpoints.
	mux.HandleFunc("POST /api/vault/deposit", handlers.Vault.Deposit)
	mux.HandleFunc("POST /api/vault/withdraw", handlers.Vault.Withdraw)
	mux.HandleFunc("POST /api/vault/redeem", handlers.Vault.Redeem)
	mux.HandleFunc("POST /api/vault/authority", handlers.Vault.SetAuthority)
	mux.HandleFunc("GET /api/vault/assets/{id}", handlers.Vault.GetAsset)

	// Auction endpoints.
	mux.HandleFunc("POST /api/auctions/authority", handlers.Auctions.SetAuthority)
	mux.HandleFunc("POST /api/auctions/{id}/start", handlers.Auctions.Start)
	mux.HandleFunc("POST /api/auctions/{id}/bid", handlers.Auctions.Bid)
	mux.HandleFunc("POST /api/auctions/{id}/end", handlers.Auctions.End)
	mux.HandleFunc("POST /api/auctions/{id}/cancel", handlers.Auctions.Cancel)
	mux.HandleFunc("GET /api/auctions/{id}", handlers.Auctions.GetAuction)

	// Pull-payment endpoints.
	mux.HandleFunc("POST /api/payments/withdraw", handlers.Payouts.Withdraw)
	mux.HandleFunc("GET /api/payments/{address}", handlers.Payouts.GetOwed)

	// Governance endpoints.
	mux.HandleFunc("POST /api/governance/proposals", handlers.Governance.CreateProposal)
	mux.HandleFunc("POST /api/governance/proposals/{id}/vote", handlers.Governance.Vote)
	mux.HandleFunc("POST /api/governance/proposals/{id}/execute", handlers.Governance.Execute)
	mux.HandleFunc("POST /api/governance/proposals/{id}/apply", handlers.Governance.Apply)
	mux.HandleFunc("GET /api/governance/proposals/{id}", handlers.Governance.GetProposal)

	// Event journal endpoints.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)
	mux.HandleFunc("POST /api/journal/archive", handlers.Events.Archive)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting when configured.
	if limiter != nil && cfg.RateLimit > 0 && cfg.RateWindow > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
