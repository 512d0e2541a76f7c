// Package app provides the top-level application lifecycle. It wires together
// all dependencies (journal store, Redis coordination, blob storage, the engine
// components, and notifications), builds the HTTP and WebSocket surface, and
// runs everything until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fracvault/internal/config"
	"github.com/alanyoungcy/fracvault/internal/ledger"
	"github.com/alanyoungcy/fracvault/internal/notify"
	"github.com/alanyoungcy/fracvault/internal/server"
	"github.com/alanyoungcy/fracvault/internal/server/handler"
	"github.com/alanyoungcy/fracvault/internal/server/ws"
	"github.com/alanyoungcy/fracvault/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, constructs the
// engine, starts the HTTP server and background workers, and blocks until the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	engine, err := a.buildEngine(ctx, deps)
	if err != nil {
		return fmt.Errorf("app: build engine: %w", err)
	}

	return a.serve(ctx, deps, engine)
}

// engineComponents groups the constructed engine so serve can build handlers.
type engineComponents struct {
	vault      *service.CustodyVault
	auctions   *service.AuctionEngine
	pending    *service.PendingPaymentLedger
	governance *service.GovernanceController
}

// buildEngine constructs the engine components against the in-process
// collaborator ledgers and registers the authority relationships: the vault is
// the fraction ledger's sole mint/burn caller, and the governance controller
// is the authority on both the vault and the auction engine.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies) (*engineComponents, error) {
	owner := a.cfg.OwnerAddress()
	treasury := a.cfg.TreasuryAddress()
	govAddr := a.cfg.GovernanceAddress()

	fractions := ledger.NewFractionLedger()
	registry := ledger.NewAssetRegistry()
	bank := ledger.NewBank()

	recorder := service.NewRecorder(deps.EventStore, deps.SignalBus, a.logger)

	vault := service.NewCustodyVault(service.VaultConfig{
		Owner:             owner,
		VaultAddress:      a.cfg.VaultAddress(),
		Treasury:          treasury,
		FractionsPerAsset: big.NewInt(a.cfg.Engine.FractionsPerAsset),
	}, registry, fractions, bank, recorder, a.logger)

	pending := service.NewPendingPaymentLedger(treasury, bank, recorder, a.logger)

	auctions := service.NewAuctionEngine(owner, treasury, service.AuctionParams{
		Duration:        a.cfg.Engine.AuctionDuration.Duration,
		AntiSnipeWindow: a.cfg.Engine.AntiSnipeWindow.Duration,
		Extension:       a.cfg.Engine.Extension.Duration,
		RoyaltyPct:      a.cfg.Engine.RoyaltyPct,
	}, vault, registry, bank, pending, recorder, a.logger)

	governance := service.NewGovernanceController(govAddr, service.GovernanceParams{
		VotingPeriod:   a.cfg.Governance.VotingPeriod.Duration,
		ExecutionDelay: a.cfg.Governance.ExecutionDelay.Duration,
		QuorumPct:      a.cfg.Governance.QuorumPct,
		ThresholdPct:   a.cfg.Governance.ThresholdPct,
	}, fractions, auctions, recorder, a.logger)

	// Boot-time authority wiring.
	if err := fractions.SetAuthority(a.cfg.VaultAddress()); err != nil {
		return nil, fmt.Errorf("fraction ledger authority: %w", err)
	}
	if err := vault.SetAuthority(ctx, owner, govAddr); err != nil {
		return nil, fmt.Errorf("vault authority: %w", err)
	}
	if err := auctions.SetAuthority(ctx, owner, govAddr); err != nil {
		return nil, fmt.Errorf("auction authority: %w", err)
	}

	return &engineComponents{
		vault:      vault,
		auctions:   auctions,
		pending:    pending,
		governance: governance,
	}, nil
}

// serve runs the HTTP server, the WebSocket hub, and the notification watcher
// until the context is cancelled.
func (a *App) serve(ctx context.Context, deps *Dependencies, engine *engineComponents) error {
	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	watcher := notify.NewWatcher(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("notify watcher: %w", err)
		}
		return nil
	})

	var archiver handler.EventArchiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.logger),
		Vault:      handler.NewVaultHandler(engine.vault, a.logger),
		Auctions:   handler.NewAuctionHandler(engine.auctions, deps.LockManager, a.cfg.Server.AuctionLockTTL.Duration, a.logger),
		Payouts:    handler.NewPayoutHandler(engine.pending, a.logger),
		Governance: handler.NewGovernanceHandler(engine.governance, a.logger),
		Events:     handler.NewEventHandler(deps.EventStore, archiver, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
