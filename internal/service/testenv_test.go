package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/fracvault/internal/ledger"
)

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	treasury  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	govAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a4")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol     = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testClock is a settable time source shared by the engine and governance.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testEnv wires a complete in-process engine against the collaborator ledgers,
// with the authority relationships already registered.
type testEnv struct {
	fractions  *ledger.FractionLedger
	registry   *ledger.AssetRegistry
	bank       *ledger.Bank
	vault      *CustodyVault
	pending    *PendingPaymentLedger
	engine     *AuctionEngine
	governance *GovernanceController
	clock      *testClock
}

func newTestEnv() *testEnv {
	logger := testLogger()
	clock := newTestClock()

	fractions := ledger.NewFractionLedger()
	registry := ledger.NewAssetRegistry()
	bank := ledger.NewBank()

	recorder := NewRecorder(nil, nil, logger)

	vault := NewCustodyVault(VaultConfig{
		Owner:             owner,
		VaultAddress:      vaultAddr,
		Treasury:          treasury,
		FractionsPerAsset: big.NewInt(1000),
	}, registry, fractions, bank, recorder, logger)

	pending := NewPendingPaymentLedger(treasury, bank, recorder, logger)

	engine := NewAuctionEngine(owner, treasury, AuctionParams{
		Duration:        7 * 24 * time.Hour,
		AntiSnipeWindow: 15 * time.Minute,
		Extension:       15 * time.Minute,
		RoyaltyPct:      5,
	}, vault, registry, bank, pending, recorder, logger).WithClock(clock.Now)

	governance := NewGovernanceController(govAddr, GovernanceParams{
		VotingPeriod:   72 * time.Hour,
		ExecutionDelay: 48 * time.Hour,
		QuorumPct:      10,
		ThresholdPct:   5,
	}, fractions, engine, recorder, logger).WithClock(clock.Now)

	if err := fractions.SetAuthority(vaultAddr); err != nil {
		panic(err)
	}

	return &testEnv{
		fractions:  fractions,
		registry:   registry,
		bank:       bank,
		vault:      vault,
		pending:    pending,
		engine:     engine,
		governance: governance,
		clock:      clock,
	}
}

// withAuthorities registers governance as the authority on the vault and the
// auction engine, matching production wiring.
func (e *testEnv) withAuthorities() *testEnv {
	ctx := context.Background()
	if err := e.vault.SetAuthority(ctx, owner, govAddr); err != nil {
		panic(err)
	}
	if err := e.engine.SetAuthority(ctx, owner, govAddr); err != nil {
		panic(err)
	}
	return e
}

func bigInt(n int64) *big.Int { return big.NewInt(n) }
