package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// startAuction registers an asset to alice, locks it, and opens an auction
// with the given starting price.
func startAuction(t *testing.T, env *testEnv, id domain.AssetID, startingPrice int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, env.registry.Register(id, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{id}))
	require.NoError(t, env.engine.Start(ctx, owner, id, bigInt(startingPrice), 7*24*time.Hour))
}

func TestAuctionStartPreconditions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(1, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{1}))

	err := env.engine.Start(ctx, bob, 1, bigInt(100), 7*24*time.Hour)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = env.engine.Start(ctx, owner, 1, bigInt(100), 24*time.Hour)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed, "duration must match the configured value exactly")

	err = env.engine.Start(ctx, owner, 2, bigInt(100), 7*24*time.Hour)
	assert.ErrorIs(t, err, domain.ErrNotInCustody)

	require.NoError(t, env.engine.Start(ctx, owner, 1, bigInt(100), 7*24*time.Hour))
	err = env.engine.Start(ctx, owner, 1, bigInt(100), 7*24*time.Hour)
	assert.ErrorIs(t, err, domain.ErrAuctionActive)
}

func TestAuctionBidMonotonicity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)

	env.bank.Fund(bob, bigInt(1000))
	env.bank.Fund(carol, bigInt(1000))

	// A bid equal to the starting price is not strictly higher.
	err := env.engine.Bid(ctx, bob, 1, bigInt(100))
	assert.ErrorIs(t, err, domain.ErrBidTooLow)

	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(150)))
	assert.Equal(t, bigInt(150), env.bank.Balance(treasury))

	// A tie with the current highest bid loses.
	err = env.engine.Bid(ctx, carol, 1, bigInt(150))
	assert.ErrorIs(t, err, domain.ErrBidTooLow)

	require.NoError(t, env.engine.Bid(ctx, carol, 1, bigInt(200)))

	// The outbid party's stake is credited to the pending ledger, not pushed.
	assert.Equal(t, bigInt(150), env.pending.Owed(bob))
	assert.Equal(t, bigInt(850), env.bank.Balance(bob))

	a, err := env.engine.Auction(1)
	require.NoError(t, err)
	assert.Equal(t, bigInt(200), a.HighestBid)
	require.NotNil(t, a.HighestBidder)
	assert.Equal(t, carol, *a.HighestBidder)
	assert.Equal(t, int64(2), a.TotalBids)
}

func TestAuctionBidRequiresFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)

	err := env.engine.Bid(ctx, bob, 1, bigInt(150))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	a, aerr := env.engine.Auction(1)
	require.NoError(t, aerr)
	assert.Nil(t, a.HighestBidder)
}

func TestAuctionBidClosedWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)
	env.bank.Fund(bob, bigInt(1000))

	env.clock.Advance(7 * 24 * time.Hour)
	err := env.engine.Bid(ctx, bob, 1, bigInt(150))
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestAuctionAntiSnipeExtension(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)
	env.bank.Fund(bob, bigInt(10000))
	env.bank.Fund(carol, bigInt(10000))

	before, err := env.engine.Auction(1)
	require.NoError(t, err)

	// A bid outside the anti-snipe window leaves the deadline alone.
	env.clock.Advance(7*24*time.Hour - time.Hour)
	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(150)))
	mid, err := env.engine.Auction(1)
	require.NoError(t, err)
	assert.True(t, mid.EndTime.Equal(before.EndTime))

	// Ten minutes before the deadline is inside the 15-minute window.
	env.clock.Advance(50 * time.Minute)
	require.NoError(t, env.engine.Bid(ctx, carol, 1, bigInt(200)))
	ext1, err := env.engine.Auction(1)
	require.NoError(t, err)
	assert.True(t, ext1.EndTime.Equal(before.EndTime.Add(15*time.Minute)))

	// Extensions repeat on every qualifying late bid, without a cap.
	env.clock.Advance(20 * time.Minute)
	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(250)))
	ext2, err := env.engine.Auction(1)
	require.NoError(t, err)
	assert.True(t, ext2.EndTime.Equal(ext1.EndTime.Add(15*time.Minute)))
}

func TestAuctionEndSettles(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)
	env.bank.Fund(bob, bigInt(1000))
	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(200)))

	err := env.engine.End(ctx, bob, 1)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed, "deadline not reached")

	env.clock.Advance(7 * 24 * time.Hour)
	require.NoError(t, env.engine.End(ctx, bob, 1))

	// Asset moved to the winner.
	holder, err := env.registry.OwnerOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, bob, holder)

	// 5% royalty on 200 credited to the depositor, full bid recorded as
	// proceeds on top.
	assert.Equal(t, bigInt(10), env.pending.Owed(alice))
	rec, err := env.vault.Asset(1)
	require.NoError(t, err)
	assert.Equal(t, bigInt(200), rec.SaleProceeds)
	assert.False(t, rec.InCustody)

	err = env.engine.End(ctx, bob, 1)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)
}

func TestAuctionEndWithoutBids(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)

	env.clock.Advance(7 * 24 * time.Hour)
	err := env.engine.End(ctx, owner, 1)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	a, aerr := env.engine.Auction(1)
	require.NoError(t, aerr)
	assert.True(t, a.Active)
}

func TestAuctionEndRollsBackOnRejectedAssetTransfer(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	startAuction(t, env, 1, 100)
	env.bank.Fund(bob, bigInt(1000))
	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(200)))
	env.clock.Advance(7 * 24 * time.Hour)

	env.registry.BlockReceiver(bob)
	err := env.engine.End(ctx, bob, 1)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	a, aerr := env.engine.Auction(1)
	require.NoError(t, aerr)
	assert.True(t, a.Active, "settlement failure leaves the auction open for retry")

	env.registry.UnblockReceiver(bob)
	require.NoError(t, env.engine.End(ctx, bob, 1))
}

func TestAuctionCancelRefundsHighestBidder(t *testing.T) {
	env := newTestEnv().withAuthorities()
	ctx := context.Background()
	startAuction(t, env, 1, 100)
	env.bank.Fund(bob, bigInt(1000))
	require.NoError(t, env.engine.Bid(ctx, bob, 1, bigInt(150)))

	err := env.engine.Cancel(ctx, bob, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, env.engine.Cancel(ctx, govAddr, 1))
	assert.Equal(t, bigInt(150), env.pending.Owed(bob))

	a, aerr := env.engine.Auction(1)
	require.NoError(t, aerr)
	assert.False(t, a.Active)
	assert.Zero(t, a.HighestBid.Sign())
	assert.Nil(t, a.HighestBidder)

	err = env.engine.Cancel(ctx, govAddr, 1)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)
}

func TestAuctionParamSettersAreAuthorityGated(t *testing.T) {
	env := newTestEnv().withAuthorities()
	ctx := context.Background()

	err := env.engine.SetDuration(ctx, owner, 24*time.Hour)
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "owner is not the governance authority")

	require.NoError(t, env.engine.SetDuration(ctx, govAddr, 24*time.Hour))
	assert.Equal(t, 24*time.Hour, env.engine.Params().Duration)

	err = env.engine.SetRoyaltyPct(ctx, govAddr, 101)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	require.NoError(t, env.engine.SetRoyaltyPct(ctx, govAddr, 7))
	assert.Equal(t, uint64(7), env.engine.Params().RoyaltyPct)
}

func TestAuctionAuthorityOneTime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.engine.SetAuthority(ctx, owner, govAddr))
	err := env.engine.SetAuthority(ctx, owner, alice)
	assert.ErrorIs(t, err, domain.ErrAlreadySet)
}
