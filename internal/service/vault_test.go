package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

func TestVaultDepositMintsClaims(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(1, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{1}))

	bal, err := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, bigInt(1000), bal)

	holder, err := env.registry.OwnerOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, vaultAddr, holder)

	assert.True(t, env.vault.AssetInCustody(1))
	dep, err := env.vault.AssetDepositor(1)
	require.NoError(t, err)
	assert.Equal(t, alice, dep)
}

func TestVaultDepositEmptyBatch(t *testing.T) {
	env := newTestEnv()
	err := env.vault.Deposit(context.Background(), alice, nil)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestVaultDepositBatchIsAllOrNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(2, alice))
	require.NoError(t, env.registry.Register(3, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{2}))

	// Asset 2 is already locked, so the whole second batch must fail and
	// asset 3 must come back to alice.
	err := env.vault.Deposit(ctx, alice, []domain.AssetID{3, 2})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	holder, err2 := env.registry.OwnerOf(ctx, 3)
	require.NoError(t, err2)
	assert.Equal(t, alice, holder)
	assert.False(t, env.vault.AssetInCustody(3))

	bal, err2 := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, err2)
	assert.Equal(t, bigInt(1000), bal, "only the first deposit's claims remain")
}

func TestVaultDepositRejectedWhileProceedsOutstanding(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// A settled auction leaves the winner owning the asset while alice's 1000
	// claims still redeem against the 200 proceeds pool.
	startAuction(t, env, 11, 100)
	env.bank.Fund(bob, bigInt(1000))
	require.NoError(t, env.engine.Bid(ctx, bob, 11, bigInt(200)))
	env.clock.Advance(7 * 24 * time.Hour)
	require.NoError(t, env.engine.End(ctx, bob, 11))

	// The winner cannot restart a lock cycle over the live pool.
	err := env.vault.Deposit(ctx, bob, []domain.AssetID{11})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	rec, rerr := env.vault.Asset(11)
	require.NoError(t, rerr)
	assert.Equal(t, bigInt(200), rec.SaleProceeds, "the pool outstanding claims redeem against survives")
	holder, herr := env.registry.OwnerOf(ctx, 11)
	require.NoError(t, herr)
	assert.Equal(t, bob, holder)

	// alice's claims still redeem in full.
	payout, perr := env.vault.Redeem(ctx, alice, 11, bigInt(1000))
	require.NoError(t, perr)
	assert.Equal(t, bigInt(200), payout)

	// With the pool drained the asset can start a new cycle.
	require.NoError(t, env.vault.Deposit(ctx, bob, []domain.AssetID{11}))
	assert.True(t, env.vault.AssetInCustody(11))
}

func TestVaultDepositRollbackRestoresPriorCycleRecord(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Asset 12 completes a full lock cycle; its drained record stays behind.
	require.NoError(t, env.registry.Register(12, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{12}))
	require.NoError(t, env.vault.Withdraw(ctx, alice, 12))

	// Asset 13 belongs to bob, so the batch fails after 12 was re-locked.
	require.NoError(t, env.registry.Register(13, bob))
	err := env.vault.Deposit(ctx, alice, []domain.AssetID{12, 13})
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// The prior-cycle record is restored, not dropped.
	rec, rerr := env.vault.Asset(12)
	require.NoError(t, rerr)
	assert.False(t, rec.InCustody)
	assert.Equal(t, alice, rec.OriginalOwner)

	holder, herr := env.registry.OwnerOf(ctx, 12)
	require.NoError(t, herr)
	assert.Equal(t, alice, holder)
	bal, berr := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, berr)
	assert.Zero(t, bal.Sign())
}

func TestVaultWithdrawBurnsAndReturns(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(4, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{4}))
	require.NoError(t, env.vault.Withdraw(ctx, alice, 4))

	bal, err := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())

	holder, err := env.registry.OwnerOf(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, alice, holder)
	assert.False(t, env.vault.AssetInCustody(4))

	err = env.vault.Withdraw(ctx, alice, 4)
	assert.ErrorIs(t, err, domain.ErrNotInCustody)
}

func TestVaultWithdrawRequiresFullClaimSet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(5, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{5}))
	require.NoError(t, env.fractions.Transfer(ctx, alice, bob, bigInt(600)))

	err := env.vault.Withdraw(ctx, alice, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientClaims)
	assert.True(t, env.vault.AssetInCustody(5))
}

func TestVaultWithdrawRollsBackOnRejectedTransfer(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(6, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{6}))

	env.registry.BlockReceiver(alice)
	err := env.vault.Withdraw(ctx, alice, 6)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// Claims re-minted, custody intact.
	bal, berr := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, berr)
	assert.Equal(t, bigInt(1000), bal)
	assert.True(t, env.vault.AssetInCustody(6))

	env.registry.UnblockReceiver(alice)
	require.NoError(t, env.vault.Withdraw(ctx, alice, 6))
}

func TestVaultRedeemProRata(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(7, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{7}))
	require.NoError(t, env.vault.RecordSaleProceeds(ctx, 7, bigInt(200)))
	env.bank.Fund(treasury, bigInt(200))

	require.NoError(t, env.fractions.Transfer(ctx, alice, bob, bigInt(500)))

	// 200 * 500 / 1000 = 100.
	payout, err := env.vault.Redeem(ctx, bob, 7, bigInt(500))
	require.NoError(t, err)
	assert.Equal(t, bigInt(100), payout)
	assert.Equal(t, bigInt(100), env.bank.Balance(bob))

	rec, err := env.vault.Asset(7)
	require.NoError(t, err)
	assert.Equal(t, bigInt(100), rec.SaleProceeds)

	supply, err := env.fractions.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, bigInt(500), supply)
}

func TestVaultRedeemTruncatesDust(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(8, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{8}))
	require.NoError(t, env.vault.RecordSaleProceeds(ctx, 8, bigInt(99)))
	env.bank.Fund(treasury, bigInt(99))

	// 99 * 7 / 1000 truncates to 0; the burn still happens, dust stays pooled.
	payout, err := env.vault.Redeem(ctx, alice, 8, bigInt(7))
	require.NoError(t, err)
	assert.Zero(t, payout.Sign())

	rec, err := env.vault.Asset(8)
	require.NoError(t, err)
	assert.Equal(t, bigInt(99), rec.SaleProceeds)
}

func TestVaultRedeemWithoutProceeds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(9, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{9}))

	_, err := env.vault.Redeem(ctx, alice, 9, bigInt(100))
	assert.ErrorIs(t, err, domain.ErrNoProceeds)
}

func TestVaultRedeemRollsBackOnRejectedPayout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	require.NoError(t, env.registry.Register(10, alice))
	require.NoError(t, env.vault.Deposit(ctx, alice, []domain.AssetID{10}))
	require.NoError(t, env.vault.RecordSaleProceeds(ctx, 10, bigInt(500)))
	env.bank.Fund(treasury, bigInt(500))

	env.bank.BlockReceiver(alice)
	_, err := env.vault.Redeem(ctx, alice, 10, bigInt(500))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	// Proceeds and claims fully restored.
	rec, rerr := env.vault.Asset(10)
	require.NoError(t, rerr)
	assert.Equal(t, bigInt(500), rec.SaleProceeds)
	bal, berr := env.fractions.BalanceOf(ctx, alice)
	require.NoError(t, berr)
	assert.Equal(t, bigInt(1000), bal)
}

func TestVaultAuthorityIsOwnerGatedAndOneTime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.vault.SetAuthority(ctx, alice, govAddr)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, set := env.vault.Authority()
	assert.False(t, set)

	require.NoError(t, env.vault.SetAuthority(ctx, owner, govAddr))
	got, set := env.vault.Authority()
	assert.True(t, set)
	assert.Equal(t, govAddr, got)

	err = env.vault.SetAuthority(ctx, owner, alice)
	assert.ErrorIs(t, err, domain.ErrAlreadySet)
	got, _ = env.vault.Authority()
	assert.Equal(t, govAddr, got)
}

func TestVaultAssetLookupUnknown(t *testing.T) {
	env := newTestEnv()
	_, err := env.vault.Asset(999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.vault.AssetDepositor(999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
