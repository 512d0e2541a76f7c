package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

var (
	vaultAddr = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestFractionLedgerAuthorityGating(t *testing.T) {
	l := NewFractionLedger()
	ctx := context.Background()

	err := l.Mint(ctx, alice, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, l.SetAuthority(vaultAddr))
	assert.ErrorIs(t, l.SetAuthority(alice), domain.ErrAlreadySet)

	require.NoError(t, l.Mint(ctx, alice, big.NewInt(100)))
	bal, err := l.BalanceOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), bal)

	supply, err := l.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), supply)
}

func TestFractionLedgerBurnShrinksSupply(t *testing.T) {
	l := NewFractionLedger()
	ctx := context.Background()
	require.NoError(t, l.SetAuthority(vaultAddr))
	require.NoError(t, l.Mint(ctx, alice, big.NewInt(100)))

	err := l.BurnFrom(ctx, alice, big.NewInt(150))
	assert.ErrorIs(t, err, domain.ErrInsufficientClaims)

	require.NoError(t, l.BurnFrom(ctx, alice, big.NewInt(60)))
	bal, _ := l.BalanceOf(ctx, alice)
	assert.Equal(t, big.NewInt(40), bal)
	supply, _ := l.TotalSupply(ctx)
	assert.Equal(t, big.NewInt(40), supply)
}

func TestFractionLedgerTransfer(t *testing.T) {
	l := NewFractionLedger()
	ctx := context.Background()
	require.NoError(t, l.SetAuthority(vaultAddr))
	require.NoError(t, l.Mint(ctx, alice, big.NewInt(100)))

	err := l.Transfer(ctx, alice, bob, big.NewInt(101))
	assert.ErrorIs(t, err, domain.ErrInsufficientClaims)

	require.NoError(t, l.Transfer(ctx, alice, bob, big.NewInt(30)))
	aBal, _ := l.BalanceOf(ctx, alice)
	bBal, _ := l.BalanceOf(ctx, bob)
	assert.Equal(t, big.NewInt(70), aBal)
	assert.Equal(t, big.NewInt(30), bBal)
}

func TestAssetRegistryOwnershipAndBlocking(t *testing.T) {
	r := NewAssetRegistry()
	ctx := context.Background()

	require.NoError(t, r.Register(1, alice))
	assert.ErrorIs(t, r.Register(1, bob), domain.ErrAlreadySet)

	_, err := r.OwnerOf(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = r.Transfer(ctx, bob, vaultAddr, 1)
	assert.ErrorIs(t, err, domain.ErrTransferFailed, "only the owner can move the asset")

	r.BlockReceiver(vaultAddr)
	err = r.Transfer(ctx, alice, vaultAddr, 1)
	assert.ErrorIs(t, err, domain.ErrTransferFailed)

	r.UnblockReceiver(vaultAddr)
	require.NoError(t, r.Transfer(ctx, alice, vaultAddr, 1))
	holder, err := r.OwnerOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, vaultAddr, holder)
}

func TestBankTransfers(t *testing.T) {
	b := NewBank()
	ctx := context.Background()

	err := b.Transfer(ctx, alice, bob, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	b.Fund(alice, big.NewInt(100))

	b.BlockReceiver(bob)
	err = b.Transfer(ctx, alice, bob, big.NewInt(10))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, big.NewInt(100), b.Balance(alice))

	b.UnblockReceiver(bob)
	require.NoError(t, b.Transfer(ctx, alice, bob, big.NewInt(10)))
	assert.Equal(t, big.NewInt(90), b.Balance(alice))
	assert.Equal(t, big.NewInt(10), b.Balance(bob))
}
