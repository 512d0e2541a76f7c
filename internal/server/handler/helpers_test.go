package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrLockHeld, http.StatusLocked},
		{domain.ErrBusy, http.StatusLocked},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrTransferFailed, http.StatusBadGateway},
		{domain.ErrBidTooLow, http.StatusConflict},
		{domain.ErrAuctionNotActive, http.StatusConflict},
		{domain.ErrInsufficientFunds, http.StatusConflict},
		{domain.ErrNoFunds, http.StatusConflict},
		{domain.ErrAlreadySet, http.StatusConflict},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), "error %v", tc.err)
	}

	// Wrapped sentinels map the same as bare ones.
	wrapped := fmt.Errorf("vault: redeem: %w", domain.ErrNoProceeds)
	assert.Equal(t, http.StatusConflict, statusForError(wrapped))
}

func TestParseAmount(t *testing.T) {
	n, err := parseAmount("1500")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), n.Int64())

	// Values past float64 precision survive the string encoding.
	big, err := parseAmount("123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", big.String())

	for _, bad := range []string{"", "-5", "1.5", "0x10", "ten"} {
		_, err := parseAmount(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("0x00000000000000000000000000000000000000b1")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b1"), addr)

	for _, bad := range []string{"", "b1", "0x123", "0xzz000000000000000000000000000000000000zz"} {
		_, err := parseAddress(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
