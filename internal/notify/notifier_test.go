package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name   string
	titles []string
	fail   bool
}

func (f *fakeSender) Send(ctx context.Context, title, message string) error {
	if f.fail {
		return errors.New("webhook returned 500")
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEventType(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{"auction_ended", "proposal_queued"}, discard())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, "auction_ended", "Auction Ended", "asset 1"))
	require.NoError(t, n.Notify(ctx, "asset_deposited", "Asset Deposited", "asset 2"))
	require.NoError(t, n.Notify(ctx, "proposal_queued", "Proposal Queued", "proposal 1"))

	assert.Equal(t, []string{"Auction Ended", "Proposal Queued"}, s.titles)
}

func TestNotifyEmptyFilterAllowsEverything(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, discard())

	require.NoError(t, n.Notify(context.Background(), "anything", "Anything", "body"))
	assert.Len(t, s.titles, 1)
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{"auction_ended"}, discard())

	require.NoError(t, n.NotifyAll(context.Background(), "Startup", "engine online"))
	assert.Equal(t, []string{"Startup"}, s.titles)
}

func TestDispatchContinuesPastFailedSender(t *testing.T) {
	bad := &fakeSender{name: "telegram", fail: true}
	good := &fakeSender{name: "discord"}
	n := NewNotifier([]Sender{bad, good}, nil, discard())

	err := n.Notify(context.Background(), "auction_ended", "Auction Ended", "asset 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Len(t, good.titles, 1, "a failing sender does not block the others")
}

func TestNoSendersIsANoOp(t *testing.T) {
	n := NewNotifier(nil, nil, discard())
	assert.NoError(t, n.Notify(context.Background(), "auction_ended", "t", "m"))
}
