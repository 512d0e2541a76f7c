package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// watchedChannels are the signal bus channels the watcher listens on.
var watchedChannels = []string{
	"ch:vault",
	"ch:auction",
	"ch:payment",
	"ch:governance",
}

// Watcher subscribes to the engine's event channels on the signal bus and
// forwards entries to the Notifier. Which event types actually go out is the
// Notifier's filter; the watcher forwards everything it sees.
type Watcher struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewWatcher creates a Watcher bridging the signal bus to the notifier.
func NewWatcher(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "notify_watcher")),
	}
}

// Run subscribes to all event channels and forwards entries until the context
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, ch := range watchedChannels {
		msgCh, err := w.bus.Subscribe(ctx, ch)
		if err != nil {
			return fmt.Errorf("notify: subscribe %s: %w", ch, err)
		}
		go w.forward(ctx, ch, msgCh)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (w *Watcher) forward(ctx context.Context, channel string, msgCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgCh:
			if !ok {
				return
			}
			w.handle(ctx, channel, payload)
		}
	}
}

// handle decodes one journal entry and hands it to the notifier.
func (w *Watcher) handle(ctx context.Context, channel string, payload []byte) {
	var ev struct {
		Type   string         `json:"type"`
		Detail map[string]any `json:"detail"`
	}
	if err := json.Unmarshal(payload, &ev); err != nil || ev.Type == "" {
		w.logger.WarnContext(ctx, "unparseable event payload",
			slog.String("channel", channel),
		)
		return
	}

	title := titleFor(ev.Type)
	message := formatDetail(ev.Detail)
	if err := w.notifier.Notify(ctx, ev.Type, title, message); err != nil {
		w.logger.ErrorContext(ctx, "notification failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// titleFor maps an event type to a human-readable alert title.
func titleFor(eventType string) string {
	switch eventType {
	case domain.EventAuctionStarted:
		return "Auction started"
	case domain.EventBidPlaced:
		return "Bid placed"
	case domain.EventAuctionEnded:
		return "Auction settled"
	case domain.EventAuctionCancelled:
		return "Auction cancelled"
	case domain.EventProposalCreated:
		return "Proposal created"
	case domain.EventProposalQueued:
		return "Proposal queued"
	case domain.EventProposalExecuted:
		return "Proposal executed"
	case domain.EventParameterUpdated:
		return "Parameter updated"
	default:
		return "Engine event: " + eventType
	}
}

// formatDetail renders an event detail map as one key=value line per entry.
func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return "(no detail)"
	}
	out := ""
	for k, v := range detail {
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("%s: %v", k, v)
	}
	return out
}
