package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// Recorder implements domain.EventRecorder by fanning each event out to the
// persistent journal, the live signal bus, and the structured log. The journal
// is observational: a failure in any sink is logged and swallowed so it can
// never fail the engine operation that produced the event.
type Recorder struct {
	store  domain.EventStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewRecorder creates a Recorder. Both store and bus may be nil, in which case
// events only reach the log (useful for tests and degraded operation).
func NewRecorder(store domain.EventStore, bus domain.SignalBus, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Record journals one engine event.
func (r *Recorder) Record(ctx context.Context, eventType string, detail map[string]any) {
	ev := domain.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	if r.store != nil {
		if err := r.store.Append(ctx, ev); err != nil {
			r.logger.WarnContext(ctx, "event append failed",
				slog.String("event", eventType),
				slog.String("error", err.Error()),
			)
		}
	}

	if r.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"id":     ev.ID,
			"type":   ev.Type,
			"detail": ev.Detail,
			"at":     ev.CreatedAt,
		})
		if err == nil {
			if err := r.bus.Publish(ctx, channelFor(eventType), payload); err != nil {
				r.logger.WarnContext(ctx, "event publish failed",
					slog.String("event", eventType),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	r.logger.InfoContext(ctx, "event", slog.String("type", eventType), slog.Any("detail", detail))
}

// channelFor maps an event type to its pub/sub channel.
func channelFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "auction_"), eventType == domain.EventBidPlaced:
		return "ch:auction"
	case strings.HasPrefix(eventType, "proposal_"), eventType == domain.EventVoteCast,
		eventType == domain.EventParameterUpdated:
		return "ch:governance"
	case strings.HasPrefix(eventType, "payment_"):
		return "ch:payment"
	default:
		return "ch:vault"
	}
}

// Compile-time interface check.
var _ domain.EventRecorder = (*Recorder)(nil)
