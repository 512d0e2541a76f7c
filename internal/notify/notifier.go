// Package notify delivers operator alerts for engine events: auction
// settlements, cancelled auctions, and governance actions moving through the
// timelock. Alerts fan out to every configured channel (Telegram, Discord);
// which event types go out is controlled per deployment so operators are not
// paged for every deposit.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers one alert over a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs and error messages.
	Name() string
}

// Notifier fans alerts out to the configured senders, filtered by event type.
// With no configured event types every event is forwarded.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to senders. events is the allow
// list of event types; empty means everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers an alert for the given event type, subject to the allow
// list.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[event]; !ok {
			n.logger.DebugContext(ctx, "event not on allow list",
				slog.String("event", event),
			)
			return nil
		}
	}
	return n.deliver(ctx, title, message)
}

// NotifyAll delivers an alert regardless of the allow list. Used for
// lifecycle notices like startup and shutdown.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.deliver(ctx, title, message)
}

// deliver sends to every channel. One failing channel does not stop the rest;
// failures are joined into the returned error.
func (n *Notifier) deliver(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("channel", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}
