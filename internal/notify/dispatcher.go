package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/logdog-io/logdog/internal/config"
	"github.com/logdog-io/logdog/internal/engine"
)

const sendTimeout = 10 * time.Second

// Dispatcher filters events against the notify_when list and pushes the
// survivors to chat platforms, default platform first, falling back to the
// others on failure. Implements engine.Sink.
type Dispatcher struct {
	notifiers []Notifier
	filter    map[string]bool
}

// NewDispatcher wires up the notifiers a configuration makes available.
// With no platform configured the dispatcher is inert and HandleEvent does
// nothing.
func NewDispatcher(cfg *config.Config) *Dispatcher {
	n := cfg.Notification
	var available []Notifier
	if n.BotToken != "" && n.ChatID != "" {
		available = append(available, NewTelegram(n.BotToken, n.ChatID))
	}
	if n.WebhookKey != "" {
		available = append(available, NewWeChatWork(n.WebhookKey))
	}

	// Default platform moves to the front of the try order.
	for i, notifier := range available {
		if notifier.Name() == n.DefaultNotifier && i > 0 {
			available[0], available[i] = available[i], available[0]
			break
		}
	}

	return NewDispatcherWith(cfg.NotifyEvents(), available...)
}

// NewDispatcherWith builds a dispatcher over explicit notifiers, tried in
// the given order.
func NewDispatcherWith(kinds []string, notifiers ...Notifier) *Dispatcher {
	filter := make(map[string]bool, len(kinds))
	for _, kind := range kinds {
		filter[kind] = true
	}
	return &Dispatcher{notifiers: notifiers, filter: filter}
}

// Available reports whether at least one platform is configured.
func (d *Dispatcher) Available() bool {
	return len(d.notifiers) > 0
}

// Names returns the platform try order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// HandleEvent implements engine.Sink. Engine diagnostics never notify;
// other kinds pass through the notify_when filter.
func (d *Dispatcher) HandleEvent(ev engine.Event) {
	if ev.Kind == engine.KindEngineLog {
		return
	}
	if len(d.notifiers) == 0 || !d.filter[ev.Kind.String()] {
		return
	}

	message := FormatMessage(ev)
	for _, notifier := range d.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := notifier.Send(ctx, message)
		cancel()
		if err == nil {
			slog.Info("notification sent", "via", notifier.Name(), "kind", ev.Kind.String(), "node", ev.Node)
			return
		}
		slog.Warn("notification attempt failed", "via", notifier.Name(), "error", err)
	}
	slog.Error("notification failed on every platform", "kind", ev.Kind.String(), "node", ev.Node)
}
