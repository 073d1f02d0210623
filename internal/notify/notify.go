// Package notify delivers watchdog alerts to external chat platforms.
//
// Two platforms are supported, Telegram bots and WeChat Work group
// webhooks. Delivery tries the configured default platform first and falls
// back to the other; alerting must survive a single platform outage.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/logdog-io/logdog/internal/engine"
)

// Notifier sends one plain-text message to a single platform.
type Notifier interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// FormatMessage renders an event as the alert text pushed to chat
// platforms.
func FormatMessage(ev engine.Event) string {
	var b strings.Builder
	b.WriteString(messageHeader(ev.Kind))
	b.WriteString("\n")
	if ev.Rule != "" {
		fmt.Fprintf(&b, "\nRule: %s", ev.Rule)
	}
	if ev.Node != "" {
		fmt.Fprintf(&b, "\nNode: %s", ev.Node)
	}
	if ev.Kind == engine.KindStateCompleted || ev.Kind == engine.KindTimeout {
		fmt.Fprintf(&b, "\nElapsed Time: %dms", ev.ElapsedMS)
	}
	if ev.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", ev.Description)
	}
	return b.String()
}

func messageHeader(kind engine.Kind) string {
	switch kind {
	case engine.KindStateActivated:
		return "WATCHDOG STATE ACTIVATED"
	case engine.KindStateCompleted:
		return "WATCHDOG STATE COMPLETED"
	case engine.KindTimeout:
		return "WATCHDOG STATE TIMEOUT"
	case engine.KindStateInterrupted:
		return "WATCHDOG STATE INTERRUPTED"
	case engine.KindEntryDetected:
		return "WATCHDOG ENTRY NODE DETECTED"
	default:
		return "WATCHDOG EVENT"
	}
}
