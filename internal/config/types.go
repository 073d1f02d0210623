package config

import "time"

// Event kind names accepted by the notify_when filter. These mirror the
// engine's event kinds; the duplication keeps config free of an engine
// dependency.
const (
	NotifyStateActivated   = "StateActivated"
	NotifyStateCompleted   = "StateCompleted"
	NotifyTimeout          = "Timeout"
	NotifyStateInterrupted = "StateInterrupted"
	NotifyEntryDetected    = "EntryDetected"
)

// DefaultNotifyEvents is the filter applied when notify_when is absent.
// Operators who do not say otherwise get alerted on failures only.
var DefaultNotifyEvents = []string{NotifyTimeout, NotifyStateInterrupted}

// Transition is one expected hop inside a rule: the pipeline is expected to
// reach To within TimeoutMS of entering the previous node in the chain.
type Transition struct {
	To        string `yaml:"to"`
	TimeoutMS int64  `yaml:"timeout_ms"`
}

// Rule declares an expected path through the pipeline. Start is the node
// that begins the path; Transitions describe each subsequent hop in order.
// A single rule may describe a multi-hop chain.
type Rule struct {
	Name        string       `yaml:"name"`
	Start       string       `yaml:"start"`
	Transitions []Transition `yaml:"transitions"`
	Description string       `yaml:"description,omitempty"`
}

// EntryNode marks a node whose detection forcibly restarts tracking. Name
// is the operator-facing label, Node the literal node name in the log.
type EntryNode struct {
	Name        string `yaml:"name"`
	Node        string `yaml:"node"`
	Description string `yaml:"description,omitempty"`
}

// CompletionNode marks a node that ends tracking successfully even when no
// configured edge leads into it.
type CompletionNode struct {
	Node        string `yaml:"node"`
	Description string `yaml:"description,omitempty"`
}

// Monitoring holds the file-watching settings.
type Monitoring struct {
	// LogPath is the watched file. Relative paths are resolved against the
	// config file's directory by Load.
	LogPath string `yaml:"log_path"`

	// PollInterval is the tick period in seconds.
	PollInterval float64 `yaml:"poll_interval"`

	// MetricsListen, when non-empty, enables the /metrics HTTP listener on
	// the given address.
	MetricsListen string `yaml:"metrics_listen,omitempty"`

	// FileNotify enables the fsnotify wake-up that triggers an immediate
	// tick on log writes. Polling remains the correctness mechanism.
	FileNotify bool `yaml:"file_notify,omitempty"`
}

// Interval returns the poll interval as a duration.
func (m Monitoring) Interval() time.Duration {
	return time.Duration(m.PollInterval * float64(time.Second))
}

// Notification holds the outbound alert settings. Telegram requires both
// BotToken and ChatID; WeChat Work requires WebhookKey. Either, both, or
// neither may be configured.
type Notification struct {
	BotToken        string   `yaml:"bot_token,omitempty"`
	ChatID          string   `yaml:"chat_id,omitempty"`
	WebhookKey      string   `yaml:"webhook_key,omitempty"`
	DefaultNotifier string   `yaml:"default_notifier,omitempty"`
	NotifyWhen      []string `yaml:"notify_when,omitempty"`
}

// Config is the full watchdog configuration.
type Config struct {
	Monitoring   Monitoring       `yaml:"monitoring"`
	Notification Notification     `yaml:"notification,omitempty"`
	Rules        []Rule           `yaml:"rules"`
	Entries      []EntryNode      `yaml:"entries,omitempty"`
	Completed    []CompletionNode `yaml:"completed,omitempty"`
}

// NotifyEvents returns the configured notify_when filter, or the default
// set when none was given.
func (c *Config) NotifyEvents() []string {
	if len(c.Notification.NotifyWhen) == 0 {
		return DefaultNotifyEvents
	}
	return c.Notification.NotifyWhen
}

// EntryFor returns the entry declaration for a node name, if any.
func (c *Config) EntryFor(node string) (EntryNode, bool) {
	for _, e := range c.Entries {
		if e.Node == node {
			return e, true
		}
	}
	return EntryNode{}, false
}

// IsCompletionNode reports whether node is declared as a completion node.
func (c *Config) IsCompletionNode(node string) bool {
	for _, comp := range c.Completed {
		if comp.Node == node {
			return true
		}
	}
	return false
}
