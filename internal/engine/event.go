package engine

import "fmt"

// Kind identifies a lifecycle event category.
type Kind int

const (
	// KindStateActivated: the tracker began expecting transitions out of a node.
	KindStateActivated Kind = iota + 1
	// KindStateCompleted: an expected transition (or explicit completion) happened.
	KindStateCompleted
	// KindTimeout: the expected transition did not happen in time.
	KindTimeout
	// KindStateInterrupted: an entry node preempted an active flow.
	KindStateInterrupted
	// KindEntryDetected: a configured entry node was observed.
	KindEntryDetected
	// KindEngineLog: diagnostic note from the engine itself (node detected,
	// rotation, watcher fallback). Never delivered to external notifiers.
	KindEngineLog
)

var kindNames = map[Kind]string{
	KindStateActivated:   "StateActivated",
	KindStateCompleted:   "StateCompleted",
	KindTimeout:          "Timeout",
	KindStateInterrupted: "StateInterrupted",
	KindEntryDetected:    "EntryDetected",
	KindEngineLog:        "EngineLog",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves an event kind name. Used by the history command's
// --kind filter and nothing else; the engine never round-trips kinds
// through strings.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is an immutable lifecycle record emitted by the engine. Seq is a
// monotonic per-session sequence number stamped at emission; it gives
// events a total order independent of wall time.
//
// Rule carries the owning rule name where one applies ("Final" for explicit
// completions, the entry label for entry events). ElapsedMS is zero where
// elapsed time is not meaningful for the kind.
type Event struct {
	Seq         int64
	Kind        Kind
	Rule        string
	Node        string
	Description string
	ElapsedMS   int64
}

// Sink receives events from the engine's dispatcher. HandleEvent is never
// invoked concurrently; implementations may block briefly, but sustained
// blocking causes the dispatch queue to shed its oldest events.
type Sink interface {
	HandleEvent(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) HandleEvent(ev Event) { f(ev) }

// MultiSink fans one event out to several sinks in order.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ev Event) {
		for _, s := range sinks {
			s.HandleEvent(ev)
		}
	})
}
