package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/logdog-io/logdog/internal/engine"
)

// Sink journals every event it receives. A failed insert is logged and
// dropped; persistence problems must not take the watchdog down.
type Sink struct {
	journal *Journal
	session string
	now     func() time.Time
}

// NewSink wraps a journal as an event sink for one watchdog session.
func NewSink(j *Journal, session string, now func() time.Time) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{journal: j, session: session, now: now}
}

// HandleEvent implements engine.Sink.
func (s *Sink) HandleEvent(ev engine.Event) {
	rec := Record{
		Session:     s.session,
		Seq:         ev.Seq,
		Kind:        ev.Kind.String(),
		Rule:        ev.Rule,
		Node:        ev.Node,
		Description: ev.Description,
		ElapsedMS:   ev.ElapsedMS,
		RecordedAt:  s.now(),
	}
	if err := s.journal.Append(context.Background(), rec); err != nil {
		slog.Warn("journal append failed", "seq", ev.Seq, "kind", ev.Kind.String(), "error", err)
	}
}
