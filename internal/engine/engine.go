package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/logdog-io/logdog/internal/config"
	"github.com/logdog-io/logdog/internal/extract"
	"github.com/logdog-io/logdog/internal/metrics"
)

// Engine orchestrates the tailer, extractor, and tracker in a poll loop and
// streams the resulting events to the sink.
//
// One tick: read new lines, extract node names, feed the tracker, check the
// timeout, then sleep until the next tick or a wake-up. The loop owns the
// tailer's file handle and the tracker's state exclusively; the only
// cross-goroutine surface is the bounded dispatch queue feeding the sink.
//
// Thread-safety model:
//   - Run(): must be called from exactly one goroutine and blocks until
//     stopped or the context is cancelled
//   - Stop(): idempotent, safe from any goroutine, takes effect within one
//     poll interval
//   - Session(): safe from any goroutine after New
type Engine struct {
	path       string
	interval   time.Duration
	fileNotify bool

	tailer  *Tailer
	tracker *Tracker
	graph   *Graph
	clock   *Clock
	queue   *dispatchQueue
	sink    Sink
	session string
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures optional engine parameters.
type Option func(*Engine)

// WithNow overrides the wall-clock source. Tests use a manual clock to make
// timeout behavior deterministic.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSessionGenerator overrides the session token source.
func WithSessionGenerator(gen SessionGenerator) Option {
	return func(e *Engine) { e.session = gen.Generate() }
}

// WithQueueCapacity bounds the dispatch queue. Zero or negative keeps the
// default.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) { e.queue = newDispatchQueue(n) }
}

// New builds an engine from configuration. The sink receives every emitted
// event, serially, on a dedicated dispatcher goroutine.
func New(cfg *config.Config, sink Sink, opts ...Option) *Engine {
	g := BuildGraph(cfg.Rules)
	e := &Engine{
		path:       cfg.Monitoring.LogPath,
		interval:   cfg.Monitoring.Interval(),
		fileNotify: cfg.Monitoring.FileNotify,
		tailer:     NewTailer(cfg.Monitoring.LogPath),
		tracker:    NewTracker(g, cfg.Entries, cfg.Completed),
		graph:      g,
		clock:      NewClock(),
		queue:      newDispatchQueue(0),
		sink:       sink,
		session:    UUIDv7Generator{}.Generate(),
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns this run's session token.
func (e *Engine) Session() string {
	return e.session
}

// Dropped returns the number of events shed because the sink could not keep
// up.
func (e *Engine) Dropped() int64 {
	return e.queue.Dropped()
}

// Graph exposes the transition graph for diagnostics.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Run executes the poll loop until Stop is called or ctx is cancelled.
// If the log file cannot be opened at startup the failure is returned and
// the loop never starts; the caller decides whether to retry.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.tailer.Open(); err != nil {
		return fmt.Errorf("open log file %s: %w", e.path, err)
	}
	defer e.tailer.Close()
	// Context cancellation must release the watcher goroutine too.
	defer e.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.dispatchLoop()
	}()

	wake := e.startWatcher()

	slog.Info("engine started", "path", e.path, "interval", e.interval, "session", e.session)

	for {
		e.tick(e.now())
		if !e.sleep(ctx, wake) {
			break
		}
	}

	e.queue.Close()
	wg.Wait()
	slog.Info("engine stopped", "session", e.session, "dropped_events", e.queue.Dropped())
	return nil
}

// Stop requests shutdown. Idempotent; the loop exits within one poll
// interval.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

// tick runs one poll iteration at time now.
func (e *Engine) tick(now time.Time) {
	lines, rotated, err := e.tailer.ReadNewLines()
	if rotated {
		metrics.RotationsDetected.Inc()
	}
	if err != nil {
		slog.Warn("read log lines", "path", e.path, "error", err)
	}
	metrics.LinesRead.Add(float64(len(lines)))

	for _, line := range lines {
		name, ok := extract.NodeName(line)
		if !ok {
			continue
		}
		metrics.NodesExtracted.Inc()
		e.emit(Event{Kind: KindEngineLog, Node: name, Description: "node detected"})
		for _, ev := range e.tracker.ProcessNode(name, now) {
			e.emit(ev)
		}
	}

	// The timeout check runs against the state as it stands after line
	// processing, so an activation earlier in this tick legitimately
	// prevents a stale timeout.
	for _, ev := range e.tracker.CheckTimeout(now) {
		e.emit(ev)
	}

	if _, active := e.tracker.ActiveNode(); active {
		metrics.TrackerActive.Set(1)
	} else {
		metrics.TrackerActive.Set(0)
	}
}

// emit stamps the event with the next sequence number and enqueues it for
// dispatch.
func (e *Engine) emit(ev Event) {
	ev.Seq = e.clock.Next()
	metrics.EventsEmitted.WithLabelValues(ev.Kind.String()).Inc()
	if shed := e.queue.Enqueue(ev); shed > 0 {
		metrics.EventsDropped.Add(float64(shed))
		slog.Warn("dispatch queue full, shed oldest event", "dropped_total", e.queue.Dropped())
	}
}

// dispatchLoop delivers queued events to the sink one at a time. Runs on
// its own goroutine; exits when the queue is closed and drained.
func (e *Engine) dispatchLoop() {
	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.sink.HandleEvent(ev)
			continue
		}
		if e.queue.Drained() {
			return
		}
		<-e.queue.Wait()
	}
}

// sleep waits out the poll interval, returning early on a log-write wake-up
// and returning false when the engine should stop.
func (e *Engine) sleep(ctx context.Context, wake <-chan fsnotify.Event) bool {
	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-e.stop:
			return false
		case <-timer.C:
			return true
		case ev, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(e.path) && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return true
			}
		}
	}
}

// startWatcher sets up the optional fsnotify wake-up on the log file's
// directory. Polling remains the correctness mechanism: any watcher failure
// falls back to pure polling with a single log note.
func (e *Engine) startWatcher() <-chan fsnotify.Event {
	if !e.fileNotify {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("file notify unavailable, falling back to polling", "error", err)
		return nil
	}
	if err := watcher.Add(filepath.Dir(e.path)); err != nil {
		slog.Warn("file notify watch failed, falling back to polling", "path", e.path, "error", err)
		watcher.Close()
		return nil
	}
	go func() {
		<-e.stop
		watcher.Close()
	}()
	go func() {
		// Drain errors so the watcher does not wedge.
		for err := range watcher.Errors {
			slog.Warn("file notify error", "error", err)
		}
	}()
	return watcher.Events
}
