// Package metrics exposes the watchdog's prometheus instrumentation and an
// optional /metrics HTTP listener.
//
// Collectors are package-level and registered with the default registry;
// the engine and its collaborators increment them directly.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LinesRead counts log lines returned by the tailer.
	LinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logdog",
		Name:      "lines_read_total",
		Help:      "Log lines read from the watched file.",
	})

	// NodesExtracted counts lines that yielded a node name.
	NodesExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logdog",
		Name:      "nodes_extracted_total",
		Help:      "Node names extracted from log lines.",
	})

	// EventsEmitted counts emitted events by kind.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logdog",
		Name:      "events_emitted_total",
		Help:      "Lifecycle events emitted, by kind.",
	}, []string{"kind"})

	// EventsDropped counts events shed by the bounded dispatch queue.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logdog",
		Name:      "events_dropped_total",
		Help:      "Events dropped because the sink could not keep up.",
	})

	// RotationsDetected counts log rotations/truncations handled.
	RotationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logdog",
		Name:      "rotations_detected_total",
		Help:      "Log file rotations or truncations detected.",
	})

	// TrackerActive is 1 while the tracker is at an active node.
	TrackerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "logdog",
		Name:      "tracker_active",
		Help:      "Whether the tracker currently expects a transition (0 or 1).",
	})
)

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve runs a /metrics listener on addr until ctx is cancelled. Always
// returns a non-nil reason; callers run it in a goroutine and log the
// result.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
