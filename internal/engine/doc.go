// Package engine implements the log-driven graph state machine at the heart
// of logdog.
//
// The engine tails one continuously-appended pipeline log, extracts node
// names from new lines, and walks a graph of expected node-to-node
// transitions built from the configured rules. It emits typed lifecycle
// events (activation, completion, interruption, timeout, entry detection)
// to an injected sink.
//
// ARCHITECTURE:
//
// Single-writer poll loop:
// One goroutine owns the tailer's file handle and the tracker's state.
// Per tick: read new lines, extract, feed the tracker, check the timeout,
// sleep. The sleep is a wait on a cancellation signal with a bounded
// timeout, so Stop() takes effect within one interval.
//
// Tracking model:
// Exactly one current position system-wide. The tracker is Idle or Active
// at a single node; entries forcibly resynchronize it, matched transitions
// advance it, completion nodes and timeouts reset it. The timeout threshold
// is always the minimum timeout among the current node's outgoing edges,
// recomputed on every activation.
//
// Event delivery:
// Events are stamped with a monotonic seq from the logical clock and passed
// through a bounded FIFO to a single dispatcher goroutine, which invokes
// the sink serially. A stalled sink sheds the oldest events rather than
// stalling the poll loop.
//
// Per-tick event ordering is fixed: per-line events in line order, with
// interruption/entry-detection preceding other events for the same line and
// completion preceding the paired activation on a matched transition,
// followed by at most one timeout event.
package engine
