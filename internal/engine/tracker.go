package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/logdog-io/logdog/internal/config"
)

// Tracker is the finite-state core: it holds the single current position in
// the transition graph (or none) and turns observed node names into
// lifecycle events.
//
// There is exactly one logical flow being watched, so the tracker is either
// Idle or Active at one node, never more. All methods take the observation
// time explicitly, which keeps the state machine free of wall-clock reads
// and directly testable.
//
// Not safe for concurrent use; the engine's tick loop is the only caller.
type Tracker struct {
	graph       *Graph
	entries     map[string]config.EntryNode
	completions map[string]string // node -> description
	active      *activeState
}

// activeState is the Active half of the tracker's two states. A nil
// *activeState means Idle.
type activeState struct {
	node        string
	activatedAt time.Time
	timeoutMS   int64
	hasTimeout  bool
}

// NewTracker creates an Idle tracker over the given graph and node sets.
func NewTracker(g *Graph, entries []config.EntryNode, completed []config.CompletionNode) *Tracker {
	t := &Tracker{
		graph:       g,
		entries:     make(map[string]config.EntryNode, len(entries)),
		completions: make(map[string]string, len(completed)),
	}
	for _, e := range entries {
		t.entries[e.Node] = e
	}
	for _, c := range completed {
		t.completions[c.Node] = c.Description
	}
	return t
}

// ActiveNode returns the currently expected node, if any.
func (t *Tracker) ActiveNode() (string, bool) {
	if t.active == nil {
		return "", false
	}
	return t.active.node, true
}

// ProcessNode applies one observed node name at time now and returns the
// resulting events in emission order.
//
// Priority order, first applicable wins:
//
//  1. Entry override: entries forcibly resynchronize tracking regardless of
//     current state. An active flow is interrupted first, then the entry
//     node becomes the current position unconditionally.
//  2. Cold start: an Idle tracker activates on any node with outgoing edges.
//  3. Matched transition: the first edge (declaration order) whose target
//     matches completes its owning rule and activates the target.
//  4. Explicit completion: a configured completion node ends an active flow
//     even without a matching edge.
//  5. Anything else is irrelevant to the current expectation: no event, no
//     state change.
func (t *Tracker) ProcessNode(name string, now time.Time) []Event {
	if entry, ok := t.entries[name]; ok {
		return t.processEntry(entry, name, now)
	}

	if t.active == nil {
		if t.graph.HasEdges(name) {
			return []Event{t.activate(name, now)}
		}
		return nil
	}

	for _, edge := range t.graph.Edges(t.active.node) {
		if edge.Target != name {
			continue
		}
		events := []Event{{
			Kind:        KindStateCompleted,
			Rule:        edge.Rule,
			Node:        name,
			Description: edge.Description,
			ElapsedMS:   t.elapsed(now),
		}}
		if t.graph.HasEdges(name) {
			events = append(events, t.activate(name, now))
		} else {
			// Nothing leaves the target node; the flow is over.
			t.active = nil
		}
		return events
	}

	if desc, ok := t.completions[name]; ok {
		events := []Event{{
			Kind:        KindStateCompleted,
			Rule:        "Final",
			Node:        name,
			Description: desc,
			ElapsedMS:   t.elapsed(now),
		}}
		t.active = nil
		return events
	}

	return nil
}

// processEntry handles an entry node: interrupt whatever is active, then
// take the entry as the new current position. Entries reset tracking even
// mid-flow, which is the escape hatch for unexpected pipeline restarts and
// manual intervention.
func (t *Tracker) processEntry(entry config.EntryNode, name string, now time.Time) []Event {
	var events []Event
	if t.active != nil {
		events = append(events, Event{
			Kind:        KindStateInterrupted,
			Rule:        t.firstRule(t.active.node),
			Node:        t.active.node,
			Description: fmt.Sprintf("interrupted by entry node %s", name),
		})
	}

	events = append(events, Event{
		Kind:        KindEntryDetected,
		Rule:        entry.Name,
		Node:        name,
		Description: entry.Description,
	})

	// The entry becomes the current position unconditionally, even when it
	// has no outgoing edges; an activation event only makes sense when
	// something can actually follow.
	if t.graph.HasEdges(name) {
		events = append(events, t.activate(name, now))
	} else {
		min, ok := t.graph.MinTimeout(name)
		t.active = &activeState{node: name, activatedAt: now, timeoutMS: min, hasTimeout: ok}
	}
	return events
}

// CheckTimeout fires when the active node's deadline has passed. The
// timeout threshold is the minimum timeout among the node's outgoing edges,
// recomputed fresh on every activation; a node with no outgoing edges never
// times out.
func (t *Tracker) CheckTimeout(now time.Time) []Event {
	if t.active == nil || !t.active.hasTimeout {
		return nil
	}
	elapsed := t.elapsed(now)
	if elapsed <= t.active.timeoutMS {
		return nil
	}
	node := t.active.node
	events := []Event{{
		Kind:        KindTimeout,
		Rule:        t.firstRule(node),
		Node:        node,
		Description: fmt.Sprintf("timed out waiting for one of: %s", strings.Join(t.graph.Targets(node), ", ")),
		ElapsedMS:   elapsed,
	}}
	t.active = nil
	return events
}

// activate moves the tracker to node at time now and builds the activation
// event. Caller guarantees node has outgoing edges.
func (t *Tracker) activate(node string, now time.Time) Event {
	min, ok := t.graph.MinTimeout(node)
	t.active = &activeState{node: node, activatedAt: now, timeoutMS: min, hasTimeout: ok}
	first := t.graph.Edges(node)[0]
	return Event{
		Kind:        KindStateActivated,
		Rule:        first.Rule,
		Node:        node,
		Description: first.Description,
	}
}

// firstRule names the rule owning node's first outgoing edge, or "" for a
// leaf node.
func (t *Tracker) firstRule(node string) string {
	edges := t.graph.Edges(node)
	if len(edges) == 0 {
		return ""
	}
	return edges[0].Rule
}

// elapsed returns milliseconds since the current activation.
func (t *Tracker) elapsed(now time.Time) int64 {
	return now.Sub(t.active.activatedAt).Milliseconds()
}
