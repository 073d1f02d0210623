package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logdog-io/logdog/internal/config"
)

var trackerEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestTracker_ColdStart(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Simple_Task", Start: "StartTask", Transitions: []config.Transition{{To: "EndTask", TimeoutMS: 30000}}},
	})
	tr := NewTracker(g, nil, nil)

	_, active := tr.ActiveNode()
	assert.False(t, active, "tracker starts Idle")

	events := tr.ProcessNode("StartTask", trackerEpoch)
	require.Len(t, events, 1)
	assert.Equal(t, KindStateActivated, events[0].Kind)
	assert.Equal(t, "Simple_Task", events[0].Rule)
	assert.Equal(t, "StartTask", events[0].Node)

	node, active := tr.ActiveNode()
	require.True(t, active)
	assert.Equal(t, "StartTask", node)
}

func TestTracker_IrrelevantNodeIsNoOp(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "A", Transitions: []config.Transition{{To: "B", TimeoutMS: 1000}}},
	})
	tr := NewTracker(g, nil, nil)

	// Idle: a node with no outgoing edges does not activate.
	assert.Empty(t, tr.ProcessNode("B", trackerEpoch))
	assert.Empty(t, tr.ProcessNode("Unknown", trackerEpoch))

	// Active: a node that is neither a target, entry, nor completion is
	// ignored.
	tr.ProcessNode("A", trackerEpoch)
	assert.Empty(t, tr.ProcessNode("Unknown", trackerEpoch))
	node, _ := tr.ActiveNode()
	assert.Equal(t, "A", node)
}

func TestTracker_EndToEndSimpleTask(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Simple_Task", Start: "StartTask", Transitions: []config.Transition{{To: "EndTask", TimeoutMS: 30000}}},
	})
	tr := NewTracker(g, nil, nil)

	events := tr.ProcessNode("StartTask", trackerEpoch)
	require.Equal(t, []Kind{KindStateActivated}, kinds(events))

	// EndTask arrives 5 seconds later. It completes the rule and, having
	// no outgoing edges, leaves the tracker Idle with no new activation.
	events = tr.ProcessNode("EndTask", trackerEpoch.Add(5*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, KindStateCompleted, events[0].Kind)
	assert.Equal(t, "Simple_Task", events[0].Rule)
	assert.Equal(t, "EndTask", events[0].Node)
	assert.Equal(t, int64(5000), events[0].ElapsedMS)

	_, active := tr.ActiveNode()
	assert.False(t, active)
}

func TestTracker_BranchMerge(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "A", Start: "X", Transitions: []config.Transition{{To: "B", TimeoutMS: 10000}}},
		{Name: "C", Start: "X", Transitions: []config.Transition{{To: "D", TimeoutMS: 10000}}},
	})

	// Branch one: B completes rule A, not C.
	tr := NewTracker(g, nil, nil)
	tr.ProcessNode("X", trackerEpoch)
	events := tr.ProcessNode("B", trackerEpoch.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, KindStateCompleted, events[0].Kind)
	assert.Equal(t, "A", events[0].Rule)

	// Branch two: D completes rule C.
	tr = NewTracker(g, nil, nil)
	tr.ProcessNode("X", trackerEpoch)
	events = tr.ProcessNode("D", trackerEpoch.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, KindStateCompleted, events[0].Kind)
	assert.Equal(t, "C", events[0].Rule)
}

func TestTracker_BranchTieTakesFirstDeclaredEdge(t *testing.T) {
	// Two rules target the same node from the same source; only the first
	// declared edge is taken and only one completion event fires.
	g := BuildGraph([]config.Rule{
		{Name: "First", Start: "X", Transitions: []config.Transition{{To: "Y", TimeoutMS: 1000}}},
		{Name: "Second", Start: "X", Transitions: []config.Transition{{To: "Y", TimeoutMS: 1000}}},
	})
	tr := NewTracker(g, nil, nil)
	tr.ProcessNode("X", trackerEpoch)

	events := tr.ProcessNode("Y", trackerEpoch.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, "First", events[0].Rule)
}

func TestTracker_MatchedTransitionActivatesNext(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Chain", Start: "A", Transitions: []config.Transition{
			{To: "B", TimeoutMS: 1000},
			{To: "C", TimeoutMS: 2000},
		}},
	})
	tr := NewTracker(g, nil, nil)

	tr.ProcessNode("A", trackerEpoch)
	events := tr.ProcessNode("B", trackerEpoch.Add(400*time.Millisecond))
	require.Equal(t, []Kind{KindStateCompleted, KindStateActivated}, kinds(events))
	assert.Equal(t, int64(400), events[0].ElapsedMS)
	assert.Equal(t, "B", events[1].Node)

	node, active := tr.ActiveNode()
	require.True(t, active)
	assert.Equal(t, "B", node)
}

func TestTracker_EntryReset(t *testing.T) {
	// Y has an edge targeting E, yet entry handling takes priority over
	// transition matching: the flow is interrupted, not advanced.
	g := BuildGraph([]config.Rule{
		{Name: "Flow", Start: "Y", Transitions: []config.Transition{{To: "E", TimeoutMS: 1000}}},
		{Name: "Restarted", Start: "E", Transitions: []config.Transition{{To: "F", TimeoutMS: 1000}}},
	})
	entries := []config.EntryNode{{Name: "Boot", Node: "E", Description: "fresh cycle"}}
	tr := NewTracker(g, entries, nil)

	tr.ProcessNode("Y", trackerEpoch)
	events := tr.ProcessNode("E", trackerEpoch.Add(time.Second))
	require.Equal(t, []Kind{KindStateInterrupted, KindEntryDetected, KindStateActivated}, kinds(events))

	assert.Equal(t, "Y", events[0].Node, "interruption names the preempted node")
	assert.Equal(t, "Boot", events[1].Rule)
	assert.Equal(t, "E", events[1].Node)
	assert.Equal(t, "E", events[2].Node)

	node, active := tr.ActiveNode()
	require.True(t, active)
	assert.Equal(t, "E", node)
}

func TestTracker_EntryWhileIdle(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "E", Transitions: []config.Transition{{To: "F", TimeoutMS: 1000}}},
	})
	tr := NewTracker(g, []config.EntryNode{{Name: "Boot", Node: "E"}}, nil)

	events := tr.ProcessNode("E", trackerEpoch)
	require.Equal(t, []Kind{KindEntryDetected, KindStateActivated}, kinds(events))
}

func TestTracker_EntryWithoutEdges(t *testing.T) {
	// An entry with no outgoing edges still becomes the current position,
	// but no activation event fires and no timeout can ever trigger.
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "A", Transitions: []config.Transition{{To: "B", TimeoutMS: 1000}}},
	})
	tr := NewTracker(g, []config.EntryNode{{Name: "Boot", Node: "Lone"}}, nil)

	tr.ProcessNode("A", trackerEpoch)
	events := tr.ProcessNode("Lone", trackerEpoch.Add(time.Second))
	require.Equal(t, []Kind{KindStateInterrupted, KindEntryDetected}, kinds(events))

	node, active := tr.ActiveNode()
	require.True(t, active)
	assert.Equal(t, "Lone", node)

	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(time.Hour)))
}

func TestTracker_ExplicitCompletion(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "A", Transitions: []config.Transition{{To: "B", TimeoutMS: 60000}}},
	})
	completed := []config.CompletionNode{{Node: "Done", Description: "pipeline finished"}}
	tr := NewTracker(g, nil, completed)

	tr.ProcessNode("A", trackerEpoch)
	events := tr.ProcessNode("Done", trackerEpoch.Add(2*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, KindStateCompleted, events[0].Kind)
	assert.Equal(t, "Final", events[0].Rule)
	assert.Equal(t, "Done", events[0].Node)
	assert.Equal(t, int64(2000), events[0].ElapsedMS)

	_, active := tr.ActiveNode()
	assert.False(t, active)
}

func TestTracker_CompletionWhileIdleIgnored(t *testing.T) {
	g := BuildGraph(nil)
	tr := NewTracker(g, nil, []config.CompletionNode{{Node: "Done"}})
	assert.Empty(t, tr.ProcessNode("Done", trackerEpoch))
}

func TestTracker_MatchedEdgeWinsOverCompletion(t *testing.T) {
	// The target is also a completion node; the edge match handles it
	// first and attributes the completion to the owning rule.
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "A", Transitions: []config.Transition{{To: "Done", TimeoutMS: 1000}}},
	})
	tr := NewTracker(g, nil, []config.CompletionNode{{Node: "Done"}})

	tr.ProcessNode("A", trackerEpoch)
	events := tr.ProcessNode("Done", trackerEpoch.Add(time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, "R", events[0].Rule)
}

func TestTracker_TimeoutBoundary(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "N", Transitions: []config.Transition{{To: "M", TimeoutMS: 5000}}},
	})
	tr := NewTracker(g, nil, nil)
	tr.ProcessNode("N", trackerEpoch)

	// One millisecond before the threshold: nothing.
	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(4999*time.Millisecond)))
	// Exactly at the threshold: still nothing (strictly greater).
	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(5000*time.Millisecond)))

	// One millisecond past: exactly one timeout, then Idle.
	events := tr.CheckTimeout(trackerEpoch.Add(5001 * time.Millisecond))
	require.Len(t, events, 1)
	assert.Equal(t, KindTimeout, events[0].Kind)
	assert.Equal(t, "N", events[0].Node)
	assert.Equal(t, "R", events[0].Rule)
	assert.Equal(t, int64(5001), events[0].ElapsedMS)
	assert.Contains(t, events[0].Description, "M")

	_, active := tr.ActiveNode()
	assert.False(t, active)
	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(time.Hour)), "no repeat after reset")
}

func TestTracker_TimeoutUsesMinimumOverBranches(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "Slow", Start: "X", Transitions: []config.Transition{{To: "B", TimeoutMS: 10000}}},
		{Name: "Fast", Start: "X", Transitions: []config.Transition{{To: "D", TimeoutMS: 3000}}},
	})
	tr := NewTracker(g, nil, nil)
	tr.ProcessNode("X", trackerEpoch)

	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(3000*time.Millisecond)))
	events := tr.CheckTimeout(trackerEpoch.Add(3001 * time.Millisecond))
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Description, "B")
	assert.Contains(t, events[0].Description, "D")
}

func TestTracker_TimeoutRecomputedOnEachActivation(t *testing.T) {
	// The threshold is never inherited: after advancing to B the deadline
	// comes from B's outgoing edges, not A's.
	g := BuildGraph([]config.Rule{
		{Name: "Chain", Start: "A", Transitions: []config.Transition{
			{To: "B", TimeoutMS: 1000},
			{To: "C", TimeoutMS: 9000},
		}},
	})
	tr := NewTracker(g, nil, nil)

	tr.ProcessNode("A", trackerEpoch)
	tr.ProcessNode("B", trackerEpoch.Add(500*time.Millisecond))

	// 2 seconds after entering B: within B's 9s budget even though A's
	// budget was 1s.
	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(2500*time.Millisecond)))

	events := tr.CheckTimeout(trackerEpoch.Add(500*time.Millisecond + 9001*time.Millisecond))
	require.Len(t, events, 1)
	assert.Equal(t, "B", events[0].Node)
}

func TestTracker_LeafNodeNeverTimesOut(t *testing.T) {
	g := BuildGraph([]config.Rule{
		{Name: "R", Start: "A", Transitions: []config.Transition{{To: "B", TimeoutMS: 100}}},
	})
	tr := NewTracker(g, []config.EntryNode{{Name: "E", Node: "B"}}, nil)

	// Force the tracker active at leaf node B via the entry override.
	tr.ProcessNode("B", trackerEpoch)
	node, active := tr.ActiveNode()
	require.True(t, active)
	require.Equal(t, "B", node)

	assert.Empty(t, tr.CheckTimeout(trackerEpoch.Add(24*time.Hour)))
}

func TestTracker_CheckTimeoutWhileIdle(t *testing.T) {
	tr := NewTracker(BuildGraph(nil), nil, nil)
	assert.Empty(t, tr.CheckTimeout(trackerEpoch))
}
