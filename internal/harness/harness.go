// Package harness replays scripted watchdog scenarios and captures the
// resulting event transcripts for golden-file comparison.
//
// A scenario runs the same extraction and tracking pipeline as the live
// engine, but against a manual clock and scripted input instead of a tailed
// file. The transcript is therefore a faithful record of what the watchdog
// would emit for that log activity, with fully deterministic timing.
package harness

import (
	"time"

	"github.com/logdog-io/logdog/internal/engine"
	"github.com/logdog-io/logdog/internal/extract"
	"github.com/logdog-io/logdog/internal/testutil"
)

// scenarioEpoch anchors every scripted run at the same instant so elapsed
// times depend only on the scripted advance_ms steps.
var scenarioEpoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// TranscriptEvent is one emitted event, flattened for JSON comparison.
type TranscriptEvent struct {
	Kind        string `json:"kind"`
	Rule        string `json:"rule,omitempty"`
	Node        string `json:"node,omitempty"`
	Description string `json:"description,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	ScenarioName string            `json:"scenario_name"`
	Transcript   []TranscriptEvent `json:"transcript"`
}

// Run executes a scenario and returns its transcript.
func Run(scenario *Scenario) *Result {
	clock := testutil.NewManualClock(scenarioEpoch)
	graph := engine.BuildGraph(scenario.Config.Rules)
	tracker := engine.NewTracker(graph, scenario.Config.Entries, scenario.Config.Completed)

	result := &Result{
		ScenarioName: scenario.Name,
		Transcript:   []TranscriptEvent{},
	}

	record := func(events []engine.Event) {
		for _, ev := range events {
			result.Transcript = append(result.Transcript, TranscriptEvent{
				Kind:        ev.Kind.String(),
				Rule:        ev.Rule,
				Node:        ev.Node,
				Description: ev.Description,
				ElapsedMS:   ev.ElapsedMS,
			})
		}
	}

	for _, step := range scenario.Steps {
		switch {
		case step.Feed != "":
			name, ok := extract.NodeName(step.Feed)
			if !ok {
				// Lines without a node name are skipped, exactly as
				// the live engine skips them.
				continue
			}
			record([]engine.Event{{Kind: engine.KindEngineLog, Node: name, Description: "node detected"}})
			record(tracker.ProcessNode(name, clock.Now()))
		case step.Node != "":
			record(tracker.ProcessNode(step.Node, clock.Now()))
		case step.AdvanceMS > 0:
			clock.Advance(time.Duration(step.AdvanceMS) * time.Millisecond)
		case step.Tick:
			record(tracker.CheckTimeout(clock.Now()))
		}
	}
	return result
}
