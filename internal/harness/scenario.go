package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/logdog-io/logdog/internal/config"
)

// Scenario is a scripted watchdog session: a rule set plus a sequence of
// log lines and clock movements, with the resulting event transcript
// compared against a golden file.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the watched rule set. Only the graph-relevant sections
	// are used; monitoring and notification settings have no effect on a
	// scripted run.
	Config ScenarioConfig `yaml:"config"`

	// Steps are executed in order against a manual clock.
	Steps []Step `yaml:"steps"`
}

// ScenarioConfig mirrors the rule sections of the runtime configuration.
type ScenarioConfig struct {
	Rules     []config.Rule           `yaml:"rules"`
	Entries   []config.EntryNode      `yaml:"entries,omitempty"`
	Completed []config.CompletionNode `yaml:"completed,omitempty"`
}

// Step is one scripted action. Exactly one directive must be set:
//   - feed: process one raw log line through extraction and tracking
//   - node: process a node name directly, bypassing extraction
//   - advance_ms: move the manual clock forward
//   - tick: run a timeout check at the current clock time
type Step struct {
	Feed      string `yaml:"feed,omitempty"`
	Node      string `yaml:"node,omitempty"`
	AdvanceMS int64  `yaml:"advance_ms,omitempty"`
	Tick      bool   `yaml:"tick,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so that typos fail loudly instead of silently skipping a step.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Config.Rules) == 0 {
		return fmt.Errorf("config.rules is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	directives := 0
	if step.Feed != "" {
		directives++
	}
	if step.Node != "" {
		directives++
	}
	if step.AdvanceMS != 0 {
		directives++
	}
	if step.Tick {
		directives++
	}
	if directives != 1 {
		return fmt.Errorf("exactly one of feed, node, advance_ms, tick is required")
	}
	if step.AdvanceMS < 0 {
		return fmt.Errorf("advance_ms must be positive")
	}
	return nil
}
