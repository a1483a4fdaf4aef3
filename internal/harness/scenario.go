package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eskang/RosAlloy/internal/checker"
)

// Scenario defines a verdict conformance scenario: one model and the
// verdict every listed command must produce within its declared scope.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the path to the CUE model file or directory, relative to
	// the scenario file location.
	Model string `yaml:"model"`

	// Commands lists the commands to execute with their expected
	// verdicts. Commands run in the listed order.
	Commands []CommandExpectation `yaml:"commands"`

	// BudgetNodes optionally caps the search per command. Zero means
	// unbounded; scenarios with a cap expect a timeout verdict.
	BudgetNodes int64 `yaml:"budget_nodes,omitempty"`
}

// CommandExpectation pairs a command name with its required verdict.
type CommandExpectation struct {
	Command string `yaml:"command"`
	Verdict string `yaml:"verdict"`
}

// knownVerdicts are the verdict strings a scenario may expect.
var knownVerdicts = map[string]bool{
	string(checker.VerdictVerified):       true,
	string(checker.VerdictCounterexample): true,
	string(checker.VerdictSatisfiable):    true,
	string(checker.VerdictUnsatisfiable):  true,
	string(checker.VerdictTimeout):        true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently dropping a check.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the model path relative to basePath when it is not absolute.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	if !filepath.IsAbs(scenario.Model) && basePath != "" && scenario.Model != "" {
		scenario.Model = filepath.Join(basePath, scenario.Model)
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
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if _, err := os.Stat(s.Model); os.IsNotExist(err) {
		return fmt.Errorf("model not found: %s", s.Model)
	}
	if len(s.Commands) == 0 {
		return fmt.Errorf("commands list is required and must be non-empty")
	}
	for i, c := range s.Commands {
		if c.Command == "" {
			return fmt.Errorf("commands[%d]: command is required", i)
		}
		if c.Verdict == "" {
			return fmt.Errorf("commands[%d]: verdict is required", i)
		}
		if !knownVerdicts[c.Verdict] {
			return fmt.Errorf("commands[%d]: unknown verdict %q", i, c.Verdict)
		}
	}
	if s.BudgetNodes < 0 {
		return fmt.Errorf("budget_nodes must be non-negative")
	}
	return nil
}
