package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario YAML next to a stub model file so path
// validation passes, and returns the scenario path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.cue"), []byte(`model: "m"`), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: exercises loading
model: m.cue
commands:
  - command: checkIt
    verdict: verified
`)
	s, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, "demo", s.Name)
	require.Len(t, s.Commands, 1)
	assert.Equal(t, "verified", s.Commands[0].Verdict)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "m.cue"), s.Model)
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: typo below
model: m.cue
comands:
  - command: checkIt
    verdict: verified
`)
	_, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing scenario YAML")
}

func TestLoadScenarioRequiresCommands(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: no commands at all
model: m.cue
`)
	_, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commands list is required")
}

func TestLoadScenarioRejectsUnknownVerdict(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: bad verdict spelling
model: m.cue
commands:
  - command: checkIt
    verdict: maybe
`)
	_, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown verdict "maybe"`)
}

func TestLoadScenarioRequiresExistingModel(t *testing.T) {
	path := writeScenario(t, `
name: demo
description: the model path is wrong
model: absent.cue
commands:
  - command: checkIt
    verdict: verified
`)
	_, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}
