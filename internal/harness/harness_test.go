package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskang/RosAlloy/internal/checker"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	path := filepath.Join("testdata", "scenarios", name+".yaml")
	s, err := LoadScenarioWithBasePath(path, filepath.Dir(path))
	require.NoError(t, err)
	return s
}

func TestScenarioGoldens(t *testing.T) {
	for _, name := range []string{"stamped-handoff", "leaky-timestamps", "starved-handoff"} {
		t.Run(name, func(t *testing.T) {
			result := RunWithGolden(t, loadTestScenario(t, name))
			assert.True(t, result.Pass())
		})
	}
}

func TestRunArchivesEveryCommand(t *testing.T) {
	s := loadTestScenario(t, "stamped-handoff")
	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)

	for _, o := range result.Outcomes {
		assert.Equal(t, o.Got.RunID.String(), o.Archived.ID)
		assert.Equal(t, string(o.Got.Verdict), o.Archived.Verdict)
		assert.NotEmpty(t, o.Archived.Digest)
		assert.Contains(t, o.Archived.Report, `"verdict"`)
	}
}

func TestRunReportsMissedVerdicts(t *testing.T) {
	s := loadTestScenario(t, "leaky-timestamps")
	s.Commands[0].Verdict = string(checker.VerdictVerified)

	result, err := Run(t.Context(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass())
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "want verdict verified, got counterexample")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	s := loadTestScenario(t, "leaky-timestamps")
	s.Commands[0].Command = "nope"

	_, err := Run(t.Context(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no command "nope"`)
}

func TestScrubReplacesVolatileLines(t *testing.T) {
	in := "model m\nrun 7b0d8a1e-0000-0000-0000-000000000000\nverdict verified\nsearch: 12 nodes, 3 vectors, 4ms\n"
	want := "model m\nrun <run-id>\nverdict verified\nsearch: <stats>\n"
	assert.Equal(t, want, Scrub(in))
}
