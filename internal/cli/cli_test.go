package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskang/RosAlloy/internal/store"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestSolveAllCommandsSucceed(t *testing.T) {
	out, err := runCLI(t, "solve", "testdata/handoff.cue")
	require.NoError(t, err)

	assert.Contains(t, out, "command checkStamped (check stamped)")
	assert.Contains(t, out, "verdict verified")
	assert.Contains(t, out, "command findStamp (run stamped)")
	assert.Contains(t, out, "verdict satisfiable")
}

func TestSolveCounterexampleExitsWithFailure(t *testing.T) {
	out, err := runCLI(t, "solve", "testdata/leaky.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 commands failed")
	assert.Contains(t, out, "verdict counterexample")
	assert.Contains(t, out, "instance:")
}

func TestSolveSingleCommand(t *testing.T) {
	out, err := runCLI(t, "solve", "testdata/handoff.cue", "--command", "findStamp")
	require.NoError(t, err)
	assert.Contains(t, out, "findStamp")
	assert.NotContains(t, out, "checkStamped")
}

func TestSolveUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "solve", "testdata/handoff.cue", "--command", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSolveBrokenModelIsCommandError(t *testing.T) {
	_, err := runCLI(t, "solve", "testdata/broken.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSolveJSONOutput(t *testing.T) {
	out, err := runCLI(t, "solve", "testdata/handoff.cue", "--command", "findStamp", "--format", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &decoded))
	assert.Equal(t, "satisfiable", decoded["verdict"])
	assert.Equal(t, "findStamp", decoded["command"])
}

func TestSolveArchivesVerdicts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := runCLI(t, "solve", "testdata/handoff.cue", "--archive", dbPath)
	require.NoError(t, err)

	archive, err := store.Open(dbPath)
	require.NoError(t, err)
	defer archive.Close()

	runs, err := archive.ListRuns(t.Context(), "handoff", "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.NotEmpty(t, r.Digest)
		assert.Contains(t, r.Report, `"verdict"`)
	}
}

func TestValidateWellFormedModel(t *testing.T) {
	out, err := runCLI(t, "validate", "testdata/handoff.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "model handoff: 2 signatures, 1 relations, 1 facts, 1 predicates, 0 functions, 2 commands")
}

func TestValidateBrokenModel(t *testing.T) {
	_, err := runCLI(t, "validate", "testdata/broken.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestValidateMissingPath(t *testing.T) {
	_, err := runCLI(t, "validate", "testdata/absent.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInspectRendersDeclarations(t *testing.T) {
	out, err := runCLI(t, "inspect", "testdata/handoff.cue")
	require.NoError(t, err)

	assert.Contains(t, out, "model handoff")
	assert.Contains(t, out, "digest ")
	assert.Contains(t, out, "Time (ordered)")
	assert.Contains(t, out, "at: Msg -> Time (one)")
	assert.Contains(t, out, "occupied: some at")
	assert.Contains(t, out, "checkStamped: check stamped")
}

func TestInvalidFormatFlag(t *testing.T) {
	_, err := runCLI(t, "solve", "testdata/handoff.cue", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
