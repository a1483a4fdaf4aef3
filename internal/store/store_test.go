package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id, command, verdict string) Run {
	return Run{
		ID:            id,
		Model:         "handoff",
		Command:       command,
		Kind:          "check",
		Verdict:       verdict,
		Nodes:         42,
		Vectors:       3,
		ElapsedUS:     1500,
		Digest:        "deadbeef",
		Report:        `{"verdict":"` + verdict + `"}`,
		EngineVersion: "0.3.0",
		IRVersion:     "1",
	}
}

func TestWriteAndGetRun(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	want := sampleRun("run-1", "checkSafe", "verified")
	require.NoError(t, s.WriteRun(ctx, want))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, want.Verdict, got.Verdict)
	assert.Equal(t, want.Nodes, got.Nodes)
	assert.Equal(t, want.Report, got.Report)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestWriteRunIsIdempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := sampleRun("run-1", "checkSafe", "verified")
	require.NoError(t, s.WriteRun(ctx, first))

	// A second write with the same id must not clobber the original.
	clobber := first
	clobber.Verdict = "counterexample"
	require.NoError(t, s.WriteRun(ctx, clobber))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "verified", got.Verdict)
}

func TestGetMissingRun(t *testing.T) {
	s := openTemp(t)
	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRunsFiltersByCommand(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.WriteRun(ctx, sampleRun("a", "checkSafe", "verified")))
	require.NoError(t, s.WriteRun(ctx, sampleRun("b", "checkSafe", "counterexample")))
	require.NoError(t, s.WriteRun(ctx, sampleRun("c", "findAttack", "satisfiable")))

	all, err := s.ListRuns(ctx, "handoff", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	safe, err := s.ListRuns(ctx, "handoff", "checkSafe")
	require.NoError(t, err)
	assert.Len(t, safe, 2)

	none, err := s.ListRuns(ctx, "other", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	a, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, a.WriteRun(context.Background(), sampleRun("x", "c", "verified")))
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.GetRun(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "verified", got.Verdict)
}
