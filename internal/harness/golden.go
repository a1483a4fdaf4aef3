package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Scrub replaces the volatile lines of a text report with fixed
// placeholders. Run ids are fresh per execution and search statistics
// carry wall-clock timing; everything else in a report is deterministic.
func Scrub(reportText string) string {
	lines := strings.Split(reportText, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "run "):
			lines[i] = "run <run-id>"
		case strings.HasPrefix(line, "search: "):
			lines[i] = "search: <stats>"
		}
	}
	return strings.Join(lines, "\n")
}

// RunWithGolden executes a scenario, fails the test on any missed
// verdict, and compares the scrubbed reports against the golden file
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		t.Fatalf("running scenario %s: %v", scenario.Name, err)
	}
	for _, failure := range result.Failures {
		t.Errorf("scenario %s: %s", scenario.Name, failure)
	}

	var b strings.Builder
	for i, outcome := range result.Outcomes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Scrub(outcome.Report))
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(b.String()))
	return result
}
