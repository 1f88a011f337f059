package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/relq/internal/ir"
)

// RunSnapshot captures every run of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type RunSnapshot struct {
	ScenarioName string
	Match        string
	Runs         []RunResult
}

// toCanonicalMap converts a RunSnapshot to a map[string]any for canonical
// JSON serialization. ir.MarshalCanonical only handles IR types and
// primitives.
func (s *RunSnapshot) toCanonicalMap() map[string]any {
	runs := make([]any, len(s.Runs))
	for i, run := range s.Runs {
		matches := make([]any, len(run.Matches))
		for j, id := range run.Matches {
			matches[j] = id
		}
		runMap := map[string]any{
			"step":        run.Step,
			"matches":     matches,
			"resolutions": run.Resolutions,
			"entries":     run.Entries,
		}
		if run.Error != "" {
			runMap["error"] = run.Error
		}
		runs[i] = runMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"match":         s.Match,
		"runs":          runs,
	}
}

// RunWithGolden executes a scenario and compares its runs against a golden
// file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the runs don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares a result against a golden file without re-running
// the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// Snapshot returns the canonical JSON that golden files hold for a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := RunSnapshot{
		ScenarioName: scenarioName,
		Match:        result.Match,
		Runs:         result.Runs,
	}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}
