package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userDoc = `{
  "schema_type": "user_base", "schema_version": 1,
  "start_date": "2025-01",
  "person": {"name": "Pat", "current_age": 65, "stop_age": 68},
  "income": {"pension": 1500},
  "expenses": {"breakdown": {"housing": 2000}},
  "portfolio": {"breakdown": {"taxable": {"ira": 200000}}},
  "assumptions": {"expected_return": 0.05, "variance": 0.1, "inflation": 0.02},
  "life_events": [{"event": "Move", "t_month": 6, "updated_expenses": {"breakdown": {"housing": 1500}}}]
}`

const crashDoc = `schema_type: scenario
schema_version: 1
description: crash
life_events:
  - event: Crash
    t_month: 3
    updated_assumptions: {expected_return: -0.2}
`

const travelDoc = `{"schema_type": "scenario", "schema_version": 1, "description": "travel",
  "life_events": [{"event": "Travel", "offset": {"from": "Move", "months": 2}, "updated_expenses": {"breakdown": {"travel": 800}}}]}`

const dupDoc = `{"schema_type": "scenario", "schema_version": 1, "description": "dup",
  "life_events": [{"event": "Move", "t_month": 1}]}`

type dataDirs struct {
	root, user, scenarios string
}

func setupData(t *testing.T) dataDirs {
	t.Helper()
	root := t.TempDir()
	d := dataDirs{root: root, user: filepath.Join(root, "data", "user_base"), scenarios: filepath.Join(root, "data", "scenarios")}
	require.NoError(t, os.MkdirAll(d.user, 0o755))
	require.NoError(t, os.MkdirAll(d.scenarios, 0o755))
	write := func(dir, name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write(d.user, "pat.json", userDoc)
	write(d.scenarios, "crash.yaml", crashDoc)
	write(d.scenarios, "travel.json", travelDoc)
	write(d.scenarios, "dup.json", dupDoc)
	write(d.scenarios, "notes.txt", "ignored")
	write(filepath.Join(root, "data"), "legacy.json", travelDoc)
	return d
}

func (d dataDirs) locator() Locator { return Locator{UserDir: d.user, ScenarioDir: d.scenarios} }

func TestParseSets(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   [][]string
	}{
		{"none", nil, nil},
		{"repeat", []string{"a.json", "b.json"}, [][]string{{"a.json"}, {"b.json"}}},
		{"comma", []string{"a.json, b.json"}, [][]string{{"a.json"}, {"b.json"}}},
		{"layer", []string{"a.json+b.json", "c.json"}, [][]string{{"a.json", "b.json"}, {"c.json"}}},
		{"blanks", []string{"", " , +a.json+ "}, [][]string{{"a.json"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSets(tt.values))
		})
	}
}

func TestLocatorPlan(t *testing.T) {
	d := setupData(t)
	l := d.locator()

	combos, err := l.Plan("pat.json", []string{"crash.yaml+travel.json", "legacy.json"})
	require.NoError(t, err)
	require.Len(t, combos, 2)
	assert.Equal(t, filepath.Join(d.user, "pat.json"), combos[0].Profile)
	assert.Equal(t, []string{filepath.Join(d.scenarios, "crash.yaml"), filepath.Join(d.scenarios, "travel.json")}, combos[0].Overlays)
	assert.Equal(t, []string{filepath.Join(d.root, "data", "legacy.json")}, combos[1].Overlays, "falls back to the parent data directory")
	assert.Equal(t, "pat.json + crash.yaml+travel.json", combos[0].Label())

	combos, err = l.Plan("pat.json", nil)
	require.NoError(t, err)
	require.Len(t, combos, 3, "every scenario document, sorted, without notes.txt")
	assert.Equal(t, "crash.yaml", filepath.Base(combos[0].Overlays[0]))
	assert.Equal(t, "dup.json", filepath.Base(combos[1].Overlays[0]))

	_, err = l.Plan("pat.json", []string{"nope.json,crash.yaml,gone.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[nope.json gone.json]")

	_, err = l.Plan("", nil)
	assert.Error(t, err)
	_, err = l.Plan("ghost.json", nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocatorPlanWithoutScenarios(t *testing.T) {
	d := setupData(t)
	l := Locator{UserDir: d.user, ScenarioDir: filepath.Join(d.root, "missing")}
	combos, err := l.Plan("pat.json", nil)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Empty(t, combos[0].Overlays)
	assert.Equal(t, "pat.json", combos[0].Label())
}

func TestRunReportsEachCombination(t *testing.T) {
	d := setupData(t)
	combos, err := d.locator().Plan("pat.json", []string{"crash.yaml", "dup.json", "crash.yaml+travel.json"})
	require.NoError(t, err)

	var out bytes.Buffer
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{Granularity: domain.Yearly})
	r.Formats = []string{"csv", "json"}
	r.OutDir = filepath.Join(d.root, "out")
	r.Jobs = 3
	r.Out = &out

	outcomes, err := r.Run(context.Background(), combos)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 combination(s) failed", err.Error())
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].OK())
	assert.Equal(t, "crash", outcomes[0].Result.Name)
	assert.Len(t, outcomes[0].Files, 4)
	assert.FileExists(t, filepath.Join(d.root, "out", "crash_expected.csv"))
	assert.FileExists(t, filepath.Join(d.root, "out", "crash+travel.json"))

	assert.False(t, outcomes[1].OK())
	assert.True(t, errors.Is(outcomes[1].Err, calculation.ErrDuplicateEventName))

	assert.True(t, outcomes[2].OK())
	assert.Equal(t, "crash+travel", outcomes[2].Result.Name)

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "Running 3 combination(s) with 3 parallel worker(s)...", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "[OK]   pat.json + crash.yaml"))
	assert.True(t, strings.HasPrefix(lines[2], "[FAIL] pat.json + dup.json: duplicate event name"))
	assert.True(t, strings.HasPrefix(lines[3], "[OK]   pat.json + crash.yaml+travel.json"))
	assert.True(t, strings.HasPrefix(lines[4], "Best: "))
	assert.Contains(t, out.String(), "Done with 1 failure(s).")
}

func TestRunArchivesAndPrints(t *testing.T) {
	d := setupData(t)
	archive, err := store.Open(filepath.Join(d.root, "runs.db"))
	require.NoError(t, err)
	defer archive.Close()

	var out bytes.Buffer
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{})
	r.Archive = archive
	r.Print = true
	r.Out = &out

	outcomes, err := r.Run(context.Background(), []Combination{{Profile: filepath.Join(d.user, "pat.json")}})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Empty(t, outcomes[0].Files)
	require.NotEmpty(t, outcomes[0].RunID)

	run, err := archive.GetRun(context.Background(), outcomes[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, "pat", run.Name)

	assert.Contains(t, out.String(), "--- pat: EXPECTED SERIES ---")
	assert.Contains(t, out.String(), "Done. All combinations succeeded.")
}

func TestSplitJobs(t *testing.T) {
	tests := []struct {
		name            string
		jobs, combos    int
		workers, perRun int
	}{
		{"single combination gets every job", 8, 1, 1, 8},
		{"more combinations than jobs", 4, 10, 4, 1},
		{"budget divides evenly", 8, 2, 2, 4},
		{"remainder is left idle", 8, 3, 3, 2},
		{"zero jobs runs serially", 0, 5, 1, 1},
		{"no combinations", 4, 0, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workers, perRun := splitJobs(tt.jobs, tt.combos)
			assert.Equal(t, tt.workers, workers)
			assert.Equal(t, tt.perRun, perRun)
			if tt.jobs > 0 {
				assert.LessOrEqual(t, workers*perRun, tt.jobs)
			}
		})
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{})
	r.Formats = []string{"pdf"}
	_, err := r.Run(context.Background(), []Combination{{Profile: "x.json"}})
	assert.Error(t, err)
}

func TestLoadValidatesSchemaType(t *testing.T) {
	d := setupData(t)
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{})
	_, _, err := r.Load(Combination{Profile: filepath.Join(d.scenarios, "crash.yaml")})
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Contains(t, ve.Problems[0], `expected "user_base"`)
}

func TestLoadReportsSchemaKinds(t *testing.T) {
	d := setupData(t)
	budget := filepath.Join(d.scenarios, "budget.json")
	require.NoError(t, os.WriteFile(budget, []byte(`{"schema_type": "budget", "schema_version": 1}`), 0o644))
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{})
	profile := filepath.Join(d.user, "pat.json")

	_, _, err := r.Load(Combination{Profile: profile, Overlays: []string{profile}})
	assert.ErrorIs(t, err, calculation.ErrSchemaMismatch)
	assert.Equal(t, "schema_mismatch", calculation.ErrorCode(err))

	_, _, err = r.Load(Combination{Profile: profile, Overlays: []string{budget}})
	assert.ErrorIs(t, err, calculation.ErrUnknownSchemaType)
	assert.Equal(t, "unknown_schema_type", calculation.ErrorCode(err))

	_, _, err = r.Load(Combination{Profile: budget})
	assert.ErrorIs(t, err, calculation.ErrUnknownSchemaType)
}

func TestRunCancelled(t *testing.T) {
	d := setupData(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(calculation.NewCalculationEngine(), calculation.RunOptions{})
	outcomes, err := r.Run(ctx, []Combination{{Profile: filepath.Join(d.user, "pat.json")}})
	require.Error(t, err)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
}
