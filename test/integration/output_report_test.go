package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/output"
	"github.com/sdickey2024/fin-plan-shared/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateEveryFormat(t *testing.T) {
	profile, overlays := load(t, "market_crash.yaml", "travel.json")
	res, err := calculation.NewCalculationEngine().RunScenario(context.Background(), profile, overlays, calculation.RunOptions{
		Granularity:   domain.Yearly,
		RecordBuckets: true,
		MonteCarlo: calculation.MonteCarloOptions{
			Trials: 50, Mode: domain.ModeForce, SeedBase: 7, Jobs: 2, Percentiles: calculation.DefaultPercentiles,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "market_crash+travel", res.Name)

	dir := t.TempDir()
	paths, err := output.GenerateReports(res, output.AvailableFormatterNames(), dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"market_crash+travel.json",
		"market_crash+travel.txt",
		"market_crash+travel_expected.csv",
		"market_crash+travel_max.csv",
		"market_crash+travel_mc.csv",
		"market_crash+travel_mc_summary.csv",
		"market_crash+travel_min.csv",
		"market_crash+travel_summary.csv",
		"market_crash+travel_summary.txt",
		"market_crash+travel_timeline.yaml",
	}, names)
}

func TestRunnerOverTestdata(t *testing.T) {
	locator := runner.Locator{UserDir: userDir, ScenarioDir: scenarioDir}
	combos, err := locator.Plan("pat.json", nil)
	require.NoError(t, err)
	require.Len(t, combos, 3)

	var out bytes.Buffer
	r := runner.New(calculation.NewCalculationEngine(), calculation.RunOptions{Granularity: domain.Yearly})
	r.Formats = []string{"summary"}
	r.OutDir = t.TempDir()
	r.Jobs = 2
	r.Out = &out

	outcomes, err := r.Run(context.Background(), combos)
	require.Error(t, err)
	assert.Equal(t, "1 of 3 combination(s) failed", err.Error())
	assert.False(t, outcomes[0].OK(), "bad_reference sorts first")
	assert.True(t, outcomes[1].OK())
	assert.True(t, outcomes[2].OK())
	assert.Contains(t, out.String(), "[FAIL] pat.json + bad_reference.json: unknown event reference")
	assert.Contains(t, out.String(), "Best: ")
}
