package output

import (
	"fmt"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func steps(balances ...float64) []domain.SimulationStep {
	out := make([]domain.SimulationStep, len(balances))
	for i, b := range balances {
		out[i] = domain.SimulationStep{
			Step:              i,
			MonthIndex:        i,
			Date:              fmt.Sprintf("2025-%02d", i+1),
			Age:               65 + float64(i)/12,
			Balance:           b,
			Income:            1000,
			RequestedExpenses: 3000,
			Expenses:          3000,
			Withdrawal:        2000,
			Return:            0.004,
			InflationFactor:   1,
		}
	}
	return out
}

func sampleResult() *domain.RunResult {
	expected := domain.TrialResult{Tag: "expected", DepletionStep: -1, Steps: steps(100000, 98400.5, 96790.25)}
	expected.BucketNames = []string{"cash", "ira"}
	for i := range expected.Steps {
		expected.Steps[i].Balances = []float64{10000, expected.Steps[i].Balance - 10000}
	}
	expected.Steps[1].Events = []string{"Retire"}

	depleted := domain.TrialResult{Tag: "min", DepletionStep: 2, Steps: steps(100000, 1500, 0)}
	depleted.Steps[2].Shortfall = 500
	depleted.Steps[2].Depleted = true
	depleted.Annotations = []domain.Annotation{
		{Kind: domain.AnnotationDepletionRisk, Step: 1, MonthIndex: 1, Date: "2025-02"},
		{Kind: domain.AnnotationDepleted, Step: 2, MonthIndex: 2, Date: "2025-03"},
	}

	return &domain.RunResult{
		Name:          "pat+crash",
		Description:   "baseline + crash",
		Person:        "Pat",
		Files:         []string{"pat.json", "crash.yaml"},
		Granularity:   domain.Monthly,
		Deterministic: []domain.TrialResult{depleted, expected},
		MonteCarlo: &domain.AggregateResult{
			Mode:        domain.ModeForce,
			Granularity: domain.Monthly,
			Trials:      100,
			SeedBase:    42,
			Axis: []domain.StepAxis{
				{MonthIndex: 0, Date: "2025-01", Age: 65},
				{MonthIndex: 1, Date: "2025-02", Age: 65 + 1.0/12},
				{MonthIndex: 2, Date: "2025-03", Age: 65 + 2.0/12},
			},
			Bands: []domain.PercentileBand{
				{Percentile: 10, Values: []float64{100000, 90000, 80000}},
				{Percentile: 50, Values: []float64{100000, 99000, 98000}},
				{Percentile: 90, Values: []float64{100000, 101000, 102000}},
			},
			DepletedTrials:   20,
			DepletionRate:    0.2,
			SuccessRate:      0.8,
			MeanDepletionAge: ptr(80.5),
			TerminalPercentiles: []domain.PercentileValue{
				{Percentile: 10, Value: 0},
				{Percentile: 50, Value: 98000},
				{Percentile: 90, Value: 102000},
			},
			Sample: &domain.TrialResult{Tag: "trial-0", DepletionStep: -1, Steps: steps(100000, 99500)},
		},
		Events: []domain.EventMarker{{Name: "Retire", MonthIndex: 1, Date: "2025-02", Age: 65 + 1.0/12, Source: "pat.json"}},
	}
}
