package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/runner"
	"github.com/shopspring/decimal"
)

// Prints the expected series of two scenarios side by side as CSV, then the
// running difference in total withdrawals.
func main() {
	if len(os.Args) < 4 {
		fmt.Println("usage: compare_series <user-file> <scenario-a> <scenario-b>")
		return
	}
	ce := calculation.NewCalculationEngine()
	r := runner.New(ce, calculation.RunOptions{})

	var series [2]*domain.TrialResult
	var names [2]string
	for i, overlay := range os.Args[2:4] {
		profile, overlays, err := r.Load(runner.Combination{Profile: os.Args[1], Overlays: []string{overlay}})
		if err != nil {
			panic(err)
		}
		res, err := ce.RunScenario(context.Background(), profile, overlays, calculation.RunOptions{Granularity: domain.Yearly})
		if err != nil {
			panic(err)
		}
		series[i] = res.Series(calculation.SeriesExpected)
		names[i] = res.Name
	}

	a, b := series[0].Steps, series[1].Steps
	n := min(len(a), len(b))
	if n == 0 {
		fmt.Println("no steps")
		return
	}

	fmt.Printf("Step,Date,Age,%[1]s_Balance,%[1]s_Withdrawal,%[2]s_Balance,%[2]s_Withdrawal\n", names[0], names[1])
	for i := 0; i < n; i++ {
		fmt.Printf("%d,%s,%.2f,%.0f,%.0f,%.0f,%.0f\n", i, a[i].Date, a[i].Age,
			a[i].Balance, a[i].Withdrawal, b[i].Balance, b[i].Withdrawal)
	}

	cumA, cumB := decimal.Zero, decimal.Zero
	for i := 0; i < n; i++ {
		cumA = cumA.Add(decimal.NewFromFloat(a[i].Withdrawal))
		cumB = cumB.Add(decimal.NewFromFloat(b[i].Withdrawal))
		fmt.Printf("Cumulative %s: %s=%s %s=%s diff=%s\n", a[i].Date, names[0], cumA.StringFixed(0),
			names[1], cumB.StringFixed(0), cumA.Sub(cumB).StringFixed(0))
	}
	if da, db := series[0].DepletionStep, series[1].DepletionStep; da >= 0 || db >= 0 {
		fmt.Printf("\nDepletion steps: %s=%d %s=%d\n", names[0], da, names[1], db)
	}
}
