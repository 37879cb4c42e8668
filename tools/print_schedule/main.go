package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/runner"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
)

// Prints where every life event lands and the plan state at each breakpoint.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: print_schedule <user-file> [scenario-file...]")
		return
	}
	c := runner.Combination{Profile: os.Args[1], Overlays: os.Args[2:]}

	ce := calculation.NewCalculationEngine()
	profile, overlays, err := runner.New(ce, calculation.RunOptions{}).Load(c)
	if err != nil {
		log.Fatal(err)
	}
	plan, err := ce.Prepare(profile, overlays)
	if err != nil {
		log.Fatal(err)
	}

	tl := plan.Timeline
	fmt.Printf("%s: start %s, age %.2f, %d months\n", plan.Config.Name,
		dateutil.FormatYearMonth(tl.Start), tl.StartAge, tl.HorizonMonths)

	fmt.Println("\nScheduled events:")
	for _, se := range plan.Scheduled {
		flag := ""
		if se.Month > tl.HorizonMonths {
			flag = " (after horizon)"
		}
		fmt.Printf("  %4d  %s  age %6.2f  %-24s %s%s\n", se.Month, dateutil.FormatYearMonth(tl.DateAt(se.Month)),
			tl.AgeAt(se.Month), se.Event.Name, se.Event.Source.File, flag)
	}

	fmt.Println("\nBreakpoints:")
	for _, bp := range tl.Breakpoints {
		s := bp.Snapshot
		fmt.Printf("  %4d  income %10.2f  expenses %10.2f  tax %.3f  return %.4f  inflation %.4f  policy %s  %v\n",
			bp.Month, s.MonthlyIncome(bp.Month, 1), s.MonthlyExpenses(), s.TaxRate,
			s.Assumptions.ExpectedReturn, s.Assumptions.Inflation, s.Policy.Type, bp.Events)
		for _, d := range bp.Deposits {
			fmt.Printf("        deposit %s/%s %.2f\n", d.Treatment, d.Bucket, d.Amount)
		}
	}
	if len(tl.Shocks) > 0 {
		fmt.Printf("\nForced shocks: %v\n", tl.Shocks)
	}
}
