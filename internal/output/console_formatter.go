package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// ConsoleFormatter renders every deterministic series as a step table.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(r *domain.RunResult) ([]File, error) {
	var buf bytes.Buffer
	p := newPrinter()
	for _, tr := range r.Deterministic {
		fmt.Fprintf(&buf, "\n--- %s: %s SERIES ---\n", r.Name, strings.ToUpper(tr.Tag))
		fmt.Fprintf(&buf, "%-8s%-9s%18s%15s%15s%15s%15s%9s   %s\n",
			"Age", "Date", "Portfolio", "Income", "Expenses", "Withdrawal", "Shortfall", "Return", "Event")
		for _, st := range tr.Steps {
			fmt.Fprintf(&buf, "%-8s%-9s%18s%15s%15s%15s%15s%9s   %s\n",
				cellAge(st.Age),
				st.Date,
				groupedCurrency(p, st.Balance),
				groupedCurrency(p, st.Income),
				groupedCurrency(p, st.Expenses),
				groupedCurrency(p, st.Withdrawal),
				groupedCurrency(p, st.Shortfall),
				FormatPercentage(st.Return),
				strings.Join(st.Events, ", "),
			)
		}
	}
	return []File{{Name: fileStem(r.Name) + ".txt", Data: buf.Bytes()}}, nil
}

// SummaryFormatter provides a concise text summary of a run.
type SummaryFormatter struct{}

func (s SummaryFormatter) Name() string { return "summary" }

func (s SummaryFormatter) Format(r *domain.RunResult) ([]File, error) {
	var buf bytes.Buffer
	p := newPrinter()
	sum := Summarize(r)

	fmt.Fprintln(&buf, "RETIREMENT SIMULATION SUMMARY")
	fmt.Fprintln(&buf, "================================")
	fmt.Fprintf(&buf, "Combination: %s\n", r.Name)
	if r.Person != "" {
		fmt.Fprintf(&buf, "Person:      %s\n", r.Person)
	}
	if r.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(&buf, "Files:       %s\n", strings.Join(r.Files, ", "))
	fmt.Fprintf(&buf, "Granularity: %s\n", r.Granularity)
	fmt.Fprintln(&buf)

	for _, ss := range sum.Series {
		fmt.Fprintf(&buf, "%s: Start=%s Final=%s Min=%s Withdrawn=%s\n",
			ss.Tag,
			groupedCurrency(p, ss.StartBalance),
			groupedCurrency(p, ss.FinalBalance),
			groupedCurrency(p, ss.MinBalance),
			groupedCurrency(p, ss.TotalWithdrawn),
		)
		switch {
		case ss.DepletionAge != nil:
			fmt.Fprintf(&buf, "  Depleted %s at age %s\n", ss.DepletionDate, cellAge(*ss.DepletionAge))
		case ss.RiskSteps > 0:
			fmt.Fprintf(&buf, "  Fixed expenses exceeded the cap in %d steps\n", ss.RiskSteps)
		}
	}

	if mc := r.MonteCarlo; mc != nil {
		fmt.Fprintln(&buf)
		fmt.Fprintf(&buf, "Monte Carlo (%s, %d trials, seed %d)\n", mc.Mode, mc.Trials, mc.SeedBase)
		fmt.Fprintf(&buf, "  Success rate: %s\n", FormatPercentage(mc.SuccessRate))
		if mc.MeanDepletionAge != nil {
			fmt.Fprintf(&buf, "  Mean depletion age: %s\n", cellAge(*mc.MeanDepletionAge))
		}
		for _, pv := range mc.TerminalPercentiles {
			fmt.Fprintf(&buf, "  Terminal %s: %s\n", percentileLabel(pv.Percentile), groupedCurrency(p, pv.Value))
		}
	}

	if len(r.Events) > 0 {
		fmt.Fprintln(&buf)
		fmt.Fprintln(&buf, "Events:")
		for _, ev := range r.Events {
			fmt.Fprintf(&buf, "  %s (age %s) %s\n", ev.Date, cellAge(ev.Age), ev.Name)
		}
	}
	return []File{{Name: fileStem(r.Name) + "_summary.txt", Data: buf.Bytes()}}, nil
}
