package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// MonteCarloCSVExporter writes the percentile bands per step and a summary
// of the failure statistics. Runs without Monte Carlo produce no files.
type MonteCarloCSVExporter struct{}

func (m MonteCarloCSVExporter) Name() string { return "mc-csv" }

func (m MonteCarloCSVExporter) Format(r *domain.RunResult) ([]File, error) {
	mc := r.MonteCarlo
	if mc == nil {
		return nil, nil
	}
	bands, err := bandsCSV(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to write bands: %w", err)
	}
	summary, err := monteCarloSummaryCSV(mc)
	if err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	stem := fileStem(r.Name)
	return []File{
		{Name: stem + "_mc.csv", Data: bands},
		{Name: stem + "_mc_summary.csv", Data: summary},
	}, nil
}

func percentileLabel(p float64) string {
	return "P" + strconv.FormatFloat(p, 'f', -1, 64)
}

func bandsCSV(mc *domain.AggregateResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"MonthIndex", "Date", "Age"}
	for _, b := range mc.Bands {
		header = append(header, percentileLabel(b.Percentile))
	}
	if mc.Sample != nil {
		header = append(header, "Sample")
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i, ax := range mc.Axis {
		row := []string{intToString(ax.MonthIndex), ax.Date, cellAge(ax.Age)}
		for _, b := range mc.Bands {
			row = append(row, cellMoney(b.Values[i]))
		}
		if mc.Sample != nil {
			v := ""
			if i < len(mc.Sample.Steps) {
				v = cellMoney(mc.Sample.Steps[i].Balance)
			}
			row = append(row, v)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func monteCarloSummaryCSV(mc *domain.AggregateResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Metric", "Value", "Description"}); err != nil {
		return nil, err
	}
	meanAge := "n/a"
	if mc.MeanDepletionAge != nil {
		meanAge = cellAge(*mc.MeanDepletionAge)
	}
	rows := [][]string{
		{"Trials", strconv.Itoa(mc.Trials), "Total number of simulated trials"},
		{"Mode", string(mc.Mode), "Dimensions sampled per trial"},
		{"Granularity", string(mc.Granularity), "Simulation step size"},
		{"Seed Base", strconv.FormatUint(mc.SeedBase, 10), "Seed the per-trial seeds were derived from"},
		{"Success Rate", FormatPercentage(mc.SuccessRate), "Percentage of trials that never depleted"},
		{"Depletion Rate", FormatPercentage(mc.DepletionRate), "Percentage of trials that depleted"},
		{"Depleted Trials", strconv.Itoa(mc.DepletedTrials), "Number of trials that depleted"},
		{"Mean Depletion Age", meanAge, "Average age at depletion among depleted trials"},
	}
	for _, pv := range mc.TerminalPercentiles {
		rows = append(rows, []string{
			"Terminal " + percentileLabel(pv.Percentile),
			cellMoney(pv.Value),
			fmt.Sprintf("%gth percentile of the final balance", pv.Percentile),
		})
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
