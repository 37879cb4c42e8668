package output

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// CSVSeriesExporter writes one detail CSV per deterministic series, named
// <combination>_<tag>.csv, with one row per step.
type CSVSeriesExporter struct{}

func (c CSVSeriesExporter) Name() string { return "csv" }

func (c CSVSeriesExporter) Format(r *domain.RunResult) ([]File, error) {
	files := make([]File, 0, len(r.Deterministic))
	for i := range r.Deterministic {
		tr := &r.Deterministic[i]
		data, err := seriesCSV(tr)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: fileStem(r.Name) + "_" + tr.Tag + ".csv", Data: data})
	}
	return files, nil
}

func seriesCSV(tr *domain.TrialResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Step", "MonthIndex", "Date", "Age", "Balance", "Income", "RequestedExpenses", "Expenses",
		"DiscretionaryCut", "Withdrawal", "Cap", "Shortfall", "Return", "InflationFactor", "CapExceeded", "Depleted", "Events"}
	for _, b := range tr.BucketNames {
		header = append(header, "Bucket:"+b)
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, st := range tr.Steps {
		row := []string{
			intToString(st.Step),
			intToString(st.MonthIndex),
			st.Date,
			cellAge(st.Age),
			cellMoney(st.Balance),
			cellMoney(st.Income),
			cellMoney(st.RequestedExpenses),
			cellMoney(st.Expenses),
			cellMoney(st.DiscretionaryCut),
			cellMoney(st.Withdrawal),
			cellMoney(st.Cap),
			cellMoney(st.Shortfall),
			cellRate(st.Return),
			cellRate(st.InflationFactor),
			boolToString(st.CapExceeded),
			boolToString(st.Depleted),
			strings.Join(st.Events, "; "),
		}
		for _, b := range st.Balances {
			row = append(row, cellMoney(b))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
