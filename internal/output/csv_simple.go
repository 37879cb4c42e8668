package output

import (
	"bytes"
	"encoding/csv"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// CSVSummarizer implements the simple summary CSV output (one row per series).
type CSVSummarizer struct{}

func (c CSVSummarizer) Name() string { return "summary-csv" }

func (c CSVSummarizer) Format(r *domain.RunResult) ([]File, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Combination", "Series", "StartBalance", "FinalBalance", "MinBalance", "TotalWithdrawn", "TotalShortfall", "RiskSteps", "DepletionDate", "DepletionAge"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	sum := Summarize(r)
	for _, s := range sum.Series {
		depletionAge := ""
		if s.DepletionAge != nil {
			depletionAge = cellAge(*s.DepletionAge)
		}
		row := []string{
			sum.Name,
			s.Tag,
			cellMoney(s.StartBalance),
			cellMoney(s.FinalBalance),
			cellMoney(s.MinBalance),
			cellMoney(s.TotalWithdrawn),
			cellMoney(s.TotalShortfall),
			intToString(s.RiskSteps),
			s.DepletionDate,
			depletionAge,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []File{{Name: fileStem(r.Name) + "_summary.csv", Data: buf.Bytes()}}, nil
}
