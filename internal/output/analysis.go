package output

import (
	"sort"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// SeriesSummary condenses one simulated path to its headline figures.
type SeriesSummary struct {
	Tag            string   `json:"tag"`
	StartBalance   float64  `json:"start_balance"`
	FinalBalance   float64  `json:"final_balance"`
	MinBalance     float64  `json:"min_balance"`
	TotalWithdrawn float64  `json:"total_withdrawn"`
	TotalShortfall float64  `json:"total_shortfall"`
	RiskSteps      int      `json:"risk_steps"`
	DepletionDate  string   `json:"depletion_date,omitempty"`
	DepletionAge   *float64 `json:"depletion_age,omitempty"`
}

// RunSummary condenses a run result for listings and archives.
type RunSummary struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Person         string          `json:"person,omitempty"`
	Series         []SeriesSummary `json:"series"`
	Trials         int             `json:"trials,omitempty"`
	SuccessRate    *float64        `json:"success_rate,omitempty"`
	MedianTerminal *float64        `json:"median_terminal,omitempty"`
}

// SummarizeSeries extracts the headline figures of one path.
func SummarizeSeries(tr *domain.TrialResult) SeriesSummary {
	s := SeriesSummary{Tag: tr.Tag}
	for i, st := range tr.Steps {
		if i == 0 {
			s.StartBalance = st.Balance
			s.MinBalance = st.Balance
		}
		if st.Balance < s.MinBalance {
			s.MinBalance = st.Balance
		}
		s.TotalWithdrawn += st.Withdrawal
		s.TotalShortfall += st.Shortfall
	}
	s.FinalBalance = tr.FinalBalance()
	for _, a := range tr.Annotations {
		if a.Kind == domain.AnnotationDepletionRisk {
			s.RiskSteps++
		}
	}
	if tr.Depleted() && tr.DepletionStep < len(tr.Steps) {
		st := tr.Steps[tr.DepletionStep]
		s.DepletionDate = st.Date
		a := st.Age
		s.DepletionAge = &a
	}
	return s
}

// Summarize extracts the headline figures of a run.
func Summarize(r *domain.RunResult) RunSummary {
	sum := RunSummary{Name: r.Name, Description: r.Description, Person: r.Person}
	for i := range r.Deterministic {
		sum.Series = append(sum.Series, SummarizeSeries(&r.Deterministic[i]))
	}
	if mc := r.MonteCarlo; mc != nil {
		sum.Trials = mc.Trials
		rate := mc.SuccessRate
		sum.SuccessRate = &rate
		for _, pv := range mc.TerminalPercentiles {
			if pv.Percentile == 50 {
				v := pv.Value
				sum.MedianTerminal = &v
			}
		}
	}
	return sum
}

// Expected returns the summary of the expected series, or a zero value.
func (rs RunSummary) Expected() SeriesSummary {
	for _, s := range rs.Series {
		if s.Tag == calculation.SeriesExpected {
			return s
		}
	}
	return SeriesSummary{}
}

// Best picks the combination with the highest Monte Carlo success rate,
// falling back to the expected series' final balance. Ties keep input order.
func Best(summaries []RunSummary) (RunSummary, bool) {
	if len(summaries) == 0 {
		return RunSummary{}, false
	}
	ranked := append([]RunSummary(nil), summaries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := successOf(ranked[i]), successOf(ranked[j])
		if ri != rj {
			return ri > rj
		}
		return ranked[i].Expected().FinalBalance > ranked[j].Expected().FinalBalance
	})
	return ranked[0], true
}

func successOf(rs RunSummary) float64 {
	if rs.SuccessRate == nil {
		return -1
	}
	return *rs.SuccessRate
}
