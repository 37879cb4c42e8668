package domain

import (
	"fmt"
	"strings"
)

// Granularity is the simulation step size.
type Granularity string

const (
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// ParseGranularity resolves a granularity name; empty means monthly.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monthly:
		return Monthly, nil
	case Yearly, "annual":
		return Yearly, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want monthly or yearly)", s)
}

// StepMonths is the number of months covered by one step.
func (g Granularity) StepMonths() int {
	if g == Yearly {
		return 12
	}
	return 1
}

// StepsPerYear is the number of steps in a year.
func (g Granularity) StepsPerYear() int {
	return 12 / g.StepMonths()
}

// MonteCarloMode selects which dimensions are sampled per trial.
type MonteCarloMode string

const (
	ModeOff    MonteCarloMode = "off"
	ModeSim    MonteCarloMode = "sim"
	ModeEvents MonteCarloMode = "events"
	ModeForce  MonteCarloMode = "force"
)

// ParseMonteCarloMode resolves a mode name; empty means off.
func ParseMonteCarloMode(s string) (MonteCarloMode, error) {
	switch MonteCarloMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeOff, "none":
		return ModeOff, nil
	case ModeSim:
		return ModeSim, nil
	case ModeEvents:
		return ModeEvents, nil
	case ModeForce:
		return ModeForce, nil
	}
	return "", fmt.Errorf("unknown monte carlo mode %q (want off, sim, events or force)", s)
}

// SamplesReturns reports whether trials draw stochastic returns.
func (m MonteCarloMode) SamplesReturns() bool { return m == ModeSim || m == ModeForce }

// SamplesEvents reports whether trials jitter event timing and magnitude.
func (m MonteCarloMode) SamplesEvents() bool { return m == ModeEvents || m == ModeForce }

// AppliesShocks reports whether forced market shocks override returns.
func (m MonteCarloMode) AppliesShocks() bool { return m == ModeForce }

// SimulationStep is one row of a simulated path. Amounts are nominal and
// cover the whole step.
type SimulationStep struct {
	Step              int       `json:"step"`
	MonthIndex        int       `json:"month_index"`
	Date              string    `json:"date"`
	Age               float64   `json:"age"`
	Balances          []float64 `json:"balances,omitempty"`
	Balance           float64   `json:"balance"`
	Income            float64   `json:"income"`
	RequestedExpenses float64   `json:"requested_expenses"`
	Expenses          float64   `json:"expenses"`
	DiscretionaryCut  float64   `json:"discretionary_cut"`
	Withdrawal        float64   `json:"withdrawal"`
	Cap               float64   `json:"cap,omitempty"`
	Shortfall         float64   `json:"shortfall,omitempty"`
	Return            float64   `json:"return"`
	InflationFactor   float64   `json:"inflation_factor"`
	CapExceeded       bool      `json:"cap_exceeded,omitempty"`
	Depleted          bool      `json:"depleted,omitempty"`
	Events            []string  `json:"events,omitempty"`
}

// AnnotationKind classifies non-fatal findings on a path.
type AnnotationKind string

const (
	// AnnotationDepletionRisk marks a step where fixed expenses alone exceed
	// the spending cap.
	AnnotationDepletionRisk AnnotationKind = "depletion_risk"
	// AnnotationDepleted marks the step the portfolio ran out.
	AnnotationDepleted AnnotationKind = "depleted"
)

// Annotation is a non-fatal signal attached to a path.
type Annotation struct {
	Kind       AnnotationKind `json:"kind"`
	Step       int            `json:"step"`
	MonthIndex int            `json:"month_index"`
	Date       string         `json:"date"`
	Detail     string         `json:"detail,omitempty"`
}

// TrialResult is one simulated path.
type TrialResult struct {
	Tag           string           `json:"tag"`
	Seed          uint64           `json:"seed,omitempty"`
	BucketNames   []string         `json:"bucket_names,omitempty"`
	Steps         []SimulationStep `json:"steps"`
	DepletionStep int              `json:"depletion_step"`
	Annotations   []Annotation     `json:"annotations,omitempty"`
}

// Depleted reports whether the path ran out of money.
func (tr *TrialResult) Depleted() bool { return tr.DepletionStep >= 0 }

// FinalBalance is the balance at the last step.
func (tr *TrialResult) FinalBalance() float64 {
	if len(tr.Steps) == 0 {
		return 0
	}
	return tr.Steps[len(tr.Steps)-1].Balance
}

// StepAxis labels one step of an aggregate.
type StepAxis struct {
	MonthIndex int     `json:"month_index"`
	Date       string  `json:"date"`
	Age        float64 `json:"age"`
}

// PercentileBand is the balance at a percentile for every step.
type PercentileBand struct {
	Percentile float64   `json:"percentile"`
	Values     []float64 `json:"values"`
}

// PercentileValue is a single percentile of a scalar distribution.
type PercentileValue struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// AggregateResult summarizes a Monte Carlo run.
type AggregateResult struct {
	Mode                MonteCarloMode    `json:"mode"`
	Granularity         Granularity       `json:"granularity"`
	Trials              int               `json:"trials"`
	SeedBase            uint64            `json:"seed_base"`
	Axis                []StepAxis        `json:"axis"`
	Bands               []PercentileBand  `json:"bands"`
	DepletedTrials      int               `json:"depleted_trials"`
	DepletionRate       float64           `json:"depletion_rate"`
	SuccessRate         float64           `json:"success_rate"`
	MeanDepletionAge    *float64          `json:"mean_depletion_age,omitempty"`
	TerminalPercentiles []PercentileValue `json:"terminal_percentiles"`
	Sample              *TrialResult      `json:"sample,omitempty"`
}

// Band returns the band for percentile p, or nil.
func (ar *AggregateResult) Band(p float64) *PercentileBand {
	for i := range ar.Bands {
		if ar.Bands[i].Percentile == p {
			return &ar.Bands[i]
		}
	}
	return nil
}

// EventMarker places a life event on the output axis.
type EventMarker struct {
	Name       string  `json:"name"`
	MonthIndex int     `json:"month_index"`
	Date       string  `json:"date"`
	Age        float64 `json:"age"`
	Source     string  `json:"source"`
}

// RunResult is everything produced for one (profile, overlays) combination.
type RunResult struct {
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Person        string           `json:"person,omitempty"`
	Files         []string         `json:"files"`
	Granularity   Granularity      `json:"granularity"`
	Deterministic []TrialResult    `json:"deterministic"`
	MonteCarlo    *AggregateResult `json:"monte_carlo,omitempty"`
	Events        []EventMarker    `json:"events"`
}

// Series returns the deterministic series with tag, or nil.
func (r *RunResult) Series(tag string) *TrialResult {
	for i := range r.Deterministic {
		if r.Deterministic[i].Tag == tag {
			return &r.Deterministic[i]
		}
	}
	return nil
}
