package domain

import (
	"fmt"
	"time"
)

// Timing says when a life event fires. It is a closed set of variants;
// the scheduler resolves every variant to a month index from the start date.
type Timing interface {
	timing()
	// Describe renders the timing the way it was declared, for messages and dumps.
	Describe() string
}

// ExplicitMonth fires at a fixed month index.
type ExplicitMonth struct {
	Month int `json:"t_month" yaml:"t_month"`
}

// AgeTiming fires in the month the person reaches Age.
type AgeTiming struct {
	Age float64 `json:"age" yaml:"age"`
}

// AbsoluteDate fires in the calendar month of Date.
type AbsoluteDate struct {
	Date time.Time `json:"date" yaml:"date"`
}

// OffsetFromEvent fires a fixed distance after another event.
type OffsetFromEvent struct {
	From   string `json:"from" yaml:"from"`
	Years  int    `json:"years" yaml:"years"`
	Months int    `json:"months" yaml:"months"`
}

func (ExplicitMonth) timing()   {}
func (AgeTiming) timing()       {}
func (AbsoluteDate) timing()    {}
func (OffsetFromEvent) timing() {}

func (t ExplicitMonth) Describe() string { return fmt.Sprintf("t_month=%d", t.Month) }
func (t AgeTiming) Describe() string     { return fmt.Sprintf("age=%g", t.Age) }
func (t AbsoluteDate) Describe() string  { return "date=" + t.Date.Format("2006-01") }
func (t OffsetFromEvent) Describe() string {
	return fmt.Sprintf("offset from %q by %dy%dm", t.From, t.Years, t.Months)
}

// Deposit adds Amount (negative to withdraw) to a bucket, creating it with
// Treatment when it does not exist yet.
type Deposit struct {
	Bucket    string       `json:"bucket" yaml:"bucket"`
	Treatment TaxTreatment `json:"treatment" yaml:"treatment"`
	Amount    float64      `json:"amount" yaml:"amount"`
}

// EventJitter makes an event's timing and magnitude sampled per trial in
// the events and force Monte Carlo modes.
type EventJitter struct {
	Months    int     `json:"month_jitter,omitempty" yaml:"month_jitter,omitempty"`
	Magnitude float64 `json:"magnitude_jitter,omitempty" yaml:"magnitude_jitter,omitempty"`
}

// EventSource records where an event was declared. Layer 0 is the base
// profile and overlays count from 1 in application order.
type EventSource struct {
	File  string `json:"file" yaml:"file"`
	Layer int    `json:"layer" yaml:"layer"`
	Index int    `json:"index" yaml:"index"`
}

// LifeEvent is a named change to the plan at a point in time. Nil maps and
// pointers mean "leave unchanged".
type LifeEvent struct {
	Name             string                  `json:"event" yaml:"event"`
	Timing           Timing                  `json:"-" yaml:"-"`
	Income           map[string]float64      `json:"updated_income,omitempty" yaml:"updated_income,omitempty"`
	Expenses         map[string]float64      `json:"updated_expenses,omitempty" yaml:"updated_expenses,omitempty"`
	Classification   map[string]ExpenseClass `json:"classification,omitempty" yaml:"classification,omitempty"`
	TaxRate          *float64                `json:"total_tax_rate,omitempty" yaml:"total_tax_rate,omitempty"`
	Policy           *SpendingPolicy         `json:"spending_policy,omitempty" yaml:"spending_policy,omitempty"`
	Assumptions      AssumptionOverrides     `json:"updated_assumptions,omitempty" yaml:"updated_assumptions,omitempty"`
	ResetAssumptions bool                    `json:"reset_assumptions,omitempty" yaml:"reset_assumptions,omitempty"`
	Deposits         []Deposit               `json:"deposits,omitempty" yaml:"deposits,omitempty"`
	Jitter           *EventJitter            `json:"stochastic,omitempty" yaml:"stochastic,omitempty"`
	Source           EventSource             `json:"source" yaml:"source"`
}

// Scaled returns a copy whose monetary payload is multiplied by factor.
// Rates, classifications and timing are unchanged.
func (e LifeEvent) Scaled(factor float64) LifeEvent {
	if factor == 1 {
		return e
	}
	out := e
	if e.Income != nil {
		out.Income = make(map[string]float64, len(e.Income))
		for k, v := range e.Income {
			out.Income[k] = v * factor
		}
	}
	if e.Expenses != nil {
		out.Expenses = make(map[string]float64, len(e.Expenses))
		for k, v := range e.Expenses {
			out.Expenses[k] = v * factor
		}
	}
	if e.Deposits != nil {
		out.Deposits = make([]Deposit, len(e.Deposits))
		for i, d := range e.Deposits {
			d.Amount *= factor
			out.Deposits[i] = d
		}
	}
	return out
}

// ScheduledEvent is a life event with its resolved month index.
type ScheduledEvent struct {
	Month int       `json:"month"`
	Event LifeEvent `json:"event"`
}
