package domain

import "time"

// Snapshot is the fully merged plan state in effect from one breakpoint
// until the next. Snapshots are never mutated after construction.
type Snapshot struct {
	Income      []IncomeStream    `json:"income" yaml:"income"`
	Expenses    []ExpenseCategory `json:"expenses" yaml:"expenses"`
	TaxRate     float64           `json:"total_tax_rate" yaml:"total_tax_rate"`
	Policy      SpendingPolicy    `json:"spending_policy" yaml:"spending_policy"`
	Assumptions Assumptions       `json:"assumptions" yaml:"assumptions"`
}

// MonthlyIncome sums streams active in month m, scaling indexed streams by
// the cumulative inflation factor.
func (s *Snapshot) MonthlyIncome(m int, inflation float64) float64 {
	total := 0.0
	for _, in := range s.Income {
		if !in.ActiveAt(m) {
			continue
		}
		if in.Indexed {
			total += in.Monthly * inflation
		} else {
			total += in.Monthly
		}
	}
	return total
}

// MonthlyExpenses sums all expense categories.
func (s *Snapshot) MonthlyExpenses() float64 {
	total := 0.0
	for _, e := range s.Expenses {
		total += e.Monthly
	}
	return total
}

// Breakpoint starts a new snapshot at Month. Events lists the names of the
// events folded into it in application order.
type Breakpoint struct {
	Month    int       `json:"month" yaml:"month"`
	Snapshot *Snapshot `json:"snapshot" yaml:"snapshot"`
	Events   []string  `json:"events,omitempty" yaml:"events,omitempty"`
	Deposits []Deposit `json:"deposits,omitempty" yaml:"deposits,omitempty"`
}

// Timeline is the per-month plan for one (profile, overlays) combination.
// Breakpoint months strictly increase and the first breakpoint is month 0.
type Timeline struct {
	Start           time.Time         `json:"start" yaml:"start"`
	StartAge        float64           `json:"start_age" yaml:"start_age"`
	HorizonMonths   int               `json:"horizon_months" yaml:"horizon_months"`
	Buckets         []PortfolioBucket `json:"buckets" yaml:"buckets"`
	WithdrawalOrder []string          `json:"withdrawal_order,omitempty" yaml:"withdrawal_order,omitempty"`
	Shocks          map[int]float64   `json:"shocks,omitempty" yaml:"shocks,omitempty"`
	Breakpoints     []Breakpoint      `json:"breakpoints" yaml:"breakpoints"`
}

// At returns the index of the breakpoint in effect at month m.
func (tl *Timeline) At(m int) int {
	lo, hi := 0, len(tl.Breakpoints)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if tl.Breakpoints[mid].Month <= m {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// DateAt returns the calendar month of month index m.
func (tl *Timeline) DateAt(m int) time.Time {
	return tl.Start.AddDate(0, m, 0)
}

// AgeAt returns the person's fractional age at month index m.
func (tl *Timeline) AgeAt(m int) float64 {
	return tl.StartAge + float64(m)/12
}
