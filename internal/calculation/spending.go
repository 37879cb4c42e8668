package calculation

import (
	"math"
	"sort"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

// maxTaxRate keeps the gross-up finite.
const maxTaxRate = 0.99

// WithdrawalInput is the state the spending policy sees for one step.
type WithdrawalInput struct {
	Snapshot   *domain.Snapshot
	Month      int
	StepMonths int
	// Inflation is the cumulative price factor since the start date.
	Inflation float64
	// Portfolio is the total balance before this step's return.
	Portfolio float64
}

// WithdrawalDecision is the policy outcome for one step. Amounts cover the
// whole step and are nominal.
type WithdrawalDecision struct {
	Income            float64
	TaxedIncome       float64
	RequestedExpenses float64
	Expenses          float64
	Categories        []domain.ExpenseCategory
	DiscretionaryCut  float64
	Withdrawal        float64
	Capped            bool
	Cap               float64
	FixedNeed         float64
	Shortfall         float64
	CapExceeded       bool
}

// ComputeWithdrawal applies the snapshot's spending policy. Expenses follow
// the inflation factor; income does so only for indexed streams. Without a cap
// the withdrawal is the tax-grossed-up gap between expenses and income,
// floored at zero. Under a cap, discretionary categories are funded in
// priority order, then alphabetically, until the cap is reached; fixed
// categories are always funded in full and any excess of their need over
// the cap is reported as a shortfall.
func ComputeWithdrawal(in WithdrawalInput) WithdrawalDecision {
	snap := in.Snapshot
	stepMonths := in.StepMonths
	if stepMonths <= 0 {
		stepMonths = 1
	}
	scale := in.Inflation * float64(stepMonths)
	tax := math.Min(math.Max(snap.TaxRate, 0), maxTaxRate)

	d := WithdrawalDecision{
		Income:     snap.MonthlyIncome(in.Month, in.Inflation) * float64(stepMonths),
		Categories: make([]domain.ExpenseCategory, len(snap.Expenses)),
	}
	d.TaxedIncome = d.Income * (1 - tax)

	fixed := 0.0
	for i, c := range snap.Expenses {
		c.Monthly *= scale
		d.Categories[i] = c
		d.RequestedExpenses += c.Monthly
		if c.Class != domain.ExpenseDiscretionary {
			fixed += c.Monthly
		}
	}
	need := grossUp(d.RequestedExpenses-d.TaxedIncome, tax)

	d.Cap, d.Capped = withdrawalCap(snap.Policy, in, stepMonths)
	if !d.Capped || need <= d.Cap {
		d.Expenses = d.RequestedExpenses
		d.Withdrawal = need
		return d
	}

	d.FixedNeed = grossUp(fixed-d.TaxedIncome, tax)
	remaining := math.Max(0, d.Cap*(1-tax)+d.TaxedIncome-fixed)
	for _, i := range discretionaryOrder(d.Categories, snap.Policy.PriorityOrder) {
		want := d.Categories[i].Monthly
		spend := math.Min(want, remaining)
		d.Categories[i].Monthly = spend
		remaining -= spend
	}

	for _, c := range d.Categories {
		d.Expenses += c.Monthly
	}
	d.DiscretionaryCut = d.RequestedExpenses - d.Expenses
	d.Withdrawal = grossUp(d.Expenses-d.TaxedIncome, tax)
	if d.FixedNeed > d.Cap {
		d.Shortfall = d.FixedNeed - d.Cap
		d.CapExceeded = true
	}
	return d
}

func grossUp(net, tax float64) float64 {
	if net <= 0 {
		return 0
	}
	return net / (1 - tax)
}

// withdrawalCap returns the step's ceiling and whether one applies.
func withdrawalCap(p domain.SpendingPolicy, in WithdrawalInput, stepMonths int) (float64, bool) {
	if !p.Capped() {
		return math.Inf(1), false
	}
	absolute := math.Inf(1)
	if p.MaxMonthlyWithdrawal > 0 {
		absolute = p.MaxMonthlyWithdrawal * in.Inflation * float64(stepMonths)
	}
	switch p.Type {
	case domain.PolicyAbsoluteCap:
		if math.IsInf(absolute, 1) {
			return 0, true
		}
		return absolute, true
	default:
		limit := absolute
		if p.CapRate > 0 {
			limit = math.Min(limit, math.Max(in.Portfolio, 0)*p.CapRate*float64(stepMonths)/12)
		}
		return limit, true
	}
}

// discretionaryOrder lists discretionary category indices: those named in
// priority first, in that order, then the rest by name.
func discretionaryOrder(cats []domain.ExpenseCategory, priority []string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, name := range priority {
		for i, c := range cats {
			if c.Name == name && c.Class == domain.ExpenseDiscretionary && !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	var tail []int
	for i, c := range cats {
		if c.Class == domain.ExpenseDiscretionary && !seen[i] {
			tail = append(tail, i)
		}
	}
	sort.SliceStable(tail, func(a, b int) bool { return cats[tail[a]].Name < cats[tail[b]].Name })
	return append(out, tail...)
}
