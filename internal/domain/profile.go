package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Schema types accepted in the schema_type field of input documents.
const (
	SchemaUserBase = "user_base"
	SchemaScenario = "scenario"
)

// TaxTreatment classifies a portfolio bucket.
type TaxTreatment string

const (
	TreatmentTaxable    TaxTreatment = "taxable"
	TreatmentNonTaxable TaxTreatment = "non_taxable"
	TreatmentBrokerage  TaxTreatment = "brokerage"
	TreatmentSavings    TaxTreatment = "savings"
)

// DefaultWithdrawalOrder is the treatment order buckets are drawn down in
// when the profile does not name one.
var DefaultWithdrawalOrder = []TaxTreatment{
	TreatmentTaxable,
	TreatmentBrokerage,
	TreatmentSavings,
	TreatmentNonTaxable,
}

// ParseTaxTreatment accepts the canonical names plus hyphenated spellings.
func ParseTaxTreatment(s string) (TaxTreatment, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch TaxTreatment(n) {
	case TreatmentTaxable, TreatmentNonTaxable, TreatmentBrokerage, TreatmentSavings:
		return TaxTreatment(n), nil
	}
	return "", fmt.Errorf("unknown tax treatment %q", s)
}

// ExpenseClass marks whether a category may be reduced by the spending policy.
type ExpenseClass string

const (
	ExpenseFixed         ExpenseClass = "fixed"
	ExpenseDiscretionary ExpenseClass = "discretionary"
)

// ParseExpenseClass resolves a classification value; empty means fixed.
func ParseExpenseClass(s string) (ExpenseClass, error) {
	switch ExpenseClass(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExpenseFixed:
		return ExpenseFixed, nil
	case ExpenseDiscretionary:
		return ExpenseDiscretionary, nil
	}
	return "", fmt.Errorf("unknown expense class %q", s)
}

// Assumptions are annual economic rates.
type Assumptions struct {
	ExpectedReturn float64 `json:"expected_return" yaml:"expected_return"`
	Variance       float64 `json:"variance" yaml:"variance"`
	Inflation      float64 `json:"inflation" yaml:"inflation"`
}

// AssumptionOverrides carries only the fields a layer explicitly sets.
type AssumptionOverrides struct {
	ExpectedReturn *float64 `json:"expected_return,omitempty" yaml:"expected_return,omitempty"`
	Variance       *float64 `json:"variance,omitempty" yaml:"variance,omitempty"`
	Inflation      *float64 `json:"inflation,omitempty" yaml:"inflation,omitempty"`
}

// IsZero reports whether no field is set.
func (o AssumptionOverrides) IsZero() bool {
	return o.ExpectedReturn == nil && o.Variance == nil && o.Inflation == nil
}

// Apply returns a copy of a with the set fields of o replacing it.
func (a Assumptions) Apply(o AssumptionOverrides) Assumptions {
	if o.ExpectedReturn != nil {
		a.ExpectedReturn = *o.ExpectedReturn
	}
	if o.Variance != nil {
		a.Variance = *o.Variance
	}
	if o.Inflation != nil {
		a.Inflation = *o.Inflation
	}
	return a
}

// PolicyType selects how the withdrawal cap is computed.
type PolicyType string

const (
	PolicyNone         PolicyType = ""
	PolicyPortfolioCap PolicyType = "portfolio_cap"
	PolicyAbsoluteCap  PolicyType = "absolute_cap"
)

// ParsePolicyType accepts the policy names used in input files.
func ParsePolicyType(s string) (PolicyType, error) {
	switch PolicyType(strings.ToLower(strings.TrimSpace(s))) {
	case "", "none":
		return PolicyNone, nil
	case PolicyPortfolioCap:
		return PolicyPortfolioCap, nil
	case PolicyAbsoluteCap:
		return PolicyAbsoluteCap, nil
	}
	return "", fmt.Errorf("unknown spending policy type %q", s)
}

// SpendingPolicy limits withdrawals. CapRate is annual; MaxMonthlyWithdrawal
// is in start-date dollars.
type SpendingPolicy struct {
	Type                 PolicyType `json:"type,omitempty" yaml:"type,omitempty"`
	CapRate              float64    `json:"cap_rate,omitempty" yaml:"cap_rate,omitempty"`
	MaxMonthlyWithdrawal float64    `json:"max_monthly_withdrawal,omitempty" yaml:"max_monthly_withdrawal,omitempty"`
	PriorityOrder        []string   `json:"priority_order,omitempty" yaml:"priority_order,omitempty"`
}

// Capped reports whether the policy imposes any ceiling.
func (p SpendingPolicy) Capped() bool {
	switch p.Type {
	case PolicyPortfolioCap:
		return p.CapRate > 0 || p.MaxMonthlyWithdrawal > 0
	case PolicyAbsoluteCap:
		return true
	}
	return false
}

// IncomeStream is a named monthly income. StartMonth/EndMonth are resolved
// month indices; EndMonth is exclusive and -1 means open ended. Income is
// nominal unless Indexed, in which case it follows inflation like expenses.
type IncomeStream struct {
	Name       string        `json:"name" yaml:"name"`
	Monthly    float64       `json:"monthly" yaml:"monthly"`
	Indexed    bool          `json:"indexed,omitempty" yaml:"indexed,omitempty"`
	StartMonth int           `json:"start_month" yaml:"start_month"`
	EndMonth   int           `json:"end_month" yaml:"end_month"`
	Window     *IncomeWindow `json:"window,omitempty" yaml:"window,omitempty"`
}

// IncomeWindow is the unresolved activity window of an income stream.
type IncomeWindow struct {
	StartDate string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	StartAge  *float64 `json:"start_age,omitempty" yaml:"start_age,omitempty"`
	EndAge    *float64 `json:"end_age,omitempty" yaml:"end_age,omitempty"`
}

// ActiveAt reports whether the stream pays in month m.
func (s IncomeStream) ActiveAt(m int) bool {
	if m < s.StartMonth {
		return false
	}
	return s.EndMonth < 0 || m < s.EndMonth
}

// ExpenseCategory is a named monthly expense.
type ExpenseCategory struct {
	Name    string       `json:"name" yaml:"name"`
	Monthly float64      `json:"monthly" yaml:"monthly"`
	Class   ExpenseClass `json:"class" yaml:"class"`
}

// PortfolioBucket is one account in the portfolio.
type PortfolioBucket struct {
	Name      string       `json:"name" yaml:"name"`
	Treatment TaxTreatment `json:"treatment" yaml:"treatment"`
	Balance   float64      `json:"balance" yaml:"balance"`
}

// Person describes whose horizon is simulated. Exactly one of BirthDate and
// CurrentAge is set; StopDate takes precedence over StopAge.
type Person struct {
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
	BirthDate  *time.Time `json:"birthdate,omitempty" yaml:"birthdate,omitempty"`
	CurrentAge *float64   `json:"current_age,omitempty" yaml:"current_age,omitempty"`
	StopAge    float64    `json:"stop_age,omitempty" yaml:"stop_age,omitempty"`
	StopDate   *time.Time `json:"stop_date,omitempty" yaml:"stop_date,omitempty"`
}

// DefaultStopAge is used when a person declares neither stop age nor stop date.
const DefaultStopAge = 100.0

// MarketShock forces the return of the step containing Date.
type MarketShock struct {
	Date   time.Time `json:"date" yaml:"date"`
	Return float64   `json:"return" yaml:"return"`
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Profile is the base financial picture of a user. Values are in
// start-date dollars.
type Profile struct {
	SourceFile      string            `json:"source_file" yaml:"source_file"`
	SchemaType      string            `json:"schema_type" yaml:"schema_type"`
	SchemaVersion   int               `json:"schema_version" yaml:"schema_version"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate       *time.Time        `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	Person          Person            `json:"person" yaml:"person"`
	Income          []IncomeStream    `json:"income" yaml:"income"`
	Expenses        []ExpenseCategory `json:"expenses" yaml:"expenses"`
	TaxRate         float64           `json:"total_tax_rate" yaml:"total_tax_rate"`
	Policy          SpendingPolicy    `json:"spending_policy" yaml:"spending_policy"`
	Buckets         []PortfolioBucket `json:"buckets" yaml:"buckets"`
	WithdrawalOrder []string          `json:"withdrawal_order,omitempty" yaml:"withdrawal_order,omitempty"`
	Assumptions     Assumptions       `json:"assumptions" yaml:"assumptions"`
	Events          []LifeEvent       `json:"life_events,omitempty" yaml:"life_events,omitempty"`
	Shocks          []MarketShock     `json:"forced_market_events,omitempty" yaml:"forced_market_events,omitempty"`
}

// TotalBalance sums all bucket balances.
func (p *Profile) TotalBalance() float64 {
	total := 0.0
	for _, b := range p.Buckets {
		total += b.Balance
	}
	return total
}

// Overlay layers a scenario on top of a profile.
type Overlay struct {
	SourceFile    string              `json:"source_file" yaml:"source_file"`
	SchemaType    string              `json:"schema_type" yaml:"schema_type"`
	SchemaVersion int                 `json:"schema_version" yaml:"schema_version"`
	Description   string              `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate     *time.Time          `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	Assumptions   AssumptionOverrides `json:"assumptions,omitempty" yaml:"assumptions,omitempty"`
	Events        []LifeEvent         `json:"life_events,omitempty" yaml:"life_events,omitempty"`
	Shocks        []MarketShock       `json:"forced_market_events,omitempty" yaml:"forced_market_events,omitempty"`
}

// OrderBuckets returns bucket indices in draw-down order. Entries of order
// may name buckets or treatments; buckets not covered follow in
// DefaultWithdrawalOrder, ties broken by bucket name.
func OrderBuckets(buckets []PortfolioBucket, order []string) []int {
	byName := make([]int, len(buckets))
	for i := range buckets {
		byName[i] = i
	}
	sort.SliceStable(byName, func(a, b int) bool {
		return buckets[byName[a]].Name < buckets[byName[b]].Name
	})

	taken := make([]bool, len(buckets))
	out := make([]int, 0, len(buckets))
	take := func(match func(PortfolioBucket) bool) {
		for _, i := range byName {
			if !taken[i] && match(buckets[i]) {
				taken[i] = true
				out = append(out, i)
			}
		}
	}

	for _, entry := range order {
		name := strings.TrimSpace(entry)
		found := false
		for _, i := range byName {
			if buckets[i].Name == name {
				found = true
				break
			}
		}
		if found {
			take(func(b PortfolioBucket) bool { return b.Name == name })
			continue
		}
		if t, err := ParseTaxTreatment(name); err == nil {
			take(func(b PortfolioBucket) bool { return b.Treatment == t })
		}
	}
	for _, t := range DefaultWithdrawalOrder {
		take(func(b PortfolioBucket) bool { return b.Treatment == t })
	}
	take(func(PortfolioBucket) bool { return true })
	return out
}
