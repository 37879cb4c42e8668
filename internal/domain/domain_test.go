package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumptionsApply(t *testing.T) {
	base := Assumptions{ExpectedReturn: 0.06, Variance: 0.1, Inflation: 0.02}
	r := 0.03
	got := base.Apply(AssumptionOverrides{ExpectedReturn: &r})

	assert.Equal(t, 0.03, got.ExpectedReturn)
	assert.Equal(t, 0.1, got.Variance)
	assert.Equal(t, 0.02, got.Inflation)
	assert.Equal(t, 0.06, base.ExpectedReturn, "receiver must not change")
	assert.True(t, AssumptionOverrides{}.IsZero())
}

func TestOrderBuckets(t *testing.T) {
	buckets := []PortfolioBucket{
		{Name: "roth", Treatment: TreatmentNonTaxable},
		{Name: "ira", Treatment: TreatmentTaxable},
		{Name: "cash", Treatment: TreatmentSavings},
		{Name: "etf", Treatment: TreatmentBrokerage},
		{Name: "401k", Treatment: TreatmentTaxable},
	}

	t.Run("default order", func(t *testing.T) {
		got := OrderBuckets(buckets, nil)
		names := make([]string, len(got))
		for i, idx := range got {
			names[i] = buckets[idx].Name
		}
		assert.Equal(t, []string{"401k", "ira", "etf", "cash", "roth"}, names)
	})

	t.Run("explicit bucket then treatment", func(t *testing.T) {
		got := OrderBuckets(buckets, []string{"cash", "non-taxable"})
		names := make([]string, len(got))
		for i, idx := range got {
			names[i] = buckets[idx].Name
		}
		assert.Equal(t, []string{"cash", "roth", "401k", "ira", "etf"}, names)
	})
}

func TestTimelineAt(t *testing.T) {
	tl := &Timeline{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Breakpoints: []Breakpoint{
			{Month: 0}, {Month: 12}, {Month: 30},
		},
	}
	assert.Equal(t, 0, tl.At(0))
	assert.Equal(t, 0, tl.At(11))
	assert.Equal(t, 1, tl.At(12))
	assert.Equal(t, 1, tl.At(29))
	assert.Equal(t, 2, tl.At(30))
	assert.Equal(t, 2, tl.At(500))
	assert.Equal(t, "2026-03", tl.DateAt(14).Format("2006-01"))
}

func TestIncomeStreamWindow(t *testing.T) {
	s := IncomeStream{Name: "pension", Monthly: 1000, StartMonth: 5, EndMonth: 10}
	assert.False(t, s.ActiveAt(4))
	assert.True(t, s.ActiveAt(5))
	assert.True(t, s.ActiveAt(9))
	assert.False(t, s.ActiveAt(10))

	open := IncomeStream{Name: "ss", Monthly: 1, StartMonth: 0, EndMonth: -1}
	assert.True(t, open.ActiveAt(10000))
}

func TestLifeEventScaled(t *testing.T) {
	e := LifeEvent{
		Name:     "bonus",
		Income:   map[string]float64{"salary": 100},
		Expenses: map[string]float64{"travel": 50},
		Deposits: []Deposit{{Bucket: "cash", Amount: 1000}},
	}
	s := e.Scaled(1.5)
	assert.Equal(t, 150.0, s.Income["salary"])
	assert.Equal(t, 75.0, s.Expenses["travel"])
	assert.Equal(t, 1500.0, s.Deposits[0].Amount)
	assert.Equal(t, 100.0, e.Income["salary"], "original must not change")
}

func TestParsers(t *testing.T) {
	g, err := ParseGranularity("Yearly")
	require.NoError(t, err)
	assert.Equal(t, Yearly, g)
	assert.Equal(t, 12, g.StepMonths())
	assert.Equal(t, 1, g.StepsPerYear())

	_, err = ParseGranularity("weekly")
	assert.Error(t, err)

	m, err := ParseMonteCarloMode("force")
	require.NoError(t, err)
	assert.True(t, m.SamplesReturns())
	assert.True(t, m.SamplesEvents())
	assert.True(t, m.AppliesShocks())

	m, err = ParseMonteCarloMode("events")
	require.NoError(t, err)
	assert.False(t, m.SamplesReturns())

	tt, err := ParseTaxTreatment("Non-Taxable")
	require.NoError(t, err)
	assert.Equal(t, TreatmentNonTaxable, tt)

	c, err := ParseExpenseClass("")
	require.NoError(t, err)
	assert.Equal(t, ExpenseFixed, c)
}
