package calculation

import (
	"errors"
	"testing"
	"time"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSchemaTypes(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		overlay string
		kind    error
	}{
		{"valid", domain.SchemaUserBase, domain.SchemaScenario, nil},
		{"scenario as base", domain.SchemaScenario, domain.SchemaScenario, ErrSchemaMismatch},
		{"base as overlay", domain.SchemaUserBase, domain.SchemaUserBase, ErrSchemaMismatch},
		{"unknown base", "budget", domain.SchemaScenario, ErrUnknownSchemaType},
		{"missing overlay type", domain.SchemaUserBase, "", ErrUnknownSchemaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			p.SchemaType = tt.base
			ov := testOverlay("crash.json")
			ov.SchemaType = tt.overlay
			_, err := Resolve(p, []*domain.Overlay{ov})
			if tt.kind == nil {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestResolveLayering(t *testing.T) {
	p := testProfile()
	p.Description = "baseline"
	a := testOverlay("scenarios/high_inflation.json")
	a.Description = "inflation"
	a.Assumptions = domain.AssumptionOverrides{Inflation: ptr(0.06), ExpectedReturn: ptr(0.03)}
	b := testOverlay("scenarios/bull.yaml")
	later := ym(2026, time.January)
	b.StartDate = &later
	b.Assumptions = domain.AssumptionOverrides{ExpectedReturn: ptr(0.09)}

	rc, err := Resolve(p, []*domain.Overlay{a, b})
	require.NoError(t, err)

	assert.Equal(t, "high_inflation+bull", rc.Name)
	assert.Equal(t, "baseline + inflation", rc.Description)
	assert.Equal(t, []string{"base.json", "scenarios/high_inflation.json", "scenarios/bull.yaml"}, rc.Files)
	assert.Equal(t, later, rc.Start, "last overlay start date wins")
	assert.Equal(t, domain.Assumptions{ExpectedReturn: 0.09, Variance: 0.1, Inflation: 0.06}, rc.Initial.Assumptions)
	assert.Equal(t, p.Assumptions, rc.BaseAssumptions)
	assert.Equal(t, 60.0, rc.StartAge)
	assert.Equal(t, 120, rc.HorizonMonths)
}

func TestResolveNameWithoutOverlays(t *testing.T) {
	p := testProfile()
	p.SourceFile = "data/users/jane.yaml"
	rc, err := Resolve(p, nil)
	require.NoError(t, err)
	assert.Equal(t, "jane", rc.Name)
}

func TestResolveHorizon(t *testing.T) {
	t.Run("birthdate and default stop age", func(t *testing.T) {
		p := testProfile()
		p.Person.CurrentAge = nil
		p.Person.BirthDate = ptr(ym(1965, time.January))
		p.Person.StopAge = 0
		rc, err := Resolve(p, nil)
		require.NoError(t, err)
		assert.InDelta(t, 60.0, rc.StartAge, 1e-9)
		assert.Equal(t, 480, rc.HorizonMonths)
	})
	t.Run("stop date wins over stop age", func(t *testing.T) {
		p := testProfile()
		p.Person.StopDate = ptr(ym(2027, time.July))
		rc, err := Resolve(p, nil)
		require.NoError(t, err)
		assert.Equal(t, 30, rc.HorizonMonths)
	})
	t.Run("no age", func(t *testing.T) {
		p := testProfile()
		p.Person.CurrentAge = nil
		_, err := Resolve(p, nil)
		assert.Error(t, err)
	})
	t.Run("start date from clock", func(t *testing.T) {
		SetNowFunc(func() time.Time { return time.Date(2030, time.May, 17, 9, 0, 0, 0, time.UTC) })
		defer SetNowFunc(time.Now)
		p := testProfile()
		p.StartDate = nil
		rc, err := Resolve(p, nil)
		require.NoError(t, err)
		assert.Equal(t, ym(2030, time.May), rc.Start)
	})
}

func TestResolveEventPooling(t *testing.T) {
	p := testProfile()
	p.Events = []domain.LifeEvent{event("retire", domain.AgeTiming{Age: 62})}
	ov := testOverlay("trip.json")
	ov.Events = []domain.LifeEvent{event("trip", domain.ExplicitMonth{Month: 3})}

	rc, err := Resolve(p, []*domain.Overlay{ov})
	require.NoError(t, err)
	require.Len(t, rc.Events, 2)
	assert.Equal(t, domain.EventSource{File: "base.json", Layer: 0, Index: 0}, rc.Events[0].Source)
	assert.Equal(t, domain.EventSource{File: "trip.json", Layer: 1, Index: 0}, rc.Events[1].Source)

	dup := testOverlay("dup.json")
	dup.Events = []domain.LifeEvent{event("retire", domain.ExplicitMonth{Month: 1})}
	_, err = Resolve(p, []*domain.Overlay{dup})
	assert.True(t, errors.Is(err, ErrDuplicateEventName))

	unnamed := testOverlay("unnamed.json")
	unnamed.Events = []domain.LifeEvent{{Timing: domain.ExplicitMonth{Month: 1}}}
	_, err = Resolve(p, []*domain.Overlay{unnamed})
	assert.True(t, errors.Is(err, ErrMissingEventName))
}

func TestResolveIncomeWindows(t *testing.T) {
	p := testProfile()
	p.Income = []domain.IncomeStream{
		{Name: "salary", Monthly: 5000, Window: &domain.IncomeWindow{EndDate: "2026-01"}},
		{Name: "pension", Monthly: 2000, Window: &domain.IncomeWindow{StartAge: ptr(65.0)}},
		{Name: "rent", Monthly: 800},
	}
	rc, err := Resolve(p, nil)
	require.NoError(t, err)
	inc := rc.Initial.Income
	assert.Equal(t, 0, inc[0].StartMonth)
	assert.Equal(t, 12, inc[0].EndMonth)
	assert.Equal(t, 60, inc[1].StartMonth)
	assert.Equal(t, -1, inc[1].EndMonth)
	assert.Equal(t, -1, inc[2].EndMonth)

	assert.Equal(t, 5800.0, rc.Initial.MonthlyIncome(0, 1))
	assert.Equal(t, 2800.0, rc.Initial.MonthlyIncome(60, 1))
}

func TestResolveShocks(t *testing.T) {
	p := testProfile()
	p.Shocks = []domain.MarketShock{
		{Date: ym(2025, time.March), Return: -0.2},
		{Date: ym(2024, time.March), Return: -0.5},
	}
	ov := testOverlay("crash.json")
	ov.Shocks = []domain.MarketShock{{Date: ym(2025, time.March), Return: -0.4}}
	rc, err := Resolve(p, []*domain.Overlay{ov})
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{2: -0.4}, rc.Shocks)
}

func TestBuildTimeline(t *testing.T) {
	p := testProfile()
	p.Assumptions.Inflation = 0.02
	p.Events = []domain.LifeEvent{
		{
			Name:        "recession",
			Timing:      domain.ExplicitMonth{Month: 12},
			Assumptions: domain.AssumptionOverrides{ExpectedReturn: ptr(-0.1), Inflation: ptr(0.08)},
		},
		{
			Name:           "travel",
			Timing:         domain.ExplicitMonth{Month: 12},
			Expenses:       map[string]float64{"travel": 500, "housing": 1200},
			Classification: map[string]domain.ExpenseClass{"travel": domain.ExpenseDiscretionary},
			Deposits:       []domain.Deposit{{Bucket: "gift", Amount: 10000}},
		},
		{
			Name:             "recovery",
			Timing:           domain.ExplicitMonth{Month: 36},
			ResetAssumptions: true,
			Assumptions:      domain.AssumptionOverrides{Variance: ptr(0.2)},
			Policy:           &domain.SpendingPolicy{Type: domain.PolicyAbsoluteCap, MaxMonthlyWithdrawal: 900},
		},
	}
	ov := testOverlay("crash.json")
	ov.Assumptions = domain.AssumptionOverrides{ExpectedReturn: ptr(0.04)}

	plan, err := NewCalculationEngine().Prepare(p, []*domain.Overlay{ov})
	require.NoError(t, err)
	tl := plan.Timeline

	require.Len(t, tl.Breakpoints, 3)
	assert.Equal(t, []int{0, 12, 36}, []int{tl.Breakpoints[0].Month, tl.Breakpoints[1].Month, tl.Breakpoints[2].Month})
	assert.Equal(t, []string{"recession", "travel"}, tl.Breakpoints[1].Events)
	assert.Len(t, tl.Breakpoints[1].Deposits, 1)

	first := tl.Breakpoints[0].Snapshot
	assert.Equal(t, 0.04, first.Assumptions.ExpectedReturn)
	assert.Len(t, first.Expenses, 1, "earlier snapshots are not mutated")

	mid := tl.Breakpoints[1].Snapshot
	assert.Equal(t, domain.Assumptions{ExpectedReturn: -0.1, Variance: 0.1, Inflation: 0.08}, mid.Assumptions)
	require.Len(t, mid.Expenses, 2)
	assert.Equal(t, domain.ExpenseCategory{Name: "housing", Monthly: 1200, Class: domain.ExpenseFixed}, mid.Expenses[0])
	assert.Equal(t, domain.ExpenseCategory{Name: "travel", Monthly: 500, Class: domain.ExpenseDiscretionary}, mid.Expenses[1])

	last := tl.Breakpoints[2].Snapshot
	assert.Equal(t, domain.Assumptions{ExpectedReturn: 0.05, Variance: 0.2, Inflation: 0.02}, last.Assumptions,
		"reset restores the base file, not the overlay")
	assert.Equal(t, domain.PolicyAbsoluteCap, last.Policy.Type)
	assert.Len(t, last.Expenses, 2)

	assert.Equal(t, 0, tl.At(11))
	assert.Equal(t, 1, tl.At(12))
	assert.Equal(t, 2, tl.At(200))
}
