package calculation

import (
	"time"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func ym(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// testProfile is a 60 year old with one savings bucket, no income and a
// single fixed expense, simulated for ten years.
func testProfile() *domain.Profile {
	start := ym(2025, time.January)
	return &domain.Profile{
		SourceFile: "base.json",
		SchemaType: domain.SchemaUserBase,
		StartDate:  &start,
		Person: domain.Person{
			Name:       "Pat",
			CurrentAge: ptr(60.0),
			StopAge:    70,
		},
		Expenses: []domain.ExpenseCategory{
			{Name: "housing", Monthly: 1000, Class: domain.ExpenseFixed},
		},
		Buckets: []domain.PortfolioBucket{
			{Name: "savings", Treatment: domain.TreatmentSavings, Balance: 100000},
		},
		Assumptions: domain.Assumptions{ExpectedReturn: 0.05, Variance: 0.1, Inflation: 0},
	}
}

func testOverlay(file string) *domain.Overlay {
	return &domain.Overlay{SourceFile: file, SchemaType: domain.SchemaScenario}
}

func event(name string, timing domain.Timing) domain.LifeEvent {
	return domain.LifeEvent{Name: name, Timing: timing}
}

// flatTimeline is a timeline with a single snapshot from month 0.
func flatTimeline(horizon int, balance float64, snap *domain.Snapshot) *domain.Timeline {
	return &domain.Timeline{
		Start:         ym(2025, time.January),
		StartAge:      60,
		HorizonMonths: horizon,
		Buckets: []domain.PortfolioBucket{
			{Name: "savings", Treatment: domain.TreatmentSavings, Balance: balance},
		},
		Breakpoints: []domain.Breakpoint{{Month: 0, Snapshot: snap}},
	}
}
