package calculation

import (
	"fmt"
	"math"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
)

// depletionTolerance absorbs float error when a withdrawal exactly empties
// the portfolio.
const depletionTolerance = 1e-6

// PathSimulator walks a timeline step by step.
type PathSimulator struct {
	Granularity domain.Granularity
	// RecordBuckets keeps per-bucket balances on every step.
	RecordBuckets bool
}

// NewPathSimulator creates a simulator for the given step size.
func NewPathSimulator(g domain.Granularity) *PathSimulator {
	return &PathSimulator{Granularity: g}
}

// Steps returns the number of steps covering horizonMonths, both ends
// included. Step s starts at month s*StepMonths; a horizon that is not a
// whole number of steps ends inside the last step, so a yearly run of 30
// months has steps at months 0, 12 and 24.
func (ps *PathSimulator) Steps(horizonMonths int) int {
	return horizonMonths/ps.Granularity.StepMonths() + 1
}

// Simulate produces one path. Each step applies, in order: events reached
// by the step, the spending policy, the step's return, the withdrawal
// across buckets in withdrawal order, and inflation. Once depleted the path
// stays at zero.
func (ps *PathSimulator) Simulate(tl *domain.Timeline, src ReturnSource, tag string) *domain.TrialResult {
	g := ps.Granularity
	stepMonths := g.StepMonths()
	steps := ps.Steps(tl.HorizonMonths)

	buckets := append([]domain.PortfolioBucket(nil), tl.Buckets...)
	balances := make([]float64, len(buckets))
	for i, b := range buckets {
		balances[i] = math.Max(b.Balance, 0)
	}
	order := domain.OrderBuckets(buckets, tl.WithdrawalOrder)

	res := &domain.TrialResult{
		Tag:           tag,
		Steps:         make([]domain.SimulationStep, 0, steps),
		DepletionStep: -1,
	}

	applied := -1
	inflation := 1.0
	depleted := false
	riskOpen := false

	for s := 0; s < steps; s++ {
		m := s * stepMonths
		bp := tl.At(m)
		var events []string
		for applied < bp {
			applied++
			b := tl.Breakpoints[applied]
			events = append(events, b.Events...)
			if !depleted {
				for _, d := range b.Deposits {
					buckets, balances, order = deposit(buckets, balances, order, tl.WithdrawalOrder, d)
				}
			}
		}
		snap := tl.Breakpoints[bp].Snapshot

		step := domain.SimulationStep{
			Step:            s,
			MonthIndex:      m,
			Date:            dateutil.FormatYearMonth(tl.DateAt(m)),
			Age:             tl.AgeAt(m),
			InflationFactor: inflation,
			Events:          events,
		}

		decision := ComputeWithdrawal(WithdrawalInput{
			Snapshot:   snap,
			Month:      m,
			StepMonths: stepMonths,
			Inflation:  inflation,
			Portfolio:  sum(balances),
		})
		step.Income = decision.Income
		step.RequestedExpenses = decision.RequestedExpenses
		step.Expenses = decision.Expenses
		step.DiscretionaryCut = decision.DiscretionaryCut
		if decision.Capped {
			step.Cap = decision.Cap
		}

		r := src.Next(StepContext{Step: s, Month: m, Granularity: g, Assumptions: snap.Assumptions})

		if !depleted {
			step.Return = r
			step.Shortfall = decision.Shortfall
			step.CapExceeded = decision.CapExceeded
			for i := range balances {
				balances[i] *= 1 + r
			}
			drawn := drawDown(balances, order, decision.Withdrawal)
			step.Withdrawal = drawn
			if decision.Withdrawal-drawn > depletionTolerance {
				depleted = true
				res.DepletionStep = s
				res.Annotations = append(res.Annotations, domain.Annotation{
					Kind:       domain.AnnotationDepleted,
					Step:       s,
					MonthIndex: m,
					Date:       step.Date,
					Detail:     fmt.Sprintf("needed %.2f, only %.2f available", decision.Withdrawal, drawn),
				})
			}
			if step.CapExceeded && !riskOpen {
				res.Annotations = append(res.Annotations, domain.Annotation{
					Kind:       domain.AnnotationDepletionRisk,
					Step:       s,
					MonthIndex: m,
					Date:       step.Date,
					Detail:     fmt.Sprintf("fixed expenses exceed the withdrawal cap by %.2f", decision.Shortfall),
				})
			}
			riskOpen = step.CapExceeded
		}
		if depleted {
			for i := range balances {
				balances[i] = 0
			}
			step.Depleted = true
		}

		step.Balance = sum(balances)
		if ps.RecordBuckets {
			step.Balances = append([]float64(nil), balances...)
		}
		res.Steps = append(res.Steps, step)

		if g == domain.Yearly {
			inflation *= 1 + snap.Assumptions.Inflation
		} else {
			inflation *= math.Pow(1+snap.Assumptions.Inflation, 1/12.0)
		}
	}

	res.BucketNames = make([]string, len(buckets))
	for i, b := range buckets {
		res.BucketNames[i] = b.Name
	}
	return res
}

// drawDown takes amount from balances in order and returns what it got.
func drawDown(balances []float64, order []int, amount float64) float64 {
	remaining := amount
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		take := math.Min(balances[i], remaining)
		if take <= 0 {
			continue
		}
		balances[i] -= take
		remaining -= take
	}
	return amount - math.Max(remaining, 0)
}

// deposit applies a lump sum, adding the bucket when it is new. Balances
// never go below zero.
func deposit(buckets []domain.PortfolioBucket, balances []float64, order []int, withdrawalOrder []string, d domain.Deposit) ([]domain.PortfolioBucket, []float64, []int) {
	for i, b := range buckets {
		if b.Name == d.Bucket {
			balances[i] = math.Max(balances[i]+d.Amount, 0)
			return buckets, balances, order
		}
	}
	treatment := d.Treatment
	if treatment == "" {
		treatment = domain.TreatmentSavings
	}
	buckets = append(buckets, domain.PortfolioBucket{Name: d.Bucket, Treatment: treatment})
	balances = append(balances, math.Max(d.Amount, 0))
	return buckets, balances, domain.OrderBuckets(buckets, withdrawalOrder)
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}
