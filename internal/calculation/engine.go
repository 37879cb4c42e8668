package calculation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
)

// Deterministic series tags, in output order.
const (
	SeriesMin      = "min"
	SeriesExpected = "expected"
	SeriesMax      = "max"
)

// Plan is a resolved and scheduled (profile, overlays) combination. It is
// shared read-only by every path simulated from it.
type Plan struct {
	Config    *ResolvedConfig
	Scheduled []domain.ScheduledEvent
	Timeline  *domain.Timeline
}

// HasJitter reports whether any event declares sampled timing or magnitude.
func (p *Plan) HasJitter() bool {
	for _, ev := range p.Config.Events {
		if j := ev.Jitter; j != nil && (j.Months > 0 || j.Magnitude > 0) {
			return true
		}
	}
	return false
}

// perturbed reschedules the plan with event timing and magnitudes drawn
// from rng. Draws happen in declared event order.
func (p *Plan) perturbed(rng *rand.Rand) (*domain.Timeline, error) {
	events := make([]domain.LifeEvent, len(p.Config.Events))
	shift := make(map[string]int)
	for i, ev := range p.Config.Events {
		if j := ev.Jitter; j != nil {
			if j.Months > 0 {
				shift[ev.Name] = rng.IntN(2*j.Months+1) - j.Months
			}
			if j.Magnitude > 0 {
				ev = ev.Scaled(1 + j.Magnitude*(2*rng.Float64()-1))
			}
		}
		events[i] = ev
	}
	scheduled, err := Schedule(events, Anchor{Start: p.Config.Start, StartAge: p.Config.StartAge, Shift: shift})
	if err != nil {
		return nil, err
	}
	return BuildTimeline(p.Config, scheduled), nil
}

// RunOptions selects how a plan is executed.
type RunOptions struct {
	Granularity   domain.Granularity
	MonteCarlo    MonteCarloOptions
	RecordBuckets bool
}

// CalculationEngine orchestrates all retirement calculations
type CalculationEngine struct {
	MonteCarlo     *MonteCarloOrchestrator
	HistoricalData *HistoricalDataManager // optional; enables bootstrap returns
	Logger         Logger
}

// NewCalculationEngine creates a new calculation engine
func NewCalculationEngine() *CalculationEngine {
	return &CalculationEngine{
		MonteCarlo: NewMonteCarloOrchestrator(),
		Logger:     NopLogger{},
	}
}

// SetLogger sets the logger for the calculation engine. If nil is provided, a no-op logger is used.
func (ce *CalculationEngine) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	ce.Logger = l
	if ce.MonteCarlo != nil {
		ce.MonteCarlo.Logger = l
	}
}

// Prepare resolves overlays over profile and schedules every life event.
func (ce *CalculationEngine) Prepare(profile *domain.Profile, overlays []*domain.Overlay) (*Plan, error) {
	rc, err := Resolve(profile, overlays)
	if err != nil {
		return nil, err
	}
	scheduled, err := Schedule(rc.Events, Anchor{Start: rc.Start, StartAge: rc.StartAge})
	if err != nil {
		return nil, err
	}
	tl := BuildTimeline(rc, scheduled)
	withPlan(ce.Logger, rc.Name).Debugf("prepared: start %s, age %.2f, %d months, %d events, %d breakpoints",
		dateutil.FormatYearMonth(rc.Start), rc.StartAge, rc.HorizonMonths, len(scheduled), len(tl.Breakpoints))
	return &Plan{Config: rc, Scheduled: scheduled, Timeline: tl}, nil
}

// Run simulates the min, expected and max deterministic series and, unless
// the Monte Carlo mode is off, the trial aggregate.
func (ce *CalculationEngine) Run(ctx context.Context, plan *Plan, opts RunOptions) (*domain.RunResult, error) {
	g := opts.Granularity
	if g == "" {
		g = domain.Monthly
	}
	rc := plan.Config
	log := withPlan(ce.Logger, rc.Name)
	result := &domain.RunResult{
		Name:        rc.Name,
		Description: rc.Description,
		Person:      rc.Person.Name,
		Files:       rc.Files,
		Granularity: g,
		Events:      eventMarkers(plan),
	}

	if rem := rc.HorizonMonths % g.StepMonths(); rem != 0 {
		log.Infof("%d month horizon is not a whole number of %s steps; the last step starts at month %d",
			rc.HorizonMonths, g, rc.HorizonMonths-rem)
	}
	sim := NewPathSimulator(g)
	sim.RecordBuckets = opts.RecordBuckets
	for _, s := range []struct {
		tag    string
		offset float64
	}{
		{SeriesMin, -1},
		{SeriesExpected, 0},
		{SeriesMax, 1},
	} {
		tr := sim.Simulate(plan.Timeline, FixedReturn{Offset: s.offset}, s.tag)
		if tr.Depleted() {
			log.Warnf("%s series depleted at %s", s.tag, tr.Steps[tr.DepletionStep].Date)
		}
		result.Deterministic = append(result.Deterministic, *tr)
	}

	mc := opts.MonteCarlo
	if mc.Mode == "" || mc.Mode == domain.ModeOff {
		return result, nil
	}
	mc.Granularity = g
	if mc.SeedBase == 0 {
		mc.SeedBase = seedFunc()
		log.Infof("monte carlo seed base %d", mc.SeedBase)
	}
	if len(mc.Historical) == 0 && ce.HistoricalData != nil {
		mc.Historical = ce.HistoricalData.AnnualReturns()
	}
	orch := ce.MonteCarlo
	if orch == nil {
		orch = &MonteCarloOrchestrator{Logger: ce.Logger}
	}
	agg, err := orch.RunTrials(ctx, plan, mc)
	if err != nil {
		return nil, fmt.Errorf("monte carlo for %s: %w", rc.Name, err)
	}
	result.MonteCarlo = agg
	return result, nil
}

// RunScenario prepares and runs one combination.
func (ce *CalculationEngine) RunScenario(ctx context.Context, profile *domain.Profile, overlays []*domain.Overlay, opts RunOptions) (*domain.RunResult, error) {
	plan, err := ce.Prepare(profile, overlays)
	if err != nil {
		return nil, err
	}
	return ce.Run(ctx, plan, opts)
}

func eventMarkers(plan *Plan) []domain.EventMarker {
	tl := plan.Timeline
	markers := make([]domain.EventMarker, 0, len(plan.Scheduled))
	for _, se := range plan.Scheduled {
		if se.Month > tl.HorizonMonths {
			continue
		}
		markers = append(markers, domain.EventMarker{
			Name:       se.Event.Name,
			MonthIndex: se.Month,
			Date:       dateutil.FormatYearMonth(tl.DateAt(se.Month)),
			Age:        tl.AgeAt(se.Month),
			Source:     se.Event.Source.File,
		})
	}
	return markers
}
