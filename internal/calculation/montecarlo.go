package calculation

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/pkg/dateutil"
	"golang.org/x/sync/errgroup"
)

// DefaultPercentiles are reported when a run does not ask for others.
var DefaultPercentiles = []float64{10, 50, 90}

// MonteCarloOptions configures a batch of trials.
type MonteCarloOptions struct {
	Trials      int
	Mode        domain.MonteCarloMode
	SeedBase    uint64
	Jobs        int
	Granularity domain.Granularity
	Percentiles []float64
	// Historical switches sampled returns to a bootstrap over these annual
	// returns. Empty means normally distributed returns.
	Historical []float64
}

// MonteCarloOrchestrator runs independent trials on a bounded worker pool
// and reduces them to percentile bands.
type MonteCarloOrchestrator struct {
	Logger Logger
}

// NewMonteCarloOrchestrator creates an orchestrator with a no-op logger.
func NewMonteCarloOrchestrator() *MonteCarloOrchestrator {
	return &MonteCarloOrchestrator{Logger: NopLogger{}}
}

type trialOutcome struct {
	balances      []float64
	depletionStep int
	depletionAge  float64
	sample        *domain.TrialResult
}

// RunTrials simulates opts.Trials paths of plan. Trial i is seeded with
// DeriveSeed(opts.SeedBase, i) and writes only its own slot, so the
// aggregate is identical for any number of jobs. Cancellation is checked
// between trials.
func (o *MonteCarloOrchestrator) RunTrials(ctx context.Context, plan *Plan, opts MonteCarloOptions) (*domain.AggregateResult, error) {
	if opts.Mode == domain.ModeOff {
		return nil, nil
	}
	if opts.Trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", opts.Trials)
	}
	percentiles := opts.Percentiles
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	for _, p := range percentiles {
		if p < 0 || p > 100 || math.IsNaN(p) {
			return nil, fmt.Errorf("percentile %v outside [0, 100]", p)
		}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	logger := withPlan(o.Logger, plan.Config.Name)

	sim := NewPathSimulator(opts.Granularity)
	steps := sim.Steps(plan.Timeline.HorizonMonths)
	outcomes := make([]trialOutcome, opts.Trials)

	logger.Debugf("monte carlo: %d trials, mode %s, %d jobs, seed base %d", opts.Trials, opts.Mode, jobs, opts.SeedBase)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := 0; i < opts.Trials; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tr, err := runTrial(plan, sim, opts, i)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			out := trialOutcome{
				balances:      make([]float64, len(tr.Steps)),
				depletionStep: tr.DepletionStep,
			}
			for s, st := range tr.Steps {
				out.balances[s] = st.Balance
			}
			if tr.Depleted() {
				out.depletionAge = tr.Steps[tr.DepletionStep].Age
			}
			if i == 0 {
				out.sample = tr
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agg := &domain.AggregateResult{
		Mode:        opts.Mode,
		Granularity: opts.Granularity,
		Trials:      opts.Trials,
		SeedBase:    opts.SeedBase,
		Axis:        make([]domain.StepAxis, steps),
		Bands:       make([]domain.PercentileBand, len(percentiles)),
		Sample:      outcomes[0].sample,
	}
	for s := 0; s < steps; s++ {
		m := s * opts.Granularity.StepMonths()
		agg.Axis[s] = domain.StepAxis{
			MonthIndex: m,
			Date:       dateutil.FormatYearMonth(plan.Timeline.DateAt(m)),
			Age:        plan.Timeline.AgeAt(m),
		}
	}
	for k, p := range percentiles {
		agg.Bands[k] = domain.PercentileBand{Percentile: p, Values: make([]float64, steps)}
	}

	column := make([]float64, opts.Trials)
	for s := 0; s < steps; s++ {
		for t := range outcomes {
			column[t] = outcomes[t].balances[s]
		}
		sort.Float64s(column)
		for k, p := range percentiles {
			agg.Bands[k].Values[s] = percentileSorted(column, p)
		}
	}
	agg.TerminalPercentiles = make([]domain.PercentileValue, len(percentiles))
	for k, p := range percentiles {
		agg.TerminalPercentiles[k] = domain.PercentileValue{Percentile: p, Value: agg.Bands[k].Values[steps-1]}
	}

	ageSum := 0.0
	for _, out := range outcomes {
		if out.depletionStep >= 0 {
			agg.DepletedTrials++
			ageSum += out.depletionAge
		}
	}
	agg.DepletionRate = float64(agg.DepletedTrials) / float64(opts.Trials)
	agg.SuccessRate = 1 - agg.DepletionRate
	if agg.DepletedTrials > 0 {
		mean := ageSum / float64(agg.DepletedTrials)
		agg.MeanDepletionAge = &mean
	}

	logger.Infof("monte carlo %s: %d/%d trials depleted", opts.Mode, agg.DepletedTrials, opts.Trials)
	return agg, nil
}

// runTrial builds trial i's sources from its derived seed and simulates it.
func runTrial(plan *Plan, sim *PathSimulator, opts MonteCarloOptions, i int) (*domain.TrialResult, error) {
	seed := DeriveSeed(opts.SeedBase, i)

	tl := plan.Timeline
	if opts.Mode.SamplesEvents() && plan.HasJitter() {
		var err error
		tl, err = plan.perturbed(newTrialRand(seed))
		if err != nil {
			return nil, err
		}
	}

	var src ReturnSource = FixedReturn{}
	if opts.Mode.SamplesReturns() {
		if len(opts.Historical) > 0 {
			src = NewHistoricalReturn(opts.Historical, splitmix64(seed))
		} else {
			src = NewNormalReturn(splitmix64(seed))
		}
	}
	if opts.Mode.AppliesShocks() && len(tl.Shocks) > 0 {
		src = ShockOverlay{Inner: src, Shocks: tl.Shocks}
	}

	tr := sim.Simulate(tl, src, fmt.Sprintf("trial-%d", i))
	tr.Seed = seed
	return tr, nil
}

// percentileSorted interpolates linearly between the closest ranks of an
// ascending slice.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n == 1:
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
