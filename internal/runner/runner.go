// Package runner executes profile/overlay combinations on a worker pool and
// reports each one independently.
package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/output"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one combination.
type Outcome struct {
	Combination Combination
	Result      *domain.RunResult
	Files       []string
	RunID       string
	Elapsed     time.Duration
	Err         error
}

// OK reports whether the combination succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Runner runs combinations with shared settings.
type Runner struct {
	Engine  *calculation.CalculationEngine
	Parser  *config.InputParser
	Archive *store.Store
	Logger  *zap.Logger
	Options calculation.RunOptions
	Formats []string
	OutDir  string
	// Jobs is the total number of simulations run at once; see splitJobs.
	Jobs int
	// Print writes the step table of every successful combination to Out.
	Print bool
	Out   io.Writer
}

// New returns a runner with a fresh parser, a no-op logger and output
// discarded.
func New(engine *calculation.CalculationEngine, opts calculation.RunOptions) *Runner {
	return &Runner{
		Engine:  engine,
		Parser:  config.NewInputParser(),
		Logger:  zap.NewNop(),
		Options: opts,
		Jobs:    1,
		Out:     io.Discard,
	}
}

// splitJobs divides a budget of jobs goroutines between the combination
// pool and the Monte Carlo pool of each combination, so that at most jobs
// simulations run at once.
func splitJobs(jobs, combos int) (workers, perRun int) {
	if jobs < 1 {
		jobs = 1
	}
	workers = max(1, min(jobs, combos))
	return workers, max(1, jobs/workers)
}

// Run executes every combination on at most Jobs workers. A failing
// combination does not stop the others; outcomes keep the input order and
// the returned error counts the failures.
func (r *Runner) Run(ctx context.Context, combos []Combination) ([]Outcome, error) {
	if _, err := output.Lookup(r.Formats); err != nil {
		return nil, err
	}
	workers, perRun := splitJobs(r.Jobs, len(combos))
	if workers > 1 {
		fmt.Fprintf(r.Out, "Running %d combination(s) with %d parallel worker(s)...\n", len(combos), workers)
	}
	opts := r.Options
	opts.MonteCarlo.Jobs = perRun

	outcomes := make([]Outcome, len(combos))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, c := range combos {
		g.Go(func() error {
			outcomes[i] = r.runOne(ctx, c, opts)
			return nil
		})
	}
	_ = g.Wait()

	failures := r.report(outcomes)
	if failures > 0 {
		return outcomes, fmt.Errorf("%d of %d combination(s) failed", failures, len(combos))
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, c Combination, opts calculation.RunOptions) Outcome {
	start := time.Now()
	out := Outcome{Combination: c}
	log := r.Logger.With(zap.String("op", "run"), zap.String("combination", c.Label()))

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	profile, overlays, err := r.Load(c)
	if err != nil {
		out.Err = err
		log.Warn("load failed", zap.String("code", calculation.ErrorCode(err)), zap.Error(err))
		return out
	}
	out.Result, err = r.Engine.RunScenario(ctx, profile, overlays, opts)
	if err != nil {
		out.Err = err
		log.Warn("simulation failed", zap.String("code", calculation.ErrorCode(err)), zap.Error(err))
		return out
	}
	if len(r.Formats) > 0 {
		out.Files, err = output.GenerateReports(out.Result, r.Formats, r.OutDir)
		if err != nil {
			out.Err = fmt.Errorf("write outputs: %w", err)
			log.Error("output failed", zap.Error(err))
			return out
		}
	}
	if r.Archive != nil {
		run, err := r.Archive.SaveRun(ctx, out.Result)
		if err != nil {
			out.Err = fmt.Errorf("archive: %w", err)
			log.Error("archive failed", zap.Error(err))
			return out
		}
		out.RunID = run.ID
	}
	out.Elapsed = time.Since(start)
	log.Info("combination finished",
		zap.String("name", out.Result.Name),
		zap.Int("files", len(out.Files)),
		zap.String("run_id", out.RunID),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out
}

// Load validates and interprets the combination's files.
func (r *Runner) Load(c Combination) (*domain.Profile, []*domain.Overlay, error) {
	doc, err := r.load(c.Profile, domain.SchemaUserBase)
	if err != nil {
		return nil, nil, err
	}
	profile, err := doc.Profile()
	if err != nil {
		return nil, nil, err
	}
	overlays := make([]*domain.Overlay, 0, len(c.Overlays))
	for _, path := range c.Overlays {
		doc, err := r.load(path, domain.SchemaScenario)
		if err != nil {
			return nil, nil, err
		}
		ov, err := doc.Overlay()
		if err != nil {
			return nil, nil, err
		}
		overlays = append(overlays, ov)
	}
	return profile, overlays, nil
}

func (r *Runner) load(path, schema string) (*config.Document, error) {
	doc, err := r.Parser.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := r.Parser.Validate(doc, schema); err != nil {
		return nil, err
	}
	return doc, nil
}

// report prints one line per combination in input order and returns the
// failure count.
func (r *Runner) report(outcomes []Outcome) int {
	failures := 0
	var summaries []output.RunSummary
	for _, o := range outcomes {
		if !o.OK() {
			failures++
			fmt.Fprintf(r.Out, "[FAIL] %s: %v\n", o.Combination.Label(), o.Err)
			continue
		}
		fmt.Fprintf(r.Out, "[OK]   %s", o.Combination.Label())
		if len(o.Files) > 0 {
			fmt.Fprintf(r.Out, " -> %s", filepath.Dir(o.Files[0]))
		}
		fmt.Fprintln(r.Out)
		summaries = append(summaries, output.Summarize(o.Result))
	}
	if r.Print {
		for _, o := range outcomes {
			if !o.OK() {
				continue
			}
			files, err := output.ConsoleFormatter{}.Format(o.Result)
			if err != nil {
				continue
			}
			for _, f := range files {
				_, _ = r.Out.Write(f.Data)
			}
		}
	}

	if len(summaries) > 1 {
		if best, ok := output.Best(summaries); ok {
			fmt.Fprintf(r.Out, "Best: %s (final %s", best.Name, output.FormatCurrency(best.Expected().FinalBalance))
			if best.SuccessRate != nil {
				fmt.Fprintf(r.Out, ", success %s", output.FormatPercentage(*best.SuccessRate))
			}
			fmt.Fprintln(r.Out, ")")
		}
	}
	if failures > 0 {
		fmt.Fprintf(r.Out, "\nDone with %d failure(s).\n", failures)
	} else {
		fmt.Fprintln(r.Out, "\nDone. All combinations succeeded.")
	}
	return failures
}
