package main

import (
	"github.com/sdickey2024/fin-plan-shared/internal/runner"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a user file under one or more scenario sets",
		Long: `Run simulates the user file once per scenario set and writes the
requested output formats for each combination.

Each --file value is a scenario set. Repeat the flag or separate sets with
commas to run them independently; join files with '+' to layer them in
order within one combination. Without --file every scenario in the scenario
directory runs on its own. Bare file names resolve against the user and
scenario directories and then their parent.

Monte Carlo trials draw their randomness from --seed. With the default of 0
every run draws a fresh seed base, so repeated runs differ; the seed used is
logged and stored with the result. Pass that value (or any non-zero seed)
to reproduce a run exactly.

--jobs is the total number of parallel simulations. It is shared between
the combinations and the trials inside each combination.`,
		Example: `  finplan run -u pat.json
  finplan run -u pat.json -f crash.json -f travel.json
  finplan run -u pat.json -f crash.json+travel.json,inflation.yaml --mode sim --trials 500
  finplan run -u pat.json --mode force --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			files, _ := cmd.Flags().GetStringArray("file")
			printTables, _ := cmd.Flags().GetBool("print")
			s := a.settings

			locator := runner.Locator{UserDir: s.UserDir, ScenarioDir: s.ScenarioDir}
			combos, err := locator.Plan(user, files)
			if err != nil {
				return err
			}
			opts, err := s.RunOptions()
			if err != nil {
				return err
			}
			engine, err := a.engine()
			if err != nil {
				return err
			}

			r := runner.New(engine, opts)
			r.Logger = a.logger
			r.Formats = s.Formats
			r.OutDir = s.OutDir
			r.Jobs = opts.MonteCarlo.Jobs
			r.Print = printTables
			r.Out = cmd.OutOrStdout()

			if s.Archive != "" {
				archive, err := store.Open(s.Archive)
				if err != nil {
					return err
				}
				defer archive.Close()
				r.Archive = archive
			}

			a.logger.Debug("starting run",
				zap.String("op", "run"),
				zap.Int("combinations", len(combos)),
				zap.String("mode", string(opts.MonteCarlo.Mode)),
				zap.String("granularity", string(opts.Granularity)),
			)
			_, err = r.Run(cmd.Context(), combos)
			return err
		},
	}

	f := cmd.Flags()
	f.StringP("user", "u", "", "user_base file")
	f.StringArrayP("file", "f", nil, "scenario set; repeat or separate with commas, layer with '+'")
	f.String("mode", "", "monte carlo mode (off, sim, events, force)")
	f.String("granularity", "", "step size (monthly, yearly)")
	f.Int("jobs", 0, "parallel simulations shared by combinations and trials (0 = one per CPU)")
	f.Int("trials", 0, "monte carlo trials per combination")
	f.Uint64("seed", 0, "monte carlo seed base; 0 draws a fresh seed each run (logged), set it to reproduce")
	f.StringSlice("percentiles", nil, "percentile bands, e.g. 10,50,90")
	f.StringSlice("formats", nil, "output formats, e.g. csv,mc-csv,json")
	f.String("out-dir", "", "output directory")
	f.String("user-dir", "", "directory for bare user file names")
	f.String("scenario-dir", "", "directory for bare scenario file names")
	f.String("historical", "", "Year,Return CSV enabling bootstrap returns")
	f.String("archive", "", "sqlite file archiving every run")
	f.Bool("record-buckets", false, "include per-bucket balances in series outputs")
	f.Bool("print", false, "print the step table of each combination")
	return cmd
}
