package main

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sdickey2024/fin-plan-shared/internal/output"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [NAME]",
		Short: "List archived runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.settings.Archive == "" {
				return fmt.Errorf("no archive configured; pass --archive or set FINPLAN_ARCHIVE")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			archive, err := store.Open(a.settings.Archive)
			if err != nil {
				return err
			}
			defer archive.Close()

			runs, err := archive.ListRuns(cmd.Context(), name, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No archived runs.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-16s  %-24s  %-6s  %7s  %9s  %s\n",
				"ID", "CREATED", "NAME", "MODE", "TRIALS", "SUCCESS", "EXPECTED FINAL")
			fmt.Fprintln(out, strings.Repeat("-", 124))
			for _, r := range runs {
				success := "-"
				if r.SuccessRate != nil {
					success = output.FormatPercentage(*r.SuccessRate)
				}
				fmt.Fprintf(out, "%-36s  %-16s  %-24s  %-6s  %7d  %9s  %s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Name, r.Mode,
					r.Trials, success, r.ExpectedFinal.Format())
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("archive", "", "sqlite file holding archived runs")
	f.Int("limit", 20, "show at most this many runs (0 = all)")
	f.Bool("json", false, "print runs as JSON")
	return cmd
}
