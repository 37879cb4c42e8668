package main

import (
	"github.com/sdickey2024/fin-plan-shared/internal/server"
	"github.com/sdickey2024/fin-plan-shared/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation engine over HTTP",
		Long: `Serve accepts POST /api/simulate with a user document and scenario
documents inline, and answers GET /api/version. With --archive it records
each run and lists them at GET /api/runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			maxTrials, _ := cmd.Flags().GetInt("max-trials")
			engine, err := a.engine()
			if err != nil {
				return err
			}

			opts := []server.Option{
				server.WithLogger(a.logger),
				server.WithVersion(version),
				server.WithMaxTrials(maxTrials),
			}
			if a.settings.Archive != "" {
				archive, err := store.Open(a.settings.Archive)
				if err != nil {
					return err
				}
				defer archive.Close()
				opts = append(opts, server.WithArchive(archive))
			}

			srv := server.New(engine, *a.settings, opts...)
			return srv.ListenAndServe(cmd.Context(), a.settings.Server.Addr)
		},
	}

	f := cmd.Flags()
	f.String("addr", "", "listen address")
	f.Int("max-trials", 10000, "largest trial count a request may ask for (0 = no limit)")
	f.String("archive", "", "sqlite file archiving every run")
	f.String("historical", "", "Year,Return CSV enabling bootstrap returns")
	return cmd
}
