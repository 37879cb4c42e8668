package main

import (
	"fmt"

	"github.com/sdickey2024/fin-plan-shared/internal/config"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/sdickey2024/fin-plan-shared/internal/runner"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check user and scenario files without simulating",
		Long: `Validate checks each file's structure for its schema_type and then
interprets it, reporting every problem found. Bare names resolve like run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			locator := runner.Locator{UserDir: a.settings.UserDir, ScenarioDir: a.settings.ScenarioDir}
			parser := config.NewInputParser()

			failures := 0
			for _, name := range args {
				schema, err := validateFile(parser, locator, name)
				if err != nil {
					failures++
					fmt.Fprintf(out, "[FAIL] %v\n", err)
					continue
				}
				fmt.Fprintf(out, "[OK]   %s (%s)\n", name, schema)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d file(s) invalid", failures, len(args))
			}
			return nil
		},
	}
}

func validateFile(parser *config.InputParser, locator runner.Locator, name string) (string, error) {
	path, err := locator.User(name)
	if err != nil {
		if path, err = locator.Scenario(name); err != nil {
			return "", err
		}
	}
	doc, err := parser.LoadFromFile(path)
	if err != nil {
		return "", err
	}
	if err := parser.Validate(doc, ""); err != nil {
		return "", err
	}
	if doc.SchemaType == domain.SchemaUserBase {
		_, err = doc.Profile()
	} else {
		_, err = doc.Overlay()
	}
	if err != nil {
		return "", err
	}
	return doc.SchemaType, nil
}
