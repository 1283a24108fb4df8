package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/survey-hub/survey-hub/internal/config"
	"github.com/survey-hub/survey-hub/internal/domain/flow"
	"github.com/survey-hub/survey-hub/internal/infrastructure/flowfile"
	"github.com/survey-hub/survey-hub/internal/infrastructure/postgres"
	"github.com/survey-hub/survey-hub/internal/migrations"
)

func newFlowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Inspect and publish survey flows",
	}
	cmd.AddCommand(newFlowCheckCommand())
	cmd.AddCommand(newFlowPushCommand(opts))
	return cmd
}

func newFlowCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a flow file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flowfile.Load(args[0])
			if err != nil {
				return err
			}
			return reportIssues(cmd.OutOrStdout(), doc)
		},
	}
}

func newFlowPushCommand(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Validate a flow file and store it in Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := flowfile.Load(args[0])
			if err != nil {
				return err
			}
			if err := reportIssues(cmd.OutOrStdout(), doc); err != nil {
				return err
			}
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if name != "" {
				doc.Name = name
			}
			if doc.Name == "" {
				doc.Name = cfg.FlowName
			}

			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			defer pool.Close()
			if err := postgres.RunMigrations(ctx, pool, migrations.FS); err != nil {
				return fmt.Errorf("migration error: %w", err)
			}
			if err := postgres.NewFlowRepository(pool).SaveDocument(ctx, doc); err != nil {
				return fmt.Errorf("save flow %s: %w", doc.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored flow %s (%d steps)\n", doc.Name, len(doc.Steps))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "flow name, overriding the one in the file")
	return cmd
}

// reportIssues prints every issue and fails when any of them is fatal.
func reportIssues(w io.Writer, doc *flow.Document) error {
	issues := doc.Check()
	for _, issue := range issues {
		fmt.Fprintln(w, issue.String())
	}
	if err := flow.FatalIssues(issues); err != nil {
		return fmt.Errorf("flow %s is invalid", doc.Name)
	}
	fmt.Fprintf(w, "flow %s ok: %d steps, root %s\n", doc.Name, len(doc.Steps), doc.Root)
	return nil
}
