package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/usecase/pipeline"
)

func newCmdRuns() *cobra.Command {
	c := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded deployment runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(newCmdRunsList(), newCmdRunsShow())
	return c
}

// printRun writes a run summary followed by one line per step.
func printRun(cmd *cobra.Command, r *model.Run) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "run %s\t%s\t%s\n", r.ID, r.Status, r.Duration().Round(time.Millisecond))
	for _, s := range r.Steps {
		detail := s.Message
		if s.Error != "" {
			detail = s.Error
		}
		elapsed := time.Duration(0)
		if !s.StartedAt.IsZero() {
			elapsed = s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", s.Name, s.Status, elapsed, detail)
	}
	_ = w.Flush()
}

func newCmdRunsList() *cobra.Command {
	var limit int
	var all, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildRunsUseCase(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			in := &pipeline.ListRunsInput{Limit: limit}
			if !all {
				b, err := selectBackend(ctx, cmd, u.Repos.Backend)
				if err != nil {
					return err
				}
				in.BackendID = b.ID
			}
			runs, err := u.ListRuns(ctx, in)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, runs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tENV\tSTATUS\tSTARTED\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Environment, r.Status,
					r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Second))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&all, "all", false, "Include runs of every backend")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newCmdRunsShow() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the steps of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildRunsUseCase(cmd)
			if err != nil {
				return err
			}
			r, err := u.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, r)
			}
			printRun(cmd, r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
