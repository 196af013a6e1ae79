package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/usecase/pipeline"
)

func newCmdDeploy() *cobra.Command {
	var (
		skip   []string
		tag    string
		force  bool
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Run the full deployment pipeline",
		Long: "Run every deployment step in order and record the run:\n  " +
			strings.Join(pipeline.Steps, " -> "),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := pipeline.ValidateSkip(skip); err != nil {
				return err
			}
			u, closeEngine, err := buildPipelineUseCase(cmd)
			if err != nil {
				return err
			}
			defer closeEngine()
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
			defer cancel()

			repos, err := buildRepos(cmd)
			if err != nil {
				return err
			}
			b, err := selectBackend(ctx, cmd, repos.Backend)
			if err != nil {
				return err
			}
			f, err := optionalFrontend(ctx, cmd, repos.Frontend)
			if err != nil {
				return err
			}
			in := &pipeline.RunInput{
				BackendID:   b.ID,
				Environment: flagString(cmd, "env"),
				Skip:        skip,
				Tag:         tag,
				Force:       force,
				Strict:      strict,
			}
			if f != nil {
				in.FrontendID = f.ID
			}

			ctx, cleanup := withCmdRunLogger(ctx, "deploy", b.Name)
			defer func() { cleanup(err) }()

			out, err := u.Run(ctx, in)
			if out != nil {
				printRun(cmd, out.Run)
				if out.Endpoint != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "endpoint: %s (%s)\n", out.Endpoint.URL, out.Endpoint.Address)
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Steps to skip ("+strings.Join(pipeline.Steps, ",")+")")
	cmd.Flags().StringVar(&tag, "tag", "", "Image tag for backend and frontend (default: configured tags)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-apply the deployment stack and upgrade installed add-ons")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail the run when the final health check is unhealthy")
	return cmd
}
