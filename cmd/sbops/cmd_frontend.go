package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/usecase/frontend"
)

// newCmdFrontend returns the parent command for the frontend Web App.
func newCmdFrontend() *cobra.Command {
	c := &cobra.Command{
		Use:   "frontend",
		Short: "Deploy and inspect the frontend Web App",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(newCmdFrontendDeploy(), newCmdFrontendStatus())
	return c
}

func newCmdFrontendDeploy() *cobra.Command {
	var tag, backendURL string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Point the frontend Web App at its image and the backend URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildFrontendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
			defer cancel()
			f, err := selectFrontend(ctx, cmd, u.Repos.Frontend)
			if err != nil {
				return err
			}
			in := &frontend.DeployInput{FrontendID: f.ID, BackendURL: backendURL, Tag: tag}
			if backendURL == "" {
				b, err := selectBackend(ctx, cmd, u.Repos.Backend)
				if err != nil {
					return err
				}
				in.BackendID = b.ID
			}
			ctx, cleanup := withCmdRunLogger(ctx, "frontend.deploy", f.Name)
			defer func() { cleanup(err) }()

			out, err := u.Deploy(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Image tag (default: configured tag)")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "BACKEND_URL app setting (default: https://<backend host>)")
	return cmd
}

func newCmdFrontendStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the frontend Web App state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildFrontendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			f, err := selectFrontend(ctx, cmd, u.Repos.Frontend)
			if err != nil {
				return err
			}
			st, err := u.Status(ctx, &frontend.StatusInput{FrontendID: f.ID})
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}
