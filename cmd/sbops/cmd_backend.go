package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/usecase/backend"
)

// newCmdBackend returns the parent command for secure-backend deployments.
func newCmdBackend() *cobra.Command {
	c := &cobra.Command{
		Use:   "backend",
		Short: "Deploy and inspect the secure backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(
		newCmdBackendDeploy(),
		newCmdBackendWait(),
		newCmdBackendEndpoint(),
		newCmdBackendStatus(),
		newCmdBackendDestroy(),
	)
	return c
}

func newCmdBackendDeploy() *cobra.Command {
	var tag string
	var forceConflicts, wait bool
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Apply the backend manifests or update the backend Web App",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildBackendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
			defer cancel()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "backend.deploy", b.Name)
			defer func() { cleanup(err) }()

			out, err := u.Deploy(ctx, &backend.DeployInput{BackendID: b.ID, Tag: tag, ForceConflicts: forceConflicts})
			if err != nil {
				return err
			}
			logger := logging.FromContext(ctx)
			for _, a := range out.Applied {
				logger.Info(ctx, "applied", "object", a)
			}
			if wait {
				if err := u.Wait(ctx, &backend.WaitInput{BackendID: b.ID}); err != nil {
					return err
				}
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Image tag (default: configured tag)")
	cmd.Flags().BoolVar(&forceConflicts, "force-conflicts", false, "Take ownership of fields managed by other appliers")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the deployment to become available")
	return cmd
}

func newCmdBackendWait() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the backend deployment is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildBackendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "backend.wait", b.Name)
			defer func() { cleanup(err) }()
			return u.Wait(ctx, &backend.WaitInput{BackendID: b.ID, Timeout: timeout})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Availability timeout (default: backend availabilityTimeout)")
	return cmd
}

func newCmdBackendEndpoint() *cobra.Command {
	var interval, timeout time.Duration
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Wait for and print the public address of the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildBackendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			out, err := u.Endpoint(ctx, &backend.EndpointInput{BackendID: b.ID, Interval: interval, Timeout: timeout})
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default: cluster ingress ipWaitPeriod)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Poll timeout (default: cluster ingress ipWaitTimeout)")
	return cmd
}

func newCmdBackendStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show deployment, pod and ingress status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildBackendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			out, err := u.Status(ctx, &backend.StatusInput{BackendID: b.ID})
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func newCmdBackendDestroy() *cobra.Command {
	var deleteNamespace bool
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the backend objects from the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildBackendUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
			defer cancel()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "backend.destroy", b.Name)
			defer func() { cleanup(err) }()

			out, err := u.Destroy(ctx, &backend.DestroyInput{BackendID: b.ID, DeleteNamespace: deleteNamespace})
			if err != nil {
				return err
			}
			if out.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "backend %s runs on a Web App; nothing to delete\n", b.Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d objects (namespace deleted: %t)\n", out.Deleted, out.NamespaceDeleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteNamespace, "delete-namespace", false, "Also delete the backend namespace")
	return cmd
}
