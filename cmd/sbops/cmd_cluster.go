package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/internal/kubeconfig"
	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/usecase/cluster"
)

// newCmdCluster returns the parent command for cluster-related operations.
func newCmdCluster() *cobra.Command {
	c := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster related commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.AddCommand(
		newCmdClusterProvision(),
		newCmdClusterDeprovision(),
		newCmdClusterStatus(),
		newCmdClusterInstall(),
		newCmdClusterUninstall(),
		newCmdClusterAttach(),
		newCmdClusterKubeconfig(),
	)
	return c
}

func newCmdClusterProvision() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the resource group, container registry and AKS cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "cluster.provision", c.Name)
			defer func() { cleanup(err) }()

			out, err := u.Provision(ctx, &cluster.ProvisionInput{ClusterID: c.ID, Force: force})
			if err != nil {
				return err
			}
			if out.Skipped {
				logging.FromContext(ctx).Info(ctx, "provision skipped", "reason", out.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Re-apply the deployment stack even when it already succeeded")
	return cmd
}

func newCmdClusterDeprovision() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "deprovision",
		Short: "Delete the cluster deployment stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "cluster.deprovision", c.Name)
			defer func() { cleanup(err) }()
			return u.Deprovision(ctx, &cluster.DeprovisionInput{ClusterID: c.ID, Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Also delete the resource group")
	return cmd
}

func newCmdClusterStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cluster and add-on status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			out, err := u.Status(ctx, &cluster.StatusInput{ClusterID: c.ID})
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
}

func newCmdClusterInstall() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install ingress-nginx and cert-manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "cluster.install", c.Name)
			defer func() { cleanup(err) }()
			return u.Install(ctx, &cluster.InstallInput{ClusterID: c.ID, Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Upgrade releases that are already installed")
	return cmd
}

func newCmdClusterUninstall() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the cluster add-ons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "cluster.uninstall", c.Name)
			defer func() { cleanup(err) }()
			return u.Uninstall(ctx, &cluster.UninstallInput{ClusterID: c.ID, Force: force})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Uninstall even when the cluster is marked existing")
	return cmd
}

func newCmdClusterAttach() *cobra.Command {
	return &cobra.Command{
		Use:   "attach",
		Short: "Grant the cluster kubelet identity AcrPull on the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			reg, err := selectRegistry(ctx, cmd, u.Repos.Registry)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "cluster.attach", c.Name)
			defer func() { cleanup(err) }()
			return u.AttachRegistry(ctx, &cluster.AttachRegistryInput{ClusterID: c.ID, RegistryID: reg.ID})
		},
	}
}

func newCmdClusterKubeconfig() *cobra.Command {
	var (
		contextName string
		namespace   string
		mergePath   string
		overwrite   bool
		setCurrent  bool
		format      string
	)
	cmd := &cobra.Command{
		Use:   "kubeconfig",
		Short: "Print or merge the cluster user kubeconfig",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildClusterUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			c, err := selectCluster(ctx, cmd, u.Repos.Cluster)
			if err != nil {
				return err
			}
			out, err := u.Kubeconfig(ctx, &cluster.KubeconfigInput{
				ClusterID:  c.ID,
				Context:    contextName,
				Namespace:  namespace,
				MergePath:  mergePath,
				Overwrite:  overwrite,
				SetCurrent: setCurrent,
			})
			if err != nil {
				return err
			}
			if out.Written == "" {
				return kubeconfig.Print(cmd.OutOrStdout(), out.Config, format)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged context %s into %s\n", out.Result.Context, out.Written)
			return nil
		},
	}
	cmd.Flags().StringVar(&contextName, "context", "", "Context name (default: cluster name)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Default namespace of the context")
	cmd.Flags().StringVar(&mergePath, "merge", "", "Merge into this kubeconfig file instead of printing")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace entries with the same name when merging")
	cmd.Flags().BoolVar(&setCurrent, "set-current", false, "Make the context current when merging")
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "Output format when printing (yaml|json)")
	return cmd
}
