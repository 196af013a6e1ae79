package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/securebackend/sbops/adapters/drivers/provider/aks"
	"github.com/securebackend/sbops/internal/logging"
)

const defaultDBURL = "file:sbops.yml"

// envOr returns the environment variable key or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	var logFile *logging.LogFile

	cmd := &cobra.Command{
		Use:     "sbops",
		Short:   "Deploy the secure-backend stack to Azure",
		Long:    "sbops provisions AKS, builds and pushes images, deploys the secure backend and its frontend, and manages DNS records.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("db-url", envOr("SBOPS_DB_URL", defaultDBURL), "Database URL (env SBOPS_DB_URL) (file:/path/to/sbops.yml | sqlite:/path/to.db)")
	pf.String("history-url", os.Getenv("SBOPS_HISTORY_URL"), "Run history database for file: configs (env SBOPS_HISTORY_URL) (sqlite:/path/to.db)")
	pf.StringP("env", "e", os.Getenv("SBOPS_ENV"), "Environment overlay applied to file: configs (env SBOPS_ENV)")
	pf.String("log-format", envOr("SBOPS_LOG_FORMAT", "human"), "Log format (human|text|json) (env SBOPS_LOG_FORMAT)")
	pf.String("log-level", envOr("SBOPS_LOG_LEVEL", "info"), "Log level (debug|info|warn|error) (env SBOPS_LOG_LEVEL)")
	pf.String("log-output", envOr("SBOPS_LOG_OUTPUT", "-"), "Log destination (-|none|auto|path) (env SBOPS_LOG_OUTPUT)")
	pf.StringP("cluster", "C", "", "Cluster name (default: the only configured cluster)")
	pf.String("registry", "", "Registry name (default: the only configured registry)")
	pf.StringP("backend", "B", "", "Backend name (default: the only configured backend)")
	pf.StringP("frontend", "F", "", "Frontend name (default: the only configured frontend)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, _ := c.Flags().GetString("log-format")
		levelName, _ := c.Flags().GetString("log-level")
		output, _ := c.Flags().GetString("log-output")
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logFile, err = logging.NewLogFile(&logging.LogConfig{Output: output, Dir: ".sbops/logs", RetentionDays: 7})
		if err != nil {
			return err
		}
		l, err := logging.NewWithWriter(format, level, logFile.Writer())
		if err != nil {
			return err
		}
		quietKlog()
		c.SetContext(logging.WithLogger(c.Context(), l))
		return nil
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	}

	cmd.AddCommand(
		newCmdVersion(),
		newCmdConfig(),
		newCmdCluster(),
		newCmdImage(),
		newCmdBackend(),
		newCmdFrontend(),
		newCmdDNS(),
		newCmdHealth(),
		newCmdDeploy(),
		newCmdRuns(),
		newCmdAdmin(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetContext(ctx)
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil && executed.Context() != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		stop()
		os.Exit(1)
	}
}
