package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/usecase/dns"
)

func newCmdDNS() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "dns",
		Short:              "Manage the DNS record of the backend host",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE:               func(cmd *cobra.Command, args []string) error { return cmd.Help() },
	}
	cmd.PersistentFlags().Bool("strict", false, "Treat DNS update failures as errors")
	cmd.PersistentFlags().Bool("dry-run", false, "Show what would be changed without applying")
	cmd.AddCommand(newCmdDNSDeploy(), newCmdDNSDestroy())
	return cmd
}

// logDNSResults logs one line per record result and returns the number of failures.
func logDNSResults(ctx context.Context, results []dns.DNSRecordResult) int {
	logger := logging.FromContext(ctx)
	failed := 0
	for _, r := range results {
		switch r.Action {
		case "planned":
			logger.Info(ctx, "would apply DNS record", "fqdn", r.FQDN, "type", r.Type, "message", r.Message)
		case "updated", "deleted":
			logger.Info(ctx, "applied DNS record", "fqdn", r.FQDN, "type", r.Type, "action", r.Action, "message", r.Message)
		case "skipped":
			logger.Warn(ctx, "skipped DNS record", "fqdn", r.FQDN, "message", r.Message)
		case "failed":
			failed++
			logger.Error(ctx, "failed to apply DNS record", "fqdn", r.FQDN, "type", r.Type, "error", r.Message)
		}
	}
	return failed
}

func newCmdDNSDeploy() *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:                "deploy",
		Short:              "Point the backend host at the ingress controller address",
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildDNSUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "dns.deploy", b.Host)
			defer func() { cleanup(err) }()

			out, err := u.Deploy(ctx, &dns.DeployInput{
				BackendID: b.ID,
				Address:   address,
				Strict:    flagString(cmd, "strict") == "true",
				DryRun:    flagString(cmd, "dry-run") == "true",
			})
			if err != nil {
				return fmt.Errorf("failed to deploy DNS: %w", err)
			}
			logDNSResults(ctx, out.Applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Record target (default: current ingress controller address)")
	return cmd
}

func newCmdDNSDestroy() *cobra.Command {
	var recordType string
	cmd := &cobra.Command{
		Use:                "destroy",
		Short:              "Delete the DNS record of the backend host",
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildDNSUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			b, err := selectBackend(ctx, cmd, u.Repos.Backend)
			if err != nil {
				return err
			}
			ctx, cleanup := withCmdRunLogger(ctx, "dns.destroy", b.Host)
			defer func() { cleanup(err) }()

			out, err := u.Destroy(ctx, &dns.DestroyInput{
				BackendID: b.ID,
				Type:      model.DNSRecordType(strings.ToUpper(recordType)),
				Strict:    flagString(cmd, "strict") == "true",
				DryRun:    flagString(cmd, "dry-run") == "true",
			})
			if err != nil {
				return fmt.Errorf("failed to destroy DNS: %w", err)
			}
			logDNSResults(ctx, out.Deleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordType, "type", "A", "Record type (A|AAAA|CNAME)")
	return cmd
}
