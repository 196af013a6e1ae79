package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/securebackend/sbops/usecase/health"
)

func newCmdHealth() *cobra.Command {
	var (
		url      string
		attempts int
		interval time.Duration
		timeout  time.Duration
		insecure bool
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the backend health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			u, err := buildHealthUseCase(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
			defer cancel()
			in := &health.CheckInput{URL: url, Attempts: attempts, Interval: interval, Timeout: timeout, Strict: strict}
			if url == "" {
				b, err := selectBackend(ctx, cmd, u.Repos.Backend)
				if err != nil {
					return err
				}
				in.BackendID = b.ID
			}
			if cmd.Flags().Changed("insecure") {
				in.Insecure = &insecure
			}
			out, err := u.Check(ctx, in)
			if out != nil {
				if perr := printJSON(cmd, out); perr != nil {
					return perr
				}
				if !out.Healthy && err == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s is unhealthy (use --strict to fail)\n", out.URL)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "URL to probe (default: https://<backend host><health path>)")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "Number of attempts (default 5)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Initial wait between attempts (default 5s)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (default 10s)")
	cmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "Skip TLS verification (default: true for self-signed backends)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the endpoint is unhealthy")
	return cmd
}
