package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/securebackend/sbops/api"
	"github.com/securebackend/sbops/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type options struct {
	addr         string
	serviceName  string
	allowOrigins []string
	rateLimit    float64
	rateBurst    int
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:           "secure-backend",
		Short:         "Serve the token protected processing API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			format, _ := c.Flags().GetString("log-format")
			levelName, _ := c.Flags().GetString("log-level")
			level, err := logging.ParseLevel(levelName)
			if err != nil {
				return err
			}
			logger, err := logging.NewWithWriter(format, level, os.Stderr)
			if err != nil {
				return err
			}
			ctx = logging.WithLogger(ctx, logger)
			c.SetContext(ctx)

			src := api.TokenSourceFromEnv()
			token, err := src.Resolve(ctx, func(vaultURL string) (api.SecretGetter, error) {
				return api.NewKeyVaultClient(vaultURL, nil)
			})
			if err != nil {
				return fmt.Errorf("resolve api token: %w", err)
			}
			ln, err := net.Listen("tcp", o.addr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, o, token)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":"+envOr("PORT", "8000"), "Listen address (env PORT sets the port)")
	f.StringVar(&o.serviceName, "service-name", envOr("SERVICE_NAME", api.DefaultServiceName), "Service name reported by /health (env SERVICE_NAME)")
	f.StringSliceVar(&o.allowOrigins, "allow-origin", splitList(os.Getenv("ALLOW_ORIGINS")), "Allowed CORS origin, may use https://*.suffix (env ALLOW_ORIGINS, comma separated)")
	f.Float64Var(&o.rateLimit, "rate-limit", 100, "Requests per second per client IP, 0 disables")
	f.IntVar(&o.rateBurst, "rate-burst", 200, "Burst size per client IP")
	f.String("log-format", envOr("LOG_FORMAT", "json"), "Log format (human|text|json) (env LOG_FORMAT)")
	f.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (debug|info|warn|error) (env LOG_LEVEL)")
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// serve runs the API on ln until ctx is cancelled, then drains connections.
func serve(ctx context.Context, ln net.Listener, o options, token string) error {
	log := logging.FromContext(ctx)
	gin.SetMode(gin.ReleaseMode)

	done := make(chan struct{})
	defer close(done)

	router, err := api.NewRouter(api.Config{
		Token:        token,
		ServiceName:  o.serviceName,
		AllowOrigins: o.allowOrigins,
		RateLimit:    o.rateLimit,
		RateBurst:    o.rateBurst,
		Logger:       log,
		Done:         done,
	})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "listening", "addr", ln.Addr().String(), "service", o.serviceName)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		ctx := root.Context()
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		stop()
		os.Exit(1)
	}
}
