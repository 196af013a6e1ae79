package aks

import (
	"context"
	"time"

	"github.com/securebackend/sbops/internal/logging"
)

// withMethodLogger emits AKS:<method>:START and returns a context carrying
// driver=AKS.<method> plus a cleanup that emits END:OK or END:FAILED.
//
//	ctx, cleanup := d.withMethodLogger(ctx, "ClusterProvision")
//	defer func() { cleanup(err) }()
func (d *driver) withMethodLogger(ctx context.Context, method string) (context.Context, func(err error)) {
	startAt := time.Now()

	logger := logging.FromContext(ctx).With("driver", "AKS."+method)
	ctx = logging.WithLogger(ctx, logger)
	logger.Info(ctx, "AKS:"+method+":START")

	cleanup := func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, "AKS:"+method+":END:OK", "err", "", "elapsed", elapsed)
			return
		}
		errStr := azureShorterErrorString(err)
		if len(errStr) > 32 {
			errStr = errStr[:32] + "..."
		}
		logger.Warn(ctx, "AKS:"+method+":END:FAILED", "err", errStr, "elapsed", elapsed)
	}

	return ctx, cleanup
}
