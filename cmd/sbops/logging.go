package main

import (
	"context"
	"time"

	"github.com/securebackend/sbops/internal/logging"
)

// withCmdRunLogger emits the span lines of a CLI command.
//
//	ctx, cleanup := withCmdRunLogger(ctx, "cluster.provision", clusterName)
//	defer func() { cleanup(err) }()
//
// Lines: CMD:<operation>/S, then CMD:<operation>/EOK or CMD:<operation>/EFAIL
// with err and elapsed attributes. All lines are INFO.
func withCmdRunLogger(ctx context.Context, operation, resourceID string) (context.Context, func(err error)) {
	startAt := time.Now()

	logger := logging.FromContext(ctx).With("resourceId", resourceID)
	ctx = logging.WithLogger(ctx, logger)
	logger.Info(ctx, "CMD:"+operation+"/S")

	cleanup := func(err error) {
		elapsed := time.Since(startAt).Seconds()
		if err == nil {
			logger.Info(ctx, "CMD:"+operation+"/EOK", "err", "", "elapsed", elapsed)
			return
		}
		errStr := err.Error()
		if len(errStr) > 32 {
			errStr = errStr[:32] + "..."
		}
		logger.Info(ctx, "CMD:"+operation+"/EFAIL", "err", errStr, "elapsed", elapsed)
	}
	return ctx, cleanup
}
