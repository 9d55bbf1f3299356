package observability

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
)

// FlushTelemetry syncs buffered log output before exit. Prometheus is pull-based, so
// there is nothing to push. Errors from syncing a terminal stderr are ignored.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if logger != nil {
		if err := logger.Sync(); err != nil && !isIgnorableSyncError(err) {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}

// isIgnorableSyncError reports fsync failures on stdout/stderr when they are not files.
func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EBADF)
}
