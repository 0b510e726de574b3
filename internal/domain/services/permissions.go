package services

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
)

// withPermissions widens path, runs fn and narrows path again. The narrowing
// step runs whenever widening was attempted, also after a failure or
// cancellation, and its error is combined with fn's.
func withPermissions(ctx context.Context, host gateways.Host, path string, widen, narrow gateways.ModeChange, recursive bool, fn func() error) (err error) {
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if narrowErr := host.Chmod(releaseCtx, path, narrow, recursive); narrowErr != nil {
			narrowErr = fmt.Errorf("failed to restore %s on %s: %w", narrow, path, narrowErr)
			if err == nil {
				err = narrowErr
			} else {
				err = multierror.Append(err, narrowErr)
			}
		}
	}()

	if err := host.Chmod(ctx, path, widen, recursive); err != nil {
		return fmt.Errorf("failed to apply %s on %s: %w", widen, path, err)
	}
	return fn()
}

// withWritable creates the file if needed and runs fn while it is
// world-writable; the file always ends read-only
func withWritable(ctx context.Context, host gateways.Host, path string, fn func() error) error {
	if err := host.Touch(ctx, path); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return withPermissions(ctx, host, path, gateways.AllWritable, gateways.AllReadOnly, false, fn)
}
