//go:build windows

package ipipe

import (
	"context"
	"errors"
	"os"
	"time"

	winio "github.com/Microsoft/go-winio"
)

// waitPlatform probes the namespace by dialing. A successful dial consumes
// one server accept, so the probe conn is closed immediately; a busy pipe
// proves existence just as well.
func waitPlatform(ctx context.Context, path string) error {
	delay := time.Millisecond
	for {
		conn, err := winio.DialPipeContext(ctx, path)
		switch {
		case err == nil:
			conn.Close()
			return nil
		case errors.Is(err, errorPipeBusy):
			return nil
		case !errors.Is(err, os.ErrNotExist):
			return opError("wait", path, err)
		}
		select {
		case <-ctx.Done():
			return opError("wait", path, ctx.Err())
		case <-time.After(delay):
		}
		if delay < 100*time.Millisecond {
			delay *= 2
		}
	}
}
