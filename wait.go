package ipipe

import "context"

// Wait blocks until a pipe exists at path or ctx is done. It never creates
// the pipe itself, so a reader can park on Wait before some other process
// has called Open. On Unix the parent directory is watched for the FIFO node
// to appear; on Windows the namespace is probed by dialing.
func Wait(ctx context.Context, path string) error {
	if path == "" {
		return opError("wait", path, ErrInvalidName)
	}
	return waitPlatform(ctx, path)
}
