//go:build !windows

package ipipe

import (
	"os"
	"path/filepath"
)

// platformPath roots pipe names in the temp directory, matching the
// conventional FIFO location.
func platformPath(name string) string {
	return filepath.Join(os.TempDir(), name)
}

func platformValidateName(string) error { return nil }
