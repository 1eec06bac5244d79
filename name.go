package ipipe

import (
	"fmt"
	"os"
	"strings"
)

// suffixLen is the length of the random part of auto-generated names.
const suffixLen = 15

// PipePath resolves a pipe name to its fully qualified platform path:
// "<tempdir>/<name>" on Unix, `\\.\pipe\<name>` on Windows. The result is
// deterministic for a given name and platform, and the function never
// touches the filesystem. Fails with ErrInvalidName when the name cannot
// live in the platform namespace.
func PipePath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", opError("path", name, err)
	}
	return platformPath(name), nil
}

func validateName(name string) error {
	switch name {
	case "", ".", "..":
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\") || strings.IndexByte(name, 0) >= 0 {
		return ErrInvalidName
	}
	return platformValidateName(name)
}

// TempName returns a fresh pipe name of the form pipe_<pid>_<suffix>, with a
// 15-character alphanumeric suffix drawn from the package suffix source.
func TempName() string {
	return tempName(suffixSource())
}

func tempName(src SuffixSource) string {
	return fmt.Sprintf("pipe_%d_%s", os.Getpid(), src(suffixLen))
}

// TempPath returns the platform path for a fresh TempName. Generated names
// are always valid, so there is no error to return.
func TempPath() string {
	return platformPath(TempName())
}
