//go:build windows

package ipipe

// pipePrefix is the reserved named-pipe namespace root.
const pipePrefix = `\\.\pipe\`

func platformPath(name string) string {
	return pipePrefix + name
}

// platformValidateName enforces the 256-byte pipe name limit documented for
// CreateNamedPipe.
func platformValidateName(name string) error {
	if len(name) > 256 {
		return ErrInvalidName
	}
	return nil
}
