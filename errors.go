package ipipe

import "errors"

var (
	// ErrInvalidName reports a pipe name that cannot be represented in the
	// platform namespace.
	ErrInvalidName = errors.New("ipipe: invalid pipe name")

	// ErrNotPipe reports a path that exists but is not a named pipe.
	ErrNotPipe = errors.New("ipipe: not a named pipe")

	// ErrClosed reports use of a handle after its Close. Closing an already
	// closed handle is not an error; everything else is.
	ErrClosed = errors.New("ipipe: handle closed")

	// ErrPeerClosed is the write-side stream-end signal: the reading peer
	// disconnected. It is the counterpart of io.EOF on the read side and is
	// distinct from an I/O failure.
	ErrPeerClosed = errors.New("ipipe: peer closed pipe")

	// ErrAlreadyExists reports a registry Init for a name that is live.
	ErrAlreadyExists = errors.New("ipipe: pipe already registered")

	// ErrNotFound reports a registry lookup for a name that is not live.
	ErrNotFound = errors.New("ipipe: pipe not registered")
)

// OpError records an error from a pipe operation along with the operation
// and the pipe path that caused it.
type OpError struct {
	// Op is the failing operation: "path", "create", "open", "connect",
	// "read", "write" or "remove".
	Op string

	// Path is the pipe path the operation was applied to.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *OpError) Error() string {
	return "ipipe: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, Err: err}
}
