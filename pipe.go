package ipipe

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Mode selects which end of a pipe a handle opens.
type Mode int

const (
	// ModeDuplex opens both ends and never blocks at open time. This is the
	// default and what the static registry uses.
	ModeDuplex Mode = iota

	// ModeRead opens the reading end; Open blocks until a writer appears.
	ModeRead

	// ModeWrite opens the writing end; Open blocks until a reader appears.
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "duplex"
	}
}

// platformPipe is the per-platform open/read/write/close state machine. Two
// implementations exist, selected by build tag: a FIFO one and a go-winio
// named-pipe one. Both map peer disconnect to io.EOF (reads) and
// ErrPeerClosed (writes) so the handle sees a single exhaustion contract.
type platformPipe interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

type options struct {
	mode   Mode
	logger *zap.Logger
	suffix SuffixSource
}

// Option configures Open, OpenName and CreateTemp.
type Option func(*options)

// WithMode selects the pipe end to open. The default is ModeDuplex.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// WithLogger attaches a logger for open/close diagnostics. The default is a
// no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSuffixSource overrides the name suffix source for a single CreateTemp
// call. Other constructors ignore it.
func WithSuffixSource(src SuffixSource) Option {
	return func(o *options) {
		if src != nil {
			o.suffix = src
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		mode:   ModeDuplex,
		logger: zap.NewNop(),
		suffix: suffixSource(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// shared is the ownership cell behind one or more Pipe handles: a refcount
// over one platform pipe. The OS resource is released when the count drops
// to zero.
type shared struct {
	mu   sync.Mutex
	refs int
	pp   platformPipe
}

func (s *shared) retain() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return false
	}
	s.refs++
	return true
}

func (s *shared) release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	return s.pp.Close()
}

// Pipe is a handle on a named pipe. It implements io.Reader, io.Writer and
// io.Closer with blocking semantics; see the package documentation for the
// cross-platform contract. Several handles may share one OS resource via
// Dup; each handle is closed independently.
type Pipe struct {
	path   string
	sh     *shared
	closed atomic.Bool
}

// Open opens the pipe at the fully qualified platform path, creating it if
// it does not exist (an existing pipe at the path is reused). Depending on
// the mode it may block indefinitely waiting for a peer; use OpenContext for
// a bounded wait.
func Open(path string, opts ...Option) (*Pipe, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext is Open with cancellation. When ctx is done before a peer
// shows up the pending open is abandoned and the context error is returned
// inside an *OpError.
func OpenContext(ctx context.Context, path string, opts ...Option) (*Pipe, error) {
	if path == "" {
		return nil, opError("open", path, ErrInvalidName)
	}
	o := applyOptions(opts)
	pp, err := openPlatform(ctx, path, &o)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("pipe opened", zap.String("path", path), zap.Stringer("mode", o.mode))
	return &Pipe{path: path, sh: &shared{refs: 1, pp: pp}}, nil
}

// OpenName resolves name against the platform namespace and opens it.
func OpenName(name string, opts ...Option) (*Pipe, error) {
	path, err := PipePath(name)
	if err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// CreateTemp opens a pipe with an auto-generated pipe_<pid>_<random> name
// under the platform default root.
func CreateTemp(opts ...Option) (*Pipe, error) {
	o := applyOptions(opts)
	return Open(platformPath(tempName(o.suffix)), opts...)
}

// Path returns the fully qualified platform path of the pipe.
func (p *Pipe) Path() string { return p.path }

// Read reads from the pipe, blocking until data arrives. It returns io.EOF
// once the peer has disconnected and no buffered data remains. On Unix a
// FIFO is revived by a new writer, so a Read after io.EOF may return data
// again.
func (p *Pipe) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.sh.pp.Read(b)
	return n, p.wrapIO("read", err)
}

// Write writes to the pipe in a single underlying OS write. It fails with
// ErrPeerClosed once the reading peer has disconnected.
func (p *Pipe) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.sh.pp.Write(b)
	return n, p.wrapIO("write", err)
}

// wrapIO leaves the stream-end signals and deadline misses alone and wraps
// everything else in an *OpError.
func (p *Pipe) wrapIO(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, ErrPeerClosed):
		return err
	case errors.Is(err, os.ErrDeadlineExceeded):
		return err
	case errors.Is(err, ErrClosed), errors.Is(err, os.ErrClosed):
		return ErrClosed
	default:
		return opError(op, p.path, err)
	}
}

// Dup returns a new handle sharing this handle's OS resource. Closing one of
// the two does not disturb the other; the resource is released when the last
// sharing handle closes.
func (p *Pipe) Dup() (*Pipe, error) {
	if p.closed.Load() || !p.sh.retain() {
		return nil, ErrClosed
	}
	return &Pipe{path: p.path, sh: p.sh}, nil
}

// Close closes this handle. The underlying OS resource is released only when
// no other Dup handle still references it. Closing an already closed handle
// is a no-op.
func (p *Pipe) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.sh.release()
}

// SetReadDeadline bounds future Read calls. A Read past the deadline fails
// with os.ErrDeadlineExceeded. A Windows handle that has not completed its
// connect handshake yet reports os.ErrNoDeadline.
func (p *Pipe) SetReadDeadline(t time.Time) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.sh.pp.SetReadDeadline(t)
}

// SetWriteDeadline bounds future Write calls, like SetReadDeadline.
func (p *Pipe) SetWriteDeadline(t time.Time) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.sh.pp.SetWriteDeadline(t)
}

// SetDeadline sets both the read and the write deadline.
func (p *Pipe) SetDeadline(t time.Time) error {
	if err := p.SetReadDeadline(t); err != nil {
		return err
	}
	return p.SetWriteDeadline(t)
}

// Remove deletes the pipe node at path. It refuses to delete anything that
// is not a named pipe. On Windows the namespace entry disappears with the
// last handle, so Remove is a no-op there. Pipes are never removed
// implicitly; this is the only deletion entry point.
func Remove(path string) error {
	return removePlatform(path)
}
