//go:build !windows

package ipipe

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fifoPipe is the Unix platform pipe: one FIFO descriptor wrapped in an
// *os.File. The descriptor is put in non-blocking mode after the open so it
// lands in the runtime poller, which is what makes deadlines work and lets a
// Close from another goroutine unblock a pending Read.
type fifoPipe struct {
	f    *os.File
	path string

	closeOnce sync.Once
	closeErr  error
}

func openPlatform(ctx context.Context, path string, o *options) (platformPipe, error) {
	if err := ensureFIFO(path); err != nil {
		return nil, err
	}
	fd, err := openFIFO(ctx, path, o.mode)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, opError("open", path, err)
	}
	return &fifoPipe{f: os.NewFile(uintptr(fd), path), path: path}, nil
}

// ensureFIFO makes the FIFO node at path if nothing is there yet. An
// existing FIFO is reused; an existing non-FIFO entry is a create failure.
func ensureFIFO(path string) error {
	var st unix.Stat_t
	switch err := unix.Stat(path, &st); {
	case err == nil:
		if st.Mode&unix.S_IFMT != unix.S_IFIFO {
			return opError("create", path, ErrNotPipe)
		}
		return nil
	case errors.Is(err, unix.ENOENT):
		switch err := unix.Mkfifo(path, 0o660); {
		case err == nil:
			return nil
		case errors.Is(err, unix.EEXIST):
			// Lost a create race; re-stat so a non-FIFO winner is still
			// rejected.
			return ensureFIFO(path)
		default:
			return opError("create", path, err)
		}
	default:
		return opError("create", path, err)
	}
}

// openFIFO opens one end of the FIFO, preserving FIFO blocking semantics per
// mode while keeping the wait cancelable.
func openFIFO(ctx context.Context, path string, mode Mode) (int, error) {
	switch mode {
	case ModeRead:
		return openReadEnd(ctx, path)
	case ModeWrite:
		return openWriteEnd(ctx, path)
	default:
		// O_RDWR holds both ends, so the open never blocks and the
		// descriptor never observes EOF.
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
		if err != nil {
			return -1, opError("open", path, err)
		}
		return fd, nil
	}
}

// openReadEnd performs the blocking O_RDONLY open in a helper goroutine so
// the context can abandon the wait. An abandoned open that later completes
// closes its descriptor itself.
func openReadEnd(ctx context.Context, path string) (int, error) {
	type result struct {
		fd  int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOCTTY, 0)
		ch <- result{fd, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return -1, opError("open", path, r.err)
		}
		return r.fd, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				unix.Close(r.fd)
			}
		}()
		return -1, opError("open", path, ctx.Err())
	}
}

// openWriteEnd probes with O_WRONLY|O_NONBLOCK until a reader shows up.
// ENXIO means no reader yet; everything else is a real failure. The retry
// loop mirrors the Windows wait-for-server behavior so write-mode opens
// block the same way on both platforms.
func openWriteEnd(ctx context.Context, path string) (int, error) {
	delay := time.Millisecond
	for {
		fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
		if err == nil {
			return fd, nil
		}
		if !errors.Is(err, unix.ENXIO) {
			return -1, opError("open", path, err)
		}
		select {
		case <-ctx.Done():
			return -1, opError("open", path, ctx.Err())
		case <-time.After(delay):
		}
		if delay < 100*time.Millisecond {
			delay *= 2
		}
	}
}

func (p *fifoPipe) Read(b []byte) (int, error) {
	// The poller maps a zero-byte read (all writers gone) to io.EOF already.
	return p.f.Read(b)
}

func (p *fifoPipe) Write(b []byte) (int, error) {
	n, err := p.f.Write(b)
	if err != nil && errors.Is(err, syscall.EPIPE) {
		return n, ErrPeerClosed
	}
	return n, err
}

func (p *fifoPipe) Close() error {
	p.closeOnce.Do(func() { p.closeErr = p.f.Close() })
	return p.closeErr
}

func (p *fifoPipe) SetReadDeadline(t time.Time) error  { return p.f.SetReadDeadline(t) }
func (p *fifoPipe) SetWriteDeadline(t time.Time) error { return p.f.SetWriteDeadline(t) }

func removePlatform(path string) error {
	var st unix.Stat_t
	switch err := unix.Stat(path, &st); {
	case errors.Is(err, unix.ENOENT):
		return nil
	case err != nil:
		return opError("remove", path, err)
	case st.Mode&unix.S_IFMT != unix.S_IFIFO:
		return opError("remove", path, ErrNotPipe)
	}
	if err := os.Remove(path); err != nil {
		return opError("remove", path, err)
	}
	return nil
}
