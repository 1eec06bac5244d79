//go:build windows

package ipipe

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	winio "github.com/Microsoft/go-winio"
)

// Same buffer size CreateNamedPipe is given by the usual Docker-style
// listeners.
const pipeBufferSize = 64 * 1024

const (
	errorBrokenPipe       = syscall.Errno(109) // ERROR_BROKEN_PIPE
	errorPipeBusy         = syscall.Errno(231) // ERROR_PIPE_BUSY
	errorNoData           = syscall.Errno(232) // ERROR_NO_DATA
	errorPipeNotConnected = syscall.Errno(233) // ERROR_PIPE_NOT_CONNECTED
)

// winPipe is the Windows platform pipe, built on go-winio. The first handle
// on a name becomes the server (it owns the listener); later handles and all
// write-mode handles dial as clients. Reads and writes run on the connected
// conn; peer disconnect discards the conn so the next operation re-accepts
// or re-dials, mirroring the way a FIFO is revived by a new peer.
//
// Locking: mu guards the fields only and is never held across a blocking
// call, so Close and the deadline setters always get through while a
// handshake or read is parked. The handshake itself serializes on hs, and a
// pending accept or dial is aborted by Close via the done channel plus the
// unconditional listener close.
type winPipe struct {
	path string
	done chan struct{}

	hs sync.Mutex // serializes the connect handshake

	mu     sync.Mutex
	ln     net.Listener // nil in the client role
	conn   net.Conn
	closed bool
}

func openPlatform(ctx context.Context, path string, o *options) (platformPipe, error) {
	p := &winPipe{path: path, done: make(chan struct{})}
	switch o.mode {
	case ModeWrite:
		// Writers are always clients, matching the FIFO convention that the
		// reading side owns the node.
		conn, err := p.dial(ctx)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	case ModeRead:
		if err := p.listen(ctx); err != nil {
			return nil, err
		}
		// Block until a writer connects, symmetric with the Unix blocking
		// read-end open.
		if _, err := p.ensureConn(ctx); err != nil {
			p.Close()
			return nil, err
		}
	default:
		// Duplex: create the namespace entry now, finish the handshake on
		// first use so the open itself never blocks.
		if err := p.listen(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// listen claims the server role for the pipe name, or falls back to dialing
// when another process already serves it.
func (p *winPipe) listen(ctx context.Context) error {
	ln, err := winio.ListenPipe(p.path, &winio.PipeConfig{
		InputBufferSize:  pipeBufferSize,
		OutputBufferSize: pipeBufferSize,
	})
	if err == nil {
		p.ln = ln
		return nil
	}
	conn, derr := p.dial(ctx)
	if derr != nil {
		return opError("create", p.path, err)
	}
	p.conn = conn
	return nil
}

// dial connects to the pipe, waiting for the server side to appear.
// Retrying on not-found keeps client-before-server symmetric with the Unix
// open-blocks-until-peer behavior; a busy pipe (all instances taken) is
// retried the same way. Close aborts the wait through the done channel.
func (p *winPipe) dial(ctx context.Context) (net.Conn, error) {
	delay := time.Millisecond
	for {
		conn, err := winio.DialPipeContext(ctx, p.path)
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, opError("connect", p.path, err)
		}
		if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, errorPipeBusy) {
			return nil, opError("connect", p.path, err)
		}
		select {
		case <-ctx.Done():
			return nil, opError("connect", p.path, ctx.Err())
		case <-p.done:
			return nil, ErrClosed
		case <-time.After(delay):
		}
		if delay < 100*time.Millisecond {
			delay *= 2
		}
	}
}

// ensureConn completes the connect handshake if it has not happened yet and
// returns the live conn. The handshake blocks on hs only; mu is taken just
// to read and publish fields, so a concurrent Close is never kept waiting.
func (p *winPipe) ensureConn(ctx context.Context) (net.Conn, error) {
	p.hs.Lock()
	defer p.hs.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if p.conn != nil {
		conn := p.conn
		p.mu.Unlock()
		return conn, nil
	}
	ln := p.ln
	p.mu.Unlock()

	var (
		conn net.Conn
		err  error
	)
	if ln == nil {
		// Client role whose conn was discarded at stream end: dial again.
		conn, err = p.dial(ctx)
	} else {
		conn, err = p.accept(ctx, ln)
	}
	if err != nil {
		if p.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	p.conn = conn
	p.mu.Unlock()
	return conn, nil
}

// accept waits for a client. The wait is abandoned when ctx is done (the
// listener is closed out from under Accept) and aborted when the handle is
// closed, which closes the listener too.
func (p *winPipe) accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			if p.isClosed() {
				return nil, ErrClosed
			}
			return nil, opError("connect", p.path, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		ln.Close()
		go func() {
			if r := <-ch; r.err == nil {
				r.conn.Close()
			}
		}()
		return nil, opError("connect", p.path, ctx.Err())
	case <-p.done:
		go func() {
			if r := <-ch; r.err == nil {
				r.conn.Close()
			}
		}()
		return nil, ErrClosed
	}
}

func (p *winPipe) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *winPipe) Read(b []byte) (int, error) {
	conn, err := p.ensureConn(context.Background())
	if err != nil {
		return 0, err
	}
	n, err := conn.Read(b)
	if err != nil && isDisconnect(err) {
		if p.isClosed() {
			return n, ErrClosed
		}
		p.discard(conn)
		return n, io.EOF
	}
	return n, err
}

func (p *winPipe) Write(b []byte) (int, error) {
	conn, err := p.ensureConn(context.Background())
	if err != nil {
		return 0, err
	}
	n, err := conn.Write(b)
	if err != nil && isDisconnect(err) {
		if p.isClosed() {
			return n, ErrClosed
		}
		p.discard(conn)
		return n, ErrPeerClosed
	}
	return n, err
}

// isDisconnect reports whether err is one of the peer-gone shapes a named
// pipe produces, all of which collapse into the shared stream-end signal.
func isDisconnect(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, errorBrokenPipe) ||
		errors.Is(err, errorNoData) ||
		errors.Is(err, errorPipeNotConnected) ||
		errors.Is(err, winio.ErrFileClosed)
}

// discard drops a dead conn so the next operation performs a fresh
// handshake. A concurrent handshake may already have replaced it.
func (p *winPipe) discard(dead net.Conn) {
	p.mu.Lock()
	if p.conn == dead {
		p.conn = nil
	}
	p.mu.Unlock()
	dead.Close()
}

// Close tears the handle down without waiting for in-flight operations:
// closing the done channel aborts a parked dial, and closing the listener
// aborts a parked Accept. Idempotent.
func (p *winPipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn, ln := p.conn, p.ln
	p.conn, p.ln = nil, nil
	p.mu.Unlock()

	close(p.done)
	var errs []error
	if conn != nil {
		errs = append(errs, conn.Close())
	}
	if ln != nil {
		errs = append(errs, ln.Close())
	}
	return errors.Join(errs...)
}

func (p *winPipe) SetReadDeadline(t time.Time) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return os.ErrNoDeadline
	}
	return conn.SetReadDeadline(t)
}

func (p *winPipe) SetWriteDeadline(t time.Time) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return os.ErrNoDeadline
	}
	return conn.SetWriteDeadline(t)
}

// removePlatform is a no-op: the pipe namespace entry vanishes with the last
// handle, the OS owns the cleanup.
func removePlatform(string) error { return nil }
