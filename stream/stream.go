// Package stream adapts the blocking pipe contract for channel-based
// consumers. It is a thin layer over io.Reader: nothing here reaches into
// pipe internals, so the adapters work just as well over any other reader.
//
// Cancellation is cooperative. A goroutine parked in a blocking Read cannot
// be interrupted from here; pair the context with closing the reader or a
// read deadline to unblock it promptly.
package stream

import (
	"bufio"
	"context"
	"io"
)

// Line is one element of the channel returned by Lines: either a line of
// text or a terminal error. A clean end of stream closes the channel without
// a final error element.
type Line struct {
	Text string
	Err  error
}

// Lines pumps r line by line into the returned channel from a dedicated
// goroutine. The channel is closed after end of stream, a read error
// (delivered as the final element) or context cancellation.
func Lines(ctx context.Context, r io.Reader) <-chan Line {
	ch := make(chan Line)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- Line{Text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- Line{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// Copy copies from src to dst until end of stream, a failure or context
// cancellation, returning the number of bytes written. Cancellation is
// observed between reads.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw < nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return written, nil
			}
			return written, rerr
		}
	}
}
