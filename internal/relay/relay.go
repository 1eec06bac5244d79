// Package relay pumps bytes from a pipe into a rotating sink file. ipiped
// runs one relay per configured static pipe.
package relay

import (
	"context"
	"io"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bwHC-gko/ipipe/stream"
)

// Relay copies one pipe, line by line, into one sink. The source is any
// reader; in the daemon it is a registry pipe handle, in tests an io.Pipe.
type Relay struct {
	name   string
	src    io.ReadCloser
	sink   *lumberjack.Logger
	logger *zap.Logger

	lines atomic.Int64
	bytes atomic.Int64
}

// New returns a relay named for its pipe. The relay takes ownership of src
// and sink and closes both when Run returns.
func New(name string, src io.ReadCloser, sink *lumberjack.Logger, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{name: name, src: src, sink: sink, logger: logger}
}

// Run pumps until the source ends or ctx is cancelled. Cancellation closes
// the source, which unblocks the pending read.
func (r *Relay) Run(ctx context.Context) error {
	defer r.sink.Close()
	defer r.src.Close()

	// Closing the source is what actually interrupts a blocked read.
	stop := context.AfterFunc(ctx, func() { r.src.Close() })
	defer stop()

	r.logger.Info("relay started",
		zap.String("pipe", r.name), zap.String("sink", r.sink.Filename))

	for line := range stream.Lines(ctx, r.src) {
		if line.Err != nil {
			if ctx.Err() != nil {
				break
			}
			r.logger.Error("relay read failed",
				zap.String("pipe", r.name), zap.Error(line.Err))
			return line.Err
		}
		n, err := r.sink.Write(append([]byte(line.Text), '\n'))
		if err != nil {
			r.logger.Error("relay sink write failed",
				zap.String("pipe", r.name), zap.Error(err))
			return err
		}
		r.lines.Add(1)
		r.bytes.Add(int64(n))
	}

	r.logger.Info("relay stopped",
		zap.String("pipe", r.name),
		zap.Int64("lines", r.lines.Load()), zap.Int64("bytes", r.bytes.Load()))
	return nil
}

// Name returns the pipe name this relay serves.
func (r *Relay) Name() string { return r.name }

// Lines returns the number of lines relayed so far.
func (r *Relay) Lines() int64 { return r.lines.Load() }

// Bytes returns the number of bytes written to the sink so far.
func (r *Relay) Bytes() int64 { return r.bytes.Load() }
