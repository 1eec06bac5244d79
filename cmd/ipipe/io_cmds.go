package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bwHC-gko/ipipe"
	"github.com/bwHC-gko/ipipe/stream"
)

func readCmd() *cobra.Command {
	var (
		wait  bool
		force bool
	)
	cmd := &cobra.Command{
		Use:   "read PATH|NAME",
		Short: "Stream a pipe to stdout until the writer closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			// Raw pipe bytes can wreck a terminal; require an explicit
			// opt-in unless output is redirected.
			if f, ok := cmd.OutOrStdout().(*os.File); ok && !force && term.IsTerminal(int(f.Fd())) {
				return errors.New("refusing to write pipe data to a terminal (use --force)")
			}

			ctx, stop := signalContext()
			defer stop()

			if wait {
				if err := ipipe.Wait(ctx, path); err != nil {
					return err
				}
			}
			p, err := ipipe.OpenContext(ctx, path,
				ipipe.WithMode(ipipe.ModeRead), ipipe.WithLogger(logger))
			if err != nil {
				return err
			}
			defer p.Close()

			// Close the handle on signal so the blocking read lets go.
			unblock := context.AfterFunc(ctx, func() { p.Close() })
			defer unblock()

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			_, err = stream.Copy(ctx, out, p)
			return err
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the pipe to exist before opening")
	cmd.Flags().BoolVar(&force, "force", false, "Write pipe data to stdout even when it is a terminal")
	return cmd
}

func writeCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "write PATH|NAME [TEXT...]",
		Short: "Write arguments (or stdin) to a pipe",
		Long: `Write the given text, newline terminated, to the pipe. With no text
arguments, stdin is streamed instead. The open blocks until a reader is
present on the other end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			if wait {
				if err := ipipe.Wait(ctx, path); err != nil {
					return err
				}
			}
			p, err := ipipe.OpenContext(ctx, path,
				ipipe.WithMode(ipipe.ModeWrite), ipipe.WithLogger(logger))
			if err != nil {
				return err
			}
			defer p.Close()

			if len(args) > 1 {
				_, err = io.WriteString(p, strings.Join(args[1:], " ")+"\n")
				return err
			}
			_, err = stream.Copy(ctx, p, cmd.InOrStdin())
			return err
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the pipe to exist before opening")
	return cmd
}

func waitCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait PATH|NAME",
		Short: "Block until a pipe exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := ipipe.Wait(ctx, path); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("pipe did not appear within %s", timeout)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
