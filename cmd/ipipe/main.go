// ipipe is a small command-line tool around the ipipe library: create,
// read, write, wait for and remove named pipes.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bwHC-gko/ipipe"
	"github.com/bwHC-gko/ipipe/internal/logs"
)

var (
	logLevel string

	version = "v0.1.0" // injected by -ldflags at build time

	logger = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ipipe",
		Short:         "Create, read and write OS named pipes (FIFOs on Unix, \\\\.\\pipe on Windows)",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			logger, err = logs.Command(logLevel)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		pathCmd(),
		createCmd(),
		readCmd(),
		writeCmd(),
		removeCmd(),
		waitCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolvePath accepts either a bare pipe name or a fully qualified path.
// Anything containing a separator is taken as a path verbatim.
func resolvePath(arg string) (string, error) {
	if strings.ContainsAny(arg, "/\\") {
		return arg, nil
	}
	return ipipe.PipePath(arg)
}

func pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path NAME",
		Short: "Print the platform path a pipe name resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ipipe.PipePath(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [NAME]",
		Short: "Create a pipe and print its path",
		Long: `Create a pipe with the given name, or an auto-generated
pipe_<pid>_<random> name when none is given. The pipe is opened in duplex
mode so creation never blocks. On Unix the FIFO node stays behind for other
processes; on Windows the namespace entry lives only as long as a handle
does, so create is mostly useful there to verify a name is usable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				p   *ipipe.Pipe
				err error
			)
			if len(args) == 1 {
				p, err = ipipe.OpenName(args[0], ipipe.WithLogger(logger))
			} else {
				p, err = ipipe.CreateTemp(ipipe.WithLogger(logger))
			}
			if err != nil {
				return err
			}
			defer p.Close()
			fmt.Fprintln(cmd.OutOrStdout(), p.Path())
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PATH|NAME",
		Short: "Delete a pipe node (no-op on Windows)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := resolvePath(args[0])
			if err != nil {
				return err
			}
			return ipipe.Remove(path)
		},
	}
}
