package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luma/regbridge/cmd/gen"
)

func newRootCmd() *cobra.Command {
	var (
		// The port the caller is listening on
		port int

		// The port to serve the debug HTTP endpoints on, if any
		httpPort string
	)

	root := &cobra.Command{
		Use:   "regbridge -p port",
		Short: "Registry bridge for callers without registry access",
		Long: `regbridge connects to a caller listening on 127.0.0.1:<port> and
serves registry commands over that connection until the caller goes away.

It is started by the caller and should not be executed directly.`,

		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Stray arguments are ignored, as long as the port is there.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},

		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				printUsage(cmd.OutOrStdout())
				return &exitError{code: 1}
			}

			return runBridge(cmd.Context(), port, httpPort)
		},
	}

	flags := root.Flags()
	flags.IntVarP(&port, "port", "p", 0, "The loopback port the caller is listening on")
	flags.StringVar(&httpPort, "http-port", "", "Serve /ping and /stats on this loopback port")

	// A port that is missing its value or is not a number is a bad
	// invocation, same as no port at all.
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		if cmd.HasParent() {
			return err
		}

		printUsage(cmd.OutOrStdout())
		return &exitError{code: 1}
	})

	root.AddCommand(newQueryCmd(), VersionCmd, gen.NewCmd())
	return root
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}

	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func programName() string {
	return filepath.Base(os.Args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "\nUsage: %s -p port\n"+
		"\nbackend for regbridge clients\n"+
		"This program should not be executed directly\n\n", programName())
}

// normalizeArgs accepts the port flag in any case, so -P works like -p.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		lower := strings.ToLower(arg)

		switch {
		case lower == "-p":
			out[i] = "-p"
		case lower == "--port" || strings.HasPrefix(lower, "--port="):
			out[i] = "--port" + arg[len("--port"):]
		default:
			out[i] = arg
		}
	}

	return out
}

// Run executes a command line, without the program name, and returns the
// process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(stderr, "%s is a helper application for regbridge clients.\n", programName())
		return 1
	}

	root := newRootCmd()
	root.SetArgs(normalizeArgs(args))
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(stderr, exit.err)
		}
		return exit.code
	}

	fmt.Fprintln(stderr, err)
	return 1
}

// Execute runs the command line from os.Args and exits with its status.
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
