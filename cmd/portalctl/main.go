// Command portalctl talks to the campus backend from a terminal using the
// same token storage and session-expiry handling as the browser client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must exit with failure status when a command fails
	}
}

// execute runs one command. The client is always torn down afterwards, also
// when the command failed, so a login redirect scheduled by a rejected call
// still happens.
func execute(ctx context.Context, s streams, args []string) error {
	root, app := newRootCmd(s)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, app.close(ctx))
}

func newRootCmd(s streams) (*cobra.Command, *cliApp) {
	app := &cliApp{streams: s}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Command-line client for the campus portal backend",
		Long: `portalctl signs in against the campus backend and calls its REST API
with the stored bearer token.

When the backend rejects the token (401, or 403 unless
PORTALCTL_FORBIDDEN_INVALIDATES=false) the stored session is cleared,
a session-expired notice is printed and the client moves to the login page.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.open(cmd.Context())
		},
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)
	root.PersistentFlags().BoolVar(&app.verbose, "verbose", false, "Log diagnostics to stderr")

	root.AddCommand(
		loginCmd(app),
		logoutCmd(app),
		whoamiCmd(app),
		getCmd(app),
		sendCmd(app, "post"),
		sendCmd(app, "put"),
		deleteCmd(app),
		uploadCmd(app),
	)
	return root, app
}
