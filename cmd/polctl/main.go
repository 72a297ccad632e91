// Command polctl is the thin CLI wrapper around the deniable-safe
// core, ported from the teacher's src/kr/kr.go subcommand-registration
// style (urfave/cli, one cli.Command per subcommand, a package-level
// app.Commands slice built in main). Per spec.md §1 the CLI, the
// interactive shell, clipboard/terminal helpers, and format-specific
// importers are external collaborators, not part of the specified
// core; this file exists only to give the ambient CLI dependencies
// (urfave/cli, atotto/clipboard, fatih/color) a concrete home and to
// exercise every core operation end to end.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli"

	"github.com/test-acc-vaccym/pol/internal/container"
	"github.com/test-acc-vaccym/pol/internal/corelog"
	"github.com/test-acc-vaccym/pol/internal/elgamal"
	"github.com/test-acc-vaccym/pol/internal/safe"
	"github.com/test-acc-vaccym/pol/internal/version"

	"github.com/op/go-logging"
)

func main() {
	// Hidden re-exec entrypoint for the process-backed rerandomization
	// Executor (internal/elgamal.ProcessExecutor): must be checked
	// before any normal argv parsing.
	if len(os.Args) > 1 && os.Args[1] == elgamal.WorkerSubcommand {
		if err := elgamal.RunWorker(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(-12)
		}
		return
	}

	corelog.Setup(logging.NOTICE)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	app := cli.NewApp()
	app.Name = "polctl"
	app.Usage = "a deniable password safe"
	app.Version = version.CurrentFormat.String()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "safe, s", Value: "pol.safe", Usage: "path to the safe file"},
		cli.IntFlag{Name: "workers, w", Value: 0, Usage: "worker pool size (default: CPU count)"},
		cli.BoolFlag{Name: "processes", Usage: "use process-backed workers instead of goroutines"},
	}
	app.Commands = []cli.Command{
		initCommand(ctx),
		listCommand(ctx),
		getCommand(ctx),
		putCommand(ctx),
		pasteCommand(ctx),
		copyCommand(ctx),
		touchCommand(ctx),
		rawCommand(ctx),
		generateCommand(ctx),
	}

	err := app.Run(os.Args)
	exitOnError(toExitErr(err))
}

// exitOnError prints a *cli.ExitError's message in red (mirroring the
// teacher's color.go, which reserves red for this kind of
// user-facing failure) before exiting with its translated code,
// rather than delegating straight to cli.HandleExitCoder's
// uncolored default print.
func exitOnError(err error) {
	if err == nil {
		return
	}
	ee, ok := err.(cli.ExitCoder)
	if !ok {
		cli.HandleExitCoder(err)
		return
	}
	if msg := ee.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, red(msg))
	}
	os.Exit(ee.ExitCode())
}

// toExitErr wraps a plain error returned by an Action into a
// cli.ExitError carrying the spec's translated exit code, so
// exitOnError can act on it. Actions that already return a
// *cli.ExitError (constructed via failf) pass through unchanged.
func toExitErr(err error) error {
	if err == nil {
		return nil
	}
	if ee, ok := err.(*cli.ExitError); ok {
		return ee
	}
	return cli.NewExitError(err.Error(), exitCode(err))
}

func failf(err error) error {
	return cli.NewExitError(err.Error(), exitCode(err))
}

func safePath(c *cli.Context) string {
	return c.GlobalString("safe")
}

func openSafe(ctx context.Context, c *cli.Context) (*safe.Safe, error) {
	return safe.Open(safePath(c), safe.OpenParams{
		NWorkers:   c.GlobalInt("workers"),
		UseThreads: !c.GlobalBool("processes"),
	})
}

// readPassword returns the -p flag's value, or prompts on stderr and
// reads a line from stdin if it wasn't given — the teacher's
// getpass.getpass equivalent, without pulling in a TTY-echo-disabling
// dependency the corpus never uses (spec.md §1 scopes
// "terminal/password-prompt helpers" out of the core; this is the
// simplest thing that lets cmd/polctl's scenarios run non-interactively
// too, since -p is always honored first).
func readPassword(c *cli.Context, prompt string) string {
	if pw := c.String("password"); pw != "" {
		return pw
	}
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// onMoveAppendEntries is the on_move_append_entries callback every
// command passes to OpenContainers (spec.md §4.7 "Append-migration").
// It has no container id to report by the time it fires (Container
// identifies itself to OpenContainers' caller only once the open
// completes), so it just notes the count; `raw` and `list` print each
// container's own id separately right after.
func onMoveAppendEntries(entries []container.Entry) {
	fmt.Fprintln(os.Stderr, yellow(fmt.Sprintf("migrated %d pending append entries", len(entries))))
}
