// worknetctl runs worknet operations from the command line. It reads the same
// environment configuration as the server and submits in-process.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/workbenchapp/worknet-proposer/internal/app"
	"github.com/workbenchapp/worknet-proposer/internal/config"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/logging"
)

// env is what a command runs against.
type env struct {
	app *app.App
	out io.Writer
}

// command is one CLI command. name may hold two words, such as
// "workgroup create".
type command struct {
	name    string
	args    []string // positional argument names
	summary string
	flags   func(fs *pflag.FlagSet)
	offline bool // runs without configuration or ledger access
	run     func(ctx context.Context, e *env, args []string) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, out io.Writer) error {
	commands := commands()
	cmd, rest := lookup(commands, argv)
	if cmd == nil {
		printUsage(os.Stderr, commands)
		if len(argv) == 0 || argv[0] == "help" || argv[0] == "--help" || argv[0] == "-h" {
			return nil
		}
		return fmt.Errorf("unknown command %q", strings.Join(argv, " "))
	}

	fs := pflag.NewFlagSet("worknetctl "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: worknetctl %s %s\n\n%s\n\n", cmd.name, usageArgs(cmd.args), cmd.summary)
		fs.PrintDefaults()
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}
	args := fs.Args()
	if len(args) != len(cmd.args) {
		fs.Usage()
		return fmt.Errorf("%s takes %d argument(s), got %d", cmd.name, len(cmd.args), len(args))
	}

	e := &env{out: out}
	if !cmd.offline {
		a, log, err := open()
		if err != nil {
			return err
		}
		defer a.Close()
		e.app = a
		ctx = logr.NewContext(ctx, log)
		ctx = domain.WithActor(ctx, "worknetctl")
	}
	return cmd.run(ctx, e, args)
}

// open loads configuration and wires the service.
func open() (*app.App, logr.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logr.Discard(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, logr.Discard(), fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, logr.Discard(), err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, logr.Discard(), err
	}
	return a, log, nil
}

// lookup finds the command named by the leading words of argv.
func lookup(commands []*command, argv []string) (*command, []string) {
	for words := 2; words >= 1; words-- {
		if len(argv) < words {
			continue
		}
		name := strings.Join(argv[:words], " ")
		for _, c := range commands {
			if c.name == name {
				return c, argv[words:]
			}
		}
	}
	return nil, nil
}

func usageArgs(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = "<" + a + ">"
	}
	return strings.Join(append(out, "[flags]"), " ")
}

func printUsage(w io.Writer, commands []*command) {
	fmt.Fprintln(w, "Usage: worknetctl <command> [arguments] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-22s %s\n", c.name, c.summary)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints a submission result and turns a failed or unconfirmed
// outcome into an error. It is used as printResult(w)(svc.Op(...)).
func printResult(w io.Writer) func(*domain.SubmissionResult, error) error {
	return func(result *domain.SubmissionResult, err error) error {
		if err != nil {
			return err
		}
		if err := printJSON(w, result); err != nil {
			return err
		}
		return result.Err()
	}
}
