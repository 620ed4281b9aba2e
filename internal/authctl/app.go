package authctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

// loadConfig is a seam for tests.
var loadConfig = config.LoadEnvConfig

var errUsage = errors.New("usage")

const usage = `usage: authctl <command> [flags]

commands:
  keygen      generate a signing key pair (-alg, -out, -force)
  hash        hash a password read from the terminal (-cost)
  sweep       delete ledger rows expired longer than -grace ago
  revoke-all  revoke every refresh token of -user
`

type App struct {
	out    io.Writer
	errOut io.Writer
	logger logging.Logger
}

func NewApp(out, errOut io.Writer) *App {
	return &App{
		out:    out,
		errOut: errOut,
		logger: logging.NewJSONLogger(errOut, "info").With("module", "authctl"),
	}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.errOut, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "keygen":
		return a.Keygen(rest)
	case "hash":
		return a.Hash(ctx, rest)
	case "sweep":
		return a.Sweep(ctx, rest)
	case "revoke-all":
		return a.RevokeAll(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.errOut, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// Main runs the tool against the process arguments and returns the exit
// code.
func Main(ctx context.Context) int {
	a := NewApp(os.Stdout, os.Stderr)
	if err := a.Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}
