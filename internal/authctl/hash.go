package authctl

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Hash prompts for a password without echo and prints its bcrypt hash, for
// seeding users by hand.
func (a *App) Hash(ctx context.Context, args []string) error {
	fs := a.flagSet("hash")
	cost := fs.Int("cost", 10, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(a.errOut, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.errOut)
	if err != nil {
		return err
	}
	defer clear(pw)
	if len(pw) == 0 {
		return errors.New("empty password")
	}

	pool := password.NewPool(password.NewHasher(*cost), 1)
	hash, err := pool.Hash(ctx, string(pw))
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, hash)
	return nil
}
