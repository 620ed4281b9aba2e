package authctl

import (
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/server/keys"
)

// Keygen writes jwt-private.pem (0600) and jwt-public.pem (0644) into -out.
// Existing files are kept unless -force is given.
func (a *App) Keygen(args []string) error {
	fs := a.flagSet("keygen")
	alg := fs.String("alg", "RS256", "signing algorithm")
	out := fs.String("out", "certs", "output directory")
	force := fs.Bool("force", false, "overwrite existing keys")
	if err := fs.Parse(args); err != nil {
		return err
	}

	priv, pub, err := keys.Generate(*alg)
	if err != nil {
		return err
	}

	if err := filex.EnsureDir(*out); err != nil {
		return err
	}

	privPath := filepath.Join(*out, "jwt-private.pem")
	pubPath := filepath.Join(*out, "jwt-public.pem")

	if err := filex.WriteNew(privPath, priv, 0o600, *force); err != nil {
		return err
	}
	if err := filex.WriteNew(pubPath, pub, 0o644, *force); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s key pair written to %s and %s\n", *alg, privPath, pubPath)
	return nil
}
