package authctl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/keys"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp() (*App, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewApp(&out, &errOut), &out
}

func stubConfig(t *testing.T) {
	t.Helper()
	orig := loadConfig
	loadConfig = func() (*config.Config, error) {
		c := &config.Config{}
		c.LoadDefaults()
		return c, nil
	}
	t.Cleanup(func() { loadConfig = orig })
}

func TestRun_Dispatch(t *testing.T) {
	a, out := newTestApp()

	require.NoError(t, a.Run(context.Background(), []string{"help"}))
	assert.Contains(t, out.String(), "usage: authctl")

	assert.ErrorIs(t, a.Run(context.Background(), nil), errUsage)
	assert.ErrorContains(t, a.Run(context.Background(), []string{"frobnicate"}), "unknown command")
}

func TestKeygen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	a, out := newTestApp()

	require.NoError(t, a.Run(context.Background(), []string{"keygen", "-alg", "ES256", "-out", dir}))
	assert.Contains(t, out.String(), "ES256 key pair written")

	priv, err := os.ReadFile(filepath.Join(dir, "jwt-private.pem"))
	require.NoError(t, err)
	pub, err := os.ReadFile(filepath.Join(dir, "jwt-public.pem"))
	require.NoError(t, err)
	_, err = keys.ParseKeyPair("ES256", priv, pub)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "jwt-private.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = a.Run(context.Background(), []string{"keygen", "-alg", "ES256", "-out", dir})
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, a.Run(context.Background(), []string{"keygen", "-alg", "ES256", "-out", dir, "-force"}))
	again, err := os.ReadFile(filepath.Join(dir, "jwt-private.pem"))
	require.NoError(t, err)
	assert.NotEqual(t, priv, again)
}

func TestKeygen_UnsupportedAlgorithm(t *testing.T) {
	a, _ := newTestApp()
	err := a.Run(context.Background(), []string{"keygen", "-alg", "HS256", "-out", t.TempDir()})
	assert.ErrorIs(t, err, keys.ErrUnsupportedAlgorithm)
}

func stubPassword(t *testing.T, pw []byte, err error) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return pw, err }
	t.Cleanup(func() { readPassword = orig })
}

func TestHash(t *testing.T) {
	stubPassword(t, []byte("s3cret"), nil)
	a, out := newTestApp()

	require.NoError(t, a.Run(context.Background(), []string{"hash", "-cost", "4"}))

	hash := bytes.TrimSpace(out.Bytes())
	require.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("s3cret")))
	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}

func TestHash_Errors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		stubPassword(t, nil, nil)
		a, _ := newTestApp()
		assert.ErrorContains(t, a.Run(context.Background(), []string{"hash"}), "empty password")
	})
	t.Run("terminal", func(t *testing.T) {
		stubPassword(t, nil, errors.New("not a terminal"))
		a, _ := newTestApp()
		assert.ErrorContains(t, a.Run(context.Background(), []string{"hash"}), "not a terminal")
	})
}

// seedLedger creates a user with one token that expired two hours ago and
// two that are still valid, and returns the dsn and the user.
func seedLedger(t *testing.T) (string, *models.User, []string) {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db")

	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, rm.RunMigrations(ctx, db))

	u, err := rm.Users(db).Create(ctx, &models.User{
		Email: "alice@example.com", Username: "alice", HashedPassword: "x", IsActive: true,
	})
	require.NoError(t, err)

	now := time.Now()
	ledger := rm.RefreshTokens(db)
	require.NoError(t, ledger.Insert(ctx, "old", u.ID, now.Add(-2*time.Hour)))
	require.NoError(t, ledger.Insert(ctx, "live-1", u.ID, now.Add(time.Hour)))
	require.NoError(t, ledger.Insert(ctx, "live-2", u.ID, now.Add(time.Hour)))

	return dsn, u, []string{"live-1", "live-2"}
}

func TestSweep(t *testing.T) {
	stubConfig(t)
	dsn, _, _ := seedLedger(t)
	a, out := newTestApp()

	require.NoError(t, a.Run(context.Background(), []string{"sweep", "-driver", "sqlite", "-dsn", dsn, "-grace", "1h"}))
	assert.Contains(t, out.String(), "deleted 1 expired refresh tokens")

	out.Reset()
	require.NoError(t, a.Run(context.Background(), []string{"sweep", "-dsn", dsn, "-grace", "1h"}))
	assert.Contains(t, out.String(), "deleted 0 expired refresh tokens")
}

func TestSweep_BadDriver(t *testing.T) {
	stubConfig(t)
	a, _ := newTestApp()
	assert.Error(t, a.Run(context.Background(), []string{"sweep", "-driver", "mysql"}))
}

func TestRevokeAll(t *testing.T) {
	stubConfig(t)
	mr := miniredis.RunT(t)
	dsn, u, live := seedLedger(t)
	a, out := newTestApp()

	require.NoError(t, a.Run(context.Background(), []string{
		"revoke-all", "-dsn", dsn, "-redis", mr.Addr(), "-user", strconv.FormatInt(u.ID, 10),
	}))
	assert.Contains(t, out.String(), "revoked 3 refresh tokens")

	for _, jti := range live {
		assert.True(t, mr.Exists("revoked:"+jti), jti)
	}
	assert.False(t, mr.Exists("revoked:old"))

	out.Reset()
	require.NoError(t, a.Run(context.Background(), []string{
		"revoke-all", "-dsn", dsn, "-user", strconv.FormatInt(u.ID, 10),
	}))
	assert.Contains(t, out.String(), "revoked 0 refresh tokens")
}

func TestRevokeAll_RequiresUser(t *testing.T) {
	stubConfig(t)
	a, _ := newTestApp()
	assert.ErrorContains(t, a.Run(context.Background(), []string{"revoke-all"}), "-user is required")
}
