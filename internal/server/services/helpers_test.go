package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/keys"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/password"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocationcache"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var (
	testKeysOnce sync.Once
	testKeys     *keys.KeyPair
)

func rsaKeys(t *testing.T) *keys.KeyPair {
	t.Helper()
	testKeysOnce.Do(func() {
		priv, pub, err := keys.Generate("RS256")
		require.NoError(t, err)
		testKeys, err = keys.ParseKeyPair("RS256", priv, pub)
		require.NoError(t, err)
	})
	require.NotNil(t, testKeys)
	return testKeys
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type env struct {
	svc   *TokenService
	db    *sql.DB
	rm    repomanager.RepositoryManager
	codec *auth.Codec
	clock *clock
	pool  *password.Pool
}

type envOption func(*envConfig)

type envConfig struct {
	opts  Options
	cache revocationcache.Cache
}

func withOptions(o Options) envOption { return func(c *envConfig) { c.opts = o } }

func withCache(cache revocationcache.Cache) envOption {
	return func(c *envConfig) { c.cache = cache }
}

// newEnv builds a TokenService over a migrated in-memory SQLite database.
func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	cfg := envConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	ctx := context.Background()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, rm.RunMigrations(ctx, db))

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	codec, err := auth.NewCodec(auth.Settings{
		Algorithm:  "RS256",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}, rsaKeys(t), auth.WithClock(clk.Now))
	require.NoError(t, err)

	pool := password.NewPool(password.NewHasher(bcrypt.MinCost), 4)
	svc := NewTokenService(db, rm, codec, pool, cfg.cache, logging.Nop(), cfg.opts)
	return &env{svc: svc, db: db, rm: rm, codec: codec, clock: clk, pool: pool}
}

func (e *env) addUser(t *testing.T, username, pw string, active bool) *models.User {
	t.Helper()
	hash, err := e.pool.Hash(context.Background(), pw)
	require.NoError(t, err)
	u, err := e.rm.Users(e.db).Create(context.Background(), &models.User{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: hash,
		IsActive:       active,
	})
	require.NoError(t, err)
	return u
}

func (e *env) setActive(t *testing.T, userID int64, active bool) {
	t.Helper()
	v := 0
	if active {
		v = 1
	}
	_, err := e.db.Exec(`UPDATE users SET is_active = ? WHERE id = ?`, v, userID)
	require.NoError(t, err)
}

func (e *env) countTokens(t *testing.T, userID int64) (total, revoked int) {
	t.Helper()
	require.NoError(t, e.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(revoked), 0) FROM refresh_tokens WHERE user_id = ?`, userID,
	).Scan(&total, &revoked))
	return total, revoked
}
