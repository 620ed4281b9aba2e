package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE refresh_tokens (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  jti        TEXT    NOT NULL UNIQUE,
  user_id    INTEGER NOT NULL,
  revoked    INTEGER NOT NULL DEFAULT 0,
  expires_at INTEGER NULL,
  created_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s', 'now') AS INTEGER))
);`)
	require.NoError(t, err)
	return db
}

func TestSQLite_InsertThenFind(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	require.NoError(t, r.Insert(ctx, "j1", 7, exp))

	got, err := r.Find(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "j1", got.JTI)
	assert.Equal(t, int64(7), got.UserID)
	assert.False(t, got.Revoked)
	assert.True(t, got.ExpiresAt.Equal(exp))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_Insert_DuplicateJTI(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, r.Insert(ctx, "dup", 1, exp))
	err := r.Insert(ctx, "dup", 2, exp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))
}

func TestSQLite_Find_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Find(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_MarkRevoked(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, "j1", 1, time.Now().Add(time.Hour)))

	ok, err := r.MarkRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, ok)

	// second call finds nothing left to flip
	ok, err = r.MarkRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.MarkRevoked(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.Find(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestSQLite_MarkAllRevoked_OnlyTouchesUser(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, r.Insert(ctx, "a1", 1, exp))
	require.NoError(t, r.Insert(ctx, "a2", 1, exp))
	require.NoError(t, r.Insert(ctx, "a3", 1, exp))
	require.NoError(t, r.Insert(ctx, "b1", 2, exp))
	_, err := r.MarkRevoked(ctx, "a3")
	require.NoError(t, err)

	n, err := r.MarkAllRevoked(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := r.ListActive(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, active)

	other, err := r.ListActive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "b1", other[0].JTI)

	n, err = r.MarkAllRevoked(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_ListActive_Order(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	for _, j := range []string{"x", "y", "z"} {
		require.NoError(t, r.Insert(ctx, j, 5, exp))
	}
	_, err := r.MarkRevoked(ctx, "y")
	require.NoError(t, err)

	got, err := r.ListActive(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].JTI)
	assert.Equal(t, "z", got[1].JTI)
}

func TestSQLite_DeleteExpired(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Insert(ctx, "old", 1, now.Add(-2*time.Hour)))
	require.NoError(t, r.Insert(ctx, "fresh", 1, now.Add(2*time.Hour)))

	n, err := r.DeleteExpired(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = r.Find(ctx, "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Find(ctx, "fresh")
	assert.NoError(t, err)
}
