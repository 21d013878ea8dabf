package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T, opts shared.MigrationOptions) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.SQLite, ":memory:")
	require.NoError(t, err, "failed to create test database")
	t.Cleanup(func() { db.Close() })

	require.NoError(t, shared.RunMigrations(db, opts), "failed to run migrations")
	return db
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Save And Get", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		token := models.NewUserToken("user-1", "refresh-1", "user-top-read streaming")
		require.NoError(t, repo.Save(ctx, token))

		got, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "refresh-1", got.RefreshToken)
		assert.Equal(t, "user-top-read streaming", got.Scope)
		assert.WithinDuration(t, token.SavedAt, got.SavedAt, time.Second)
	})

	t.Run("Save Overwrites Prior Record", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, models.NewUserToken("user-1", "old-refresh", "streaming")))
		require.NoError(t, repo.Save(ctx, models.NewUserToken("user-1", "new-refresh", "")))

		got, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "new-refresh", got.RefreshToken)
		assert.Empty(t, got.Scope, "overwrite must not merge the previous scope")

		all, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		_, err = repo.Get(ctx, "nobody")
		assert.ErrorIs(t, err, shared.ErrTokenNotFound)
	})

	t.Run("Save Validation", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		err = repo.Save(ctx, &models.UserToken{UserID: "user-1"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		err = repo.Save(ctx, &models.UserToken{RefreshToken: "r"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Save Sets Missing Timestamp", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		token := &models.UserToken{UserID: "user-1", RefreshToken: "r"}
		require.NoError(t, repo.Save(ctx, token))
		assert.False(t, token.SavedAt.IsZero())
	})

	t.Run("List Ordered", func(t *testing.T) {
		repo, err := NewTokenRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite, "")
		require.NoError(t, err)

		for _, id := range []string{"carol", "alice", "bob"} {
			require.NoError(t, repo.Save(ctx, models.NewUserToken(id, "r-"+id, "")))
		}

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "alice", all[0].UserID)
		assert.Equal(t, "bob", all[1].UserID)
		assert.Equal(t, "carol", all[2].UserID)
	})

	t.Run("Custom Table", func(t *testing.T) {
		db := setupTestDB(t, shared.MigrationOptions{TokensTable: "spotify_tokens"})
		repo, err := NewTokenRepository(db, shared.SQLite, "spotify_tokens")
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, models.NewUserToken("user-1", "r", "")))

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM spotify_tokens").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("Invalid Table", func(t *testing.T) {
		_, err := NewTokenRepository(nil, shared.SQLite, "tokens where 1=1")
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t, shared.MigrationOptions{})
		repo, err := NewTokenRepository(db, shared.SQLite, "")
		require.NoError(t, err)
		db.Close()

		err = repo.Save(ctx, models.NewUserToken("user-1", "r", ""))
		assert.ErrorIs(t, err, shared.ErrPersistence)

		_, err = repo.Get(ctx, "user-1")
		assert.ErrorIs(t, err, shared.ErrPersistence)
		assert.NotErrorIs(t, err, shared.ErrTokenNotFound)
	})
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Consume Is Single Use", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)
		require.NoError(t, repo.Save(ctx, models.NewAuthState("abc", now, time.Minute)))

		got, err := repo.Consume(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", got.State)
		assert.False(t, got.Expired(now))

		_, err = repo.Consume(ctx, "abc")
		assert.ErrorIs(t, err, shared.ErrStateNotFound)
	})

	t.Run("Consume Unknown", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)

		_, err := repo.Consume(ctx, "missing")
		assert.ErrorIs(t, err, shared.ErrStateNotFound)
	})

	t.Run("Consume Returns Expired State", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)
		require.NoError(t, repo.Save(ctx, models.NewAuthState("old", now.Add(-time.Hour), time.Minute)))

		got, err := repo.Consume(ctx, "old")
		require.NoError(t, err)
		assert.True(t, got.Expired(now))
	})

	t.Run("Save Duplicate", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)
		require.NoError(t, repo.Save(ctx, models.NewAuthState("dup", now, time.Minute)))

		err := repo.Save(ctx, models.NewAuthState("dup", now, time.Minute))
		assert.ErrorIs(t, err, shared.ErrPersistence)
	})

	t.Run("Save Empty", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)

		err := repo.Save(ctx, &models.AuthState{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("Purge", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t, shared.MigrationOptions{}), shared.SQLite)
		require.NoError(t, repo.Save(ctx, models.NewAuthState("expired-1", now.Add(-time.Hour), time.Minute)))
		require.NoError(t, repo.Save(ctx, models.NewAuthState("expired-2", now.Add(-2*time.Hour), time.Minute)))
		require.NoError(t, repo.Save(ctx, models.NewAuthState("fresh", now, time.Hour)))

		n, err := repo.Purge(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = repo.Consume(ctx, "fresh")
		assert.NoError(t, err)
	})
}

func TestNew(t *testing.T) {
	db := setupTestDB(t, shared.MigrationOptions{})

	repos, err := New(db, Options{Dialect: shared.SQLite})
	require.NoError(t, err)
	assert.NotNil(t, repos.Tokens)
	assert.NotNil(t, repos.States)

	_, err = New(db, Options{TokensTable: "bad name"})
	assert.ErrorIs(t, err, shared.ErrInvalidConfig)
}
