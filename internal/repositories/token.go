package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// TokenRepository implements [models.TokenStore] for [models.UserToken] persistence.
type TokenRepository struct {
	db      *sql.DB
	dialect shared.Dialect
	table   string
}

// NewTokenRepository creates a new [TokenRepository] backed by the given table.
//
// An empty table name selects [shared.DefaultTokensTable].
func NewTokenRepository(db *sql.DB, dialect shared.Dialect, table string) (*TokenRepository, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	if dialect == "" {
		dialect = shared.SQLite
	}
	return &TokenRepository{db: db, dialect: dialect, table: name}, nil
}

// Save inserts the record or replaces every column of an existing one (last writer wins).
func (r *TokenRepository) Save(ctx context.Context, token *models.UserToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if token.SavedAt.IsZero() {
		token.SavedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, refresh_token, scope, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			refresh_token = excluded.refresh_token,
			scope = excluded.scope,
			saved_at = excluded.saved_at
	`, r.table)

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), token.UserID, token.RefreshToken, token.Scope, token.SavedAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to save token for %s: %v", shared.ErrPersistence, token.UserID, err)
	}

	return nil
}

// Get retrieves the record for userID.
func (r *TokenRepository) Get(ctx context.Context, userID string) (*models.UserToken, error) {
	query := fmt.Sprintf(`SELECT user_id, refresh_token, scope, saved_at FROM %s WHERE user_id = ?`, r.table)

	var token models.UserToken
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), userID).Scan(&token.UserID, &token.RefreshToken, &token.Scope, &token.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTokenNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query token: %v", shared.ErrPersistence, err)
	}

	return &token, nil
}

// List retrieves every stored record ordered by user id.
func (r *TokenRepository) List(ctx context.Context) ([]*models.UserToken, error) {
	query := fmt.Sprintf(`SELECT user_id, refresh_token, scope, saved_at FROM %s ORDER BY user_id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query tokens: %v", shared.ErrPersistence, err)
	}
	defer rows.Close()

	var tokens []*models.UserToken
	for rows.Next() {
		var token models.UserToken
		if err := rows.Scan(&token.UserID, &token.RefreshToken, &token.Scope, &token.SavedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan token: %v", shared.ErrPersistence, err)
		}
		tokens = append(tokens, &token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrPersistence, err)
	}

	return tokens, nil
}
