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

// StateRepository implements [models.StateStore] for login nonces.
//
// States are single use: [StateRepository.Consume] deletes the row in the same transaction that reads it.
type StateRepository struct {
	db      *sql.DB
	dialect shared.Dialect
}

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB, dialect shared.Dialect) *StateRepository {
	if dialect == "" {
		dialect = shared.SQLite
	}
	return &StateRepository{db: db, dialect: dialect}
}

// Save records a pending state.
func (r *StateRepository) Save(ctx context.Context, state *models.AuthState) error {
	if state.State == "" {
		return fmt.Errorf("%w: state is required", shared.ErrInvalidInput)
	}

	query := r.dialect.Rebind(`INSERT INTO oauth_states (state, created_at, expires_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, state.State, state.CreatedAt.Unix(), state.ExpiresAt.Unix()); err != nil {
		return fmt.Errorf("%w: failed to save state: %v", shared.ErrPersistence, err)
	}

	return nil
}

// Consume fetches and deletes a state. Expiry is left for the caller to check.
func (r *StateRepository) Consume(ctx context.Context, state string) (*models.AuthState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrPersistence, err)
	}
	defer tx.Rollback()

	var createdAt, expiresAt int64
	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`SELECT created_at, expires_at FROM oauth_states WHERE state = ?`), state).Scan(&createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query state: %v", shared.ErrPersistence, err)
	}

	result, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM oauth_states WHERE state = ?`), state)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to delete state: %v", shared.ErrPersistence, err)
	}

	// a concurrent callback consumed it first
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, shared.ErrStateNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit state consumption: %v", shared.ErrPersistence, err)
	}

	return &models.AuthState{
		State:     state,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// Purge deletes states that expired at or before now and returns how many were removed.
func (r *StateRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM oauth_states WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to purge states: %v", shared.ErrPersistence, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}

	return rows, nil
}
