// package repositories provides persistence layer implementations for all model types.
//
// Each repository implements a store interface from the models package over database/sql, writing
// queries with '?' placeholders that are rebound for the configured [shared.Dialect].
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/spotbridge/internal/shared"
)

// Options configures repositories built by [New].
type Options struct {
	Dialect     shared.Dialect
	TokensTable string
}

// Repositories groups the stores backed by one database handle.
type Repositories struct {
	Tokens *TokenRepository
	States *StateRepository
}

// New builds every repository for db.
func New(db *sql.DB, opts Options) (*Repositories, error) {
	tokens, err := NewTokenRepository(db, opts.Dialect, opts.TokensTable)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Tokens: tokens,
		States: NewStateRepository(db, opts.Dialect),
	}, nil
}

func tableName(name string) (string, error) {
	if name == "" {
		return shared.DefaultTokensTable, nil
	}
	if !shared.ValidIdentifier(name) {
		return "", fmt.Errorf("%w: invalid table name %q", shared.ErrInvalidConfig, name)
	}
	return name, nil
}
