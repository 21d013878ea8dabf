// Package repositories implements SQL persistence for the spotbridge domain entities.
//
// Key Implementations:
//   - [TokenRepository] : one refresh token per Spotify user, upserted with ON CONFLICT so a later authorization replaces the row in full
//   - [StateRepository] : single-use login nonces with unix-second expiry
//
// Queries are portable between SQLite (mattn/go-sqlite3) and Postgres (lib/pq). Placeholders are written as '?' and
// rewritten by [shared.Dialect.Rebind]. The token table name is configurable and validated before it is interpolated.
package repositories
