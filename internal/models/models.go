// package models defines the data model for the spotbridge service
package models

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotbridge/internal/shared"
)

// UserToken is the persisted credential for one Spotify user.
type UserToken struct {
	UserID       string    `json:"spotifyUserId"`
	RefreshToken string    `json:"-"`
	Scope        string    `json:"scope"`
	SavedAt      time.Time `json:"savedAt"`
}

// NewUserToken builds a record stamped with the current UTC time.
func NewUserToken(userID, refreshToken, scope string) *UserToken {
	return &UserToken{
		UserID:       userID,
		RefreshToken: refreshToken,
		Scope:        scope,
		SavedAt:      time.Now().UTC(),
	}
}

// Validate checks that the record can be used for later refreshes.
func (u *UserToken) Validate() error {
	if u.UserID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	if u.RefreshToken == "" {
		return fmt.Errorf("%w: refresh token is required", shared.ErrInvalidInput)
	}
	return nil
}

// AuthState is a login nonce round-tripped through the provider redirect.
type AuthState struct {
	State     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewAuthState creates a state that expires ttl after now.
func NewAuthState(state string, now time.Time, ttl time.Duration) *AuthState {
	return &AuthState{State: state, CreatedAt: now.UTC(), ExpiresAt: now.UTC().Add(ttl)}
}

// Expired reports whether the state can no longer be redeemed at now.
func (s *AuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenStore persists [UserToken] records keyed by user id.
type TokenStore interface {
	Save(ctx context.Context, token *UserToken) error           // Save inserts or fully replaces the user's record
	Get(ctx context.Context, userID string) (*UserToken, error) // Get returns [shared.ErrTokenNotFound] when absent
	List(ctx context.Context) ([]*UserToken, error)             // List returns all records ordered by user id
}

// StateStore persists pending [AuthState] values.
type StateStore interface {
	Save(ctx context.Context, state *AuthState) error              // Save records a new state
	Consume(ctx context.Context, state string) (*AuthState, error) // Consume atomically fetches and deletes; [shared.ErrStateNotFound] when absent
	Purge(ctx context.Context, now time.Time) (int64, error)       // Purge deletes states expired at now
}
