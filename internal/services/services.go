// package services defines interface Service for interacting with the Spotify accounts service and Web API
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Authorizer drives the authorization code flow.
type Authorizer interface {
	// AuthURL builds the provider login URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// CurrentUser fetches the profile of the token's owner.
	CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error)
}

// Refresher mints access tokens from stored refresh tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Player exposes the proxied Web API calls. Each returns the raw upstream response for any status.
type Player interface {
	Following(ctx context.Context, accessToken string) (*APIResponse, error)
	Pause(ctx context.Context, accessToken string) (*APIResponse, error)
	Devices(ctx context.Context, accessToken string) (*APIResponse, error)
	TopTracks(ctx context.Context, accessToken string, limit int) (*APIResponse, error)
	Play(ctx context.Context, accessToken string, uris []string) (*APIResponse, error)
}

// Service is the full provider surface used by the server.
type Service interface {
	Authorizer
	Refresher
	Player

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Gateway is the provider surface used by the proxy: a refresh followed by one player call.
type Gateway interface {
	Refresher
	Player
}

var _ Service = (*SpotifyService)(nil)
