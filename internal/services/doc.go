// Package services implements the Spotify client used by the authorization flow and the proxy gateway.
//
// # Spotify Implementation
//
// [SpotifyService] uses [oauth2.Config] for the authorization code and refresh token grants, with client
// credentials sent in the request body. Web API calls go through [APIClient], which returns the raw
// [APIResponse] for every status so the proxy can forward upstream answers verbatim.
//
// Every outbound call is bounded by the configured timeout. No call is retried.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrServiceUnavailable] : network failure or timeout
//   - [shared.ErrAPIRequest] : provider rejected the request, see [TokenError] and [APIError]
//   - [shared.ErrInvalidInput] : request could not be built
//
// # Player Errors
//
// [IsNoActiveDevice] recognizes the 404 payload Spotify returns when playback has no target device.
package services
