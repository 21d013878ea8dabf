// Package models defines domain entities and persistence interfaces for the spotbridge service.
//
// Persistent entities:
//   - [UserToken] : one refresh token per Spotify user, overwritten in full on every authorization
//   - [AuthState] : a login nonce awaiting its callback, single use with an expiry
//
// Access tokens are never modelled here: they live only inside the request that minted them.
//
// The [TokenStore] and [StateStore] interfaces are implemented by the repositories package.
package models
