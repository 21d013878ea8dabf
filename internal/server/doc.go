// Package server provides HTTP routing, middleware, and the handlers of the spotbridge service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns. Its middleware wraps the whole
// mux, so CORS headers are present on every response including 404s.
//
// # Authorization Flow
//
// [AuthHandler] serves GET /login and GET /callback. Login stores a state nonce (when verification is
// enabled) and redirects to the provider. Callback exchanges the code, fetches the profile, and saves
// the refresh token keyed by the Spotify user id. When a frontend base URL is configured, success and
// rejected exchanges redirect there with spotifyUserId or auth_error in the query; otherwise the
// handler answers with JSON.
//
// # Proxy Gateway
//
// [ProxyHandler] serves an explicit route table under the configured prefix. Each action resolves the
// caller from the spotifyUserId query parameter or the x-spotify-user-id header, loads the stored
// refresh token, refreshes, and performs one upstream call whose status, content type, and body are
// forwarded. play-top turns a 404 "no active device" into a 409 with the user's device list.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which returns the [Route] table to register,
// encapsulating route definitions within the implementation.
package server
