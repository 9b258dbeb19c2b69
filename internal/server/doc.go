// Package server provides HTTP routing, middleware, and the OAuth callback
// listener.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. The [BasicRouter] implementation uses
// [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [CallbackHandler] implements the authorization-code callback flow for a
// long-running multi-user bot. The state parameter is the chat-user identity
// that initiated the flow; only states previously issued through the auth
// manager are accepted. On success the handler exchanges the code, resolves
// the Spotify user id, persists the token record under the identity, and
// triggers the manager's asynchronous chat notification.
//
// The listener runs alongside the bot's polling loop and never terminates it:
// every failure is converted to an HTTP error response.
package server
