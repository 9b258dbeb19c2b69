// Package services implements the Spotify Web API client: the OAuth2 token
// exchanges and the bearer-authenticated library operations.
//
// # Interfaces
//
// [TokenClient] covers the token endpoint (authorization-code and
// refresh-token grants). [LibraryService] covers the resource API. Both are
// implemented by [SpotifyService]; the chat and server layers depend on the
// interfaces so tests can substitute doubles.
//
// # Token endpoint
//
// Exchanges are form-encoded POSTs authenticated with HTTP Basic client
// credentials. The absolute expiry (epoch seconds) is computed here, at the
// moment the response arrives, so stored records never carry a relative TTL.
// Failures wrap [shared.ErrExchangeFailed] and are never retried: retry is a
// resource-API concern, not a token-endpoint one.
//
// # Rate limiting
//
// Resource calls pass through two mechanisms:
//
//  1. a proactive [rate.Limiter] pacing requests below the provider's
//     tolerance, and
//  2. a reactive single retry on 429 honoring the Retry-After header
//     (default 1s) plus a small padding. A second consecutive 429 surfaces
//     as [shared.ErrRateLimited] with no further attempts.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrExchangeFailed] : token endpoint rejected a grant
//   - [shared.ErrRateLimited] : throttled twice in a row
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status
//   - [shared.ErrTrackNotFound] : search produced no match
package services
