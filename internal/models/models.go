// package models defines the data model shared across the bot: token records,
// tracks, usage statistics, and the store interfaces persisting them.
package models

import "time"

// TokenRecord is the stored credential bundle for one user identity.
//
// ExpiresAt is the absolute instant (epoch seconds) after which AccessToken
// must be considered invalid. RefreshToken may be empty: the provider is
// allowed to omit it on refresh responses, in which case the previously
// stored value is retained.
type TokenRecord struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	ExpiresAt     int64  `json:"expires_at"`
	Scope         string `json:"scope,omitempty"`
	SpotifyUserID string `json:"spotify_user_id,omitempty"`
}

// Stale reports whether the access token is expired or within margin of expiry.
func (t TokenRecord) Stale(now time.Time, margin time.Duration) bool {
	return now.Unix() > t.ExpiresAt-int64(margin.Seconds())
}

// ApplyRefresh folds a refresh response into the record in place.
//
// The refresh token is only replaced when the response carries a new one.
func (t *TokenRecord) ApplyRefresh(fresh TokenRecord) {
	t.AccessToken = fresh.AccessToken
	t.ExpiresAt = fresh.ExpiresAt
	if fresh.RefreshToken != "" {
		t.RefreshToken = fresh.RefreshToken
	}
	if fresh.Scope != "" {
		t.Scope = fresh.Scope
	}
}

// TokenStore is the keyed mapping from user identity to [TokenRecord].
//
// Implementations must isolate access by identity key: concurrent operations
// on different keys never interfere. A Set for an existing identity replaces
// the whole record.
type TokenStore interface {
	// Get returns the record for identity. The boolean is false when no
	// record exists; that case is not an error.
	Get(identity string) (TokenRecord, bool, error)

	// Set persists the record under identity, overwriting any previous one.
	Set(identity string, record TokenRecord) error
}

// Track is the subset of a provider track the bot works with.
type Track struct {
	ID     string
	Title  string
	Artist string
	Album  string
	Image  string
}

// Stats holds per-identity usage counters maintained by the bot handlers.
type Stats struct {
	Added    int
	Deleted  int
	FirstAdd time.Time
	LastAdd  time.Time
}

// StatsStore persists usage statistics and per-artist add counts.
type StatsStore interface {
	Stats(identity string) (Stats, error)
	RecordAdd(identity, artist string, at time.Time) error
	RecordDelete(identity string) error

	// FavoriteArtist returns the artist with the most recorded adds, or ""
	// when nothing has been recorded.
	FavoriteArtist(identity string) (string, error)
}
