// package services defines interfaces for the music provider HTTP API
package services

import (
	"context"

	"github.com/spotgram/spotgram/internal/models"
)

// TokenClient performs the two token-issuing exchanges against the provider's
// token endpoint. Both are single-shot: failures surface to the caller and are
// never retried at this layer.
type TokenClient interface {
	// Exchange trades a one-time authorization code for a token record.
	Exchange(ctx context.Context, code string) (models.TokenRecord, error)

	// Refresh trades a refresh token for a new access token. The returned
	// record may lack a refresh token when the provider omits one.
	Refresh(ctx context.Context, refreshToken string) (models.TokenRecord, error)
}

// LibraryService is the bearer-authenticated surface of the provider API used
// by the chat handlers. Every method takes the access token for the acting
// user; obtaining a valid one is the token guardian's job.
type LibraryService interface {
	// AuthURL builds the authorization redirect URL carrying state.
	AuthURL(state string) string

	// Profile fetches the authenticated user's provider profile.
	Profile(ctx context.Context, token string) (*SpotifyUser, error)

	// SearchTrack returns the best track match for a free-text query.
	SearchTrack(ctx context.Context, token, query string) (*models.Track, error)

	// IsTrackSaved reports whether the track is already in the user's library.
	IsTrackSaved(ctx context.Context, token, trackID string) (bool, error)

	// SaveTracks adds tracks to the library, chunking large batches.
	SaveTracks(ctx context.Context, token string, ids []string) error

	// RemoveTracks deletes tracks from the library, chunking large batches.
	RemoveTracks(ctx context.Context, token string, ids []string) error

	// SavedTracks pages through the user's saved tracks.
	SavedTracks(ctx context.Context, token string, limit, offset int) (*SavedTracksPage, error)

	// Name returns the provider name (e.g. "Spotify")
	Name() string
}

// SavedTrack is a library entry: a track plus when it was saved.
type SavedTrack struct {
	AddedAt string
	Track   models.Track
}

// SavedTracksPage is one page of the user's saved tracks.
type SavedTracksPage struct {
	Items  []SavedTrack
	Total  int
	Limit  int
	Offset int
	Next   *string
}
