package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/shared"
)

// TokenRepository implements [models.TokenStore] on SQLite, surviving process
// restarts. One row per identity, replaced wholesale on every Set.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new [TokenRepository] with the given database connection.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Get retrieves the token record for the given identity.
func (r *TokenRepository) Get(identity string) (models.TokenRecord, bool, error) {
	query := `
		SELECT access_token, refresh_token, expires_at, scope, spotify_user_id
		FROM spotify_tokens
		WHERE identity = ?
	`

	var (
		record       models.TokenRecord
		refreshToken sql.NullString
		scope        sql.NullString
		spotifyID    sql.NullString
	)

	err := r.db.QueryRow(query, identity).Scan(&record.AccessToken, &refreshToken, &record.ExpiresAt, &scope, &spotifyID)
	if err == sql.ErrNoRows {
		return models.TokenRecord{}, false, nil
	}
	if err != nil {
		return models.TokenRecord{}, false, fmt.Errorf("failed to query token: %w", err)
	}

	record.RefreshToken = refreshToken.String
	record.Scope = scope.String
	record.SpotifyUserID = spotifyID.String

	return record, true, nil
}

// Set inserts or replaces the token record for the given identity.
func (r *TokenRepository) Set(identity string, record models.TokenRecord) error {
	query := `
		INSERT INTO spotify_tokens (id, identity, access_token, refresh_token, expires_at, scope, spotify_user_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			spotify_user_id = excluded.spotify_user_id,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		shared.GenerateID(), identity,
		record.AccessToken, record.RefreshToken, record.ExpiresAt,
		record.Scope, record.SpotifyUserID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}

	return nil
}
