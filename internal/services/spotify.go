// Spotify API implementation of [LibraryService] and [TokenClient]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// apiTimeout bounds resource-API calls; tokenTimeout bounds calls to the
	// token endpoint (which must answer fast or fail the flow).
	apiTimeout   = 15 * time.Second
	tokenTimeout = 10 * time.Second

	// retryAfterPadding is added to the provider's advertised 429 wait.
	retryAfterPadding = 500 * time.Millisecond

	// batchSize is the provider's cap on ids per library write request.
	batchSize = 50
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// spotifyImage represents an image resource.
type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// spotifyArtist represents a Spotify artist.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// spotifyAlbum represents a Spotify album.
type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

// spotifyTrack represents a Spotify track.
type spotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

// asTrack converts the API shape to the bot's [models.Track].
func (t spotifyTrack) asTrack() models.Track {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}

	track := models.Track{
		ID:     t.ID,
		Title:  t.Name,
		Artist: strings.Join(names, ", "),
		Album:  t.Album.Name,
	}
	if len(t.Album.Images) > 0 {
		track.Image = t.Album.Images[0].URL
	}

	return track
}

// spotifySavedTrack represents a track saved in the user's library.
type spotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

// spotifyPaginatedTracks represents a paginated response of saved tracks.
type spotifyPaginatedTracks struct {
	Items    []spotifySavedTrack `json:"items"`
	Total    int                 `json:"total"`
	Limit    int                 `json:"limit"`
	Offset   int                 `json:"offset"`
	Next     *string             `json:"next"`
	Previous *string             `json:"previous"`
}

// tokenResponse is the provider's token endpoint payload for both grant types.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// SpotifyService implements [LibraryService] and [TokenClient] for the Spotify Web API.
//
// A single instance serves every bot user: access tokens are passed per call
// rather than held on the service. Uses [oauth2.Config] for endpoint and
// authorization URL handling and [rate.Limiter] to pace outbound API calls in
// addition to the reactive 429 retry.
type SpotifyService struct {
	config      *oauth2.Config
	baseURL     string
	httpClient  *http.Client
	tokenClient *http.Client
	limiter     *rate.Limiter
	sleep       func(time.Duration)
	now         func() time.Time
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// Requires client_id and client_secret; redirect_uri defaults to the local
// callback and scopes to the library-management set.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingConfig)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingConfig)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	scopes := []string{
		"playlist-modify-public",
		"playlist-modify-private",
		"user-library-modify",
		"user-library-read",
	}
	if s, ok := credentials["scopes"]; ok && s != "" {
		scopes = strings.Fields(s)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		baseURL:     spotifyBaseURL,
		httpClient:  &http.Client{Timeout: apiTimeout},
		tokenClient: &http.Client{Timeout: tokenTimeout},
		limiter:     rate.NewLimiter(rate.Limit(5), 1),
		sleep:       time.Sleep,
		now:         time.Now,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization redirect URL for the given state.
//
// show_dialog forces the consent screen on every authorization so a user can
// relink a different Spotify account.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange trades an authorization code for a token record ([TokenClient]).
func (s *SpotifyService) Exchange(ctx context.Context, code string) (models.TokenRecord, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {s.config.RedirectURL},
	}
	return s.requestToken(ctx, form)
}

// Refresh trades a refresh token for a new access token ([TokenClient]).
//
// Spotify routinely omits refresh_token from refresh responses; callers must
// keep the old one when the returned record has none.
func (s *SpotifyService) Refresh(ctx context.Context, refreshToken string) (models.TokenRecord, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return s.requestToken(ctx, form)
}

// requestToken POSTs a form-encoded grant to the token endpoint with HTTP
// Basic client credentials and computes the absolute expiry.
func (s *SpotifyService) requestToken(ctx context.Context, form url.Values) (models.TokenRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(s.config.ClientID, s.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.tokenClient.Do(req)
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.TokenRecord{}, fmt.Errorf("%w: status %d: %s", shared.ErrExchangeFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.TokenRecord{}, fmt.Errorf("%w: failed to decode response: %v", shared.ErrExchangeFailed, err)
	}

	expiresIn := payload.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	return models.TokenRecord{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    s.now().Unix() + expiresIn,
		Scope:        payload.Scope,
	}, nil
}

// doRequest performs a bearer-authenticated request to the resource API with
// a single bounded retry on 429.
//
// The provider's Retry-After header (seconds, default 1) is honored plus a
// small padding. A second consecutive 429 is surfaced as [shared.ErrRateLimited].
// A 204 or empty body leaves result untouched.
func (s *SpotifyService) doRequest(ctx context.Context, token, method, path string, query url.Values, payload, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	resp, err := s.attempt(ctx, token, method, path, query, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		s.sleep(retryAfterDelay(resp.Header) + retryAfterPadding)

		if resp, err = s.attempt(ctx, token, method, path, query, payload); err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return fmt.Errorf("%w: still throttled after retry", shared.ErrRateLimited)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNoContent || result == nil {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// attempt issues one HTTP request with bearer and JSON headers.
func (s *SpotifyService) attempt(ctx context.Context, token, method, path string, query url.Values, payload any) (*http.Response, error) {
	apiURL := s.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return resp, nil
}

// retryAfterDelay parses the advertised wait from a 429 response.
func retryAfterDelay(h http.Header) time.Duration {
	seconds, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || seconds < 0 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// Profile retrieves the current authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context, token string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchTrack returns the best track match for a free-text query.
func (s *SpotifyService) SearchTrack(ctx context.Context, token, query string) (*models.Track, error) {
	q := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {"1"},
	}

	var response struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, "/search", q, nil, &response); err != nil {
		return nil, err
	}

	if len(response.Tracks.Items) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrTrackNotFound, query)
	}

	track := response.Tracks.Items[0].asTrack()
	return &track, nil
}

// IsTrackSaved reports whether the track is already in the user's library.
func (s *SpotifyService) IsTrackSaved(ctx context.Context, token, trackID string) (bool, error) {
	q := url.Values{"ids": {trackID}}

	var saved []bool
	if err := s.doRequest(ctx, token, http.MethodGet, "/me/tracks/contains", q, nil, &saved); err != nil {
		return false, err
	}

	return len(saved) > 0 && saved[0], nil
}

// SaveTracks adds tracks to the user's library in batches of 50.
func (s *SpotifyService) SaveTracks(ctx context.Context, token string, ids []string) error {
	return s.libraryWrite(ctx, token, http.MethodPut, ids)
}

// RemoveTracks deletes tracks from the user's library in batches of 50.
func (s *SpotifyService) RemoveTracks(ctx context.Context, token string, ids []string) error {
	return s.libraryWrite(ctx, token, http.MethodDelete, ids)
}

func (s *SpotifyService) libraryWrite(ctx context.Context, token, method string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		payload := map[string][]string{"ids": ids[start:end]}
		if err := s.doRequest(ctx, token, method, "/me/tracks", nil, payload, nil); err != nil {
			return err
		}
	}

	return nil
}

// SavedTracks retrieves the user's saved tracks with pagination.
func (s *SpotifyService) SavedTracks(ctx context.Context, token string, limit, offset int) (*SavedTracksPage, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}

	var response spotifyPaginatedTracks
	if err := s.doRequest(ctx, token, http.MethodGet, "/me/tracks", q, nil, &response); err != nil {
		return nil, err
	}

	page := &SavedTracksPage{
		Total:  response.Total,
		Limit:  response.Limit,
		Offset: response.Offset,
		Next:   response.Next,
		Items:  make([]SavedTrack, 0, len(response.Items)),
	}
	for _, item := range response.Items {
		page.Items = append(page.Items, SavedTrack{AddedAt: item.AddedAt, Track: item.Track.asTrack()})
	}

	return page, nil
}
