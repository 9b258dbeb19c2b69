package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spotgram/spotgram/internal/shared"
	"golang.org/x/time/rate"
)

func newTestService(t *testing.T) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
		"redirect_uri":  "http://localhost:8080/callback",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.limiter = rate.NewLimiter(rate.Inf, 0)
	srv.sleep = func(time.Duration) {}
	return srv
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("With Valid Credentials", func(t *testing.T) {
		srv := newTestService(t)
		if srv.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", srv.Name())
		}
	})

	t.Run("Missing Client ID", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_secret": "s"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Missing Client Secret", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_id": "c"})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Custom Scopes", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "c",
			"client_secret": "s",
			"scopes":        "user-library-read user-library-modify",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(srv.config.Scopes) != 2 {
			t.Errorf("expected 2 scopes, got %v", srv.config.Scopes)
		}
	})
}

func TestAuthURL(t *testing.T) {
	srv := newTestService(t)

	t.Run("Contains Required Parameters", func(t *testing.T) {
		authURL := srv.AuthURL("123")

		parsed, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("auth URL does not parse: %v", err)
		}

		q := parsed.Query()
		if q.Get("client_id") != "test_client_id" {
			t.Errorf("expected client_id in auth URL, got %q", q.Get("client_id"))
		}
		if q.Get("response_type") != "code" {
			t.Errorf("expected response_type=code, got %q", q.Get("response_type"))
		}
		if q.Get("state") != "123" {
			t.Errorf("expected state=123, got %q", q.Get("state"))
		}
		if q.Get("show_dialog") != "true" {
			t.Errorf("expected show_dialog=true, got %q", q.Get("show_dialog"))
		}
		if q.Get("redirect_uri") != "http://localhost:8080/callback" {
			t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
		}
		if !strings.Contains(authURL, "state=123") {
			t.Error("auth URL should contain state=123 substring")
		}
	})

	t.Run("State Is Percent Encoded", func(t *testing.T) {
		authURL := srv.AuthURL("user with spaces&=")

		parsed, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("auth URL does not parse: %v", err)
		}
		if got := parsed.Query().Get("state"); got != "user with spaces&=" {
			t.Errorf("state did not round-trip through encoding, got %q", got)
		}
	})
}

func TestTokenExchanges(t *testing.T) {
	t.Run("Exchange Computes Absolute Expiry", func(t *testing.T) {
		var gotGrant, gotCode string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "test_client_id" || pass != "test_client_secret" {
				t.Errorf("expected basic auth with client credentials, got %q/%q", user, pass)
			}
			r.ParseForm()
			gotGrant = r.PostForm.Get("grant_type")
			gotCode = r.PostForm.Get("code")

			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "a",
				"refresh_token": "r",
				"expires_in":    3600,
				"scope":         "user-library-read",
			})
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.config.Endpoint.TokenURL = ts.URL

		before := time.Now().Unix()
		record, err := srv.Exchange(context.Background(), "abc")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if gotGrant != "authorization_code" || gotCode != "abc" {
			t.Errorf("unexpected grant request: grant_type=%q code=%q", gotGrant, gotCode)
		}
		if record.AccessToken != "a" || record.RefreshToken != "r" {
			t.Errorf("unexpected record %+v", record)
		}
		if record.ExpiresAt < before+3600 || record.ExpiresAt > time.Now().Unix()+3600 {
			t.Errorf("expires_at not ≈ now+3600: %d", record.ExpiresAt)
		}
	})

	t.Run("Refresh May Omit Refresh Token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
				t.Errorf("expected refresh_token grant, got %q", got)
			}
			if got := r.PostForm.Get("refresh_token"); got != "old_refresh" {
				t.Errorf("expected refresh_token=old_refresh, got %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "new_access", "expires_in": 3600})
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.config.Endpoint.TokenURL = ts.URL

		record, err := srv.Refresh(context.Background(), "old_refresh")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.AccessToken != "new_access" {
			t.Errorf("expected new access token, got %q", record.AccessToken)
		}
		if record.RefreshToken != "" {
			t.Errorf("expected empty refresh token, got %q", record.RefreshToken)
		}
	})

	t.Run("Non-2xx Is Exchange Failure", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.config.Endpoint.TokenURL = ts.URL

		_, err := srv.Exchange(context.Background(), "bad")
		if !errors.Is(err, shared.ErrExchangeFailed) {
			t.Errorf("expected ErrExchangeFailed, got %v", err)
		}
	})

	t.Run("Missing Expiry Defaults To An Hour", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"access_token": "a"})
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.config.Endpoint.TokenURL = ts.URL
		srv.now = func() time.Time { return time.Unix(1000, 0) }

		record, err := srv.Exchange(context.Background(), "abc")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.ExpiresAt != 1000+3600 {
			t.Errorf("expected default 3600s expiry, got %d", record.ExpiresAt)
		}
	})
}

func TestRateLimitedRequests(t *testing.T) {
	t.Run("Single 429 Retries Once And Succeeds", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer header, got %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "spotify_user"})
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		var slept time.Duration
		srv.sleep = func(d time.Duration) { slept = d }

		user, err := srv.Profile(context.Background(), "tok")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if user.ID != "spotify_user" {
			t.Errorf("expected profile payload, got %+v", user)
		}
		if calls.Load() != 2 {
			t.Errorf("expected exactly one retry (2 calls), got %d", calls.Load())
		}
		if slept != 3*time.Second+retryAfterPadding {
			t.Errorf("expected sleep of Retry-After plus padding, got %v", slept)
		}
	})

	t.Run("Missing Retry-After Defaults To One Second", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "u"})
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		var slept time.Duration
		srv.sleep = func(d time.Duration) { slept = d }

		if _, err := srv.Profile(context.Background(), "tok"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if slept != time.Second+retryAfterPadding {
			t.Errorf("expected 1s default wait plus padding, got %v", slept)
		}
	})

	t.Run("Second 429 Surfaces As Rate Limited", func(t *testing.T) {
		var calls atomic.Int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		_, err := srv.Profile(context.Background(), "tok")
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected no third attempt, got %d calls", calls.Load())
		}
	})

	t.Run("Other Non-2xx Is API Error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		_, err := srv.Profile(context.Background(), "tok")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("204 Leaves Result Untouched", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		var result map[string]any
		if err := srv.doRequest(context.Background(), "tok", http.MethodGet, "/me", nil, nil, &result); err != nil {
			t.Fatalf("expected no error on 204, got %v", err)
		}
		if result != nil {
			t.Errorf("expected untouched result, got %v", result)
		}
	})
}

func TestLibraryOperations(t *testing.T) {
	t.Run("SearchTrack Maps Best Match", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("type") != "track" || q.Get("limit") != "1" {
				t.Errorf("unexpected search query %v", q)
			}
			fmt.Fprint(w, `{"tracks":{"items":[{
				"id":"t1","name":"Song",
				"artists":[{"name":"A"},{"name":"B"}],
				"album":{"name":"Album","images":[{"url":"http://img"}]}
			}]}}`)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		track, err := srv.SearchTrack(context.Background(), "tok", "song")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if track.Artist != "A, B" || track.Title != "Song" || track.Image != "http://img" {
			t.Errorf("unexpected track mapping %+v", track)
		}
	})

	t.Run("SearchTrack Not Found", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"tracks":{"items":[]}}`)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		_, err := srv.SearchTrack(context.Background(), "tok", "nothing")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("IsTrackSaved", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[true]`)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		saved, err := srv.IsTrackSaved(context.Background(), "tok", "t1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !saved {
			t.Error("expected track to be reported saved")
		}
	})

	t.Run("Library Writes Chunk By Fifty", func(t *testing.T) {
		var bodies []map[string][]string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut {
				t.Errorf("expected PUT, got %s", r.Method)
			}
			var body map[string][]string
			json.NewDecoder(r.Body).Decode(&body)
			bodies = append(bodies, body)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		ids := make([]string, 120)
		for i := range ids {
			ids[i] = fmt.Sprintf("id%d", i)
		}

		if err := srv.SaveTracks(context.Background(), "tok", ids); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(bodies) != 3 {
			t.Fatalf("expected 3 batches, got %d", len(bodies))
		}
		if len(bodies[0]["ids"]) != 50 || len(bodies[2]["ids"]) != 20 {
			t.Errorf("unexpected batch sizes %d/%d/%d", len(bodies[0]["ids"]), len(bodies[1]["ids"]), len(bodies[2]["ids"]))
		}
	})

	t.Run("Empty Write Is Invalid", func(t *testing.T) {
		srv := newTestService(t)
		if err := srv.RemoveTracks(context.Background(), "tok", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("SavedTracks Pagination", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("limit") != "15" || q.Get("offset") != "85" {
				t.Errorf("unexpected pagination query %v", q)
			}
			fmt.Fprint(w, `{"total":100,"limit":15,"offset":85,"items":[
				{"added_at":"2024-01-01","track":{"id":"t1","name":"One","artists":[{"name":"A"}]}}
			]}`)
		}))
		defer ts.Close()

		srv := newTestService(t)
		srv.baseURL = ts.URL

		page, err := srv.SavedTracks(context.Background(), "tok", 15, 85)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.Total != 100 || len(page.Items) != 1 || page.Items[0].Track.Title != "One" {
			t.Errorf("unexpected page %+v", page)
		}
	})
}
