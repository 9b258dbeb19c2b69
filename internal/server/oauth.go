package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spotgram/spotgram/internal/auth"
	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/services"
)

// Exchanger is the slice of the provider API the callback needs: turning an
// authorization code into tokens and resolving the provider-side user id.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (models.TokenRecord, error)
	Profile(ctx context.Context, token string) (*services.SpotifyUser, error)
}

// CallbackHandler handles OAuth2 authorization-code redirects for every bot
// user. Implements the [Handler] interface for registration with a [Router].
//
// Unlike a single-shot CLI flow, the handler stays up for the life of the
// process and correlates each redirect with a chat user through the state
// parameter, which carries the user identity that initiated the flow.
type CallbackHandler struct {
	manager *auth.Manager
	spotify Exchanger
	logger  *log.Logger
}

// NewCallbackHandler creates a callback handler persisting through manager.
func NewCallbackHandler(manager *auth.Manager, spotify Exchanger, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{
		manager: manager,
		spotify: spotify,
		logger:  logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles one authorization redirect.
//
// Exchanges the code, resolves the Spotify user id with the fresh token,
// persists the record under identity = state, and answers with a
// human-readable status. Failures never crash the listener; they surface as
// HTTP statuses and log lines only.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	if code == "" || state == "" {
		http.Error(w, "Missing code or state", http.StatusBadRequest)
		return
	}

	if !h.manager.Pending(state) {
		h.logger.Warn("callback with unknown state", "state", state)
		http.Error(w, "Unknown state parameter", http.StatusBadRequest)
		return
	}

	record, err := h.spotify.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", "state", state, "error", err)
		http.Error(w, fmt.Sprintf("OAuth error: %v", err), http.StatusInternalServerError)
		return
	}

	profile, err := h.spotify.Profile(r.Context(), record.AccessToken)
	if err != nil {
		h.logger.Error("profile fetch failed", "state", state, "error", err)
		http.Error(w, fmt.Sprintf("OAuth error: %v", err), http.StatusInternalServerError)
		return
	}
	record.SpotifyUserID = profile.ID

	if err := h.manager.SaveToken(state, record); err != nil {
		h.logger.Error("token persist failed", "state", state, "error", err)
		http.Error(w, fmt.Sprintf("OAuth error: %v", err), http.StatusInternalServerError)
		return
	}

	h.logger.Info("spotify account linked", "identity", state, "spotify_user", profile.ID)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Spotify connected. You can return to the bot.")
}
