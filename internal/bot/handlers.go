package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"github.com/spotgram/spotgram/internal/formatter"
	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/shared"
)

// shownLimit caps the numbered track list used by "My tracks" and the delete menu.
const shownLimit = 15

func chatID(m *Message) string {
	return strconv.FormatInt(m.Chat.ID, 10)
}

func (d *Dispatcher) send(ctx context.Context, m *Message, text string, keyboard *ReplyKeyboardMarkup) error {
	return d.api.SendMessage(ctx, Outgoing{
		ChatID:                chatID(m),
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           keyboard,
	})
}

// handleStart greets the user and resets any conversation in progress.
func (d *Dispatcher) handleStart(ctx context.Context, m *Message) error {
	identity := m.Identity()
	d.setState(identity, stateIdle)

	firstName := "there"
	if m.From != nil && m.From.FirstName != "" {
		firstName = m.From.FirstName
	}

	return d.send(ctx, m, formatter.Greeting(firstName, d.manager.Connected(identity)), mainKeyboard())
}

// handleConnect issues an authorization URL bound to the user identity.
func (d *Dispatcher) handleConnect(ctx context.Context, m *Message) error {
	identity := m.Identity()
	d.manager.Begin(identity)
	url := d.spotify.AuthURL(identity)

	text := fmt.Sprintf("🔐 <b>Spotify authorization</b>\n\n<a href=\"%s\">👉 Connect Spotify</a>", url)
	return d.send(ctx, m, text, nil)
}

// handleAddStart opens the add-track conversation.
func (d *Dispatcher) handleAddStart(ctx context.Context, m *Message) error {
	identity := m.Identity()
	if !d.manager.Connected(identity) {
		return d.send(ctx, m, "❌ Connect Spotify first", nil)
	}

	d.setState(identity, stateWaitingAdd)
	return d.send(ctx, m, "🎵 Send a track name\nExample: Track Name or Artist - Track Name", nil)
}

// handleAddTrack searches the provider for the user's query and saves the
// best match, updating usage statistics.
func (d *Dispatcher) handleAddTrack(ctx context.Context, m *Message) error {
	identity := m.Identity()
	d.setState(identity, stateIdle)

	token, err := d.manager.EnsureToken(ctx, identity)
	if err != nil {
		return err
	}

	track, err := d.spotify.SearchTrack(ctx, token, m.Text)
	if errors.Is(err, shared.ErrTrackNotFound) {
		return d.send(ctx, m, "⚠️ Track not found", nil)
	}
	if err != nil {
		return err
	}

	saved, err := d.spotify.IsTrackSaved(ctx, token, track.ID)
	if err != nil {
		return err
	}
	if saved {
		return d.send(ctx, m, "ℹ️ This track is already in your library", nil)
	}

	if err := d.spotify.SaveTracks(ctx, token, []string{track.ID}); err != nil {
		return err
	}

	if err := d.stats.RecordAdd(identity, track.Artist, d.now()); err != nil {
		d.logger.Warn("failed to record add", "identity", identity, "error", err)
	}

	if track.Image != "" {
		return d.api.SendPhoto(ctx, OutgoingPhoto{
			ChatID:    chatID(m),
			Photo:     track.Image,
			Caption:   formatter.TrackAdded(*track),
			ParseMode: "HTML",
		})
	}
	return d.send(ctx, m, formatter.TrackAdded(*track), nil)
}

// collectTracks fetches the most recently saved tracks (up to shownLimit) and
// remembers them as the numbered list subsequent delete commands refer to.
func (d *Dispatcher) collectTracks(ctx context.Context, identity string) ([]models.Track, int, error) {
	token, err := d.manager.EnsureToken(ctx, identity)
	if err != nil {
		return nil, 0, err
	}

	meta, err := d.spotify.SavedTracks(ctx, token, 1, 0)
	if err != nil {
		return nil, 0, err
	}

	var tracks []models.Track
	if meta.Total > 0 {
		offset := max(meta.Total-shownLimit, 0)
		page, err := d.spotify.SavedTracks(ctx, token, shownLimit, offset)
		if err != nil {
			return nil, 0, err
		}
		for _, item := range page.Items {
			tracks = append(tracks, item.Track)
		}
	}

	d.setLastShown(identity, tracks)
	return tracks, meta.Total, nil
}

// handleMyTracks lists the most recently saved tracks.
func (d *Dispatcher) handleMyTracks(ctx context.Context, m *Message) error {
	tracks, _, err := d.collectTracks(ctx, m.Identity())
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		return d.send(ctx, m, "📭 You have no saved tracks", nil)
	}

	return d.send(ctx, m, formatter.TrackList("🎧 <b>Recent tracks:</b>", tracks), nil)
}

// handleDeleteMenu shows the numbered list and opens the delete conversation.
func (d *Dispatcher) handleDeleteMenu(ctx context.Context, m *Message) error {
	identity := m.Identity()

	tracks, _, err := d.collectTracks(ctx, identity)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		return d.send(ctx, m, "📭 Nothing to delete", nil)
	}

	d.setState(identity, stateWaitingDelete)
	return d.send(ctx, m, formatter.TrackList("Send the numbers of tracks to delete:", tracks), nil)
}

// handleDeleteTracks removes the tracks picked by number from the last shown list.
func (d *Dispatcher) handleDeleteTracks(ctx context.Context, m *Message) error {
	identity := m.Identity()
	shown := d.shown(identity)

	numbers := formatter.ParseNumbers(m.Text, len(shown))
	if len(numbers) == 0 {
		return d.send(ctx, m, "❌ Invalid format", nil)
	}
	d.setState(identity, stateIdle)

	token, err := d.manager.EnsureToken(ctx, identity)
	if err != nil {
		return err
	}

	// Delete from the end so earlier numbers stay valid against the shown list.
	sort.Sort(sort.Reverse(sort.IntSlice(numbers)))

	var deleted []string
	for _, n := range numbers {
		track := shown[n-1]
		if err := d.spotify.RemoveTracks(ctx, token, []string{track.ID}); err != nil {
			return err
		}
		if err := d.stats.RecordDelete(identity); err != nil {
			d.logger.Warn("failed to record delete", "identity", identity, "error", err)
		}
		deleted = append(deleted, fmt.Sprintf("%s — %s", html.EscapeString(track.Artist), html.EscapeString(track.Title)))
	}

	for i, j := 0, len(deleted)-1; i < j; i, j = i+1, j-1 {
		deleted[i], deleted[j] = deleted[j], deleted[i]
	}

	return d.send(ctx, m, "<b>Deleted tracks:</b>\n\n"+strings.Join(deleted, "\n"), nil)
}

// handleStatistics reports usage counters alongside the live library total.
func (d *Dispatcher) handleStatistics(ctx context.Context, m *Message) error {
	identity := m.Identity()

	stats, err := d.stats.Stats(identity)
	if err != nil {
		return err
	}

	_, total, err := d.collectTracks(ctx, identity)
	if err != nil {
		return err
	}

	favorite, err := d.stats.FavoriteArtist(identity)
	if err != nil {
		d.logger.Warn("failed to load favorite artist", "identity", identity, "error", err)
	}

	return d.send(ctx, m, formatter.Statistics(stats, total, favorite, d.now()), nil)
}
