// package formatter renders chat messages (HTML parse mode) and parses user input
package formatter

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spotgram/spotgram/internal/models"
)

var numberPattern = regexp.MustCompile(`\d+`)

// ParseNumbers extracts the distinct integers from free text that fall in
// [1, max], sorted ascending. Used for the delete-by-number conversation.
func ParseNumbers(text string, max int) []int {
	seen := make(map[int]struct{})
	for _, match := range numberPattern.FindAllString(text, -1) {
		n, err := strconv.Atoi(match)
		if err != nil || n < 1 || n > max {
			continue
		}
		seen[n] = struct{}{}
	}

	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// HumanTime converts a time to the display format used in statistics,
// or an em dash for the zero value.
func HumanTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02.01.2006 15:04:05")
}

// TrackLine renders one numbered "artist — title" line.
func TrackLine(n int, track models.Track) string {
	return fmt.Sprintf("%d. %s — %s", n, track.Artist, track.Title)
}

// TrackList renders a numbered track list under an optional HTML header line.
func TrackList(header string, tracks []models.Track) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	for i, track := range tracks {
		b.WriteString(TrackLine(i+1, track))
		b.WriteString("\n")
	}
	return b.String()
}

// Greeting renders the /start message for a user.
func Greeting(firstName string, connected bool) string {
	status := "❌ not connected"
	if connected {
		status = "✅ connected"
	}

	return fmt.Sprintf(
		"👋 <b>Hi, %s!</b>\n\n🎧 Spotify: %s\n\nI can manage your Spotify library right from Telegram.",
		html.EscapeString(firstName), status,
	)
}

// TrackAdded renders the confirmation caption for a freshly saved track.
func TrackAdded(track models.Track) string {
	return fmt.Sprintf(
		"✅ <b>Track added</b>\n\n🎤 %s\n🎵 <b>%s</b>",
		html.EscapeString(track.Artist), html.EscapeString(track.Title),
	)
}

// Statistics renders the usage statistics message.
//
// The adds-per-day average counts from the first add, with a floor of one day
// so fresh accounts don't divide by zero.
func Statistics(stats models.Stats, totalTracks int, favoriteArtist string, now time.Time) string {
	if favoriteArtist == "" {
		favoriteArtist = "—"
	}

	days := 1
	if !stats.FirstAdd.IsZero() {
		if d := int(now.Sub(stats.FirstAdd).Hours() / 24); d > 1 {
			days = d
		}
	}
	avg := float64(stats.Added) / float64(days)

	var b strings.Builder
	b.WriteString("📊 <b>Your statistics</b>\n\n")
	fmt.Fprintf(&b, "➕ Added through the bot: %d\n", stats.Added)
	fmt.Fprintf(&b, "🎶 Total tracks on Spotify: %d\n", totalTracks)
	fmt.Fprintf(&b, "🗑 Deleted: %d\n\n", stats.Deleted)
	fmt.Fprintf(&b, "🎤 Favorite artist: %s\n\n", html.EscapeString(favoriteArtist))
	fmt.Fprintf(&b, "📅 First track: %s\n", HumanTime(stats.FirstAdd))
	fmt.Fprintf(&b, "🕒 Last track: %s\n", HumanTime(stats.LastAdd))
	fmt.Fprintf(&b, "⚡ Adds per day: %.2f", avg)
	return b.String()
}
