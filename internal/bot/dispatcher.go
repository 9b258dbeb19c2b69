package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotgram/spotgram/internal/auth"
	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/services"
	"github.com/spotgram/spotgram/internal/shared"
)

// conversationState tracks what free-text input the bot expects next from a user.
type conversationState int

const (
	stateIdle conversationState = iota
	stateWaitingAdd
	stateWaitingDelete
)

// Dispatcher is the bot's message loop: it long-polls for updates and routes
// each message to a handler based on command, button label, or conversation
// state.
//
// Handler failures become chat messages; nothing reaching the dispatcher can
// stop the loop.
type Dispatcher struct {
	api     API
	manager *auth.Manager
	spotify services.LibraryService
	stats   models.StatsStore
	logger  *log.Logger
	now     func() time.Time

	mu        sync.Mutex
	states    map[string]conversationState
	lastShown map[string][]models.Track
}

// NewDispatcher creates a dispatcher over the given Bot API and collaborators.
func NewDispatcher(api API, manager *auth.Manager, spotify services.LibraryService, stats models.StatsStore, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Dispatcher{
		api:       api,
		manager:   manager,
		spotify:   spotify,
		stats:     stats,
		logger:    logger,
		now:       time.Now,
		states:    make(map[string]conversationState),
		lastShown: make(map[string][]models.Track),
	}
}

// Run polls for updates until ctx is canceled. Each update is handled on its
// own goroutine so a slow provider call never stalls the poll loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("bot dispatcher started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("bot dispatcher stopping")
			return ctx.Err()
		default:
		}

		updates, err := d.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warn("getUpdates failed", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go d.dispatch(ctx, update.Message)
		}
	}
}

// dispatch routes one message and converts handler errors into chat replies.
func (d *Dispatcher) dispatch(ctx context.Context, m *Message) {
	identity := m.Identity()
	text := strings.TrimSpace(m.Text)

	var err error
	switch {
	case strings.HasPrefix(text, "/start"):
		err = d.handleStart(ctx, m)
	case text == btnConnect:
		err = d.handleConnect(ctx, m)
	case text == btnAdd:
		err = d.handleAddStart(ctx, m)
	case text == btnTracks:
		err = d.handleMyTracks(ctx, m)
	case text == btnDelete:
		err = d.handleDeleteMenu(ctx, m)
	case text == btnStats:
		err = d.handleStatistics(ctx, m)
	default:
		switch d.state(identity) {
		case stateWaitingAdd:
			err = d.handleAddTrack(ctx, m)
		case stateWaitingDelete:
			err = d.handleDeleteTracks(ctx, m)
		default:
			// Unrecognized free text outside a conversation is ignored.
			return
		}
	}

	if err != nil {
		d.logger.Warn("handler failed", "identity", identity, "text", text, "error", err)
		d.replyError(ctx, m, err)
	}
}

// replyError maps token-lifecycle errors to user guidance and everything else
// to a generic failure message.
func (d *Dispatcher) replyError(ctx context.Context, m *Message, err error) {
	var text string
	switch {
	case errors.Is(err, shared.ErrNotConnected):
		text = "❌ Connect Spotify first"
	case errors.Is(err, shared.ErrReauthRequired):
		text = "❌ Your Spotify session expired. Reconnect via \"" + btnConnect + "\""
	case errors.Is(err, shared.ErrRateLimited):
		text = "⏳ Spotify is throttling us, try again in a minute"
	default:
		text = "⚠️ Something went wrong, try again later"
	}

	if sendErr := d.api.SendMessage(ctx, Outgoing{ChatID: chatID(m), Text: text}); sendErr != nil {
		d.logger.Warn("failed to send error reply", "error", sendErr)
	}
}

func (d *Dispatcher) state(identity string) conversationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[identity]
}

func (d *Dispatcher) setState(identity string, s conversationState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s == stateIdle {
		delete(d.states, identity)
		return
	}
	d.states[identity] = s
}

func (d *Dispatcher) setLastShown(identity string, tracks []models.Track) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastShown[identity] = tracks
}

func (d *Dispatcher) shown(identity string) []models.Track {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastShown[identity]
}
