// package auth implements the token lifecycle: persistence, transparent
// refresh, and authorization-flow state tracking.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/services"
	"github.com/spotgram/spotgram/internal/shared"
)

// expiryMargin guards against clock skew and in-flight latency: a token
// within this window of its expiry is treated as already stale.
const expiryMargin = 30 * time.Second

// Notifier reacts to a token being persisted (e.g. by messaging the chat
// user). It runs on its own goroutine; errors and panics are swallowed.
type Notifier func(identity string, record models.TokenRecord) error

// Manager is the access-time gate in front of the token store.
//
// EnsureToken serializes the check-then-refresh sequence per identity with a
// keyed mutex, so two near-simultaneous stale-token accesses for the same
// user produce one refresh. Different identities never contend.
type Manager struct {
	store  models.TokenStore
	client services.TokenClient
	notify Notifier
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	pending map[string]struct{}
}

// NewManager creates a Manager over the given store and token client.
//
// notify may be nil when no one cares about persist events.
func NewManager(store models.TokenStore, client services.TokenClient, notify Notifier, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Manager{
		store:   store,
		client:  client,
		notify:  notify,
		logger:  logger,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
		pending: make(map[string]struct{}),
	}
}

// identityLock returns the mutex guarding refresh for one identity.
func (m *Manager) identityLock(identity string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[identity] = lock
	}
	return lock
}

// Begin registers identity as having an authorization flow in flight, so the
// callback listener can reject redirects for states the bot never issued.
func (m *Manager) Begin(identity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[identity] = struct{}{}
}

// Pending reports whether an authorization flow was started for state.
// Identities that already hold a token remain acceptable so a user can relink.
func (m *Manager) Pending(state string) bool {
	m.mu.Lock()
	_, ok := m.pending[state]
	m.mu.Unlock()
	if ok {
		return true
	}

	_, connected, err := m.store.Get(state)
	return err == nil && connected
}

// Connected reports whether identity has a stored token record.
func (m *Manager) Connected(identity string) bool {
	_, ok, err := m.store.Get(identity)
	return err == nil && ok
}

// SaveToken persists the record under identity and fires the notifier
// asynchronously. Notification failure never propagates: it is a best-effort
// side effect, not a step of the save.
func (m *Manager) SaveToken(identity string, record models.TokenRecord) error {
	if err := m.store.Set(identity, record); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.mu.Lock()
	delete(m.pending, identity)
	m.mu.Unlock()

	if m.notify != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Warn("token notifier panicked", "identity", identity, "panic", r)
				}
			}()
			if err := m.notify(identity, record); err != nil {
				m.logger.Warn("token notifier failed", "identity", identity, "error", err)
			}
		}()
	}

	return nil
}

// EnsureToken returns a currently-valid access token for identity,
// transparently refreshing a stale one.
//
// Errors: [shared.ErrNotConnected] when no record exists,
// [shared.ErrReauthRequired] when the record is stale and has no refresh
// token, [shared.ErrExchangeFailed] when the provider rejects the refresh.
func (m *Manager) EnsureToken(ctx context.Context, identity string) (string, error) {
	lock := m.identityLock(identity)
	lock.Lock()
	defer lock.Unlock()

	record, ok, err := m.store.Get(identity)
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", shared.ErrNotConnected, identity)
	}

	if !record.Stale(m.now(), expiryMargin) {
		return record.AccessToken, nil
	}

	if record.RefreshToken == "" {
		return "", fmt.Errorf("%w: %v", shared.ErrReauthRequired, shared.ErrNoRefreshToken)
	}

	m.logger.Debug("refreshing access token", "identity", identity)

	fresh, err := m.client.Refresh(ctx, record.RefreshToken)
	if err != nil {
		return "", err
	}

	record.ApplyRefresh(fresh)

	if err := m.SaveToken(identity, record); err != nil {
		return "", err
	}

	return record.AccessToken, nil
}
