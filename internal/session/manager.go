// Package session owns the authenticated-session lifecycle: restoration on
// startup, validation, token refresh, periodic renewal, passport sync, and
// teardown. It holds the only authoritative in-memory user record; the
// credential store and passport cache are durable mirrors written through it.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/opencurrents/currents-cli/internal/api"
	"github.com/opencurrents/currents-cli/internal/config"
	"github.com/opencurrents/currents-cli/internal/credstore"
	"github.com/opencurrents/currents-cli/internal/logger"
	"github.com/opencurrents/currents-cli/internal/model"
	"github.com/opencurrents/currents-cli/internal/passport"
)

// Manager coordinates the session lifecycle. Construct one per process with
// NewManager; it is not a package-level singleton so tests can run isolated
// instances.
type Manager struct {
	api     *api.Client
	refresh *api.RefreshClient
	creds   *credstore.Store
	cache   *passport.Cache
	votes   passport.Invalidator

	refreshEvery time.Duration

	mu          sync.Mutex
	state       State
	user        *model.UserRecord
	loading     bool
	loadingDone bool          // loading flips false at most once
	stopRenew   chan struct{} // non-nil exactly while the renewal timer runs

	flight     singleflight.Group
	passportWG sync.WaitGroup
}

// Options tunes a Manager. Zero values fall back to defaults.
type Options struct {
	// RefreshInterval is the periodic renewal cadence while authenticated.
	RefreshInterval time.Duration
	// Invalidator is notified on every identity change. Optional.
	Invalidator passport.Invalidator
}

// NewManager wires the session manager to its collaborators.
func NewManager(apiClient *api.Client, refreshClient *api.RefreshClient, creds *credstore.Store, cache *passport.Cache, opts Options) *Manager {
	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = config.DefaultRefreshInterval
	}

	return &Manager{
		api:          apiClient,
		refresh:      refreshClient,
		creds:        creds,
		cache:        cache,
		votes:        opts.Invalidator,
		refreshEvery: interval,
		state:        Uninitialized,
		loading:      true,
	}
}

// User returns a copy of the current user record, or nil when anonymous.
func (m *Manager) User() *model.UserRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Loading reports whether restoration has not yet reached a terminal state.
// While true, a nil User means "unknown", not "anonymous".
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TokenExpiries reports the advisory expiry of the stored token pair. Zero
// times mean the corresponding token is absent.
func (m *Manager) TokenExpiries() (access, refresh time.Time) {
	return m.creds.TokenExpiries()
}

// Close cancels the renewal timer and waits for in-flight passport syncs.
// The session itself is left intact for the next start.
func (m *Manager) Close() {
	m.mu.Lock()
	m.stopRenewalLocked()
	m.mu.Unlock()
	m.passportWG.Wait()
}

// setUserLocked replaces the in-memory record and rewrites the durable
// mirror. Callers hold m.mu.
func (m *Manager) setUserLocked(u model.UserRecord) {
	m.user = &u
	if err := m.creds.SetUser(u); err != nil {
		logger.Warn("Failed to mirror user snapshot", logger.F("error", err))
	}
}

// finishLoadingLocked flips loading false; subsequent calls are no-ops.
func (m *Manager) finishLoadingLocked() {
	if m.loadingDone {
		return
	}
	m.loading = false
	m.loadingDone = true
}

func (m *Manager) invalidateVotes(userID string) {
	if m.votes != nil {
		m.votes.InvalidateVotes(userID)
	}
}

// Login authenticates and establishes a fresh session. Error kinds follow
// the transport taxonomy: InvalidCredentials on 401, MalformedRequest on
// 400, Unreachable on network failure.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.UserRecord, error) {
	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		logger.Info("Login failed", logger.F("kind", api.KindOf(err).String()))
		return nil, err
	}

	// Membership entries from any previously stored identity must be
	// unreadable in the new session, scoped and legacy formats both.
	if err := m.cache.PurgeMemberships(); err != nil {
		logger.Warn("Failed to purge membership cache", logger.F("error", err))
	}

	m.mu.Lock()
	base := model.UserRecord{}
	if prev := m.user; prev != nil && resp.ID != nil && prev.ID == *resp.ID {
		base = *prev
	}
	record := base.Apply(resp.UserPatch)

	if prev := m.creds.User(); prev != nil && prev.ID != record.ID {
		// Device reuse by a different account: every cached entry goes, not
		// just the previous identity's.
		if err := m.cache.PurgeAll(); err != nil {
			logger.Warn("Failed to purge cache on identity change", logger.F("error", err))
		}
	}

	if err := m.creds.SetSession(resp.AccessToken, resp.RefreshToken, record); err != nil {
		m.mu.Unlock()
		return nil, err
	}

	m.user = &record
	m.state = Authenticated
	m.finishLoadingLocked()
	m.startRenewalLocked()
	m.mu.Unlock()

	m.invalidateVotes(record.ID)
	m.syncPassport(ctx, record.ID)

	logger.Info("Logged in", logger.F("user_id", record.ID))
	return m.User(), nil
}

// Logout tears the session down unconditionally: server notification is best
// effort, then tokens, mirror, passport and membership entries, and the
// in-memory record are all cleared. Safe to call when already logged out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	var userID string
	if m.user != nil {
		userID = m.user.ID
	} else if stored := m.creds.User(); stored != nil {
		// Logout without a prior restore still purges the stored identity.
		userID = stored.ID
	}
	hadToken := m.creds.AccessToken() != ""
	m.mu.Unlock()

	if hadToken {
		if err := m.api.Logout(ctx); err != nil {
			logger.Debug("Server logout failed, continuing teardown", logger.F("error", err))
		}
	}

	m.teardown(userID)
	return nil
}

// teardown is the shared unconditional cleanup used by Logout and by
// unrecoverable refresh failures.
func (m *Manager) teardown(userID string) {
	m.mu.Lock()
	m.stopRenewalLocked()
	m.user = nil
	m.state = Anonymous
	m.finishLoadingLocked()
	m.mu.Unlock()

	if err := m.creds.ClearSession(); err != nil {
		logger.Warn("Failed to clear credential store", logger.F("error", err))
	}
	if userID != "" {
		if err := m.cache.PurgeUser(userID); err != nil {
			logger.Warn("Failed to purge passport cache", logger.F("error", err))
		}
	}
	// Legacy unscoped membership keys are not tied to a user id; clear them
	// all.
	if err := m.cache.PurgeMemberships(); err != nil {
		logger.Warn("Failed to purge membership cache", logger.F("error", err))
	}

	m.invalidateVotes(userID)
	logger.Info("Session torn down")
}

// Register creates an account. When the backend returns a token the
// registration doubles as a login; otherwise the session stays anonymous
// pending an explicit Login.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*model.UserRecord, error) {
	resp, err := m.api.Register(ctx, username, email, password)
	if err != nil {
		logger.Info("Registration failed", logger.F("kind", api.KindOf(err).String()))
		return nil, err
	}

	record := model.UserRecord{}.Apply(resp.UserPatch)

	if resp.Token == "" {
		logger.Info("Registered without token, staying anonymous")
		return &record, nil
	}

	if err := m.cache.PurgeMemberships(); err != nil {
		logger.Warn("Failed to purge membership cache", logger.F("error", err))
	}

	m.mu.Lock()
	if err := m.creds.SetSession(resp.Token, "", record); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.user = &record
	m.state = Authenticated
	m.finishLoadingLocked()
	m.startRenewalLocked()
	m.mu.Unlock()

	m.invalidateVotes(record.ID)
	m.syncPassport(ctx, record.ID)

	logger.Info("Registered and logged in", logger.F("user_id", record.ID))
	return m.User(), nil
}

// ReloadProfile fetches the server's current view of the profile and merges
// it onto the session record, rewriting the durable mirror. Membership fields
// are untouched; they belong to the passport sync.
func (m *Manager) ReloadProfile(ctx context.Context) (*model.UserRecord, error) {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	m.mu.Unlock()

	patch, err := m.api.Me(ctx)
	if err != nil {
		logger.Info("Profile reload failed", logger.F("kind", api.KindOf(err).String()))
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil, ErrNotAuthenticated
	}
	record := m.user.Apply(*patch)
	m.setUserLocked(record)
	u := record
	return &u, nil
}

// UpdateProfile merges a partial edit onto the current record and rewrites
// the durable mirror. The caller is responsible for having persisted the
// change server-side already; no backend call is made here.
func (m *Manager) UpdateProfile(p model.UserPatch) (*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil, ErrNotAuthenticated
	}

	record := m.user.Apply(p)
	m.setUserLocked(record)
	u := record
	return &u, nil
}
