// Package credstore is the durable credential store: two token strings with
// advisory lifetimes, a JSON snapshot of the user record, and a per-install
// instance ID. It survives process restarts and is written only by the
// session manager.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencurrents/currents-cli/internal/logger"
	"github.com/opencurrents/currents-cli/internal/model"
)

const (
	storeFile = "credentials.json"
	keyFile   = "credentials.key"
)

// storedToken is a sealed token plus its advisory expiry. The expiry controls
// when this client stops presenting the token; the server's own expiry is
// authoritative.
type storedToken struct {
	Sealed    string    `json:"sealed"`
	ExpiresAt time.Time `json:"expires_at"`
}

type storeState struct {
	InstanceID string            `json:"instance_id"`
	Access     *storedToken      `json:"access_token,omitempty"`
	Refresh    *storedToken      `json:"refresh_token,omitempty"`
	User       *model.UserRecord `json:"user,omitempty"`
}

// Store is the on-disk credential store. All mutating operations stage a full
// copy of the state and commit it with a rename, so a failed write never
// leaves a new access token paired with a stale refresh token.
type Store struct {
	path string
	box  *sealer

	mu      sync.Mutex
	state   storeState
	access  string // unsealed, empty when absent
	refresh string
}

// Open opens or creates the store under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, keyFile))
	if err != nil {
		return nil, err
	}
	box, err := newSealer(key)
	if err != nil {
		return nil, err
	}

	s := &Store{
		path: filepath.Join(dir, storeFile),
		box:  box,
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.state.InstanceID = uuid.NewString()
		if err := s.commit(s.state); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	if err := json.Unmarshal(data, &s.state); err != nil {
		// A corrupted store loses the session but must not brick the client.
		logger.Warn("Credential store corrupted, starting fresh", logger.F("error", err))
		s.state = storeState{InstanceID: uuid.NewString()}
		if err := s.commit(s.state); err != nil {
			return nil, err
		}
		return s, nil
	}
	if s.state.InstanceID == "" {
		s.state.InstanceID = uuid.NewString()
		if err := s.commit(s.state); err != nil {
			return nil, err
		}
	}

	s.access = s.unseal(s.state.Access)
	s.refresh = s.unseal(s.state.Refresh)
	return s, nil
}

func (s *Store) unseal(tok *storedToken) string {
	if tok == nil {
		return ""
	}
	if time.Now().After(tok.ExpiresAt) {
		return ""
	}
	plain, err := s.box.open(tok.Sealed)
	if err != nil {
		logger.Warn("Failed to unseal stored token", logger.F("error", err))
		return ""
	}
	return plain
}

// InstanceID returns the per-install identifier.
func (s *Store) InstanceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.InstanceID
}

// AccessToken returns the stored access token, or "" when absent or past its
// advisory expiry. Satisfies the transport's TokenSource.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// RefreshToken returns the stored refresh token, or "" when absent or past
// its advisory expiry.
func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

// Tokens returns the stored pair. Advisory-expired tokens read as absent,
// same as the individual accessors.
func (s *Store) Tokens() model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.TokenPair{AccessToken: s.access, RefreshToken: s.refresh}
}

// TokenExpiries returns the advisory expiry of each stored token. A zero
// time means the token is absent or already past its advisory window.
func (s *Store) TokenExpiries() (access, refresh time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Access != nil && s.access != "" {
		access = s.state.Access.ExpiresAt
	}
	if s.state.Refresh != nil && s.refresh != "" {
		refresh = s.state.Refresh.ExpiresAt
	}
	return access, refresh
}

// User returns a copy of the mirrored user snapshot, or nil.
func (s *Store) User() *model.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// SetTokens persists a token pair. An empty refresh keeps the existing
// refresh token, covering servers that do not rotate it on refresh. Both
// writes land in one commit or not at all.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokensLocked(access, refresh)
}

func (s *Store) setTokensLocked(access, refresh string) error {
	next := s.state
	nextRefresh := s.refresh

	sealed, err := s.box.seal(access)
	if err != nil {
		return err
	}
	next.Access = &storedToken{Sealed: sealed, ExpiresAt: time.Now().Add(model.AccessTokenLifetime)}

	if refresh != "" {
		sealed, err := s.box.seal(refresh)
		if err != nil {
			return err
		}
		next.Refresh = &storedToken{Sealed: sealed, ExpiresAt: time.Now().Add(model.RefreshTokenLifetime)}
		nextRefresh = refresh
	}

	if err := s.commit(next); err != nil {
		return err
	}
	s.state = next
	s.access = access
	s.refresh = nextRefresh
	return nil
}

// SetUser rewrites the user snapshot mirror.
func (s *Store) SetUser(u model.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.User = &u
	if err := s.commit(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// SetSession persists tokens and user snapshot in a single commit. Used on
// login so a crash cannot leave tokens without an identity to pair them with.
func (s *Store) SetSession(access, refresh string, u model.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.state
	s.state.User = &u
	if err := s.setTokensLocked(access, refresh); err != nil {
		s.state = saved
		return err
	}
	return nil
}

// ClearSession deletes both tokens and the user snapshot. The instance ID
// survives; it identifies the install, not the account.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.Access = nil
	next.Refresh = nil
	next.User = nil
	if err := s.commit(next); err != nil {
		return err
	}
	s.state = next
	s.access = ""
	s.refresh = ""
	return nil
}

// commit writes the state through a temp file and rename so readers never
// observe a partially written store.
func (s *Store) commit(state storeState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit credential store: %w", err)
	}
	return nil
}
