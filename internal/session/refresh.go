package session

import (
	"context"

	"github.com/opencurrents/currents-cli/internal/logger"
)

// RefreshAccessToken exchanges the stored refresh token for a new access
// token. Returns true on success. Concurrent invocations, scheduled tick
// and manual re-validation alike, collapse into one network call and all
// callers observe the same outcome; this prevents rotation races where two
// refreshes consume the same refresh token.
//
// On success both tokens are persisted in one commit; on any failure nothing
// is written.
func (m *Manager) RefreshAccessToken(ctx context.Context) bool {
	v, _, _ := m.flight.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx), nil
	})
	return v.(bool)
}

func (m *Manager) doRefresh(ctx context.Context) bool {
	refreshToken := m.creds.RefreshToken()
	if refreshToken == "" {
		return false
	}

	m.mu.Lock()
	wasAuthenticated := m.state == Authenticated
	if wasAuthenticated {
		m.state = RefreshingToken
	}
	m.mu.Unlock()

	// RefreshingToken is transient: the session returns to Authenticated on
	// every outcome. A false return is the caller's signal to escalate; the
	// scheduler tears the session down, the restore cascade retries or
	// tears down.
	restore := func() {
		m.mu.Lock()
		if wasAuthenticated && m.state == RefreshingToken {
			m.state = Authenticated
		}
		m.mu.Unlock()
	}

	resp, err := m.refresh.Refresh(ctx, refreshToken)
	if err != nil {
		logger.Info("Token refresh failed", logger.F("error", err))
		restore()
		return false
	}

	// resp.RefreshToken is empty when the server did not rotate it; the
	// stored refresh token is then retained unchanged.
	if err := m.creds.SetTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		logger.Error("Failed to persist refreshed tokens", logger.F("error", err))
		restore()
		return false
	}

	logger.Debug("Access token refreshed", logger.F("rotated", resp.RefreshToken != ""))
	restore()
	return true
}

// startRenewalLocked starts the periodic renewal timer. Created exactly once
// per Authenticated entry; a second call while running is a no-op. Callers
// hold m.mu.
func (m *Manager) startRenewalLocked() {
	if m.stopRenew != nil {
		return
	}
	stop := make(chan struct{})
	m.stopRenew = stop
	go m.renewLoop(stop)
}

// stopRenewalLocked cancels the timer exactly once. Callers hold m.mu.
func (m *Manager) stopRenewalLocked() {
	if m.stopRenew == nil {
		return
	}
	close(m.stopRenew)
	m.stopRenew = nil
}
