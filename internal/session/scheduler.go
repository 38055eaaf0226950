package session

import (
	"context"
	"time"

	"github.com/opencurrents/currents-cli/internal/logger"
)

// renewLoop drives periodic token renewal while the session is
// authenticated. The ticker lives for the whole Authenticated stretch:
// successful refreshes keep it running, and it is cancelled exactly once on
// any exit from Authenticated.
//
// A failed scheduled refresh means the refresh token itself is gone; the
// session is torn down immediately rather than retried.
func (m *Manager) renewLoop(stop chan struct{}) {
	ticker := time.NewTicker(m.refreshEvery)
	defer ticker.Stop()

	logger.Debug("Renewal timer started", logger.F("interval", m.refreshEvery.String()))

	for {
		select {
		case <-ticker.C:
			if m.RefreshAccessToken(context.Background()) {
				continue
			}

			logger.Warn("Scheduled refresh failed, logging out")
			m.mu.Lock()
			var userID string
			if m.user != nil {
				userID = m.user.ID
			}
			m.mu.Unlock()
			m.teardown(userID)
			return

		case <-stop:
			logger.Debug("Renewal timer stopped")
			return
		}
	}
}
