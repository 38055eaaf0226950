package session

import (
	"context"

	"github.com/opencurrents/currents-cli/internal/logger"
	"github.com/opencurrents/currents-cli/internal/model"
)

// syncPassport runs the two-phase passport pass after a successful login or
// validation. Phase one populates membership fields immediately from the
// local cache (possibly stale), falling back to a plain fetch when the cache
// is cold. Phase two forces server reconciliation in the background and
// re-merges, giving fast initial state with eventual correctness.
//
// Both phases are best effort: a failure keeps whatever is cached and never
// surfaces an error to the user.
func (m *Manager) syncPassport(ctx context.Context, userID string) {
	cached, err := m.cache.Passport(userID)
	if err != nil {
		logger.Warn("Passport cache read failed", logger.F("error", err))
	}

	if cached != nil {
		m.mergePassport(*cached)
	} else if fetched, err := m.api.FetchPassport(ctx); err == nil {
		fetched.UserID = userID
		m.storePassport(*fetched)
		m.mergePassport(*fetched)
	} else {
		logger.Debug("Passport fetch failed", logger.F("error", err))
	}

	m.passportWG.Add(1)
	go func() {
		defer m.passportWG.Done()
		m.forceSyncPassport(context.WithoutCancel(ctx), userID)
	}()
}

// forceSyncPassport asks the backend to reconcile and replaces the cached
// projection wholesale.
func (m *Manager) forceSyncPassport(ctx context.Context, userID string) {
	fresh, err := m.api.SyncPassport(ctx)
	if err != nil {
		// Keep cached data; silent background failures never surface.
		logger.Info("Passport sync failed, keeping cached data", logger.F("error", err))
		return
	}

	fresh.UserID = userID
	m.storePassport(*fresh)
	m.mergePassport(*fresh)
	logger.Debug("Passport synced", logger.F("groups", len(fresh.Groups)))
}

// storePassport writes the full projection plus per-timeline membership
// entries in the scoped key format.
func (m *Manager) storePassport(p model.Passport) {
	if err := m.cache.PutPassport(p); err != nil {
		logger.Warn("Failed to cache passport", logger.F("error", err))
		return
	}
	for _, g := range p.Groups {
		if err := m.cache.PutMembership(p.UserID, g.TimelineID, g); err != nil {
			logger.Warn("Failed to cache membership", logger.F("error", err))
		}
	}
}

// mergePassport applies membership-derived fields onto the current record.
// Profile fields edited while the sync was in flight are left untouched, and
// the merge is dropped entirely if the identity changed underneath it.
func (m *Manager) mergePassport(p model.Passport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil || m.user.ID != p.UserID {
		return
	}
	record := m.user.ApplyPassport(p)
	m.setUserLocked(record)
}

// WaitPassportSync blocks until in-flight background passport syncs finish.
func (m *Manager) WaitPassportSync() {
	m.passportWG.Wait()
}
