package session

import (
	"context"

	"github.com/opencurrents/currents-cli/internal/api"
	"github.com/opencurrents/currents-cli/internal/logger"
	"github.com/opencurrents/currents-cli/internal/model"
)

// Restore reconstructs session state from durable storage. Exactly one
// terminal transition out of Restoring occurs, and Loading stays true until
// that point so consumers never observe a transient anonymous flash.
//
// The cascade, each step only when the previous yielded no usable session:
// validate the stored access token; on any validate failure refresh and
// validate once more; on refresh failure or no refresh token, full teardown.
// With no tokens at all, go straight to Anonymous without network calls.
func (m *Manager) Restore(ctx context.Context) State {
	m.mu.Lock()
	if m.state != Uninitialized {
		s := m.state
		m.mu.Unlock()
		return s
	}
	m.state = Restoring
	// Seed from the mirror so the validate response merges onto the last
	// known record instead of a blank one.
	var seedID string
	if seed := m.creds.User(); seed != nil {
		m.user = seed
		seedID = seed.ID
	}
	m.mu.Unlock()

	tokens := m.creds.Tokens()

	switch {
	case !tokens.HasAccess() && !tokens.HasRefresh():
		logger.Debug("No stored tokens, starting anonymous")
		return m.finishAnonymous()

	case !tokens.HasAccess():
		return m.restoreViaRefresh(ctx, seedID)

	default:
		patch, err := m.api.Validate(ctx)
		if err == nil {
			return m.finishAuthenticated(ctx, patch)
		}
		logger.Info("Stored access token failed validation",
			logger.F("kind", api.KindOf(err).String()))
		return m.restoreViaRefresh(ctx, seedID)
	}
}

// restoreViaRefresh attempts one refresh-and-revalidate cycle. Anything
// beyond that escalates to full teardown rather than an ambiguous
// half-authenticated state.
func (m *Manager) restoreViaRefresh(ctx context.Context, seedID string) State {
	if m.creds.RefreshToken() == "" {
		logger.Info("No refresh token available, tearing down")
		m.teardown(seedID)
		return Anonymous
	}

	if !m.RefreshAccessToken(ctx) {
		logger.Info("Refresh failed during restore, tearing down")
		m.teardown(seedID)
		return Anonymous
	}

	patch, err := m.api.Validate(ctx)
	if err != nil {
		logger.Info("Validation failed after successful refresh, tearing down",
			logger.F("kind", api.KindOf(err).String()))
		m.teardown(seedID)
		return Anonymous
	}
	return m.finishAuthenticated(ctx, patch)
}

// finishAnonymous is the no-token outcome: state only, no purges, no network.
func (m *Manager) finishAnonymous() State {
	m.mu.Lock()
	m.user = nil
	m.state = Anonymous
	m.finishLoadingLocked()
	m.mu.Unlock()
	return Anonymous
}

func (m *Manager) finishAuthenticated(ctx context.Context, patch *model.UserPatch) State {
	m.mu.Lock()
	base := model.UserRecord{}
	if m.user != nil {
		base = *m.user
	}
	record := base.Apply(*patch)
	m.setUserLocked(record)
	m.state = Authenticated
	m.finishLoadingLocked()
	m.startRenewalLocked()
	m.mu.Unlock()

	m.syncPassport(ctx, record.ID)

	logger.Info("Session restored", logger.F("user_id", record.ID))
	return Authenticated
}
