package cli

import (
	"path/filepath"

	"github.com/opencurrents/currents-cli/internal/api"
	"github.com/opencurrents/currents-cli/internal/config"
	"github.com/opencurrents/currents-cli/internal/credstore"
	"github.com/opencurrents/currents-cli/internal/passport"
	"github.com/opencurrents/currents-cli/internal/session"
)

// openSession assembles the session manager and its durable collaborators
// from the state directory. The returned cleanup stops the renewal timer and
// closes the cache database.
func openSession() (*session.Manager, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, nil, err
	}

	creds, err := credstore.Open(dir)
	if err != nil {
		return nil, nil, err
	}

	cache, err := passport.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, nil, err
	}

	apiClient := api.NewClient(cfg.ServerURL, creds, creds.InstanceID())
	refreshClient := api.NewRefreshClient(cfg.ServerURL)

	mgr := session.NewManager(apiClient, refreshClient, creds, cache, session.Options{
		RefreshInterval: cfg.RefreshEvery(),
		Invalidator:     cache.Votes(),
	})

	cleanup := func() {
		mgr.Close()
		cache.Close()
	}
	return mgr, cleanup, nil
}
