// Package passport is the per-user durable cache of authorization and
// membership facts, plus the vote cache cleared on identity changes. Backed
// by SQLite so entries survive restarts; written only by the session manager
// and explicit sync passes.
package passport

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opencurrents/currents-cli/internal/model"
)

// Cache wraps the SQLite cache database
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return c, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	return c.db.Close()
}

func passportKey(userID string) string {
	return "passport_" + userID
}

// Passport returns the cached passport for userID, or nil when none is
// cached. A stale entry is still returned; staleness is the sync pass's
// problem, not the reader's.
func (c *Cache) Passport(userID string) (*model.Passport, error) {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM cache_entries WHERE key = ?`, passportKey(userID),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p model.Passport
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		// Corrupted entry: treat as a miss, let the next sync rewrite it.
		return nil, nil
	}
	return &p, nil
}

// PutPassport overwrites the cached passport wholesale. Passports are never
// partially merged.
func (c *Cache) PutPassport(p model.Passport) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		passportKey(p.UserID), string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// PutMembership caches one membership entry in the scoped key format.
func (c *Cache) PutMembership(userID, timelineID string, m model.GroupMembership) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("membership_%s_%s", userID, timelineID)
	_, err = c.db.Exec(
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Membership returns one cached membership entry, or nil on a miss.
func (c *Cache) Membership(userID, timelineID string) (*model.GroupMembership, error) {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM cache_entries WHERE key = ?`,
		fmt.Sprintf("membership_%s_%s", userID, timelineID),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var m model.GroupMembership
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil, nil
	}
	return &m, nil
}

// PurgeUser removes the passport and all membership entries scoped to one
// user id. Used on logout.
func (c *Cache) PurgeUser(userID string) error {
	_, err := c.db.Exec(
		`DELETE FROM cache_entries WHERE key = ? OR key LIKE ?`,
		passportKey(userID), "membership_"+userID+"_%",
	)
	return err
}

// PurgeMemberships removes every membership entry regardless of identity,
// including the legacy unscoped membership_<timelineId> format. Used on
// logout and on login so entries written under a previous account can never
// be read in the new session.
func (c *Cache) PurgeMemberships() error {
	_, err := c.db.Exec(`DELETE FROM cache_entries WHERE key LIKE 'membership_%'`)
	return err
}

// PurgeAll wipes every cache entry. Used on login when the stored identity
// differs from the account logging in.
func (c *Cache) PurgeAll() error {
	_, err := c.db.Exec(`DELETE FROM cache_entries`)
	return err
}
