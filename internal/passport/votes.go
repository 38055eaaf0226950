package passport

import (
	"database/sql"
	"time"
)

// Invalidator is notified whenever the session identity changes (login,
// logout, user switch) so per-user UI caches cannot leak across accounts.
type Invalidator interface {
	InvalidateVotes(userID string)
}

// VoteCache stores the user's vote state for timeline items. It shares the
// cache database and implements Invalidator.
type VoteCache struct {
	cache *Cache
}

// Votes returns the vote cache view of this cache database.
func (c *Cache) Votes() *VoteCache {
	return &VoteCache{cache: c}
}

// Record stores a vote value for an item.
func (v *VoteCache) Record(userID, itemID string, value int) error {
	_, err := v.cache.db.Exec(
		`INSERT INTO votes (user_id, item_id, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, item_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		userID, itemID, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Get returns the cached vote value for an item and whether one exists.
func (v *VoteCache) Get(userID, itemID string) (int, bool, error) {
	var value int
	err := v.cache.db.QueryRow(
		`SELECT value FROM votes WHERE user_id = ? AND item_id = ?`, userID, itemID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// InvalidateVotes drops all cached votes. The whole table goes, not just the
// named user's rows: an identity change invalidates everything that might be
// rendered next.
func (v *VoteCache) InvalidateVotes(userID string) {
	v.cache.db.Exec(`DELETE FROM votes`)
}
