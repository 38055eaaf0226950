package passport

import "fmt"

// migrate runs all cache database migrations
func (c *Cache) migrate() error {
	migrations := []string{
		migrationCreateEntries,
		migrationCreateVotes,
	}

	for i, m := range migrations {
		if _, err := c.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Entries are keyed passport_<userId>, membership_<userId>_<timelineId>,
// or the legacy unscoped membership_<timelineId>, so purge rules can match
// every format with literal prefixes.
const migrationCreateEntries = `
CREATE TABLE IF NOT EXISTS cache_entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

const migrationCreateVotes = `
CREATE TABLE IF NOT EXISTS votes (
    user_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    value INTEGER NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, item_id)
);
`
