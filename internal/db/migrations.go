package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: listing pages filter items by status within a club.
	`CREATE INDEX IF NOT EXISTS idx_items_club_status ON items(club_id, status)`,
	// Migration 2: admin request queues filter by status.
	`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status)`,
}

// Migrate ensures the schema and then applies migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
