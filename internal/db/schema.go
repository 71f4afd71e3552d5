package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Status columns carry the exact enumerations
// shared with other clients of the same data.
const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    student_id    TEXT NOT NULL DEFAULT '',
    dob           TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'student' CHECK (role IN ('student', 'admin')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_username ON profiles(username);

CREATE TABLE IF NOT EXISTS clubs (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    admin_id    TEXT NOT NULL REFERENCES profiles(id),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    club_id     TEXT NOT NULL REFERENCES clubs(id),
    name        TEXT NOT NULL,
    description TEXT,
    category    TEXT,
    image_url   TEXT,
    image       BLOB,
    image_mime  TEXT,
    status      TEXT NOT NULL DEFAULT 'available'
                CHECK (status IN ('available', 'borrowed', 'maintenance', 'pending')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_club ON items(club_id);

CREATE TABLE IF NOT EXISTS requests (
    id                 TEXT PRIMARY KEY,
    item_id            TEXT NOT NULL REFERENCES items(id),
    user_id            TEXT NOT NULL REFERENCES profiles(id),
    status             TEXT NOT NULL DEFAULT 'pending'
                       CHECK (status IN ('pending', 'borrowed', 'returned')),
    request_date       DATETIME NOT NULL,
    return_due_date    DATETIME,
    actual_return_date DATETIME,
    rejected_at        DATETIME
);

CREATE INDEX IF NOT EXISTS idx_requests_item ON requests(item_id);
CREATE INDEX IF NOT EXISTS idx_requests_user ON requests(user_id);

-- At most one borrowed request per item.
CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_one_borrowed
    ON requests(item_id) WHERE status = 'borrowed';

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
