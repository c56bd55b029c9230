// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package database

import "fmt"

// schemaStatements creates the catalog and activity tables. Statements are
// idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS news_id_seq`,

	`CREATE TABLE IF NOT EXISTS news (
		id BIGINT PRIMARY KEY DEFAULT nextval('news_id_seq'),
		category VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		short_description VARCHAR,
		authors VARCHAR,
		link VARCHAR NOT NULL UNIQUE,
		date DATE NOT NULL,
		title_embedding BLOB,
		description_embedding BLOB,
		view_count BIGINT NOT NULL DEFAULT 0,
		embedding_generated BOOLEAN NOT NULL DEFAULT false
	)`,

	`CREATE SEQUENCE IF NOT EXISTS user_activity_id_seq`,

	`CREATE TABLE IF NOT EXISTS user_activity (
		id BIGINT PRIMARY KEY DEFAULT nextval('user_activity_id_seq'),
		user_id BIGINT NOT NULL,
		news_id BIGINT NOT NULL,
		activity_type VARCHAR NOT NULL DEFAULT 'view',
		timestamp TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_news_category ON news (category)`,
	`CREATE INDEX IF NOT EXISTS idx_news_view_count ON news (view_count)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_user ON user_activity (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON user_activity (timestamp)`,
}

func (db *DB) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
