package db

import (
	"database/sql"
	"log"
)

const (
	// Local actor identity and keypair (singleton row)
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts(
		name TEXT NOT NULL PRIMARY KEY,
		pubkey TEXT NOT NULL,
		privkey TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	// Follow graph: keyed relations with atomic insert/delete, one row
	// per actor IRI. Never serialized as a single blob.
	sqlCreateFollowersTable = `CREATE TABLE IF NOT EXISTS followers(
		actor_iri TEXT NOT NULL PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateFollowingTable = `CREATE TABLE IF NOT EXISTS following(
		actor_iri TEXT NOT NULL PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateBlocksTable = `CREATE TABLE IF NOT EXISTS blocks(
		actor_iri TEXT NOT NULL PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	// Moderation rules, newline-separated @user@domain patterns per
	// bookmark scope; bookmark_id 0 is the global scope.
	sqlCreatePermissionsTable = `CREATE TABLE IF NOT EXISTS permissions(
		bookmark_id INTEGER NOT NULL PRIMARY KEY,
		allowed TEXT,
		blocked TEXT
	)`

	// Outbound messages keyed by permalink guid
	sqlCreateMessagesTable = `CREATE TABLE IF NOT EXISTS messages(
		guid TEXT NOT NULL PRIMARY KEY,
		bookmark_id INTEGER,
		message TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateMessagesIndices = `
		CREATE INDEX IF NOT EXISTS idx_messages_bookmark_id ON messages(bookmark_id);
	`

	// Remote actor profile cache
	sqlCreateRemoteActorsTable = `CREATE TABLE IF NOT EXISTS remote_actors(
		actor_iri TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		domain TEXT NOT NULL,
		display_name TEXT,
		inbox_uri TEXT NOT NULL,
		public_key_pem TEXT NOT NULL,
		avatar_url TEXT,
		last_fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	// Outbound delivery queue
	sqlCreateDeliveryQueueTable = `CREATE TABLE IF NOT EXISTS delivery_queue(
		id TEXT NOT NULL PRIMARY KEY,
		inbox_uri TEXT NOT NULL,
		activity_json TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_retry_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateDeliveryQueueIndices = `
		CREATE INDEX IF NOT EXISTS idx_delivery_queue_next_retry ON delivery_queue(next_retry_at);
	`

	// Bookmarks and federated comments
	sqlCreateBookmarksTable = `CREATE TABLE IF NOT EXISTS bookmarks(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		title TEXT,
		description TEXT,
		tags TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	// url is unique so a replayed Create activity cannot insert the
	// same comment twice.
	sqlCreateCommentsTable = `CREATE TABLE IF NOT EXISTS comments(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bookmark_id INTEGER REFERENCES bookmarks(id) ON DELETE CASCADE,
		name TEXT,
		url TEXT UNIQUE,
		content TEXT,
		visible INTEGER DEFAULT 0 NOT NULL CHECK (visible IN (0,1)),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateCommentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_comments_bookmark_id ON comments(bookmark_id);
		CREATE INDEX IF NOT EXISTS idx_comments_url ON comments(url);
	`
)

// RunMigrations executes all database migrations.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		tables := []struct {
			name string
			ddl  string
		}{
			{"accounts", sqlCreateAccountsTable},
			{"followers", sqlCreateFollowersTable},
			{"following", sqlCreateFollowingTable},
			{"blocks", sqlCreateBlocksTable},
			{"permissions", sqlCreatePermissionsTable},
			{"messages", sqlCreateMessagesTable},
			{"remote_actors", sqlCreateRemoteActorsTable},
			{"delivery_queue", sqlCreateDeliveryQueueTable},
			{"bookmarks", sqlCreateBookmarksTable},
			{"comments", sqlCreateCommentsTable},
		}

		for _, t := range tables {
			if err := db.createTableIfNotExists(tx, t.ddl, t.name); err != nil {
				return err
			}
		}

		for _, ddl := range []string{sqlCreateMessagesIndices, sqlCreateDeliveryQueueIndices, sqlCreateCommentsIndices} {
			if _, err := tx.Exec(ddl); err != nil {
				log.Printf("Warning: Failed to create indices: %v", err)
			}
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Printf("Error creating table %s: %v", tableName, err)
		return err
	}
	return nil
}
