package db

import (
	"database/sql"
	"time"

	"github.com/deemkeen/markodon/domain"
	"github.com/google/uuid"
)

// Follower/following/block queries. All three sets share the same shape:
// one row per actor IRI, inserted and removed by key.
const (
	sqlInsertFollower  = `INSERT OR IGNORE INTO followers(actor_iri, created_at) VALUES (?, ?)`
	sqlDeleteFollower  = `DELETE FROM followers WHERE actor_iri = ?`
	sqlSelectFollowers = `SELECT actor_iri FROM followers ORDER BY created_at ASC`

	sqlInsertFollowing  = `INSERT OR IGNORE INTO following(actor_iri, created_at) VALUES (?, ?)`
	sqlDeleteFollowing  = `DELETE FROM following WHERE actor_iri = ?`
	sqlSelectFollowing  = `SELECT actor_iri FROM following ORDER BY created_at ASC`
	sqlCountIsFollowing = `SELECT count(*) FROM following WHERE actor_iri = ?`

	sqlInsertBlock  = `INSERT OR IGNORE INTO blocks(actor_iri, created_at) VALUES (?, ?)`
	sqlDeleteBlock  = `DELETE FROM blocks WHERE actor_iri = ?`
	sqlSelectBlocks = `SELECT actor_iri FROM blocks ORDER BY created_at ASC`
	sqlCountBlocked = `SELECT count(*) FROM blocks WHERE actor_iri = ?`
)

func (db *DB) AddFollower(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollower, actorIRI, time.Now())
		return err
	})
}

func (db *DB) RemoveFollower(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollower, actorIRI)
		return err
	})
}

func (db *DB) ReadFollowers() (error, []string) {
	return db.readActorSet(sqlSelectFollowers)
}

func (db *DB) AddFollowing(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollowing, actorIRI, time.Now())
		return err
	})
}

func (db *DB) RemoveFollowing(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollowing, actorIRI)
		return err
	})
}

func (db *DB) ReadFollowing() (error, []string) {
	return db.readActorSet(sqlSelectFollowing)
}

func (db *DB) IsFollowing(actorIRI string) (error, bool) {
	var count int
	if err := db.db.QueryRow(sqlCountIsFollowing, actorIRI).Scan(&count); err != nil {
		return err, false
	}
	return nil, count > 0
}

func (db *DB) AddBlock(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertBlock, actorIRI, time.Now())
		return err
	})
}

func (db *DB) RemoveBlock(actorIRI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteBlock, actorIRI)
		return err
	})
}

func (db *DB) ReadBlocks() (error, []string) {
	return db.readActorSet(sqlSelectBlocks)
}

func (db *DB) IsBlocked(actorIRI string) (error, bool) {
	var count int
	if err := db.db.QueryRow(sqlCountBlocked, actorIRI).Scan(&count); err != nil {
		return err, false
	}
	return nil, count > 0
}

func (db *DB) readActorSet(query string) (error, []string) {
	rows, err := db.db.Query(query)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var iris []string
	for rows.Next() {
		var iri string
		if err := rows.Scan(&iri); err != nil {
			return err, iris
		}
		iris = append(iris, iri)
	}
	if err = rows.Err(); err != nil {
		return err, iris
	}
	return nil, iris
}

// Permission queries
const (
	sqlUpsertPermissions = `INSERT OR REPLACE INTO permissions(bookmark_id, allowed, blocked) VALUES (?, ?, ?)`
	sqlSelectPermissions = `SELECT bookmark_id, allowed, blocked FROM permissions WHERE bookmark_id = ?`
)

// GlobalPermissionsId is the bookmark scope shared by every bookmark.
const GlobalPermissionsId int64 = 0

func (db *DB) SetPermissions(bookmarkId int64, allowed string, blocked string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertPermissions, bookmarkId, allowed, blocked)
		return err
	})
}

func (db *DB) SetGlobalPermissions(allowed string, blocked string) error {
	return db.SetPermissions(GlobalPermissionsId, allowed, blocked)
}

func (db *DB) ReadPermissions(bookmarkId int64) (error, *domain.Permissions) {
	row := db.db.QueryRow(sqlSelectPermissions, bookmarkId)
	var perms domain.Permissions
	var allowed, blocked sql.NullString
	err := row.Scan(&perms.BookmarkId, &allowed, &blocked)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	perms.Allowed = allowed.String
	perms.Blocked = blocked.String
	return nil, &perms
}

func (db *DB) ReadGlobalPermissions() (error, *domain.Permissions) {
	return db.ReadPermissions(GlobalPermissionsId)
}

// Message queries
const (
	sqlInsertMessage            = `INSERT OR REPLACE INTO messages(guid, bookmark_id, message, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectMessage            = `SELECT guid, bookmark_id, message, created_at FROM messages WHERE guid = ?`
	sqlSelectGuidForBookmark    = `SELECT guid FROM messages WHERE bookmark_id = ?`
	sqlSelectBookmarkIdForGuid  = `SELECT bookmark_id FROM messages WHERE guid = ?`
	sqlDeleteMessage            = `DELETE FROM messages WHERE guid = ?`
	sqlDeleteMessagesByBookmark = `DELETE FROM messages WHERE bookmark_id = ?`
	sqlCountMessages            = `SELECT count(*) FROM messages`
	sqlSelectMessagesPage       = `SELECT guid, bookmark_id, message, created_at FROM messages ORDER BY rowid DESC LIMIT ? OFFSET ?`
)

func (db *DB) InsertMessage(guid string, bookmarkId *int64, message string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertMessage, guid, bookmarkId, message, time.Now())
		return err
	})
}

func (db *DB) ReadMessage(guid string) (error, *domain.StoredMessage) {
	row := db.db.QueryRow(sqlSelectMessage, guid)
	return scanMessage(row)
}

// GuidForBookmark returns the permalink guid of the Note published for a
// bookmark, or empty when the bookmark was never federated.
func (db *DB) GuidForBookmark(bookmarkId int64) (error, string) {
	var guid string
	err := db.db.QueryRow(sqlSelectGuidForBookmark, bookmarkId).Scan(&guid)
	if err == sql.ErrNoRows {
		return nil, ""
	}
	if err != nil {
		return err, ""
	}
	return nil, guid
}

// BookmarkIdForGuid resolves a reply target guid to the owning bookmark.
func (db *DB) BookmarkIdForGuid(guid string) (error, *int64) {
	var id sql.NullInt64
	err := db.db.QueryRow(sqlSelectBookmarkIdForGuid, guid).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return err, nil
	}
	if !id.Valid {
		return nil, nil
	}
	return nil, &id.Int64
}

func (db *DB) DeleteMessage(guid string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteMessage, guid)
		return err
	})
}

func (db *DB) DeleteMessagesForBookmark(bookmarkId int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteMessagesByBookmark, bookmarkId)
		return err
	})
}

func (db *DB) CountMessages() (error, int) {
	var count int
	if err := db.db.QueryRow(sqlCountMessages).Scan(&count); err != nil {
		return err, 0
	}
	return nil, count
}

// ReadMessagesPage returns stored messages newest-first.
func (db *DB) ReadMessagesPage(limit int, offset int) (error, *[]domain.StoredMessage) {
	rows, err := db.db.Query(sqlSelectMessagesPage, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var messages []domain.StoredMessage
	for rows.Next() {
		var msg domain.StoredMessage
		var bookmarkId sql.NullInt64
		if err := rows.Scan(&msg.Guid, &bookmarkId, &msg.Message, &msg.CreatedAt); err != nil {
			return err, &messages
		}
		if bookmarkId.Valid {
			msg.BookmarkId = &bookmarkId.Int64
		}
		messages = append(messages, msg)
	}
	if err = rows.Err(); err != nil {
		return err, &messages
	}
	return nil, &messages
}

func scanMessage(row *sql.Row) (error, *domain.StoredMessage) {
	var msg domain.StoredMessage
	var bookmarkId sql.NullInt64
	err := row.Scan(&msg.Guid, &bookmarkId, &msg.Message, &msg.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	if bookmarkId.Valid {
		msg.BookmarkId = &bookmarkId.Int64
	}
	return nil, &msg
}

// Remote actor cache queries
const (
	sqlUpsertRemoteActor = `INSERT OR REPLACE INTO remote_actors(actor_iri, username, domain, display_name, inbox_uri, public_key_pem, avatar_url, last_fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectRemoteActor = `SELECT actor_iri, username, domain, display_name, inbox_uri, public_key_pem, avatar_url, last_fetched_at FROM remote_actors WHERE actor_iri = ?`
)

func (db *DB) UpsertRemoteActor(actor *domain.RemoteActor) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertRemoteActor,
			actor.ActorIRI,
			actor.Username,
			actor.Domain,
			actor.DisplayName,
			actor.InboxURI,
			actor.PublicKeyPem,
			actor.AvatarURL,
			actor.LastFetchedAt,
		)
		return err
	})
}

func (db *DB) ReadRemoteActor(actorIRI string) (error, *domain.RemoteActor) {
	row := db.db.QueryRow(sqlSelectRemoteActor, actorIRI)
	var actor domain.RemoteActor
	err := row.Scan(
		&actor.ActorIRI,
		&actor.Username,
		&actor.Domain,
		&actor.DisplayName,
		&actor.InboxURI,
		&actor.PublicKeyPem,
		&actor.AvatarURL,
		&actor.LastFetchedAt,
	)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &actor
}

// Delivery queue queries
const (
	sqlInsertDeliveryQueue     = `INSERT INTO delivery_queue(id, inbox_uri, activity_json, attempts, next_retry_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectPendingDeliveries = `SELECT id, inbox_uri, activity_json, attempts, next_retry_at, created_at FROM delivery_queue WHERE next_retry_at <= ? ORDER BY created_at ASC LIMIT ?`
	sqlUpdateDeliveryAttempt   = `UPDATE delivery_queue SET attempts = ?, next_retry_at = ? WHERE id = ?`
	sqlDeleteDelivery          = `DELETE FROM delivery_queue WHERE id = ?`
)

func (db *DB) EnqueueDelivery(item *domain.DeliveryItem) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertDeliveryQueue,
			item.Id.String(),
			item.InboxURI,
			item.ActivityJSON,
			item.Attempts,
			item.NextRetryAt,
			item.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryItem) {
	rows, err := db.db.Query(sqlSelectPendingDeliveries, time.Now(), limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var items []domain.DeliveryItem
	for rows.Next() {
		var item domain.DeliveryItem
		var idStr string
		if err := rows.Scan(&idStr, &item.InboxURI, &item.ActivityJSON, &item.Attempts, &item.NextRetryAt, &item.CreatedAt); err != nil {
			return err, &items
		}
		item.Id, _ = uuid.Parse(idStr)
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return err, &items
	}
	return nil, &items
}

func (db *DB) UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateDeliveryAttempt, attempts, nextRetry, id.String())
		return err
	})
}

func (db *DB) DeleteDelivery(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteDelivery, id.String())
		return err
	})
}
