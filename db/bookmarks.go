package db

import (
	"database/sql"
	"time"

	"github.com/deemkeen/markodon/domain"
)

// Bookmark queries
const (
	sqlInsertBookmark = `INSERT INTO bookmarks(url, title, description, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlUpdateBookmark = `UPDATE bookmarks SET url = ?, title = ?, description = ?, tags = ?, updated_at = ? WHERE id = ?`
	sqlDeleteBookmark = `DELETE FROM bookmarks WHERE id = ?`
	sqlSelectBookmark = `SELECT id, url, title, description, tags, created_at, updated_at FROM bookmarks WHERE id = ?`
	sqlSelectBookmarks = `SELECT id, url, title, description, tags, created_at, updated_at FROM bookmarks ORDER BY created_at DESC LIMIT ?`
)

func (db *DB) CreateBookmark(b *domain.Bookmark) (error, int64) {
	var id int64
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		now := time.Now()
		res, err := tx.Exec(sqlInsertBookmark, b.URL, b.Title, b.Description, b.Tags, now, now)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return err, id
}

func (db *DB) UpdateBookmark(b *domain.Bookmark) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateBookmark, b.URL, b.Title, b.Description, b.Tags, time.Now(), b.Id)
		return err
	})
}

// DeleteBookmark removes a bookmark; its comments go with it via the
// foreign key cascade.
func (db *DB) DeleteBookmark(id int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteBookmark, id)
		return err
	})
}

func (db *DB) ReadBookmark(id int64) (error, *domain.Bookmark) {
	row := db.db.QueryRow(sqlSelectBookmark, id)
	var b domain.Bookmark
	var title, description, tags sql.NullString
	err := row.Scan(&b.Id, &b.URL, &title, &description, &tags, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	b.Title = title.String
	b.Description = description.String
	b.Tags = tags.String
	return nil, &b
}

func (db *DB) ReadBookmarks(limit int) (error, *[]domain.Bookmark) {
	rows, err := db.db.Query(sqlSelectBookmarks, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var bookmarks []domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		var title, description, tags sql.NullString
		if err := rows.Scan(&b.Id, &b.URL, &title, &description, &tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return err, &bookmarks
		}
		b.Title = title.String
		b.Description = description.String
		b.Tags = tags.String
		bookmarks = append(bookmarks, b)
	}
	if err = rows.Err(); err != nil {
		return err, &bookmarks
	}
	return nil, &bookmarks
}

// Comment queries. Inserts ignore duplicate urls so a replayed Create
// activity is a no-op, and deletes by url are naturally idempotent.
const (
	sqlInsertComment          = `INSERT OR IGNORE INTO comments(bookmark_id, name, url, content, visible, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlDeleteCommentByURL     = `DELETE FROM comments WHERE url = ?`
	sqlUpdateCommentVisible   = `UPDATE comments SET visible = ? WHERE id = ?`
	sqlDeleteHiddenComments   = `DELETE FROM comments WHERE visible = 0`
	sqlSelectVisibleComments  = `SELECT id, bookmark_id, name, url, content, visible, created_at FROM comments WHERE bookmark_id = ? AND visible = 1 ORDER BY created_at ASC`
	sqlSelectHiddenComments   = `SELECT id, bookmark_id, name, url, content, visible, created_at FROM comments WHERE visible = 0 ORDER BY created_at DESC`
	sqlSelectNetworkPosts     = `SELECT id, bookmark_id, name, url, content, visible, created_at FROM comments WHERE bookmark_id IS NULL ORDER BY created_at DESC LIMIT ?`
	sqlSelectCommentByURL     = `SELECT id, bookmark_id, name, url, content, visible, created_at FROM comments WHERE url = ?`
)

func (db *DB) CreateComment(c *domain.Comment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertComment, c.BookmarkId, c.Name, c.URL, c.Content, boolToInt(c.Visible), time.Now())
		return err
	})
}

func (db *DB) DeleteCommentByURL(url string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteCommentByURL, url)
		return err
	})
}

func (db *DB) SetCommentVisible(id int64, visible bool) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateCommentVisible, boolToInt(visible), id)
		return err
	})
}

func (db *DB) DeleteHiddenComments() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteHiddenComments)
		return err
	})
}

func (db *DB) ReadVisibleComments(bookmarkId int64) (error, *[]domain.Comment) {
	return db.readComments(sqlSelectVisibleComments, bookmarkId)
}

func (db *DB) ReadHiddenComments() (error, *[]domain.Comment) {
	return db.readComments(sqlSelectHiddenComments)
}

// ReadNetworkPosts returns posts from followed actors that arrived with a
// link but no reply target, newest first.
func (db *DB) ReadNetworkPosts(limit int) (error, *[]domain.Comment) {
	return db.readComments(sqlSelectNetworkPosts, limit)
}

func (db *DB) ReadCommentByURL(url string) (error, *domain.Comment) {
	row := db.db.QueryRow(sqlSelectCommentByURL, url)
	var c domain.Comment
	var bookmarkId sql.NullInt64
	var name, content sql.NullString
	var visible int
	err := row.Scan(&c.Id, &bookmarkId, &name, &c.URL, &content, &visible, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	if bookmarkId.Valid {
		c.BookmarkId = &bookmarkId.Int64
	}
	c.Name = name.String
	c.Content = content.String
	c.Visible = visible == 1
	return nil, &c
}

func (db *DB) readComments(query string, args ...any) (error, *[]domain.Comment) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var bookmarkId sql.NullInt64
		var name, content sql.NullString
		var visible int
		if err := rows.Scan(&c.Id, &bookmarkId, &name, &c.URL, &content, &visible, &c.CreatedAt); err != nil {
			return err, &comments
		}
		if bookmarkId.Valid {
			c.BookmarkId = &bookmarkId.Int64
		}
		c.Name = name.String
		c.Content = content.String
		c.Visible = visible == 1
		comments = append(comments, c)
	}
	if err = rows.Err(); err != nil {
		return err, &comments
	}
	return nil, &comments
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
