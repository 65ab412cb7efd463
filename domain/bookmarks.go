package domain

import "time"

// Bookmark is a saved link. Tags are stored as a space-separated list of
// #hashtags, e.g. "#golang #fediverse".
type Bookmark struct {
	Id          int64
	URL         string
	Title       string
	Description string
	Tags        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment is a federated reply to a bookmark. A nil BookmarkId marks a
// network post from a followed actor, stored for later triage and never
// auto-visible.
type Comment struct {
	Id         int64
	BookmarkId *int64
	Name       string // @user@domain handle of the commenter
	URL        string // remote object id, unique
	Content    string
	Visible    bool
	CreatedAt  time.Time
}
