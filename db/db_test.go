package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/deemkeen/markodon/domain"
	"github.com/google/uuid"
)

// setupTestDB opens a throwaway database file with migrations applied.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database
}

func TestAccountLifecycle(t *testing.T) {
	database := setupTestDB(t)

	err, exists := database.HasAccount()
	if err != nil {
		t.Fatalf("HasAccount failed: %v", err)
	}
	if exists {
		t.Fatal("Expected no account in fresh database")
	}

	if err := database.CreateAccount("bookmarks", "PUBKEY", "PRIVKEY"); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	err, name, pubkey, privkey := database.ReadAccount()
	if err != nil {
		t.Fatalf("ReadAccount failed: %v", err)
	}
	if name != "bookmarks" || pubkey != "PUBKEY" || privkey != "PRIVKEY" {
		t.Errorf("Got account (%s, %s, %s), want (bookmarks, PUBKEY, PRIVKEY)", name, pubkey, privkey)
	}
}

func TestReadAccountEmpty(t *testing.T) {
	database := setupTestDB(t)

	err, _, _, _ := database.ReadAccount()
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}
}

func TestFollowerSetSemantics(t *testing.T) {
	database := setupTestDB(t)
	actor := "https://example.social/users/alice"

	// Adding twice keeps a single row
	if err := database.AddFollower(actor); err != nil {
		t.Fatalf("AddFollower failed: %v", err)
	}
	if err := database.AddFollower(actor); err != nil {
		t.Fatalf("Second AddFollower failed: %v", err)
	}

	err, followers := database.ReadFollowers()
	if err != nil {
		t.Fatalf("ReadFollowers failed: %v", err)
	}
	if len(followers) != 1 {
		t.Fatalf("Expected 1 follower, got %d", len(followers))
	}
	if followers[0] != actor {
		t.Errorf("Got follower %q, want %q", followers[0], actor)
	}

	// Removing twice is a no-op the second time
	if err := database.RemoveFollower(actor); err != nil {
		t.Fatalf("RemoveFollower failed: %v", err)
	}
	if err := database.RemoveFollower(actor); err != nil {
		t.Fatalf("Second RemoveFollower failed: %v", err)
	}

	err, followers = database.ReadFollowers()
	if err != nil {
		t.Fatalf("ReadFollowers failed: %v", err)
	}
	if len(followers) != 0 {
		t.Errorf("Expected no followers after removal, got %d", len(followers))
	}
}

func TestBlocks(t *testing.T) {
	database := setupTestDB(t)
	actor := "https://example.social/users/mallory"

	err, blocked := database.IsBlocked(actor)
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected actor not to be blocked initially")
	}

	if err := database.AddBlock(actor); err != nil {
		t.Fatalf("AddBlock failed: %v", err)
	}

	err, blocked = database.IsBlocked(actor)
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if !blocked {
		t.Error("Expected actor to be blocked")
	}

	if err := database.RemoveBlock(actor); err != nil {
		t.Fatalf("RemoveBlock failed: %v", err)
	}

	err, blocked = database.IsBlocked(actor)
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if blocked {
		t.Error("Expected actor to be unblocked")
	}
}

func TestPermissions(t *testing.T) {
	database := setupTestDB(t)

	if err := database.SetGlobalPermissions("@alice@example.social", "@mallory@example.social"); err != nil {
		t.Fatalf("SetGlobalPermissions failed: %v", err)
	}

	err, perms := database.ReadGlobalPermissions()
	if err != nil {
		t.Fatalf("ReadGlobalPermissions failed: %v", err)
	}
	if perms.Allowed != "@alice@example.social" {
		t.Errorf("Got allowed %q", perms.Allowed)
	}
	if perms.Blocked != "@mallory@example.social" {
		t.Errorf("Got blocked %q", perms.Blocked)
	}

	// Upsert replaces the scope's lists
	if err := database.SetGlobalPermissions("", "@eve@example.social"); err != nil {
		t.Fatalf("SetGlobalPermissions upsert failed: %v", err)
	}
	err, perms = database.ReadGlobalPermissions()
	if err != nil {
		t.Fatalf("ReadGlobalPermissions failed: %v", err)
	}
	if perms.Allowed != "" || perms.Blocked != "@eve@example.social" {
		t.Errorf("Upsert did not replace lists: %+v", perms)
	}

	err, _ = database.ReadPermissions(42)
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows for unknown scope, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	database := setupTestDB(t)
	bookmarkId := int64(7)

	if err := database.InsertMessage("abc123", &bookmarkId, `{"type":"Note"}`); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	err, msg := database.ReadMessage("abc123")
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if msg.Guid != "abc123" || msg.BookmarkId == nil || *msg.BookmarkId != 7 {
		t.Errorf("Unexpected message: %+v", msg)
	}

	err, guid := database.GuidForBookmark(7)
	if err != nil {
		t.Fatalf("GuidForBookmark failed: %v", err)
	}
	if guid != "abc123" {
		t.Errorf("Got guid %q, want abc123", guid)
	}

	err, id := database.BookmarkIdForGuid("abc123")
	if err != nil {
		t.Fatalf("BookmarkIdForGuid failed: %v", err)
	}
	if id == nil || *id != 7 {
		t.Errorf("Got bookmark id %v, want 7", id)
	}

	// Unknown guid resolves to nothing, not an error
	err, id = database.BookmarkIdForGuid("missing")
	if err != nil {
		t.Fatalf("BookmarkIdForGuid for unknown guid failed: %v", err)
	}
	if id != nil {
		t.Errorf("Expected nil bookmark id, got %v", *id)
	}

	if err := database.DeleteMessage("abc123"); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	err, _ = database.ReadMessage("abc123")
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestMessagesPageOrdering(t *testing.T) {
	database := setupTestDB(t)

	if err := database.InsertMessage("first", nil, "{}"); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if err := database.InsertMessage("second", nil, "{}"); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	if err := database.InsertMessage("third", nil, "{}"); err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}

	err, page := database.ReadMessagesPage(2, 0)
	if err != nil {
		t.Fatalf("ReadMessagesPage failed: %v", err)
	}
	if len(*page) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(*page))
	}
	if (*page)[0].Guid != "third" || (*page)[1].Guid != "second" {
		t.Errorf("Expected newest-first ordering, got %s, %s", (*page)[0].Guid, (*page)[1].Guid)
	}

	err, count := database.CountMessages()
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 messages, got %d", count)
	}
}

func TestBookmarkCrud(t *testing.T) {
	database := setupTestDB(t)

	bookmark := &domain.Bookmark{
		URL:         "https://example.com/article",
		Title:       "An article",
		Description: "Worth reading",
		Tags:        "#reading",
	}

	err, id := database.CreateBookmark(bookmark)
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}
	if id == 0 {
		t.Fatal("Expected a non-zero bookmark id")
	}

	err, read := database.ReadBookmark(id)
	if err != nil {
		t.Fatalf("ReadBookmark failed: %v", err)
	}
	if read.URL != bookmark.URL || read.Title != bookmark.Title {
		t.Errorf("Unexpected bookmark: %+v", read)
	}

	read.Title = "Renamed"
	if err := database.UpdateBookmark(read); err != nil {
		t.Fatalf("UpdateBookmark failed: %v", err)
	}
	err, read = database.ReadBookmark(id)
	if err != nil {
		t.Fatalf("ReadBookmark failed: %v", err)
	}
	if read.Title != "Renamed" {
		t.Errorf("Got title %q, want Renamed", read.Title)
	}

	if err := database.DeleteBookmark(id); err != nil {
		t.Fatalf("DeleteBookmark failed: %v", err)
	}
	err, _ = database.ReadBookmark(id)
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestCommentIdempotentByURL(t *testing.T) {
	database := setupTestDB(t)

	err, bookmarkId := database.CreateBookmark(&domain.Bookmark{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}

	comment := &domain.Comment{
		BookmarkId: &bookmarkId,
		Name:       "@alice@example.social",
		URL:        "https://example.social/notes/1",
		Content:    "nice find",
		Visible:    true,
	}

	// Replayed insert with the same url is a no-op
	if err := database.CreateComment(comment); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if err := database.CreateComment(comment); err != nil {
		t.Fatalf("Replayed CreateComment failed: %v", err)
	}

	err, comments := database.ReadVisibleComments(bookmarkId)
	if err != nil {
		t.Fatalf("ReadVisibleComments failed: %v", err)
	}
	if len(*comments) != 1 {
		t.Fatalf("Expected 1 comment after replay, got %d", len(*comments))
	}

	// Deleting by url twice is a no-op the second time
	if err := database.DeleteCommentByURL(comment.URL); err != nil {
		t.Fatalf("DeleteCommentByURL failed: %v", err)
	}
	if err := database.DeleteCommentByURL(comment.URL); err != nil {
		t.Fatalf("Second DeleteCommentByURL failed: %v", err)
	}
}

func TestCommentVisibilityAndTriage(t *testing.T) {
	database := setupTestDB(t)

	err, bookmarkId := database.CreateBookmark(&domain.Bookmark{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}

	hidden := &domain.Comment{
		BookmarkId: &bookmarkId,
		Name:       "@bob@example.social",
		URL:        "https://example.social/notes/2",
		Content:    "awaiting triage",
		Visible:    false,
	}
	if err := database.CreateComment(hidden); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	err, visible := database.ReadVisibleComments(bookmarkId)
	if err != nil {
		t.Fatalf("ReadVisibleComments failed: %v", err)
	}
	if len(*visible) != 0 {
		t.Fatalf("Expected no visible comments, got %d", len(*visible))
	}

	err, pending := database.ReadHiddenComments()
	if err != nil {
		t.Fatalf("ReadHiddenComments failed: %v", err)
	}
	if len(*pending) != 1 {
		t.Fatalf("Expected 1 hidden comment, got %d", len(*pending))
	}

	if err := database.SetCommentVisible((*pending)[0].Id, true); err != nil {
		t.Fatalf("SetCommentVisible failed: %v", err)
	}
	err, visible = database.ReadVisibleComments(bookmarkId)
	if err != nil {
		t.Fatalf("ReadVisibleComments failed: %v", err)
	}
	if len(*visible) != 1 {
		t.Fatalf("Expected 1 visible comment, got %d", len(*visible))
	}

	// Network posts have no bookmark
	network := &domain.Comment{
		Name:    "@carol@example.social",
		URL:     "https://example.social/notes/3",
		Content: "look at https://example.com/found",
	}
	if err := database.CreateComment(network); err != nil {
		t.Fatalf("CreateComment for network post failed: %v", err)
	}
	err, posts := database.ReadNetworkPosts(10)
	if err != nil {
		t.Fatalf("ReadNetworkPosts failed: %v", err)
	}
	if len(*posts) != 1 {
		t.Fatalf("Expected 1 network post, got %d", len(*posts))
	}
	if (*posts)[0].BookmarkId != nil {
		t.Error("Expected network post to have no bookmark id")
	}

	if err := database.DeleteHiddenComments(); err != nil {
		t.Fatalf("DeleteHiddenComments failed: %v", err)
	}
	err, posts = database.ReadNetworkPosts(10)
	if err != nil {
		t.Fatalf("ReadNetworkPosts failed: %v", err)
	}
	if len(*posts) != 0 {
		t.Errorf("Expected hidden network posts to be purged, got %d", len(*posts))
	}
}

func TestDeliveryQueue(t *testing.T) {
	database := setupTestDB(t)

	item := &domain.DeliveryItem{
		Id:           uuid.New(),
		InboxURI:     "https://example.social/inbox",
		ActivityJSON: `{"type":"Accept"}`,
		Attempts:     0,
		NextRetryAt:  time.Now().Add(-time.Minute),
		CreatedAt:    time.Now(),
	}
	if err := database.EnqueueDelivery(item); err != nil {
		t.Fatalf("EnqueueDelivery failed: %v", err)
	}

	// Future retries are not picked up
	future := &domain.DeliveryItem{
		Id:           uuid.New(),
		InboxURI:     "https://other.social/inbox",
		ActivityJSON: `{"type":"Create"}`,
		NextRetryAt:  time.Now().Add(time.Hour),
		CreatedAt:    time.Now(),
	}
	if err := database.EnqueueDelivery(future); err != nil {
		t.Fatalf("EnqueueDelivery failed: %v", err)
	}

	err, pending := database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("ReadPendingDeliveries failed: %v", err)
	}
	if len(*pending) != 1 {
		t.Fatalf("Expected 1 pending delivery, got %d", len(*pending))
	}
	if (*pending)[0].Id != item.Id {
		t.Errorf("Got delivery %s, want %s", (*pending)[0].Id, item.Id)
	}

	if err := database.UpdateDeliveryAttempt(item.Id, 1, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("UpdateDeliveryAttempt failed: %v", err)
	}
	err, pending = database.ReadPendingDeliveries(10)
	if err != nil {
		t.Fatalf("ReadPendingDeliveries failed: %v", err)
	}
	if len(*pending) != 0 {
		t.Errorf("Expected no pending deliveries after backoff, got %d", len(*pending))
	}

	if err := database.DeleteDelivery(item.Id); err != nil {
		t.Fatalf("DeleteDelivery failed: %v", err)
	}
}

func TestRemoteActorCache(t *testing.T) {
	database := setupTestDB(t)

	actor := &domain.RemoteActor{
		ActorIRI:      "https://example.social/users/alice",
		Username:      "alice",
		Domain:        "example.social",
		DisplayName:   "Alice",
		InboxURI:      "https://example.social/users/alice/inbox",
		PublicKeyPem:  "PEM",
		LastFetchedAt: time.Now(),
	}
	if err := database.UpsertRemoteActor(actor); err != nil {
		t.Fatalf("UpsertRemoteActor failed: %v", err)
	}

	err, cached := database.ReadRemoteActor(actor.ActorIRI)
	if err != nil {
		t.Fatalf("ReadRemoteActor failed: %v", err)
	}
	if cached.Username != "alice" || cached.InboxURI != actor.InboxURI {
		t.Errorf("Unexpected cached actor: %+v", cached)
	}

	// Upsert replaces the profile
	actor.DisplayName = "Alice Updated"
	if err := database.UpsertRemoteActor(actor); err != nil {
		t.Fatalf("Second UpsertRemoteActor failed: %v", err)
	}
	err, cached = database.ReadRemoteActor(actor.ActorIRI)
	if err != nil {
		t.Fatalf("ReadRemoteActor failed: %v", err)
	}
	if cached.DisplayName != "Alice Updated" {
		t.Errorf("Got display name %q", cached.DisplayName)
	}

	err, _ = database.ReadRemoteActor("https://unknown.example/users/nobody")
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows for unknown actor, got %v", err)
	}
}
