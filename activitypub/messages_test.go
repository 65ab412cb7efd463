package activitypub

import (
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/deemkeen/markodon/domain"
)

func testIdentity() domain.ActorIdentity {
	return domain.ActorIdentity{
		Username: "bookmarks",
		Domain:   "mydomain.example",
	}
}

func TestBuildNoteObject(t *testing.T) {
	bookmark := &domain.Bookmark{
		Id:          1,
		URL:         "https://example.com/article",
		Title:       "Tools & Toys",
		Description: "A <great> read",
		Tags:        "#reading #tools",
	}

	note := BuildNoteObject(bookmark, testIdentity(), "abc123")

	if note.ID != "https://mydomain.example/m/abc123" {
		t.Errorf("Got note id %q", note.ID)
	}
	if note.Type != "Note" {
		t.Errorf("Got note type %q", note.Type)
	}
	if note.AttributedTo != "https://mydomain.example/u/bookmarks" {
		t.Errorf("Got attributedTo %q", note.AttributedTo)
	}

	// Title and description are escaped, never raw
	if !strings.Contains(note.Content, "Tools &amp; Toys") {
		t.Errorf("Expected escaped title in content: %s", note.Content)
	}
	if strings.Contains(note.Content, "<great>") {
		t.Errorf("Expected description HTML to be escaped: %s", note.Content)
	}

	// Tags become hashtag links and tag entries
	if !strings.Contains(note.Content, `rel="tag nofollow noopener noreferrer"`) {
		t.Errorf("Expected tag links in content: %s", note.Content)
	}
	if len(note.Tag) != 2 {
		t.Fatalf("Expected 2 tag entries, got %d", len(note.Tag))
	}
	if note.Tag[0].Name != "#reading" || note.Tag[0].Type != "Hashtag" {
		t.Errorf("Unexpected first tag: %+v", note.Tag[0])
	}

	// Addressed to followers and the public collection
	if len(note.To) != 2 || note.To[1] != PublicAudience {
		t.Errorf("Unexpected addressing: %v", note.To)
	}
}

func TestBuildNoteObjectFallsBackToURL(t *testing.T) {
	bookmark := &domain.Bookmark{URL: "https://example.com/untitled"}
	note := BuildNoteObject(bookmark, testIdentity(), "abc123")

	if !strings.Contains(note.Content, "https://example.com/untitled</a>") {
		t.Errorf("Expected the URL as link text when title is empty: %s", note.Content)
	}
}

func TestCreateNoteThenDelete(t *testing.T) {
	fed, database := newTestFederation(t)

	err, bookmarkId := database.CreateBookmark(&domain.Bookmark{URL: "https://example.com", Title: "t"})
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}
	err, bookmark := database.ReadBookmark(bookmarkId)
	if err != nil {
		t.Fatalf("ReadBookmark failed: %v", err)
	}

	activity, err := fed.CreateNote(bookmark)
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if activity.Type != "Create" {
		t.Errorf("Got envelope type %q", activity.Type)
	}

	err, guid := database.GuidForBookmark(bookmarkId)
	if err != nil {
		t.Fatalf("GuidForBookmark failed: %v", err)
	}
	if guid == "" {
		t.Fatal("Expected a stored message for the bookmark")
	}

	deleteActivity, err := fed.CreateDelete(bookmark)
	if err != nil {
		t.Fatalf("CreateDelete failed: %v", err)
	}
	if deleteActivity.Type != "Delete" {
		t.Errorf("Got envelope type %q", deleteActivity.Type)
	}

	tombstone, ok := deleteActivity.Object.(Tombstone)
	if !ok {
		t.Fatalf("Expected a Tombstone object, got %T", deleteActivity.Object)
	}
	if tombstone.ID != "https://mydomain.example/m/"+guid {
		t.Errorf("Got tombstone id %q", tombstone.ID)
	}

	// The stored message is gone afterwards
	err, _ = database.ReadMessage(guid)
	if err != sql.ErrNoRows {
		t.Errorf("Expected sql.ErrNoRows after delete, got %v", err)
	}
}

func TestCreateDeleteUnpublishedBookmark(t *testing.T) {
	fed, _ := newTestFederation(t)

	activity, err := fed.CreateDelete(&domain.Bookmark{Id: 99})
	if err != nil {
		t.Fatalf("CreateDelete failed: %v", err)
	}
	if activity != nil {
		t.Error("Expected no activity for a never-federated bookmark")
	}
}

func TestCreateUpdate(t *testing.T) {
	fed, database := newTestFederation(t)

	err, bookmarkId := database.CreateBookmark(&domain.Bookmark{URL: "https://example.com", Title: "t"})
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}
	err, bookmark := database.ReadBookmark(bookmarkId)
	if err != nil {
		t.Fatalf("ReadBookmark failed: %v", err)
	}

	// First federation of an edited bookmark behaves like a create
	first, err := fed.CreateUpdate(bookmark)
	if err != nil {
		t.Fatalf("CreateUpdate failed: %v", err)
	}
	if _, ok := first.Object.(*Note); !ok {
		t.Errorf("Expected a full Note on first publication, got %T", first.Object)
	}

	err, guid := database.GuidForBookmark(bookmarkId)
	if err != nil || guid == "" {
		t.Fatalf("Expected a stored message, err: %v", err)
	}

	// Later edits wrap the existing Note's IRI in a Create envelope
	second, err := fed.CreateUpdate(bookmark)
	if err != nil {
		t.Fatalf("Second CreateUpdate failed: %v", err)
	}
	if second.Type != "Create" {
		t.Errorf("Got envelope type %q, want Create", second.Type)
	}
	iri, ok := second.Object.(string)
	if !ok {
		t.Fatalf("Expected a bare IRI object, got %T", second.Object)
	}
	if iri != "https://mydomain.example/m/"+guid {
		t.Errorf("Got object IRI %q", iri)
	}
}

func TestSynthesizeActivity(t *testing.T) {
	fed, _ := newTestFederation(t)

	msg := &domain.StoredMessage{
		Guid:    "abc123",
		Message: `{"id":"https://mydomain.example/m/abc123","type":"Note"}`,
	}

	activity := fed.SynthesizeActivity(msg)
	if activity.ID != "https://mydomain.example/m/a-abc123" {
		t.Errorf("Got activity id %q", activity.ID)
	}
	if activity.Type != "Create" {
		t.Errorf("Got activity type %q", activity.Type)
	}

	// The wrapper must embed the stored JSON untouched
	payload, err := json.Marshal(activity)
	if err != nil {
		t.Fatalf("Failed to marshal synthesized activity: %v", err)
	}
	if !strings.Contains(string(payload), `"id":"https://mydomain.example/m/abc123"`) {
		t.Errorf("Expected embedded note JSON in %s", payload)
	}
}
