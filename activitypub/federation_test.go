package activitypub

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
)

// newTestFederation builds a Federation against a throwaway database,
// with a fixed identity and no network access expected.
func newTestFederation(t *testing.T) (*Federation, *db.DB) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	identity := domain.ActorIdentity{
		Username:    "bookmarks",
		Domain:      "mydomain.example",
		DisplayName: "Bookmarks",
	}

	keys := NewKeyStore(database)
	dir := NewDirectory(database)
	return NewFederation(database, identity, keys, dir), database
}

// cacheRemoteActor seeds the actor cache so inbox handling never hits
// the network in tests.
func cacheRemoteActor(t *testing.T, database *db.DB, actorIRI string, username string, host string) *domain.RemoteActor {
	t.Helper()

	actor := &domain.RemoteActor{
		ActorIRI:      actorIRI,
		Username:      username,
		Domain:        host,
		InboxURI:      actorIRI + "/inbox",
		PublicKeyPem:  "PEM",
		LastFetchedAt: time.Now(),
	}
	if err := database.UpsertRemoteActor(actor); err != nil {
		t.Fatalf("Failed to seed remote actor cache: %v", err)
	}
	return actor
}
