package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorIdentity is the singleton local actor: profile fields come from the
// config file, the keypair from the key store. Assembled once at boot and
// passed into every component, never kept in package globals.
type ActorIdentity struct {
	Username      string
	Domain        string
	DisplayName   string
	Summary       string
	AvatarURL     string
	PublicKeyPem  string
	PrivateKeyPem string
}

// IRI returns the actor document URL, which doubles as the signature keyId.
func (a ActorIdentity) IRI() string {
	return fmt.Sprintf("https://%s/u/%s", a.Domain, a.Username)
}

func (a ActorIdentity) FollowersIRI() string {
	return a.IRI() + "/followers"
}

func (a ActorIdentity) FollowingIRI() string {
	return a.IRI() + "/following"
}

func (a ActorIdentity) OutboxIRI() string {
	return a.IRI() + "/outbox"
}

func (a ActorIdentity) InboxIRI() string {
	return fmt.Sprintf("https://%s/inbox", a.Domain)
}

// Handle returns the webfinger-style name, e.g. "bookmarks@example.com".
func (a ActorIdentity) Handle() string {
	return fmt.Sprintf("%s@%s", a.Username, a.Domain)
}

// RemoteActor is a cached federated actor profile.
type RemoteActor struct {
	ActorIRI      string
	Username      string
	Domain        string
	DisplayName   string
	InboxURI      string
	PublicKeyPem  string
	AvatarURL     string
	LastFetchedAt time.Time
}

// Handle returns the @user@domain form of the remote actor.
func (r RemoteActor) Handle() string {
	return fmt.Sprintf("@%s@%s", r.Username, r.Domain)
}

// StoredMessage is an outbound activity object the engine has published,
// keyed by the guid embedded in its /m/{guid} permalink. BookmarkId links
// a Note back to its bookmark and is nil for standalone Follow records.
type StoredMessage struct {
	Guid       string
	BookmarkId *int64
	Message    string // raw activity JSON as served at the permalink
	CreatedAt  time.Time
}

// Permissions holds the allow/block lists for one bookmark scope.
// BookmarkId 0 is the global scope. Each list is a newline-separated set
// of @user@domain patterns.
type Permissions struct {
	BookmarkId int64
	Allowed    string
	Blocked    string
}

// DeliveryItem is one pending outbound POST in the delivery queue.
type DeliveryItem struct {
	Id           uuid.UUID
	InboxURI     string
	ActivityJSON string
	Attempts     int
	NextRetryAt  time.Time
	CreatedAt    time.Time
}
