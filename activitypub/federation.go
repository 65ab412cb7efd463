package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
	"github.com/deemkeen/markodon/util"
	"github.com/google/uuid"
)

// Federation is the engine behind the ActivityPub surface: it owns the
// follow graph transitions, message synthesis and outbound delivery.
// One instance is built at boot with the singleton actor identity and
// shared by the HTTP handlers and the delivery worker.
type Federation struct {
	database *db.DB
	identity domain.ActorIdentity
	keys     *KeyStore
	dir      *Directory
}

func NewFederation(database *db.DB, identity domain.ActorIdentity, keys *KeyStore, dir *Directory) *Federation {
	return &Federation{
		database: database,
		identity: identity,
		keys:     keys,
		dir:      dir,
	}
}

func (f *Federation) Identity() domain.ActorIdentity {
	return f.identity
}

func (f *Federation) Directory() *Directory {
	return f.dir
}

// SendActivity enqueues a signed delivery of the activity to the given
// inbox. The triggering request never waits on the remote server; the
// delivery worker picks the item up on its next tick.
func (f *Federation) SendActivity(inboxURI string, activity interface{}) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	item := &domain.DeliveryItem{
		Id:           uuid.New(),
		InboxURI:     inboxURI,
		ActivityJSON: string(payload),
		Attempts:     0,
		NextRetryAt:  time.Now(),
		CreatedAt:    time.Now(),
	}

	return f.database.EnqueueDelivery(item)
}

// SendAccept replies to a Follow (or Undo) with an Accept wrapping the
// original activity, addressed to the sender's inbox.
func (f *Federation) SendAccept(remote *domain.RemoteActor, object json.RawMessage) error {
	accept := Activity{
		Context: ActivityStreamsContext,
		ID:      fmt.Sprintf("https://%s/m/%s", f.identity.Domain, util.NewGuid()),
		Type:    "Accept",
		Actor:   f.identity.IRI(),
		Object:  object,
	}

	return f.SendActivity(remote.InboxURI, accept)
}

// Follow resolves the target (an @user@domain handle or an actor IRI),
// records a Follow message and enqueues it for delivery. The following
// record is only written once the remote side's Accept arrives.
func (f *Federation) Follow(target string) error {
	actorIRI := target
	if _, _, ok := domain.ParseHandle(target); ok {
		resolved, err := f.dir.LookupHandle(target)
		if err != nil {
			return err
		}
		actorIRI = resolved
	}

	remote, err := f.dir.GetOrFetchActor(actorIRI)
	if err != nil {
		return err
	}

	guid := util.NewGuid()
	follow := Activity{
		Context: ActivityStreamsContext,
		ID:      fmt.Sprintf("https://%s/m/%s", f.identity.Domain, guid),
		Type:    "Follow",
		Actor:   f.identity.IRI(),
		Object:  remote.ActorIRI,
	}

	payload, err := json.Marshal(follow)
	if err != nil {
		return fmt.Errorf("failed to marshal Follow: %w", err)
	}
	if err := f.database.InsertMessage(guid, nil, string(payload)); err != nil {
		return fmt.Errorf("failed to store Follow message: %w", err)
	}

	return f.SendActivity(remote.InboxURI, follow)
}

// Unfollow removes the following record and best-effort sends an Undo
// to the remote inbox. Local state is authoritative: the record is gone
// even if resolution or delivery fails.
func (f *Federation) Unfollow(actorIRI string) error {
	if err := f.database.RemoveFollowing(actorIRI); err != nil {
		return err
	}

	inbox, err := f.dir.ResolveInbox(actorIRI)
	if err != nil {
		log.Printf("Federation: Cannot resolve inbox for unfollowed actor %s: %v", actorIRI, err)
		return nil
	}

	undo := Activity{
		Context: ActivityStreamsContext,
		ID:      fmt.Sprintf("https://%s/m/%s", f.identity.Domain, util.NewGuid()),
		Type:    "Undo",
		Actor:   f.identity.IRI(),
		Object: Activity{
			ID:     fmt.Sprintf("https://%s/m/%s", f.identity.Domain, util.NewGuid()),
			Type:   "Follow",
			Actor:  f.identity.IRI(),
			Object: actorIRI,
		},
	}

	if err := f.SendActivity(inbox, undo); err != nil {
		log.Printf("Federation: Failed to enqueue Undo for %s: %v", actorIRI, err)
	}
	return nil
}

// Block removes the actor from the followers set and prevents it from
// re-following. Future Follow attempts still get a courtesy Accept but
// never a followers entry.
func (f *Federation) Block(actorIRI string) error {
	if err := f.database.RemoveFollower(actorIRI); err != nil {
		return err
	}
	return f.database.AddBlock(actorIRI)
}

// Unblock removes the block record only; the actor has to follow again.
func (f *Federation) Unblock(actorIRI string) error {
	return f.database.RemoveBlock(actorIRI)
}

// Broadcast enqueues the activity for delivery to every follower's
// inbox. Followers whose inbox cannot be resolved are skipped with a
// log line; one dead instance must not hold up the rest.
func (f *Federation) Broadcast(activity interface{}) {
	err, followers := f.database.ReadFollowers()
	if err != nil {
		log.Printf("Federation: Failed to read followers for broadcast: %v", err)
		return
	}

	for _, follower := range followers {
		inbox, err := f.dir.ResolveInbox(follower)
		if err != nil {
			log.Printf("Federation: Skipping follower %s, inbox unresolved: %v", follower, err)
			continue
		}
		if err := f.SendActivity(inbox, activity); err != nil {
			log.Printf("Federation: Failed to enqueue delivery to %s: %v", inbox, err)
		}
	}
}
