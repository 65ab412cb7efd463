package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/deemkeen/markodon/activitypub"
	"github.com/gin-gonic/gin"
)

// actorDocument is the Person JSON served at /u/{name}. The publicKey
// id carries the #main-key fragment; signature keyIds resolve here.
type actorDocument struct {
	Context           interface{}     `json:"@context"`
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	PreferredUsername string          `json:"preferredUsername"`
	Name              string          `json:"name,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	Inbox             string          `json:"inbox"`
	Outbox            string          `json:"outbox"`
	Followers         string          `json:"followers"`
	Following         string          `json:"following"`
	Icon              *actorIcon      `json:"icon,omitempty"`
	PublicKey         actorPublicKey  `json:"publicKey"`
}

type actorIcon struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"`
}

type actorPublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// HandleActor serves the local actor document. There is exactly one
// actor; any other name is a 404.
func (s *Server) HandleActor(c *gin.Context) {
	identity := s.fed.Identity()
	if c.Param("name") != identity.Username {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such actor"})
		return
	}

	doc := actorDocument{
		Context: []string{
			activitypub.ActivityStreamsContext,
			"https://w3id.org/security/v1",
		},
		ID:                identity.IRI(),
		Type:              "Person",
		PreferredUsername: identity.Username,
		Name:              identity.DisplayName,
		Summary:           identity.Summary,
		Inbox:             identity.InboxIRI(),
		Outbox:            identity.OutboxIRI(),
		Followers:         identity.FollowersIRI(),
		Following:         identity.FollowingIRI(),
		PublicKey: actorPublicKey{
			ID:           identity.IRI() + "#main-key",
			Owner:        identity.IRI(),
			PublicKeyPem: identity.PublicKeyPem,
		},
	}

	if identity.AvatarURL != "" {
		doc.Icon = &actorIcon{
			Type:      "Image",
			MediaType: "image/png",
			URL:       identity.AvatarURL,
		}
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(http.StatusOK, doc)
}

// actorCollection is the followers/following OrderedCollection with one
// inline page.
type actorCollection struct {
	Context    interface{}         `json:"@context"`
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	TotalItems int                 `json:"totalItems"`
	First      actorCollectionPage `json:"first"`
}

type actorCollectionPage struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	PartOf       string   `json:"partOf"`
	OrderedItems []string `json:"orderedItems"`
}

// HandleFollowers serves the followers collection.
func (s *Server) HandleFollowers(c *gin.Context) {
	s.handleActorCollection(c, s.fed.Identity().FollowersIRI(), s.database.ReadFollowers)
}

// HandleFollowing serves the following collection.
func (s *Server) HandleFollowing(c *gin.Context) {
	s.handleActorCollection(c, s.fed.Identity().FollowingIRI(), s.database.ReadFollowing)
}

func (s *Server) handleActorCollection(c *gin.Context, collectionIRI string, read func() (error, []string)) {
	if c.Param("name") != s.fed.Identity().Username {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such actor"})
		return
	}

	err, iris := read()
	if err != nil {
		log.Printf("Actor: Failed to read collection %s: %v", collectionIRI, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if iris == nil {
		iris = []string{}
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	c.JSON(http.StatusOK, actorCollection{
		Context:    activitypub.ActivityStreamsContext,
		ID:         collectionIRI,
		Type:       "OrderedCollection",
		TotalItems: len(iris),
		First: actorCollectionPage{
			ID:           fmt.Sprintf("%s?page=1", collectionIRI),
			Type:         "OrderedCollectionPage",
			PartOf:       collectionIRI,
			OrderedItems: iris,
		},
	})
}
