package activitypub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/deemkeen/markodon/domain"
)

// ErrCannotParseReply is returned when a reply Note's inReplyTo does
// not resolve to a local bookmark message.
var ErrCannotParseReply = errors.New("cannot resolve reply target")

// inboundActivity is the shape of an incoming activity envelope; Object
// stays raw until the type switch decides how to read it.
type inboundActivity struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Actor  string          `json:"actor"`
	Object json.RawMessage `json:"object"`
}

// inboundObject covers the object fields any handled type needs.
type inboundObject struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	InReplyTo string `json:"inReplyTo"`
}

// HandleActivity processes one activity received on the inbox boundary
// and returns the HTTP status for the POST: 200 for processed or
// ignored, 400 for malformed payloads, 403 for blocked actors. Only
// Follow, Undo(Follow), Accept(Follow), Create(Note) and Delete are
// modeled; anything else is a 400.
func (f *Federation) HandleActivity(body []byte) (int, error) {
	var activity inboundActivity
	if err := json.Unmarshal(body, &activity); err != nil {
		return http.StatusBadRequest, fmt.Errorf("failed to parse activity: %w", err)
	}

	log.Printf("Inbox: Received %s from %s", activity.Type, activity.Actor)

	switch activity.Type {
	case "Follow":
		return f.handleFollow(&activity)
	case "Undo":
		return f.handleUndo(&activity)
	case "Accept":
		return f.handleAccept(&activity)
	case "Delete":
		return f.handleDelete(&activity)
	case "Create":
		return f.handleCreate(&activity)
	default:
		return http.StatusBadRequest, fmt.Errorf("unsupported activity type: %s", activity.Type)
	}
}

// handleFollow sends an Accept and records the follower. A blocked
// actor still gets the courtesy Accept but never a followers entry;
// suppressing the reply would leak the block to the remote server.
func (f *Federation) handleFollow(activity *inboundActivity) (int, error) {
	remote, err := f.dir.GetOrFetchActor(activity.Actor)
	if err != nil {
		log.Printf("Inbox: Cannot resolve follower %s, ignoring Follow: %v", activity.Actor, err)
		return http.StatusOK, nil
	}

	original, err := json.Marshal(activity)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if err := f.SendAccept(remote, original); err != nil {
		log.Printf("Inbox: Failed to enqueue Accept for %s: %v", activity.Actor, err)
	}

	if f.IsBlocked(activity.Actor, nil) {
		log.Printf("Inbox: Suppressing follow from blocked actor %s", activity.Actor)
		return http.StatusOK, nil
	}

	if err := f.database.AddFollower(activity.Actor); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to add follower: %w", err)
	}

	log.Printf("Inbox: Accepted follow from %s", remote.Handle())
	return http.StatusOK, nil
}

// handleUndo processes Undo(Follow): the undo is trusted on receipt and
// the follower record removed unconditionally.
func (f *Federation) handleUndo(activity *inboundActivity) (int, error) {
	var obj inboundObject
	if err := json.Unmarshal(activity.Object, &obj); err != nil {
		return http.StatusBadRequest, fmt.Errorf("failed to parse Undo object: %w", err)
	}
	if obj.Type != "Follow" {
		return http.StatusBadRequest, fmt.Errorf("unsupported Undo object type: %s", obj.Type)
	}

	if remote, err := f.dir.GetOrFetchActor(activity.Actor); err == nil {
		original, merr := json.Marshal(activity)
		if merr == nil {
			if err := f.SendAccept(remote, original); err != nil {
				log.Printf("Inbox: Failed to enqueue Accept for Undo from %s: %v", activity.Actor, err)
			}
		}
	}

	if err := f.database.RemoveFollower(activity.Actor); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to remove follower: %w", err)
	}

	log.Printf("Inbox: Removed follower %s", activity.Actor)
	return http.StatusOK, nil
}

// handleAccept records the remote side's confirmation of our Follow.
func (f *Federation) handleAccept(activity *inboundActivity) (int, error) {
	var obj inboundObject
	if err := json.Unmarshal(activity.Object, &obj); err != nil {
		return http.StatusBadRequest, fmt.Errorf("failed to parse Accept object: %w", err)
	}
	if obj.Type != "Follow" {
		return http.StatusBadRequest, fmt.Errorf("unsupported Accept object type: %s", obj.Type)
	}

	if err := f.database.AddFollowing(activity.Actor); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to record following: %w", err)
	}

	log.Printf("Inbox: Follow of %s was accepted", activity.Actor)
	return http.StatusOK, nil
}

// handleDelete removes a stored comment by its remote URL. Deleting a
// comment that was never stored, or was already deleted, is a no-op.
func (f *Federation) handleDelete(activity *inboundActivity) (int, error) {
	objectURI := objectID(activity.Object)
	if objectURI == "" {
		return http.StatusBadRequest, fmt.Errorf("Delete activity without object id")
	}

	if err := f.database.DeleteCommentByURL(objectURI); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to delete comment: %w", err)
	}

	log.Printf("Inbox: Deleted comment %s if present", objectURI)
	return http.StatusOK, nil
}

// handleCreate stores an incoming Note either as a comment on the
// bookmark it replies to, or as a network post when a followed actor
// shares a link.
func (f *Federation) handleCreate(activity *inboundActivity) (int, error) {
	var obj inboundObject
	if err := json.Unmarshal(activity.Object, &obj); err != nil {
		return http.StatusBadRequest, fmt.Errorf("failed to parse Create object: %w", err)
	}
	if obj.Type != "Note" {
		return http.StatusBadRequest, fmt.Errorf("unsupported Create object type: %s", obj.Type)
	}

	if obj.InReplyTo == "" {
		return f.handleNetworkPost(activity, &obj)
	}

	guid, ok := domain.GuidFromPermalink(obj.InReplyTo, f.identity.Domain)
	if !ok {
		return http.StatusBadRequest, fmt.Errorf("%w: %s", ErrCannotParseReply, obj.InReplyTo)
	}

	err, bookmarkId := f.database.BookmarkIdForGuid(guid)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if bookmarkId == nil {
		return http.StatusBadRequest, fmt.Errorf("%w: no bookmark for guid %s", ErrCannotParseReply, guid)
	}

	if f.IsBlocked(activity.Actor, bookmarkId) {
		return http.StatusForbidden, fmt.Errorf("actor %s is blocked", activity.Actor)
	}

	remote, err := f.dir.GetOrFetchActor(activity.Actor)
	if err != nil {
		log.Printf("Inbox: Cannot resolve commenter %s, dropping comment: %v", activity.Actor, err)
		return http.StatusOK, nil
	}

	comment := &domain.Comment{
		BookmarkId: bookmarkId,
		Name:       remote.Handle(),
		URL:        obj.ID,
		Content:    obj.Content,
		Visible:    f.IsAllowed(activity.Actor, bookmarkId),
	}
	if err := f.database.CreateComment(comment); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to store comment: %w", err)
	}

	log.Printf("Inbox: Stored comment from %s on bookmark %d (visible: %v)", comment.Name, *bookmarkId, comment.Visible)
	return http.StatusOK, nil
}

// handleNetworkPost stores a followed actor's link-bearing post for
// later triage. Never auto-visible; posts without a link are ignored.
func (f *Federation) handleNetworkPost(activity *inboundActivity, obj *inboundObject) (int, error) {
	if f.IsBlocked(activity.Actor, nil) {
		return http.StatusForbidden, fmt.Errorf("actor %s is blocked", activity.Actor)
	}

	if !domain.ContainsLink(obj.Content) {
		log.Printf("Inbox: Ignoring post without links from %s", activity.Actor)
		return http.StatusOK, nil
	}

	name := activity.Actor
	if remote, err := f.dir.GetOrFetchActor(activity.Actor); err == nil {
		name = remote.Handle()
	}

	comment := &domain.Comment{
		BookmarkId: nil,
		Name:       name,
		URL:        obj.ID,
		Content:    obj.Content,
		Visible:    false,
	}
	if err := f.database.CreateComment(comment); err != nil {
		return http.StatusInternalServerError, fmt.Errorf("failed to store network post: %w", err)
	}

	log.Printf("Inbox: Stored network post from %s", name)
	return http.StatusOK, nil
}

// objectID extracts the id whether the object is a bare IRI string or
// an embedded object (a Tombstone, usually).
func objectID(raw json.RawMessage) string {
	var iri string
	if err := json.Unmarshal(raw, &iri); err == nil {
		return iri
	}
	var obj inboundObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
