package activitypub

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/deemkeen/markodon/domain"
	"github.com/deemkeen/markodon/util"
)

// BuildNoteObject deterministically renders a bookmark as an
// ActivityStreams Note. Title and description are HTML-escaped, the
// title links to the bookmarked URL and each #tag becomes a hashtag
// link to the local tag page.
func BuildNoteObject(bookmark *domain.Bookmark, identity domain.ActorIdentity, guid string) *Note {
	title := html.EscapeString(bookmark.Title)
	if strings.TrimSpace(title) == "" {
		title = html.EscapeString(bookmark.URL)
	}

	description := html.EscapeString(strings.TrimSpace(bookmark.Description))
	if description != "" {
		description = "<br/>" + strings.ReplaceAll(description, "\n", "<br/>")
	}

	var tagLinks []string
	var tags []Tag
	for _, token := range strings.Fields(bookmark.Tags) {
		name := strings.TrimPrefix(token, "#")
		if name == "" {
			continue
		}
		href := fmt.Sprintf("https://%s/tagged/%s", identity.Domain, name)
		tagLinks = append(tagLinks,
			fmt.Sprintf(`<a href="%s" class="mention hashtag" rel="tag nofollow noopener noreferrer">#%s</a>`, href, name))
		tags = append(tags, Tag{Type: "Hashtag", Href: href, Name: "#" + name})
	}

	content := fmt.Sprintf(`<p><strong><a href="%s" rel="nofollow noopener noreferrer">%s</a></strong>%s</p>`,
		bookmark.URL, title, description)
	if len(tagLinks) > 0 {
		content += "<p>" + strings.Join(tagLinks, " ") + "</p>"
	}

	return &Note{
		Context:      ActivityStreamsContext,
		ID:           fmt.Sprintf("https://%s/m/%s", identity.Domain, guid),
		Type:         "Note",
		Published:    time.Now().UTC().Format(time.RFC3339),
		AttributedTo: identity.IRI(),
		Content:      content,
		URL:          bookmark.URL,
		To:           []string{identity.FollowersIRI(), PublicAudience},
		Tag:          tags,
	}
}

// CreateNote builds and persists the Note for a bookmark and returns
// the Create envelope ready for broadcast.
func (f *Federation) CreateNote(bookmark *domain.Bookmark) (*Activity, error) {
	guid := util.NewGuid()
	note := BuildNoteObject(bookmark, f.identity, guid)

	payload, err := json.Marshal(note)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Note: %w", err)
	}
	if err := f.database.InsertMessage(guid, &bookmark.Id, string(payload)); err != nil {
		return nil, fmt.Errorf("failed to store Note: %w", err)
	}

	return f.wrapCreate(guid, note), nil
}

// CreateUpdate publishes an edited bookmark. When the bookmark was
// never federated this is just CreateNote; otherwise the envelope wraps
// the existing Note's IRI. The envelope is Create-typed rather than
// Update because Mastodon-family servers drop Updates for objects they
// never saw.
func (f *Federation) CreateUpdate(bookmark *domain.Bookmark) (*Activity, error) {
	err, guid := f.database.GuidForBookmark(bookmark.Id)
	if err != nil {
		return nil, err
	}
	if guid == "" {
		return f.CreateNote(bookmark)
	}

	noteIRI := fmt.Sprintf("https://%s/m/%s", f.identity.Domain, guid)
	return f.wrapCreate(guid, noteIRI), nil
}

// CreateDelete removes the stored message for a bookmark and returns a
// Delete envelope with a Tombstone. Returns (nil, nil) when the
// bookmark was never federated; there is no GUID to tombstone.
func (f *Federation) CreateDelete(bookmark *domain.Bookmark) (*Activity, error) {
	err, guid := f.database.GuidForBookmark(bookmark.Id)
	if err != nil {
		return nil, err
	}
	if guid == "" {
		return nil, nil
	}

	if err := f.database.DeleteMessagesForBookmark(bookmark.Id); err != nil {
		return nil, err
	}

	noteIRI := fmt.Sprintf("https://%s/m/%s", f.identity.Domain, guid)
	return &Activity{
		Context: ActivityStreamsContext,
		ID:      noteIRI + "#delete",
		Type:    "Delete",
		Actor:   f.identity.IRI(),
		To:      []string{PublicAudience},
		Object:  Tombstone{ID: noteIRI, Type: "Tombstone"},
	}, nil
}

// SynthesizeActivity derives the Create wrapper for a persisted message
// on demand, for the /m/a-{guid} permalink and outbox pages.
func (f *Federation) SynthesizeActivity(msg *domain.StoredMessage) *Activity {
	return f.wrapCreate(msg.Guid, json.RawMessage(msg.Message))
}

func (f *Federation) wrapCreate(guid string, object interface{}) *Activity {
	return &Activity{
		Context: ActivityStreamsContext,
		ID:      fmt.Sprintf("https://%s/m/a-%s", f.identity.Domain, guid),
		Type:    "Create",
		Actor:   f.identity.IRI(),
		To:      []string{f.identity.FollowersIRI(), PublicAudience},
		Object:  object,
	}
}
