package activitypub

// ActivityStreamsContext is the JSON-LD context for all emitted objects.
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// PublicAudience addresses an activity to the world.
const PublicAudience = "https://www.w3.org/ns/activitystreams#Public"

// Activity represents a generic ActivityPub activity envelope.
type Activity struct {
	Context interface{} `json:"@context,omitempty"`
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Actor   string      `json:"actor"`
	To      []string    `json:"to,omitempty"`
	Cc      []string    `json:"cc,omitempty"`
	Object  interface{} `json:"object"`
}

// Note is an ActivityStreams Note object as published for a bookmark.
type Note struct {
	Context      interface{} `json:"@context,omitempty"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Published    string      `json:"published"`
	AttributedTo string      `json:"attributedTo"`
	Content      string      `json:"content"`
	URL          string      `json:"url,omitempty"`
	To           []string    `json:"to"`
	Tag          []Tag       `json:"tag,omitempty"`
}

// Tag is a hashtag entry on a Note.
type Tag struct {
	Type string `json:"type"`
	Href string `json:"href"`
	Name string `json:"name"`
}

// Tombstone marks a deleted object in a Delete activity.
type Tombstone struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ActorResponse represents the JSON structure of a remote ActivityPub actor.
type ActorResponse struct {
	Context           interface{} `json:"@context"`
	ID                string      `json:"id"`
	Type              string      `json:"type"`
	PreferredUsername string      `json:"preferredUsername"`
	Name              string      `json:"name"`
	Summary           string      `json:"summary"`
	Inbox             string      `json:"inbox"`
	Outbox            string      `json:"outbox"`
	Icon              struct {
		Type      string `json:"type"`
		MediaType string `json:"mediaType"`
		URL       string `json:"url"`
	} `json:"icon"`
	PublicKey struct {
		ID           string `json:"id"`
		Owner        string `json:"owner"`
		PublicKeyPem string `json:"publicKeyPem"`
	} `json:"publicKey"`
}

// WebfingerResponse is a JSON Resource Descriptor as returned by
// /.well-known/webfinger.
type WebfingerResponse struct {
	Subject string          `json:"subject"`
	Links   []WebfingerLink `json:"links"`
}

// WebfingerLink is one entry in a webfinger links array.
type WebfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}
