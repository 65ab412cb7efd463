package activitypub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
	"github.com/deemkeen/markodon/util"
)

// ErrNoInbox is returned when a resolved actor document carries no inbox.
var ErrNoInbox = errors.New("actor document has no inbox")

// ErrUnresolvedActor is returned when a webfinger lookup yields no
// usable self link.
var ErrUnresolvedActor = errors.New("could not resolve actor")

// actorCacheTTL bounds how long a cached remote profile is trusted
// before a re-fetch.
const actorCacheTTL = 24 * time.Hour

// Directory resolves remote actor IRIs and @user@domain handles to
// profile documents and inbox URLs, caching profiles in the database.
type Directory struct {
	database *db.DB
	client   *http.Client
}

func NewDirectory(database *db.DB) *Directory {
	return &Directory{
		database: database,
		// A slow remote server must not stall request handlers.
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchActor fetches an actor document from a remote server and caches
// the profile.
func (d *Directory) FetchActor(actorIRI string) (*domain.RemoteActor, error) {
	req, err := http.NewRequest("GET", actorIRI, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actor fetch failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var actor ActorResponse
	if err := json.Unmarshal(body, &actor); err != nil {
		return nil, fmt.Errorf("failed to parse actor JSON: %w", err)
	}

	if actor.ID == "" || actor.Inbox == "" || actor.PublicKey.PublicKeyPem == "" {
		return nil, fmt.Errorf("actor missing required fields")
	}

	domainName, err := extractDomain(actor.ID)
	if err != nil {
		return nil, err
	}

	remote := &domain.RemoteActor{
		ActorIRI:      actor.ID,
		Username:      actor.PreferredUsername,
		Domain:        domainName,
		DisplayName:   actor.Name,
		InboxURI:      actor.Inbox,
		PublicKeyPem:  actor.PublicKey.PublicKeyPem,
		AvatarURL:     actor.Icon.URL,
		LastFetchedAt: time.Now(),
	}

	if err := d.database.UpsertRemoteActor(remote); err != nil {
		return nil, fmt.Errorf("failed to cache remote actor: %w", err)
	}

	return remote, nil
}

// GetOrFetchActor returns the cached profile for an actor IRI, fetching
// a fresh one when the cache entry is missing or stale.
func (d *Directory) GetOrFetchActor(actorIRI string) (*domain.RemoteActor, error) {
	err, cached := d.database.ReadRemoteActor(actorIRI)
	if err == nil && cached != nil {
		if time.Since(cached.LastFetchedAt) < actorCacheTTL {
			return cached, nil
		}
	}

	return d.FetchActor(actorIRI)
}

// ResolveInbox resolves an actor IRI to its inbox URL.
func (d *Directory) ResolveInbox(actorIRI string) (string, error) {
	actor, err := d.GetOrFetchActor(actorIRI)
	if err != nil {
		return "", err
	}
	if actor.InboxURI == "" {
		return "", ErrNoInbox
	}
	return actor.InboxURI, nil
}

// LookupHandle resolves an "@user@domain" handle to an actor IRI via the
// remote server's webfinger endpoint. Best-effort: network and parse
// failures collapse into ErrUnresolvedActor and the caller decides what
// to do without the lookup.
func (d *Directory) LookupHandle(handle string) (string, error) {
	user, host, ok := domain.ParseHandle(handle)
	if !ok {
		return "", ErrUnresolvedActor
	}

	wfURL := fmt.Sprintf("https://%s/.well-known/webfinger?resource=acct:%s@%s",
		host, url.QueryEscape(user), host)

	req, err := http.NewRequest("GET", wfURL, nil)
	if err != nil {
		return "", ErrUnresolvedActor
	}
	req.Header.Set("Accept", "application/jrd+json, application/json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	resp, err := d.client.Do(req)
	if err != nil {
		log.Printf("Directory: Webfinger lookup for %s failed: %v", handle, err)
		return "", ErrUnresolvedActor
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Directory: Webfinger lookup for %s returned status %d", handle, resp.StatusCode)
		return "", ErrUnresolvedActor
	}

	var wf WebfingerResponse
	if err := json.NewDecoder(resp.Body).Decode(&wf); err != nil {
		log.Printf("Directory: Webfinger response for %s unparseable: %v", handle, err)
		return "", ErrUnresolvedActor
	}

	for _, link := range wf.Links {
		if link.Rel == "self" && link.Href != "" {
			return link.Href, nil
		}
	}

	return "", ErrUnresolvedActor
}

// extractDomain extracts the host from an actor IRI.
func extractDomain(actorIRI string) (string, error) {
	parsed, err := url.Parse(actorIRI)
	if err != nil {
		return "", fmt.Errorf("invalid actor URI: %w", err)
	}
	return parsed.Host, nil
}
