package domain

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

// handlePattern matches @user@domain moderation patterns.
var handlePattern = regexp.MustCompile(`^@([^@]+)@(.+)$`)

// actorIRIPattern matches the profile URL shapes the fediverse actually
// uses: /u/, /us/, /user/ and /users/ path prefixes.
var actorIRIPattern = regexp.MustCompile(`^https?://([^/]+)/u(?:ser)?s?/([^/]+)$`)

// linkPattern is a deliberately loose URL detector for network posts.
var linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// ParseHandle splits an "@user@domain" pattern into its components.
func ParseHandle(handle string) (user string, domain string, ok bool) {
	m := handlePattern.FindStringSubmatch(handle)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ParseActorIRI extracts the username and host from a remote actor
// profile URL like https://example.social/users/alice.
func ParseActorIRI(iri string) (user string, domain string, ok bool) {
	m := actorIRIPattern.FindStringSubmatch(iri)
	if m == nil {
		return "", "", false
	}
	return m[2], m[1], true
}

// ActorMatches reports whether an actor IRI refers to the identity named
// by an @user@domain pattern. Both components must match exactly,
// case-sensitive. Malformed input is logged and treated as a non-match so
// a bad remote IRI or a typoed moderation rule can never break inbox
// processing.
func ActorMatches(actorIRI string, pattern string) bool {
	if pattern == "" {
		return false
	}
	user, domain, ok := ParseHandle(pattern)
	if !ok {
		log.Printf("pattern %q isn't parseable, rules should be written as @user@domain", pattern)
		return false
	}

	actorUser, actorDomain, ok := ParseActorIRI(actorIRI)
	if !ok {
		log.Printf("found an unparseable actor iri: %q", actorIRI)
		return false
	}

	return user == actorUser && domain == actorDomain
}

// GuidFromPermalink extracts the message guid from a local permalink of
// the form https://{domain}/m/{guid}.
func GuidFromPermalink(url string, domain string) (string, bool) {
	prefix := fmt.Sprintf("https://%s/m/", domain)
	guid, found := strings.CutPrefix(url, prefix)
	if !found || guid == "" || strings.Contains(guid, "/") {
		return "", false
	}
	return guid, true
}

// ContainsLink reports whether free-form post content carries at least
// one http(s) URL.
func ContainsLink(content string) bool {
	return linkPattern.MatchString(content)
}

// FirstLink returns the first http(s) URL in the content, or "".
func FirstLink(content string) string {
	return linkPattern.FindString(content)
}
