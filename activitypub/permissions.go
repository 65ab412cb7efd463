package activitypub

import (
	"database/sql"
	"log"
	"strings"

	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/domain"
)

// Permission evaluation. Rules are newline-separated @user@domain
// patterns in two scopes, global (bookmark id 0) and per-bookmark.
// Block always wins over allow; the empty rule set means "not yet
// vetted", so comments are stored hidden rather than rejected.

// IsBlocked reports whether the actor is denied for the bookmark scope,
// either by an exact-IRI admin block or a matching block pattern.
func (f *Federation) IsBlocked(actorIRI string, bookmarkId *int64) bool {
	err, blocked := f.database.IsBlocked(actorIRI)
	if err != nil {
		log.Printf("Permissions: Failed to read block records: %v", err)
	}
	if blocked {
		return true
	}

	return matchesAnyRule(actorIRI, f.gatherRules(bookmarkId, func(p *domain.Permissions) string {
		return p.Blocked
	}))
}

// IsAllowed reports whether an allow rule matches the actor for the
// bookmark scope. A true result marks a stored comment visible; it is
// checked only after IsBlocked has said no.
func (f *Federation) IsAllowed(actorIRI string, bookmarkId *int64) bool {
	return matchesAnyRule(actorIRI, f.gatherRules(bookmarkId, func(p *domain.Permissions) string {
		return p.Allowed
	}))
}

func (f *Federation) gatherRules(bookmarkId *int64, pick func(*domain.Permissions) string) []string {
	var rules []string

	scopes := []int64{db.GlobalPermissionsId}
	if bookmarkId != nil && *bookmarkId != db.GlobalPermissionsId {
		scopes = append(scopes, *bookmarkId)
	}

	for _, scope := range scopes {
		err, perms := f.database.ReadPermissions(scope)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			log.Printf("Permissions: Failed to read rules for scope %d: %v", scope, err)
			continue
		}
		for _, line := range strings.Split(pick(perms), "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				rules = append(rules, line)
			}
		}
	}

	return rules
}

func matchesAnyRule(actorIRI string, rules []string) bool {
	for _, rule := range rules {
		if domain.ActorMatches(actorIRI, rule) {
			return true
		}
	}
	return false
}
