package web

import (
	"net/http"
	"strings"

	"github.com/deemkeen/markodon/activitypub"
	"github.com/gin-gonic/gin"
)

// HandleWebfinger answers /.well-known/webfinger lookups for the
// singleton actor. The queried name must match user@domain exactly.
func (s *Server) HandleWebfinger(c *gin.Context) {
	resource := c.Query("resource")
	if resource == "" || !strings.HasPrefix(resource, "acct:") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing acct: resource"})
		return
	}

	identity := s.fed.Identity()
	if strings.TrimPrefix(resource, "acct:") != identity.Handle() {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such actor"})
		return
	}

	c.Header("Content-Type", "application/jrd+json; charset=utf-8")
	c.JSON(http.StatusOK, activitypub.WebfingerResponse{
		Subject: resource,
		Links: []activitypub.WebfingerLink{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: identity.IRI(),
			},
		},
	})
}
