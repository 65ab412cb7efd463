package web

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// HandleMessage serves a stored activity permalink. /m/{guid} returns
// the persisted object JSON, /m/a-{guid} the synthesized Create
// wrapper. Browsers get redirected to the bookmark page instead.
func (s *Server) HandleMessage(c *gin.Context) {
	guid := c.Param("guid")
	synthesized := false
	if rest, found := strings.CutPrefix(guid, "a-"); found {
		guid = rest
		synthesized = true
	}

	err, msg := s.database.ReadMessage(guid)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such message"})
		return
	}
	if err != nil {
		log.Printf("Message: Failed to read %s: %v", guid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if !wantsActivityJSON(c) {
		if msg.BookmarkId != nil {
			c.Redirect(http.StatusFound, fmt.Sprintf("/b/%d", *msg.BookmarkId))
		} else {
			c.Redirect(http.StatusFound, "/")
		}
		return
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")
	if synthesized {
		c.JSON(http.StatusOK, s.fed.SynthesizeActivity(msg))
		return
	}
	c.Render(http.StatusOK, render.String{Format: "%s", Data: []interface{}{msg.Message}})
}

// wantsActivityJSON checks whether the client asked for a JSON
// representation rather than a human page.
func wantsActivityJSON(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "json")
}
