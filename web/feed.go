package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/gorilla/feeds"
)

// HandleFeed serves the bookmark collection as an Atom feed at
// /index.xml for plain feed readers.
func (s *Server) HandleFeed(c *gin.Context) {
	err, bookmarks := s.database.ReadBookmarks(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	identity := s.fed.Identity()
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s's bookmarks", identity.Username),
		Link:        &feeds.Link{Href: fmt.Sprintf("https://%s/", identity.Domain)},
		Description: identity.Summary,
		Author:      &feeds.Author{Name: identity.DisplayName},
	}

	for _, bookmark := range *bookmarks {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("https://%s/b/%d", identity.Domain, bookmark.Id),
			Title:       bookmark.Title,
			Link:        &feeds.Link{Href: bookmark.URL},
			Description: bookmark.Description,
			Created:     bookmark.CreatedAt,
			Updated:     bookmark.UpdatedAt,
		})
	}

	atom, err := feed.ToAtom()
	if err != nil {
		log.Printf("Feed: Failed to render atom feed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Content-Type", "application/atom+xml; charset=utf-8")
	c.Render(http.StatusOK, render.String{Format: "%s", Data: []interface{}{atom}})
}
