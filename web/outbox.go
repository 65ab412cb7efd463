package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/deemkeen/markodon/activitypub"
	"github.com/gin-gonic/gin"
)

// HandleOutbox serves the paginated outbox. Without a page parameter it
// returns the OrderedCollection envelope; with one, the corresponding
// OrderedCollectionPage. Non-numeric or out-of-range pages are a 400.
func (s *Server) HandleOutbox(c *gin.Context) {
	if c.Param("name") != s.fed.Identity().Username {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such actor"})
		return
	}

	c.Header("Content-Type", "application/activity+json; charset=utf-8")

	pageParam := c.Query("page")
	if pageParam == "" {
		collection, err := s.fed.OutboxCollection()
		if err != nil {
			log.Printf("Outbox: Failed to build collection: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, collection)
		return
	}

	pageNumber, err := strconv.Atoi(pageParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	page, err := s.fed.OutboxPage(pageNumber)
	if errors.Is(err, activitypub.ErrInvalidPage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	if err != nil {
		log.Printf("Outbox: Failed to build page %d: %v", pageNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, page)
}
