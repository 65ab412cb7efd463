package web

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"

	"github.com/deemkeen/markodon/domain"
	"github.com/gin-gonic/gin"
)

// Thin bookmark CRUD. The interesting part is the federation hook:
// creates and edits publish a Note to followers, deletes send the
// Tombstone.

type bookmarkForm struct {
	URL         string `json:"url" form:"url" binding:"required"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Tags        string `json:"tags" form:"tags"`
}

func (s *Server) HandleCreateBookmark(c *gin.Context) {
	var form bookmarkForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	bookmark := &domain.Bookmark{
		URL:         form.URL,
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
	}

	err, id := s.database.CreateBookmark(bookmark)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	bookmark.Id = id

	if s.conf.Conf.WithAp {
		activity, err := s.fed.CreateNote(bookmark)
		if err != nil {
			log.Printf("Bookmarks: Failed to build Note for bookmark %d: %v", id, err)
		} else {
			s.fed.Broadcast(activity)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) HandleUpdateBookmark(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bookmark id"})
		return
	}

	var form bookmarkForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	bookmark := &domain.Bookmark{
		Id:          id,
		URL:         form.URL,
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
	}

	if err := s.database.UpdateBookmark(bookmark); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if s.conf.Conf.WithAp {
		activity, err := s.fed.CreateUpdate(bookmark)
		if err != nil {
			log.Printf("Bookmarks: Failed to build update for bookmark %d: %v", id, err)
		} else {
			s.fed.Broadcast(activity)
		}
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) HandleDeleteBookmark(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bookmark id"})
		return
	}

	err, bookmark := s.database.ReadBookmark(id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such bookmark"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	// Tombstone before the row goes away so the guid lookup still
	// resolves.
	if s.conf.Conf.WithAp {
		activity, err := s.fed.CreateDelete(bookmark)
		if err != nil {
			log.Printf("Bookmarks: Failed to build Delete for bookmark %d: %v", id, err)
		} else if activity != nil {
			s.fed.Broadcast(activity)
		}
	}

	if err := s.database.DeleteBookmark(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleBookmark serves one bookmark with its visible comments.
func (s *Server) HandleBookmark(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bookmark id"})
		return
	}

	err, bookmark := s.database.ReadBookmark(id)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such bookmark"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	err, comments := s.database.ReadVisibleComments(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookmark": bookmark, "comments": comments})
}

// HandleBookmarks lists recent bookmarks.
func (s *Server) HandleBookmarks(c *gin.Context) {
	err, bookmarks := s.database.ReadBookmarks(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}
