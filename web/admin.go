package web

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Admin actions: follow graph management, moderation rules and comment
// triage. Resolution failures redirect back with the lists unchanged
// rather than erroring the page.

type actorForm struct {
	Actor string `json:"actor" form:"actor" binding:"required"`
}

func (s *Server) HandleAdminFollow(c *gin.Context) {
	var form actorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor required"})
		return
	}

	if err := s.fed.Follow(form.Actor); err != nil {
		log.Printf("Admin: Follow %s failed: %v", form.Actor, err)
		c.Redirect(http.StatusFound, "/admin/following")
		return
	}

	c.Redirect(http.StatusFound, "/admin/following")
}

func (s *Server) HandleAdminUnfollow(c *gin.Context) {
	var form actorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor required"})
		return
	}

	if err := s.fed.Unfollow(form.Actor); err != nil {
		log.Printf("Admin: Unfollow %s failed: %v", form.Actor, err)
	}

	c.Redirect(http.StatusFound, "/admin/following")
}

func (s *Server) HandleAdminBlock(c *gin.Context) {
	var form actorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor required"})
		return
	}

	if err := s.fed.Block(form.Actor); err != nil {
		log.Printf("Admin: Block %s failed: %v", form.Actor, err)
	}

	c.Redirect(http.StatusFound, "/admin/followers")
}

func (s *Server) HandleAdminUnblock(c *gin.Context) {
	var form actorForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "actor required"})
		return
	}

	if err := s.fed.Unblock(form.Actor); err != nil {
		log.Printf("Admin: Unblock %s failed: %v", form.Actor, err)
	}

	c.Redirect(http.StatusFound, "/admin/followers")
}

func (s *Server) HandleAdminFollowers(c *gin.Context) {
	err, followers := s.database.ReadFollowers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	err, blocks := s.database.ReadBlocks()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers, "blocks": blocks})
}

func (s *Server) HandleAdminFollowing(c *gin.Context) {
	err, following := s.database.ReadFollowing()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

type permissionsForm struct {
	BookmarkId int64  `json:"bookmarkId" form:"bookmarkId"`
	Allowed    string `json:"allowed" form:"allowed"`
	Blocked    string `json:"blocked" form:"blocked"`
}

// HandleAdminPermissions updates the allow/block lists for one
// bookmark scope; bookmark id 0 edits the global lists.
func (s *Server) HandleAdminPermissions(c *gin.Context) {
	var form permissionsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return
	}

	if err := s.database.SetPermissions(form.BookmarkId, form.Allowed, form.Blocked); err != nil {
		log.Printf("Admin: Failed to set permissions for scope %d: %v", form.BookmarkId, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// HandleAdminHiddenComments lists comments awaiting triage.
func (s *Server) HandleAdminHiddenComments(c *gin.Context) {
	err, comments := s.database.ReadHiddenComments()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

type visibleForm struct {
	Visible bool `json:"visible" form:"visible"`
}

func (s *Server) HandleAdminCommentVisible(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	var form visibleForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visibility"})
		return
	}

	if err := s.database.SetCommentVisible(id, form.Visible); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) HandleAdminDeleteHiddenComments(c *gin.Context) {
	if err := s.database.DeleteHiddenComments(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAdminNetworkPosts lists link posts collected from followed
// actors.
func (s *Server) HandleAdminNetworkPosts(c *gin.Context) {
	err, posts := s.database.ReadNetworkPosts(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}
