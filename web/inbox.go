package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleInbox is the federation boundary: one activity per POST. The
// dispatcher decides the status; errors stay in the log, the remote
// server only sees the code.
func (s *Server) HandleInbox(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		log.Printf("Inbox: Failed to read body: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	status, err := s.fed.HandleActivity(body)
	if err != nil {
		log.Printf("Inbox: %v", err)
	}
	c.Status(status)
}
