package web

import (
	"fmt"
	"net/http"

	"github.com/deemkeen/markodon/util"
	"github.com/gin-gonic/gin"
)

// NodeInfo discovery, the minimal 2.0 schema other instances probe on
// first contact.

func (s *Server) HandleNodeInfoDiscovery(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"links": []gin.H{
			{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.0", s.fed.Identity().Domain),
			},
		},
	})
}

func (s *Server) HandleNodeInfo(c *gin.Context) {
	err, total := s.database.CountMessages()
	if err != nil {
		total = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"version": "2.0",
		"software": gin.H{
			"name":    "markodon",
			"version": util.GetVersion(),
		},
		"protocols": []string{"activitypub"},
		"services":  gin.H{"inbound": []string{}, "outbound": []string{}},
		"usage": gin.H{
			"users":      gin.H{"total": 1},
			"localPosts": total,
		},
		"openRegistrations": false,
		"metadata":          gin.H{},
	})
}
