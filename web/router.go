package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/deemkeen/markodon/activitypub"
	"github.com/deemkeen/markodon/db"
	"github.com/deemkeen/markodon/util"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Server bundles the handler dependencies; one instance is built in
// Router and shared by every route.
type Server struct {
	conf     *util.AppConfig
	database *db.DB
	fed      *activitypub.Federation
}

func NewServer(conf *util.AppConfig, database *db.DB, fed *activitypub.Federation) *Server {
	return &Server{conf: conf, database: database, fed: fed}
}

// Router wires up all routes and blocks serving HTTP.
func Router(conf *util.AppConfig, database *db.DB, fed *activitypub.Federation) error {
	log.Printf("Starting server on %s:%d", conf.Conf.Host, conf.Conf.HttpPort)
	s := NewServer(conf, database, fed)

	g := gin.Default()
	g.Use(gzip.Gzip(gzip.DefaultCompression))

	// Global rate limiter: 10 requests per second per IP, burst of 20
	globalLimiter := NewRateLimiter(rate.Limit(10), 20)
	g.Use(RateLimitMiddleware(globalLimiter))

	g.GET("/", s.HandleBookmarks)
	g.GET("/b/:id", s.HandleBookmark)
	g.GET("/index.xml", s.HandleFeed)

	if conf.Conf.WithAp {
		// Stricter limit and a 1MB body cap on the federation boundary
		apLimiter := NewRateLimiter(rate.Limit(5), 10)
		maxBodySize := MaxBytesMiddleware(1 * 1024 * 1024)

		g.GET("/.well-known/webfinger", s.HandleWebfinger)
		g.GET("/.well-known/nodeinfo", s.HandleNodeInfoDiscovery)
		g.GET("/nodeinfo/2.0", s.HandleNodeInfo)

		g.GET("/u/:name", s.HandleActor)
		g.GET("/u/:name/followers", s.HandleFollowers)
		g.GET("/u/:name/following", s.HandleFollowing)
		g.GET("/u/:name/outbox", s.HandleOutbox)
		g.GET("/m/:guid", s.HandleMessage)

		g.POST("/inbox", RateLimitMiddleware(apLimiter), maxBodySize, s.HandleInbox)
	}

	admin := g.Group("/admin", gin.BasicAuth(gin.Accounts{
		"admin": conf.Conf.AdminPassword,
	}))
	{
		admin.GET("/followers", s.HandleAdminFollowers)
		admin.GET("/following", s.HandleAdminFollowing)
		admin.POST("/follow", s.HandleAdminFollow)
		admin.POST("/unfollow", s.HandleAdminUnfollow)
		admin.POST("/block", s.HandleAdminBlock)
		admin.POST("/unblock", s.HandleAdminUnblock)
		admin.POST("/permissions", s.HandleAdminPermissions)
		admin.GET("/comments/hidden", s.HandleAdminHiddenComments)
		admin.POST("/comments/:id/visible", s.HandleAdminCommentVisible)
		admin.DELETE("/comments/hidden", s.HandleAdminDeleteHiddenComments)
		admin.GET("/network", s.HandleAdminNetworkPosts)

		admin.POST("/bookmarks", s.HandleCreateBookmark)
		admin.PUT("/bookmarks/:id", s.HandleUpdateBookmark)
		admin.DELETE("/bookmarks/:id", s.HandleDeleteBookmark)
	}

	g.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return g.Run(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort))
}
