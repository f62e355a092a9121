package server

import (
	"net/http"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/notify/errors"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	// The feed doubles as a polling API, so it gets a per-client budget.
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Second,
		Limit: 5,
	})
	feedRate := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			respondAndAbort(c, "", http.StatusTooManyRequests, nil,
				errs.New("too many requests", http.StatusTooManyRequests))
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "notify"})
	})

	apirouter := router.Group("/api/v1")

	// Feed is optionally authenticated: anonymous callers get an empty list.
	apirouter.GET("/notifications/feed", s.AuthorizeOptional(), feedRate, s.handleFeed())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/ws", s.handleWebSocket())
	authorized.PUT("/notifications/read-all", s.handleMarkAllRead())
	authorized.PUT("/notifications/dismiss-all", s.handleDismissAll())
	authorized.POST("/notifications/bulk", s.handleBulkApply())
	authorized.PUT("/notifications/:id/read", s.handleMarkRead())
	authorized.PUT("/notifications/:id/unread", s.handleMarkUnread())
	authorized.PUT("/notifications/:id/dismiss", s.handleDismiss())
	authorized.PUT("/notifications/:id/undismiss", s.handleUndismiss())
	authorized.DELETE("/notifications/:id", s.handleDeleteForUser())

	admin := apirouter.Group("/admin")
	admin.Use(s.Authorize(), s.RequireManage())
	admin.GET("/notifications", s.handleListNotifications())
	admin.POST("/notifications", s.handleCreateNotification())
	admin.PUT("/notifications/:id", s.handleUpdateNotification())
	admin.DELETE("/notifications/:id", s.handleDeleteNotification())
	admin.POST("/notifications/bulk-delete", s.handleBulkDeleteNotifications())
	admin.POST("/notifications/:id/restore", s.handleRestoreNotification())

	internal := apirouter.Group("/internal")
	internal.Use(s.SweepAuth())
	internal.POST("/sweeps/send-due", s.handleSendDue())
	internal.POST("/sweeps/expire", s.handleSoftDeleteExpired())
	internal.POST("/sweeps/cleanup", s.handleCleanupDeleted())
}
