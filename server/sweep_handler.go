package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/notify/errors"
	"github.com/techagentng/notify/server/response"
)

// The sweep endpoints exist for an external cron; the same sweeps also run
// in-process. Both paths are idempotent so the overlap is harmless.

func (s *Server) handleSendDue() gin.HandlerFunc {
	return func(c *gin.Context) {
		dryRun := c.Query("dry_run") == "true"
		count, err := s.SweeperService.SendDue(dryRun)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "send-due sweep complete", http.StatusOK, gin.H{
			"count":   count,
			"dry_run": dryRun,
		}, nil)
	}
}

func (s *Server) handleSoftDeleteExpired() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.SweeperService.SoftDeleteExpired(time.Now())
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "expiry sweep complete", http.StatusOK, result, nil)
	}
}

func (s *Server) handleCleanupDeleted() gin.HandlerFunc {
	return func(c *gin.Context) {
		days, _ := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(s.Config.CleanupRetentionDays)))
		result, err := s.SweeperService.CleanupDeleted(days)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "cleanup sweep complete", http.StatusOK, result, nil)
	}
}
