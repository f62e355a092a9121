package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	errs "github.com/techagentng/notify/errors"
	"github.com/techagentng/notify/models"
	"github.com/techagentng/notify/server/response"
)

// handleFeed serves both page hydration and the polling API. Anonymous
// callers get an empty list rather than an error.
func (s *Server) handleFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
		items, err := s.FeedService.ResolveFeed(currentUserID(c), limit)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{"notifications": items}, nil)
	}
}

func (s *Server) stateHandler(apply func(userID, notificationID uuid.UUID) error, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := apply(currentUserID(c), id); err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, message, http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMarkRead() gin.HandlerFunc {
	return s.stateHandler(s.ReadStateService.MarkRead, "notification marked read")
}

func (s *Server) handleMarkUnread() gin.HandlerFunc {
	return s.stateHandler(s.ReadStateService.MarkUnread, "notification marked unread")
}

func (s *Server) handleDismiss() gin.HandlerFunc {
	return s.stateHandler(s.ReadStateService.Dismiss, "notification dismissed")
}

func (s *Server) handleUndismiss() gin.HandlerFunc {
	return s.stateHandler(s.ReadStateService.Undismiss, "notification restored to feed")
}

func (s *Server) handleMarkAllRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := s.ReadStateService.MarkAllRead(currentUserID(c))
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "all notifications marked read", http.StatusOK, gin.H{"count": count}, nil)
	}
}

func (s *Server) handleDismissAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := s.ReadStateService.DismissAll(currentUserID(c))
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "all notifications dismissed", http.StatusOK, gin.H{"count": count}, nil)
	}
}

func (s *Server) handleBulkApply() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BulkApplyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		count, err := s.ReadStateService.BulkApply(currentUserID(c), req.Action, req.IDs)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "bulk action applied", http.StatusOK, gin.H{"count": count}, nil)
	}
}

func (s *Server) handleDeleteForUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		err := s.ReadStateService.DeleteForUser(currentUserID(c), id, c.GetBool("canManage"))
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notification deleted", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.Hub.ServeWS(c.Writer, c.Request, currentUserID(c)); err != nil {
			// Upgrade already wrote the HTTP error.
			return
		}
	}
}
