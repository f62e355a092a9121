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

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.JSON(c, "", http.StatusBadRequest, nil, errs.NewValidation("invalid notification id"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleCreateNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		n, err := s.NotificationService.Create(&req)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notification created", http.StatusCreated, n, nil)
	}
}

func (s *Server) handleUpdateNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req models.CreateNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		n, err := s.NotificationService.Update(id, &req)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notification updated", http.StatusOK, n, nil)
	}
}

func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		includeDeleted := c.Query("include_deleted") == "true"

		ns, total, err := s.NotificationService.List(offset, limit, includeDeleted)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "", http.StatusOK, gin.H{
			"notifications": ns,
			"total":         total,
		}, nil)
	}
}

// handleDeleteNotification is the admin destroy: a soft delete by default,
// a privileged hard delete with ?force=true.
func (s *Server) handleDeleteNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var err error
		if c.Query("force") == "true" {
			err = s.NotificationService.HardDelete(id, true)
		} else {
			err = s.NotificationService.SoftDelete(id)
		}
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notification deleted", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleBulkDeleteNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BulkDeleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}
		count, err := s.NotificationService.BulkSoftDelete(req.IDs)
		if err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notifications deleted", http.StatusOK, gin.H{"count": count}, nil)
	}
}

func (s *Server) handleRestoreNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := s.NotificationService.Restore(id); err != nil {
			response.JSON(c, "", errs.Status(err), nil, err)
			return
		}
		response.JSON(c, "notification restored", http.StatusOK, nil, nil)
	}
}
