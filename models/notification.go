package models

import (
	"time"

	"github.com/google/uuid"
	errs "github.com/techagentng/notify/errors"
)

// Scope classifies a notification's audience. User-scope notifications belong
// to a single recipient and track read/dismiss state inline; system and
// release scope are broadcast to everyone and track state per recipient in
// the read_states table.
const (
	ScopeUser    = "user"
	ScopeSystem  = "system"
	ScopeRelease = "release"
)

const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"
)

// Notification represents an in-app notification record.
type Notification struct {
	Model
	Scope        string     `json:"scope" gorm:"size:20;not null;index"`
	OwnerID      *uuid.UUID `json:"owner_id" gorm:"type:uuid;index"`
	Category     string     `json:"category" gorm:"size:20;not null"`
	Title        *string    `json:"title"`
	Message      string     `json:"message" gorm:"type:text;not null"`
	Payload      JSONMap    `json:"payload" gorm:"type:jsonb"`
	ScheduledAt  *time.Time `json:"scheduled_at" gorm:"index"`
	Sent         bool       `json:"sent" gorm:"not null;default:false;index"`
	AutoExpireAt *time.Time `json:"auto_expire_at" gorm:"index"`

	// Only meaningful when Scope == ScopeUser. Broadcast scopes track these
	// per recipient in ReadState.
	ReadAt      *time.Time `json:"read_at"`
	DismissedAt *time.Time `json:"dismissed_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// IsBroadcast reports whether read/dismiss state lives in the read_states
// side table rather than on the record itself.
func (n *Notification) IsBroadcast() bool {
	return n.Scope == ScopeSystem || n.Scope == ScopeRelease
}

func (n *Notification) OwnedBy(userID uuid.UUID) bool {
	return n.Scope == ScopeUser && n.OwnerID != nil && *n.OwnerID == userID
}

func (n *Notification) Expired(now time.Time) bool {
	return n.AutoExpireAt != nil && !n.AutoExpireAt.After(now)
}

func ValidScope(scope string) bool {
	switch scope {
	case ScopeUser, ScopeSystem, ScopeRelease:
		return true
	}
	return false
}

func ValidCategory(category string) bool {
	switch category {
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError:
		return true
	}
	return false
}

// Validate enforces the scope/owner invariant: user scope requires an owner,
// broadcast scopes forbid one.
func (n *Notification) Validate() error {
	if !ValidScope(n.Scope) {
		return errs.NewValidation("invalid scope: " + n.Scope)
	}
	if !ValidCategory(n.Category) {
		return errs.NewValidation("invalid category: " + n.Category)
	}
	if n.Message == "" {
		return errs.NewValidation("message is required")
	}
	if n.Scope == ScopeUser && (n.OwnerID == nil || *n.OwnerID == uuid.Nil) {
		return errs.NewValidation("owner_id is required for user-scope notifications")
	}
	if n.Scope != ScopeUser && n.OwnerID != nil {
		return errs.NewValidation("owner_id must be empty for " + n.Scope + "-scope notifications")
	}
	return nil
}

// CreateNotificationRequest is the admin producer payload.
type CreateNotificationRequest struct {
	Scope        string     `json:"scope" binding:"required"`
	OwnerID      *uuid.UUID `json:"owner_id"`
	Category     string     `json:"category" binding:"required"`
	Title        *string    `json:"title"`
	Message      string     `json:"message" binding:"required"`
	Payload      JSONMap    `json:"payload"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	AutoExpireAt *time.Time `json:"auto_expire_at"`
}

func (r *CreateNotificationRequest) Notification() *Notification {
	return &Notification{
		Scope:        r.Scope,
		OwnerID:      r.OwnerID,
		Category:     r.Category,
		Title:        r.Title,
		Message:      r.Message,
		Payload:      r.Payload,
		ScheduledAt:  r.ScheduledAt,
		AutoExpireAt: r.AutoExpireAt,
	}
}

// FeedItem is the wire shape consumed by the bell dropdown and the polling
// API. Type carries the category; ReadAt is resolved from the correct store
// depending on scope.
type FeedItem struct {
	ID        uuid.UUID  `json:"id"`
	Scope     string     `json:"scope"`
	Type      string     `json:"type"`
	Title     *string    `json:"title"`
	Message   string     `json:"message"`
	Data      JSONMap    `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
	IsRead    bool       `json:"is_read"`
}

// BulkAction names the operations accepted by the bulk endpoint.
const (
	BulkActionRead      = "read"
	BulkActionUnread    = "unread"
	BulkActionDismiss   = "dismiss"
	BulkActionUndismiss = "undismiss"
	BulkActionDelete    = "delete"
)

func ValidBulkAction(action string) bool {
	switch action {
	case BulkActionRead, BulkActionUnread, BulkActionDismiss, BulkActionUndismiss, BulkActionDelete:
		return true
	}
	return false
}

type BulkApplyRequest struct {
	Action string      `json:"action" binding:"required"`
	IDs    []uuid.UUID `json:"ids" binding:"required"`
}

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}
