package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReadState tracks one user's read/dismiss timestamps for a broadcast
// (system/release) notification. Rows are created lazily on first
// interaction; user-scope notifications never get one.
type ReadState struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	NotificationID uuid.UUID  `json:"notification_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_states_notification_user"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_read_states_notification_user"`
	ReadAt         *time.Time `json:"read_at"`
	DismissedAt    *time.Time `json:"dismissed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ReadState) TableName() string {
	return "read_states"
}

func (s *ReadState) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		s.ID = id
	}
	return nil
}
