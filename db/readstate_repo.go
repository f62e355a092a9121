package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/notify/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var conflictTarget = []clause.Column{
	{Name: "notification_id"},
	{Name: "user_id"},
}

// ReadStateRepository owns the read_states side table. All writes are
// insert-or-update on the (notification_id, user_id) unique pair so two
// concurrent interactions from the same user cannot race into duplicates.
type ReadStateRepository interface {
	Get(notificationID, userID uuid.UUID) (*models.ReadState, error)
	MarkRead(notificationIDs []uuid.UUID, userID uuid.UUID, now time.Time) error
	MarkUnread(notificationIDs []uuid.UUID, userID uuid.UUID) error
	Dismiss(notificationIDs []uuid.UUID, userID uuid.UUID, now time.Time) error
	Undismiss(notificationIDs []uuid.UUID, userID uuid.UUID) error
}

type readStateRepo struct {
	DB *gorm.DB
}

func NewReadStateRepo(db *GormDB) ReadStateRepository {
	return &readStateRepo{db.DB}
}

func (r *readStateRepo) Get(notificationID, userID uuid.UUID) (*models.ReadState, error) {
	var state models.ReadState
	err := r.DB.Where("notification_id = ? AND user_id = ?", notificationID, userID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get read state")
	}
	return &state, nil
}

func (r *readStateRepo) rows(notificationIDs []uuid.UUID, userID uuid.UUID, readAt, dismissedAt *time.Time) []models.ReadState {
	states := make([]models.ReadState, 0, len(notificationIDs))
	for _, id := range notificationIDs {
		states = append(states, models.ReadState{
			NotificationID: id,
			UserID:         userID,
			ReadAt:         readAt,
			DismissedAt:    dismissedAt,
		})
	}
	return states
}

func (r *readStateRepo) upsert(states []models.ReadState, assignments map[string]interface{}) error {
	if len(states) == 0 {
		return nil
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   conflictTarget,
		DoUpdates: clause.Assignments(assignments),
	}).Create(&states).Error
	return errors.Wrap(err, "upsert read states")
}

// MarkRead records the first read. Re-reading keeps the original timestamp,
// which is what makes the operation idempotent.
func (r *readStateRepo) MarkRead(notificationIDs []uuid.UUID, userID uuid.UUID, now time.Time) error {
	return r.upsert(r.rows(notificationIDs, userID, &now, nil), map[string]interface{}{
		"read_at":    gorm.Expr("COALESCE(read_states.read_at, excluded.read_at)"),
		"updated_at": now,
	})
}

func (r *readStateRepo) MarkUnread(notificationIDs []uuid.UUID, userID uuid.UUID) error {
	return r.upsert(r.rows(notificationIDs, userID, nil, nil), map[string]interface{}{
		"read_at":    nil,
		"updated_at": time.Now(),
	})
}

func (r *readStateRepo) Dismiss(notificationIDs []uuid.UUID, userID uuid.UUID, now time.Time) error {
	return r.upsert(r.rows(notificationIDs, userID, nil, &now), map[string]interface{}{
		"dismissed_at": gorm.Expr("COALESCE(read_states.dismissed_at, excluded.dismissed_at)"),
		"updated_at":   now,
	})
}

func (r *readStateRepo) Undismiss(notificationIDs []uuid.UUID, userID uuid.UUID) error {
	return r.upsert(r.rows(notificationIDs, userID, nil, nil), map[string]interface{}{
		"dismissed_at": nil,
		"updated_at":   time.Now(),
	})
}
