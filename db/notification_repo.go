package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/notify/models"
	"gorm.io/gorm"
)

// BroadcastFeedRow is a broadcast notification joined against the caller's
// read state. UserReadAt/UserDismissedAt are null when the user never
// interacted with the notification.
type BroadcastFeedRow struct {
	models.Notification `gorm:"embedded"`
	UserReadAt          *time.Time `gorm:"column:user_read_at"`
	UserDismissedAt     *time.Time `gorm:"column:user_dismissed_at"`
}

// NotificationRepository owns all access to the notifications table.
type NotificationRepository interface {
	Create(n *models.Notification) error
	FindByID(id uuid.UUID) (*models.Notification, error)
	// FindByIDAny also resolves soft-deleted records.
	FindByIDAny(id uuid.UUID) (*models.Notification, error)
	FindByIDs(ids []uuid.UUID) ([]models.Notification, error)
	Save(n *models.Notification) error
	SoftDelete(id uuid.UUID) error
	BulkSoftDelete(ids []uuid.UUID) (int64, error)
	HardDelete(id uuid.UUID) error
	Restore(id uuid.UUID) error
	SetInlineState(id uuid.UUID, column string, value *time.Time) error
	BulkSetInlineState(ids []uuid.UUID, ownerID uuid.UUID, column string, value *time.Time, onlyIfNull bool) (int64, error)
	MarkAllReadInline(ownerID uuid.UUID, now time.Time) (int64, error)
	DismissAllInline(ownerID uuid.UUID, now time.Time) (int64, error)

	DueBatch(now time.Time, limit int) ([]models.Notification, error)
	CountDue(now time.Time) (int64, error)
	MarkSent(ids []uuid.UUID) (int64, error)
	SoftDeleteExpired(now time.Time) (int64, error)
	PurgeDeletedBefore(cutoff time.Time) (int64, error)

	FeedUserScope(ownerID uuid.UUID, limit int) ([]models.Notification, error)
	FeedBroadcast(userID uuid.UUID, limit int) ([]BroadcastFeedRow, error)
	BroadcastIDsNotDismissed(userID uuid.UUID) ([]uuid.UUID, error)
	List(offset, limit int, includeDeleted bool) ([]models.Notification, int64, error)
}

type notificationRepo struct {
	DB *gorm.DB
}

func NewNotificationRepo(db *GormDB) NotificationRepository {
	return &notificationRepo{db.DB}
}

func (r *notificationRepo) Create(n *models.Notification) error {
	if err := r.DB.Create(n).Error; err != nil {
		return errors.Wrap(err, "create notification")
	}
	return nil
}

func (r *notificationRepo) FindByID(id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.DB.First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) FindByIDAny(id uuid.UUID) (*models.Notification, error) {
	var n models.Notification
	if err := r.DB.Unscoped().First(&n, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) FindByIDs(ids []uuid.UUID) ([]models.Notification, error) {
	var ns []models.Notification
	if len(ids) == 0 {
		return ns, nil
	}
	if err := r.DB.Where("id IN ?", ids).Find(&ns).Error; err != nil {
		return nil, errors.Wrap(err, "find notifications by ids")
	}
	return ns, nil
}

func (r *notificationRepo) Save(n *models.Notification) error {
	if err := r.DB.Save(n).Error; err != nil {
		return errors.Wrap(err, "save notification")
	}
	return nil
}

func (r *notificationRepo) SoftDelete(id uuid.UUID) error {
	res := r.DB.Delete(&models.Notification{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "soft delete notification")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepo) BulkSoftDelete(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.Delete(&models.Notification{}, "id IN ?", ids)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "bulk soft delete notifications")
	}
	return res.RowsAffected, nil
}

// HardDelete removes the row and its read states. Callers are responsible
// for the soft-deleted-first check; the repository only cascades.
func (r *notificationRepo) HardDelete(id uuid.UUID) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ReadState{}, "notification_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "delete read states")
		}
		res := tx.Unscoped().Delete(&models.Notification{}, "id = ?", id)
		if res.Error != nil {
			return errors.Wrap(res.Error, "hard delete notification")
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *notificationRepo) Restore(id uuid.UUID) error {
	res := r.DB.Unscoped().Model(&models.Notification{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return errors.Wrap(res.Error, "restore notification")
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetInlineState writes read_at or dismissed_at directly on a user-scope row.
func (r *notificationRepo) SetInlineState(id uuid.UUID, column string, value *time.Time) error {
	if column != "read_at" && column != "dismissed_at" {
		return errors.Errorf("invalid inline state column %q", column)
	}
	return r.DB.Model(&models.Notification{}).
		Where("id = ?", id).
		Update(column, value).Error
}

// BulkSetInlineState updates one inline state column across the caller's own
// user-scope rows. onlyIfNull keeps set-operations idempotent: a second pass
// matches nothing.
func (r *notificationRepo) BulkSetInlineState(ids []uuid.UUID, ownerID uuid.UUID, column string, value *time.Time, onlyIfNull bool) (int64, error) {
	if column != "read_at" && column != "dismissed_at" {
		return 0, errors.Errorf("invalid inline state column %q", column)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	q := r.DB.Model(&models.Notification{}).
		Where("id IN ? AND scope = ? AND owner_id = ?", ids, models.ScopeUser, ownerID)
	if onlyIfNull {
		q = q.Where(column + " IS NULL")
	}
	res := q.Update(column, value)
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) MarkAllReadInline(ownerID uuid.UUID, now time.Time) (int64, error) {
	res := r.DB.Model(&models.Notification{}).
		Where("scope = ? AND owner_id = ? AND sent = ? AND read_at IS NULL AND dismissed_at IS NULL",
			models.ScopeUser, ownerID, true).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) DismissAllInline(ownerID uuid.UUID, now time.Time) (int64, error) {
	res := r.DB.Model(&models.Notification{}).
		Where("scope = ? AND owner_id = ? AND sent = ? AND dismissed_at IS NULL",
			models.ScopeUser, ownerID, true).
		Update("dismissed_at", now)
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) dueQuery(now time.Time) *gorm.DB {
	return r.DB.Model(&models.Notification{}).
		Where("sent = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?", false, now).
		Where("auto_expire_at IS NULL OR auto_expire_at > ?", now)
}

// DueBatch returns the oldest due notifications, earliest scheduled first so
// a backlog drains fairly.
func (r *notificationRepo) DueBatch(now time.Time, limit int) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.dueQuery(now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&ns).Error
	if err != nil {
		return nil, errors.Wrap(err, "select due notifications")
	}
	return ns, nil
}

func (r *notificationRepo) CountDue(now time.Time) (int64, error) {
	var count int64
	err := r.dueQuery(now).Count(&count).Error
	return count, err
}

func (r *notificationRepo) MarkSent(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.Model(&models.Notification{}).
		Where("id IN ? AND sent = ?", ids, false).
		Update("sent", true)
	return res.RowsAffected, res.Error
}

// SoftDeleteExpired soft-deletes every live notification whose expiry has
// passed. Already-deleted rows are excluded by gorm's deleted_at filter.
func (r *notificationRepo) SoftDeleteExpired(now time.Time) (int64, error) {
	res := r.DB.Where("auto_expire_at IS NOT NULL AND auto_expire_at <= ?", now).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "soft delete expired notifications")
	}
	return res.RowsAffected, nil
}

// PurgeDeletedBefore hard-deletes rows soft-deleted at or before the cutoff,
// cascading their read states. The cutoff compares deleted_at, not
// auto_expire_at.
func (r *notificationRepo) PurgeDeletedBefore(cutoff time.Time) (int64, error) {
	var count int64
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Unscoped().Model(&models.Notification{}).
			Where("deleted_at IS NOT NULL AND deleted_at <= ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return errors.Wrap(err, "select purgeable notifications")
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Delete(&models.ReadState{}, "notification_id IN ?", ids).Error; err != nil {
			return errors.Wrap(err, "cascade read states")
		}
		res := tx.Unscoped().Delete(&models.Notification{}, "id IN ?", ids)
		if res.Error != nil {
			return errors.Wrap(res.Error, "purge notifications")
		}
		count = res.RowsAffected
		return nil
	})
	return count, err
}

func (r *notificationRepo) FeedUserScope(ownerID uuid.UUID, limit int) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.DB.Where("scope = ? AND owner_id = ? AND sent = ? AND dismissed_at IS NULL",
		models.ScopeUser, ownerID, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	if err != nil {
		return nil, errors.Wrap(err, "select user feed")
	}
	return ns, nil
}

// FeedBroadcast outer-joins broadcast notifications against the caller's
// read states so untouched notifications still appear, then drops the ones
// the caller dismissed.
func (r *notificationRepo) FeedBroadcast(userID uuid.UUID, limit int) ([]BroadcastFeedRow, error) {
	var rows []BroadcastFeedRow
	err := r.DB.Model(&models.Notification{}).
		Select("notifications.*, read_states.read_at AS user_read_at, read_states.dismissed_at AS user_dismissed_at").
		Joins("LEFT JOIN read_states ON read_states.notification_id = notifications.id AND read_states.user_id = ?", userID).
		Where("notifications.scope IN ? AND notifications.sent = ?", []string{models.ScopeSystem, models.ScopeRelease}, true).
		Where("read_states.dismissed_at IS NULL").
		Order("notifications.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "select broadcast feed")
	}
	return rows, nil
}

// BroadcastIDsNotDismissed lists the visible broadcast notifications the user
// has not dismissed. Used by read-all/dismiss-all so no read state is ever
// created for an already-dismissed notification.
func (r *notificationRepo) BroadcastIDsNotDismissed(userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB.Model(&models.Notification{}).
		Joins("LEFT JOIN read_states ON read_states.notification_id = notifications.id AND read_states.user_id = ?", userID).
		Where("notifications.scope IN ? AND notifications.sent = ?", []string{models.ScopeSystem, models.ScopeRelease}, true).
		Where("read_states.dismissed_at IS NULL").
		Pluck("notifications.id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "select undismissed broadcast ids")
	}
	return ids, nil
}

func (r *notificationRepo) List(offset, limit int, includeDeleted bool) ([]models.Notification, int64, error) {
	q := r.DB.Model(&models.Notification{})
	if includeDeleted {
		q = q.Unscoped()
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count notifications")
	}
	var ns []models.Notification
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&ns).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list notifications")
	}
	return ns, total, nil
}
