package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/techagentng/notify/db"
	errs "github.com/techagentng/notify/errors"
	"github.com/techagentng/notify/models"
	"github.com/techagentng/notify/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService owns the notification lifecycle: creation, full-field
// update, soft/hard delete and restore. It signals the fan-out exactly once
// when a notification becomes immediately visible; scheduled notifications
// stay silent until the sweeper promotes them.
type NotificationService interface {
	Create(req *models.CreateNotificationRequest) (*models.Notification, error)
	Update(id uuid.UUID, req *models.CreateNotificationRequest) (*models.Notification, error)
	Get(id uuid.UUID) (*models.Notification, error)
	List(offset, limit int, includeDeleted bool) ([]models.Notification, int64, error)
	SoftDelete(id uuid.UUID) error
	BulkSoftDelete(ids []uuid.UUID) (int64, error)
	HardDelete(id uuid.UUID, force bool) error
	Restore(id uuid.UUID) error
}

type notificationService struct {
	repo   db.NotificationRepository
	fanout *realtime.Fanout
	log    *zap.Logger
	now    func() time.Time
}

func NewNotificationService(repo db.NotificationRepository, fanout *realtime.Fanout, log *zap.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		fanout: fanout,
		log:    log,
		now:    time.Now,
	}
}

func due(scheduledAt *time.Time, now time.Time) bool {
	return scheduledAt == nil || !scheduledAt.After(now)
}

func (s *notificationService) Create(req *models.CreateNotificationRequest) (*models.Notification, error) {
	n := req.Notification()
	if err := n.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	n.Sent = due(n.ScheduledAt, now)

	if err := s.repo.Create(n); err != nil {
		return nil, err
	}

	if n.Sent {
		s.fanout.NotificationDelivered(n)
	}
	return n, nil
}

// Update overwrites every mutable field, a full replace rather than a
// partial merge. An unsent notification whose new schedule is already due
// gets promoted here, with the same single fan-out as an immediate create.
func (s *notificationService) Update(id uuid.UUID, req *models.CreateNotificationRequest) (*models.Notification, error) {
	n, err := s.find(id)
	if err != nil {
		return nil, err
	}

	n.Scope = req.Scope
	n.OwnerID = req.OwnerID
	n.Category = req.Category
	n.Title = req.Title
	n.Message = req.Message
	n.Payload = req.Payload
	n.ScheduledAt = req.ScheduledAt
	n.AutoExpireAt = req.AutoExpireAt
	if err := n.Validate(); err != nil {
		return nil, err
	}

	promoted := false
	if !n.Sent && due(n.ScheduledAt, s.now()) {
		n.Sent = true
		promoted = true
	}

	if err := s.repo.Save(n); err != nil {
		return nil, err
	}
	if promoted {
		s.fanout.NotificationDelivered(n)
	}
	return n, nil
}

func (s *notificationService) Get(id uuid.UUID) (*models.Notification, error) {
	return s.find(id)
}

func (s *notificationService) List(offset, limit int, includeDeleted bool) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(offset, limit, includeDeleted)
}

func (s *notificationService) SoftDelete(id uuid.UUID) error {
	if err := s.repo.SoftDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}
	return nil
}

func (s *notificationService) BulkSoftDelete(ids []uuid.UUID) (int64, error) {
	return s.repo.BulkSoftDelete(ids)
}

// HardDelete is the irreversible cleanup path. It refuses records that were
// never soft-deleted unless the caller holds the elevated destroy privilege.
func (s *notificationService) HardDelete(id uuid.UUID, force bool) error {
	n, err := s.repo.FindByIDAny(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}
	if !n.DeletedAt.Valid && !force {
		return errs.NewConflict("notification must be soft-deleted before hard delete")
	}
	if err := s.repo.HardDelete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}
	s.log.Info("notification hard-deleted", zap.String("id", id.String()), zap.Bool("forced", force))
	return nil
}

func (s *notificationService) Restore(id uuid.UUID) error {
	n, err := s.repo.FindByIDAny(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}
	if !n.DeletedAt.Valid {
		return errs.NewConflict("notification is not deleted")
	}
	return s.repo.Restore(id)
}

func (s *notificationService) find(id uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFound("notification not found")
		}
		return nil, err
	}
	return n, nil
}
