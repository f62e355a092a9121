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

// ReadStateService is the single entry point for read/dismiss state. The
// state physically lives in two places (inline columns for user scope, the
// read_states table for broadcast scopes); callers never see the split, the
// service picks the backing store by scope.
type ReadStateService interface {
	MarkRead(userID, notificationID uuid.UUID) error
	MarkUnread(userID, notificationID uuid.UUID) error
	Dismiss(userID, notificationID uuid.UUID) error
	Undismiss(userID, notificationID uuid.UUID) error
	MarkAllRead(userID uuid.UUID) (int64, error)
	DismissAll(userID uuid.UUID) (int64, error)
	BulkApply(userID uuid.UUID, action string, ids []uuid.UUID) (int, error)
	DeleteForUser(userID, notificationID uuid.UUID, canManageGlobally bool) error
}

// stateStore is one backing strategy for per-user read/dismiss state.
// apply reports whether anything changed so idempotent repeats produce no
// second fan-out.
type stateStore interface {
	apply(userID uuid.UUID, n *models.Notification, action string, now time.Time) (stateResult, error)
}

type stateResult struct {
	changed     bool
	readAt      *time.Time
	dismissedAt *time.Time
}

// inlineStateStore mutates read_at/dismissed_at directly on the notification
// row. Only the owner may touch a user-scope notification.
type inlineStateStore struct {
	repo db.NotificationRepository
}

func (s *inlineStateStore) apply(userID uuid.UUID, n *models.Notification, action string, now time.Time) (stateResult, error) {
	if !n.OwnedBy(userID) {
		return stateResult{}, errs.NewForbidden("notification does not belong to caller")
	}

	column, value, current := "", (*time.Time)(nil), (*time.Time)(nil)
	switch action {
	case models.BulkActionRead:
		column, value, current = "read_at", &now, n.ReadAt
	case models.BulkActionUnread:
		column, value, current = "read_at", nil, n.ReadAt
	case models.BulkActionDismiss:
		column, value, current = "dismissed_at", &now, n.DismissedAt
	case models.BulkActionUndismiss:
		column, value, current = "dismissed_at", nil, n.DismissedAt
	default:
		return stateResult{}, errs.NewValidation("invalid action: " + action)
	}

	// Already in the target state: nothing to write, nothing to publish.
	if (value == nil) == (current == nil) {
		return stateResult{changed: false, readAt: n.ReadAt, dismissedAt: n.DismissedAt}, nil
	}

	if err := s.repo.SetInlineState(n.ID, column, value); err != nil {
		return stateResult{}, err
	}
	if column == "read_at" {
		n.ReadAt = value
	} else {
		n.DismissedAt = value
	}
	return stateResult{changed: true, readAt: n.ReadAt, dismissedAt: n.DismissedAt}, nil
}

// trackedStateStore upserts per-user rows in the read_states table for
// broadcast notifications.
type trackedStateStore struct {
	repo db.ReadStateRepository
}

func (s *trackedStateStore) apply(userID uuid.UUID, n *models.Notification, action string, now time.Time) (stateResult, error) {
	state, err := s.repo.Get(n.ID, userID)
	if err != nil {
		return stateResult{}, err
	}
	var readAt, dismissedAt *time.Time
	if state != nil {
		readAt, dismissedAt = state.ReadAt, state.DismissedAt
	}

	ids := []uuid.UUID{n.ID}
	switch action {
	case models.BulkActionRead:
		if readAt != nil {
			return stateResult{changed: false, readAt: readAt, dismissedAt: dismissedAt}, nil
		}
		if err := s.repo.MarkRead(ids, userID, now); err != nil {
			return stateResult{}, err
		}
		readAt = &now
	case models.BulkActionUnread:
		if readAt == nil {
			return stateResult{changed: false, readAt: readAt, dismissedAt: dismissedAt}, nil
		}
		if err := s.repo.MarkUnread(ids, userID); err != nil {
			return stateResult{}, err
		}
		readAt = nil
	case models.BulkActionDismiss:
		if dismissedAt != nil {
			return stateResult{changed: false, readAt: readAt, dismissedAt: dismissedAt}, nil
		}
		if err := s.repo.Dismiss(ids, userID, now); err != nil {
			return stateResult{}, err
		}
		dismissedAt = &now
	case models.BulkActionUndismiss:
		if dismissedAt == nil {
			return stateResult{changed: false, readAt: readAt, dismissedAt: dismissedAt}, nil
		}
		if err := s.repo.Undismiss(ids, userID); err != nil {
			return stateResult{}, err
		}
		dismissedAt = nil
	default:
		return stateResult{}, errs.NewValidation("invalid action: " + action)
	}
	return stateResult{changed: true, readAt: readAt, dismissedAt: dismissedAt}, nil
}

type readStateService struct {
	notifications db.NotificationRepository
	readStates    db.ReadStateRepository
	inline        stateStore
	tracked       stateStore
	fanout        *realtime.Fanout
	log           *zap.Logger
	now           func() time.Time
}

func NewReadStateService(notifications db.NotificationRepository, readStates db.ReadStateRepository, fanout *realtime.Fanout, log *zap.Logger) ReadStateService {
	return &readStateService{
		notifications: notifications,
		readStates:    readStates,
		inline:        &inlineStateStore{repo: notifications},
		tracked:       &trackedStateStore{repo: readStates},
		fanout:        fanout,
		log:           log,
		now:           time.Now,
	}
}

func (s *readStateService) storeFor(n *models.Notification) stateStore {
	if n.IsBroadcast() {
		return s.tracked
	}
	return s.inline
}

func (s *readStateService) applyOne(userID, notificationID uuid.UUID, action string) error {
	n, err := s.notifications.FindByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}

	res, err := s.storeFor(n).apply(userID, n, action, s.now())
	if err != nil {
		return err
	}
	if res.changed {
		s.fanout.StateChanged(userID, n, action, res.readAt, res.dismissedAt)
	}
	return nil
}

func (s *readStateService) MarkRead(userID, notificationID uuid.UUID) error {
	return s.applyOne(userID, notificationID, models.BulkActionRead)
}

func (s *readStateService) MarkUnread(userID, notificationID uuid.UUID) error {
	return s.applyOne(userID, notificationID, models.BulkActionUnread)
}

func (s *readStateService) Dismiss(userID, notificationID uuid.UUID) error {
	return s.applyOne(userID, notificationID, models.BulkActionDismiss)
}

func (s *readStateService) Undismiss(userID, notificationID uuid.UUID) error {
	return s.applyOne(userID, notificationID, models.BulkActionUndismiss)
}

// MarkAllRead runs in two phases: a bulk update over the caller's own unread
// user-scope rows, then one batched upsert covering every visible broadcast
// notification the caller hasn't dismissed. Dismissed broadcasts never get a
// row, so re-running over old data cannot grow the table.
func (s *readStateService) MarkAllRead(userID uuid.UUID) (int64, error) {
	now := s.now()
	count, err := s.notifications.MarkAllReadInline(userID, now)
	if err != nil {
		return 0, err
	}

	ids, err := s.notifications.BroadcastIDsNotDismissed(userID)
	if err != nil {
		return count, err
	}
	if err := s.readStates.MarkRead(ids, userID, now); err != nil {
		return count, err
	}

	s.fanout.BulkChanged(userID, models.BulkActionRead, nil)
	return count + int64(len(ids)), nil
}

func (s *readStateService) DismissAll(userID uuid.UUID) (int64, error) {
	now := s.now()
	count, err := s.notifications.DismissAllInline(userID, now)
	if err != nil {
		return 0, err
	}

	ids, err := s.notifications.BroadcastIDsNotDismissed(userID)
	if err != nil {
		return count, err
	}
	if err := s.readStates.Dismiss(ids, userID, now); err != nil {
		return count, err
	}

	s.fanout.BulkChanged(userID, models.BulkActionDismiss, nil)
	return count + int64(len(ids)), nil
}

// BulkApply partitions ids into the caller's own user-scope rows and visible
// broadcast rows; anything else is silently dropped. "delete" soft-deletes
// owned rows but only dismisses broadcast rows for this caller: delete never
// destroys shared data for other recipients.
func (s *readStateService) BulkApply(userID uuid.UUID, action string, ids []uuid.UUID) (int, error) {
	if !models.ValidBulkAction(action) {
		return 0, errs.NewValidation("invalid action: " + action)
	}

	ns, err := s.notifications.FindByIDs(ids)
	if err != nil {
		return 0, err
	}

	var owned, broadcast []uuid.UUID
	for i := range ns {
		n := &ns[i]
		switch {
		case n.OwnedBy(userID):
			owned = append(owned, n.ID)
		case n.IsBroadcast() && n.Sent:
			broadcast = append(broadcast, n.ID)
		}
	}

	now := s.now()
	if err := s.applyOwned(userID, action, owned, now); err != nil {
		return 0, err
	}
	if err := s.applyBroadcast(userID, action, broadcast, now); err != nil {
		return 0, err
	}

	affected := append(owned, broadcast...)
	s.fanout.BulkChanged(userID, action, affected)
	return len(affected), nil
}

func (s *readStateService) applyOwned(userID uuid.UUID, action string, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	var err error
	switch action {
	case models.BulkActionRead:
		_, err = s.notifications.BulkSetInlineState(ids, userID, "read_at", &now, true)
	case models.BulkActionUnread:
		_, err = s.notifications.BulkSetInlineState(ids, userID, "read_at", nil, false)
	case models.BulkActionDismiss:
		_, err = s.notifications.BulkSetInlineState(ids, userID, "dismissed_at", &now, true)
	case models.BulkActionUndismiss:
		_, err = s.notifications.BulkSetInlineState(ids, userID, "dismissed_at", nil, false)
	case models.BulkActionDelete:
		_, err = s.notifications.BulkSoftDelete(ids)
	}
	return err
}

func (s *readStateService) applyBroadcast(userID uuid.UUID, action string, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	switch action {
	case models.BulkActionRead:
		return s.readStates.MarkRead(ids, userID, now)
	case models.BulkActionUnread:
		return s.readStates.MarkUnread(ids, userID)
	case models.BulkActionDismiss:
		return s.readStates.Dismiss(ids, userID, now)
	case models.BulkActionUndismiss:
		return s.readStates.Undismiss(ids, userID)
	case models.BulkActionDelete:
		// Deliberate: deleting a broadcast notification only hides it for
		// this caller.
		return s.readStates.Dismiss(ids, userID, now)
	}
	return nil
}

// DeleteForUser resolves what "delete" means for one caller: soft-delete for
// their own notifications, a global soft-delete for managers acting on a
// broadcast, and a per-user dismiss for everyone else.
func (s *readStateService) DeleteForUser(userID, notificationID uuid.UUID, canManageGlobally bool) error {
	n, err := s.notifications.FindByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NewNotFound("notification not found")
		}
		return err
	}

	now := s.now()
	switch {
	case n.Scope == models.ScopeUser:
		if !n.OwnedBy(userID) {
			return errs.NewForbidden("notification does not belong to caller")
		}
		if err := s.notifications.SoftDelete(n.ID); err != nil {
			return err
		}
		s.fanout.StateChanged(userID, n, models.BulkActionDelete, n.ReadAt, n.DismissedAt)
		return nil
	case canManageGlobally:
		if err := s.notifications.SoftDelete(n.ID); err != nil {
			return err
		}
		s.log.Info("broadcast notification deleted globally",
			zap.String("id", n.ID.String()),
			zap.String("deleted_by", userID.String()))
		s.fanout.StateChanged(userID, n, models.BulkActionDelete, nil, nil)
		return nil
	default:
		res, err := s.tracked.apply(userID, n, models.BulkActionDismiss, now)
		if err != nil {
			return err
		}
		if res.changed {
			s.fanout.StateChanged(userID, n, models.BulkActionDelete, res.readAt, res.dismissedAt)
		}
		return nil
	}
}
