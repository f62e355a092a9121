package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/notify/config"
	"github.com/techagentng/notify/db"
	"github.com/techagentng/notify/realtime"
	"go.uber.org/zap"
)

const dueBatchSize = 200

// SweepResult reports one expiry sweep.
type SweepResult struct {
	Count  int64     `json:"count"`
	Cutoff time.Time `json:"cutoff"`
}

// CleanupResult reports one hard-delete sweep.
type CleanupResult struct {
	Count  int64     `json:"count"`
	Cutoff time.Time `json:"cutoff"`
	Days   int       `json:"days"`
}

// SweeperService runs the lifecycle sweeps: promoting due scheduled
// notifications, soft-deleting expired ones and purging old soft-deleted
// rows. Every sweep is idempotent through its state filter (sent = false,
// deleted_at IS NULL), so overlapping invocations are safe without locks.
type SweeperService interface {
	SendDue(dryRun bool) (int64, error)
	SoftDeleteExpired(now time.Time) (SweepResult, error)
	CleanupDeleted(retentionDays int) (CleanupResult, error)
	Run(ctx context.Context)
}

type sweeperService struct {
	repo   db.NotificationRepository
	fanout *realtime.Fanout
	conf   *config.Config
	log    *zap.Logger
	now    func() time.Time
}

func NewSweeperService(repo db.NotificationRepository, fanout *realtime.Fanout, conf *config.Config, log *zap.Logger) SweeperService {
	return &sweeperService{
		repo:   repo,
		fanout: fanout,
		conf:   conf,
		log:    log,
		now:    time.Now,
	}
}

// SendDue promotes scheduled notifications whose time has come, earliest
// first, in bounded batches. Re-running immediately returns 0 because
// sent = true excludes already-promoted rows; callers may schedule this
// at-least-once.
func (s *sweeperService) SendDue(dryRun bool) (int64, error) {
	now := s.now()
	if dryRun {
		return s.repo.CountDue(now)
	}

	var total int64
	for {
		batch, err := s.repo.DueBatch(now, dueBatchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}

		ids := make([]uuid.UUID, 0, len(batch))
		for i := range batch {
			s.fanout.NotificationDelivered(&batch[i])
			ids = append(ids, batch[i].ID)
		}

		marked, err := s.repo.MarkSent(ids)
		if err != nil {
			return total, err
		}
		total += marked

		// A concurrent sweep may have won some rows; the next DueBatch
		// excludes them either way.
		if len(batch) < dueBatchSize {
			break
		}
	}

	if total > 0 {
		s.log.Info("promoted due notifications", zap.Int64("count", total))
	}
	return total, nil
}

func (s *sweeperService) SoftDeleteExpired(now time.Time) (SweepResult, error) {
	count, err := s.repo.SoftDeleteExpired(now)
	if err != nil {
		return SweepResult{}, err
	}
	if count > 0 {
		s.log.Info("soft-deleted expired notifications", zap.Int64("count", count))
	}
	return SweepResult{Count: count, Cutoff: now}, nil
}

// CleanupDeleted hard-deletes rows soft-deleted longer than retentionDays
// ago, clamped to at least one day so a misconfigured zero can never purge
// fresh deletions. The cutoff is based on deleted_at, not auto_expire_at.
func (s *sweeperService) CleanupDeleted(retentionDays int) (CleanupResult, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	count, err := s.repo.PurgeDeletedBefore(cutoff)
	if err != nil {
		return CleanupResult{}, err
	}
	if count > 0 {
		s.log.Info("purged soft-deleted notifications",
			zap.Int64("count", count),
			zap.Int("retention_days", retentionDays))
	}
	return CleanupResult{Count: count, Cutoff: cutoff, Days: retentionDays}, nil
}

// Run drives the sweeps on their configured cadence until the context is
// cancelled. Sweep errors are logged and retried on the next tick, never
// fatal to the process.
func (s *sweeperService) Run(ctx context.Context) {
	sendDue := time.NewTicker(time.Duration(s.conf.SendDueIntervalSeconds) * time.Second)
	expire := time.NewTicker(time.Duration(s.conf.ExpiryIntervalSeconds) * time.Second)
	cleanup := time.NewTicker(time.Duration(s.conf.CleanupIntervalSeconds) * time.Second)
	defer sendDue.Stop()
	defer expire.Stop()
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sendDue.C:
			if _, err := s.SendDue(false); err != nil {
				s.log.Error("send-due sweep failed", zap.Error(err))
			}
		case <-expire.C:
			if _, err := s.SoftDeleteExpired(s.now()); err != nil {
				s.log.Error("expiry sweep failed", zap.Error(err))
			}
		case <-cleanup.C:
			if _, err := s.CleanupDeleted(s.conf.CleanupRetentionDays); err != nil {
				s.log.Error("cleanup sweep failed", zap.Error(err))
			}
		}
	}
}
