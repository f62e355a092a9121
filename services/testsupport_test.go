package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/techagentng/notify/db"
	"github.com/techagentng/notify/models"
	"github.com/techagentng/notify/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakePublisher records every publish so tests can assert on fan-out counts
// and channels without a redis.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   bool
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload interface{}
}

type publishFailure struct{}

func (publishFailure) Error() string { return "publish failed" }

func (f *fakePublisher) Publish(_ context.Context, channel, event string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return publishFailure{}
	}
	f.events = append(f.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
	return nil
}

func (f *fakePublisher) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (f *fakePublisher) last() *publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	e := f.events[len(f.events)-1]
	return &e
}

func (f *fakePublisher) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

type testEnv struct {
	gdb           *db.GormDB
	notifications db.NotificationRepository
	states        db.ReadStateRepository
	pub           *fakePublisher
	fanout        *realtime.Fanout
	log           *zap.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Notification{}, &models.ReadState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	wrapped := &db.GormDB{DB: gdb}
	pub := &fakePublisher{}
	log := zap.NewNop()
	return &testEnv{
		gdb:           wrapped,
		notifications: db.NewNotificationRepo(wrapped),
		states:        db.NewReadStateRepo(wrapped),
		pub:           pub,
		fanout:        realtime.NewFanout(pub, log),
		log:           log,
	}
}

func (e *testEnv) notificationService() NotificationService {
	return NewNotificationService(e.notifications, e.fanout, e.log)
}

func (e *testEnv) readStateService() ReadStateService {
	return NewReadStateService(e.notifications, e.states, e.fanout, e.log)
}

func (e *testEnv) feedService() FeedService {
	return NewFeedService(e.notifications, 250)
}

func (e *testEnv) sweeper() *sweeperService {
	return &sweeperService{
		repo:   e.notifications,
		fanout: e.fanout,
		log:    e.log,
		now:    time.Now,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func ownerPtr(id uuid.UUID) *uuid.UUID { return &id }

func userRequest(owner uuid.UUID, message string) *models.CreateNotificationRequest {
	return &models.CreateNotificationRequest{
		Scope:    models.ScopeUser,
		OwnerID:  ownerPtr(owner),
		Category: models.CategoryInfo,
		Message:  message,
	}
}

func systemRequest(message string) *models.CreateNotificationRequest {
	return &models.CreateNotificationRequest{
		Scope:    models.ScopeSystem,
		Category: models.CategoryWarning,
		Message:  message,
	}
}
