package db

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/techagentng/notify/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *GormDB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &GormDB{DB: gdb}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newUserNotification(t *testing.T, repo NotificationRepository, owner uuid.UUID, message string) *models.Notification {
	t.Helper()
	n := &models.Notification{
		Scope:    models.ScopeUser,
		OwnerID:  &owner,
		Category: models.CategoryInfo,
		Message:  message,
		Sent:     true,
	}
	if err := repo.Create(n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	return n
}

func newSystemNotification(t *testing.T, repo NotificationRepository, message string) *models.Notification {
	t.Helper()
	n := &models.Notification{
		Scope:    models.ScopeSystem,
		Category: models.CategoryWarning,
		Message:  message,
		Sent:     true,
	}
	if err := repo.Create(n); err != nil {
		t.Fatalf("create notification: %v", err)
	}
	return n
}
