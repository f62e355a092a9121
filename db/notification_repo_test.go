package db

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/notify/models"
	"gorm.io/gorm"
)

func TestCreateAssignsSortableID(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	owner := uuid.New()

	first := newUserNotification(t, repo, owner, "first")
	second := newUserNotification(t, repo, owner, "second")

	require.NotEqual(t, uuid.Nil, first.ID)
	require.NotEqual(t, uuid.Nil, second.ID)
	// UUIDv7 ids created later compare greater.
	assert.Equal(t, -1, compareIDs(first.ID, second.ID))
}

func compareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

func TestSoftDeleteHidesRecord(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	n := newSystemNotification(t, repo, "maintenance tonight")

	require.NoError(t, repo.SoftDelete(n.ID))

	_, err := repo.FindByID(n.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindByIDAny(n.ID)
	require.NoError(t, err)
	assert.True(t, found.DeletedAt.Valid)
}

func TestSoftDeleteUnknownID(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	err := repo.SoftDelete(uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRestoreClearsDeletedAt(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	n := newSystemNotification(t, repo, "oops")

	require.NoError(t, repo.SoftDelete(n.ID))
	require.NoError(t, repo.Restore(n.ID))

	found, err := repo.FindByID(n.ID)
	require.NoError(t, err)
	assert.False(t, found.DeletedAt.Valid)
}

func TestRestoreRequiresSoftDeleted(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	n := newSystemNotification(t, repo, "live")

	err := repo.Restore(n.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHardDeleteCascadesReadStates(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewNotificationRepo(gdb)
	states := NewReadStateRepo(gdb)
	n := newSystemNotification(t, repo, "broadcast")
	user := uuid.New()

	require.NoError(t, states.MarkRead([]uuid.UUID{n.ID}, user, time.Now()))
	require.NoError(t, repo.SoftDelete(n.ID))
	require.NoError(t, repo.HardDelete(n.ID))

	_, err := repo.FindByIDAny(n.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	state, err := states.Get(n.ID, user)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestDueBatchOrderAndFilters(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	now := time.Now()

	later := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "later", ScheduledAt: timePtr(now.Add(-time.Minute))}
	earlier := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "earlier", ScheduledAt: timePtr(now.Add(-time.Hour))}
	future := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "future", ScheduledAt: timePtr(now.Add(time.Hour))}
	expired := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "expired",
		ScheduledAt: timePtr(now.Add(-time.Hour)), AutoExpireAt: timePtr(now.Add(-time.Minute))}
	for _, n := range []*models.Notification{&later, &earlier, &future, &expired} {
		require.NoError(t, repo.Create(n))
	}

	batch, err := repo.DueBatch(now, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "earlier", batch[0].Message)
	assert.Equal(t, "later", batch[1].Message)

	count, err := repo.CountDue(now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMarkSentExcludesAlreadySent(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	now := time.Now()
	n := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "due", ScheduledAt: timePtr(now.Add(-time.Minute))}
	require.NoError(t, repo.Create(&n))

	marked, err := repo.MarkSent([]uuid.UUID{n.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	marked, err = repo.MarkSent([]uuid.UUID{n.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, marked)
}

func TestSoftDeleteExpiredSkipsDeleted(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	now := time.Now()

	expired := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "expired", Sent: true, AutoExpireAt: timePtr(now.Add(-time.Second))}
	alive := models.Notification{Scope: models.ScopeSystem, Category: models.CategoryInfo, Message: "alive", Sent: true, AutoExpireAt: timePtr(now.Add(time.Hour))}
	require.NoError(t, repo.Create(&expired))
	require.NoError(t, repo.Create(&alive))

	count, err := repo.SoftDeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Second sweep finds nothing: the deleted_at filter excludes the row.
	count, err = repo.SoftDeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestPurgeDeletedBeforeCutoff(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewNotificationRepo(gdb)
	n := newSystemNotification(t, repo, "old")
	require.NoError(t, repo.SoftDelete(n.ID))

	// Within retention: nothing purged.
	count, err := repo.PurgeDeletedBefore(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Backdate the soft-delete to push it past the cutoff.
	require.NoError(t, gdb.DB.Unscoped().Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Update("deleted_at", time.Now().AddDate(0, 0, -31)).Error)

	count, err = repo.PurgeDeletedBefore(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = repo.FindByIDAny(n.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFeedBroadcastOuterJoin(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewNotificationRepo(gdb)
	states := NewReadStateRepo(gdb)
	user := uuid.New()

	untouched := newSystemNotification(t, repo, "untouched")
	read := newSystemNotification(t, repo, "read")
	dismissed := newSystemNotification(t, repo, "dismissed")

	require.NoError(t, states.MarkRead([]uuid.UUID{read.ID}, user, time.Now()))
	require.NoError(t, states.Dismiss([]uuid.UUID{dismissed.ID}, user, time.Now()))

	rows, err := repo.FeedBroadcast(user, 25)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byMessage := map[string]BroadcastFeedRow{}
	for _, row := range rows {
		byMessage[row.Message] = row
	}
	require.Contains(t, byMessage, "untouched")
	require.Contains(t, byMessage, "read")
	assert.Equal(t, untouched.ID, byMessage["untouched"].ID)
	assert.Nil(t, byMessage["untouched"].UserReadAt)
	assert.NotNil(t, byMessage["read"].UserReadAt)
}

func TestFeedBroadcastPerUserIsolation(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewNotificationRepo(gdb)
	states := NewReadStateRepo(gdb)
	u1, u2 := uuid.New(), uuid.New()

	n := newSystemNotification(t, repo, "shared")
	require.NoError(t, states.MarkRead([]uuid.UUID{n.ID}, u1, time.Now()))

	rows, err := repo.FeedBroadcast(u2, 25)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].UserReadAt)
}

func TestFeedUserScopeExcludesDismissed(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	owner := uuid.New()

	visible := newUserNotification(t, repo, owner, "visible")
	dismissed := newUserNotification(t, repo, owner, "dismissed")
	now := time.Now()
	require.NoError(t, repo.SetInlineState(dismissed.ID, "dismissed_at", &now))

	ns, err := repo.FeedUserScope(owner, 25)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, visible.ID, ns[0].ID)
}

func TestBroadcastIDsNotDismissed(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewNotificationRepo(gdb)
	states := NewReadStateRepo(gdb)
	user := uuid.New()

	kept := newSystemNotification(t, repo, "kept")
	gone := newSystemNotification(t, repo, "gone")
	require.NoError(t, states.Dismiss([]uuid.UUID{gone.ID}, user, time.Now()))

	unsent := models.Notification{Scope: models.ScopeRelease, Category: models.CategoryInfo, Message: "scheduled", ScheduledAt: timePtr(time.Now().Add(time.Hour))}
	require.NoError(t, repo.Create(&unsent))

	ids, err := repo.BroadcastIDsNotDismissed(user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{kept.ID}, ids)
}

func TestBulkSetInlineStateOnlyIfNull(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	owner := uuid.New()
	n := newUserNotification(t, repo, owner, "hello")

	first := time.Now().Add(-time.Hour)
	count, err := repo.BulkSetInlineState([]uuid.UUID{n.ID}, owner, "read_at", &first, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	second := time.Now()
	count, err = repo.BulkSetInlineState([]uuid.UUID{n.ID}, owner, "read_at", &second, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	found, err := repo.FindByID(n.ID)
	require.NoError(t, err)
	require.NotNil(t, found.ReadAt)
	assert.WithinDuration(t, first, *found.ReadAt, time.Second)
}

func TestBulkSetInlineStateIgnoresForeignRows(t *testing.T) {
	repo := NewNotificationRepo(newTestDB(t))
	owner, stranger := uuid.New(), uuid.New()
	n := newUserNotification(t, repo, owner, "mine")

	now := time.Now()
	count, err := repo.BulkSetInlineState([]uuid.UUID{n.ID}, stranger, "read_at", &now, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
