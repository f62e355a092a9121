package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/notify/realtime"
)

func TestSendDuePromotesAndPublishesOnce(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()

	// Scheduled an hour out: silent and unsent.
	req := systemRequest("scheduled release note")
	req.ScheduledAt = timePtr(time.Now().Add(time.Hour))
	n, err := env.notificationService().Create(req)
	require.NoError(t, err)
	require.False(t, n.Sent)
	require.Equal(t, 0, env.pub.count(realtime.EventCreated))

	// Nothing due yet.
	count, err := sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Advance the sweeper's clock past the schedule.
	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	count, err = sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 1, env.pub.count(realtime.EventCreated))

	promoted, err := env.notifications.FindByID(n.ID)
	require.NoError(t, err)
	assert.True(t, promoted.Sent)
}

func TestSendDueSecondRunReturnsZero(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()

	req := systemRequest("due")
	req.ScheduledAt = timePtr(time.Now().Add(-time.Minute))
	// Create through the repo so sent stays false, as if scheduled earlier.
	n := req.Notification()
	require.NoError(t, env.notifications.Create(n))

	count, err := sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 1, env.pub.count(realtime.EventCreated))
}

func TestSendDueDryRunCountsWithoutSideEffects(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()

	req := systemRequest("due")
	req.ScheduledAt = timePtr(time.Now().Add(-time.Minute))
	n := req.Notification()
	require.NoError(t, env.notifications.Create(n))

	count, err := sweeper.SendDue(true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 0, env.pub.count(realtime.EventCreated))

	found, err := env.notifications.FindByID(n.ID)
	require.NoError(t, err)
	assert.False(t, found.Sent)

	// Dry run left it due, a real run still picks it up.
	count, err = sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSendDueSkipsExpired(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()

	req := systemRequest("expired before delivery")
	req.ScheduledAt = timePtr(time.Now().Add(-time.Hour))
	req.AutoExpireAt = timePtr(time.Now().Add(-time.Minute))
	n := req.Notification()
	require.NoError(t, env.notifications.Create(n))

	count, err := sweeper.SendDue(false)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestSoftDeleteExpiredLifecycle(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()
	now := time.Now()

	req := systemRequest("already expired")
	req.AutoExpireAt = timePtr(now.Add(-time.Second))
	n, err := env.notificationService().Create(req)
	require.NoError(t, err)

	result, err := sweeper.SoftDeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Count)
	assert.Equal(t, now, result.Cutoff)

	// Immediate cleanup with a 30-day retention keeps the record.
	cleanup, err := sweeper.CleanupDeleted(30)
	require.NoError(t, err)
	assert.EqualValues(t, 0, cleanup.Count)
	assert.Equal(t, 30, cleanup.Days)

	// 31 days later the cleanup hard-deletes it.
	sweeper.now = func() time.Time { return now.AddDate(0, 0, 31) }
	cleanup, err = sweeper.CleanupDeleted(30)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleanup.Count)

	_, err = env.notifications.FindByIDAny(n.ID)
	require.Error(t, err)
}

func TestSoftDeleteExpiredIdempotent(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()
	now := time.Now()

	req := systemRequest("expired")
	req.AutoExpireAt = timePtr(now.Add(-time.Second))
	_, err := env.notificationService().Create(req)
	require.NoError(t, err)

	result, err := sweeper.SoftDeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Count)

	result, err = sweeper.SoftDeleteExpired(now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Count)
}

func TestCleanupDeletedClampsRetention(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()

	n, err := env.notificationService().Create(systemRequest("just deleted"))
	require.NoError(t, err)
	require.NoError(t, env.notifications.SoftDelete(n.ID))

	// A zero retention clamps to one day, so a record deleted now survives.
	result, err := sweeper.CleanupDeleted(0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Days)
	assert.EqualValues(t, 0, result.Count)

	_, err = env.notifications.FindByIDAny(n.ID)
	assert.NoError(t, err)
}

func TestCleanupCutoffUsesDeletedAtNotExpiry(t *testing.T) {
	env := newTestEnv(t)
	sweeper := env.sweeper()
	now := time.Now()

	// Expired long ago but only soft-deleted just now: the retention window
	// counts from the soft-delete, so it survives cleanup.
	req := systemRequest("long expired")
	req.AutoExpireAt = timePtr(now.AddDate(0, 0, -60))
	n, err := env.notificationService().Create(req)
	require.NoError(t, err)

	_, err = sweeper.SoftDeleteExpired(now)
	require.NoError(t, err)

	result, err := sweeper.CleanupDeleted(30)
	require.NoError(t, err)
	assert.EqualValues(t, 0, result.Count)

	_, err = env.notifications.FindByIDAny(n.ID)
	assert.NoError(t, err)
}
