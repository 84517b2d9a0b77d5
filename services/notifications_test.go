package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-assist-server/models"
)

// recordingPusher captures live pushes instead of writing to a socket
type recordingPusher struct {
	delivered []*models.Notification
}

func (p *recordingPusher) NotifyUser(userID uint, notification *models.Notification) {
	p.delivered = append(p.delivered, notification)
}

func TestDispatchStoresAndPushes(t *testing.T) {
	db := newTestDB(t)
	pusher := &recordingPusher{}
	dispatcher := NewNotificationDispatcher(db, pusher, "")
	user := createUser(t, db, models.RoleCustomer)

	jobID := uint(7)
	dispatcher.Dispatch(user.ID, models.NotificationStatusUpdate, "Job status updated", "Your job is enroute.", &jobID)

	list, err := dispatcher.List(user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationStatusUpdate, list[0].Type)
	assert.False(t, list[0].Read)
	require.NotNil(t, list[0].JobID)
	assert.Equal(t, jobID, *list[0].JobID)

	require.Len(t, pusher.delivered, 1)
	assert.Equal(t, list[0].ID, pusher.delivered[0].ID)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	dispatcher := newTestDispatcher(db)
	user := createUser(t, db, models.RoleCustomer)
	other := createUser(t, db, models.RoleCustomer)

	dispatcher.Dispatch(user.ID, models.NotificationSystem, "a", "a", nil)
	dispatcher.Dispatch(user.ID, models.NotificationSystem, "b", "b", nil)
	dispatcher.Dispatch(other.ID, models.NotificationSystem, "c", "c", nil)

	count, err := dispatcher.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	list, err := dispatcher.List(user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, dispatcher.MarkRead(user.ID, list[0].ID))

	count, err = dispatcher.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Nobody marks someone else's inbox.
	err = dispatcher.MarkRead(other.ID, list[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, dispatcher.MarkAllRead(user.ID))
	count, err = dispatcher.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// The other inbox is untouched.
	count, err = dispatcher.UnreadCount(other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
