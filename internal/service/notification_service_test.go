package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/config"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/events"
)

type notificationFixture struct {
	svc           *NotificationService
	notifications *fakeNotificationRepo
	requests      *fakeRequestRepo

	requestor *domain.User
	engineer  *domain.User
	admin     *domain.User
	request   *domain.Request
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	users := newFakeUserRepo()
	f := &notificationFixture{
		notifications: newFakeNotificationRepo(),
		requests:      newFakeRequestRepo(),
	}
	f.requestor = users.add(domain.User{Name: "Rita Req", Email: "rita@example.com", Role: domain.RoleRequestor, Active: true})
	f.engineer = users.add(domain.User{Name: "Eddie Eng", Email: "eddie@example.com", Role: domain.RoleEngineer, Active: true})
	f.admin = users.add(domain.User{Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true})

	f.request = f.requests.add(domain.Request{
		RequestorID: f.requestor.ID,
		AccountID:   1,
		Status:      domain.RequestStatusOngoing,
		StartDate:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		EngineerID:  &f.engineer.ID,
	})

	f.svc = NewNotificationService(NotificationDependencies{
		NotificationRepo: f.notifications,
		RequestRepo:      f.requests,
		Dispatcher:       events.NewInMemoryDispatcher(),
		Logger:           zap.NewNop(),
		Config:           config.NotificationConfig{},
	})
	return f
}

func (f *notificationFixture) seed(recipientID int64, message string) *domain.Notification {
	n := &domain.Notification{RecipientID: recipientID, Message: message, RelatedRequestID: &f.request.ID}
	_ = f.notifications.Create(context.Background(), n)
	return n
}

func TestMarkReadOnlyByRecipient(t *testing.T) {
	f := newNotificationFixture(t)
	n := f.seed(f.engineer.ID, "You have been assigned to request REQ-00001")

	err := f.svc.MarkRead(context.Background(), f.requestor, n.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	require.NoError(t, f.svc.MarkRead(context.Background(), f.engineer, n.ID))
	stored, err := f.notifications.GetByID(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newNotificationFixture(t)
	n := f.seed(f.engineer.ID, "first")

	require.NoError(t, f.svc.MarkRead(context.Background(), f.engineer, n.ID))
	require.NoError(t, f.svc.MarkRead(context.Background(), f.engineer, n.ID))
}

func TestListUnreadOnly(t *testing.T) {
	f := newNotificationFixture(t)
	read := f.seed(f.engineer.ID, "older")
	require.NoError(t, f.svc.MarkRead(context.Background(), f.engineer, read.ID))
	f.seed(f.engineer.ID, "newer")

	unread, err := f.svc.List(context.Background(), f.engineer.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "newer", unread[0].Message)

	all, err := f.svc.List(context.Background(), f.engineer.ID, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUnreadCountWithoutCache(t *testing.T) {
	f := newNotificationFixture(t)
	f.seed(f.engineer.ID, "one")
	f.seed(f.engineer.ID, "two")
	f.seed(f.requestor.ID, "other inbox")

	count, err := f.svc.UnreadCount(context.Background(), f.engineer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNudgeRequiresAdmin(t *testing.T) {
	f := newNotificationFixture(t)

	_, err := f.svc.Nudge(context.Background(), f.engineer, f.request.ID, f.engineer.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestNudgeRejectsNonParticipants(t *testing.T) {
	f := newNotificationFixture(t)

	_, err := f.svc.Nudge(context.Background(), f.admin, f.request.ID, f.admin.ID)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestNudgeCreatesNotification(t *testing.T) {
	f := newNotificationFixture(t)

	n, err := f.svc.Nudge(context.Background(), f.admin, f.request.ID, f.engineer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Please post a status update for request "+f.request.ReferenceCode+".", n.Message)
	assert.Equal(t, f.engineer.ID, n.RecipientID)
	require.NotNil(t, n.RelatedRequestID)
	assert.Equal(t, f.request.ID, *n.RelatedRequestID)
}
