package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-hub/internal/domain"
)

type sweepFixture struct {
	svc           *SweepService
	requests      *fakeRequestRepo
	users         *fakeUserRepo
	notifications *fakeNotificationRepo

	engineer *domain.User
	admins   []*domain.User
}

func newSweepFixture(t *testing.T, now time.Time) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		requests:      newFakeRequestRepo(),
		users:         newFakeUserRepo(),
		notifications: newFakeNotificationRepo(),
	}
	f.engineer = f.users.add(domain.User{Name: "Eddie Eng", Email: "eddie@example.com", Role: domain.RoleEngineer, Active: true})
	f.admins = append(f.admins,
		f.users.add(domain.User{Name: "Ada Admin", Email: "ada@example.com", Role: domain.RoleAdmin, Active: true}),
		f.users.add(domain.User{Name: "Bob Admin", Email: "bob@example.com", Role: domain.RoleAdmin, Active: true}),
	)
	f.svc = NewSweepService(SweepDependencies{
		RequestRepo:      f.requests,
		UserRepo:         f.users,
		NotificationRepo: f.notifications,
		Logger:           zap.NewNop(),
		Now:              func() time.Time { return now },
	})
	return f
}

func (f *sweepFixture) addRequest(status domain.RequestStatus, due time.Time, engineerID *int64) *domain.Request {
	return f.requests.add(domain.Request{
		RequestorID: 99,
		AccountID:   1,
		Status:      status,
		StartDate:   due.AddDate(0, 0, -5),
		DueDate:     &due,
		EngineerID:  engineerID,
	})
}

func TestSweepNotifiesEngineerAndAdmins(t *testing.T) {
	f := newSweepFixture(t, day(2024, time.March, 10))
	overdue := f.addRequest(domain.RequestStatusOngoing, day(2024, time.March, 5), &f.engineer.ID)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 3, result.Created)

	engineerInbox := f.notifications.forRecipient(f.engineer.ID)
	require.Len(t, engineerInbox, 1)
	assert.Equal(t, "Request "+overdue.ReferenceCode+" exceeded its SLA target date.", engineerInbox[0].Message)
	for _, admin := range f.admins {
		assert.Len(t, f.notifications.forRecipient(admin.ID), 1)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t, day(2024, time.March, 10))
	f.addRequest(domain.RequestStatusOngoing, day(2024, time.March, 5), &f.engineer.ID)

	first, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Created)

	second, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Processed)
	assert.Equal(t, 0, second.Created)
	assert.Len(t, f.notifications.entries, 3)
}

func TestSweepSkipsCompletedAndFutureRequests(t *testing.T) {
	f := newSweepFixture(t, day(2024, time.March, 10))
	f.addRequest(domain.RequestStatusCompleted, day(2024, time.March, 5), &f.engineer.ID)
	f.addRequest(domain.RequestStatusOngoing, day(2024, time.March, 20), &f.engineer.ID)
	// Due today is not yet a breach.
	f.addRequest(domain.RequestStatusOngoing, day(2024, time.March, 10), &f.engineer.ID)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, f.notifications.entries)
}

func TestSweepWithoutEngineerStillAlertsAdmins(t *testing.T) {
	f := newSweepFixture(t, day(2024, time.March, 10))
	f.addRequest(domain.RequestStatusOngoing, day(2024, time.March, 1), nil)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, f.notifications.forRecipient(f.engineer.ID))
}
