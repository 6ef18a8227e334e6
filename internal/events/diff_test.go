package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-hub/internal/domain"
)

func sampleRequest(mutate func(*domain.Request)) *domain.Request {
	engineer := int64(7)
	req := &domain.Request{
		ID:            42,
		ReferenceCode: "REQ-00042",
		RequestorID:   3,
		EngineerID:    &engineer,
		Status:        domain.RequestStatusOngoing,
	}
	if mutate != nil {
		mutate(req)
	}
	return req
}

func messagesTo(events []NotificationEvent, recipient int64) []string {
	var out []string
	for _, ev := range events {
		if ev.RecipientID == recipient {
			out = append(out, ev.Message)
		}
	}
	return out
}

func TestDiffCompletionNotifiesRequestorAndEngineer(t *testing.T) {
	old := sampleRequest(nil)
	updated := sampleRequest(func(r *domain.Request) {
		r.Status = domain.RequestStatusCompleted
	})

	got := Diff(old, updated)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Request REQ-00042 has been completed."}, messagesTo(got, 3))
	assert.Equal(t, []string{"Request REQ-00042 closed by admin."}, messagesTo(got, 7))
}

func TestDiffCompletionWithoutEngineer(t *testing.T) {
	old := sampleRequest(func(r *domain.Request) { r.EngineerID = nil })
	updated := sampleRequest(func(r *domain.Request) {
		r.EngineerID = nil
		r.Status = domain.RequestStatusCompleted
	})

	got := Diff(old, updated)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].RecipientID)
}

func TestDiffRepeatedCompletedSaveEmitsNothing(t *testing.T) {
	old := sampleRequest(func(r *domain.Request) { r.Status = domain.RequestStatusCompleted })
	updated := sampleRequest(func(r *domain.Request) { r.Status = domain.RequestStatusCompleted })

	assert.Empty(t, Diff(old, updated))
}

func TestDiffAssignment(t *testing.T) {
	t.Run("created with engineer", func(t *testing.T) {
		got := Diff(nil, sampleRequest(nil))
		require.Len(t, got, 1)
		assert.Equal(t, int64(7), got[0].RecipientID)
		assert.Equal(t, "You have been assigned to request REQ-00042", got[0].Message)
	})

	t.Run("newly assigned from none", func(t *testing.T) {
		old := sampleRequest(func(r *domain.Request) { r.EngineerID = nil })
		got := Diff(old, sampleRequest(nil))
		require.Len(t, got, 1)
		assert.Equal(t, int64(7), got[0].RecipientID)
	})

	t.Run("reassigned to another engineer", func(t *testing.T) {
		replacement := int64(9)
		updated := sampleRequest(func(r *domain.Request) { r.EngineerID = &replacement })
		got := Diff(sampleRequest(nil), updated)
		require.Len(t, got, 1)
		assert.Equal(t, replacement, got[0].RecipientID)
	})

	t.Run("unchanged engineer emits nothing", func(t *testing.T) {
		assert.Empty(t, Diff(sampleRequest(nil), sampleRequest(nil)))
	})

	t.Run("created without engineer emits nothing", func(t *testing.T) {
		created := sampleRequest(func(r *domain.Request) { r.EngineerID = nil })
		assert.Empty(t, Diff(nil, created))
	})
}

func TestDiffFallsBackToDerivedCode(t *testing.T) {
	created := sampleRequest(func(r *domain.Request) {
		r.ReferenceCode = ""
		r.EngineerID = nil
		r.Status = domain.RequestStatusCompleted
	})
	got := Diff(nil, created)
	require.Len(t, got, 1)
	assert.Equal(t, "Request REQ-00042 has been completed.", got[0].Message)
}
