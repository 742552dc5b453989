package memory

import (
	"testing"
	"time"

	"github.com/adwski/quizroom/client/auth"
	"github.com/adwski/quizroom/client/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestHandoffLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	ms := NewMemStore(Config{HandoffTTL: time.Minute, Clock: clock.Now})

	h, err := ms.CreateHandoff(model.Handoff{RoomID: 5, RoomName: "Friday quiz"})
	require.NoError(t, err)
	require.NotEmpty(t, h.Key)
	assert.Equal(t, clock.now, h.CreatedAt)

	got, err := ms.Handoff(h.Key)
	require.NoError(t, err)
	assert.Equal(t, h, got)

	got.SelectedQuizID = 3
	require.NoError(t, ms.UpdateHandoff(got))
	got, err = ms.Handoff(h.Key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.SelectedQuizID)
	assert.Equal(t, h.CreatedAt, got.CreatedAt)

	ms.DiscardHandoff(h.Key)
	_, err = ms.Handoff(h.Key)
	assert.ErrorIs(t, err, ErrHandoffNotFound)
}

func TestHandoffExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	ms := NewMemStore(Config{HandoffTTL: time.Minute, Clock: clock.Now})

	h, err := ms.CreateHandoff(model.Handoff{RoomID: 5})
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Minute)
	_, err = ms.Handoff(h.Key)
	assert.ErrorIs(t, err, ErrHandoffNotFound)
	assert.ErrorIs(t, ms.UpdateHandoff(h), ErrHandoffNotFound)
}

func TestHandoffRequiresRoom(t *testing.T) {
	ms := NewMemStore(Config{})
	_, err := ms.CreateHandoff(model.Handoff{RoomName: "nameless"})
	assert.ErrorIs(t, err, ErrNoRoom)
}

func TestCredential(t *testing.T) {
	ms := NewMemStore(Config{})
	_, err := ms.Credential()
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.Empty(t, ms.Token())

	ms.SaveCredential(auth.Credential{Token: "abc", UserID: 1})
	cred, err := ms.Credential()
	require.NoError(t, err)
	assert.Equal(t, int64(1), cred.UserID)
	assert.Equal(t, "abc", ms.Token())

	ms.ClearCredential()
	_, err = ms.Credential()
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
