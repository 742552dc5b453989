package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/adwski/quizroom/client/api"
	"github.com/adwski/quizroom/client/model"
	"github.com/adwski/quizroom/client/room"
	"github.com/adwski/quizroom/client/storage/memory"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dialerMock struct {
	mock.Mock
}

func (m *dialerMock) Dial(ctx context.Context, roomID int64, token string) (room.Channel, error) {
	args := m.Called(ctx, roomID, token)
	ch, _ := args.Get(0).(room.Channel)
	return ch, args.Error(1)
}

type backend struct {
	mx    sync.Mutex
	calls []string
}

func (b *backend) called() []string {
	b.mx.Lock()
	defer b.mx.Unlock()
	return append([]string(nil), b.calls...)
}

func signedToken(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     exp.Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func newBackend(t *testing.T, access string) (*backend, *api.Client, *memory.MemStore) {
	t.Helper()
	b := &backend{}
	routes := map[string]string{
		"POST /api/auth/login/":    fmt.Sprintf(`{"access": %q, "refresh": "refresh-token"}`, access),
		"POST /api/auth/logout/":   `{"detail": "ok"}`,
		"POST /api/rooms/":         `{"id": 5, "name": "Friday", "invite_code": "ABC123"}`,
		"GET /api/rooms/5/":        `{"id": 5, "name": "Friday", "current_session_id": 9}`,
		"GET /api/rooms/find/":     `{"id": 5, "name": "Friday"}`,
		"POST /api/rooms/5/join/":  `{"id": 5}`,
		"POST /api/rooms/5/leave/": `{}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mx.Lock()
		b.calls = append(b.calls, key)
		b.mx.Unlock()
		body, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail": "Not found."}`)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	store := memory.NewMemStore(memory.Config{})
	client, err := api.New(api.Config{BaseURL: srv.URL + "/api", Tokens: store})
	require.NoError(t, err)
	return b, client, store
}

func TestLoginAndEnterRoom(t *testing.T) {
	access := signedToken(t, 10, time.Now().Add(time.Hour))
	b, client, store := newBackend(t, access)

	dialer := &dialerMock{}
	dialer.On("Dial", mock.Anything, int64(5), access).
		Return(nil, errors.New("connection refused")).Once()

	svc := NewService(Config{API: client, Store: store, Dialer: dialer})

	cred, err := svc.Login(context.Background(), "me@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(10), cred.UserID)
	assert.Equal(t, access, store.Token())

	h, err := svc.CreateRoom(context.Background(), "Friday", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), h.RoomID)
	assert.Equal(t, int64(4), h.SelectedQuizID)

	rc, err := svc.EnterRoom(context.Background(), h.Key)
	require.NoError(t, err)
	assert.Same(t, rc, svc.Mounted())

	_, err = svc.EnterRoom(context.Background(), h.Key)
	assert.ErrorIs(t, err, ErrAlreadyMounted)

	require.Eventually(t, func() bool {
		v, err := rc.View()
		return err == nil && len(v.Chat) == 1
	}, 2*time.Second, 5*time.Millisecond)
	v, err := rc.View()
	require.NoError(t, err)
	assert.Equal(t, model.Disconnected, v.Conn)
	assert.Equal(t, int64(4), v.SelectedQuizID)
	assert.Equal(t, "Friday", v.RoomName)

	require.NoError(t, svc.LeaveRoom(context.Background()))
	assert.Nil(t, svc.Mounted())
	_, err = store.Handoff(h.Key)
	assert.ErrorIs(t, err, memory.ErrHandoffNotFound)
	assert.ErrorIs(t, svc.LeaveRoom(context.Background()), ErrNotMounted)

	svc.Logout(context.Background())
	_, err = store.Credential()
	assert.ErrorIs(t, err, memory.ErrCredentialNotFound)

	assert.Equal(t, []string{
		"POST /api/auth/login/",
		"POST /api/rooms/",
		"POST /api/rooms/5/leave/",
		"POST /api/auth/logout/",
	}, b.called())
	dialer.AssertExpectations(t)
}

func TestEnterRoomRedirects(t *testing.T) {
	_, client, store := newBackend(t, "")
	dialer := &dialerMock{}
	svc := NewService(Config{API: client, Store: store, Dialer: dialer})

	var redirect *room.RedirectError

	_, err := svc.EnterRoom(context.Background(), "missing")
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, room.RedirectRooms, redirect.To)

	h, err := store.CreateHandoff(model.Handoff{RoomID: 5})
	require.NoError(t, err)
	_, err = svc.EnterRoom(context.Background(), h.Key)
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, room.RedirectLogin, redirect.To)

	_, err = svc.UseToken(signedToken(t, 10, time.Now().Add(-time.Minute)), "")
	require.NoError(t, err)
	_, err = svc.EnterRoom(context.Background(), h.Key)
	require.ErrorAs(t, err, &redirect)
	assert.Equal(t, room.RedirectLogin, redirect.To)
	assert.ErrorIs(t, err, room.ErrNoCredential)

	assert.Nil(t, svc.Mounted())
	dialer.AssertNotCalled(t, "Dial", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinByInvite(t *testing.T) {
	b, client, store := newBackend(t, "")
	svc := NewService(Config{API: client, Store: store})

	h, err := svc.JoinByInvite(context.Background(), "ABC123", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), h.RoomID)
	assert.Equal(t, "Friday", h.RoomName)
	assert.Equal(t, []string{"GET /api/rooms/find/", "POST /api/rooms/5/join/"}, b.called())

	_, err = svc.JoinByInvite(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrJoin)
	assert.ErrorIs(t, err, api.ErrInvalidRequest)
}

func TestSelectRoom(t *testing.T) {
	_, client, store := newBackend(t, "")
	svc := NewService(Config{API: client, Store: store})

	h, err := svc.SelectRoom(context.Background(), 5, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(9), h.GameSessionID)

	_, err = svc.SelectRoom(context.Background(), 6, 0)
	assert.ErrorIs(t, err, ErrGet)
	assert.ErrorIs(t, err, api.ErrNotFound)
}
