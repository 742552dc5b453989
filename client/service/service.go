package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adwski/quizroom/client/api"
	"github.com/adwski/quizroom/client/auth"
	"github.com/adwski/quizroom/client/model"
	"github.com/adwski/quizroom/client/room"
	"github.com/adwski/quizroom/client/storage/memory"
	"github.com/rs/zerolog"
)

const defaultLeaveTimeout = 5 * time.Second

var (
	ErrLogin          = errors.New("unable to log in")
	ErrCreate         = errors.New("unable to create room")
	ErrJoin           = errors.New("unable to join room")
	ErrGet            = errors.New("unable to get room")
	ErrAlreadyMounted = errors.New("another room is already open")
	ErrNotMounted     = errors.New("no room is open")
)

type (
	API interface {
		Login(ctx context.Context, req api.LoginRequest) (api.Tokens, error)
		Logout(ctx context.Context, refresh string) error
		CreateRoom(ctx context.Context, req api.CreateRoomRequest) (api.Room, error)
		Room(ctx context.Context, id int64) (api.Room, error)
		FindRoom(ctx context.Context, inviteCode string) (api.Room, error)
		JoinRoom(ctx context.Context, id int64, inviteCode string) (api.Room, error)
		LeaveRoom(ctx context.Context, id int64) error
	}

	Store interface {
		CreateHandoff(h model.Handoff) (model.Handoff, error)
		Handoff(key string) (model.Handoff, error)
		DiscardHandoff(key string)
		SaveCredential(cred auth.Credential)
		Credential() (auth.Credential, error)
		ClearCredential()
	}

	Config struct {
		Logger    *zerolog.Logger
		API       API
		Store     Store
		Dialer    room.Dialer
		Publisher room.Publisher
		Reconnect room.Reconnect
		Clock     func() time.Time
	}

	// Service drives the screens around the game room: it resolves the session,
	// hands identifiers over to the room and keeps at most one room mounted.
	Service struct {
		api       API
		store     Store
		dialer    room.Dialer
		publisher room.Publisher
		reconnect room.Reconnect
		now       func() time.Time
		logger    zerolog.Logger

		mx      sync.Mutex
		mounted *mountedRoom
	}

	mountedRoom struct {
		client  *room.Client
		handoff model.Handoff
	}
)

func NewService(cfg Config) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Service{
		api:       cfg.API,
		store:     cfg.Store,
		dialer:    cfg.Dialer,
		publisher: cfg.Publisher,
		reconnect: cfg.Reconnect,
		now:       now,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Login exchanges the credentials for tokens and keeps them in the store.
func (svc *Service) Login(ctx context.Context, email, password string) (auth.Credential, error) {
	tokens, err := svc.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return auth.Credential{}, errors.Join(ErrLogin, err)
	}
	cred, err := auth.ParseCredential(tokens.Access, tokens.Refresh)
	if err != nil {
		return auth.Credential{}, errors.Join(ErrLogin, err)
	}
	svc.store.SaveCredential(cred)
	svc.logger.Debug().
		Int64("userID", cred.UserID).
		Time("expiresAt", cred.ExpiresAt).
		Msg("logged in")
	return cred, nil
}

// UseToken adopts an access token obtained elsewhere.
func (svc *Service) UseToken(access, refresh string) (auth.Credential, error) {
	cred, err := auth.ParseCredential(access, refresh)
	if err != nil {
		return auth.Credential{}, errors.Join(ErrLogin, err)
	}
	svc.store.SaveCredential(cred)
	return cred, nil
}

// Logout leaves the open room, revokes the refresh token and forgets the credential.
// Backend failures are logged, the local session is cleared regardless.
func (svc *Service) Logout(ctx context.Context) {
	if err := svc.LeaveRoom(ctx); err != nil && !errors.Is(err, ErrNotMounted) {
		svc.logger.Error().Err(err).Msg("failed to leave room on logout")
	}
	cred, err := svc.store.Credential()
	if err == nil && cred.RefreshToken != "" {
		if err = svc.api.Logout(ctx, cred.RefreshToken); err != nil {
			svc.logger.Error().Err(err).Msg("failed to revoke refresh token")
		}
	}
	svc.store.ClearCredential()
	svc.logger.Debug().Msg("logged out")
}

func (svc *Service) CreateRoom(ctx context.Context, name string, quizID int64) (model.Handoff, error) {
	r, err := svc.api.CreateRoom(ctx, api.CreateRoomRequest{Name: name})
	if err != nil {
		return model.Handoff{}, errors.Join(ErrCreate, err)
	}
	svc.logger.Debug().
		Int64("roomID", r.ID).
		Str("inviteCode", r.InviteCode).
		Msg("room created")
	return svc.handoff(r, quizID)
}

// JoinByInvite resolves the invite code and joins the room it belongs to.
func (svc *Service) JoinByInvite(ctx context.Context, inviteCode string, quizID int64) (model.Handoff, error) {
	found, err := svc.api.FindRoom(ctx, inviteCode)
	if err != nil {
		return model.Handoff{}, errors.Join(ErrJoin, err)
	}
	joined, err := svc.api.JoinRoom(ctx, found.ID, inviteCode)
	if err != nil {
		return model.Handoff{}, errors.Join(ErrJoin, err)
	}
	svc.logger.Debug().Int64("roomID", joined.ID).Msg("user joined room")
	if joined.Name == "" {
		joined.Name = found.Name
	}
	return svc.handoff(joined, quizID)
}

// SelectRoom prepares entering a room the user is already a member of.
func (svc *Service) SelectRoom(ctx context.Context, roomID, quizID int64) (model.Handoff, error) {
	r, err := svc.api.Room(ctx, roomID)
	if err != nil {
		return model.Handoff{}, errors.Join(ErrGet, err)
	}
	return svc.handoff(r, quizID)
}

func (svc *Service) handoff(r api.Room, quizID int64) (model.Handoff, error) {
	h := model.Handoff{
		RoomID:         r.ID,
		RoomName:       r.Name,
		SelectedQuizID: quizID,
	}
	if r.CurrentSessionID != nil {
		h.GameSessionID = *r.CurrentSessionID
	}
	return svc.store.CreateHandoff(h)
}

// EnterRoom mounts the game room described by the handoff. A missing handoff or
// credential is a *room.RedirectError and nothing is dialed.
func (svc *Service) EnterRoom(ctx context.Context, handoffKey string) (*room.Client, error) {
	svc.mx.Lock()
	defer svc.mx.Unlock()

	if svc.mounted != nil {
		return nil, ErrAlreadyMounted
	}
	h, err := svc.store.Handoff(handoffKey)
	if err != nil {
		return nil, &room.RedirectError{To: room.RedirectRooms, Err: errors.Join(room.ErrNoRoom, err)}
	}
	cred, err := svc.store.Credential()
	if err != nil {
		return nil, &room.RedirectError{To: room.RedirectLogin, Err: errors.Join(room.ErrNoCredential, err)}
	}

	client, err := room.Mount(ctx, room.Config{
		Logger:         &svc.logger,
		Dialer:         svc.dialer,
		Publisher:      svc.publisher,
		RoomID:         h.RoomID,
		RoomName:       h.RoomName,
		SelectedQuizID: h.SelectedQuizID,
		Credential:     cred,
		Reconnect:      svc.reconnect,
		Clock:          svc.now,
	})
	if err != nil {
		return nil, err
	}
	svc.mounted = &mountedRoom{client: client, handoff: h}
	svc.logger.Info().
		Int64("roomID", h.RoomID).
		Str("handoff", h.Key).
		Msg("room mounted")
	return client, nil
}

// LeaveRoom unmounts the open room, tells the backend and discards the handoff.
func (svc *Service) LeaveRoom(ctx context.Context) error {
	svc.mx.Lock()
	mounted := svc.mounted
	svc.mounted = nil
	svc.mx.Unlock()

	if mounted == nil {
		return ErrNotMounted
	}
	mounted.client.Close()
	svc.store.DiscardHandoff(mounted.handoff.Key)

	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultLeaveTimeout)
	defer cancel()
	if err := svc.api.LeaveRoom(leaveCtx, mounted.handoff.RoomID); err != nil {
		svc.logger.Error().Err(err).Int64("roomID", mounted.handoff.RoomID).Msg("failed to leave room")
	}
	svc.logger.Info().Int64("roomID", mounted.handoff.RoomID).Msg("room unmounted")
	return nil
}

// Mounted returns the open room client, nil when none is open.
func (svc *Service) Mounted() *room.Client {
	svc.mx.Lock()
	defer svc.mx.Unlock()
	if svc.mounted == nil {
		return nil
	}
	return svc.mounted.client
}

var (
	_ API   = (*api.Client)(nil)
	_ Store = (*memory.MemStore)(nil)
)
