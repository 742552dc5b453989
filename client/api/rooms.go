package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/adwski/quizroom/client/model"
)

type RoomStatus string

const (
	RoomDraft      RoomStatus = "draft"
	RoomOpen       RoomStatus = "open"
	RoomInProgress RoomStatus = "in_progress"
	RoomFinished   RoomStatus = "finished"
)

type Participant struct {
	UserID   int64           `json:"user_id" validate:"required"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	IsHost   bool            `json:"is_host"`
	JoinedAt model.Timestamp `json:"joined_at"`
}

type Room struct {
	ID               int64           `json:"id" validate:"required"`
	Name             string          `json:"name"`
	HostID           int64           `json:"host_id"`
	InviteCode       string          `json:"invite_code"`
	Status           RoomStatus      `json:"status"`
	CreatedAt        model.Timestamp `json:"created_at"`
	PlayersCount     int             `json:"players_count"`
	Participants     []Participant   `json:"participants" validate:"dive"`
	CurrentSessionID *int64          `json:"current_session_id"`
}

// Players maps the participant list onto the roster shape of the room channel.
func (r Room) Players() []model.Player {
	players := make([]model.Player, 0, len(r.Participants))
	for _, p := range r.Participants {
		players = append(players, model.Player{UserID: p.UserID, Username: p.Username, IsHost: p.IsHost})
	}
	return players
}

type CreateRoomRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type PatchRoomRequest struct {
	Name   *string     `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Status *RoomStatus `json:"status,omitempty" validate:"omitempty,oneof=draft open in_progress finished"`
}

type joinRoomRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

type startGameRequest struct {
	QuizID int64 `json:"quiz_id" validate:"required"`
}

// GameSession is the session created by the start endpoint.
type GameSession struct {
	ID                   int64           `json:"id" validate:"required"`
	RoomID               int64           `json:"room"`
	RoomName             string          `json:"room_name"`
	QuizID               int64           `json:"quiz"`
	QuizTitle            string          `json:"quiz_title"`
	Status               string          `json:"status" validate:"omitempty,oneof=waiting playing paused finished"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	TotalQuestions       int             `json:"total_questions"`
	PlayersCount         int             `json:"players_count"`
	StartedAt            model.Timestamp `json:"started_at"`
	FinishedAt           model.Timestamp `json:"finished_at"`
	CreatedAt            model.Timestamp `json:"created_at"`
}

func roomPath(id int64, suffix string) string {
	return fmt.Sprintf("/rooms/%d/%s", id, suffix)
}

func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (Room, error) {
	return getOne[Room](ctx, c, http.MethodPost, "/rooms/", nil, &req)
}

func (c *Client) Room(ctx context.Context, id int64) (Room, error) {
	return getOne[Room](ctx, c, http.MethodGet, roomPath(id, ""), nil, nil)
}

func (c *Client) PatchRoom(ctx context.Context, id int64, req PatchRoomRequest) (Room, error) {
	return getOne[Room](ctx, c, http.MethodPatch, roomPath(id, ""), nil, &req)
}

func (c *Client) DeleteRoom(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, roomPath(id, ""), nil, nil, nil)
}

func (c *Client) JoinRoom(ctx context.Context, id int64, inviteCode string) (Room, error) {
	return getOne[Room](ctx, c, http.MethodPost, roomPath(id, "join/"), nil, &joinRoomRequest{InviteCode: inviteCode})
}

func (c *Client) LeaveRoom(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, roomPath(id, "leave/"), nil, nil, nil)
}

func (c *Client) MyRooms(ctx context.Context) ([]Room, error) {
	return getList[Room](ctx, c, "/rooms/mine/", nil)
}

func (c *Client) FindRoom(ctx context.Context, inviteCode string) (Room, error) {
	if inviteCode == "" {
		return Room{}, fmt.Errorf("%w: empty invite code", ErrInvalidRequest)
	}
	return getOne[Room](ctx, c, http.MethodGet, "/rooms/find/", url.Values{"invite_code": {inviteCode}}, nil)
}

// StartGame starts a session of the quiz in the room. Only the host is allowed to.
func (c *Client) StartGame(ctx context.Context, roomID, quizID int64) (GameSession, error) {
	return getOne[GameSession](ctx, c, http.MethodPost,
		fmt.Sprintf("/game/rooms/%d/start/", roomID), nil, &startGameRequest{QuizID: quizID})
}
