package model

import (
	"bytes"
	"encoding/json"
	"time"
)

type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhasePaused   Phase = "paused"
	PhaseFinished Phase = "finished"
)

// SystemUsername is the author name of locally generated chat entries.
const SystemUsername = "System"

type Player struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
}

// ChatEntry is one line of the room chat log. UserID is nil for system entries.
type ChatEntry struct {
	UserID    *int64    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

func (c ChatEntry) IsSystem() bool {
	return c.UserID == nil
}

func SystemEntry(message string, at time.Time) ChatEntry {
	return ChatEntry{
		Username:  SystemUsername,
		Message:   message,
		Timestamp: Timestamp{Time: at},
	}
}

type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

// Question is the snapshot of the question currently on screen.
type Question struct {
	RoundNumber int      `json:"round_number"`
	QuestionID  int64    `json:"question_id"`
	Text        string   `json:"text"`
	Options     []Option `json:"options"`
	TimeLimit   int      `json:"time_limit"`
}

func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Options = append([]Option(nil), q.Options...)
	return &c
}

// Timer mirrors the last server tick, it is never decremented locally.
type Timer struct {
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

type NotificationKind string

const (
	NotifyInfo    NotificationKind = "info"
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

// Notification is a transient message for the user, it is never part of the room state.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

type Panel string

const (
	PanelWaiting       Panel = "waiting"
	PanelQuestion      Panel = "question"
	PanelBetweenRounds Panel = "between_rounds"
	PanelFinished      Panel = "finished"
)

// SelectPanel picks what the room screen shows.
func SelectPanel(phase Phase, question *Question) Panel {
	switch {
	case phase == PhaseFinished:
		return PanelFinished
	case question != nil:
		return PanelQuestion
	case phase == PhaseWaiting:
		return PanelWaiting
	default:
		return PanelBetweenRounds
	}
}

// View is a render-ready copy of the room state. It shares no memory with the state.
type View struct {
	RoomID         int64           `json:"room_id"`
	RoomName       string          `json:"room_name"`
	UserID         int64           `json:"user_id"`
	HostID         int64           `json:"host_id"`
	IsHost         bool            `json:"is_host"`
	Conn           ConnectionState `json:"connection"`
	Phase          Phase           `json:"phase"`
	Panel          Panel           `json:"panel"`
	QuizTitle      string          `json:"quiz_title,omitempty"`
	SelectedQuizID int64           `json:"selected_quiz_id,omitempty"`
	Players        []Player        `json:"players"`
	Chat           []ChatEntry     `json:"chat"`
	Question       *Question       `json:"question,omitempty"`
	Timer          Timer           `json:"timer"`
	Answered       bool            `json:"answered"`
}

// Update is what the room client publishes: either a notification or a fresh view.
type Update struct {
	RoomID       int64         `json:"room_id"`
	Notification *Notification `json:"notification,omitempty"`
	View         *View         `json:"view,omitempty"`
}

// Handoff carries identifiers from the room selection screens to the game room.
type Handoff struct {
	Key            string    `json:"key"`
	RoomID         int64     `json:"room_id"`
	RoomName       string    `json:"room_name"`
	GameSessionID  int64     `json:"game_session_id,omitempty"`
	SelectedQuizID int64     `json:"selected_quiz_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Wire connects a channel transport with its consumer.
type Wire struct {
	RX chan Event
	TX chan Command
}

func NewWire(size int) Wire {
	return Wire{
		RX: make(chan Event, size),
		TX: make(chan Command, size),
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC3339 as well as the zone-less ISO format the backend emits.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
