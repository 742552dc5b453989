package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type EventType string

// Inbound event tags sent by the room channel.
const (
	EventRoomState        EventType = "room_state"
	EventPlayerJoined     EventType = "player_joined"
	EventPlayerLeft       EventType = "player_left"
	EventChatMessage      EventType = "chat_message"
	EventGameStarted      EventType = "game_started"
	EventQuestionRevealed EventType = "question_revealed"
	EventNewQuestion      EventType = "new_question"
	EventTimerUpdate      EventType = "timer_update"
	EventTimerPaused      EventType = "timer_paused"
	EventTimerResumed     EventType = "timer_resumed"
	EventAnswerSubmitted  EventType = "answer_submitted"
	EventAnswerChecked    EventType = "answer_checked"
	EventRoundCompleted   EventType = "round_completed"
	EventRoundEnded       EventType = "round_ended"
	EventGameFinished     EventType = "game_finished"
	EventGamePaused       EventType = "game_paused"
	EventGameResumed      EventType = "game_resumed"
	EventError            EventType = "error"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event type")
)

// Event is the closed set of inbound room events.
// Only types declared in this package implement it.
type Event interface {
	EventType() EventType
	sealed()
}

type SessionState struct {
	ID              int64            `json:"id"`
	Status          string           `json:"status"`
	QuizTitle       string           `json:"quiz_title"`
	CurrentQuestion *QuestionPayload `json:"current_question"`
}

type RoomState struct {
	RoomID         int64         `json:"room_id"`
	RoomName       string        `json:"room_name"`
	HostID         int64         `json:"host_id"`
	PlayerCount    int           `json:"player_count"`
	Players        []Player      `json:"players"`
	RecentMessages []ChatEntry   `json:"recent_messages"`
	Session        *SessionState `json:"session"`
}

type PlayerJoined struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	IsHost    bool      `json:"is_host"`
	Timestamp Timestamp `json:"timestamp"`
}

type PlayerLeft struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp Timestamp `json:"timestamp"`
}

type ChatMessage struct {
	UserID    *int64    `json:"user_id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

type GameStarted struct {
	SessionID      int64  `json:"session_id"`
	QuizID         int64  `json:"quiz_id"`
	QuizTitle      string `json:"quiz_title"`
	TotalQuestions int    `json:"total_questions"`
	StartedBy      int64  `json:"started_by"`
}

// QuestionPayload is the wire form of a revealed question.
// The backend uses time_limit on question_revealed and timer_duration on new_question.
type QuestionPayload struct {
	SessionID      int64    `json:"session_id"`
	RoundNumber    int      `json:"round_number"`
	QuestionID     int64    `json:"question_id"`
	QuestionText   string   `json:"question_text"`
	Options        []Option `json:"options"`
	TimeLimit      int      `json:"time_limit"`
	TimerDuration  int      `json:"timer_duration"`
	TotalQuestions int      `json:"total_questions"`
}

func (p QuestionPayload) Snapshot() *Question {
	limit := p.TimeLimit
	if limit == 0 {
		limit = p.TimerDuration
	}
	return &Question{
		RoundNumber: p.RoundNumber,
		QuestionID:  p.QuestionID,
		Text:        p.QuestionText,
		Options:     append([]Option(nil), p.Options...),
		TimeLimit:   limit,
	}
}

// QuestionRevealed covers both question_revealed and new_question.
type QuestionRevealed struct {
	Tag EventType `json:"-"`
	QuestionPayload
}

type TimerUpdate struct {
	SessionID   int64 `json:"session_id"`
	RoundNumber int   `json:"round_number"`
	Remaining   int   `json:"remaining_seconds"`
	Total       int   `json:"total_seconds"`
}

type TimerPaused struct {
	RoundNumber int `json:"round_number"`
	Remaining   int `json:"paused_at_seconds"`
}

type TimerResumed struct {
	RoundNumber int `json:"round_number"`
	Remaining   int `json:"remaining_seconds"`
}

type AnswerSubmitted struct {
	RoundNumber    int     `json:"round_number"`
	UserID         int64   `json:"user_id"`
	Username       string  `json:"username"`
	AnswerOptionID int64   `json:"answer_option_id"`
	TimeTaken      float64 `json:"time_taken"`
	IsFirst        bool    `json:"is_first"`
}

type AnswerChecked struct {
	RoundNumber  int     `json:"round_number"`
	UserID       int64   `json:"user_id"`
	Username     string  `json:"username"`
	IsCorrect    bool    `json:"is_correct"`
	PointsEarned int     `json:"points_earned"`
	TimeTaken    float64 `json:"time_taken"`
	CurrentScore int     `json:"current_score"`
}

type RoundCompleted struct {
	RoundNumber     int    `json:"round_number"`
	QuestionID      int64  `json:"question_id"`
	CorrectOptionID int64  `json:"correct_option_id"`
	Explanation     string `json:"explanation"`
}

type RoundEnded struct {
	RoundNumber int    `json:"round_number"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
}

type GameFinished struct {
	SessionID      int64   `json:"session_id"`
	QuizTitle      string  `json:"quiz_title"`
	TotalRounds    int     `json:"total_rounds"`
	WinnerID       *int64  `json:"winner_id"`
	WinnerUsername *string `json:"winner_username"`
	Message        string  `json:"message"`
}

type GamePaused struct {
	PausedBy     int64 `json:"paused_by"`
	CurrentRound int   `json:"current_round"`
}

type GameResumed struct {
	ResumedBy    int64 `json:"resumed_by"`
	CurrentRound int   `json:"current_round"`
}

// ServerError is the error event, its message is top level in the envelope.
type ServerError struct {
	Message string `json:"message"`
}

func (RoomState) EventType() EventType       { return EventRoomState }
func (PlayerJoined) EventType() EventType    { return EventPlayerJoined }
func (PlayerLeft) EventType() EventType      { return EventPlayerLeft }
func (ChatMessage) EventType() EventType     { return EventChatMessage }
func (GameStarted) EventType() EventType     { return EventGameStarted }
func (TimerUpdate) EventType() EventType     { return EventTimerUpdate }
func (TimerPaused) EventType() EventType     { return EventTimerPaused }
func (TimerResumed) EventType() EventType    { return EventTimerResumed }
func (AnswerSubmitted) EventType() EventType { return EventAnswerSubmitted }
func (AnswerChecked) EventType() EventType   { return EventAnswerChecked }
func (RoundCompleted) EventType() EventType  { return EventRoundCompleted }
func (RoundEnded) EventType() EventType      { return EventRoundEnded }
func (GameFinished) EventType() EventType    { return EventGameFinished }
func (GamePaused) EventType() EventType      { return EventGamePaused }
func (GameResumed) EventType() EventType     { return EventGameResumed }
func (ServerError) EventType() EventType     { return EventError }

func (e QuestionRevealed) EventType() EventType {
	if e.Tag == "" {
		return EventQuestionRevealed
	}
	return e.Tag
}

func (RoomState) sealed()        {}
func (PlayerJoined) sealed()     {}
func (PlayerLeft) sealed()       {}
func (ChatMessage) sealed()      {}
func (GameStarted) sealed()      {}
func (QuestionRevealed) sealed() {}
func (TimerUpdate) sealed()      {}
func (TimerPaused) sealed()      {}
func (TimerResumed) sealed()     {}
func (AnswerSubmitted) sealed()  {}
func (AnswerChecked) sealed()    {}
func (RoundCompleted) sealed()   {}
func (RoundEnded) sealed()       {}
func (GameFinished) sealed()     {}
func (GamePaused) sealed()       {}
func (GameResumed) sealed()      {}
func (ServerError) sealed()      {}

type envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

type decodeFunc func(payload []byte) (Event, error)

var decoders = map[EventType]decodeFunc{
	EventRoomState:        decodeAs[RoomState],
	EventPlayerJoined:     decodeAs[PlayerJoined],
	EventPlayerLeft:       decodeAs[PlayerLeft],
	EventChatMessage:      decodeAs[ChatMessage],
	EventGameStarted:      decodeAs[GameStarted],
	EventQuestionRevealed: decodeQuestion(EventQuestionRevealed),
	EventNewQuestion:      decodeQuestion(EventNewQuestion),
	EventTimerUpdate:      decodeAs[TimerUpdate],
	EventTimerPaused:      decodeAs[TimerPaused],
	EventTimerResumed:     decodeAs[TimerResumed],
	EventAnswerSubmitted:  decodeAs[AnswerSubmitted],
	EventAnswerChecked:    decodeAs[AnswerChecked],
	EventRoundCompleted:   decodeAs[RoundCompleted],
	EventRoundEnded:       decodeAs[RoundEnded],
	EventGameFinished:     decodeAs[GameFinished],
	EventGamePaused:       decodeAs[GamePaused],
	EventGameResumed:      decodeAs[GameResumed],
	EventError:            decodeAs[ServerError],
}

func decodeAs[T Event](payload []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeQuestion(tag EventType) decodeFunc {
	return func(payload []byte) (Event, error) {
		ev := QuestionRevealed{Tag: tag}
		if err := json.Unmarshal(payload, &ev.QuestionPayload); err != nil {
			return nil, err
		}
		return ev, nil
	}
}

// DecodeEvent parses one text frame. The payload is taken from "data" when present,
// otherwise from the top level object.
func DecodeEvent(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, errors.Join(ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	payload := []byte(env.Data)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = frame
	}
	ev, err := decode(payload)
	if err != nil {
		return nil, errors.Join(ErrMalformedEvent, fmt.Errorf("%s: %w", env.Type, err))
	}
	return ev, nil
}
