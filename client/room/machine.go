package room

import (
	"fmt"
	"time"

	"github.com/adwski/quizroom/client/model"
)

// State is the view state of one mounted room. It is owned by a single goroutine.
type State struct {
	Conn           model.ConnectionState
	RoomID         int64
	RoomName       string
	HostID         int64
	QuizTitle      string
	SelectedQuizID int64
	Players        []model.Player
	Chat           []model.ChatEntry
	Question       *model.Question
	Timer          model.Timer
	Phase          model.Phase
	Answered       bool
}

// Machine maps inbound events and local intents onto State.
// It performs no I/O, callers supply the clock reading for every step.
type Machine struct {
	userID     int64
	state      State
	questionAt time.Time
}

func NewMachine(roomID int64, roomName string, userID int64) *Machine {
	if roomName == "" {
		roomName = fmt.Sprintf("Room %d", roomID)
	}
	return &Machine{
		userID: userID,
		state: State{
			Conn:     model.Disconnected,
			RoomID:   roomID,
			RoomName: roomName,
			Phase:    model.PhaseWaiting,
			Timer:    model.Timer{Total: defaultTimerTotal},
		},
	}
}

const defaultTimerTotal = 30

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) SelectQuiz(quizID int64) {
	m.state.SelectedQuizID = quizID
}

// Connecting starts a channel instance. It only leaves the disconnected state.
func (m *Machine) Connecting() bool {
	if m.state.Conn != model.Disconnected {
		return false
	}
	m.state.Conn = model.Connecting
	return true
}

// Opened acknowledges the channel handshake.
func (m *Machine) Opened(now time.Time) bool {
	if m.state.Conn != model.Connecting {
		return false
	}
	m.state.Conn = model.Connected
	m.systemEntry("Connected to the game", now)
	return true
}

// Closed records the end of the channel instance. Repeated signals for the same
// instance are absorbed: only the first one changes state and writes a chat entry.
func (m *Machine) Closed(now time.Time) bool {
	switch m.state.Conn {
	case model.Disconnected:
		return false
	case model.Connecting:
		m.systemEntry("Could not connect to the game", now)
	default:
		m.systemEntry("Disconnected from the game", now)
	}
	m.state.Conn = model.Disconnected
	return true
}

// Apply runs one inbound event to completion and returns the notifications it raised.
func (m *Machine) Apply(ev model.Event, now time.Time) []model.Notification {
	switch e := ev.(type) {
	case model.RoomState:
		m.applyRoomState(e, now)
	case model.PlayerJoined:
		if m.indexOf(e.UserID) < 0 {
			m.state.Players = append(m.state.Players, model.Player{
				UserID:   e.UserID,
				Username: e.Username,
				IsHost:   e.IsHost,
			})
		}
		m.systemEntry(fmt.Sprintf("%s joined the room", e.Username), now)
	case model.PlayerLeft:
		name := e.Username
		if i := m.indexOf(e.UserID); i >= 0 {
			if name == "" {
				name = m.state.Players[i].Username
			}
			m.state.Players = append(m.state.Players[:i:i], m.state.Players[i+1:]...)
		}
		if name == "" {
			name = fmt.Sprintf("Player %d", e.UserID)
		}
		m.systemEntry(fmt.Sprintf("%s left the room", name), now)
	case model.ChatMessage:
		entry := model.ChatEntry(e)
		if entry.Timestamp.IsZero() {
			entry.Timestamp = model.Timestamp{Time: now}
		}
		m.state.Chat = append(m.state.Chat, entry)
	case model.GameStarted:
		m.state.Phase = model.PhasePlaying
		if e.QuizTitle != "" {
			m.state.QuizTitle = e.QuizTitle
			m.systemEntry(fmt.Sprintf("Game started: %s", e.QuizTitle), now)
		} else {
			m.systemEntry("Game started", now)
		}
	case model.QuestionRevealed:
		m.reveal(e.Snapshot(), now)
	case model.TimerUpdate:
		m.state.Timer = model.Timer{Remaining: e.Remaining, Total: e.Total}
	case model.TimerPaused:
		m.state.Timer.Remaining = e.Remaining
	case model.TimerResumed:
		m.state.Timer.Remaining = e.Remaining
	case model.AnswerSubmitted:
	case model.AnswerChecked:
		if e.UserID != m.userID {
			return nil
		}
		if e.IsCorrect {
			return []model.Notification{notification(model.NotifySuccess,
				fmt.Sprintf("Correct! +%d points (score %d)", e.PointsEarned, e.CurrentScore), now)}
		}
		return []model.Notification{notification(model.NotifyWarning,
			fmt.Sprintf("Wrong answer (score %d)", e.CurrentScore), now)}
	case model.RoundCompleted:
		m.state.Question = nil
		m.state.Answered = false
		m.questionAt = time.Time{}
		m.systemEntry(fmt.Sprintf("Round %d completed", e.RoundNumber), now)
	case model.RoundEnded:
		msg := e.Message
		if msg == "" {
			msg = fmt.Sprintf("Round %d ended", e.RoundNumber)
		}
		m.systemEntry(msg, now)
	case model.GameFinished:
		m.state.Phase = model.PhaseFinished
		m.state.Question = nil
		m.state.Timer = model.Timer{}
		msg := "Game finished"
		if e.WinnerUsername != nil && *e.WinnerUsername != "" {
			msg = fmt.Sprintf("Game finished, winner: %s", *e.WinnerUsername)
		}
		m.systemEntry(msg, now)
		return []model.Notification{notification(model.NotifyInfo, msg+"!", now)}
	case model.GamePaused:
		m.state.Phase = model.PhasePaused
	case model.GameResumed:
		m.state.Phase = model.PhasePlaying
	case model.ServerError:
		return []model.Notification{notification(model.NotifyError, e.Message, now)}
	}
	return nil
}

func (m *Machine) applyRoomState(e model.RoomState, now time.Time) {
	players := make([]model.Player, 0, len(e.Players))
	seen := make(map[int64]struct{}, len(e.Players))
	for _, p := range e.Players {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		players = append(players, p)
	}
	m.state.Players = players
	if e.RecentMessages != nil {
		m.state.Chat = append([]model.ChatEntry(nil), e.RecentMessages...)
	}
	if e.HostID != 0 {
		m.state.HostID = e.HostID
	}
	if e.RoomName != "" {
		m.state.RoomName = e.RoomName
	}
	if e.Session == nil {
		return
	}
	if e.Session.QuizTitle != "" {
		m.state.QuizTitle = e.Session.QuizTitle
	}
	switch model.Phase(e.Session.Status) {
	case model.PhasePlaying:
		m.state.Phase = model.PhasePlaying
		if e.Session.CurrentQuestion != nil {
			q := e.Session.CurrentQuestion.Snapshot()
			if !m.isCurrent(q) {
				m.reveal(q, now)
			}
		}
	case model.PhasePaused:
		m.state.Phase = model.PhasePaused
	}
}

// reveal swaps the question and the answered flag in one step.
func (m *Machine) reveal(q *model.Question, now time.Time) {
	m.state.Question = q
	m.state.Phase = model.PhasePlaying
	m.state.Answered = false
	m.questionAt = now
	if q.TimeLimit > 0 {
		m.state.Timer = model.Timer{Remaining: q.TimeLimit, Total: q.TimeLimit}
	}
}

func (m *Machine) isCurrent(q *model.Question) bool {
	cur := m.state.Question
	return cur != nil && cur.QuestionID == q.QuestionID && cur.RoundNumber == q.RoundNumber
}

// PrepareAnswer sets the answered flag and builds the command. It reports false,
// changing nothing, when there is no question, it was answered or no reveal time is known.
func (m *Machine) PrepareAnswer(optionID int64, now time.Time) (model.SubmitAnswer, bool) {
	if m.state.Question == nil || m.state.Answered || m.questionAt.IsZero() {
		return model.SubmitAnswer{}, false
	}
	m.state.Answered = true
	return model.SubmitAnswer{
		AnswerOptionID: optionID,
		TimeTaken:      now.Sub(m.questionAt).Seconds(),
	}, true
}

func (m *Machine) RollbackAnswer() {
	m.state.Answered = false
}

func (m *Machine) IsHost() bool {
	if m.state.HostID != 0 {
		return m.state.HostID == m.userID
	}
	if i := m.indexOf(m.userID); i >= 0 {
		return m.state.Players[i].IsHost
	}
	return false
}

func (m *Machine) View() model.View {
	s := m.state
	return model.View{
		RoomID:         s.RoomID,
		RoomName:       s.RoomName,
		UserID:         m.userID,
		HostID:         s.HostID,
		IsHost:         m.IsHost(),
		Conn:           s.Conn,
		Phase:          s.Phase,
		Panel:          model.SelectPanel(s.Phase, s.Question),
		QuizTitle:      s.QuizTitle,
		SelectedQuizID: s.SelectedQuizID,
		Players:        append([]model.Player(nil), s.Players...),
		Chat:           append([]model.ChatEntry(nil), s.Chat...),
		Question:       s.Question.Clone(),
		Timer:          s.Timer,
		Answered:       s.Answered,
	}
}

func (m *Machine) indexOf(userID int64) int {
	for i, p := range m.state.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (m *Machine) systemEntry(message string, now time.Time) {
	m.state.Chat = append(m.state.Chat, model.SystemEntry(message, now))
}

func notification(kind model.NotificationKind, message string, now time.Time) model.Notification {
	return model.Notification{Kind: kind, Message: message, At: now}
}
