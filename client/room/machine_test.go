package room

import (
	"testing"
	"time"

	"github.com/adwski/quizroom/client/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func question(id int64, round, limit int) model.QuestionRevealed {
	return model.QuestionRevealed{
		Tag: model.EventQuestionRevealed,
		QuestionPayload: model.QuestionPayload{
			RoundNumber:  round,
			QuestionID:   id,
			QuestionText: "What is the capital of France?",
			Options:      []model.Option{{ID: 7, Text: "Paris"}, {ID: 8, Text: "Lyon"}},
			TimeLimit:    limit,
		},
	}
}

func newConnectedMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(1, "", 10)
	require.True(t, m.Connecting())
	require.True(t, m.Opened(t0))
	return m
}

func usernames(players []model.Player) []string {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Username)
	}
	return names
}

func TestNewMachine(t *testing.T) {
	m := NewMachine(42, "", 10)
	s := m.State()
	assert.Equal(t, "Room 42", s.RoomName)
	assert.Equal(t, model.Disconnected, s.Conn)
	assert.Equal(t, model.PhaseWaiting, s.Phase)
	assert.Equal(t, model.Timer{Total: 30}, s.Timer)
	assert.Equal(t, model.PanelWaiting, m.View().Panel)
}

func TestRosterDeduplicatesJoins(t *testing.T) {
	m := newConnectedMachine(t)

	m.Apply(model.RoomState{Players: []model.Player{{UserID: 1, Username: "A"}}}, t0)
	m.Apply(model.PlayerJoined{UserID: 2, Username: "B"}, t0)
	m.Apply(model.PlayerJoined{UserID: 2, Username: "B"}, t0)

	assert.Equal(t, []string{"A", "B"}, usernames(m.State().Players))
}

func TestRoomStateDeduplicatesSnapshot(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.RoomState{Players: []model.Player{
		{UserID: 1, Username: "A"},
		{UserID: 1, Username: "A"},
		{UserID: 2, Username: "B"},
	}}, t0)
	assert.Equal(t, []string{"A", "B"}, usernames(m.State().Players))
}

func TestPlayerLeft(t *testing.T) {
	tests := []struct {
		name    string
		roster  []model.Player
		leaving int64
		want    []string
		chat    string
	}{
		{
			name:    "present",
			roster:  []model.Player{{UserID: 1, Username: "A"}, {UserID: 2, Username: "B"}},
			leaving: 1,
			want:    []string{"B"},
			chat:    "A left the room",
		},
		{
			name:    "absent",
			roster:  []model.Player{{UserID: 2, Username: "B"}},
			leaving: 3,
			want:    []string{"B"},
			chat:    "Player 3 left the room",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newConnectedMachine(t)
			m.Apply(model.RoomState{Players: tt.roster}, t0)
			m.Apply(model.PlayerLeft{UserID: tt.leaving}, t0)

			s := m.State()
			assert.Equal(t, tt.want, usernames(s.Players))
			last := s.Chat[len(s.Chat)-1]
			assert.True(t, last.IsSystem())
			assert.Equal(t, tt.chat, last.Message)
		})
	}
}

func TestRoomStateReplacesChat(t *testing.T) {
	m := newConnectedMachine(t)
	require.Len(t, m.State().Chat, 1)

	m.Apply(model.RoomState{}, t0)
	assert.Len(t, m.State().Chat, 1, "missing recent messages keep the log")

	m.Apply(model.RoomState{RecentMessages: []model.ChatEntry{
		{UserID: ptr[int64](2), Username: "B", Message: "hi"},
	}}, t0)
	chat := m.State().Chat
	require.Len(t, chat, 1)
	assert.Equal(t, "hi", chat[0].Message)
}

func TestRoomStateAdoptsPlayingSession(t *testing.T) {
	m := newConnectedMachine(t)
	q := question(5, 2, 20).QuestionPayload

	m.Apply(model.RoomState{
		HostID:   10,
		RoomName: "Trivia night",
		Session: &model.SessionState{
			Status:          "playing",
			QuizTitle:       "Capitals",
			CurrentQuestion: &q,
		},
	}, t0)

	v := m.View()
	assert.Equal(t, model.PhasePlaying, v.Phase)
	assert.Equal(t, model.PanelQuestion, v.Panel)
	assert.Equal(t, "Trivia night", v.RoomName)
	assert.Equal(t, "Capitals", v.QuizTitle)
	assert.True(t, v.IsHost)
	require.NotNil(t, v.Question)
	assert.Equal(t, int64(5), v.Question.QuestionID)
	assert.Equal(t, model.Timer{Remaining: 20, Total: 20}, v.Timer)
}

func TestRoomStateKeepsAnsweredForSameQuestion(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(question(5, 1, 30), t0)
	_, ok := m.PrepareAnswer(7, t0.Add(time.Second))
	require.True(t, ok)

	q := question(5, 1, 30).QuestionPayload
	m.Apply(model.RoomState{Session: &model.SessionState{Status: "playing", CurrentQuestion: &q}}, t0)
	assert.True(t, m.State().Answered)
}

func TestQuestionRevealResetsAnswered(t *testing.T) {
	for _, tag := range []model.EventType{model.EventQuestionRevealed, model.EventNewQuestion} {
		t.Run(string(tag), func(t *testing.T) {
			m := newConnectedMachine(t)
			m.Apply(question(1, 1, 30), t0)
			_, ok := m.PrepareAnswer(7, t0)
			require.True(t, ok)

			ev := question(2, 2, 15)
			ev.Tag = tag
			m.Apply(ev, t0)

			s := m.State()
			assert.False(t, s.Answered)
			require.NotNil(t, s.Question)
			assert.Equal(t, int64(2), s.Question.QuestionID)
			assert.Equal(t, model.PhasePlaying, s.Phase)
			assert.Equal(t, model.Timer{Remaining: 15, Total: 15}, s.Timer)
		})
	}
}

func TestTimerIsVerbatim(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(question(1, 1, 30), t0)
	m.Apply(model.TimerUpdate{Remaining: 25, Total: 30}, t0.Add(5*time.Second))

	// time passing without ticks changes nothing
	_ = m.View()
	assert.Equal(t, model.Timer{Remaining: 25, Total: 30}, m.View().Timer)
}

func TestTimerKeptWithoutTimeLimit(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.TimerUpdate{Remaining: 12, Total: 30}, t0)
	m.Apply(question(1, 1, 0), t0)
	assert.Equal(t, model.Timer{Remaining: 12, Total: 30}, m.State().Timer)

	m.Apply(model.QuestionRevealed{
		Tag:             model.EventNewQuestion,
		QuestionPayload: model.QuestionPayload{QuestionID: 2, TimerDuration: 45},
	}, t0)
	assert.Equal(t, model.Timer{Remaining: 45, Total: 45}, m.State().Timer)
}

func TestPrepareAnswer(t *testing.T) {
	m := newConnectedMachine(t)

	_, ok := m.PrepareAnswer(7, t0)
	assert.False(t, ok, "no question")
	assert.False(t, m.State().Answered)

	m.Apply(question(1, 1, 30), t0)
	cmd, ok := m.PrepareAnswer(7, t0.Add(2500*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, model.SubmitAnswer{AnswerOptionID: 7, TimeTaken: 2.5}, cmd)
	assert.True(t, m.State().Answered)

	before := m.State()
	_, ok = m.PrepareAnswer(8, t0.Add(3*time.Second))
	assert.False(t, ok, "already answered")
	assert.Equal(t, before, m.State())

	m.RollbackAnswer()
	assert.False(t, m.State().Answered)
}

func TestAnsweredSurvivesDisconnect(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(question(1, 1, 30), t0)
	_, ok := m.PrepareAnswer(7, t0)
	require.True(t, ok)

	require.True(t, m.Closed(t0.Add(time.Second)))
	assert.True(t, m.State().Answered)

	m.Apply(model.RoundEnded{RoundNumber: 1}, t0)
	m.Apply(model.TimerUpdate{Remaining: 0, Total: 30}, t0)
	assert.True(t, m.State().Answered)

	m.Apply(question(2, 2, 30), t0)
	assert.False(t, m.State().Answered)
}

func TestAnswerChecked(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(question(1, 1, 30), t0)
	before := m.State()

	got := m.Apply(model.AnswerChecked{UserID: 11, IsCorrect: true, PointsEarned: 100}, t0)
	assert.Empty(t, got, "other players are not notified")

	got = m.Apply(model.AnswerChecked{UserID: 10, IsCorrect: true, PointsEarned: 150, CurrentScore: 450}, t0)
	want := []model.Notification{{Kind: model.NotifySuccess, Message: "Correct! +150 points (score 450)", At: t0}}
	assert.Empty(t, cmp.Diff(want, got))

	got = m.Apply(model.AnswerChecked{UserID: 10, CurrentScore: 450}, t0)
	require.Len(t, got, 1)
	assert.Equal(t, model.NotifyWarning, got[0].Kind)

	assert.Equal(t, before, m.State())
}

func TestRoundCompleted(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(question(1, 3, 30), t0)
	_, _ = m.PrepareAnswer(7, t0)

	m.Apply(model.RoundCompleted{RoundNumber: 3}, t0)
	v := m.View()
	assert.Nil(t, v.Question)
	assert.False(t, v.Answered)
	assert.Equal(t, model.PanelBetweenRounds, v.Panel)
	assert.Equal(t, "Round 3 completed", v.Chat[len(v.Chat)-1].Message)

	_, ok := m.PrepareAnswer(7, t0)
	assert.False(t, ok)
}

func TestGameFinishedThenReveal(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.GameStarted{QuizTitle: "Capitals"}, t0)
	m.Apply(question(1, 1, 30), t0)

	got := m.Apply(model.GameFinished{WinnerUsername: ptr("alice")}, t0)
	require.Len(t, got, 1)
	assert.Equal(t, "Game finished, winner: alice!", got[0].Message)

	v := m.View()
	assert.Nil(t, v.Question)
	assert.Equal(t, model.PhaseFinished, v.Phase)
	assert.Equal(t, model.Timer{}, v.Timer)
	assert.Equal(t, model.PanelFinished, v.Panel)

	m.Apply(question(9, 1, 30), t0)
	s := m.State()
	require.NotNil(t, s.Question)
	assert.Equal(t, int64(9), s.Question.QuestionID)
	assert.Equal(t, model.PhasePlaying, s.Phase)
}

func TestPauseResume(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.GameStarted{}, t0)
	m.Apply(model.GamePaused{PausedBy: 10}, t0)
	assert.Equal(t, model.PhasePaused, m.State().Phase)
	m.Apply(model.TimerPaused{Remaining: 14}, t0)
	assert.Equal(t, 14, m.State().Timer.Remaining)
	m.Apply(model.GameResumed{}, t0)
	assert.Equal(t, model.PhasePlaying, m.State().Phase)
}

func TestServerErrorOnlyNotifies(t *testing.T) {
	m := newConnectedMachine(t)
	before := m.State()
	got := m.Apply(model.ServerError{Message: "Only the host can start the game"}, t0)
	want := []model.Notification{{Kind: model.NotifyError, Message: "Only the host can start the game", At: t0}}
	assert.Empty(t, cmp.Diff(want, got))
	assert.Equal(t, before, m.State())
}

func TestChatMessage(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.ChatMessage{UserID: ptr[int64](2), Username: "B", Message: "hello"}, t0)
	last := m.State().Chat[len(m.State().Chat)-1]
	assert.False(t, last.IsSystem())
	assert.Equal(t, "hello", last.Message)
	assert.Equal(t, t0, last.Timestamp.Time)
}

func TestConnectionLifecycle(t *testing.T) {
	m := NewMachine(1, "", 10)
	assert.False(t, m.Opened(t0), "open before connecting")
	assert.False(t, m.Closed(t0), "close while disconnected")
	assert.Empty(t, m.State().Chat)

	require.True(t, m.Connecting())
	assert.False(t, m.Connecting())
	require.True(t, m.Opened(t0))
	assert.Equal(t, model.Connected, m.State().Conn)

	assert.True(t, m.Closed(t0))
	assert.False(t, m.Closed(t0))
	assert.False(t, m.Closed(t0))

	s := m.State()
	assert.Equal(t, model.Disconnected, s.Conn)
	require.Len(t, s.Chat, 2)
	assert.Equal(t, "Connected to the game", s.Chat[0].Message)
	assert.Equal(t, "Disconnected from the game", s.Chat[1].Message)
}

func TestFailedConnect(t *testing.T) {
	m := NewMachine(1, "", 10)
	require.True(t, m.Connecting())
	require.True(t, m.Closed(t0))
	s := m.State()
	require.Len(t, s.Chat, 1)
	assert.Equal(t, "Could not connect to the game", s.Chat[0].Message)
}

func TestIsHost(t *testing.T) {
	m := newConnectedMachine(t)
	assert.False(t, m.IsHost())

	m.Apply(model.RoomState{Players: []model.Player{{UserID: 10, Username: "me", IsHost: true}}}, t0)
	assert.True(t, m.IsHost(), "roster flag without host id")

	m.Apply(model.RoomState{HostID: 3, Players: []model.Player{{UserID: 10, Username: "me", IsHost: true}}}, t0)
	assert.False(t, m.IsHost(), "host id wins")
}

func TestViewIsACopy(t *testing.T) {
	m := newConnectedMachine(t)
	m.Apply(model.RoomState{Players: []model.Player{{UserID: 1, Username: "A"}}}, t0)
	m.Apply(question(1, 1, 30), t0)

	v := m.View()
	v.Players[0].Username = "mutated"
	v.Question.Options[0].Text = "mutated"
	v.Chat[0].Message = "mutated"

	s := m.State()
	assert.Equal(t, "A", s.Players[0].Username)
	assert.Equal(t, "Paris", s.Question.Options[0].Text)
	assert.Equal(t, "Connected to the game", s.Chat[0].Message)
}
