package model

import (
	"encoding/json"
	"fmt"
)

type CommandType string

// Outbound command tags understood by the room channel.
const (
	CommandSubmitAnswer CommandType = "submit_answer"
	CommandChatMessage  CommandType = "chat_message"
	CommandGetState     CommandType = "get_state"
	CommandStartGame    CommandType = "start_game"
	CommandPauseGame    CommandType = "pause_game"
	CommandResumeGame   CommandType = "resume_game"
)

type Command interface {
	CommandType() CommandType
}

type SubmitAnswer struct {
	AnswerOptionID int64   `json:"answer_option_id"`
	TimeTaken      float64 `json:"time_taken"`
}

type SendChat struct {
	Message string `json:"message"`
}

type GetState struct{}

type StartGame struct {
	QuizID int64 `json:"quiz_id,omitempty"`
}

type PauseGame struct{}

type ResumeGame struct{}

func (SubmitAnswer) CommandType() CommandType { return CommandSubmitAnswer }
func (SendChat) CommandType() CommandType     { return CommandChatMessage }
func (GetState) CommandType() CommandType     { return CommandGetState }
func (StartGame) CommandType() CommandType    { return CommandStartGame }
func (PauseGame) CommandType() CommandType    { return CommandPauseGame }
func (ResumeGame) CommandType() CommandType   { return CommandResumeGame }

// EncodeCommand produces the flat {"type": ..., ...payload} frame.
func EncodeCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.CommandType(), err)
	}
	fields := make(map[string]json.RawMessage)
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.CommandType(), err)
	}
	tag, _ := json.Marshal(cmd.CommandType())
	fields["type"] = tag
	return json.Marshal(fields)
}
