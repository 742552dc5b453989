package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adwski/quizroom/client/model"
	"github.com/adwski/quizroom/client/render"
	"github.com/davecgh/go-spew/spew"
)

var (
	errUsage         = errors.New("bad command usage")
	errNoQuestion    = errors.New("no question on screen")
	errUnknownOption = errors.New("no such option")
)

// roomControls is what the terminal drives on a mounted room.
type roomControls interface {
	View() (model.View, error)
	SubmitAnswer(optionID int64) error
	SendChat(text string) error
	RequestState() error
	StartGame() error
	PauseGame() error
	ResumeGame() error
	TogglePause() error
	SelectQuiz(quizID int64) error
}

const helpText = `Commands:
  /answer X   answer with option letter, number or option id
  /start      start the selected quiz (host)
  /pause      pause the game (host)
  /resume     resume the game (host)
  /toggle     pause or resume (host)
  /quiz ID    select the quiz to play
  /state      ask the server for a fresh room state
  /view       redraw the room
  /debug      dump the room view
  /quit       leave the room
Anything else is sent to the chat.
`

// dispatch runs one input line. It reports true when the user asked to leave.
func dispatch(rc roomControls, line string, out io.Writer) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return false, rc.SendChat(line)
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		_, err := io.WriteString(out, helpText)
		return false, err
	case "answer", "a":
		return false, answer(rc, arg)
	case "start":
		return false, rc.StartGame()
	case "pause":
		return false, rc.PauseGame()
	case "resume":
		return false, rc.ResumeGame()
	case "toggle":
		return false, rc.TogglePause()
	case "state":
		return false, rc.RequestState()
	case "quiz":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return false, fmt.Errorf("%w: /quiz ID", errUsage)
		}
		return false, rc.SelectQuiz(id)
	case "view":
		v, err := rc.View()
		if err != nil {
			return false, err
		}
		return false, render.View(out, v)
	case "debug":
		v, err := rc.View()
		if err != nil {
			return false, err
		}
		_, err = io.WriteString(out, spew.Sdump(v))
		return false, err
	}
	return false, fmt.Errorf("%w: unknown command /%s, try /help", errUsage, name)
}

// answer resolves the argument against the options on screen.
func answer(rc roomControls, arg string) error {
	if arg == "" {
		return fmt.Errorf("%w: /answer X", errUsage)
	}
	v, err := rc.View()
	if err != nil {
		return err
	}
	if v.Question == nil {
		return errNoQuestion
	}
	opts := v.Question.Options
	if i, ok := render.OptionIndex(arg); ok && i < len(opts) {
		return rc.SubmitAnswer(opts[i].ID)
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		for _, o := range opts {
			if o.ID == id {
				return rc.SubmitAnswer(id)
			}
		}
	}
	return fmt.Errorf("%w: %s", errUnknownOption, arg)
}
