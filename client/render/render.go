// Package render draws the room view as plain text panels.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adwski/quizroom/client/model"
)

const defaultChatLines = 8

type Options struct {
	// ChatLines is how many of the latest chat entries are shown, 0 means the default.
	ChatLines int
}

// View writes the whole room screen.
func View(w io.Writer, v model.View) error {
	return ViewWith(w, v, Options{})
}

func ViewWith(w io.Writer, v model.View, opts Options) error {
	if opts.ChatLines <= 0 {
		opts.ChatLines = defaultChatLines
	}
	p := &printer{w: w}

	role := "player"
	if v.IsHost {
		role = "host"
	}
	p.printf("== %s [%s] (%s) ==\n", v.RoomName, v.Conn, role)
	if v.QuizTitle != "" {
		p.printf("Quiz: %s\n", v.QuizTitle)
	}

	switch v.Panel {
	case model.PanelWaiting:
		waiting(p, v)
	case model.PanelQuestion:
		question(p, v)
	case model.PanelBetweenRounds:
		p.printf("Waiting for the next question...\n")
	case model.PanelFinished:
		p.printf("Game over.\n")
	}
	if v.Phase == model.PhasePaused {
		p.printf("-- paused --\n")
	}

	roster(p, v)
	chat(p, v.Chat, opts.ChatLines)
	return p.err
}

// Notification writes one transient message line.
func Notification(w io.Writer, n model.Notification) error {
	_, err := fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(string(n.Kind)), n.Message)
	return err
}

func waiting(p *printer, v model.View) {
	p.printf("Waiting for the game to start.\n")
	if !v.IsHost {
		return
	}
	if v.SelectedQuizID == 0 {
		p.printf("Select a quiz with /quiz ID, then /start.\n")
		return
	}
	p.printf("Quiz %d selected, type /start to begin.\n", v.SelectedQuizID)
}

func question(p *printer, v model.View) {
	q := v.Question
	p.printf("Round %d: %s\n", q.RoundNumber, q.Text)
	for i, o := range q.Options {
		p.printf("  %s) %s\n", optionLabel(i), o.Text)
	}
	p.printf("Time: %d/%d\n", v.Timer.Remaining, v.Timer.Total)
	if v.Answered {
		p.printf("Answer sent, waiting for the others.\n")
	}
}

// optionLabel maps 0, 1, 2... to A, B, C...
func optionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}

// OptionIndex is the inverse of the option labels, it accepts letters and 1-based numbers.
func OptionIndex(label string) (int, bool) {
	label = strings.TrimSpace(label)
	if len(label) == 1 {
		c := label[0] | 0x20
		if c >= 'a' && c <= 'z' {
			return int(c - 'a'), true
		}
	}
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func roster(p *printer, v model.View) {
	p.printf("Players (%d):\n", len(v.Players))
	for _, pl := range v.Players {
		var marks []string
		if pl.IsHost || (v.HostID != 0 && pl.UserID == v.HostID) {
			marks = append(marks, "host")
		}
		if pl.UserID == v.UserID {
			marks = append(marks, "you")
		}
		if len(marks) == 0 {
			p.printf("  %s\n", pl.Username)
			continue
		}
		p.printf("  %s (%s)\n", pl.Username, strings.Join(marks, ", "))
	}
}

func chat(p *printer, entries []model.ChatEntry, lines int) {
	if len(entries) == 0 {
		return
	}
	if len(entries) > lines {
		entries = entries[len(entries)-lines:]
	}
	p.printf("Chat:\n")
	for _, e := range entries {
		stamp := "--:--"
		if !e.Timestamp.IsZero() {
			stamp = e.Timestamp.Local().Format("15:04")
		}
		if e.IsSystem() {
			p.printf("  %s * %s\n", stamp, e.Message)
			continue
		}
		p.printf("  %s <%s> %s\n", stamp, e.Username, e.Message)
	}
}

// printer keeps the first write error and skips the rest.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
