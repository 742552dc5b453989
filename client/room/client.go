package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adwski/quizroom/client/auth"
	"github.com/adwski/quizroom/client/model"
	"github.com/rs/zerolog"
)

var (
	ErrNoRoom         = errors.New("no room selected")
	ErrNoCredential   = errors.New("no valid credential")
	ErrNotConnected   = errors.New("room channel is not connected")
	ErrUnmounted      = errors.New("room client is unmounted")
	ErrNoQuizSelected = errors.New("no quiz selected")
)

type Redirect string

// Entry points the room screen falls back to when it cannot mount.
const (
	RedirectRooms Redirect = "rooms"
	RedirectLogin Redirect = "login"
)

// RedirectError is a failed mount precondition. It is never retried.
type RedirectError struct {
	To  Redirect
	Err error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s: %v", e.To, e.Err)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

type (
	// Channel is one connection instance to the room channel.
	Channel interface {
		Events() <-chan model.Event
		Done() <-chan struct{}
		Err() error
		Send(model.Command) error
		Close() error
	}

	Dialer interface {
		Dial(ctx context.Context, roomID int64, token string) (Channel, error)
	}

	Publisher interface {
		Publish(ctx context.Context, upd model.Update)
	}

	Config struct {
		Logger         *zerolog.Logger
		Dialer         Dialer
		Publisher      Publisher
		RoomID         int64
		RoomName       string
		SelectedQuizID int64
		Credential     auth.Credential
		Reconnect      Reconnect
		Clock          func() time.Time
	}

	// Client is the mounted game room. A single goroutine owns its state: channel
	// events, user actions and view reads run on it one at a time.
	Client struct {
		logger    zerolog.Logger
		dialer    Dialer
		publisher Publisher
		token     string
		reconnect Reconnect
		now       func() time.Time

		machine *Machine

		requests chan request
		cancel   context.CancelFunc
		done     chan struct{}
		stopOnce sync.Once

		// owned by the run goroutine
		ctx      context.Context
		ch       Channel
		attempts int
	}

	request struct {
		fn    func() error
		reply chan error
	}

	dialResult struct {
		ch  Channel
		err error
	}
)

// Mount checks the preconditions and starts the room client. It dials exactly one
// channel instance. A missing room or credential returns a *RedirectError.
func Mount(ctx context.Context, cfg Config) (*Client, error) {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	if cfg.RoomID == 0 {
		return nil, &RedirectError{To: RedirectRooms, Err: ErrNoRoom}
	}
	if err := cfg.Credential.Valid(now()); err != nil {
		return nil, &RedirectError{To: RedirectLogin, Err: errors.Join(ErrNoCredential, err)}
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	c := &Client{
		logger: logger.With().
			Str("component", "room").
			Int64("roomID", cfg.RoomID).
			Int64("userID", cfg.Credential.UserID).
			Logger(),
		dialer:    cfg.Dialer,
		publisher: cfg.Publisher,
		token:     cfg.Credential.Token,
		reconnect: cfg.Reconnect,
		now:       now,
		machine:   NewMachine(cfg.RoomID, cfg.RoomName, cfg.Credential.UserID),
		requests:  make(chan request),
		done:      make(chan struct{}),
	}
	c.machine.SelectQuiz(cfg.SelectedQuizID)

	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run()
	return c, nil
}

// Close unmounts the client. The channel is closed before Close returns.
func (c *Client) Close() {
	c.stopOnce.Do(c.cancel)
	<-c.done
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) View() (model.View, error) {
	var v model.View
	err := c.do(func() error {
		v = c.machine.View()
		return nil
	})
	return v, err
}

// SubmitAnswer sends the chosen option once per question. Without a current question,
// or when already answered, it does nothing.
func (c *Client) SubmitAnswer(optionID int64) error {
	return c.do(func() error {
		cmd, ok := c.machine.PrepareAnswer(optionID, c.now())
		if !ok {
			return nil
		}
		if err := c.send(cmd); err != nil {
			c.machine.RollbackAnswer()
			c.notify(model.NotifyError, "Could not send the answer, check the connection")
			c.publishView()
			return err
		}
		c.logger.Debug().
			Int64("optionID", cmd.AnswerOptionID).
			Float64("timeTaken", cmd.TimeTaken).
			Msg("answer submitted")
		c.publishView()
		return nil
	})
}

func (c *Client) SendChat(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.do(func() error {
		return c.sendOrNotify(model.SendChat{Message: text}, "Could not send the message")
	})
}

func (c *Client) RequestState() error {
	return c.do(func() error {
		return c.sendOrNotify(model.GetState{}, "Could not refresh the room state")
	})
}

// StartGame asks the server to start the selected quiz. Authorization is the server's.
func (c *Client) StartGame() error {
	return c.do(func() error {
		quizID := c.machine.State().SelectedQuizID
		if quizID == 0 {
			c.notify(model.NotifyWarning, "Select a quiz in the room settings first")
			return ErrNoQuizSelected
		}
		return c.sendOrNotify(model.StartGame{QuizID: quizID}, "Could not start the game")
	})
}

func (c *Client) PauseGame() error {
	return c.do(func() error {
		return c.sendOrNotify(model.PauseGame{}, "Could not pause the game")
	})
}

func (c *Client) ResumeGame() error {
	return c.do(func() error {
		return c.sendOrNotify(model.ResumeGame{}, "Could not resume the game")
	})
}

// TogglePause pauses a running game and resumes any other.
func (c *Client) TogglePause() error {
	return c.do(func() error {
		if c.machine.State().Phase == model.PhasePlaying {
			return c.sendOrNotify(model.PauseGame{}, "Could not pause the game")
		}
		return c.sendOrNotify(model.ResumeGame{}, "Could not resume the game")
	})
}

func (c *Client) SelectQuiz(quizID int64) error {
	return c.do(func() error {
		c.machine.SelectQuiz(quizID)
		c.publishView()
		return nil
	})
}

func (c *Client) do(fn func() error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return ErrUnmounted
	}
	select {
	case err := <-req.reply:
		return err
	case <-c.done:
		return ErrUnmounted
	}
}

func (c *Client) run() {
	var (
		dialed  = make(chan dialResult, 1)
		dialing bool
		events  <-chan model.Event
		closed  <-chan struct{}
		retry   *time.Timer
		retryC  <-chan time.Time
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
		if dialing {
			if res := <-dialed; res.ch != nil {
				_ = res.ch.Close()
			}
		}
		c.closeChannel()
		c.logger.Debug().Msg("room client unmounted")
		close(c.done)
	}()

	c.connect(dialed)
	dialing = true

	for {
		select {
		case <-c.ctx.Done():
			return

		case res := <-dialed:
			dialing = false
			if res.err != nil {
				c.logger.Error().Err(res.err).Msg("failed to connect to room channel")
				c.disconnected()
				retryC = c.scheduleRetry(&retry)
				continue
			}
			c.ch = res.ch
			events, closed = c.ch.Events(), c.ch.Done()
			c.attempts = 0
			if c.machine.Opened(c.now()) {
				c.logger.Info().Msg("room channel connected")
				c.publishView()
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.apply(ev)

		case <-closed:
			// events already read off the socket are applied before the drop
			c.drain(events)
			c.logger.Warn().Err(c.ch.Err()).Msg("room channel closed")
			c.closeChannel()
			events, closed = nil, nil
			c.disconnected()
			retryC = c.scheduleRetry(&retry)

		case <-retryC:
			retryC = nil
			c.connect(dialed)
			dialing = true

		case req := <-c.requests:
			req.reply <- req.fn()
		}
	}
}

func (c *Client) connect(dialed chan<- dialResult) {
	c.machine.Connecting()
	c.publishView()
	roomID := c.machine.State().RoomID
	go func() {
		ch, err := c.dialer.Dial(c.ctx, roomID, c.token)
		dialed <- dialResult{ch: ch, err: err}
	}()
}

func (c *Client) scheduleRetry(timer **time.Timer) <-chan time.Time {
	if !c.reconnect.Enabled() || c.attempts >= c.reconnect.MaxAttempts {
		return nil
	}
	c.attempts++
	delay := c.reconnect.Delay(c.attempts)
	c.logger.Info().
		Int("attempt", c.attempts).
		Dur("delay", delay).
		Msg("reconnect scheduled")
	if *timer == nil {
		*timer = time.NewTimer(delay)
	} else {
		(*timer).Reset(delay)
	}
	return (*timer).C
}

func (c *Client) drain(events <-chan model.Event) {
	for events != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.apply(ev)
		default:
			return
		}
	}
}

func (c *Client) apply(ev model.Event) {
	c.logger.Trace().Str("type", string(ev.EventType())).Msg("event received")
	for _, n := range c.machine.Apply(ev, c.now()) {
		c.publish(model.Update{Notification: &n})
	}
	c.publishView()
}

func (c *Client) disconnected() {
	if c.machine.Closed(c.now()) {
		c.publishView()
	}
}

func (c *Client) closeChannel() {
	if c.ch == nil {
		return
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("room channel close")
	}
	c.ch = nil
}

func (c *Client) send(cmd model.Command) error {
	if c.ch == nil || c.machine.State().Conn != model.Connected {
		return ErrNotConnected
	}
	if err := c.ch.Send(cmd); err != nil {
		return errors.Join(ErrNotConnected, err)
	}
	return nil
}

func (c *Client) sendOrNotify(cmd model.Command, failure string) error {
	if err := c.send(cmd); err != nil {
		c.logger.Error().Err(err).Str("type", string(cmd.CommandType())).Msg("failed to send command")
		c.notify(model.NotifyError, failure)
		return err
	}
	return nil
}

func (c *Client) notify(kind model.NotificationKind, message string) {
	n := notification(kind, message, c.now())
	c.publish(model.Update{Notification: &n})
}

func (c *Client) publishView() {
	v := c.machine.View()
	c.publish(model.Update{View: &v})
}

func (c *Client) publish(upd model.Update) {
	if c.publisher == nil {
		return
	}
	upd.RoomID = c.machine.State().RoomID
	c.publisher.Publish(c.ctx, upd)
}
