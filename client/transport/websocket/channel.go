package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/adwski/quizroom/client/model"
	"github.com/adwski/quizroom/client/room"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultWebsocketReadBufferSize     = 10000
	defaultWebsocketWriteBufferSize    = 10000
	defaultWebSocketMaxMessageSize     = 64 << 10
	defaultWebSocketHandshakeTimeout   = 5 * time.Second
	defaultWebSocketCloseWriteDeadline = 2 * time.Second
	defaultWebSocketWriteDeadline      = 5 * time.Second

	// defaultPongWait - defaultPingInterval == is how long we give server to respond
	defaultPingInterval = 20 * time.Second
	defaultPongWait     = 30 * time.Second

	defaultQueueSize = 64
)

var (
	ErrBadURL       = errors.New("bad room channel url")
	ErrHandshake    = errors.New("room channel handshake failed")
	ErrNotConnected = errors.New("room channel is closed")
	ErrQueueFull    = errors.New("room channel send queue is full")
	ErrRemoteClosed = errors.New("room channel closed by server")
)

type (
	Config struct {
		Logger *zerolog.Logger

		// BaseURL is the websocket origin, e.g. ws://localhost:8000.
		BaseURL string

		HandshakeTimeout time.Duration
		PingInterval     time.Duration
		PongWait         time.Duration
		QueueSize        int
	}

	timing struct {
		pingInterval time.Duration
		pongWait     time.Duration
		queueSize    int
	}

	Dialer struct {
		logger zerolog.Logger
		base   *url.URL
		ws     *websocket.Dialer
		timing timing
	}

	// Channel is one websocket connection to a room. It is never reused:
	// after Done is closed a new Channel has to be dialed.
	Channel struct {
		id     string
		conn   *websocket.Conn
		wire   model.Wire
		logger zerolog.Logger

		ctx    context.Context
		cancel context.CancelFunc
		done   chan struct{}

		errOnce sync.Once
		errMx   sync.Mutex
		err     error
	}
)

func NewDialer(cfg Config) (*Dialer, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Join(ErrBadURL, err)
	}
	if base.Scheme != "ws" && base.Scheme != "wss" {
		return nil, fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrBadURL, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBadURL)
	}

	hsTimeout := cfg.HandshakeTimeout
	if hsTimeout <= 0 {
		hsTimeout = defaultWebSocketHandshakeTimeout
	}
	t := timing{
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PongWait,
		queueSize:    cfg.QueueSize,
	}
	if t.pingInterval <= 0 {
		t.pingInterval = defaultPingInterval
	}
	if t.pongWait <= 0 {
		t.pongWait = defaultPongWait
	}
	if t.pongWait <= t.pingInterval {
		t.pongWait = t.pingInterval * 3 / 2
	}
	if t.queueSize <= 0 {
		t.queueSize = defaultQueueSize
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Dialer{
		logger: logger.With().Str("component", "websocket-channel").Logger(),
		base:   base,
		timing: t,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: hsTimeout,
			ReadBufferSize:   defaultWebsocketReadBufferSize,
			WriteBufferSize:  defaultWebsocketWriteBufferSize,
		},
	}, nil
}

// RoomURL is the channel target for a room. The token travels as a query parameter.
func (d *Dialer) RoomURL(roomID int64, token string) string {
	u := d.base.JoinPath("ws", "room", strconv.FormatInt(roomID, 10))
	u.Path += "/"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// Dial connects to the room channel and starts its reader and writer.
func (d *Dialer) Dial(ctx context.Context, roomID int64, token string) (room.Channel, error) {
	id := uuid.NewString()
	logger := d.logger.With().
		Str("channel", id).
		Int64("roomID", roomID).
		Logger()

	conn, resp, err := d.ws.DialContext(ctx, d.RoomURL(roomID, token), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: status %d: %w", ErrHandshake, resp.StatusCode, err)
		}
		return nil, errors.Join(ErrHandshake, err)
	}
	logger.Debug().Msg("room channel established")

	chCtx, cancel := context.WithCancel(context.Background())
	ch := &Channel{
		id:     id,
		conn:   conn,
		wire:   model.NewWire(d.timing.queueSize),
		logger: logger,
		ctx:    chCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	recvDone, sendDone := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(recvDone)
		ch.receive(d.timing.pongWait)
		cancel()
	}()
	go func() {
		defer close(sendDone)
		ch.send(d.timing.pingInterval)
		cancel()
	}()
	go ch.supervise(recvDone, sendDone)
	return ch, nil
}

func (ch *Channel) ID() string {
	return ch.id
}

func (ch *Channel) Events() <-chan model.Event {
	return ch.wire.RX
}

func (ch *Channel) Done() <-chan struct{} {
	return ch.done
}

// Err returns the first failure of the connection, nil if it was closed locally.
func (ch *Channel) Err() error {
	ch.errMx.Lock()
	defer ch.errMx.Unlock()
	return ch.err
}

// Send enqueues a command without blocking.
func (ch *Channel) Send(cmd model.Command) error {
	select {
	case <-ch.ctx.Done():
		return ErrNotConnected
	default:
	}
	select {
	case ch.wire.TX <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close sends a close frame and releases the connection. It is safe to call repeatedly
// and from any goroutine; it returns once the reader and writer have stopped.
func (ch *Channel) Close() error {
	ch.cancel()
	<-ch.done
	return nil
}

func (ch *Channel) fail(err error) {
	if ch.ctx.Err() != nil {
		// closed locally, read errors are the consequence
		return
	}
	ch.errOnce.Do(func() {
		ch.errMx.Lock()
		ch.err = err
		ch.errMx.Unlock()
	})
}

func (ch *Channel) supervise(recvDone, sendDone <-chan struct{}) {
	<-ch.ctx.Done()
	<-sendDone
	webSocketCloser(ch.conn, &ch.logger)
	<-recvDone
	ch.logger.Debug().Err(ch.Err()).Msg("room channel ended")
	close(ch.done)
}

func (ch *Channel) send(pingInterval time.Duration) {
	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
SendLoop:
	for {
		select {
		case <-ch.ctx.Done():
			break SendLoop
		case <-pingTicker.C:
			wsErr := ch.conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
			if wsErr != nil {
				ch.logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
				ch.fail(wsErr)
				break SendLoop
			}
			if wsErr = ch.conn.WriteMessage(websocket.PingMessage, []byte{}); wsErr != nil {
				ch.logger.Error().Err(wsErr).Msg("failed to send ping")
				ch.fail(wsErr)
				break SendLoop
			}
			ch.logger.Trace().Msg("ping sent")

		case cmd := <-ch.wire.TX:
			b, wsErr := model.EncodeCommand(cmd)
			if wsErr != nil {
				// one bad command does not take the channel down
				ch.logger.Error().Err(wsErr).Msg("failed to marshall outgoing command")
				continue
			}
			if wsErr = ch.writeText(b); wsErr != nil {
				ch.fail(wsErr)
				break SendLoop
			}
			ch.logger.Trace().Str("type", string(cmd.CommandType())).Msg("command sent")
		}
	}
}

func (ch *Channel) writeText(b []byte) error {
	wsErr := ch.conn.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteDeadline))
	if wsErr != nil {
		ch.logger.Error().Err(wsErr).Msg("failed to set websocket write deadline")
		return wsErr
	}
	wsW, wsErr := ch.conn.NextWriter(websocket.TextMessage)
	if wsErr != nil {
		ch.logger.Error().Err(wsErr).Msg("failed to get websocket text writer")
		return wsErr
	}
	if _, wsErr = wsW.Write(b); wsErr != nil {
		ch.logger.Error().Err(wsErr).Msg("failed to write outgoing command")
		return wsErr
	}
	if wsErr = wsW.Close(); wsErr != nil {
		ch.logger.Error().Err(wsErr).Msg("failed to close websocket writer")
		return wsErr
	}
	return nil
}

func (ch *Channel) receive(pongWait time.Duration) {
	ch.conn.SetReadLimit(defaultWebSocketMaxMessageSize)
	readDeadLineFunc := func(deadline time.Duration) error {
		return ch.conn.SetReadDeadline(time.Now().Add(deadline))
	}
	ch.conn.SetPongHandler(func(string) error {
		ch.logger.Trace().Msg("got pong")
		return readDeadLineFunc(pongWait)
	})
	if err := readDeadLineFunc(pongWait); err != nil {
		ch.logger.Error().Err(err).Msg("failed to set websocket read deadline")
		ch.fail(err)
		return
	}

RecvLoop:
	for {
		_, msg, wsErr := ch.conn.ReadMessage()
		if wsErr != nil {
			switch {
			case ch.ctx.Err() != nil:
				ch.logger.Trace().Err(wsErr).Msg("reader stopped")
			case websocket.IsCloseError(wsErr, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				ch.logger.Warn().Err(wsErr).Msg("connection closed")
				ch.fail(errors.Join(ErrRemoteClosed, wsErr))
			default:
				ch.logger.Error().Err(wsErr).Msg("unexpected error during receive")
				ch.fail(wsErr)
			}
			break RecvLoop
		}

		ev, err := model.DecodeEvent(msg)
		switch {
		case errors.Is(err, model.ErrUnknownEvent):
			ch.logger.Debug().Err(err).Msg("incoming event ignored")
			continue
		case err != nil:
			ch.logger.Error().Err(err).Msg("failed to unmarshall incoming event")
			continue
		}
		select {
		case ch.wire.RX <- ev:
		case <-ch.ctx.Done():
			break RecvLoop
		}
	}
}

func webSocketCloser(conn *websocket.Conn, logger *zerolog.Logger) {
	wsErr := conn.SetWriteDeadline(time.Now().Add(defaultWebSocketCloseWriteDeadline))
	if wsErr != nil {
		logger.Debug().Err(wsErr).Msg("failed to set websocket write deadline during closing")
	} else {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if wsErr = conn.WriteMessage(websocket.CloseMessage, closeMsg); wsErr != nil {
			logger.Debug().Err(wsErr).Msg("failed to send websocket close frame")
		}
	}
	if wsErr = conn.Close(); wsErr != nil {
		logger.Error().Err(wsErr).Msg("failed to close websocket connection")
	}
}
