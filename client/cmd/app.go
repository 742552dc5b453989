package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/quizroom/client/api"
	"github.com/adwski/quizroom/client/config"
	"github.com/adwski/quizroom/client/model"
	"github.com/adwski/quizroom/client/notify"
	"github.com/adwski/quizroom/client/render"
	"github.com/adwski/quizroom/client/room"
	"github.com/adwski/quizroom/client/service"
	store "github.com/adwski/quizroom/client/storage/memory"
	"github.com/adwski/quizroom/client/transport/websocket"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const terminalSubscriber = "terminal"

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	fs := pflag.NewFlagSet("quizroom", pflag.ContinueOnError)

	def := config.Default()
	var (
		envFile      = fs.String("env-file", ".env", "optional file with QUIZROOM_* variables")
		apiURL       = fs.StringP("api-url", "a", def.APIURL, "REST API base url")
		wsURL        = fs.StringP("ws-url", "w", def.WSURL, "websocket origin")
		logLevel     = fs.StringP("log-level", "l", def.LogLevel, "log level")
		token        = fs.StringP("token", "t", "", "access token")
		refreshToken = fs.String("refresh-token", "", "refresh token")
		email        = fs.StringP("email", "e", "", "login email")
		password     = fs.StringP("password", "p", "", "login password")
		roomID       = fs.Int64P("room", "r", 0, "id of a room you are a member of")
		inviteCode   = fs.StringP("invite-code", "i", "", "join a room by invite code")
		createRoom   = fs.String("create-room", "", "create a room with this name and enter it")
		quizID       = fs.Int64P("quiz", "q", 0, "quiz to play, host only")
		attempts     = fs.Int("reconnect-attempts", def.ReconnectAttempts, "reconnect attempts after a drop, 0 disables")
		baseDelay    = fs.Duration("reconnect-base-delay", def.ReconnectBaseDelay, "first reconnect delay")
		maxDelay     = fs.Duration("reconnect-max-delay", def.ReconnectMaxDelay, "reconnect delay ceiling")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Fatal().Err(err).Str("path", *envFile).Msg("failed to load env file")
	}
	cfg := config.Load()
	overrideString(fs, "api-url", &cfg.APIURL, *apiURL)
	overrideString(fs, "ws-url", &cfg.WSURL, *wsURL)
	overrideString(fs, "log-level", &cfg.LogLevel, *logLevel)
	if fs.Changed("reconnect-attempts") {
		cfg.ReconnectAttempts = *attempts
	}
	if fs.Changed("reconnect-base-delay") {
		cfg.ReconnectBaseDelay = *baseDelay
	}
	if fs.Changed("reconnect-max-delay") {
		cfg.ReconnectMaxDelay = *maxDelay
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	memStore := store.NewMemStore(store.Config{HandoffTTL: cfg.HandoffTTL})
	apiClient, err := api.New(api.Config{
		Logger:  &logger,
		BaseURL: cfg.APIURL,
		Tokens:  memStore,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create api client")
	}
	dialer, err := websocket.NewDialer(websocket.Config{
		Logger:  &logger,
		BaseURL: cfg.WSURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create room dialer")
	}
	hub := notify.NewHub(notify.Config{Logger: &logger})

	svc := service.NewService(service.Config{
		Logger:    &logger,
		API:       apiClient,
		Store:     memStore,
		Dialer:    dialer,
		Publisher: hub,
		Reconnect: room.Reconnect{
			MaxAttempts: cfg.ReconnectAttempts,
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *token != "":
		_, err = svc.UseToken(*token, *refreshToken)
	case *email != "":
		_, err = svc.Login(ctx, *email, *password)
	default:
		err = errors.New("either --token or --email is required")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("not authenticated")
	}

	var h model.Handoff
	switch {
	case *createRoom != "":
		h, err = svc.CreateRoom(ctx, *createRoom, *quizID)
	case *inviteCode != "":
		h, err = svc.JoinByInvite(ctx, *inviteCode, *quizID)
	case *roomID != 0:
		h, err = svc.SelectRoom(ctx, *roomID, *quizID)
	default:
		err = errors.New("one of --room, --invite-code or --create-room is required")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("no room to enter")
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go renderUpdates(wg, hub.Subscribe(terminalSubscriber), os.Stdout, render.Options{ChatLines: cfg.ChatLines}, &logger)

	rc, err := svc.EnterRoom(ctx, h.Key)
	if err != nil {
		var redirect *room.RedirectError
		if errors.As(err, &redirect) {
			logger.Fatal().Err(redirect.Err).Str("redirect", string(redirect.To)).Msg("cannot enter room")
		}
		logger.Fatal().Err(err).Msg("cannot enter room")
	}

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	runLoop(ctx, rc, lines, os.Stdout, &logger)

	if err = svc.LeaveRoom(context.Background()); err != nil {
		logger.Error().Err(err).Msg("failed to leave room")
	}
	hub.Unsubscribe(terminalSubscriber)
	wg.Wait()
}

func overrideString(fs *pflag.FlagSet, name string, dst *string, value string) {
	if fs.Changed(name) {
		*dst = value
	}
}

func runLoop(ctx context.Context, rc *room.Client, lines <-chan string, out io.Writer, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Warn().Msg("interrupted")
			return
		case <-rc.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			quit, err := dispatch(rc, line, out)
			if err != nil {
				logger.Debug().Err(err).Str("line", line).Msg("command failed")
			}
			if quit {
				return
			}
		}
	}
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func renderUpdates(
	wg *sync.WaitGroup,
	updates <-chan model.Update,
	out io.Writer,
	opts render.Options,
	logger *zerolog.Logger,
) {
	defer wg.Done()
	for upd := range updates {
		var err error
		switch {
		case upd.Notification != nil:
			err = render.Notification(out, *upd.Notification)
		case upd.View != nil:
			err = render.ViewWith(out, *upd.View, opts)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to render update")
		}
	}
}
