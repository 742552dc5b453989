package notify

import (
	"context"
	"sync"
	"time"

	"github.com/adwski/quizroom/client/model"
	"github.com/rs/zerolog"
)

const (
	defaultDeliveryTimeout = time.Second
	defaultBufferSize      = 32
)

type Config struct {
	Logger          *zerolog.Logger
	DeliveryTimeout time.Duration
	BufferSize      int
}

// Hub fans out room updates to named subscribers.
type Hub struct {
	logger  zerolog.Logger
	timeout time.Duration
	size    int
	mx      *sync.RWMutex
	subs    map[string]chan model.Update
}

func NewHub(cfg Config) *Hub {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	h := &Hub{
		logger:  logger.With().Str("component", "notify").Logger(),
		timeout: cfg.DeliveryTimeout,
		size:    cfg.BufferSize,
		mx:      &sync.RWMutex{},
		subs:    make(map[string]chan model.Update),
	}
	if h.timeout <= 0 {
		h.timeout = defaultDeliveryTimeout
	}
	if h.size <= 0 {
		h.size = defaultBufferSize
	}
	return h
}

// Subscribe registers a subscriber. Subscribing again under the same name
// replaces the previous channel, which is closed.
func (h *Hub) Subscribe(name string) <-chan model.Update {
	h.mx.Lock()
	defer func() {
		h.mx.Unlock()
		h.logger.Debug().Str("subscriber", name).Msg("subscribed")
	}()

	if prev, ok := h.subs[name]; ok {
		close(prev)
	}
	ch := make(chan model.Update, h.size)
	h.subs[name] = ch
	return ch
}

func (h *Hub) Unsubscribe(name string) {
	h.mx.Lock()
	defer func() {
		h.mx.Unlock()
		h.logger.Debug().Str("subscriber", name).Msg("unsubscribed")
	}()

	if ch, ok := h.subs[name]; ok {
		close(ch)
		delete(h.subs, name)
	}
}

// Publish delivers upd to every subscriber. A subscriber that does not take
// the update within the delivery timeout misses it.
func (h *Hub) Publish(ctx context.Context, upd model.Update) {
	h.mx.RLock()
	defer h.mx.RUnlock()

	logger := h.logger.With().
		Int64("roomID", upd.RoomID).
		Str("kind", kindOf(upd)).
		Logger()

	for name, ch := range h.subs {
		if canceled := h.deliver(ctx, name, upd, ch, &logger); canceled {
			return
		}
	}
}

func (h *Hub) deliver(
	ctx context.Context,
	name string,
	upd model.Update,
	ch chan<- model.Update,
	logger *zerolog.Logger,
) bool {
	select {
	case ch <- upd:
		return false
	default:
	}

	var canceled bool
	tCh := time.NewTimer(h.timeout)
	select {
	case <-ctx.Done():
		canceled = true
	case <-tCh.C:
		logger.Error().Str("subscriber", name).Msg("slow subscriber, update dropped")
	case ch <- upd:
		logger.Trace().Str("subscriber", name).Msg("update delivered")
	}
	tCh.Stop()
	return canceled
}

func kindOf(upd model.Update) string {
	switch {
	case upd.Notification != nil:
		return "notification"
	case upd.View != nil:
		return "view"
	default:
		return "empty"
	}
}
