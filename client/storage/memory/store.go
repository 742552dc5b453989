package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/adwski/quizroom/client/auth"
	"github.com/adwski/quizroom/client/model"
	"github.com/google/uuid"
)

const (
	defaultHandoffTTL = 30 * time.Minute
)

var (
	ErrHandoffNotFound    = errors.New("handoff is not found")
	ErrCredentialNotFound = errors.New("credential is not found")
	ErrNoRoom             = errors.New("handoff has no room id")
)

type handoffEntry struct {
	handoff   model.Handoff
	expiresAt time.Time
}

// MemStore keeps the identifiers handed between screens and the current credential.
// Entries older than the TTL read as absent.
type MemStore struct {
	mx   *sync.Mutex
	now  func() time.Time
	ttl  time.Duration
	db   map[string]handoffEntry
	cred *auth.Credential
}

type Config struct {
	HandoffTTL time.Duration
	Clock      func() time.Time
}

func NewMemStore(cfg Config) *MemStore {
	ms := &MemStore{
		mx:  &sync.Mutex{},
		now: cfg.Clock,
		ttl: cfg.HandoffTTL,
		db:  make(map[string]handoffEntry),
	}
	if ms.now == nil {
		ms.now = time.Now
	}
	if ms.ttl <= 0 {
		ms.ttl = defaultHandoffTTL
	}
	return ms
}

func (ms *MemStore) CreateHandoff(h model.Handoff) (model.Handoff, error) {
	if h.RoomID == 0 {
		return model.Handoff{}, ErrNoRoom
	}
	ms.mx.Lock()
	defer ms.mx.Unlock()

	now := ms.now()
	h.Key = uuid.NewString()
	h.CreatedAt = now
	ms.db[h.Key] = handoffEntry{handoff: h, expiresAt: now.Add(ms.ttl)}
	ms.evictExpired(now)
	return h, nil
}

func (ms *MemStore) Handoff(key string) (model.Handoff, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	entry, ok := ms.db[key]
	if !ok {
		return model.Handoff{}, ErrHandoffNotFound
	}
	if !ms.now().Before(entry.expiresAt) {
		delete(ms.db, key)
		return model.Handoff{}, ErrHandoffNotFound
	}
	return entry.handoff, nil
}

// UpdateHandoff replaces a live handoff, keeping its key, creation time and expiry.
func (ms *MemStore) UpdateHandoff(h model.Handoff) error {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	entry, ok := ms.db[h.Key]
	if !ok || !ms.now().Before(entry.expiresAt) {
		return ErrHandoffNotFound
	}
	if h.RoomID == 0 {
		return ErrNoRoom
	}
	h.CreatedAt = entry.handoff.CreatedAt
	entry.handoff = h
	ms.db[h.Key] = entry
	return nil
}

func (ms *MemStore) DiscardHandoff(key string) {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	delete(ms.db, key)
}

func (ms *MemStore) SaveCredential(cred auth.Credential) {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	ms.cred = &cred
}

func (ms *MemStore) Credential() (auth.Credential, error) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	if ms.cred == nil {
		return auth.Credential{}, ErrCredentialNotFound
	}
	return *ms.cred, nil
}

func (ms *MemStore) ClearCredential() {
	ms.mx.Lock()
	defer ms.mx.Unlock()
	ms.cred = nil
}

// Token satisfies the REST client token source.
func (ms *MemStore) Token() string {
	cred, err := ms.Credential()
	if err != nil {
		return ""
	}
	return cred.Token
}

func (ms *MemStore) evictExpired(now time.Time) {
	for key, entry := range ms.db {
		if !now.Before(entry.expiresAt) {
			delete(ms.db, key)
		}
	}
}
