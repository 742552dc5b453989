package room

import "time"

const (
	defaultReconnectBaseDelay = time.Second
	defaultReconnectMaxDelay  = 30 * time.Second
)

// Reconnect is the optional policy for dialing a fresh channel after a drop.
// The zero value disables it: a dropped room stays disconnected until re-entered.
type Reconnect struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (r Reconnect) Enabled() bool {
	return r.MaxAttempts > 0
}

// Delay returns the wait before the given attempt, attempt is 1-based.
// Delays double from BaseDelay and are capped at MaxDelay.
func (r Reconnect) Delay(attempt int) time.Duration {
	base, ceiling := r.BaseDelay, r.MaxDelay
	if base <= 0 {
		base = defaultReconnectBaseDelay
	}
	if ceiling <= 0 {
		ceiling = defaultReconnectMaxDelay
	}
	if ceiling < base {
		ceiling = base
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	return delay
}
