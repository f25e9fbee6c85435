package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTypingWindow is how long a typing indicator stays alive after the
// last signal. There is no explicit stop message in the protocol; expiry is
// the only stop.
const DefaultTypingWindow = time.Second

type typingEntry struct {
	name     string
	color    string
	deadline time.Time
}

// Stopped identifies one expired typing entry.
type Stopped struct {
	ChannelID string
	UserID    string
}

// Tracker keeps the per-channel set of identities currently typing. Entries
// carry a deadline instead of one timer each: a new signal just moves the
// deadline, and a single sweep (periodic via Run, or lazy on read) drops
// whatever has passed.
type Tracker struct {
	mu       sync.Mutex
	channels map[string]map[string]typingEntry

	window time.Duration
	log    *zap.Logger
}

// NewTracker builds a tracker with the given expiry window; zero or negative
// means DefaultTypingWindow.
func NewTracker(window time.Duration, log *zap.Logger) *Tracker {
	if window <= 0 {
		window = DefaultTypingWindow
	}
	return &Tracker{
		channels: make(map[string]map[string]typingEntry),
		window:   window,
		log:      log,
	}
}

// Signal marks the identity as typing in the channel and restarts its
// expiry. A signal for an identity already typing resets the deadline
// without duplicating state.
func (t *Tracker) Signal(channelID, userID, name, color string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries, ok := t.channels[channelID]
	if !ok {
		entries = make(map[string]typingEntry)
		t.channels[channelID] = entries
	}
	entries[userID] = typingEntry{name: name, color: color, deadline: time.Now().Add(t.window)}
}

// Clear drops the identity's entry in the channel, if any. A successful send
// clears its author's indicator without waiting for expiry.
func (t *Tracker) Clear(channelID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entries, ok := t.channels[channelID]; ok {
		delete(entries, userID)
		if len(entries) == 0 {
			delete(t.channels, channelID)
		}
	}
}

// Typing returns the identities currently typing in the channel. Expired
// entries are swept on the way.
func (t *Tracker) Typing(channelID string) []string {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	entries, ok := t.channels[channelID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(entries))
	for userID, e := range entries {
		if e.deadline.Before(now) {
			delete(entries, userID)
			continue
		}
		ids = append(ids, userID)
	}
	if len(entries) == 0 {
		delete(t.channels, channelID)
	}
	return ids
}

// Expire removes every entry whose deadline has passed and returns who
// stopped typing where.
func (t *Tracker) Expire(now time.Time) []Stopped {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stopped []Stopped
	for channelID, entries := range t.channels {
		for userID, e := range entries {
			if e.deadline.Before(now) {
				delete(entries, userID)
				stopped = append(stopped, Stopped{ChannelID: channelID, UserID: userID})
			}
		}
		if len(entries) == 0 {
			delete(t.channels, channelID)
		}
	}
	return stopped
}

// Run sweeps expired entries at a quarter of the window until ctx is done.
// One sweeper serves the whole tracker regardless of how many identities
// signal.
func (t *Tracker) Run(ctx context.Context) {
	interval := t.window / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if stopped := t.Expire(now); len(stopped) > 0 {
				t.log.Debug("typing entries expired", zap.Int("count", len(stopped)))
			}
		}
	}
}
