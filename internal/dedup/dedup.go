// Package dedup suppresses duplicate processing of inbound messages. A
// {conversation, message} pair entering the set stays there for a fixed
// window; re-deliveries inside the window are dropped before any side
// effect. State is process-local — it does not need to survive restart.
package dedup

import (
	"sync"
	"time"
)

const DefaultTTL = 5 * time.Minute

type Set struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time // key -> expiry
	now  func() time.Time
}

func New(ttl time.Duration) *Set {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Set{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// SetNowFunc overrides the clock. Tests only.
func (s *Set) SetNowFunc(now func() time.Time) {
	s.now = now
}

func key(conversationID, messageID string) string {
	return conversationID + "\x00" + messageID
}

// Insert marks the pair as handled and reports whether it was unseen.
// Insertion happens atomically with the check so concurrent deliveries of
// the same message elect exactly one winner.
func (s *Set) Insert(conversationID, messageID string) bool {
	now := s.now()
	k := key(conversationID, messageID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.seen[k]; ok && now.Before(exp) {
		return false
	}
	s.seen[k] = now.Add(s.ttl)

	// Passive sweep: evict expired entries opportunistically to keep the
	// set bounded without a background goroutine.
	if len(s.seen) > 4096 {
		for k, exp := range s.seen {
			if now.After(exp) {
				delete(s.seen, k)
			}
		}
	}
	return true
}

// Seen reports whether the pair is currently in the window.
func (s *Set) Seen(conversationID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.seen[key(conversationID, messageID)]
	return ok && s.now().Before(exp)
}

// Len returns the number of tracked entries, including expired ones not yet
// swept.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
