// Package takeover suppresses automated replies while a human operator owns
// a conversation. Two independent switches per conversation: a sticky
// silenced flag toggled by natural-language phrases in the operator's own
// outgoing messages, and a timed lock refreshed by any operator activity.
// Both live only in process memory.
package takeover

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDuration is how long the timed lock holds after operator activity.
const DefaultDuration = 60 * time.Minute

// ReleaseToken clears the timed lock without touching the silenced flag.
const ReleaseToken = "#liberar"

var (
	takeoverRe = regexp.MustCompile(`\bestou\s+(iniciando|comecando)\b|\b(iniciando|comecando)\s+seu\s+atendimento\b`)
	resumeRe   = regexp.MustCompile(`\bestou\s+a\s+disposicao\b|\bestou\s+\w*disposicao\b`)
)

// stripMarks removes combining marks after NFD decomposition, so "começando"
// and "comecando" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases text and removes diacritics and zero-width
// characters, matching how operator phrases are detected.
func Normalize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		return r
	}, s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	return strings.ToLower(s)
}

type Lock struct {
	mu       sync.Mutex
	silenced map[string]bool
	until    map[string]time.Time
	duration time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func New(duration time.Duration, logger *slog.Logger) *Lock {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Lock{
		silenced: make(map[string]bool),
		until:    make(map[string]time.Time),
		duration: duration,
		now:      time.Now,
		logger:   logger,
	}
}

// SetNowFunc overrides the clock. Tests only.
func (l *Lock) SetNowFunc(now func() time.Time) {
	l.now = now
}

// HandleOutgoing runs the state machine for one operator-outgoing message.
// Takeover phrases silence the conversation and arm the timed lock; the
// resume phrase clears both; the release token clears only the timed lock;
// anything else refreshes the timed lock (implicit takeover on activity).
func (l *Lock) HandleOutgoing(id, text string) {
	if id == "" {
		return
	}
	t := Normalize(text)

	switch {
	case takeoverRe.MatchString(t):
		l.logger.Info("assistant silenced", "conversation", id, "reason", "human takeover phrase")
		l.mu.Lock()
		l.silenced[id] = true
		l.until[id] = l.now().Add(l.duration)
		l.mu.Unlock()
	case resumeRe.MatchString(t):
		l.logger.Info("assistant resumed", "conversation", id, "reason", "availability phrase")
		l.mu.Lock()
		delete(l.silenced, id)
		delete(l.until, id)
		l.mu.Unlock()
	case strings.Contains(t, ReleaseToken):
		l.mu.Lock()
		delete(l.until, id)
		l.mu.Unlock()
	default:
		l.mu.Lock()
		l.until[id] = l.now().Add(l.duration)
		l.mu.Unlock()
	}
}

// IsActive reports whether automated replies are suppressed for id: either
// the sticky silenced flag is set or the timed lock has not yet expired.
// An expired lock is cleared on read.
func (l *Lock) IsActive(id string) bool {
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.silenced[id] {
		return true
	}
	until, ok := l.until[id]
	if !ok {
		return false
	}
	if l.now().After(until) {
		delete(l.until, id)
		return false
	}
	return true
}

// Clear removes both switches for id. Used by the ops API.
func (l *Lock) Clear(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.silenced, id)
	delete(l.until, id)
}

// State returns the current switches for id for inspection.
func (l *Lock) State(id string) (silenced bool, lockedUntil time.Time, locked bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.until[id]
	if ok && l.now().After(until) {
		delete(l.until, id)
		ok = false
	}
	return l.silenced[id], until, ok
}
