package takeover

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"diacritics stripped", "Estou COMEÇANDO seu atendimento", "estou comecando seu atendimento"},
		{"zero width removed", "estou​ iniciando", "estou iniciando"},
		{"plain", "bom dia", "bom dia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTakeoverPhrase_SetsSilencedAndLock(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	now := time.Now()
	l.SetNowFunc(func() time.Time { return now })

	l.HandleOutgoing("jid1", "Estou iniciando seu atendimento")

	if !l.IsActive("jid1") {
		t.Fatal("conversation should be active-locked after takeover phrase")
	}
	silenced, until, locked := l.State("jid1")
	if !silenced {
		t.Error("silenced flag not set")
	}
	if !locked || !until.Equal(now.Add(60*time.Minute)) {
		t.Errorf("timed lock = %v (locked=%v), want now+60m", until, locked)
	}
}

func TestLockExpiry_WithoutExplicitClear(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	now := time.Now()
	l.SetNowFunc(func() time.Time { return now })

	// Any ordinary outgoing message arms the implicit takeover lock.
	l.HandleOutgoing("jid1", "já estou verificando sua proposta")
	if !l.IsActive("jid1") {
		t.Fatal("implicit takeover not active")
	}

	now = now.Add(61 * time.Minute)
	if l.IsActive("jid1") {
		t.Error("lock still active after expiry")
	}
}

func TestSilenced_StickyPastLockExpiry(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	now := time.Now()
	l.SetNowFunc(func() time.Time { return now })

	l.HandleOutgoing("jid1", "estou começando seu atendimento")
	now = now.Add(2 * time.Hour)

	// Timed lock expired, but silenced stays until explicitly cleared.
	if !l.IsActive("jid1") {
		t.Error("silenced flag should outlive the timed lock")
	}
}

func TestResumePhrase_ClearsBoth(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	l.HandleOutgoing("jid1", "estou iniciando seu atendimento")
	l.HandleOutgoing("jid1", "obrigada, estou à disposição")

	if l.IsActive("jid1") {
		t.Error("conversation still suppressed after resume phrase")
	}
}

func TestReleaseToken_ClearsOnlyTimedLock(t *testing.T) {
	l := New(60*time.Minute, discardLogger())

	l.HandleOutgoing("jid1", "estou iniciando seu atendimento")
	l.HandleOutgoing("jid1", "#liberar")

	silenced, _, locked := l.State("jid1")
	if locked {
		t.Error("timed lock not released")
	}
	if !silenced {
		t.Error("release token must not clear the silenced flag")
	}
	if !l.IsActive("jid1") {
		t.Error("still silenced, IsActive should hold")
	}
}

func TestOrdinaryOutgoing_RefreshesLock(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	now := time.Now()
	l.SetNowFunc(func() time.Time { return now })

	l.HandleOutgoing("jid1", "segue a proposta em anexo")
	now = now.Add(50 * time.Minute)
	l.HandleOutgoing("jid1", "alguma dúvida?")
	now = now.Add(50 * time.Minute)

	// 100 minutes after the first message but only 50 after the refresh.
	if !l.IsActive("jid1") {
		t.Error("refresh did not extend the lock")
	}
}

func TestConversationsIndependent(t *testing.T) {
	l := New(60*time.Minute, discardLogger())
	l.HandleOutgoing("jid1", "estou iniciando seu atendimento")

	if l.IsActive("jid2") {
		t.Error("lock leaked across conversations")
	}
}
