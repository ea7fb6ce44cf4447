package dedup

import (
	"sync"
	"testing"
	"time"
)

func TestInsert_SuppressesDuplicates(t *testing.T) {
	s := New(5 * time.Minute)

	if !s.Insert("jid1", "msg1") {
		t.Fatal("first insert should report unseen")
	}
	if s.Insert("jid1", "msg1") {
		t.Error("second insert of same pair should report seen")
	}

	// Distinct message and distinct conversation are independent.
	if !s.Insert("jid1", "msg2") {
		t.Error("different message id should be unseen")
	}
	if !s.Insert("jid2", "msg1") {
		t.Error("same message id on another conversation should be unseen")
	}
}

func TestInsert_ExpiresAfterTTL(t *testing.T) {
	s := New(5 * time.Minute)
	now := time.Now()
	s.SetNowFunc(func() time.Time { return now })

	s.Insert("jid1", "msg1")

	now = now.Add(4 * time.Minute)
	if s.Insert("jid1", "msg1") {
		t.Error("pair re-admitted inside the window")
	}

	now = now.Add(2 * time.Minute)
	if !s.Insert("jid1", "msg1") {
		t.Error("pair not re-admitted after expiry")
	}
}

func TestInsert_ConcurrentSingleWinner(t *testing.T) {
	s := New(5 * time.Minute)

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Insert("jid1", "msg1") {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("%d goroutines won the insert, want exactly 1", count)
	}
}

func TestSeen(t *testing.T) {
	s := New(time.Minute)
	if s.Seen("jid", "msg") {
		t.Error("unseen pair reported as seen")
	}
	s.Insert("jid", "msg")
	if !s.Seen("jid", "msg") {
		t.Error("inserted pair not reported as seen")
	}
}
