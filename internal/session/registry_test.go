package session

import (
	"context"
	"testing"
	"time"
)

func TestRegistryLazyCreateAndHistory(t *testing.T) {
	r := NewRegistry(time.Minute)

	c := r.GetOrCreate("CA1")
	if c.ID != "CA1" || c.Status != StatusActive {
		t.Fatalf("unexpected session: %+v", c)
	}

	if n := r.AppendQuestion("CA1", "Is this a good time to talk?"); n != 1 {
		t.Fatalf("AppendQuestion index = %d, want 1", n)
	}
	r.RecordAnswer("CA1", Slot(1), "yes")
	r.AppendQuestion("CA1", "Tell me about your background.")

	hist := r.History("CA1")
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Answer != "yes" {
		t.Fatalf("first answer = %q, want %q", hist[0].Answer, "yes")
	}
	if hist[1].Answer != "" {
		t.Fatalf("unanswered question should have empty answer, got %q", hist[1].Answer)
	}
}

func TestRegistryStateTransitions(t *testing.T) {
	r := NewRegistry(time.Minute)

	r.SetState("CA2", StateAwaitingCallbackTime)
	if st := r.StateOf("CA2"); st != StateAwaitingCallbackTime {
		t.Fatalf("state = %q, want %q", st, StateAwaitingCallbackTime)
	}

	r.SetAwaitingNext("CA2", 3)
	got, err := r.Get("CA2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateAwaitingNext || got.NextSlot != 3 {
		t.Fatalf("state = %q next_slot = %d, want awaiting_next/3", got.State, got.NextSlot)
	}

	r.ClearState("CA2")
	got, _ = r.Get("CA2")
	if got.State != StateNormal || got.NextSlot != 0 {
		t.Fatalf("clear should reset state and slot, got %+v", got)
	}
}

func TestRegistryLastAnswerTracksMostRecent(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.RecordAnswer("CA3", Slot(1), "first")
	r.RecordAnswer("CA3", CallbackSlot, "tomorrow at 5pm")

	c, err := r.Get("CA3")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.LastAnswer != "tomorrow at 5pm" {
		t.Fatalf("LastAnswer = %q, want most recent value", c.LastAnswer)
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.AppendQuestion("CA4", "q")
	snap := r.GetOrCreate("CA4")
	snap.AskedQuestions[0] = "mutated"
	snap.Answers["q1"] = "mutated"

	fresh, _ := r.Get("CA4")
	if fresh.AskedQuestions[0] != "q" || len(fresh.Answers) != 0 {
		t.Fatalf("snapshot mutation leaked into registry: %+v", fresh)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(time.Minute)
	if _, err := r.Get("missing"); err != ErrNotFound {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistryJanitorExpiresInactive(t *testing.T) {
	r := NewRegistry(30 * time.Millisecond)
	r.SetEndedRetention(time.Hour)
	expired := make(chan string, 1)
	r.SetExpireHook(func(c *Call) { expired <- c.ID })
	r.GetOrCreate("CA5")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != "CA5" {
			t.Fatalf("expired id = %q, want CA5", id)
		}
	case <-time.After(time.Second):
		t.Fatal("janitor did not expire inactive session")
	}

	got, err := r.Get("CA5")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}

func TestRegistryJanitorRemovesEndedAfterRetention(t *testing.T) {
	r := NewRegistry(time.Minute)
	r.SetEndedRetention(20 * time.Millisecond)
	r.GetOrCreate("CA6")
	if _, err := r.End("CA6"); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, err := r.Get("CA6"); err == ErrNotFound {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("ended session was not removed after retention")
}
