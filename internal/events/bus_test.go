package events

import (
	"testing"
	"time"
)

func TestBusPublishToSubscribers(t *testing.T) {
	b := NewBus(4)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(CallEvent{Type: TypeQuestionAsked, CallSID: "CA1", Text: "hello"})

	select {
	case ev := <-ch:
		if ev.Type != TypeQuestionAsked || ev.CallSID != "CA1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.ID == "" || ev.Timestamp == 0 {
			t.Fatalf("id/timestamp should be filled: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusDropsWhenSubscriberSaturated(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(CallEvent{Type: TypeQuestionAsked, CallSID: "CA1"})
	b.Publish(CallEvent{Type: TypeAnswerReceived, CallSID: "CA1"})

	first := <-ch
	if first.Type != TypeQuestionAsked {
		t.Fatalf("first event = %q, want question_asked", first.Type)
	}
	select {
	case ev := <-ch:
		t.Fatalf("second event should have been dropped, got %+v", ev)
	default:
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe()
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", n)
	}
}
