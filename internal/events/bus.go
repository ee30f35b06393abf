package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeQuestionAsked  Type = "question_asked"
	TypeAnswerReceived Type = "answer_received"
	TypeCallEnded      Type = "call_ended"
)

// CallEvent is one monitor-stream entry. Text carries the spoken question or
// the (redacted) answer transcript depending on Type.
type CallEvent struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	CallSID   string `json:"call_sid"`
	Slot      string `json:"slot,omitempty"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"ts_ms"`
}

// Bus fans call events out to monitor subscribers. Publishing never blocks;
// a saturated subscriber loses events rather than stalling the call path.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan CallEvent
	nextID int
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[int]chan CallEvent),
		buffer: buffer,
	}
}

// Subscribe registers a listener. The returned cancel func must be called to
// release the subscription; the channel is closed on cancel.
func (b *Bus) Subscribe() (<-chan CallEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan CallEvent, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *Bus) Publish(ev CallEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow monitor; drop instead of blocking the webhook path.
		}
	}
}

// Close drops every subscriber and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
