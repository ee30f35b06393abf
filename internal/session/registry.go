package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("call session not found")

// Call accumulates one call's interview state: every question asked, every
// transcribed answer keyed by slot, and the dialog state tag.
type Call struct {
	ID             string            `json:"call_sid"`
	Status         Status            `json:"status"`
	State          State             `json:"state"`
	NextSlot       int               `json:"next_slot,omitempty"`
	AskedQuestions []string          `json:"asked_questions"`
	Answers        map[string]string `json:"answers"`
	LastAnswer     string            `json:"last_answer"`
	StartedAt      time.Time         `json:"started_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

// Registry owns every in-flight call session. Sessions are created lazily on
// first touch and swept by the janitor once inactive or ended.
type Registry struct {
	mu                sync.RWMutex
	calls             map[string]*Call
	locks             map[string]*sync.Mutex
	inactivityTimeout time.Duration
	endedRetention    time.Duration
	onExpire          func(*Call)
}

func NewRegistry(inactivityTimeout time.Duration) *Registry {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Registry{
		calls:             make(map[string]*Call),
		locks:             make(map[string]*sync.Mutex),
		inactivityTimeout: inactivityTimeout,
		endedRetention:    time.Minute,
	}
}

func (r *Registry) SetEndedRetention(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.endedRetention = d
	}
}

func (r *Registry) SetExpireHook(hook func(*Call)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// CallLock returns the mutex serializing all dialog turns for one call id.
// Webhook handlers hold it across their read-modify-write of the session so
// two requests for the same call cannot interleave.
func (r *Registry) CallLock(callID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[callID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[callID] = l
	}
	return l
}

// GetOrCreate returns a snapshot of the session for callID, creating it on
// first touch.
func (r *Registry) GetOrCreate(callID string) *Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.getOrCreateLocked(callID))
}

func (r *Registry) getOrCreateLocked(callID string) *Call {
	c, ok := r.calls[callID]
	if !ok {
		now := time.Now().UTC()
		c = &Call{
			ID:             callID,
			Status:         StatusActive,
			Answers:        make(map[string]string),
			StartedAt:      now,
			LastActivityAt: now,
		}
		r.calls[callID] = c
	}
	return c
}

func (r *Registry) Get(callID string) (*Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

// AppendQuestion records a posed question and returns its 1-based index.
func (r *Registry) AppendQuestion(callID, text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.getOrCreateLocked(callID)
	c.AskedQuestions = append(c.AskedQuestions, text)
	c.LastActivityAt = time.Now().UTC()
	return len(c.AskedQuestions)
}

// RecordAnswer stores a transcribed answer under slot and remembers it as the
// most recently recorded answer value for persistence fallback.
func (r *Registry) RecordAnswer(callID, slot, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.getOrCreateLocked(callID)
	c.Answers[slot] = text
	c.LastAnswer = text
	c.LastActivityAt = time.Now().UTC()
}

func (r *Registry) SetState(callID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.getOrCreateLocked(callID)
	c.State = state
	if state != StateAwaitingNext {
		c.NextSlot = 0
	}
	c.LastActivityAt = time.Now().UTC()
}

// SetAwaitingNext tags the session as expecting an answer for the given
// 1-based slot index.
func (r *Registry) SetAwaitingNext(callID string, nextSlot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.getOrCreateLocked(callID)
	c.State = StateAwaitingNext
	c.NextSlot = nextSlot
	c.LastActivityAt = time.Now().UTC()
}

func (r *Registry) ClearState(callID string) {
	r.SetState(callID, StateNormal)
}

func (r *Registry) StateOf(callID string) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[callID]
	if !ok {
		return StateNormal
	}
	return c.State
}

// History renders the asked questions with whatever answers exist so far, in
// ask order.
func (r *Registry) History(callID string) []QA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[callID]
	if !ok {
		return nil
	}
	out := make([]QA, 0, len(c.AskedQuestions))
	for i, q := range c.AskedQuestions {
		out = append(out, QA{Question: q, Answer: c.Answers[Slot(i+1)]})
	}
	return out
}

// End marks the session ended. The janitor removes it after the retention
// window so late webhook retries still see a consistent record.
func (r *Registry) End(callID string) (*Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok {
		return nil, ErrNotFound
	}
	c.Status = StatusEnded
	c.LastActivityAt = time.Now().UTC()
	return clone(c), nil
}

func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, c := range r.calls {
		if c.Status == StatusActive {
			count++
		}
	}
	return count
}

func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) sweep() {
	now := time.Now().UTC()
	var expired []*Call

	r.mu.Lock()
	for id, c := range r.calls {
		switch c.Status {
		case StatusEnded:
			if now.Sub(c.LastActivityAt) >= r.endedRetention {
				delete(r.calls, id)
				delete(r.locks, id)
			}
		case StatusActive:
			if now.Sub(c.LastActivityAt) < r.inactivityTimeout {
				continue
			}
			c.Status = StatusEnded
			c.LastActivityAt = now
			expired = append(expired, clone(c))
		}
	}
	hook := r.onExpire
	r.mu.Unlock()

	if hook != nil {
		for _, c := range expired {
			hook(c)
		}
	}
}

func clone(c *Call) *Call {
	out := *c
	out.AskedQuestions = append([]string(nil), c.AskedQuestions...)
	out.Answers = make(map[string]string, len(c.Answers))
	for k, v := range c.Answers {
		out.Answers[k] = v
	}
	return &out
}
