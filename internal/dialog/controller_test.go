package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/events"
	"github.com/novumlogic/intervox/internal/session"
	"github.com/novumlogic/intervox/internal/transcript"
)

type fakeStore struct {
	saved   map[string][]transcript.Entry
	saves   int
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string][]transcript.Entry)}
}

func (s *fakeStore) Save(_ context.Context, callSID string, entries []transcript.Entry) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.saved[callSID] = entries
	return nil
}

func (s *fakeStore) Get(_ context.Context, callSID string) ([]transcript.Entry, error) {
	entries, ok := s.saved[callSID]
	if !ok {
		return nil, transcript.ErrNotFound
	}
	return entries, nil
}

func (s *fakeStore) Close() error { return nil }

func newTestController(t *testing.T, m ChatModel) (*Controller, *session.Registry, *fakeStore) {
	t.Helper()
	reg := session.NewRegistry(time.Minute)
	store := newFakeStore()
	metrics := testMetrics()
	gen := NewGenerator(m, reg, metrics, zerolog.Nop())
	ctrl := NewController(reg, gen, store, events.NewBus(16), metrics, zerolog.Nop())
	return ctrl, reg, store
}

func TestFirstPromptContinuesConversation(t *testing.T) {
	m := &scriptedModel{replies: []string{"Hello from Novumlogic HR. Is this a good time to talk?"}}
	ctrl, reg, _ := newTestController(t, m)

	out := ctrl.NextPrompt(context.Background(), "CA1")
	if !out.ExpectAnswer {
		t.Fatal("first prompt should expect an answer")
	}
	if len(out.Say) != 1 || out.Say[0] == "" {
		t.Fatalf("unexpected utterances: %+v", out.Say)
	}
	if got := reg.StateOf("CA1"); got != session.StateNormal {
		t.Fatalf("state = %q, want normal for a plain greeting", got)
	}
}

func TestAnswerThenFollowUpTagsAwaitingNext(t *testing.T) {
	m := &scriptedModel{replies: []string{"Question one?", "Question two?"}}
	ctrl, reg, store := newTestController(t, m)
	ctx := context.Background()

	ctrl.NextPrompt(ctx, "CA1")
	out, err := ctrl.AnswerReceived(ctx, "CA1", "answer one")
	if err != nil {
		t.Fatalf("AnswerReceived() error = %v", err)
	}
	if !out.ExpectAnswer {
		t.Fatal("follow-up question should expect another answer")
	}

	call, _ := reg.Get("CA1")
	if call.State != session.StateAwaitingNext || call.NextSlot != 2 {
		t.Fatalf("state = %q next_slot = %d, want awaiting_next/2", call.State, call.NextSlot)
	}
	if call.Answers[session.Slot(1)] != "answer one" {
		t.Fatalf("answer slot q1 = %q", call.Answers[session.Slot(1)])
	}
	if store.saves != 0 {
		t.Fatalf("nothing should be persisted mid-call, saves = %d", store.saves)
	}
}

func TestCallbackBranchTerminates(t *testing.T) {
	m := &scriptedModel{replies: []string{
		"Hello, is this a good time to talk?",
		"No problem. When would be a good time to call you back?",
	}}
	ctrl, reg, store := newTestController(t, m)
	ctx := context.Background()

	ctrl.NextPrompt(ctx, "CA1")
	out, err := ctrl.AnswerReceived(ctx, "CA1", "busy")
	if err != nil {
		t.Fatalf("AnswerReceived(busy) error = %v", err)
	}
	if !out.ExpectAnswer {
		t.Fatal("callback question itself should still expect an answer")
	}
	if got := reg.StateOf("CA1"); got != session.StateAwaitingCallbackTime {
		t.Fatalf("state = %q, want awaiting_callback_time", got)
	}

	// Any content terminates the call and is stored as the callback time.
	out, err = ctrl.AnswerReceived(ctx, "CA1", "Tomorrow at 5pm")
	if err != nil {
		t.Fatalf("AnswerReceived(callback time) error = %v", err)
	}
	if out.ExpectAnswer {
		t.Fatal("callback-time answer must terminate the call")
	}
	if len(out.Say) != 2 || out.Say[1] != goodbye {
		t.Fatalf("closing utterances = %+v", out.Say)
	}

	call, _ := reg.Get("CA1")
	if call.Answers[session.CallbackSlot] != "Tomorrow at 5pm" {
		t.Fatalf("callback_time = %q", call.Answers[session.CallbackSlot])
	}
	if call.Status != session.StatusEnded {
		t.Fatalf("session status = %q, want ended", call.Status)
	}
	entries, err := store.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("transcript not persisted: %v", err)
	}
	if len(entries) != len(call.AskedQuestions) {
		t.Fatalf("persisted %d pairs for %d questions", len(entries), len(call.AskedQuestions))
	}
}

func TestTriggerStateSurvivesFollowUpTagging(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  session.State
	}{
		{"callback", "No problem. When would be a good time to call you back?", session.StateAwaitingCallbackTime},
		{"final response", "Great. Do you have any questions for us?", session.StateAwaitingFinalResponse},
		{"location check", "Are you currently in Vadodara?", session.StateAwaitingLocationCheck},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &scriptedModel{replies: []string{"Question one?", tc.reply}}
			ctrl, reg, _ := newTestController(t, m)
			ctx := context.Background()

			ctrl.NextPrompt(ctx, "CA1")
			out, err := ctrl.AnswerReceived(ctx, "CA1", "answer one")
			if err != nil {
				t.Fatalf("AnswerReceived() error = %v", err)
			}
			if !out.ExpectAnswer {
				t.Fatal("trigger question should still expect an answer")
			}
			if got := reg.StateOf("CA1"); got != tc.want {
				t.Fatalf("state = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFirstPromptAlwaysArmsRecording(t *testing.T) {
	m := &scriptedModel{replies: []string{"Thank you for your time, the role has been filled."}}
	ctrl, _, store := newTestController(t, m)

	out := ctrl.NextPrompt(context.Background(), "CA1")
	if !out.ExpectAnswer {
		t.Fatal("opening prompt must record a reply; termination is decided on answers")
	}
	if store.saves != 0 {
		t.Fatalf("saves = %d, nothing should persist before an answer", store.saves)
	}
}

func TestFinalResponseTerminatesRegardlessOfContent(t *testing.T) {
	cases := []struct {
		name        string
		answer      string
		wantClosing string
	}{
		{"negative", "No", closingNoFinal},
		{"negative padded", "  not really  ", closingNoFinal},
		{"question asked", "Yes, what is the salary range?", closingWithFinal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := &scriptedModel{replies: []string{"That's all from my side. Do you have any questions?"}}
			ctrl, _, store := newTestController(t, m)
			ctx := context.Background()

			ctrl.NextPrompt(ctx, "CA1")
			out, err := ctrl.AnswerReceived(ctx, "CA1", tc.answer)
			if err != nil {
				t.Fatalf("AnswerReceived() error = %v", err)
			}
			if out.ExpectAnswer {
				t.Fatal("final-response answer must terminate the call")
			}
			if out.Say[0] != tc.wantClosing {
				t.Fatalf("closing = %q, want %q", out.Say[0], tc.wantClosing)
			}
			if out.Say[1] != goodbye {
				t.Fatalf("missing goodbye: %+v", out.Say)
			}
			if store.saves != 1 {
				t.Fatalf("saves = %d, want 1", store.saves)
			}
		})
	}
}

func TestTerminalPhraseInGeneratedTextEndsCall(t *testing.T) {
	m := &scriptedModel{replies: []string{
		"Question one?",
		"Thank You For Your Time. We will be in touch.",
	}}
	ctrl, reg, store := newTestController(t, m)
	ctx := context.Background()

	ctrl.NextPrompt(ctx, "CA1")
	out, err := ctrl.AnswerReceived(ctx, "CA1", "some answer")
	if err != nil {
		t.Fatalf("AnswerReceived() error = %v", err)
	}
	if out.ExpectAnswer {
		t.Fatal("terminal utterance must end the call")
	}
	if out.Say[0] != "Thank You For Your Time. We will be in touch." || out.Say[1] != goodbye {
		t.Fatalf("Say = %+v", out.Say)
	}
	if store.saves != 1 {
		t.Fatalf("saves = %d, want 1", store.saves)
	}
	call, _ := reg.Get("CA1")
	if call.State != session.StateNormal {
		t.Fatalf("state should be cleared, got %q", call.State)
	}
}

func TestPersistedPairsMatchQuestionCountWithMissingAnswers(t *testing.T) {
	m := &scriptedModel{replies: []string{
		"Question one?",
		"Question two?",
		"Thank you for your time.",
	}}
	ctrl, _, store := newTestController(t, m)
	ctx := context.Background()

	ctrl.NextPrompt(ctx, "CA1")
	if _, err := ctrl.AnswerReceived(ctx, "CA1", "only answer"); err != nil {
		t.Fatalf("AnswerReceived() error = %v", err)
	}
	if _, err := ctrl.AnswerReceived(ctx, "CA1", ""); err != nil {
		t.Fatalf("AnswerReceived() error = %v", err)
	}

	entries, err := store.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("transcript missing: %v", err)
	}
	// Three questions asked (two follow-ups plus the terminal line).
	if len(entries) != 3 {
		t.Fatalf("persisted %d pairs, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Answer == "" {
			t.Fatalf("entry %d has empty answer, fallback should fill it: %+v", i, entries)
		}
	}
}

func TestPersistFailurePropagates(t *testing.T) {
	m := &scriptedModel{replies: []string{"Do you have any questions?"}}
	ctrl, _, store := newTestController(t, m)
	store.saveErr = errors.New("disk full")
	ctx := context.Background()

	ctrl.NextPrompt(ctx, "CA1")
	if _, err := ctrl.AnswerReceived(ctx, "CA1", "no"); err == nil {
		t.Fatal("persistence failure must propagate")
	}
}

func TestAnswerEventRedactsPII(t *testing.T) {
	m := &scriptedModel{replies: []string{"Question one?", "Question two?"}}
	reg := session.NewRegistry(time.Minute)
	store := newFakeStore()
	metrics := testMetrics()
	bus := events.NewBus(16)
	gen := NewGenerator(m, reg, metrics, zerolog.Nop())
	ctrl := NewController(reg, gen, store, bus, metrics, zerolog.Nop())

	ch, cancel := bus.Subscribe()
	defer cancel()

	ctx := context.Background()
	ctrl.NextPrompt(ctx, "CA1")
	<-ch // question_asked
	if _, err := ctrl.AnswerReceived(ctx, "CA1", "reach me at jane@example.com"); err != nil {
		t.Fatalf("AnswerReceived() error = %v", err)
	}

	ev := <-ch
	if ev.Type != events.TypeAnswerReceived {
		t.Fatalf("event type = %q", ev.Type)
	}
	if ev.Text != "reach me at [REDACTED_EMAIL]" {
		t.Fatalf("event text = %q, want redacted", ev.Text)
	}
}
