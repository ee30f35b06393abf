package dialog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/events"
	"github.com/novumlogic/intervox/internal/observability"
	"github.com/novumlogic/intervox/internal/policy"
	"github.com/novumlogic/intervox/internal/session"
	"github.com/novumlogic/intervox/internal/transcript"
)

// Closing lines for the three terminal branches, always followed by goodbye.
const (
	closingCallback  = "Thank you for your time. We'll reach out at the mentioned time."
	closingNoFinal   = "Thank you for your time. We'll get back to you soon."
	closingWithFinal = "Thank you for your interest. We'll get back to you soon."
	goodbye          = "Goodbye."

	// A generated utterance containing this phrase ends the interview.
	terminalPhrase = "thank you for your time"
)

// negativeFinalResponses end the wrap-up exchange on the shorter closing line.
var negativeFinalResponses = map[string]struct{}{
	"no":         {},
	"nope":       {},
	"nothing":    {},
	"not really": {},
	"nah":        {},
}

// Outcome is what the telephony layer should do next: speak Say in order,
// then either record another answer or hang up.
type Outcome struct {
	Say          []string
	ExpectAnswer bool
}

// Controller drives the interview state machine: it decides, after each
// transcribed answer, whether to ask again or wrap up and persist.
type Controller struct {
	sessions    *session.Registry
	generator   *Generator
	transcripts transcript.Store
	bus         *events.Bus
	metrics     *observability.Metrics
	log         zerolog.Logger
}

func NewController(
	sessions *session.Registry,
	generator *Generator,
	transcripts transcript.Store,
	bus *events.Bus,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		sessions:    sessions,
		generator:   generator,
		transcripts: transcripts,
		bus:         bus,
		metrics:     metrics,
		log:         log,
	}
}

// NextPrompt produces the next question to speak when a call starts or
// continues. Never fails; generation degrades to a fallback question.
// The opening prompt always arms a recording: terminal and trigger
// phrases only take effect once an answer comes back through
// AnswerReceived.
func (c *Controller) NextPrompt(ctx context.Context, callID string) Outcome {
	lock := c.sessions.CallLock(callID)
	lock.Lock()
	defer lock.Unlock()

	question := c.askNext(ctx, callID)
	c.metrics.ActiveCalls.Set(float64(c.sessions.ActiveCount()))
	return Outcome{Say: []string{question}, ExpectAnswer: true}
}

// AnswerReceived runs one transition of the state machine for a transcribed
// answer. The returned error is a persistence failure only; every
// collaborator failure before that is absorbed.
func (c *Controller) AnswerReceived(ctx context.Context, callID, answer string) (Outcome, error) {
	lock := c.sessions.CallLock(callID)
	lock.Lock()
	defer lock.Unlock()

	call := c.sessions.GetOrCreate(callID)
	state := call.State

	// The answer always lands in the slot of the most recently asked question.
	slot := session.Slot(len(call.AskedQuestions))
	c.sessions.RecordAnswer(callID, slot, answer)
	c.publishAnswer(callID, slot, answer)

	switch state {
	case session.StateAwaitingCallbackTime:
		c.sessions.RecordAnswer(callID, session.CallbackSlot, answer)
		c.sessions.ClearState(callID)
		if err := c.finish(ctx, callID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Say: []string{closingCallback, goodbye}}, nil

	case session.StateAwaitingFinalResponse:
		c.sessions.ClearState(callID)
		closing := closingWithFinal
		if _, negative := negativeFinalResponses[strings.ToLower(strings.TrimSpace(answer))]; negative {
			closing = closingNoFinal
		}
		if err := c.finish(ctx, callID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Say: []string{closing, goodbye}}, nil
	}

	// StateNormal, StateAwaitingLocationCheck and StateAwaitingNext all
	// continue the interview; the location framing does not branch.
	question := c.askNext(ctx, callID)
	if strings.Contains(strings.ToLower(question), terminalPhrase) {
		c.sessions.ClearState(callID)
		if err := c.finish(ctx, callID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Say: []string{question, goodbye}}, nil
	}

	// The generator may have flagged the new question as a trigger; that
	// state must survive until the candidate's reply comes back.
	switch c.sessions.StateOf(callID) {
	case session.StateAwaitingCallbackTime, session.StateAwaitingFinalResponse, session.StateAwaitingLocationCheck:
	default:
		c.sessions.SetAwaitingNext(callID, len(call.AskedQuestions)+1)
	}
	return Outcome{Say: []string{question}, ExpectAnswer: true}, nil
}

// askNext generates, records and announces the next question.
func (c *Controller) askNext(ctx context.Context, callID string) string {
	start := time.Now()
	question := c.generator.Next(ctx, callID)
	c.metrics.ObserveTurnStage(observability.StageGenerate, time.Since(start))

	c.metrics.CallEvents.WithLabelValues("question_asked").Inc()
	c.bus.Publish(events.CallEvent{
		Type:    events.TypeQuestionAsked,
		CallSID: callID,
		Text:    question,
	})
	log := observability.WithCall(c.log, callID)
	log.Info().Str("question", question).Msg("asking candidate")
	return question
}

// finish persists the transcript and retires the session. Persistence
// failure propagates; the durable record is the whole point of the call.
func (c *Controller) finish(ctx context.Context, callID string) error {
	call, err := c.sessions.Get(callID)
	if err != nil {
		return fmt.Errorf("finish %s: %w", callID, err)
	}

	start := time.Now()
	entries := transcript.BuildEntries(call)
	if err := c.transcripts.Save(ctx, callID, entries); err != nil {
		c.metrics.ProviderErrors.WithLabelValues("store", "save").Inc()
		return fmt.Errorf("persist transcript for %s: %w", callID, err)
	}
	c.metrics.ObserveTurnStage(observability.StagePersist, time.Since(start))

	if _, err := c.sessions.End(callID); err != nil {
		return fmt.Errorf("end session %s: %w", callID, err)
	}
	c.metrics.ActiveCalls.Set(float64(c.sessions.ActiveCount()))
	c.metrics.CallEvents.WithLabelValues("completed").Inc()
	c.bus.Publish(events.CallEvent{
		Type:    events.TypeCallEnded,
		CallSID: callID,
	})
	log := observability.WithCall(c.log, callID)
	log.Info().Int("questions", len(entries)).Msg("interview finished, transcript saved")
	return nil
}

func (c *Controller) publishAnswer(callID, slot, answer string) {
	redacted, _ := policy.RedactPII(answer)
	c.metrics.CallEvents.WithLabelValues("answer_received").Inc()
	c.bus.Publish(events.CallEvent{
		Type:    events.TypeAnswerReceived,
		CallSID: callID,
		Slot:    slot,
		Text:    redacted,
	})
	log := observability.WithCall(c.log, callID)
	log.Debug().Str("slot", slot).Str("answer", redacted).Msg("answer recorded")
}
