package dialog

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/observability"
	"github.com/novumlogic/intervox/internal/session"
)

// ChatModel is the single-turn generation surface this package needs from an
// eino chat model. *openai.ChatModel satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Trigger phrases in generated text that move the session into a special
// state. Matching is case-insensitive substring, exactly as spoken.
const (
	triggerCallback = "good time to call you back"
	triggerFinal    = "do you have any questions"
	triggerLocation = "are you currently in vadodara"
)

// Generator produces the next spoken interview question for a call. It never
// fails: any collaborator problem degrades to FallbackQuestion so call flow
// survives generation outages.
type Generator struct {
	model    ChatModel
	sessions *session.Registry
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewGenerator(chatModel ChatModel, sessions *session.Registry, metrics *observability.Metrics, log zerolog.Logger) *Generator {
	return &Generator{
		model:    chatModel,
		sessions: sessions,
		metrics:  metrics,
		log:      log,
	}
}

// Next generates the next utterance for callID, appends it to the session's
// asked questions, and applies any trigger-phrase state. The session is
// created lazily on first call. Always returns a non-empty string.
func (g *Generator) Next(ctx context.Context, callID string) string {
	g.sessions.GetOrCreate(callID)
	history := g.sessions.History(callID)

	utterance := g.generate(ctx, callID, history)
	g.sessions.AppendQuestion(callID, utterance)

	if state, ok := classify(utterance); ok {
		g.sessions.SetState(callID, state)
	}
	return utterance
}

func (g *Generator) generate(ctx context.Context, callID string, history []session.QA) string {
	if g.model == nil {
		return FallbackQuestion
	}

	prompt := buildPrompt(history)
	resp, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		g.log.Error().Err(err).Str("call_sid", callID).Msg("question generation failed, using fallback")
		g.metrics.ProviderErrors.WithLabelValues("llm", "generate").Inc()
		g.metrics.ObserveTurnIndicator("generator_fallback")
		return FallbackQuestion
	}

	utterance := strings.TrimSpace(resp.Content)
	if utterance == "" {
		g.log.Warn().Str("call_sid", callID).Msg("question generation returned empty text, using fallback")
		g.metrics.ObserveTurnIndicator("generator_fallback")
		return FallbackQuestion
	}
	return utterance
}

// classify maps trigger phrases in a generated utterance to a session state.
func classify(utterance string) (session.State, bool) {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, triggerCallback):
		return session.StateAwaitingCallbackTime, true
	case strings.Contains(lower, triggerFinal):
		return session.StateAwaitingFinalResponse, true
	case strings.Contains(lower, triggerLocation):
		return session.StateAwaitingLocationCheck, true
	default:
		return session.StateNormal, false
	}
}
