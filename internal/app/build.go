package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/config"
	"github.com/novumlogic/intervox/internal/dialog"
	"github.com/novumlogic/intervox/internal/events"
	"github.com/novumlogic/intervox/internal/httpapi"
	"github.com/novumlogic/intervox/internal/observability"
	"github.com/novumlogic/intervox/internal/session"
	"github.com/novumlogic/intervox/internal/stt"
	"github.com/novumlogic/intervox/internal/telephony"
	"github.com/novumlogic/intervox/internal/transcript"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Registry
	Metrics  *observability.Metrics
	Log      zerolog.Logger

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	log := observability.NewLogger(cfg.LogLevel, cfg.LogPretty)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	transcripts, err := transcript.NewStore(ctx, cfg.DatabaseURL, cfg.TranscriptPath, log)
	if err != nil {
		return nil, fmt.Errorf("transcript store init failed: %w", err)
	}

	chatModel, err := buildChatModel(ctx, cfg)
	if err != nil {
		_ = transcripts.Close()
		return nil, fmt.Errorf("chat model init failed: %w", err)
	}
	if chatModel == nil {
		log.Warn().Msg("OPENAI_API_KEY not set, question generation degrades to the fallback question")
	}

	sessions := session.NewRegistry(cfg.SessionInactivityTimeout)
	sessions.SetEndedRetention(cfg.SessionRetention)
	sessions.SetExpireHook(func(_ *session.Call) {
		metrics.CallEvents.WithLabelValues("expired").Inc()
		metrics.ActiveCalls.Set(float64(sessions.ActiveCount()))
	})

	bus := events.NewBus(64)
	generator := dialog.NewGenerator(chatModel, sessions, metrics, log)
	controller := dialog.NewController(sessions, generator, transcripts, bus, metrics, log)

	twilio := telephony.NewClient(telephony.Config{
		AccountSID:    cfg.TwilioAccountSID,
		AuthToken:     cfg.TwilioAuthToken,
		FromNumber:    cfg.TwilioFromNumber,
		APIBaseURL:    cfg.TwilioAPIBaseURL,
		FetchAttempts: cfg.AudioFetchAttempts,
		FetchBackoff:  cfg.AudioFetchBackoff,
		FetchTimeout:  cfg.AudioFetchTimeout,
	}, log)
	twilio.SetFetchAttemptHook(func() {
		metrics.AudioFetchAttempts.Inc()
	})

	transcriber := stt.NewSarvamClient(stt.SarvamConfig{
		APIKey:   cfg.SarvamAPIKey,
		BaseURL:  cfg.SarvamBaseURL,
		Model:    cfg.SarvamModel,
		Language: cfg.SarvamLanguage,
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Sessions:    sessions,
		Dialog:      controller,
		Calls:       twilio,
		Recordings:  twilio,
		Transcriber: transcriber,
		Transcripts: transcripts,
		Bus:         bus,
		Metrics:     metrics,
		Log:         log,
	})

	cleanup := func() error {
		var errs []string
		bus.Close()
		if err := transcripts.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Metrics:  metrics,
		Log:      log,
		Cleanup:  cleanup,
	}, nil
}

// buildChatModel constructs the OpenAI-backed generator model. A missing API
// key is not fatal: the dialog layer falls back to a canned question.
func buildChatModel(ctx context.Context, cfg config.Config) (dialog.ChatModel, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, nil
	}
	temperature := float32(cfg.GenTemperature)
	maxTokens := cfg.GenMaxTokens
	model, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}
