package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config contains all runtime settings for the interview call service.
type Config struct {
	BindAddr        string        `envconfig:"APP_BIND_ADDR" default:":8080"`
	PublicBaseURL   string        `envconfig:"APP_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"15s"`

	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty        bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsNamespace string `envconfig:"APP_METRICS_NAMESPACE" default:"intervox"`
	AllowAnyOrigin   bool   `envconfig:"APP_ALLOW_ANY_ORIGIN" default:"false"`

	TwilioAccountSID string `envconfig:"TWILIO_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
	TwilioAPIBaseURL string `envconfig:"TWILIO_API_BASE_URL" default:"https://api.twilio.com/2010-04-01"`

	SarvamAPIKey   string `envconfig:"SARVAM_API_KEY"`
	SarvamBaseURL  string `envconfig:"SARVAM_BASE_URL" default:"https://api.sarvam.ai"`
	SarvamModel    string `envconfig:"SARVAM_STT_MODEL" default:"saarika:v2.5"`
	SarvamLanguage string `envconfig:"SARVAM_STT_LANGUAGE" default:"en-IN"`

	OpenAIAPIKey   string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel    string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GenTemperature float64 `envconfig:"GEN_TEMPERATURE" default:"0.7"`
	GenMaxTokens   int     `envconfig:"GEN_MAX_TOKENS" default:"100"`

	// Record verb knobs: trailing-silence cutoff and hard cap, in seconds.
	RecordSilenceTimeout int `envconfig:"RECORD_SILENCE_TIMEOUT_S" default:"5"`
	RecordMaxDuration    int `envconfig:"RECORD_MAX_DURATION_S" default:"45"`

	AudioFetchAttempts int           `envconfig:"AUDIO_FETCH_ATTEMPTS" default:"3"`
	AudioFetchBackoff  time.Duration `envconfig:"AUDIO_FETCH_BACKOFF" default:"2s"`
	AudioFetchTimeout  time.Duration `envconfig:"AUDIO_FETCH_TIMEOUT" default:"10s"`

	TranscriptPath string `envconfig:"TRANSCRIPT_PATH" default:"data/responses.json"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`

	SessionInactivityTimeout time.Duration `envconfig:"APP_SESSION_INACTIVITY_TIMEOUT" default:"10m"`
	SessionRetention         time.Duration `envconfig:"APP_SESSION_RETENTION" default:"1m"`
}

// Load reads a .env file when present, then the environment, and validates.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("APP_PUBLIC_BASE_URL must not be empty")
	}
	if c.GenTemperature < 0 || c.GenTemperature > 2 {
		return fmt.Errorf("GEN_TEMPERATURE must be in [0, 2]")
	}
	if c.GenMaxTokens <= 0 {
		return fmt.Errorf("GEN_MAX_TOKENS must be positive")
	}
	if c.RecordSilenceTimeout <= 0 {
		return fmt.Errorf("RECORD_SILENCE_TIMEOUT_S must be positive")
	}
	if c.RecordMaxDuration <= 0 {
		return fmt.Errorf("RECORD_MAX_DURATION_S must be positive")
	}
	if c.AudioFetchAttempts < 1 {
		return fmt.Errorf("AUDIO_FETCH_ATTEMPTS must be at least 1")
	}
	if c.AudioFetchTimeout <= 0 {
		return fmt.Errorf("AUDIO_FETCH_TIMEOUT must be positive")
	}
	if c.SessionInactivityTimeout < 5*time.Second {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if strings.TrimSpace(c.TranscriptPath) == "" && strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("TRANSCRIPT_PATH or DATABASE_URL must be set")
	}
	return nil
}
