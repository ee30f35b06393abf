package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/policy"
	"github.com/novumlogic/intervox/internal/reliability"
)

const defaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	APIBaseURL string

	// Recording downloads retry against the media host; call creation does not.
	FetchAttempts int
	FetchBackoff  time.Duration
	FetchTimeout  time.Duration
}

// Client talks to the Twilio REST API: outbound call creation and
// credentialed recording downloads.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	onFetchAttempt func()
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.FetchAttempts <= 0 {
		cfg.FetchAttempts = 3
	}
	if cfg.FetchBackoff <= 0 {
		cfg.FetchBackoff = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log,
	}
}

// SetFetchAttemptHook registers a callback fired once per download attempt,
// used for metrics.
func (c *Client) SetFetchAttemptHook(hook func()) {
	c.onFetchAttempt = hook
}

// CreateCall places an outbound call to the given number, executing the
// provided TwiML when answered. Returns the platform call SID.
func (c *Client) CreateCall(ctx context.Context, to, twiml string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Twiml", twiml)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.cfg.APIBaseURL, c.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	c.log.Info().Str("to", policy.MaskPhone(to)).Msg("placing outbound call")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("create call status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode call response: %w", err)
	}
	if parsed.SID == "" {
		return "", fmt.Errorf("create call: response missing sid")
	}
	return parsed.SID, nil
}

// FetchRecording downloads a recorded answer with bounded retries: fixed
// backoff between attempts and a per-attempt timeout. Every failure is
// retried until attempts run out.
func (c *Client) FetchRecording(ctx context.Context, recordingURL string) ([]byte, error) {
	var audio []byte
	attempt := 0

	err := reliability.Retry(ctx, reliability.RetryConfig{
		MaxAttempts: c.cfg.FetchAttempts,
		Backoff:     c.cfg.FetchBackoff,
	}, func(ctx context.Context) error {
		attempt++
		if c.onFetchAttempt != nil {
			c.onFetchAttempt()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, recordingURL, nil)
		if err != nil {
			return fmt.Errorf("build recording request: %w", err)
		}
		req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

		res, err := c.http.Do(req)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("recording download failed")
			return fmt.Errorf("download recording: %w", err)
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			c.log.Warn().Int("status", res.StatusCode).Int("attempt", attempt).Msg("recording download failed")
			return fmt.Errorf("download recording status %d", res.StatusCode)
		}

		audio, err = io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read recording: %w", err)
		}
		return nil
	}, nil)

	if err != nil {
		return nil, err
	}
	return audio, nil
}
