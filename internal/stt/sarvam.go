package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultSarvamBaseURL = "https://api.sarvam.ai"

type SarvamConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// SarvamClient calls the Sarvam speech-to-text REST endpoint with a recorded
// MP3 answer.
type SarvamClient struct {
	cfg  SarvamConfig
	http *http.Client
}

func NewSarvamClient(cfg SarvamConfig) *SarvamClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSarvamBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "saarika:v2.5"
	}
	if cfg.Language == "" {
		cfg.Language = "en-IN"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SarvamClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *SarvamClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.WriteField("language_code", c.cfg.Language); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/speech-to-text", &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("api-subscription-key", c.cfg.APIKey)

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech-to-text request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("speech-to-text status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	return strings.TrimSpace(parsed.Transcript), nil
}
