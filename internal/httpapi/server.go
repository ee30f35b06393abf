package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/novumlogic/intervox/internal/config"
	"github.com/novumlogic/intervox/internal/dialog"
	"github.com/novumlogic/intervox/internal/events"
	"github.com/novumlogic/intervox/internal/observability"
	"github.com/novumlogic/intervox/internal/session"
	"github.com/novumlogic/intervox/internal/stt"
	"github.com/novumlogic/intervox/internal/telephony"
	"github.com/novumlogic/intervox/internal/transcript"
)

// Conversation decides what to say next on a call.
type Conversation interface {
	NextPrompt(ctx context.Context, callID string) dialog.Outcome
	AnswerReceived(ctx context.Context, callID, answer string) (dialog.Outcome, error)
}

// CallCreator places an outbound call and returns the provider call SID.
type CallCreator interface {
	CreateCall(ctx context.Context, to, twiml string) (string, error)
}

// RecordingFetcher downloads a finished call recording.
type RecordingFetcher interface {
	FetchRecording(ctx context.Context, recordingURL string) ([]byte, error)
}

type Deps struct {
	Sessions    *session.Registry
	Dialog      Conversation
	Calls       CallCreator
	Recordings  RecordingFetcher
	Transcriber stt.Transcriber
	Transcripts transcript.Store
	Bus         *events.Bus
	Metrics     *observability.Metrics
	Log         zerolog.Logger
}

type Server struct {
	cfg         config.Config
	sessions    *session.Registry
	dialog      Conversation
	calls       CallCreator
	recordings  RecordingFetcher
	transcriber stt.Transcriber
	transcripts transcript.Store
	bus         *events.Bus
	metrics     *observability.Metrics
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    deps.Sessions,
		dialog:      deps.Dialog,
		calls:       deps.Calls,
		recordings:  deps.Recordings,
		transcriber: deps.Transcriber,
		transcripts: deps.Transcripts,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		log:         deps.Log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so a stray page cannot watch live call events
				// if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	// Twilio webhooks. Twilio posts application/x-www-form-urlencoded and
	// expects TwiML back.
	r.Post("/voice", s.handleVoice)
	r.Post("/process", s.handleProcess)

	r.Post("/call", s.handleInitiateCall)
	r.Get("/v1/calls/events", s.handleCallEvents)
	r.Get("/v1/calls/{id}/transcript", s.handleGetTranscript)
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"active_calls": s.sessions.ActiveCount(),
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.metrics.SnapshotTurnStages())
}

type initiateCallRequest struct {
	To string `json:"to"`
}

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.To) == "" {
		respondError(w, http.StatusBadRequest, "missing_destination", "field 'to' is required")
		return
	}
	if s.calls == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "telephony client not configured")
		return
	}

	twiml := telephony.NewTwiML().Redirect(s.cfg.PublicBaseURL + "/voice").String()
	sid, err := s.calls.CreateCall(r.Context(), req.To, twiml)
	if err != nil {
		s.log.Error().Err(err).Msg("create call failed")
		respondError(w, http.StatusBadGateway, "call_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "calling",
		"sid":    sid,
	})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_call_id", "missing call id")
		return
	}
	entries, err := s.transcripts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			respondError(w, http.StatusNotFound, "transcript_not_found", "no transcript for call "+id)
			return
		}
		respondError(w, http.StatusInternalServerError, "transcript_read_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"call_sid": id,
		"entries":  entries,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
