package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/novumlogic/intervox/internal/dialog"
	"github.com/novumlogic/intervox/internal/observability"
	"github.com/novumlogic/intervox/internal/telephony"
)

const (
	apologyFetch      = "Sorry, we could not access your recording. Please try again."
	apologyTranscribe = "Sorry, we couldn't transcribe your response."
)

// handleVoice greets the caller with the next prompt and arms a recording.
// Twilio hits this when the outbound call is answered.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	callSID := s.callSID(r)
	log := observability.WithCall(s.log, callSID)

	out := s.dialog.NextPrompt(r.Context(), callSID)
	log.Info().Int("prompts", len(out.Say)).Msg("voice webhook answered")

	s.respondOutcome(w, out)
}

// handleProcess receives a finished recording, turns it into text, and asks
// the dialog controller for the next step of the call.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callSID := s.callSID(r)
	log := observability.WithCall(s.log, callSID)

	recordingURL := strings.TrimSpace(r.FormValue("RecordingUrl"))
	if recordingURL == "" {
		respondError(w, http.StatusBadRequest, "missing_recording_url", "form field RecordingUrl is required")
		return
	}

	fetchStart := time.Now()
	audio, err := s.recordings.FetchRecording(r.Context(), recordingURL+".mp3")
	s.metrics.ObserveTurnStage(observability.StageAudioFetch, time.Since(fetchStart))
	if err != nil {
		log.Error().Err(err).Msg("recording fetch failed")
		s.metrics.ProviderErrors.WithLabelValues("twilio", "recording_fetch").Inc()
		s.respondApology(w, apologyFetch)
		return
	}

	sttStart := time.Now()
	answer, err := s.transcriber.Transcribe(r.Context(), audio)
	s.metrics.ObserveTurnStage(observability.StageTranscribe, time.Since(sttStart))
	if err != nil {
		log.Error().Err(err).Msg("transcription failed")
		s.metrics.ProviderErrors.WithLabelValues("sarvam", "transcribe").Inc()
		s.respondApology(w, apologyTranscribe)
		return
	}

	out, err := s.dialog.AnswerReceived(r.Context(), callSID, answer)
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	s.metrics.ObserveTurnLatency(time.Since(start))
	s.respondOutcome(w, out)
}

// callSID identifies the call. Twilio always sends CallSid; a missing value
// still gets a session so the turn is not lost, just under a synthetic id.
func (s *Server) callSID(r *http.Request) string {
	sid := strings.TrimSpace(r.FormValue("CallSid"))
	if sid == "" {
		sid = uuid.NewString()
	}
	return sid
}

// respondOutcome renders the controller's decision as TwiML, re-arming a
// recording only while the conversation expects another answer.
func (s *Server) respondOutcome(w http.ResponseWriter, out dialog.Outcome) {
	doc := telephony.NewTwiML()
	for _, line := range out.Say {
		doc.Say(line)
	}
	if out.ExpectAnswer {
		doc.Record("/process", s.cfg.RecordSilenceTimeout, s.cfg.RecordMaxDuration)
	}
	respondTwiML(w, doc)
}

// respondApology speaks the apology and lets the call end: no recording is
// re-armed, so the turn's answer slot is never written.
func (s *Server) respondApology(w http.ResponseWriter, apology string) {
	respondTwiML(w, telephony.NewTwiML().Say(apology))
}

func respondTwiML(w http.ResponseWriter, doc *telephony.TwiML) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.String()))
}
