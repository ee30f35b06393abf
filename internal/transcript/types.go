package transcript

import (
	"context"
	"errors"
	"strings"

	"github.com/novumlogic/intervox/internal/session"
)

// NoResponse marks a question whose answer slot stayed blank.
const NoResponse = "[no response]"

var ErrNotFound = errors.New("transcript not found")

// Entry is one persisted question/answer pair.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Store persists finished call transcripts keyed by call identifier. Saving
// the same call twice with the same entries is idempotent.
type Store interface {
	Save(ctx context.Context, callSID string, entries []Entry) error
	Get(ctx context.Context, callSID string) ([]Entry, error)
	Close() error
}

// BuildEntries pairs every asked question with its slot answer. A missing
// slot falls back to the most recently recorded answer value; an answer that
// is still blank after trimming becomes NoResponse. One entry per question,
// always.
func BuildEntries(call *session.Call) []Entry {
	entries := make([]Entry, 0, len(call.AskedQuestions))
	for i, q := range call.AskedQuestions {
		answer, ok := call.Answers[session.Slot(i+1)]
		if !ok || answer == "" {
			answer = call.LastAnswer
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			answer = NoResponse
		}
		entries = append(entries, Entry{Question: q, Answer: answer})
	}
	return entries
}
