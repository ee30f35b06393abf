package session

import "fmt"

// State tags what the dialog layer expects from the caller's next utterance.
type State string

const (
	// StateNormal means no special expectation; the controller decides.
	StateNormal State = ""
	// StateAwaitingCallbackTime means the next answer is a callback time and ends the call.
	StateAwaitingCallbackTime State = "awaiting_callback_time"
	// StateAwaitingFinalResponse means the wrap-up question was asked; the next answer ends the call.
	StateAwaitingFinalResponse State = "awaiting_final_response"
	// StateAwaitingLocationCheck marks the location question; it transitions like StateNormal.
	StateAwaitingLocationCheck State = "awaiting_location_check"
	// StateAwaitingNext means a follow-up question was asked and an answer for NextSlot is expected.
	StateAwaitingNext State = "awaiting_next"
)

// CallbackSlot is the answer slot holding the caller's preferred callback time.
const CallbackSlot = "callback_time"

// Slot returns the answer slot key for a 1-based question index.
func Slot(index int) string {
	return fmt.Sprintf("q%d", index)
}

// QA is one question/answer pair from a call's history. Answer is empty
// until the caller has responded.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
