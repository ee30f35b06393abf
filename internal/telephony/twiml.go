package telephony

import (
	"fmt"
	"strings"
)

// TwiML builds the small subset of Twilio voice verbs this service speaks:
// Say, Record, and Redirect, emitted in append order.
type TwiML struct {
	verbs []string
}

func NewTwiML() *TwiML {
	return &TwiML{}
}

func (t *TwiML) Say(text string) *TwiML {
	t.verbs = append(t.verbs, fmt.Sprintf("<Say>%s</Say>", escape(text)))
	return t
}

// Record asks the platform to record the caller and post the result to
// action. Timeout is the trailing-silence cutoff and maxLength the hard cap,
// both in seconds.
func (t *TwiML) Record(action string, timeoutSec, maxLengthSec int) *TwiML {
	t.verbs = append(t.verbs, fmt.Sprintf(
		`<Record timeout="%d" maxLength="%d" action="%s" method="POST"/>`,
		timeoutSec, maxLengthSec, escape(action),
	))
	return t
}

func (t *TwiML) Redirect(url string) *TwiML {
	t.verbs = append(t.verbs, fmt.Sprintf("<Redirect>%s</Redirect>", escape(url)))
	return t
}

func (t *TwiML) String() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><Response>`)
	for _, v := range t.verbs {
		b.WriteString(v)
	}
	b.WriteString("</Response>")
	return b.String()
}

// escape covers the characters XML gives meaning to. Apostrophes stay
// literal so spoken text reads naturally in the document.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escape(s string) string {
	return escaper.Replace(s)
}
