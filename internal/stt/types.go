package stt

import "context"

// Transcriber converts one recorded answer into text. Implementations make a
// single attempt; the caller decides what a failure means for the call.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
