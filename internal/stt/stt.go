// Package stt adapts external speech-to-text services behind a single
// interface so capture code never depends on a concrete provider.
package stt

import "context"

// Transcriber converts captured PCM16 mono audio into text. An empty string
// with a nil error means no speech was recognized; callers treat that as
// "nothing heard", not a failure.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}
