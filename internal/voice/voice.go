// Package voice wraps the speech-to-text and text-to-speech vendor APIs
// consumed by the voice chat pipeline.
package voice

import "context"

// Transcriber converts spoken audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer converts text into spoken audio (MP3 bytes).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
