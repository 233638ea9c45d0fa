package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/askmynotes/backend/internal/domain"
)

// VoiceParams describes one spoken question.
type VoiceParams struct {
	Audio     []byte
	Filename  string
	SubjectID string
	SessionID string
	History   []domain.Turn
}

// VoiceResult is the voice pipeline output. Audio may be empty when
// synthesis failed; the textual answer is still valid.
type VoiceResult struct {
	Transcript string
	ChatResult
	Audio []byte
}

// VoiceChat runs STT on the audio, answers the transcript through the
// same gate-and-compose path as text chat, and synthesizes the answer.
//
// TTS failure is non-fatal here: the caller gets the textual answer
// with an empty audio payload and a warning is logged.
func (e *Engine) VoiceChat(ctx context.Context, p VoiceParams) (*VoiceResult, error) {
	if e.stt == nil || e.tts == nil {
		return nil, errors.New("voice providers are not configured")
	}

	sttStart := time.Now()
	transcript, err := e.stt.Transcribe(ctx, p.Audio, mimeTypeForAudio(p.Filename))
	e.metrics.UpstreamDuration.WithLabelValues("stt").Observe(time.Since(sttStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		// Never proceed to retrieval on empty input.
		return nil, ErrTranscriptionEmpty
	}
	e.logger.Printf("transcript (%d chars): %.120s", len(transcript), transcript)

	chat, err := e.Chat(ctx, ChatParams{
		Query:     transcript,
		SubjectID: p.SubjectID,
		SessionID: p.SessionID,
		History:   p.History,
		TopK:      e.voiceTopK,
	})
	if err != nil {
		return nil, err
	}

	ttsStart := time.Now()
	audio, err := e.tts.Synthesize(ctx, chat.Answer)
	e.metrics.UpstreamDuration.WithLabelValues("tts").Observe(time.Since(ttsStart).Seconds())
	if err != nil {
		e.logger.Printf("warning: speech synthesis failed, returning text only: %v", err)
		audio = nil
	}

	return &VoiceResult{
		Transcript: transcript,
		ChatResult: *chat,
		Audio:      audio,
	}, nil
}

// mimeTypeForAudio guesses the upload's MIME type from its extension.
func mimeTypeForAudio(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/webm"
	}
}
