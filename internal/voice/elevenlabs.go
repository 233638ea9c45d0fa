package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const elevenLabsURLFormat = "https://api.elevenlabs.io/v1/text-to-speech/%s"

// ElevenLabs is a text-to-speech client returning MP3 audio.
type ElevenLabs struct {
	apiKey     string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

func NewElevenLabs(apiKey, voiceID, modelID string, timeout time.Duration) *ElevenLabs {
	if voiceID == "" {
		voiceID = "21m00Tcm4TlvDq8ikWAM"
	}
	if modelID == "" {
		modelID = "eleven_turbo_v2_5"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &ElevenLabs{
		apiKey:     apiKey,
		voiceID:    voiceID,
		modelID:    modelID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Synthesize converts text to speech and returns the MP3 bytes.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is not set")
	}

	body := map[string]interface{}{
		"text":     text,
		"model_id": e.modelID,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(elevenLabsURLFormat, e.voiceID), bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs TTS failed (%d): %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
