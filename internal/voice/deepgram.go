package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const deepgramURL = "https://api.deepgram.com/v1/listen"

// Deepgram is a speech-to-text client for Deepgram's pre-recorded
// transcription API.
type Deepgram struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewDeepgram(apiKey, model string, timeout time.Duration) *Deepgram {
	if model == "" {
		model = "nova-2"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Deepgram{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe sends raw audio bytes to Deepgram and returns the
// transcript. An unexpected response shape yields an empty transcript,
// not an error; the caller decides how to treat blank text.
func (d *Deepgram) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("deepgram api key is not set")
	}
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	params := url.Values{}
	params.Set("model", d.model)
	params.Set("smart_format", "true")
	params.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		deepgramURL+"?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("deepgram STT failed (%d): %s", resp.StatusCode, string(b))
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse deepgram response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}
