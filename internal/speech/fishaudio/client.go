// Package fishaudio implements the speech.Provider interface over the Fish
// Audio text-to-speech API, used as the fallback behind ElevenLabs.
package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storyreel/internal/speech"
)

const (
	baseURL        = "https://api.fish.audio/v1/tts"
	defaultTimeout = 30 * time.Second
	providerName   = "fishaudio"
)

type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type synthesisRequest struct {
	Text        string   `json:"text"`
	Format      string   `json:"format,omitempty"`
	MP3Bitrate  int      `json:"mp3_bitrate,omitempty"`
	ReferenceID string   `json:"reference_id,omitempty"`
	Normalize   bool     `json:"normalize,omitempty"`
	Latency     string   `json:"latency,omitempty"`
	Prosody     *prosody `json:"prosody,omitempty"`
}

type prosody struct {
	Speed float64 `json:"speed"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

func (c *Client) Name() string { return providerName }

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *Client) Synthesize(ctx context.Context, text string, preset speech.Preset) ([]byte, error) {
	reqBody := synthesisRequest{
		Text:        text,
		Format:      "mp3",
		MP3Bitrate:  128,
		ReferenceID: preset.FishAudioVoiceID,
		Normalize:   true,
		Latency:     "normal",
	}
	if preset.Speed > 0 {
		reqBody.Prosody = &prosody{Speed: preset.Speed}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.model != "" {
		req.Header.Set("Model", c.model)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fish audio: %s - %s", resp.Status, string(body))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("fish audio: empty audio response")
	}
	return body, nil
}
