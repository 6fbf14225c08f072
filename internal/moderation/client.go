package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storyreel/pkg/httputil"
)

const defaultTimeout = 15 * time.Second

// Classifier scores text against a set of content categories. Scores are
// in [0,1]; higher means more likely to belong to the category.
type Classifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// Client talks to an OpenAI-compatible /v1/moderations endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *httputil.RetryClient
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		httpClient: httputil.NewRetryClient(
			&http.Client{Timeout: timeout},
			httputil.DefaultRetryConfig(),
		),
	}
}

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

func (c *Client) Classify(ctx context.Context, text string) (map[string]float64, error) {
	data, err := json.Marshal(moderationRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		var errResp errorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("moderation api: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("moderation api: %s", resp.Status)
	}

	var modResp moderationResponse
	if err := json.Unmarshal(body, &modResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(modResp.Results) == 0 {
		return nil, fmt.Errorf("moderation api: empty results")
	}

	return modResp.Results[0].CategoryScores, nil
}
