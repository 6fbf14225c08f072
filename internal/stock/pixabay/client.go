// Package pixabay implements the stock.Provider interface over the Pixabay
// image and video search APIs.
package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/stock"
	"storyreel/pkg/httputil"
)

const (
	baseURL        = "https://pixabay.com/api"
	defaultTimeout = 15 * time.Second
	providerName   = "pixabay"
)

type Client struct {
	apiKey     string
	httpClient *httputil.RetryClient
	baseURL    string
	withImages bool
}

type Config struct {
	APIKey     string
	Timeout    time.Duration
	WithImages bool
}

type videoSearchResponse struct {
	Hits []videoHit `json:"hits"`
}

type videoHit struct {
	ID        int     `json:"id"`
	Tags      string  `json:"tags"`
	Duration  float64 `json:"duration"`
	Views     int     `json:"views"`
	Downloads int     `json:"downloads"`
	Likes     int     `json:"likes"`
	Videos    struct {
		Large  videoRendition `json:"large"`
		Medium videoRendition `json:"medium"`
	} `json:"videos"`
}

type videoRendition struct {
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Thumbnail string `json:"thumbnail"`
}

type imageSearchResponse struct {
	Hits []imageHit `json:"hits"`
}

type imageHit struct {
	ID            int    `json:"id"`
	Tags          string `json:"tags"`
	Views         int    `json:"views"`
	Downloads     int    `json:"downloads"`
	Likes         int    `json:"likes"`
	LargeImageURL string `json:"largeImageURL"`
	PreviewURL    string `json:"previewURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey: cfg.APIKey,
		httpClient: httputil.NewRetryClient(
			&http.Client{Timeout: timeout},
			httputil.DefaultRetryConfig(),
		),
		baseURL:    baseURL,
		withImages: cfg.WithImages,
	}
}

func (c *Client) Name() string { return providerName }

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Search queries the video endpoint, plus the image endpoint when images
// are enabled. Pixabay has no duration filter, so duration bounds are left
// to the engine's scoring gates.
func (c *Client) Search(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	assets, err := c.searchVideos(ctx, q)
	if err != nil {
		return nil, err
	}

	if c.withImages {
		images, err := c.searchImages(ctx, q)
		if err != nil {
			return nil, err
		}
		assets = append(assets, images...)
	}

	return assets, nil
}

func (c *Client) searchVideos(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	var resp videoSearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/videos/?%s", c.baseURL, c.params(q).Encode()), &resp); err != nil {
		return nil, err
	}

	assets := make([]stock.Asset, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		rendition := hit.Videos.Large
		if rendition.URL == "" {
			rendition = hit.Videos.Medium
		}
		if rendition.URL == "" {
			continue
		}

		duration := hit.Duration
		assets = append(assets, stock.Asset{
			Provider:  providerName,
			ID:        strconv.Itoa(hit.ID),
			Type:      stock.TypeVideo,
			URL:       rendition.URL,
			ThumbURL:  rendition.Thumbnail,
			Duration:  &duration,
			Width:     rendition.Width,
			Height:    rendition.Height,
			Tags:      splitTags(hit.Tags),
			Metadata:  hit.Tags,
			Views:     hit.Views,
			Downloads: hit.Downloads,
			Likes:     hit.Likes,
		})
	}
	return assets, nil
}

func (c *Client) searchImages(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	var resp imageSearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/?%s", c.baseURL, c.params(q).Encode()), &resp); err != nil {
		return nil, err
	}

	assets := make([]stock.Asset, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.LargeImageURL == "" {
			continue
		}
		assets = append(assets, stock.Asset{
			Provider:  providerName,
			ID:        strconv.Itoa(hit.ID),
			Type:      stock.TypeImage,
			URL:       hit.LargeImageURL,
			ThumbURL:  hit.PreviewURL,
			Width:     hit.ImageWidth,
			Height:    hit.ImageHeight,
			Tags:      splitTags(hit.Tags),
			Metadata:  hit.Tags,
			Views:     hit.Views,
			Downloads: hit.Downloads,
			Likes:     hit.Likes,
		})
	}
	return assets, nil
}

func (c *Client) params(q stock.Query) url.Values {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", q.Term)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("safesearch", "true")
	if q.Orientation == "landscape" {
		params.Set("orientation", "horizontal")
	}
	return params
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pixabay api error: %s, body: %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// splitTags turns Pixabay's comma-joined tag string into a clean list.
func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
