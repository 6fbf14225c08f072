// Package pexels implements the stock.Provider interface over the Pexels
// video and photo search APIs.
package pexels

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
	videoBaseURL   = "https://api.pexels.com/videos"
	photoBaseURL   = "https://api.pexels.com/v1"
	defaultTimeout = 15 * time.Second
	providerName   = "pexels"
)

type Client struct {
	apiKey       string
	httpClient   *httputil.RetryClient
	videoBaseURL string
	photoBaseURL string
	withPhotos   bool
}

type Config struct {
	APIKey     string
	Timeout    time.Duration
	WithPhotos bool
}

type videoSearchResponse struct {
	Videos []videoResult `json:"videos"`
}

type videoResult struct {
	ID         int         `json:"id"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Duration   float64     `json:"duration"`
	URL        string      `json:"url"`
	Image      string      `json:"image"`
	VideoFiles []videoFile `json:"video_files"`
}

type videoFile struct {
	Quality string `json:"quality"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Link    string `json:"link"`
}

type photoSearchResponse struct {
	Photos []photoResult `json:"photos"`
}

type photoResult struct {
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Src    struct {
		Large2x string `json:"large2x"`
		Large   string `json:"large"`
		Medium  string `json:"medium"`
	} `json:"src"`
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
		videoBaseURL: videoBaseURL,
		photoBaseURL: photoBaseURL,
		withPhotos:   cfg.WithPhotos,
	}
}

func (c *Client) Name() string { return providerName }

// SetBaseURLs overrides both endpoints for testing.
func (c *Client) SetBaseURLs(video, photo string) {
	c.videoBaseURL = video
	c.photoBaseURL = photo
}

// Search queries the video endpoint, plus the photo endpoint when the
// client was configured with photos enabled, and merges the normalized
// results.
func (c *Client) Search(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	assets, err := c.searchVideos(ctx, q)
	if err != nil {
		return nil, err
	}

	if c.withPhotos {
		photos, err := c.searchPhotos(ctx, q)
		if err != nil {
			return nil, err
		}
		assets = append(assets, photos...)
	}

	return assets, nil
}

func (c *Client) searchVideos(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	params := url.Values{}
	params.Set("query", q.Term)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Orientation != "" {
		params.Set("orientation", q.Orientation)
	}
	if q.MinDuration > 0 {
		params.Set("min_duration", strconv.Itoa(int(q.MinDuration)))
	}
	if q.MaxDuration > 0 {
		params.Set("max_duration", strconv.Itoa(int(q.MaxDuration)))
	}

	var resp videoSearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/search?%s", c.videoBaseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	assets := make([]stock.Asset, 0, len(resp.Videos))
	for _, v := range resp.Videos {
		asset := c.toVideoAsset(v)
		if asset != nil {
			assets = append(assets, *asset)
		}
	}
	return assets, nil
}

func (c *Client) searchPhotos(ctx context.Context, q stock.Query) ([]stock.Asset, error) {
	params := url.Values{}
	params.Set("query", q.Term)
	params.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Orientation != "" {
		params.Set("orientation", q.Orientation)
	}

	var resp photoSearchResponse
	if err := c.get(ctx, fmt.Sprintf("%s/search?%s", c.photoBaseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	assets := make([]stock.Asset, 0, len(resp.Photos))
	for _, p := range resp.Photos {
		fileURL := p.Src.Large2x
		if fileURL == "" {
			fileURL = p.Src.Large
		}
		if fileURL == "" {
			continue
		}
		assets = append(assets, stock.Asset{
			Provider: providerName,
			ID:       strconv.Itoa(p.ID),
			Type:     stock.TypeImage,
			URL:      fileURL,
			ThumbURL: p.Src.Medium,
			Width:    p.Width,
			Height:   p.Height,
			Tags:     slugWords(p.Alt),
			Metadata: p.Alt,
		})
	}
	return assets, nil
}

func (c *Client) get(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pexels api error: %s, body: %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) toVideoAsset(v videoResult) *stock.Asset {
	file := selectFile(v.VideoFiles)
	if file == nil {
		return nil
	}

	duration := v.Duration
	slug := pageSlug(v.URL)
	return &stock.Asset{
		Provider: providerName,
		ID:       strconv.Itoa(v.ID),
		Type:     stock.TypeVideo,
		URL:      file.Link,
		ThumbURL: v.Image,
		Duration: &duration,
		Width:    v.Width,
		Height:   v.Height,
		Tags:     slugWords(slug),
		Metadata: slug,
	}
}

// selectFile prefers the HD rendition, falling back to the first file.
func selectFile(files []videoFile) *videoFile {
	for _, f := range files {
		if f.Quality == "hd" {
			return &f
		}
	}
	if len(files) > 0 {
		return &files[0]
	}
	return nil
}

// pageSlug extracts the descriptive phrase from a Pexels page URL, e.g.
// ".../video/time-lapse-of-aurora-852435/" → "time lapse of aurora".
func pageSlug(pageURL string) string {
	trimmed := strings.TrimRight(pageURL, "/")
	slug := trimmed[strings.LastIndex(trimmed, "/")+1:]

	words := strings.Split(slug, "-")
	// drop the trailing numeric id
	if len(words) > 0 {
		if _, err := strconv.Atoi(words[len(words)-1]); err == nil {
			words = words[:len(words)-1]
		}
	}
	return strings.Join(words, " ")
}

func slugWords(phrase string) []string {
	fields := strings.Fields(strings.ToLower(phrase))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		w = strings.Trim(w, ".,!?;:\"'")
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
