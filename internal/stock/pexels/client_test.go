package pexels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"storyreel/internal/stock"
)

func videoServer(t *testing.T, resp videoSearchResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("Authorization = %q, want test-key", r.Header.Get("Authorization"))
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestSearchVideos(t *testing.T) {
	server := videoServer(t, videoSearchResponse{
		Videos: []videoResult{
			{
				ID:       852435,
				Width:    1920,
				Height:   1080,
				Duration: 18,
				URL:      "https://www.pexels.com/video/time-lapse-of-aurora-852435/",
				Image:    "https://images.pexels.com/thumb.jpg",
				VideoFiles: []videoFile{
					{Quality: "sd", Width: 640, Height: 360, Link: "https://cdn.pexels.com/sd.mp4"},
					{Quality: "hd", Width: 1920, Height: 1080, Link: "https://cdn.pexels.com/hd.mp4"},
				},
			},
			{
				// no files: dropped
				ID:  999,
				URL: "https://www.pexels.com/video/empty-999/",
			},
		},
	})
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURLs(server.URL, server.URL)

	assets, err := client.Search(context.Background(), stock.Query{Term: "aurora", PerPage: 5, Orientation: "landscape"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("len(assets) = %d, want 1", len(assets))
	}

	a := assets[0]
	if a.Provider != "pexels" || a.ID != "852435" {
		t.Errorf("identity = %s/%s", a.Provider, a.ID)
	}
	if a.Type != stock.TypeVideo {
		t.Errorf("Type = %v, want video", a.Type)
	}
	if a.URL != "https://cdn.pexels.com/hd.mp4" {
		t.Errorf("URL = %q, want the hd rendition", a.URL)
	}
	if a.Duration == nil || *a.Duration != 18 {
		t.Errorf("Duration = %v, want 18", a.Duration)
	}
	if a.Metadata != "time lapse of aurora" {
		t.Errorf("Metadata = %q", a.Metadata)
	}
	if !reflect.DeepEqual(a.Tags, []string{"time", "lapse", "of", "aurora"}) {
		t.Errorf("Tags = %v", a.Tags)
	}
}

func TestSearchSendsDurationBounds(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(videoSearchResponse{})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURLs(server.URL, server.URL)

	_, err := client.Search(context.Background(), stock.Query{
		Term:        "city",
		MinDuration: 10,
		MaxDuration: 30,
		PerPage:     15,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := gotQuery["min_duration"]; len(got) != 1 || got[0] != "10" {
		t.Errorf("min_duration = %v, want [10]", got)
	}
	if got := gotQuery["max_duration"]; len(got) != 1 || got[0] != "30" {
		t.Errorf("max_duration = %v, want [30]", got)
	}
}

func TestSearchWithPhotos(t *testing.T) {
	videoSrv := videoServer(t, videoSearchResponse{})
	defer videoSrv.Close()

	photoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(photoSearchResponse{
			Photos: []photoResult{
				{
					ID:     17,
					Width:  1920,
					Height: 1080,
					Alt:    "City skyline at dusk",
					Src: struct {
						Large2x string `json:"large2x"`
						Large   string `json:"large"`
						Medium  string `json:"medium"`
					}{Large2x: "https://cdn.pexels.com/large2x.jpg", Medium: "https://cdn.pexels.com/medium.jpg"},
				},
			},
		})
	}))
	defer photoSrv.Close()

	client := NewClient(Config{APIKey: "test-key", WithPhotos: true})
	client.SetBaseURLs(videoSrv.URL, photoSrv.URL)

	assets, err := client.Search(context.Background(), stock.Query{Term: "city", PerPage: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("len(assets) = %d, want 1 photo", len(assets))
	}
	if assets[0].Type != stock.TypeImage {
		t.Errorf("Type = %v, want image", assets[0].Type)
	}
	if assets[0].Duration != nil {
		t.Error("image Duration should be nil")
	}
	if assets[0].URL != "https://cdn.pexels.com/large2x.jpg" {
		t.Errorf("URL = %q", assets[0].URL)
	}
}

func TestSearchAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad"})
	client.SetBaseURLs(server.URL, server.URL)

	if _, err := client.Search(context.Background(), stock.Query{Term: "city"}); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestPageSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.pexels.com/video/time-lapse-of-aurora-852435/", "time lapse of aurora"},
		{"https://www.pexels.com/video/ocean-42/", "ocean"},
		{"https://www.pexels.com/video/nodigits/", "nodigits"},
	}
	for _, tt := range tests {
		if got := pageSlug(tt.url); got != tt.want {
			t.Errorf("pageSlug(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
