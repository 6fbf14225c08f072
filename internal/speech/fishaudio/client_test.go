package fishaudio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyreel/internal/speech"
)

var preset = speech.Preset{
	ID:               "narrator",
	FishAudioVoiceID: "ref-456",
	Speed:            1.2,
}

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Model") != "speech-1.6" {
			t.Errorf("Model = %q", r.Header.Get("Model"))
		}

		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "hello" {
			t.Errorf("text = %q", req.Text)
		}
		if req.Format != "mp3" || req.MP3Bitrate != 128 {
			t.Errorf("format = %q bitrate = %d", req.Format, req.MP3Bitrate)
		}
		if req.ReferenceID != "ref-456" {
			t.Errorf("reference_id = %q", req.ReferenceID)
		}
		if req.Prosody == nil || req.Prosody.Speed != 1.2 {
			t.Errorf("prosody = %+v", req.Prosody)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3 payload"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Model: "speech-1.6"})
	client.SetBaseURL(server.URL)

	audio, err := client.Synthesize(context.Background(), "hello", preset)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3 payload" {
		t.Errorf("audio = %q", audio)
	}
}

func TestSynthesizeNoProsodyWithoutSpeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prosody != nil {
			t.Errorf("prosody = %+v, want omitted", req.Prosody)
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURL(server.URL)

	if _, err := client.Synthesize(context.Background(), "hello", speech.Preset{FishAudioVoiceID: "ref"}); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
}

func TestSynthesizeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("insufficient credit"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURL(server.URL)

	_, err := client.Synthesize(context.Background(), "hello", preset)
	if err == nil || !strings.Contains(err.Error(), "insufficient credit") {
		t.Errorf("error = %v, want response body in message", err)
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURL(server.URL)

	if _, err := client.Synthesize(context.Background(), "hello", preset); err != nil {
		if !strings.Contains(err.Error(), "empty audio") {
			t.Errorf("error = %v", err)
		}
		return
	}
	t.Fatal("expected error for empty audio")
}
