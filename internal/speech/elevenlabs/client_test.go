package elevenlabs

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
	ID:                "narrator",
	ElevenLabsVoiceID: "voice-123",
	Stability:         0.5,
	Similarity:        0.6,
	Speed:             1.1,
}

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("xi-api-key = %q", r.Header.Get("xi-api-key"))
		}
		if !strings.HasSuffix(r.URL.Path, "/voice-123") {
			t.Errorf("path = %q, want voice id suffix", r.URL.Path)
		}

		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "hello" {
			t.Errorf("text = %q", req.Text)
		}
		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.Speed != 1.1 {
			t.Errorf("voice settings = %+v", req.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3 payload"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", Model: "eleven_flash_v2_5"})
	client.SetBaseURL(server.URL)

	audio, err := client.Synthesize(context.Background(), "hello", preset)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3 payload" {
		t.Errorf("audio = %q", audio)
	}
}

func TestSynthesizeErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": {"message": "invalid api key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad"})
	client.SetBaseURL(server.URL)

	_, err := client.Synthesize(context.Background(), "hello", preset)
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error = %v, want the api detail message", err)
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURL(server.URL)

	if _, err := client.Synthesize(context.Background(), "hello", preset); err == nil {
		t.Fatal("expected error for empty audio")
	}
}

func TestSynthesizeMissingVoiceID(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key"})

	_, err := client.Synthesize(context.Background(), "hello", speech.Preset{ID: "no-voice"})
	if err == nil {
		t.Fatal("expected error for preset without an elevenlabs voice id")
	}
}
