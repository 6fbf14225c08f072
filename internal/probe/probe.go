// Package probe measures the duration of synthesized audio.
package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

const defaultFFprobe = "ffprobe"

// Prober reports the duration of an audio payload in seconds.
type Prober interface {
	Duration(ctx context.Context, audio []byte) (float64, error)
}

// FFProbe shells out to ffprobe over a temp file.
type FFProbe struct {
	binary string
}

func NewFFProbe() *FFProbe {
	return &FFProbe{binary: defaultFFprobe}
}

// SetBinary overrides the ffprobe path for testing.
func (p *FFProbe) SetBinary(path string) {
	p.binary = path
}

func (p *FFProbe) Duration(ctx context.Context, audio []byte) (float64, error) {
	tmp, err := os.CreateTemp("", "storyreel-probe-*.mp3")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(audio); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		tmp.Name(),
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var dur float64
	if _, err := fmt.Sscanf(string(output), "%f", &dur); err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return dur, nil
}

// Estimate derives a duration from the payload size and a known constant
// bitrate, for when probing fails. bitrate is in bits per second.
func Estimate(sizeBytes, bitrate int) float64 {
	if bitrate <= 0 || sizeBytes <= 0 {
		return 0
	}
	return float64(sizeBytes) * 8 / float64(bitrate)
}
