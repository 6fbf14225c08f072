// Package fit reconciles asset durations and aspect ratios against segment
// targets. Everything here is pure: no clock, no randomness, no I/O, and
// malformed-but-parseable input degrades to a conservative score instead of
// an error.
package fit

import "math"

const (
	targetAspect = 16.0 / 9.0

	// duration mismatch bands
	silentMax = 0.05
	warnMax   = 0.20

	// placeholder gate for render readiness
	placeholderMax = 0.30

	neutralDurationScore = 60
)

// Level classifies a duration mismatch.
type Level string

const (
	LevelGood   Level = "good"
	LevelSilent Level = "silent"
	LevelWarn   Level = "warn"
	LevelBlock  Level = "block"
)

// Match is the reconciler's verdict on one asset/segment pairing.
// SpeedFactor is the playback multiplier that stretches or compresses the
// asset to the segment target; 1.0 when no adjustment applies.
type Match struct {
	Level       Level
	DiffPercent float64
	SpeedFactor float64
}

// DurationScore rates how well an asset duration fits the target. Images
// (nil duration) score a fixed neutral 60. Videos further than 50% from the
// target score 0 (hard reject); otherwise 100×(1−ratio).
func DurationScore(duration *float64, targetSeconds float64) float64 {
	if duration == nil {
		return neutralDurationScore
	}
	if targetSeconds <= 0 || *duration <= 0 {
		return 0
	}

	ratio := math.Abs(*duration-targetSeconds) / targetSeconds
	if ratio > 0.5 {
		return 0
	}
	return 100 * (1 - ratio)
}

// OrientationScore rates how close the frame is to 16:9. Deviation beyond
// 20% of the target aspect scores 0 (hard reject); within that, closer is
// better in steps.
func OrientationScore(width, height int) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}

	aspect := float64(width) / float64(height)
	deviation := math.Abs(aspect-targetAspect) / targetAspect

	switch {
	case deviation > 0.20:
		return 0
	case deviation <= 0.02:
		return 100
	case deviation <= 0.05:
		return 95
	case deviation <= 0.10:
		return 85
	case deviation <= 0.15:
		return 70
	default:
		return 60
	}
}

// Check classifies the mismatch between a selected asset's duration and the
// segment target. Images always pass as good with no speed adjustment.
// Mismatch ≤5% adjusts silently, 5–20% adjusts with a warning surfaced to
// the caller, >20% blocks the selection.
func Check(duration *float64, targetSeconds float64) Match {
	if duration == nil {
		return Match{Level: LevelGood, SpeedFactor: 1.0}
	}
	if targetSeconds <= 0 || *duration <= 0 {
		return Match{Level: LevelBlock, DiffPercent: 100, SpeedFactor: 1.0}
	}

	ratio := math.Abs(*duration-targetSeconds) / targetSeconds
	diffPercent := ratio * 100
	speed := targetSeconds / *duration

	switch {
	case ratio <= silentMax:
		return Match{Level: LevelSilent, DiffPercent: diffPercent, SpeedFactor: speed}
	case ratio <= warnMax:
		return Match{Level: LevelWarn, DiffPercent: diffPercent, SpeedFactor: speed}
	default:
		return Match{Level: LevelBlock, DiffPercent: diffPercent, SpeedFactor: 1.0}
	}
}

// PlaceholderRatio returns the fraction of segments on a placeholder
// treatment. Zero total counts as zero.
func PlaceholderRatio(placeholders, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(placeholders) / float64(total)
}

// RenderReady reports whether the storyboard passes the placeholder gate:
// placeholder segments must not exceed 30% of the total.
func RenderReady(placeholders, total int) bool {
	return PlaceholderRatio(placeholders, total) <= placeholderMax
}
