package storyboard

import (
	"fmt"
)

// Intent classifies a segment's narrative role.
type Intent string

const (
	IntentHook       Intent = "hook"
	IntentExplain    Intent = "explain"
	IntentTransition Intent = "transition"
	IntentConclude   Intent = "conclude"
)

// ValidIntent reports whether s names a known intent.
func ValidIntent(s Intent) bool {
	switch s {
	case IntentHook, IntentExplain, IntentTransition, IntentConclude:
		return true
	}
	return false
}

// AssetStatus describes a segment's visual treatment state.
type AssetStatus string

const (
	AssetStatusHasAsset       AssetStatus = "has_asset"
	AssetStatusNeedsSelection AssetStatus = "needs_selection"
	AssetStatusPlaceholder    AssetStatus = "placeholder"
)

// Segment is one storyboard entry. Ordinals are 1-based and contiguous per
// project. At most one of {selected asset, placeholder color, silence} is
// active at a time; the setters below keep that invariant.
type Segment struct {
	ProjectID     string
	Ordinal       int
	OriginalText  string
	OptimizedText string
	TargetSeconds float64
	Energy        int
	Intent        Intent
	Queries       []string
	FallbackQuery string

	AssetStatus      AssetStatus
	AssetProvider    string
	AssetID          string
	AssetURL         string
	PlaceholderColor string
	Silence          bool
	SilenceSeconds   float64
	SpeedFactor      float64

	AudioURL     string
	AudioSeconds float64
}

// SetAsset records a selected stock asset and clears the other treatments.
func (s *Segment) SetAsset(provider, id, url string, speedFactor float64) {
	s.AssetStatus = AssetStatusHasAsset
	s.AssetProvider = provider
	s.AssetID = id
	s.AssetURL = url
	s.SpeedFactor = speedFactor
	s.PlaceholderColor = ""
	s.Silence = false
	s.SilenceSeconds = 0
}

// SetPlaceholder switches the segment to a flat color background.
func (s *Segment) SetPlaceholder(color string) {
	s.AssetStatus = AssetStatusPlaceholder
	s.PlaceholderColor = color
	s.AssetProvider = ""
	s.AssetID = ""
	s.AssetURL = ""
	s.SpeedFactor = 1.0
	s.Silence = false
	s.SilenceSeconds = 0
}

// SetSilence marks the segment as a silent pause of the given length.
func (s *Segment) SetSilence(seconds float64) {
	s.Silence = true
	s.SilenceSeconds = seconds
	s.AssetStatus = AssetStatusNeedsSelection
	s.AssetProvider = ""
	s.AssetID = ""
	s.AssetURL = ""
	s.PlaceholderColor = ""
	s.SpeedFactor = 1.0
}

// Validate checks the treatment invariant and field ranges. Called at the
// persistence boundary so malformed segments never reach the database.
func (s *Segment) Validate() error {
	if s.Ordinal < 1 {
		return fmt.Errorf("segment ordinal %d: must be >= 1", s.Ordinal)
	}
	if s.Energy < 0 || s.Energy > 100 {
		return fmt.Errorf("segment %d: energy %d out of range [0,100]", s.Ordinal, s.Energy)
	}
	if !ValidIntent(s.Intent) {
		return fmt.Errorf("segment %d: unknown intent %q", s.Ordinal, s.Intent)
	}
	if s.TargetSeconds <= 0 {
		return fmt.Errorf("segment %d: target duration %.2f must be positive", s.Ordinal, s.TargetSeconds)
	}

	treatments := 0
	if s.AssetID != "" {
		treatments++
	}
	if s.PlaceholderColor != "" {
		treatments++
	}
	if s.Silence {
		treatments++
	}
	if treatments > 1 {
		return fmt.Errorf("segment %d: multiple visual treatments active", s.Ordinal)
	}
	if s.AssetStatus == AssetStatusHasAsset && s.AssetID == "" {
		return fmt.Errorf("segment %d: status has_asset without an asset ref", s.Ordinal)
	}
	if s.AssetStatus == AssetStatusPlaceholder && s.PlaceholderColor == "" {
		return fmt.Errorf("segment %d: status placeholder without a color", s.Ordinal)
	}
	return nil
}

// ValidateOrdinals checks that segments are 1-based, contiguous, and
// strictly increasing. Enforced on every wholesale replace.
func ValidateOrdinals(segments []Segment) error {
	for i, seg := range segments {
		if seg.Ordinal != i+1 {
			return fmt.Errorf("segment %d: ordinal %d, want %d (ordinals must be contiguous from 1)", i, seg.Ordinal, i+1)
		}
	}
	return nil
}
