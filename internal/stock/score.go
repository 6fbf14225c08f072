package stock

import (
	"math"
	"strings"

	"storyreel/internal/fit"
)

// Composite ranking weights. The composite is a deterministic function of
// the four sub-scores.
const (
	weightKeyword     = 0.40
	weightDuration    = 0.30
	weightOrientation = 0.20
	weightQuality     = 0.10
)

const minKeywordTokenLen = 2

// KeywordScore rates how well the asset's tag list covers the query tokens.
// Tokens of length ≤2 are ignored. A query with no usable tokens is neutral
// (50); zero token matches but the full query appearing in the provider's
// metadata string scores a weak 30; nothing at all scores 10.
func KeywordScore(query string, a Asset) float64 {
	haystack := strings.ToLower(strings.Join(a.Tags, " "))

	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if len(tok) > minKeywordTokenLen {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return 50
	}

	matched := 0
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			matched++
		}
	}

	ratio := float64(matched) / float64(len(tokens))
	switch {
	case ratio >= 0.9:
		return 100
	case ratio >= 0.7:
		return 85
	case ratio >= 0.5:
		return 70
	case ratio >= 0.3:
		return 55
	case ratio > 0:
		return 40
	case strings.Contains(strings.ToLower(a.Metadata), strings.ToLower(strings.TrimSpace(query))):
		return 30
	default:
		return 10
	}
}

// QualityScore rates an asset on engagement metrics: base 50, boosted
// logarithmically by views, downloads, and likes where the provider exposes
// them, plus a flat +5 for video over image. Capped at 100.
func QualityScore(a Asset) float64 {
	score := 50.0
	if a.Views > 0 {
		score += 10 * math.Log10(float64(a.Views))
	}
	if a.Downloads > 0 {
		score += 5 * math.Log10(float64(a.Downloads))
	}
	if a.Likes > 0 {
		score += 2 * math.Log10(float64(a.Likes))
	}
	if a.Type == TypeVideo {
		score += 5
	}
	return math.Min(score, 100)
}

// Score attaches all four sub-scores and the composite ranking for one
// asset against one query and target duration. Pure.
func Score(query string, a Asset, targetSeconds float64) Candidate {
	c := Candidate{
		Asset:            a,
		MatchedQuery:     query,
		KeywordScore:     KeywordScore(query, a),
		DurationScore:    fit.DurationScore(a.Duration, targetSeconds),
		OrientationScore: fit.OrientationScore(a.Width, a.Height),
		QualityScore:     QualityScore(a),
	}
	c.Ranking = weightKeyword*c.KeywordScore +
		weightDuration*c.DurationScore +
		weightOrientation*c.OrientationScore +
		weightQuality*c.QualityScore
	return c
}

// rejected reports whether a candidate fails a hard gate: off-orientation,
// or a video too far from the target duration. Images never fail the
// duration gate (their score is the fixed neutral 60).
func rejected(c Candidate) bool {
	if c.OrientationScore == 0 {
		return true
	}
	return c.Type == TypeVideo && c.DurationScore == 0
}
