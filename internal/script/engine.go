// Package script turns a raw narration script into storyboard segments:
// length validation, moderation, LLM-driven segmentation, per-segment
// rewriting, visual query generation, and quality scoring.
package script

import (
	"context"
	"fmt"
	"math"
	"strings"

	apperrors "storyreel/internal/errors"
	"storyreel/internal/llm"
	"storyreel/internal/moderation"
	"storyreel/internal/storyboard"
	"storyreel/pkg/prompts"
)

const (
	defaultMinWords       = 300
	defaultMaxWords       = 5000
	defaultWordsPerMinute = 150

	defaultSegmentSeconds = 20.0
	defaultEnergy         = 50

	queryCount = 3
)

// LengthStatus classifies a script's word count.
type LengthStatus string

const (
	LengthTooShort LengthStatus = "too_short"
	LengthTooLong  LengthStatus = "too_long"
	LengthOptimal  LengthStatus = "optimal"
)

// LengthReport is the result of ValidateLength.
type LengthReport struct {
	WordCount        int
	Status           LengthStatus
	EstimatedSeconds float64
}

// Draft is one segment as produced by segmentation, before persistence.
type Draft struct {
	Text          string
	Energy        int
	Intent        storyboard.Intent
	TargetSeconds float64
}

// QuerySet carries the visual search phrases for one segment.
type QuerySet struct {
	Queries  []string
	Fallback string
}

// Engine drives every language-model stage. Construct once and share; all
// state is immutable after New.
type Engine struct {
	llm        llm.Client
	moderation *moderation.Service
	prompts    *prompts.Prompts

	minWords       int
	maxWords       int
	wordsPerMinute int
	temperature    float64
	maxTokens      int
}

// Options tunes the engine; zero values take the defaults above.
type Options struct {
	MinWords       int
	MaxWords       int
	WordsPerMinute int
	Temperature    float64
	MaxTokens      int
}

func NewEngine(client llm.Client, mod *moderation.Service, p *prompts.Prompts, opts Options) *Engine {
	if opts.MinWords == 0 {
		opts.MinWords = defaultMinWords
	}
	if opts.MaxWords == 0 {
		opts.MaxWords = defaultMaxWords
	}
	if opts.WordsPerMinute == 0 {
		opts.WordsPerMinute = defaultWordsPerMinute
	}
	return &Engine{
		llm:            client,
		moderation:     mod,
		prompts:        p,
		minWords:       opts.MinWords,
		maxWords:       opts.MaxWords,
		wordsPerMinute: opts.WordsPerMinute,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
	}
}

// ValidateLength classifies the script's word count and estimates its spoken
// duration at the configured reading speed. Pure.
func (e *Engine) ValidateLength(script string) LengthReport {
	words := len(strings.Fields(script))
	estimated := float64(words) / float64(e.wordsPerMinute) * 60

	status := LengthOptimal
	switch {
	case words < e.minWords:
		status = LengthTooShort
	case words > e.maxWords:
		status = LengthTooLong
	}

	return LengthReport{WordCount: words, Status: status, EstimatedSeconds: estimated}
}

// Moderate runs the script through the moderation policy. A flagged result
// returns CONTENT_FLAGGED carrying the category scores.
func (e *Engine) Moderate(ctx context.Context, script string) error {
	result, err := e.moderation.Check(ctx, script)
	if err != nil {
		return err
	}
	if result.Flagged {
		return apperrors.NewContentFlagged(result.Categories)
	}
	return nil
}

type segmentReply struct {
	Text            string   `json:"text"`
	Energy          *float64 `json:"energy"`
	Intent          string   `json:"intent"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Segment splits the script into drafts. Each reply field is repaired
// individually: energy clamped to [0,100], unknown intent defaults to
// explain, missing or non-positive duration hints default to 20s, blank
// text entries are dropped. An empty result is INVALID_SEGMENTATION.
func (e *Engine) Segment(ctx context.Context, script string) ([]Draft, error) {
	user, err := e.prompts.RenderSplit(prompts.SplitParams{Script: script})
	if err != nil {
		return nil, fmt.Errorf("render split prompt: %w", err)
	}

	content, err := e.complete(ctx, e.prompts.System.Segment, user)
	if err != nil {
		return nil, fmt.Errorf("segment script: %w", err)
	}

	replies, err := llm.ParseArray[segmentReply](content, []string{"segments"})
	if err != nil {
		return nil, apperrors.NewInvalidSegmentation(fmt.Sprintf("no segments in reply: %v", err))
	}

	drafts := make([]Draft, 0, len(replies))
	for _, r := range replies {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		drafts = append(drafts, Draft{
			Text:          text,
			Energy:        repairEnergy(r.Energy),
			Intent:        repairIntent(r.Intent),
			TargetSeconds: repairDuration(r.DurationSeconds),
		})
	}

	if len(drafts) == 0 {
		return nil, apperrors.NewInvalidSegmentation("segmentation produced no usable segments")
	}
	return drafts, nil
}

type optimizeReply struct {
	Text string `json:"text"`
}

// Optimize rewrites one draft's text for spoken delivery at its target
// duration and energy. Falls back to the original text when the model
// returns an empty rewrite.
func (e *Engine) Optimize(ctx context.Context, draft Draft) (string, error) {
	user, err := e.prompts.RenderOptimize(prompts.OptimizeParams{
		Text:          draft.Text,
		TargetSeconds: draft.TargetSeconds,
		Energy:        draft.Energy,
		Intent:        string(draft.Intent),
	})
	if err != nil {
		return "", fmt.Errorf("render optimize prompt: %w", err)
	}

	content, err := e.complete(ctx, e.prompts.System.Optimize, user)
	if err != nil {
		return "", fmt.Errorf("optimize segment: %w", err)
	}

	var reply optimizeReply
	if err := llm.DecodeObject(content, &reply); err != nil {
		return "", fmt.Errorf("optimize segment: %w", err)
	}

	text := strings.TrimSpace(reply.Text)
	if text == "" {
		return draft.Text, nil
	}
	return text, nil
}

type queriesReply struct {
	Queries  []string `json:"queries"`
	Fallback string   `json:"fallback"`
}

// GenerateQueries asks for 3 stock-footage search phrases plus a broad
// fallback. A malformed reply degrades to queries derived from the text
// itself instead of failing the segment.
func (e *Engine) GenerateQueries(ctx context.Context, text string) QuerySet {
	user, err := e.prompts.RenderQueries(prompts.QueryParams{Text: text})
	if err != nil {
		return fallbackQueries(text)
	}

	content, err := e.complete(ctx, e.prompts.System.Queries, user)
	if err != nil {
		return fallbackQueries(text)
	}

	var reply queriesReply
	if err := llm.DecodeObject(content, &reply); err != nil {
		return fallbackQueries(text)
	}

	queries := make([]string, 0, queryCount)
	for _, q := range reply.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
		if len(queries) == queryCount {
			break
		}
	}
	if len(queries) == 0 {
		return fallbackQueries(text)
	}

	fallback := strings.TrimSpace(reply.Fallback)
	if fallback == "" {
		fallback = genericFallback
	}
	return QuerySet{Queries: queries, Fallback: fallback}
}

type qualityReply struct {
	Clarity      float64  `json:"clarity"`
	Pacing       float64  `json:"pacing"`
	HookStrength float64  `json:"hook_strength"`
	Suggestions  []string `json:"suggestions"`
}

// QualityReport is the scored result of one script review.
type QualityReport struct {
	Clarity     int
	Pacing      int
	Hook        int
	Overall     int
	Level       storyboard.QualityLevel
	Suggestions []string
}

// ScoreQuality rates the script on clarity, pacing, and hook strength.
// Overall = round(0.40·clarity + 0.35·pacing + 0.25·hook).
func (e *Engine) ScoreQuality(ctx context.Context, script string) (*QualityReport, error) {
	user, err := e.prompts.RenderScore(prompts.ScoreParams{Script: script})
	if err != nil {
		return nil, fmt.Errorf("render score prompt: %w", err)
	}

	content, err := e.complete(ctx, e.prompts.System.Quality, user)
	if err != nil {
		return nil, fmt.Errorf("score quality: %w", err)
	}

	var reply qualityReply
	if err := llm.DecodeObject(content, &reply); err != nil {
		return nil, fmt.Errorf("score quality: %w", err)
	}

	clarity := clampScore(reply.Clarity)
	pacing := clampScore(reply.Pacing)
	hook := clampScore(reply.HookStrength)
	overall := OverallScore(clarity, pacing, hook)

	return &QualityReport{
		Clarity:     clarity,
		Pacing:      pacing,
		Hook:        hook,
		Overall:     overall,
		Level:       QualityLevelFor(overall),
		Suggestions: reply.Suggestions,
	}, nil
}

// OverallScore combines the three sub-scores with the fixed weights.
func OverallScore(clarity, pacing, hook int) int {
	return int(math.Round(0.40*float64(clarity) + 0.35*float64(pacing) + 0.25*float64(hook)))
}

// QualityLevelFor maps an overall score to its display band.
func QualityLevelFor(overall int) storyboard.QualityLevel {
	switch {
	case overall >= 75:
		return storyboard.QualityGreen
	case overall >= 60:
		return storyboard.QualityYellow
	default:
		return storyboard.QualityRed
	}
}

func (e *Engine) complete(ctx context.Context, system, user string) (string, error) {
	return e.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		JSONMode:    true,
	})
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

func repairEnergy(v *float64) int {
	if v == nil {
		return defaultEnergy
	}
	if *v < 0 {
		return 0
	}
	if *v > 100 {
		return 100
	}
	return int(math.Round(*v))
}

func repairIntent(s string) storyboard.Intent {
	intent := storyboard.Intent(strings.ToLower(strings.TrimSpace(s)))
	if storyboard.ValidIntent(intent) {
		return intent
	}
	return storyboard.IntentExplain
}

func repairDuration(v float64) float64 {
	if v <= 0 {
		return defaultSegmentSeconds
	}
	return v
}
