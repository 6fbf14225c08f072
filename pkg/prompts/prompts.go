package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed defaults.yaml
var defaultsYAML []byte

type Prompts struct {
	System  SystemPrompts  `yaml:"system"`
	Segment SegmentPrompts `yaml:"segment"`
	Quality QualityPrompts `yaml:"quality"`
}

type SystemPrompts struct {
	Segment  string `yaml:"segment"`
	Optimize string `yaml:"optimize"`
	Queries  string `yaml:"queries"`
	Quality  string `yaml:"quality"`
	Rewrite  string `yaml:"rewrite"`
}

type SegmentPrompts struct {
	Split    string `yaml:"split"`
	Optimize string `yaml:"optimize"`
	Queries  string `yaml:"queries"`
}

type QualityPrompts struct {
	Score   string `yaml:"score"`
	Rewrite string `yaml:"rewrite"`
}

type SplitParams struct {
	Script string
}

type OptimizeParams struct {
	Text          string
	TargetSeconds float64
	Energy        int
	Intent        string
}

type QueryParams struct {
	Text string
}

type ScoreParams struct {
	Script string
}

type RewriteParams struct {
	Script      string
	Suggestions string
}

// Load returns the embedded default prompt set, overridden by prompts.yaml
// in the working directory when one exists.
func Load() (*Prompts, error) {
	if _, err := os.Stat(defaultPromptsPath); err == nil {
		return LoadFrom(defaultPromptsPath)
	}
	return parse(defaultsYAML)
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

func (p *Prompts) RenderSplit(params SplitParams) (string, error) {
	return render(p.Segment.Split, params)
}

func (p *Prompts) RenderOptimize(params OptimizeParams) (string, error) {
	return render(p.Segment.Optimize, params)
}

func (p *Prompts) RenderQueries(params QueryParams) (string, error) {
	return render(p.Segment.Queries, params)
}

func (p *Prompts) RenderScore(params ScoreParams) (string, error) {
	return render(p.Quality.Score, params)
}

func (p *Prompts) RenderRewrite(params RewriteParams) (string, error) {
	return render(p.Quality.Rewrite, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
