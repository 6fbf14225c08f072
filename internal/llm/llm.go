package llm

import "context"

// Request is a single completion exchange. JSONMode asks the backend to
// constrain output to a JSON object.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// Client produces completions. Implementations wrap one backend; Retrying
// adds the retry policy shared by all pipeline stages.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
