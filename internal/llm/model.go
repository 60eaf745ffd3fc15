// Package llm is the boundary to the hosted generative model.
//
// The gateway only needs a single "generate content" call that can turn on
// web-search grounding. Responses carry free text plus the citations the
// model reports for its search evidence; nothing about their structure is
// trusted.
package llm

import "context"

// Request is one generate-content call.
type Request struct {
	Prompt      string
	Grounding   bool
	Temperature float64
	MaxTokens   int
	// JSON asks for an application/json response. Ignored when Grounding is
	// set, since the search tool cannot be combined with a response MIME type.
	JSON bool
}

// Citation is a search-grounding reference reported by the model.
type Citation struct {
	URL  string `json:"url"`
	Host string `json:"host"`
}

// Response is the raw model output.
type Response struct {
	Text      string
	Citations []Citation
}

// Model generates content. Implementations return *UpstreamError for
// transport or HTTP failures.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req Request) (*Response, error)

func (f ModelFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
