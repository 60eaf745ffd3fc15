package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mohammad-safakhou/azadi/config"
)

// Gemini implements Model with the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini model. A missing API key is a ConfigurationError.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ConfigurationError{Setting: "GEMINI_API_KEY"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Generate issues one GenerateContent call.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.Grounding {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, wrapGenaiError(err)
	}
	return fromGenai(resp), nil
}

func wrapGenaiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Status: apiErr.Code, Err: err}
	}
	return &UpstreamError{Err: err}
}

func fromGenai(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}
	if resp == nil {
		return out
	}
	out.Text = resp.Text()
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return out
	}
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil || strings.TrimSpace(chunk.Web.URI) == "" {
			continue
		}
		out.Citations = append(out.Citations, Citation{
			URL:  strings.TrimSpace(chunk.Web.URI),
			Host: citationHost(chunk.Web.URI, chunk.Web.Title),
		})
	}
	return out
}

// citationHost prefers the title the search tool reports, which for web
// chunks is the publishing domain, and falls back to the URL host.
func citationHost(raw, title string) string {
	if t := strings.TrimSpace(title); t != "" && !strings.ContainsAny(t, " \t") && strings.Contains(t, ".") {
		return strings.ToLower(t)
	}
	if u, err := url.Parse(raw); err == nil {
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	return ""
}
