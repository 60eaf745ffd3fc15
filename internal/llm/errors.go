package llm

import (
	"fmt"
	"net/http"
)

// ConfigurationError reports a missing setting, such as the API key. It is
// raised before any model call is attempted.
type ConfigurationError struct {
	Setting string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("server missing %s", e.Setting)
}

// UpstreamError reports a failed model call. Status is the upstream HTTP
// status when known, otherwise 0.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("model upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("model upstream unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// UserMessage is a short explanation safe to show to end users.
func (e *UpstreamError) UserMessage() string {
	switch e.Status {
	case http.StatusNotFound:
		return "Model not found. Check the configured model name and API key."
	case http.StatusTooManyRequests:
		return "Too many requests. Wait about a minute and try again."
	case http.StatusUnauthorized, http.StatusForbidden:
		return "AI service rejected the API key."
	}
	return "AI service error. Try again in a bit."
}
