// Package client talks to a running gateway and renders its answers into a
// terminal panel, one request per panel at a time.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mohammad-safakhou/azadi/internal/httpclient"
	"github.com/mohammad-safakhou/azadi/models"
)

// Recommendations is a decoded gateway answer.
type Recommendations struct {
	Batch   models.Batch
	Cached  bool
	Message string
}

// Recommender fetches recommendations.
type Recommender interface {
	Recommend(ctx context.Context, kind models.Kind, issues []string, city string) (Recommendations, error)
}

// Client is the gateway's HTTP client.
type Client struct {
	base string
	http *httpclient.Client
}

// New returns a Client for the gateway at baseURL (e.g. http://localhost:3001).
func New(baseURL string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.New(90*time.Second, 0, 0)
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Path returns the API path serving kind.
func Path(kind models.Kind) string {
	switch kind {
	case models.KindCharities:
		return "/api/recommend-charities"
	case models.KindProtests:
		return "/api/nearby-protests"
	}
	return "/api/recommend-articles"
}

type recommendBody struct {
	Issues []string `json:"issues"`
	City   string   `json:"city,omitempty"`
}

type recommendReply struct {
	Recommendations json.RawMessage `json:"recommendations"`
	Protests        json.RawMessage `json:"protests"`
	Cached          bool            `json:"cached"`
	Message         string          `json:"message"`
}

// Recommend posts issues (and city, for protests) to the gateway.
func (c *Client) Recommend(ctx context.Context, kind models.Kind, issues []string, city string) (Recommendations, error) {
	var reply recommendReply
	body := recommendBody{Issues: issues}
	if kind == models.KindProtests {
		body.City = city
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, c.base+Path(kind), nil, body, &reply); err != nil {
		return Recommendations{}, err
	}

	out := Recommendations{Batch: models.Batch{Kind: kind}, Cached: reply.Cached, Message: reply.Message}
	var err error
	switch kind {
	case models.KindArticles:
		err = decodeList(reply.Recommendations, &out.Batch.Articles)
	case models.KindCharities:
		err = decodeList(reply.Recommendations, &out.Batch.Charities)
	case models.KindProtests:
		err = decodeList(reply.Protests, &out.Batch.Protests)
	default:
		err = fmt.Errorf("%w: %q", models.ErrUnknownKind, kind)
	}
	return out, err
}

func decodeList(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode recommendations: %w", err)
	}
	return nil
}
