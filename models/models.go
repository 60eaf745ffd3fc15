package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a recommendation kind is not recognised.
var ErrUnknownKind = errors.New("unknown recommendation kind")

// Kind names a recommendation panel.
type Kind string

const (
	KindArticles  Kind = "articles"
	KindCharities Kind = "charities"
	KindProtests  Kind = "protests"
)

// Kinds lists every recommendation kind.
var Kinds = []Kind{KindArticles, KindCharities, KindProtests}

// ParseKind accepts the kind name or its panel title ("Articles").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindArticles, KindCharities, KindProtests:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Article is a verified news or feature article.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Description string `json:"description"`
}

// Charity is a verified organisation accepting support.
type Charity struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Protest is a verified upcoming event near the requested city.
type Protest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	When        string   `json:"when"`
	Address     string   `json:"address"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Km          *int     `json:"km,omitempty"`
	MapURL      string   `json:"mapUrl"`
	Website     string   `json:"website"`
}

// Batch is one cached recommendation result. Exactly one slice is populated,
// matching Kind.
type Batch struct {
	Kind      Kind      `json:"kind"`
	Articles  []Article `json:"articles,omitempty"`
	Charities []Charity `json:"charities,omitempty"`
	Protests  []Protest `json:"protests,omitempty"`
}

// Len returns the number of recommendations in the batch.
func (b Batch) Len() int {
	switch b.Kind {
	case KindArticles:
		return len(b.Articles)
	case KindCharities:
		return len(b.Charities)
	case KindProtests:
		return len(b.Protests)
	}
	return 0
}
