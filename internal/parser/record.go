package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Field is a canonical record field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldURL         Field = "url"
	FieldWebsite     Field = "website"
	FieldDescription Field = "description"
	FieldSource      Field = "source"
	FieldWhen        Field = "when"
	FieldAddress     Field = "address"
	FieldLat         Field = "lat"
	FieldLng         Field = "lng"
)

// aliases maps each canonical field to the keys models use for it, most
// preferred first. Keys are matched case-insensitively.
var aliases = map[Field][]string{
	FieldTitle:       {"title", "name", "headline", "organization", "organisation", "charity", "event", "event_name", "eventName"},
	FieldURL:         {"url", "link", "href", "uri", "source_url", "sourceUrl", "article_url", "articleUrl"},
	FieldWebsite:     {"website", "websiteUrl", "website_url", "homepage", "event_url", "eventUrl", "web"},
	FieldDescription: {"description", "desc", "summary", "snippet", "blurb", "about", "details", "why"},
	FieldSource:      {"source", "site", "site_name", "siteName", "publisher", "outlet", "publication"},
	FieldWhen:        {"when", "date", "datetime", "date_time", "start", "start_date", "startDate", "time"},
	FieldAddress:     {"address", "location", "venue", "place", "where"},
	FieldLat:         {"lat", "latitude"},
	FieldLng:         {"lng", "lon", "long", "longitude"},
}

// coordinateHolders are keys whose object value may carry lat/lng.
var coordinateHolders = []string{"coordinates", "coords", "geo", "position", "location"}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]Field {
	idx := make(map[string]Field)
	for f, keys := range aliases {
		for _, k := range keys {
			idx[strings.ToLower(k)] = f
		}
	}
	return idx
}

// Record is a model record resolved to canonical fields. Empty strings and
// nil coordinates mean the model did not supply a usable value.
type Record struct {
	Title       string
	URL         string
	Website     string
	Description string
	Source      string
	When        string
	Address     string
	Lat         *float64
	Lng         *float64
}

// HasKnownField reports whether raw has at least one key from the alias table.
func HasKnownField(raw map[string]any) bool {
	for k := range raw {
		if _, ok := aliasIndex[strings.ToLower(k)]; ok {
			return true
		}
	}
	return false
}

// Normalize resolves raw against the alias table.
func Normalize(raw map[string]any) Record {
	lower := make(map[string]any, len(raw))
	for k, v := range raw {
		lk := strings.ToLower(k)
		if _, seen := lower[lk]; !seen || k == lk {
			lower[lk] = v
		}
	}

	rec := Record{
		Title:       firstString(lower, FieldTitle),
		URL:         firstString(lower, FieldURL),
		Website:     firstString(lower, FieldWebsite),
		Description: firstString(lower, FieldDescription),
		Source:      firstString(lower, FieldSource),
		When:        firstString(lower, FieldWhen),
		Address:     firstString(lower, FieldAddress),
		Lat:         firstNumber(lower, FieldLat),
		Lng:         firstNumber(lower, FieldLng),
	}
	if rec.Lat == nil || rec.Lng == nil {
		for _, holder := range coordinateHolders {
			nested, ok := lower[holder].(map[string]any)
			if !ok {
				continue
			}
			inner := Normalize(nested)
			if inner.Lat != nil && inner.Lng != nil {
				rec.Lat, rec.Lng = inner.Lat, inner.Lng
				break
			}
		}
	}
	return rec
}

func firstString(m map[string]any, f Field) string {
	for _, k := range aliases[f] {
		v, ok := m[strings.ToLower(k)]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		}
	}
	return ""
}

func firstNumber(m map[string]any, f Field) *float64 {
	for _, k := range aliases[f] {
		v, ok := m[strings.ToLower(k)]
		if !ok {
			continue
		}
		var n float64
		switch t := v.(type) {
		case float64:
			n = t
		case json.Number:
			parsed, err := t.Float64()
			if err != nil {
				continue
			}
			n = parsed
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				continue
			}
			n = parsed
		default:
			continue
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			continue
		}
		return &n
	}
	return nil
}
