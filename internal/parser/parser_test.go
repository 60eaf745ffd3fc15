package parser

import (
	"strings"
	"testing"
)

func TestParseTruncatedArrayKeepsClosedObjects(t *testing.T) {
	t.Parallel()
	in := `[{"url":"https://a.com","description":"x"},{"url":"https://b.c`
	recs, stage := ParseStage(in)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d: %v", len(recs), recs)
	}
	if stage != StageScan {
		t.Fatalf("stage = %s, want %s", stage, StageScan)
	}
	if recs[0]["url"] != "https://a.com" || recs[0]["description"] != "x" {
		t.Fatalf("unexpected record %v", recs[0])
	}
}

func TestParseStages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		in    string
		want  int
		stage Stage
	}{
		{"plain array", `[{"title":"a","url":"https://a.com"},{"title":"b","url":"https://b.com"}]`, 2, StageDirect},
		{"json fence", "```json\n[{\"title\":\"a\",\"url\":\"https://a.com\"}]\n```", 1, StageDirect},
		{"bare fence", "```\n[{\"name\":\"Food Bank\"}]\n```", 1, StageDirect},
		{"prose around", "Here you go:\n[{\"url\":\"https://a.com\"}]\nHope this helps!", 1, StageDirect},
		{"wrapper object", `{"recommendations":[{"url":"https://a.com"},{"url":"https://b.com"}]}`, 2, StageDirect},
		{"single record object", `{"name":"Red Cross","url":"https://redcross.org"}`, 1, StageDirect},
		{"dangling comma", `[{"url":"https://a.com",},]`, 1, StageRepair},
		{"cut after comma", `[{"url":"https://a.com"},`, 1, StageRepair},
		{"cut before closing", `[{"url":"https://a.com","title":"x"}`, 1, StageRepair},
		{"cut after value", `[{"url":"https://a.com","title":"x"`, 1, StageRepair},
		{"unclosed fence", "```json\n[{\"url\":\"https://a.com\"},{\"url\":\"https://b.com\"},{\"url\":\"htt", 2, StageScan},
		{"truncated wrapper", `{"results":[{"url":"https://a.com"},{"url":"https://b.com"},{"url":"https://c`, 2, StageScan},
		{"braces in strings", `[{"title":"a } b { c","url":"https://a.com"}, oops {"url":"https://b.com"}`, 2, StageScan},
		{"unknown keys dropped", `{"foo":1} {"bar":2} {"url":"https://a.com"} trailing`, 1, StageScan},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			recs, stage := ParseStage(tc.in)
			if len(recs) != tc.want {
				t.Fatalf("got %d records (%v), want %d", len(recs), recs, tc.want)
			}
			if stage != tc.stage {
				t.Fatalf("stage = %s, want %s", stage, tc.stage)
			}
		})
	}
}

func TestParseGarbageNeverPanics(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"",
		"   ",
		"I could not find any verified events.",
		"[[[[",
		"}}}]]]",
		`{"unterminated": "`,
		"```",
		"```json",
		strings.Repeat("{", 5000),
		"\uFEFF[]",
		`["just", "strings", 1, 2]`,
		`"a string"`,
		"null",
	}
	for _, in := range inputs {
		if recs := Parse(in); len(recs) != 0 {
			t.Fatalf("Parse(%.20q) = %v, want empty", in, recs)
		}
	}
}

func TestNormalizeAliases(t *testing.T) {
	t.Parallel()
	rec := Normalize(map[string]any{
		"Name":      "Climate March",
		"desc":      "  Walk downtown. ",
		"link":      "https://march.example.org",
		"Website":   "https://march.example.org/toronto",
		"date":      "2026-11-01",
		"venue":     "Queen's Park",
		"latitude":  "43.6629",
		"longitude": -79.3957,
		"publisher": "Example News",
	})
	if rec.Title != "Climate March" || rec.Description != "Walk downtown." {
		t.Fatalf("text fields: %+v", rec)
	}
	if rec.URL != "https://march.example.org" || rec.Website != "https://march.example.org/toronto" {
		t.Fatalf("url fields: %+v", rec)
	}
	if rec.When != "2026-11-01" || rec.Address != "Queen's Park" || rec.Source != "Example News" {
		t.Fatalf("event fields: %+v", rec)
	}
	if rec.Lat == nil || *rec.Lat != 43.6629 || rec.Lng == nil || *rec.Lng != -79.3957 {
		t.Fatalf("coordinates: %+v", rec)
	}
}

func TestNormalizePreferenceAndNesting(t *testing.T) {
	t.Parallel()
	rec := Normalize(map[string]any{
		"title":       "",
		"name":        "Fallback Name",
		"description": "primary",
		"summary":     "secondary",
		"location":    map[string]any{"lat": 45.5, "lng": -73.56},
		"lat":         "not a number",
	})
	if rec.Title != "Fallback Name" {
		t.Fatalf("empty title should fall through, got %q", rec.Title)
	}
	if rec.Description != "primary" {
		t.Fatalf("description = %q", rec.Description)
	}
	if rec.Address != "" {
		t.Fatalf("object location must not become an address: %q", rec.Address)
	}
	if rec.Lat == nil || *rec.Lat != 45.5 || rec.Lng == nil || *rec.Lng != -73.56 {
		t.Fatalf("nested coordinates: %+v", rec)
	}
}

func TestHasKnownField(t *testing.T) {
	t.Parallel()
	if HasKnownField(map[string]any{"foo": 1}) {
		t.Fatalf("foo is not a record field")
	}
	if !HasKnownField(map[string]any{"URL": "x"}) {
		t.Fatalf("keys must match case-insensitively")
	}
}
