// Package parser recovers recommendation records from model output that is
// supposed to be a JSON array but may be fenced, wrapped in prose, carry
// dangling commas, or stop mid-object.
//
// Parse never fails: the worst case is an empty result.
package parser

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// wrapperKeys are object keys models use to wrap the array they were asked for.
var wrapperKeys = []string{"recommendations", "results", "items", "articles", "charities", "protests", "events", "data"}

// repairSuffixes are appended, in order, to text that stopped short.
var repairSuffixes = []string{`"`, `}`, `]`, `}]`}

var danglingComma = regexp.MustCompile(`,\s*([\]}])`)

// Stage names the step that produced a result.
type Stage string

const (
	StageNone   Stage = "none"
	StageDirect Stage = "direct"
	StageRepair Stage = "repair"
	StageScan   Stage = "scan"
)

// Parse returns the records found in text, in order.
func Parse(text string) []map[string]any {
	recs, _ := ParseStage(text)
	return recs
}

// ParseStage is Parse that also reports which step succeeded.
func ParseStage(text string) (recs []map[string]any, stage Stage) {
	defer func() {
		if r := recover(); r != nil {
			recs, stage = nil, StageNone
		}
	}()

	s := cutProse(stripFences(text))
	if s == "" {
		return nil, StageNone
	}

	if recs := decodeRecords(s); len(recs) > 0 {
		return recs, StageDirect
	}
	if span, ok := balancedPrefix(s); ok {
		if recs := decodeRecords(span); len(recs) > 0 {
			return recs, StageDirect
		}
	}

	repaired := strings.TrimRight(danglingComma.ReplaceAllString(s, "$1"), " \t\r\n,")
	if recs := decodeRecords(repaired); len(recs) > 0 {
		return recs, StageRepair
	}
	for _, suffix := range repairSuffixes {
		if recs := decodeRecords(repaired + suffix); len(recs) > 0 {
			return recs, StageRepair
		}
	}

	for _, span := range objectSpans(s) {
		recs = append(recs, decodeRecords(span)...)
	}
	if len(recs) == 0 {
		return nil, StageNone
	}
	return recs, StageScan
}

// decodeRecords decodes s and returns its records. A value that decodes but
// holds no records counts as a failed step.
func decodeRecords(s string) []map[string]any {
	v, ok := decode(s)
	if !ok {
		return nil
	}
	return recordsFrom(v)
}

func decode(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case []any, map[string]any:
		return v, true
	}
	return nil, false
}

// recordsFrom flattens a decoded value into records. Objects inside arrays are
// kept as they are; a lone object is unwrapped when it holds the array under a
// wrapper key, or kept when it looks like a record itself.
func recordsFrom(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, el := range t {
			if m, ok := el.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		for _, k := range wrapperKeys {
			if inner, ok := lookup(t, k); ok {
				if arr, ok := inner.([]any); ok {
					return recordsFrom(arr)
				}
			}
		}
		if HasKnownField(t) {
			return []map[string]any{t}
		}
	}
	return nil
}

func lookup(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
