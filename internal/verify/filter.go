// Package verify is the anti-hallucination gate: a record survives only when
// its link is corroborated by the evidence gathered for the same response.
// Dropped records are counted, never reported as errors.
package verify

import (
	"math"
	"strings"
	"time"

	"github.com/mohammad-safakhou/azadi/internal/evidence"
	"github.com/mohammad-safakhou/azadi/internal/helpers"
	"github.com/mohammad-safakhou/azadi/internal/parser"
	"github.com/mohammad-safakhou/azadi/models"
)

// Reason says why a record was dropped.
type Reason string

const (
	ReasonNoURL      Reason = "no_url"
	ReasonUnverified Reason = "unverified"
	ReasonDuplicate  Reason = "duplicate"
	ReasonNoName     Reason = "no_name"
	ReasonNoDate     Reason = "no_date"
	ReasonPastEvent  Reason = "past_event"
	ReasonOverLimit  Reason = "over_limit"
)

const (
	FallbackArticleDescription = "A recommended read on the issues you've been watching."
	FallbackCharityDescription = "An organisation working on the issues you've been watching."

	maxTitleRunes       = 200
	maxDescriptionRunes = 400
	maxAddressRunes     = 200
)

// Report counts drops by reason.
type Report struct {
	Kept    int
	Dropped map[Reason]int
}

func (r *Report) drop(reason Reason) {
	if r.Dropped == nil {
		r.Dropped = make(map[Reason]int)
	}
	r.Dropped[reason]++
}

// DroppedTotal returns the number of dropped records.
func (r Report) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// seen deduplicates by canonical URL.
type seen map[string]struct{}

func (s seen) add(raw string) bool {
	return s.addKey(canonical(raw))
}

func (s seen) addKey(key string) bool {
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

func canonical(raw string) string {
	if c, err := helpers.CanonicalURL(raw); err == nil {
		return c
	}
	return raw
}

// corroborated returns the trimmed URL when it is an http(s) URL backed by ev.
func corroborated(raw string, ev *evidence.Evidence) (string, Reason, bool) {
	u := helpers.TrimURL(raw)
	if !helpers.IsHTTPURL(u) {
		return "", ReasonNoURL, false
	}
	if !ev.Contains(u) {
		return "", ReasonUnverified, false
	}
	return u, "", true
}

// Articles keeps at most limit corroborated article records.
func Articles(recs []parser.Record, ev *evidence.Evidence, limit int) ([]models.Article, Report) {
	var (
		out    []models.Article
		report Report
		dedupe = seen{}
	)
	for _, rec := range recs {
		u, reason, ok := corroborated(rec.URL, ev)
		if !ok {
			report.drop(reason)
			continue
		}
		if !dedupe.add(u) {
			report.drop(ReasonDuplicate)
			continue
		}
		if len(out) >= limit {
			report.drop(ReasonOverLimit)
			continue
		}
		title := helpers.CleanText(rec.Title, maxTitleRunes)
		if title == "" {
			title = helpers.SiteLabel(u)
		}
		desc := helpers.CleanText(rec.Description, maxDescriptionRunes)
		if desc == "" {
			desc = FallbackArticleDescription
		}
		out = append(out, models.Article{
			Title:       title,
			URL:         u,
			Source:      helpers.SiteLabel(u),
			Description: desc,
		})
	}
	report.Kept = len(out)
	return out, report
}

// Charities keeps at most limit named, corroborated organisations.
func Charities(recs []parser.Record, ev *evidence.Evidence, limit int) ([]models.Charity, Report) {
	var (
		out    []models.Charity
		report Report
		dedupe = seen{}
	)
	for _, rec := range recs {
		name := helpers.CleanText(rec.Title, maxTitleRunes)
		if name == "" {
			report.drop(ReasonNoName)
			continue
		}
		raw := rec.URL
		if raw == "" {
			raw = rec.Website
		}
		u, reason, ok := corroborated(raw, ev)
		if !ok {
			report.drop(reason)
			continue
		}
		if !dedupe.add(u) {
			report.drop(ReasonDuplicate)
			continue
		}
		if len(out) >= limit {
			report.drop(ReasonOverLimit)
			continue
		}
		desc := helpers.CleanText(rec.Description, maxDescriptionRunes)
		if desc == "" {
			desc = FallbackCharityDescription
		}
		out = append(out, models.Charity{Name: name, Description: desc, URL: u})
	}
	report.Kept = len(out)
	return out, report
}

// ProtestOptions carries the request context protests are checked against.
type ProtestOptions struct {
	City string
	Now  time.Time
	// EnforceFutureDates drops events whose parsed date is before Now's day.
	// Dates that do not parse are kept.
	EnforceFutureDates bool
	Limit              int
}

// Protests keeps at most opts.Limit dated events with a corroborated website.
func Protests(recs []parser.Record, ev *evidence.Evidence, opts ProtestOptions) ([]models.Protest, Report) {
	var (
		out    []models.Protest
		report Report
		dedupe = seen{}
	)
	ref, refKnown := CityReference(opts.City)
	for _, rec := range recs {
		raw := rec.Website
		if raw == "" {
			raw = rec.URL
		}
		site, reason, ok := corroborated(raw, ev)
		if !ok {
			report.drop(reason)
			continue
		}
		when := helpers.CleanText(rec.When, maxTitleRunes)
		if when == "" {
			report.drop(ReasonNoDate)
			continue
		}
		if opts.EnforceFutureDates {
			if t, ok := ParseEventDate(when); ok && beforeDay(t, opts.Now) {
				report.drop(ReasonPastEvent)
				continue
			}
		}
		title := helpers.CleanText(rec.Title, maxTitleRunes)
		if !dedupe.addKey(canonical(site) + "|" + strings.ToLower(title) + "|" + when) {
			report.drop(ReasonDuplicate)
			continue
		}
		if len(out) >= opts.Limit {
			report.drop(ReasonOverLimit)
			continue
		}
		if title == "" {
			title = helpers.SiteLabel(site)
		}

		p := models.Protest{
			Title:       title,
			Description: helpers.CleanText(rec.Description, maxDescriptionRunes),
			When:        when,
			Address:     helpers.CleanText(rec.Address, maxAddressRunes),
			Website:     site,
		}
		var pt Point
		hasPoint := rec.Lat != nil && rec.Lng != nil
		if hasPoint {
			pt = Point{Lat: *rec.Lat, Lng: *rec.Lng}
			hasPoint = pt.Valid()
		}
		if hasPoint {
			lat, lng := pt.Lat, pt.Lng
			p.Lat, p.Lng = &lat, &lng
			p.MapURL = MapURL(pt)
			if refKnown {
				km := int(math.Round(Haversine(ref.Lat, ref.Lng, pt.Lat, pt.Lng)))
				p.Km = &km
			}
		} else {
			p.MapURL = AddressMapURL(p.Address, opts.City)
		}
		out = append(out, p)
	}
	report.Kept = len(out)
	return out, report
}
