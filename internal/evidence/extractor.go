// Package evidence derives the set of source URLs a model response is allowed
// to cite.
//
// Structured grounding citations win. URLs scraped from the free text are
// used only when the response carries no citations at all, and never when
// they point back at the model or search vendor.
package evidence

import (
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/azadi/internal/helpers"
	"github.com/mohammad-safakhou/azadi/internal/llm"
)

// DefaultSelfDomains are the vendor's own domains; links to them are never evidence.
var DefaultSelfDomains = []string{
	"google.com",
	"googleapis.com",
	"gstatic.com",
	"googleusercontent.com",
	"gemini.google.com",
	"ai.google.dev",
	"vertexaisearch.cloud.google.com",
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>\[\]{}|\\^` + "`" + `]+`)

// Evidence is the verified URL set for one response.
type Evidence struct {
	// Citations holds the deduplicated citations in the order the model
	// returned them (or the order URLs appeared in the text when Scraped).
	Citations []llm.Citation
	// Scraped is true when no structured citations were present.
	Scraped bool

	urls map[string]struct{}
	// hosts are publisher domains reported for citations whose URL is a
	// vendor redirect rather than the publisher's page.
	hosts map[string]struct{}
}

// Extractor builds Evidence from model responses.
type Extractor struct {
	selfDomains []string
}

// NewExtractor returns an Extractor that also ignores extraBlocked domains
// when scraping.
func NewExtractor(extraBlocked ...string) *Extractor {
	domains := append([]string(nil), DefaultSelfDomains...)
	for _, d := range extraBlocked {
		if d = strings.TrimSpace(d); d != "" {
			domains = append(domains, d)
		}
	}
	return &Extractor{selfDomains: domains}
}

// Extract returns the evidence for resp. A nil response yields empty evidence.
func (x *Extractor) Extract(resp *llm.Response) *Evidence {
	ev := &Evidence{urls: make(map[string]struct{}), hosts: make(map[string]struct{})}
	if resp == nil {
		return ev
	}
	for _, c := range resp.Citations {
		u := helpers.TrimURL(c.URL)
		if u == "" {
			continue
		}
		host := strings.TrimSpace(c.Host)
		if host == "" {
			host = helpers.SiteLabel(u)
		}
		if x.isSelf(helpers.HostOf(u)) {
			if h := strings.ToLower(host); strings.Contains(h, ".") && !x.isSelf(h) {
				ev.hosts[h] = struct{}{}
			}
		}
		ev.add(llm.Citation{URL: u, Host: host})
	}
	if len(ev.Citations) > 0 {
		return ev
	}

	ev.Scraped = true
	for _, m := range urlPattern.FindAllString(resp.Text, -1) {
		u := helpers.TrimURL(m)
		if !helpers.IsHTTPURL(u) || x.isSelf(helpers.HostOf(u)) {
			continue
		}
		ev.add(llm.Citation{URL: u, Host: helpers.SiteLabel(u)})
	}
	return ev
}

func (x *Extractor) isSelf(host string) bool {
	for _, d := range x.selfDomains {
		if helpers.HostWithin(host, d) {
			return true
		}
	}
	return false
}

func (ev *Evidence) add(c llm.Citation) {
	if _, ok := ev.urls[c.URL]; ok {
		return
	}
	ev.urls[c.URL] = struct{}{}
	ev.Citations = append(ev.Citations, c)
}

// Len returns the number of distinct evidence URLs.
func (ev *Evidence) Len() int {
	if ev == nil {
		return 0
	}
	return len(ev.Citations)
}

// URLs returns the evidence URLs in order.
func (ev *Evidence) URLs() []string {
	if ev == nil {
		return nil
	}
	out := make([]string, 0, len(ev.Citations))
	for _, c := range ev.Citations {
		out = append(out, c.URL)
	}
	return out
}

// Contains reports whether raw is corroborated: it equals an evidence URL, or
// one is a prefix of the other (a deep link under a cited page, or a cited
// page the model shortened). A URL on a publisher domain reported for a
// redirect citation is corroborated too, since the redirect hides the page.
func (ev *Evidence) Contains(raw string) bool {
	if ev == nil {
		return false
	}
	u := helpers.TrimURL(raw)
	if u == "" {
		return false
	}
	if _, ok := ev.urls[u]; ok {
		return true
	}
	for _, c := range ev.Citations {
		if prefixOnBoundary(u, c.URL) || prefixOnBoundary(c.URL, u) {
			return true
		}
	}
	if len(ev.hosts) > 0 && helpers.IsHTTPURL(u) {
		host := helpers.HostOf(u)
		for h := range ev.hosts {
			if helpers.HostWithin(host, h) {
				return true
			}
		}
	}
	return false
}

// prefixOnBoundary reports whether prefix is a prefix of s ending at a URL
// boundary, so https://a.com does not corroborate https://a.com.evil.net.
func prefixOnBoundary(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) || len(prefix) == len(s) {
		return false
	}
	if strings.HasSuffix(prefix, "/") {
		return true
	}
	switch s[len(prefix)] {
	case '/', '?', '#':
		return true
	}
	return false
}
