package helpers

import "testing"

func TestTrimURL(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"https://a.com/x.", "https://a.com/x"},
		{"https://a.com/x),", "https://a.com/x"},
		{"https://en.wikipedia.org/wiki/Sovereignty_(food)", "https://en.wikipedia.org/wiki/Sovereignty_(food)"},
		{"  https://a.com/\"  ", "https://a.com/"},
		{"https://a.com/?q=1", "https://a.com/?q=1"},
	}
	for _, tt := range tests {
		if got := TrimURL(tt.in); got != tt.want {
			t.Fatalf("TrimURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSiteLabel(t *testing.T) {
	t.Parallel()
	if got := SiteLabel("https://www.BBC.com/news/x"); got != "bbc.com" {
		t.Fatalf("SiteLabel = %q", got)
	}
	if got := SiteLabel("not a url"); got != "" {
		t.Fatalf("SiteLabel(garbage) = %q", got)
	}
}

func TestHostWithin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		host, domain string
		want         bool
	}{
		{"google.com", "google.com", true},
		{"news.google.com", "google.com", true},
		{"notgoogle.com", "google.com", false},
		{"", "google.com", false},
	}
	for _, tt := range tests {
		if got := HostWithin(tt.host, tt.domain); got != tt.want {
			t.Fatalf("HostWithin(%q,%q) = %v", tt.host, tt.domain, got)
		}
	}
}

func TestIsHTTPURL(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]bool{
		"https://a.com/x":  true,
		"http://a.com":     true,
		"httpx://a.com":    false,
		"ftp://a.com":      false,
		"https://":         false,
		"www.example.com":  false,
		"javascript:alert": false,
	} {
		if got := IsHTTPURL(in); got != want {
			t.Fatalf("IsHTTPURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"https://WWW.Example.com/news/?b=2&a=1&utm_source=x#top", "https://example.com/news?a=1&b=2"},
		{"https://example.com/news", "https://example.com/news"},
	}
	for _, tt := range tests {
		got, err := CanonicalURL(tt.in)
		if err != nil {
			t.Fatalf("CanonicalURL(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := CanonicalURL("/relative/only"); err == nil {
		t.Fatalf("expected error for url without host")
	}
}
