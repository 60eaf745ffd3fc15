package helpers

import "testing"

func TestFormatCitation(t *testing.T) {
	t.Parallel()
	got := FormatCitation(Citation{
		Label:   "1",
		Title:   "Urban gardens are cooling cities",
		Snippet: "Local plots lower street temperatures.",
		URL:     "https://www.npr.org/2026/01/gardens",
	})
	want := `[1] Urban gardens are cooling cities — "Local plots lower street temperatures." (npr.org) <https://www.npr.org/2026/01/gardens>`
	if got != want {
		t.Fatalf("FormatCitation() = %q, want %q", got, want)
	}
}

func TestFormatCitationExplicitMeta(t *testing.T) {
	t.Parallel()
	got := FormatCitation(Citation{Title: "March", Meta: "Sat 2pm, 3 km", URL: "https://x.org"})
	want := `March (Sat 2pm, 3 km) <https://x.org>`
	if got != want {
		t.Fatalf("FormatCitation() = %q, want %q", got, want)
	}
}
