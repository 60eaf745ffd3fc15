package helpers

import "testing"

func TestCleanTextRemovesMarkup(t *testing.T) {
	input := `<p>Hello <strong>world</strong><script>alert('x')</script></p>`
	if got := CleanText(input, 0); got != "Hello world" {
		t.Fatalf("expected %q, got %q", "Hello world", got)
	}
}

func TestCleanTextDecodesEntitiesAndMarkdown(t *testing.T) {
	input := "  **Tenant   rights** & rent\ncontrol "
	want := "Tenant rights & rent control"
	if got := CleanText(input, 0); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCleanTextTruncates(t *testing.T) {
	got := CleanText("abcdefghij", 5)
	if got != "abcd…" {
		t.Fatalf("expected truncated text, got %q", got)
	}
	if CleanText("   ", 5) != "" {
		t.Fatalf("expected empty output for blank input")
	}
}
