package render

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	r := New()
	out, err := r.Markdown([]byte("# Hello\n\nThis is a *test*."))
	if err != nil {
		t.Fatalf("Markdown failed: %v", err)
	}
	if !strings.Contains(out, "<h1") || !strings.Contains(out, "Hello</h1>") {
		t.Error("expected H1 tag containing 'Hello' in HTML")
	}
	if !strings.Contains(out, "<em>test</em>") {
		t.Error("expected italicized test in HTML")
	}
}

func TestHighlight_Rust(t *testing.T) {
	r := New()
	out, err := r.Highlight("lib.rs", "fn foo() {}")
	if err != nil {
		t.Fatalf("Highlight failed: %v", err)
	}
	if !strings.Contains(out, "foo") {
		t.Error("expected source text in highlighted output")
	}
	if !strings.Contains(out, "class=") {
		t.Error("expected classed spans in highlighted output")
	}
}

func TestHighlight_UnknownExtension(t *testing.T) {
	r := New()
	out, err := r.Highlight("data.xyzzy", "plain content")
	if err != nil {
		t.Fatalf("Highlight failed: %v", err)
	}
	if !strings.Contains(out, "plain content") {
		t.Error("expected fallback lexer to keep the raw text")
	}
}

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"docs/guide.markdown", true},
		{"CHANGELOG.MD", true},
		{"src/lib.rs", false},
		{"Makefile", false},
	}
	for _, tt := range tests {
		if got := IsMarkdown(tt.path); got != tt.want {
			t.Errorf("IsMarkdown(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
