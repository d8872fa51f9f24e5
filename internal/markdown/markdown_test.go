package markdown

import (
	"strings"
	"testing"
)

func TestRenderEscapesRawHTML(t *testing.T) {
	out, err := NewRenderer().Render("**bold** <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("missing emphasis: %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw HTML passed through: %q", out)
	}
}

func TestRenderHighlightsCode(t *testing.T) {
	out, err := NewRenderer().Render("```go\nfunc main() {}\n```\n")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "<pre") {
		t.Errorf("expected code block, got %q", out)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
		want string
	}{
		{"heading", "intro\n\n# Refund *Policy*\n\ntext", "a/b.md", "Refund Policy"},
		{"second level ignored", "## Sub\n", "docs/guide.md", "guide"},
		{"no heading", "plain text", "notes.txt", "notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title([]byte(tt.src), tt.path); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}
