package techlog

import (
	"strings"
	"testing"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"empty", "", 10, ""},
		{"shorter", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello…"},
		{"trims cut whitespace", "hello world", 6, "hello…"},
		{"multibyte", strings.Repeat("가", 10), 4, "가가가가…"},
	}

	for _, tt := range tests {
		if got := Excerpt(tt.input, tt.limit); got != tt.want {
			t.Errorf("%s: Excerpt(%q, %d) = %q, want %q", tt.name, tt.input, tt.limit, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello-world"},
		{"  Already-clean  ", "already-clean"},
		{"Go 1.24 Notes!", "go-1-24-notes"},
		{"___", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		want     string
	}{
		{"http://localhost:3000", nil, "http://localhost:3000"},
		{"http://localhost:3000", []string{"posts", "abc"}, "http://localhost:3000/posts/abc"},
		{"https://blog.example.com/sub", []string{"posts", "abc"}, "https://blog.example.com/sub/posts/abc"},
	}

	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segments...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segments, got, tt.want)
		}
	}
}
