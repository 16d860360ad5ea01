package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\n# Heading\nBody text.\n")
	r := Parse(input)
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Body != "# Heading\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if got := string(input[r.BodyOffset:]); got != r.Body {
		t.Errorf("offset %d points at %q", r.BodyOffset, got)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r := Parse(input)
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.BodyOffset != 0 {
		t.Errorf("offset = %d, want 0", r.BodyOffset)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r := Parse(input)
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != string(input) {
		t.Errorf("body should be full input on invalid YAML")
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: x\nno closing fence\n")
	r := Parse(input)
	if r.Frontmatter != nil || r.Body != string(input) {
		t.Errorf("unclosed frontmatter should be body, got fm=%v body=%q", r.Frontmatter, r.Body)
	}
}

func TestParse_HorizontalRuleIsNotFrontmatter(t *testing.T) {
	input := []byte("---- \ntext\n")
	r := Parse(input)
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_Empty(t *testing.T) {
	r := Parse(nil)
	if r.Body != "" || r.Title != "" {
		t.Errorf("empty input parsed to %+v", r)
	}
}

func TestTitle_FallsBackToBasename(t *testing.T) {
	if got := Title([]byte("no heading"), "/proj/notes/todo.md"); got != "todo" {
		t.Errorf("title = %q, want todo", got)
	}
	if got := Title([]byte("# Real"), "/proj/notes/todo.md"); got != "Real" {
		t.Errorf("title = %q, want Real", got)
	}
	if got := Title(nil, ""); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
}
