// Package parser separates YAML frontmatter from a Markdown document and
// derives its display title.
package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	// BodyOffset is the byte offset of Body within the input.
	BodyOffset int
	Title      string
}

// Parse never fails: malformed frontmatter is treated as part of the body.
func Parse(data []byte) *Result {
	fm, body, offset := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		BodyOffset:  offset,
		Title:       deriveTitle(fm, body),
	}
}

// Title returns the document title, falling back to the basename of path
// without its extension.
func Title(data []byte, path string) string {
	if t := Parse(data).Title; t != "" {
		return t
	}
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	lead := len(data) - len(trimmed)

	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) && !bytes.HasPrefix(trimmed, []byte(delim+"\r\n")) {
		return nil, string(data), 0
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), 0
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	// The closing fence must end its line.
	if len(afterDelim) > 0 && afterDelim[0] != '\n' && afterDelim[0] != '\r' {
		return nil, string(data), 0
	}
	body := bytes.TrimLeft(afterDelim, "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), 0
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}

	offset := lead + len(delim) + idx + 1 + len(delim) + (len(afterDelim) - len(body))
	return fm, string(body), offset
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
