package render

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/starford/inkwell/internal/parser"
)

// BlockKind classifies a flattened block of a document.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	Code
	ListItem
	Quote
	Rule
	TableRow
)

// Block is a unit of plain text laid out by fixed-layout exporters.
type Block struct {
	Kind  BlockKind
	Level int // heading level, or list nesting depth
	Text  string
}

// Blocks flattens the markdown AST into plain-text blocks, dropping markup.
func (r *Renderer) Blocks(source string) []Block {
	src := []byte(parser.Parse([]byte(source)).Body)
	doc := r.md.Parser().Parse(text.NewReader(src))

	var out []Block
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			out = append(out, Block{Kind: Heading, Level: v.Level, Text: inlineText(v, src)})
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			out = append(out, Block{Kind: Code, Text: lines(v, src)})
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			out = append(out, Block{Kind: Code, Text: lines(v, src)})
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			out = append(out, Block{Kind: Rule})
			return ast.WalkSkipChildren, nil
		case *east.TableRow, *east.TableHeader:
			var cells []string
			for c := v.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, inlineText(c, src))
			}
			out = append(out, Block{Kind: TableRow, Text: strings.Join(cells, " | ")})
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			t := inlineText(v, src)
			if t == "" {
				return ast.WalkSkipChildren, nil
			}
			out = append(out, Block{Kind: containerKind(v), Level: listDepth(v), Text: t})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func containerKind(n ast.Node) BlockKind {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.ListItem:
			if p.FirstChild() == n {
				return ListItem
			}
			return Paragraph
		case *ast.Blockquote:
			return Quote
		}
	}
	return Paragraph
}

func listDepth(n ast.Node) int {
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := p.(*ast.List); ok {
			depth++
		}
	}
	return depth
}

func lines(n ast.Node, src []byte) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.HardLineBreak() {
				b.WriteByte('\n')
			} else if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
