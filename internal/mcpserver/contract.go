package mcpserver

// MarkdownGuide describes the Markdown dialect the preview renders, so LLM
// consumers write documents that display as intended.
const MarkdownGuide = `# Inkwell Markdown Guide

Documents are plain UTF-8 Markdown files (` + "`" + `.md` + "`" + ` or ` + "`" + `.markdown` + "`" + `)
living inside a project folder under the projects root.

## Supported syntax

- CommonMark block and inline syntax.
- GitHub extensions: tables, task lists (` + "`" + `- [ ] todo` + "`" + `),
  strikethrough (` + "`" + `~~gone~~` + "`" + `) and bare-URL autolinks.
- Fenced code blocks with a language tag are syntax highlighted:

` + "```" + `markdown
` + "```" + `go
fmt.Println("hi")
` + "```" + `
` + "```" + `

  Without a tag the language is guessed; unknown content stays plain.
- Every heading gets an id derived from its text, so ` + "`" + `[see](#setup)` + "`" + `
  jumps to ` + "`" + `## Setup` + "`" + `.
- Raw HTML is passed through unchanged.

## Rules

1. The document title shown in the recent list is the ` + "`" + `title` + "`" + ` field of
   an optional YAML frontmatter block, else the first level-one heading, else
   the file name. Frontmatter is never rendered.
2. **File names** end with ` + "`" + `.md` + "`" + `. A name without an extension is
   saved with ` + "`" + `.md` + "`" + ` appended.
3. **Paths** given to tools are relative to the projects root and use forward
   slashes (` + "`" + `notes/todo.md` + "`" + `). Absolute paths must stay inside the root.
4. Names are a single path element: no ` + "`" + `/` + "`" + `, no ` + "`" + `..` + "`" + `.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It stores the file in
  the ` + "`" + `assets/` + "`" + ` folder next to the document and returns a
  ` + "`" + `markdownImage` + "`" + ` field ready to paste into the body.
- Reference images with a path relative to the document:
  ` + "`" + `![diagram](assets/diagram.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
# Weekly standup 2025-01-20

Attendees: Alice, Bob.

![Whiteboard photo](assets/standup.jpg)

## Action items

- [ ] Alice reviews the [design notes](design.md#open-questions)
- [x] Bob updates the roadmap

| Owner | Due    |
|-------|--------|
| Alice | Friday |
` + "```" + `
`
