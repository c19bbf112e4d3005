package markdown

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// ExportNote is the data needed to build a downloadable copy of a note.
type ExportNote struct {
	Title       string
	Slug        string
	SourceTitle string
	SourceLink  string
	Tags        []string
	Created     string
	Body        string
}

type exportOptions struct {
	frontMatter bool
}

type ExportOption func(*exportOptions)

// WithFrontMatter prefixes the Markdown document with a YAML header.
func WithFrontMatter() ExportOption {
	return func(o *exportOptions) { o.frontMatter = true }
}

// ExportMarkdown renders a note as a standalone Markdown document.
func ExportMarkdown(note ExportNote, opts ...ExportOption) string {
	var o exportOptions
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	if o.frontMatter {
		header := map[string]any{
			"title": note.Title,
			"slug":  note.Slug,
		}
		if note.Created != "" {
			header["date"] = note.Created
		}
		if len(note.Tags) > 0 {
			header["tags"] = note.Tags
		}
		if out, err := yaml.Marshal(header); err == nil {
			b.WriteString("---\n")
			b.Write(out)
			b.WriteString("---\n\n")
		}
	}

	b.WriteString("# ")
	b.WriteString(note.Title)
	b.WriteString("\n\n")
	if note.SourceLink != "" {
		title := note.SourceTitle
		if title == "" {
			title = note.SourceLink
		}
		b.WriteString("Source: [")
		b.WriteString(title)
		b.WriteString("](")
		b.WriteString(note.SourceLink)
		b.WriteString(")\n\n")
	}
	b.WriteString(note.Body)
	return b.String()
}

// ExportHTML renders the exported Markdown document to HTML locally.
func ExportHTML(note ExportNote) string {
	return RenderLocal(ExportMarkdown(note))
}
