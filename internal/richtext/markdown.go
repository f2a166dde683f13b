package richtext

import (
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdownNote converts a markdown-authored annotation note into
// Content: the source stays the plain-text value, the rendered HTML is
// attached for display. Notes written this way bypass the consistency guard
// on purpose — markdown source and its rendering never strip-match, so
// DisplayHTML is not used for them.
func RenderMarkdownNote(source string) Content {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	rendered := markdown.ToHTML([]byte(source), p, renderer)
	return Content{Text: source, HTML: string(rendered)}
}
