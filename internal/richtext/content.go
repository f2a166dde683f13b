package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

// Content is the dual representation of an editable cell or note: an
// authoritative plain-text value and an optional HTML rendering. HTML is
// derived output and is only ever trusted when re-deriving plain text from it
// reproduces Text exactly.
type Content struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// PlainTextOf strips all markup from an HTML fragment, returning the
// concatenated text content. <br> becomes a newline so multi-line notes
// round-trip; entities are decoded by the tokenizer.
func PlainTextOf(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(tokenizer.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "br" {
				sb.WriteByte('\n')
			}
		}
	}
}

// HTMLMatchesValue reports whether stripping all tags from fragment yields
// exactly value. Display mode renders the HTML representation only under
// this condition; otherwise it falls back to the plain-text value, so a
// stale HTML blob can never silently override a plain-text edit made through
// a different code path.
func HTMLMatchesValue(fragment, value string) bool {
	return PlainTextOf(fragment) == value
}

// DisplayHTML returns the markup to render for a content value: the stored
// HTML when it is consistent with the plain text, else the escaped plain
// text itself.
func DisplayHTML(c Content) string {
	if c.HTML != "" && HTMLMatchesValue(c.HTML, c.Text) {
		return c.HTML
	}
	return escapeText(c.Text)
}

func escapeText(text string) string {
	escaped := html.EscapeString(text)
	return strings.ReplaceAll(escaped, "\n", "<br>")
}
