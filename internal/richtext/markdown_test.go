package richtext

import (
	"strings"
	"testing"
)

func TestRenderMarkdownNote(t *testing.T) {
	c := RenderMarkdownNote("# Heading\n\nSome *emphasis* here.")

	if !strings.Contains(c.HTML, "<h1") {
		t.Errorf("expected heading markup, got %q", c.HTML)
	}
	if !strings.Contains(c.HTML, "<em>emphasis</em>") {
		t.Errorf("expected emphasis markup, got %q", c.HTML)
	}
	if c.Text != "# Heading\n\nSome *emphasis* here." {
		t.Errorf("source must stay the plain value, got %q", c.Text)
	}
}

func TestRenderMarkdownNoteLinksOpenInNewTab(t *testing.T) {
	c := RenderMarkdownNote("[docs](https://example.com)")
	if !strings.Contains(c.HTML, `target="_blank"`) {
		t.Errorf("expected target blank on links, got %q", c.HTML)
	}
}
