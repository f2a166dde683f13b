package richtext

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Alignment of a whole document (cells and notes align as a block, not per
// run).
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// RunStyle is the fixed set of text-formatting attributes a run can carry.
type RunStyle struct {
	FontFamily    string `json:"fontFamily,omitempty"`
	FontSize      int    `json:"fontSize,omitempty"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Color         string `json:"color,omitempty"`
	Background    string `json:"background,omitempty"`
}

// Run is a maximal span of text sharing one style.
type Run struct {
	Text  string   `json:"text"`
	Style RunStyle `json:"style"`
}

// Document is the authoritative rich-text model: a flat run sequence plus
// block alignment. It replaces the browser's dual inline-style/execCommand
// channels with a single source from which both representations derive —
// PlainText and HTML can never disagree because neither is stored.
type Document struct {
	Runs      []Run     `json:"runs"`
	Alignment Alignment `json:"alignment,omitempty"`
}

// NewDocument builds a single-run document with the default style.
func NewDocument(text string) *Document {
	doc := &Document{}
	if text != "" {
		doc.Runs = []Run{{Text: text}}
	}
	return doc
}

// PlainText returns the concatenated run text.
func (d *Document) PlainText() string {
	var sb strings.Builder
	for _, run := range d.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

// Len returns the document length in bytes of plain text.
func (d *Document) Len() int {
	n := 0
	for _, run := range d.Runs {
		n += len(run.Text)
	}
	return n
}

// StylePatch is a partial style update; nil fields leave the attribute
// unchanged so toggling bold does not clobber an earlier color choice.
type StylePatch struct {
	FontFamily    *string
	FontSize      *int
	Bold          *bool
	Italic        *bool
	Underline     *bool
	Strikethrough *bool
	Color         *string
	Background    *string
}

func (p StylePatch) applyTo(style RunStyle) RunStyle {
	if p.FontFamily != nil {
		style.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		style.FontSize = *p.FontSize
	}
	if p.Bold != nil {
		style.Bold = *p.Bold
	}
	if p.Italic != nil {
		style.Italic = *p.Italic
	}
	if p.Underline != nil {
		style.Underline = *p.Underline
	}
	if p.Strikethrough != nil {
		style.Strikethrough = *p.Strikethrough
	}
	if p.Color != nil {
		style.Color = *p.Color
	}
	if p.Background != nil {
		style.Background = *p.Background
	}
	return style
}

// ApplyStyle applies a patch to the byte range [start, end), splitting runs
// at the boundaries. Out-of-range bounds are clamped; an empty range is a
// no-op.
func (d *Document) ApplyStyle(start, end int, patch StylePatch) {
	start, end = d.clampRange(start, end)
	if start >= end {
		return
	}

	var out []Run
	pos := 0
	for _, run := range d.Runs {
		runStart, runEnd := pos, pos+len(run.Text)
		pos = runEnd

		if runEnd <= start || runStart >= end {
			out = append(out, run)
			continue
		}

		overlapStart := max(start, runStart)
		overlapEnd := min(end, runEnd)

		if overlapStart > runStart {
			out = append(out, Run{Text: run.Text[:overlapStart-runStart], Style: run.Style})
		}
		out = append(out, Run{
			Text:  run.Text[overlapStart-runStart : overlapEnd-runStart],
			Style: patch.applyTo(run.Style),
		})
		if overlapEnd < runEnd {
			out = append(out, Run{Text: run.Text[overlapEnd-runStart:], Style: run.Style})
		}
	}
	d.Runs = out
	d.normalize()
}

// InsertText inserts plain text at a byte position, inheriting the style of
// the run preceding the insertion point.
func (d *Document) InsertText(pos int, text string) {
	if text == "" {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos > d.Len() {
		pos = d.Len()
	}
	if len(d.Runs) == 0 {
		d.Runs = []Run{{Text: text}}
		return
	}

	offset := 0
	for i := range d.Runs {
		runEnd := offset + len(d.Runs[i].Text)
		if pos <= runEnd {
			at := pos - offset
			d.Runs[i].Text = d.Runs[i].Text[:at] + text + d.Runs[i].Text[at:]
			d.normalize()
			return
		}
		offset = runEnd
	}
}

// DeleteRange removes the byte range [start, end).
func (d *Document) DeleteRange(start, end int) {
	start, end = d.clampRange(start, end)
	if start >= end {
		return
	}

	var out []Run
	pos := 0
	for _, run := range d.Runs {
		runStart, runEnd := pos, pos+len(run.Text)
		pos = runEnd

		if runEnd <= start || runStart >= end {
			out = append(out, run)
			continue
		}
		kept := run.Text[:max(0, start-runStart)] + run.Text[min(len(run.Text), end-runStart):]
		if kept != "" {
			out = append(out, Run{Text: kept, Style: run.Style})
		}
	}
	d.Runs = out
	d.normalize()
}

func (d *Document) clampRange(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > d.Len() {
		end = d.Len()
	}
	return start, end
}

// normalize merges adjacent runs with identical styles and drops empties.
func (d *Document) normalize() {
	var out []Run
	for _, run := range d.Runs {
		if run.Text == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Style == run.Style {
			out[len(out)-1].Text += run.Text
			continue
		}
		out = append(out, run)
	}
	d.Runs = out
}

// HTML renders the document. Runs map to spans with inline styles; the
// boolean attributes additionally wrap in the semantic tags so formatting
// survives copy-paste and external serialization. Newlines render as <br>.
func (d *Document) HTML() string {
	var sb strings.Builder
	for _, run := range d.Runs {
		sb.WriteString(renderRun(run))
	}
	return sb.String()
}

func renderRun(run Run) string {
	text := strings.ReplaceAll(html.EscapeString(run.Text), "\n", "<br>")

	if run.Style.Bold {
		text = "<b>" + text + "</b>"
	}
	if run.Style.Italic {
		text = "<i>" + text + "</i>"
	}
	if run.Style.Underline {
		text = "<u>" + text + "</u>"
	}
	if run.Style.Strikethrough {
		text = "<s>" + text + "</s>"
	}

	if css := inlineCSS(run.Style); css != "" {
		text = fmt.Sprintf(`<span style=%q>%s</span>`, css, text)
	}
	return text
}

func inlineCSS(style RunStyle) string {
	var parts []string
	if style.FontFamily != "" {
		parts = append(parts, "font-family:"+style.FontFamily)
	}
	if style.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("font-size:%dpx", style.FontSize))
	}
	if style.Color != "" {
		parts = append(parts, "color:"+style.Color)
	}
	if style.Background != "" {
		parts = append(parts, "background-color:"+style.Background)
	}
	return strings.Join(parts, ";")
}

// Content snapshots the document into its dual representation. Both fields
// derive from the same runs, so HTMLMatchesValue holds by construction.
func (d *Document) Content() Content {
	return Content{Text: d.PlainText(), HTML: d.HTML()}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
