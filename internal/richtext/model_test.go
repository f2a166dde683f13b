package richtext

import (
	"reflect"
	"testing"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestApplyStyleSplitsRuns(t *testing.T) {
	doc := NewDocument("hello world")
	doc.ApplyStyle(6, 11, StylePatch{Bold: boolPtr(true)})

	want := []Run{
		{Text: "hello "},
		{Text: "world", Style: RunStyle{Bold: true}},
	}
	if !reflect.DeepEqual(doc.Runs, want) {
		t.Fatalf("runs = %+v, want %+v", doc.Runs, want)
	}
	if doc.PlainText() != "hello world" {
		t.Fatalf("styling must not change text, got %q", doc.PlainText())
	}
}

func TestApplyStylePreservesOtherAttributes(t *testing.T) {
	doc := NewDocument("text")
	doc.ApplyStyle(0, 4, StylePatch{Color: strPtr("#ff0000")})
	doc.ApplyStyle(0, 4, StylePatch{Bold: boolPtr(true)})

	if len(doc.Runs) != 1 {
		t.Fatalf("expected one run, got %d", len(doc.Runs))
	}
	style := doc.Runs[0].Style
	if !style.Bold || style.Color != "#ff0000" {
		t.Fatalf("bold toggle clobbered color: %+v", style)
	}
}

func TestApplyStyleMergesEqualNeighbors(t *testing.T) {
	doc := NewDocument("abcdef")
	doc.ApplyStyle(0, 3, StylePatch{Italic: boolPtr(true)})
	doc.ApplyStyle(3, 6, StylePatch{Italic: boolPtr(true)})

	if len(doc.Runs) != 1 {
		t.Fatalf("adjacent equal-style runs should merge, got %+v", doc.Runs)
	}
}

func TestApplyStyleClampsOutOfRange(t *testing.T) {
	doc := NewDocument("ab")
	doc.ApplyStyle(-5, 100, StylePatch{Underline: boolPtr(true)})
	if len(doc.Runs) != 1 || !doc.Runs[0].Style.Underline {
		t.Fatalf("clamped range should cover whole doc, got %+v", doc.Runs)
	}
	doc.ApplyStyle(2, 2, StylePatch{Bold: boolPtr(true)})
	if doc.Runs[0].Style.Bold {
		t.Fatal("empty range must be a no-op")
	}
}

func TestInsertTextInheritsPrecedingStyle(t *testing.T) {
	doc := NewDocument("bold")
	doc.ApplyStyle(0, 4, StylePatch{Bold: boolPtr(true)})
	doc.InsertText(4, "er")

	if len(doc.Runs) != 1 {
		t.Fatalf("expected single merged run, got %+v", doc.Runs)
	}
	if doc.Runs[0].Text != "bolder" || !doc.Runs[0].Style.Bold {
		t.Fatalf("insertion should inherit bold, got %+v", doc.Runs[0])
	}
}

func TestInsertTextIntoEmptyDocument(t *testing.T) {
	doc := NewDocument("")
	doc.InsertText(0, "hi")
	if doc.PlainText() != "hi" {
		t.Fatalf("got %q", doc.PlainText())
	}
}

func TestDeleteRangeAcrossRuns(t *testing.T) {
	doc := NewDocument("hello world")
	doc.ApplyStyle(6, 11, StylePatch{Bold: boolPtr(true)})
	doc.DeleteRange(3, 8)

	if doc.PlainText() != "helrld" {
		t.Fatalf("text after delete = %q", doc.PlainText())
	}
	want := []Run{
		{Text: "hel"},
		{Text: "rld", Style: RunStyle{Bold: true}},
	}
	if !reflect.DeepEqual(doc.Runs, want) {
		t.Fatalf("runs = %+v, want %+v", doc.Runs, want)
	}
}

func TestHTMLRendering(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Document
		want  string
	}{
		{
			name:  "plain",
			build: func() *Document { return NewDocument("hi") },
			want:  "hi",
		},
		{
			name: "bold italic",
			build: func() *Document {
				doc := NewDocument("hi")
				doc.ApplyStyle(0, 2, StylePatch{Bold: boolPtr(true), Italic: boolPtr(true)})
				return doc
			},
			want: "<i><b>hi</b></i>",
		},
		{
			name: "span styles",
			build: func() *Document {
				doc := NewDocument("x")
				doc.ApplyStyle(0, 1, StylePatch{Color: strPtr("#333"), FontSize: intPtr(14)})
				return doc
			},
			want: `<span style="font-size:14px;color:#333">x</span>`,
		},
		{
			name:  "escapes and newlines",
			build: func() *Document { return NewDocument("a<b\nc") },
			want:  "a&lt;b<br>c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build().HTML(); got != tt.want {
				t.Errorf("HTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentIsAlwaysConsistent(t *testing.T) {
	doc := NewDocument("line one\nline two")
	doc.ApplyStyle(0, 4, StylePatch{Bold: boolPtr(true)})
	doc.ApplyStyle(5, 8, StylePatch{Color: strPtr("red")})
	doc.InsertText(doc.Len(), " & more")

	c := doc.Content()
	if !HTMLMatchesValue(c.HTML, c.Text) {
		t.Fatalf("derived HTML %q does not strip back to %q", c.HTML, c.Text)
	}
}
