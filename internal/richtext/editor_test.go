package richtext

import (
	"testing"
	"time"
)

type editorRecorder struct {
	changes []Content
	commits []Content
	cancels int
}

func (r *editorRecorder) callbacks() Callbacks {
	return Callbacks{
		OnValueChange: func(c Content) { r.changes = append(r.changes, c) },
		OnCommit:      func(c Content) { r.commits = append(r.commits, c) },
		OnCancel:      func() { r.cancels++ },
	}
}

func TestEditorCommitStoresDraft(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindCell, Content{Text: "old"}, rec.callbacks())

	ed.StartEdit()
	ed.SetText("new value")
	ed.Commit()

	if got := ed.Committed().Text; got != "new value" {
		t.Fatalf("committed = %q", got)
	}
	if len(rec.commits) != 1 || rec.commits[0].Text != "new value" {
		t.Fatalf("commits = %+v", rec.commits)
	}
	if ed.Editing() {
		t.Fatal("commit should leave editing mode")
	}
}

func TestEditorUnchangedContentIsNoOp(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindCell, Content{Text: "same"}, rec.callbacks())

	ed.StartEdit()
	ed.SetText("same")
	ed.Commit()
	ed.StartEdit()
	ed.SetText("same")
	ed.Commit()

	if len(rec.changes) != 0 {
		t.Fatalf("unchanged text must not fire OnValueChange, got %+v", rec.changes)
	}
	if len(rec.commits) != 0 {
		t.Fatalf("unchanged commit must not fire OnCommit, got %+v", rec.commits)
	}
}

func TestEditorOnValueChangeFiresOncePerChange(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindCell, Content{}, rec.callbacks())

	ed.StartEdit()
	ed.SetText("a")
	ed.SetText("a") // identical, no event
	ed.SetText("ab")

	if len(rec.changes) != 2 {
		t.Fatalf("expected 2 change events, got %d: %+v", len(rec.changes), rec.changes)
	}
}

func TestEditorEscapeDiscardsDraft(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindNote, Content{Text: "keep me"}, rec.callbacks())

	ed.StartEdit()
	ed.SetText("scratch")
	ed.HandleEscape()

	if got := ed.Committed().Text; got != "keep me" {
		t.Fatalf("escape must not commit, committed = %q", got)
	}
	if got := ed.Draft().Text; got != "keep me" {
		t.Fatalf("escape must restore draft, got %q", got)
	}
	if rec.cancels != 1 || len(rec.commits) != 0 {
		t.Fatalf("cancels=%d commits=%d", rec.cancels, len(rec.commits))
	}
}

func TestEditorEnterPolicyByKind(t *testing.T) {
	cell := NewEditor(KindCell, Content{}, Callbacks{})
	cell.StartEdit()
	cell.SetText("v")
	if !cell.HandleEnter(1, false) {
		t.Fatal("cell must commit on plain Enter")
	}

	note := NewEditor(KindNote, Content{}, Callbacks{})
	note.StartEdit()
	note.SetText("ab")
	if note.HandleEnter(1, false) {
		t.Fatal("note must not commit on plain Enter")
	}
	if got := note.Draft().Text; got != "a\nb" {
		t.Fatalf("plain Enter in a note should insert newline, got %q", got)
	}
	if !note.HandleEnter(0, true) {
		t.Fatal("note must commit on Ctrl/Cmd+Enter")
	}
}

func TestEditorPasteStripsFormatting(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindNote, Content{}, rec.callbacks())

	ed.StartEdit()
	ed.Paste(0, "plain payload", `<div style="font-size:40px"><b>plain payload</b></div>`)
	ed.Commit()

	got := ed.Committed()
	if got.Text != "plain payload" {
		t.Fatalf("text = %q", got.Text)
	}
	if got.HTML != "plain payload" {
		t.Fatalf("pasted markup must not survive, html = %q", got.HTML)
	}
}

func TestEditorBlurCommitsAfterDelay(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindCell, Content{}, rec.callbacks())
	ed.SetBlurDelay(20 * time.Millisecond)

	ed.StartEdit()
	ed.SetText("typed")
	ed.Blur()

	deadline := time.Now().Add(2 * time.Second)
	for ed.Committed().Text != "typed" {
		if time.Now().After(deadline) {
			t.Fatal("blur never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(rec.commits) != 1 {
		t.Fatalf("commits = %+v", rec.commits)
	}
}

func TestEditorToolbarFocusSuppressesBlurCommit(t *testing.T) {
	rec := &editorRecorder{}
	ed := NewEditor(KindNote, Content{}, rec.callbacks())
	ed.SetBlurDelay(20 * time.Millisecond)

	ed.StartEdit()
	ed.SetText("styling in progress")
	ed.Blur()
	ed.FocusToolbar() // click landed on the bold button

	time.Sleep(80 * time.Millisecond)

	if len(rec.commits) != 0 {
		t.Fatalf("toolbar focus must suppress the deferred commit, got %+v", rec.commits)
	}
	if !ed.Editing() {
		t.Fatal("edit session should survive the toolbar round trip")
	}

	// Formatting continues, focus returns, and the next blur commits.
	ed.ApplyFormatting(0, 7, StylePatch{Bold: boolPtr(true)})
	ed.ReturnFocus()
	ed.Blur()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.commits) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("second blur never committed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if rec.commits[0].HTML != "<b>styling</b> in progress" {
		t.Fatalf("committed html = %q", rec.commits[0].HTML)
	}
}

func TestEditorValueChangeCallbackMayReenter(t *testing.T) {
	// A host reading the editor back from inside OnValueChange must not
	// deadlock.
	var seen []string
	var ed *Editor
	ed = NewEditor(KindCell, Content{Text: ""}, Callbacks{
		OnValueChange: func(Content) {
			seen = append(seen, ed.Draft().Text)
		},
	})

	ed.StartEdit()
	ed.SetText("re")
	ed.InsertText(2, "entrant")

	if len(seen) != 2 || seen[1] != "reentrant" {
		t.Fatalf("reentrant reads = %v", seen)
	}
}
