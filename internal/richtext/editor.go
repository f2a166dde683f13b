package richtext

import (
	"sync"
	"time"
)

// Kind selects the editor's commit-key policy: table cells commit on plain
// Enter, note editors need Ctrl/Cmd+Enter (plain Enter inserts a newline).
type Kind int

const (
	KindCell Kind = iota
	KindNote
)

// defaultBlurDelay is the deferred re-check window after blur: long enough
// for focus to land on a formatting toolbar, short enough to feel immediate.
const defaultBlurDelay = 150 * time.Millisecond

// Callbacks wire an editor to its host. Any callback may be nil.
type Callbacks struct {
	// OnValueChange fires on every content change while editing. It is not
	// fired when an operation leaves the content byte-identical.
	OnValueChange func(Content)
	// OnCommit fires on blur (after the toolbar re-check) or the commit key.
	OnCommit func(Content)
	// OnCancel fires on Escape; in-progress edits are discarded.
	OnCancel func()
}

// Editor is the state machine behind a content-editable cell or note. The
// draft is a run-based Document; committed state is the dual-representation
// Content. All entry points are safe for the UI goroutine plus the deferred
// blur timer.
type Editor struct {
	mu        sync.Mutex
	kind      Kind
	callbacks Callbacks
	blurDelay time.Duration

	committed Content
	doc       *Document
	editing   bool

	lastEmitted  Content
	blurTimer    *time.Timer
	toolbarFocus bool
}

// NewEditor creates an editor over the committed content. The draft document
// is rebuilt from the plain-text value: the text is authoritative, and
// formatting is applied fresh during the edit.
func NewEditor(kind Kind, committed Content, callbacks Callbacks) *Editor {
	// A text-only seed gets its HTML derived, so the unchanged-commit check
	// compares like with like.
	if committed.HTML == "" {
		committed = NewDocument(committed.Text).Content()
	}
	return &Editor{
		kind:      kind,
		callbacks: callbacks,
		blurDelay: defaultBlurDelay,
		committed: committed,
		doc:       NewDocument(committed.Text),
	}
}

// SetBlurDelay overrides the deferred blur-commit window (tests use a short
// one).
func (e *Editor) SetBlurDelay(d time.Duration) {
	e.mu.Lock()
	e.blurDelay = d
	e.mu.Unlock()
}

// Committed returns the last committed content.
func (e *Editor) Committed() Content {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// Editing reports whether an edit is in progress.
func (e *Editor) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editing
}

// Draft returns the current draft content.
func (e *Editor) Draft() Content {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Content()
}

// StartEdit enters editing mode, rebuilding the draft from committed text.
func (e *Editor) StartEdit() {
	e.mu.Lock()
	if !e.editing {
		e.editing = true
		e.doc = NewDocument(e.committed.Text)
		e.lastEmitted = e.doc.Content()
	}
	e.mu.Unlock()
}

// SetText replaces the draft's full text, keeping no formatting (the host
// calls this for raw input events that rewrite the region).
func (e *Editor) SetText(text string) {
	e.mu.Lock()
	e.ensureEditingLocked()
	if e.doc.PlainText() != text {
		e.doc = NewDocument(text)
	}
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// InsertText inserts typed text at a byte position.
func (e *Editor) InsertText(pos int, text string) {
	e.mu.Lock()
	e.ensureEditingLocked()
	e.doc.InsertText(pos, text)
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// DeleteRange removes a byte range from the draft.
func (e *Editor) DeleteRange(start, end int) {
	e.mu.Lock()
	e.ensureEditingLocked()
	e.doc.DeleteRange(start, end)
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// ApplyFormatting applies a style patch to a byte range of the draft.
func (e *Editor) ApplyFormatting(start, end int, patch StylePatch) {
	e.mu.Lock()
	e.ensureEditingLocked()
	e.doc.ApplyStyle(start, end, patch)
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// SetAlignment sets block alignment on the draft.
func (e *Editor) SetAlignment(alignment Alignment) {
	e.mu.Lock()
	e.ensureEditingLocked()
	e.doc.Alignment = alignment
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// Paste inserts clipboard content at a byte position. Policy: all pasted
// content is stripped to plain text regardless of source formatting, so
// foreign HTML/CSS never leaks into the stored representation. The HTML
// clipboard flavor is accepted and ignored.
func (e *Editor) Paste(pos int, clipboardText, clipboardHTML string) {
	_ = clipboardHTML
	e.mu.Lock()
	e.ensureEditingLocked()
	e.doc.InsertText(pos, clipboardText)
	emit := e.changeLocked()
	e.mu.Unlock()
	if emit != nil {
		emit()
	}
}

// HandleEnter processes the Enter key and reports whether it committed.
// Cells commit on plain Enter; notes need Ctrl/Cmd and otherwise insert a
// newline at the given position.
func (e *Editor) HandleEnter(pos int, ctrlOrCmd bool) bool {
	commit := e.kind == KindCell || ctrlOrCmd
	if commit {
		e.Commit()
		return true
	}
	e.InsertText(pos, "\n")
	return false
}

// HandleEscape discards the in-progress edit and restores committed state.
func (e *Editor) HandleEscape() {
	e.mu.Lock()
	e.cancelBlurTimerLocked()
	e.editing = false
	e.doc = NewDocument(e.committed.Text)
	onCancel := e.callbacks.OnCancel
	e.mu.Unlock()

	if onCancel != nil {
		onCancel()
	}
}

// Commit stores the draft as committed content and leaves editing mode.
// Committing unchanged content is a no-op: no callback fires.
func (e *Editor) Commit() {
	e.mu.Lock()
	e.cancelBlurTimerLocked()
	draft := e.doc.Content()
	if !e.editing || draft == e.committed {
		e.editing = false
		e.mu.Unlock()
		return
	}
	e.committed = draft
	e.editing = false
	onCommit := e.callbacks.OnCommit
	e.mu.Unlock()

	if onCommit != nil {
		onCommit(draft)
	}
}

// Blur schedules the deferred commit check. The commit is suppressed if
// focus lands on the formatting toolbar within the blur window — the
// re-check inspects where focus went before deciding, which is what keeps a
// toolbar click from tearing down the edit.
func (e *Editor) Blur() {
	e.mu.Lock()
	e.cancelBlurTimerLocked()
	e.blurTimer = time.AfterFunc(e.blurDelay, func() {
		e.mu.Lock()
		suppressed := e.toolbarFocus
		e.mu.Unlock()
		if !suppressed {
			e.Commit()
		}
	})
	e.mu.Unlock()
}

// FocusToolbar marks that focus moved into the formatting toolbar, which
// suppresses the pending blur commit.
func (e *Editor) FocusToolbar() {
	e.mu.Lock()
	e.toolbarFocus = true
	e.cancelBlurTimerLocked()
	e.mu.Unlock()
}

// ReturnFocus marks that focus came back to the editable region.
func (e *Editor) ReturnFocus() {
	e.mu.Lock()
	e.toolbarFocus = false
	e.mu.Unlock()
}

func (e *Editor) ensureEditingLocked() {
	if !e.editing {
		e.editing = true
		e.doc = NewDocument(e.committed.Text)
		e.lastEmitted = e.doc.Content()
	}
}

// changeLocked records a content change and returns the OnValueChange
// emission to run after the lock is released, or nil when the content is
// unchanged since the last emission. Firing outside the lock lets the
// callback re-enter the editor.
func (e *Editor) changeLocked() func() {
	current := e.doc.Content()
	if current == e.lastEmitted {
		return nil
	}
	e.lastEmitted = current
	fn := e.callbacks.OnValueChange
	if fn == nil {
		return nil
	}
	return func() { fn(current) }
}

func (e *Editor) cancelBlurTimerLocked() {
	if e.blurTimer != nil {
		e.blurTimer.Stop()
		e.blurTimer = nil
	}
}
