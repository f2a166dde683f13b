package flow

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"gridprep/internal/errors"
)

// Options configures a Store for one wizard session.
type Options struct {
	// SkipFileSelect is set when the flow starts from an already-existing
	// dataframe reference: the file-select stage is omitted entirely and the
	// initial stage is the structural scan. Back from there closes the
	// dialog instead of returning to file selection.
	SkipFileSelect bool
}

// Store is the single source of truth for one session's FlowState. All
// operations are synchronous and in-memory; the store performs no cross-field
// validation (stages gate their own "Continue"), so callers must not assume
// invariant enforcement beyond shape.
type Store struct {
	mu    sync.Mutex
	state FlowState

	// onTransition fires after every stage change with a snapshot, which is
	// how the persistence adapter sees transitions without the store knowing
	// about storage.
	onTransition func(FlowState)
}

// NewStore creates a store holding the documented empty initial value. The
// skip-file-select policy lives in the state itself so it survives snapshot
// round trips.
func NewStore(opts Options) *Store {
	s := &Store{state: NewFlowState()}
	s.state.SkipFileSelect = opts.SkipFileSelect
	s.state.CurrentStage = s.firstStage()
	return s
}

// OnTransition registers a hook invoked with a state snapshot after each
// stage transition (next, back, jump, restart). At most one hook is held;
// a later call replaces the earlier one.
func (s *Store) OnTransition(fn func(FlowState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = fn
}

func (s *Store) firstStage() Stage {
	if s.state.SkipFileSelect {
		return StageStructuralScan
	}
	return FirstStage
}

// CurrentStage returns the stage pointer.
func (s *Store) CurrentStage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentStage
}

// Snapshot returns a deep copy of the full flow state.
func (s *Store) Snapshot() FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Restore replaces the store's state with a persisted snapshot, used for
// resume-after-reload. The restored stage is validated; stage cursors are
// kept as-is and clamped at read time.
func (s *Store) Restore(snapshot FlowState) error {
	if !snapshot.CurrentStage.Valid() {
		return errors.InvalidInput("snapshot carries an unknown stage")
	}
	if snapshot.SkipFileSelect && snapshot.CurrentStage == StageFileSelect {
		snapshot.CurrentStage = StageStructuralScan
	}
	s.mu.Lock()
	s.state = snapshot.Clone()
	// Re-normalize nil maps from older snapshots.
	if s.state.HeaderSelections == nil {
		s.state.HeaderSelections = make(map[string]HeaderSelection)
	}
	if s.state.ColumnNameEdits == nil {
		s.state.ColumnNameEdits = make(map[string][]ColumnNameEdit)
	}
	if s.state.DataTypeSelections == nil {
		s.state.DataTypeSelections = make(map[string][]DataTypeSelection)
	}
	if s.state.MissingValueStrategies == nil {
		s.state.MissingValueStrategies = make(map[string][]MissingValueChoice)
	}
	if s.state.FileNotes == nil {
		s.state.FileNotes = make(map[string]string)
	}
	s.mu.Unlock()
	return nil
}

// GoToNextStage advances the stage pointer by one position. At the terminal
// stage it is a no-op; the returned bool reports whether the pointer moved.
func (s *Store) GoToNextStage() (Stage, bool) {
	s.mu.Lock()
	if s.state.CurrentStage >= TerminalStage {
		stage := s.state.CurrentStage
		s.mu.Unlock()
		return stage, false
	}
	s.state.CurrentStage++
	stage := s.state.CurrentStage
	s.notifyLocked()
	s.mu.Unlock()
	return stage, true
}

// GoToPreviousStage retreats the stage pointer by one position. At the
// effective first stage it is a no-op and moved=false, which callers treat
// as "close the dialog" per their own policy.
func (s *Store) GoToPreviousStage() (Stage, bool) {
	s.mu.Lock()
	if s.state.CurrentStage <= s.firstStage() {
		stage := s.state.CurrentStage
		s.mu.Unlock()
		return stage, false
	}
	s.state.CurrentStage--
	stage := s.state.CurrentStage
	s.notifyLocked()
	s.mu.Unlock()
	return stage, true
}

// GoToStage jumps directly to an arbitrary stage, used for resume and
// "edit a previous decision" flows. Deliberate policy: no prerequisite
// validation is performed, so a caller may land on a stage whose inputs are
// incomplete; stages gate their own forward navigation.
func (s *Store) GoToStage(stage Stage) error {
	if !stage.Valid() {
		return errors.InvalidInput("unknown stage")
	}
	s.mu.Lock()
	if s.state.SkipFileSelect && stage == StageFileSelect {
		s.mu.Unlock()
		return errors.InvalidInput("file selection is not part of this session")
	}
	s.state.CurrentStage = stage
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

// RestartFlow resets FlowState to its initial empty value and the stage
// pointer to the first stage, regardless of prior state.
func (s *Store) RestartFlow() {
	s.mu.Lock()
	skip := s.state.SkipFileSelect
	s.state = NewFlowState()
	s.state.SkipFileSelect = skip
	s.state.CurrentStage = s.firstStage()
	s.notifyLocked()
	s.mu.Unlock()
}

// AddUploadedFiles appends files to the session. Files without a synthetic ID
// get one assigned here; display-name duplicates are accepted (identity is
// the ID, names are only a display and API-boundary concern). Returns the
// stored copies with IDs filled in.
func (s *Store) AddUploadedFiles(files []UploadedFile) []UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]UploadedFile, 0, len(files))
	for _, f := range files {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if f.UploadSession != "" && f.WorkbookID == "" {
			f.WorkbookID = f.ID
		}
		s.state.UploadedFiles = append(s.state.UploadedFiles, f)
		added = append(added, f)
	}
	return added
}

// UpdateUploadedFilePath replaces a file's path with its durable location
// after server-side persistence completes, flipping Processed to true.
func (s *Store) UpdateUploadedFilePath(fileID, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.UploadedFiles {
		if s.state.UploadedFiles[i].ID == fileID {
			s.state.UploadedFiles[i].Path = newPath
			s.state.UploadedFiles[i].Processed = true
			return nil
		}
	}
	return errors.FileNotFound(fileID)
}

// SelectSheets replaces the sheet selection for a workbook, expanding it
// into one entry per selected sheet: each selected sheet becomes its own
// UploadedFile carrying its own decisions through the later stages. A
// re-selection keeps the IDs of sheets that stay selected, so their recorded
// decisions survive; deselected sheets lose theirs. Already-converted sheet
// entries are left alone. Returns the entries for the selected sheets, in
// selection order.
func (s *Store) SelectSheets(fileID string, sheets []string) ([]UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var workbook *UploadedFile
	for i := range s.state.UploadedFiles {
		if s.state.UploadedFiles[i].ID == fileID {
			workbook = &s.state.UploadedFiles[i]
			break
		}
	}
	if workbook == nil {
		return nil, errors.FileNotFound(fileID)
	}
	if workbook.WorkbookID == "" {
		return nil, errors.InvalidInput("file is not a multi-sheet workbook")
	}
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("at least one sheet must be selected")
	}
	known := make(map[string]bool, len(workbook.SheetNames))
	for _, name := range workbook.SheetNames {
		known[name] = true
	}
	for _, sheet := range sheets {
		if !known[sheet] {
			return nil, errors.InvalidInput("unknown sheet: " + sheet)
		}
	}

	group := workbook.WorkbookID
	template := *workbook

	// Partition: everything outside the group and the group's converted
	// entries stay; unconverted group entries are replaceable, keyed by
	// sheet so re-selection keeps IDs stable. Key "" is the unexpanded
	// workbook entry.
	replaceable := make(map[string]UploadedFile)
	converted := make(map[string]bool)
	kept := make([]UploadedFile, 0, len(s.state.UploadedFiles))
	insertAt := -1
	for _, f := range s.state.UploadedFiles {
		if f.WorkbookID == group && !f.Processed {
			if insertAt == -1 {
				insertAt = len(kept)
			}
			replaceable[f.SelectedSheet] = f
			continue
		}
		if f.WorkbookID == group {
			converted[f.SelectedSheet] = true
		}
		kept = append(kept, f)
	}
	if insertAt == -1 {
		insertAt = len(kept)
	}

	entries := make([]UploadedFile, 0, len(sheets))
	for _, sheet := range sheets {
		if converted[sheet] {
			continue
		}
		entry, ok := replaceable[sheet]
		if ok {
			delete(replaceable, sheet)
		} else if blank, hasBlank := replaceable[""]; hasBlank {
			entry = blank
			delete(replaceable, "")
		} else {
			entry = template
			entry.ID = uuid.NewString()
			entry.FileKey = ""
			entry.Processed = false
		}
		entry.SelectedSheet = sheet
		entry.TotalSheets = len(sheets)
		entries = append(entries, entry)
	}

	// Deselected sheets lose their recorded decisions.
	for _, dropped := range replaceable {
		s.dropDecisionsLocked(dropped.ID)
	}

	tail := append([]UploadedFile(nil), kept[insertAt:]...)
	s.state.UploadedFiles = append(append(kept[:insertAt], entries...), tail...)
	return append([]UploadedFile(nil), entries...), nil
}

// CompleteSheetConversion records a sheet's durable artifact: the converted
// path, the per-sheet file key the conversion returned, and Processed.
func (s *Store) CompleteSheetConversion(fileID, newPath, fileKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.UploadedFiles {
		if s.state.UploadedFiles[i].ID == fileID {
			s.state.UploadedFiles[i].Path = newPath
			s.state.UploadedFiles[i].FileKey = fileKey
			s.state.UploadedFiles[i].Processed = true
			return nil
		}
	}
	return errors.FileNotFound(fileID)
}

// RemoveUploadedFile drops a file and every per-file decision recorded for
// it. Unknown IDs are a no-op.
func (s *Store) RemoveUploadedFile(fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.UploadedFiles[:0]
	for _, f := range s.state.UploadedFiles {
		if f.ID != fileID {
			kept = append(kept, f)
		}
	}
	s.state.UploadedFiles = kept
	s.dropDecisionsLocked(fileID)
}

func (s *Store) dropDecisionsLocked(fileID string) {
	delete(s.state.HeaderSelections, fileID)
	delete(s.state.ColumnNameEdits, fileID)
	delete(s.state.DataTypeSelections, fileID)
	delete(s.state.MissingValueStrategies, fileID)
	delete(s.state.FileNotes, fileID)
}

// SetHeaderSelection replaces the header selection for a file wholesale.
// Last write wins; there are no merge semantics.
func (s *Store) SetHeaderSelection(fileID string, sel HeaderSelection) {
	s.mu.Lock()
	s.state.HeaderSelections[fileID] = sel
	s.mu.Unlock()
}

// SetColumnNameEdits replaces the column rename list for a file wholesale.
func (s *Store) SetColumnNameEdits(fileID string, edits []ColumnNameEdit) {
	s.mu.Lock()
	s.state.ColumnNameEdits[fileID] = append([]ColumnNameEdit(nil), edits...)
	s.mu.Unlock()
}

// SetDataTypeSelections replaces the type review list for a file wholesale.
func (s *Store) SetDataTypeSelections(fileID string, selections []DataTypeSelection) {
	s.mu.Lock()
	s.state.DataTypeSelections[fileID] = append([]DataTypeSelection(nil), selections...)
	s.mu.Unlock()
}

// SetMissingValueStrategies replaces the missing-value choices for a file
// wholesale. Choices whose strategy does not apply to the column kind implied
// by the recorded type selection are logged and stored anyway: the store has
// no validation layer, and the data service re-checks on execution.
func (s *Store) SetMissingValueStrategies(fileID string, choices []MissingValueChoice) {
	s.mu.Lock()
	for _, c := range choices {
		kind := s.kindForColumnLocked(fileID, c.ColumnName)
		if c.Strategy != StrategyNone && !StrategyApplies(c.Strategy, kind) {
			log.Printf("[FlowStore] strategy %s recorded for %s column %q", c.Strategy, kind, c.ColumnName)
		}
	}
	s.state.MissingValueStrategies[fileID] = append([]MissingValueChoice(nil), choices...)
	s.mu.Unlock()
}

func (s *Store) kindForColumnLocked(fileID, columnName string) ColumnKind {
	for _, sel := range s.state.DataTypeSelections[fileID] {
		if sel.ColumnName == columnName {
			dtype := sel.SelectedType
			if dtype == "" {
				dtype = sel.DetectedType
			}
			return KindForDtype(dtype)
		}
	}
	return KindCategorical
}

// SetFileNote replaces the free-form note attached to a file. Empty text
// removes the note.
func (s *Store) SetFileNote(fileID, text string) {
	s.mu.Lock()
	if text == "" {
		delete(s.state.FileNotes, fileID)
	} else {
		s.state.FileNotes[fileID] = text
	}
	s.mu.Unlock()
}

// SetStageCursor records per-stage file iteration progress. Persisted with
// the snapshot so resume lands on the file the user was editing.
func (s *Store) SetStageCursor(stage Stage, index int) {
	s.mu.Lock()
	if s.state.StageCursor == nil {
		s.state.StageCursor = make(map[string]int)
	}
	s.state.StageCursor[stage.String()] = index
	s.mu.Unlock()
}

// StageCursorFor returns the recorded iteration index for a stage, clamped
// to the current file list. Missing or out-of-range cursors yield 0.
func (s *Store) StageCursorFor(stage Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.StageCursor[stage.String()]
	if idx < 0 || idx >= len(s.state.UploadedFiles) {
		return 0
	}
	return idx
}

func (s *Store) notifyLocked() {
	if s.onTransition != nil {
		s.onTransition(s.state.Clone())
	}
}
