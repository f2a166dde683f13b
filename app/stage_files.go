package app

import (
	"gridprep/internal/flow"
)

// StageFilePosition describes where per-file iteration stands inside one
// stage: the file under the cursor plus enough context for the dialog to
// render "file 2 of 5".
type StageFilePosition struct {
	File  *flow.UploadedFile `json:"file,omitempty"`
	Index int                `json:"index"`
	Total int                `json:"total"`
	// Boundary is set when the requested move fell off the list: the stage
	// should run its own continue (forward) or the global back (backward)
	// instead of moving the cursor.
	Boundary bool `json:"boundary,omitempty"`
}

func (s *WizardService) stageIterator(session *WizardSession, stage flow.Stage) *flow.FileIterator {
	state := session.Store.Snapshot()
	return flow.NewFileIterator(state.UploadedFiles, session.Store.StageCursorFor(stage))
}

func position(it *flow.FileIterator, boundary bool) StageFilePosition {
	pos := StageFilePosition{Index: it.Index(), Total: it.Len(), Boundary: boundary}
	if file, ok := it.Current(); ok {
		pos.File = &file
	}
	return pos
}

// CurrentStageFile reports the file under a stage's cursor.
func (s *WizardService) CurrentStageFile(sessionID string, stage flow.Stage) (StageFilePosition, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return StageFilePosition{}, err
	}
	return position(s.stageIterator(session, stage), false), nil
}

// AdvanceStageFile moves a stage's file cursor forward. Past the last file
// the cursor stays put and the position reports a boundary, which is the
// stage's signal to run its continue action.
func (s *WizardService) AdvanceStageFile(sessionID string, stage flow.Stage) (StageFilePosition, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return StageFilePosition{}, err
	}
	it := s.stageIterator(session, stage)
	done := it.Advance()
	if !done {
		session.Store.SetStageCursor(stage, it.Index())
		s.persistMutation(session)
	}
	return position(it, done), nil
}

// RetreatStageFile moves a stage's file cursor backward; at the first file
// the position reports a boundary and the global back applies instead.
func (s *WizardService) RetreatStageFile(sessionID string, stage flow.Stage) (StageFilePosition, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return StageFilePosition{}, err
	}
	it := s.stageIterator(session, stage)
	atStart := it.Retreat()
	if !atStart {
		session.Store.SetStageCursor(stage, it.Index())
		s.persistMutation(session)
	}
	return position(it, atStart), nil
}
