package app

import (
	"gridprep/internal/errors"
	"gridprep/internal/richtext"
)

// FileNote is a file's markdown note plus its rendered HTML for display.
type FileNote struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// FileNote returns the note attached to a file, rendered for display.
func (s *WizardService) FileNote(sessionID, fileID string) (FileNote, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return FileNote{}, err
	}
	state := session.Store.Snapshot()
	if _, ok := state.FileByID(fileID); !ok {
		return FileNote{}, errors.FileNotFound(fileID)
	}
	text := state.FileNotes[fileID]
	return FileNote{Text: text, HTML: richtext.RenderMarkdownNote(text).HTML}, nil
}

// SetFileNote replaces a file's note by running the note editor over the
// stored text and committing the new value, so the editor's policies hold on
// this path too: committing unchanged text is a no-op and nothing is written.
func (s *WizardService) SetFileNote(sessionID, fileID, text string) (FileNote, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return FileNote{}, err
	}
	state := session.Store.Snapshot()
	if _, ok := state.FileByID(fileID); !ok {
		return FileNote{}, errors.FileNotFound(fileID)
	}

	editor := richtext.NewEditor(richtext.KindNote,
		richtext.NewDocument(state.FileNotes[fileID]).Content(),
		richtext.Callbacks{
			OnCommit: func(content richtext.Content) {
				session.Store.SetFileNote(fileID, content.Text)
				s.debouncePersist(session)
			},
		})
	editor.StartEdit()
	editor.SetText(text)
	editor.Commit()

	stored := editor.Committed().Text
	return FileNote{Text: stored, HTML: richtext.RenderMarkdownNote(stored).HTML}, nil
}
