package app

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gridprep/internal/errors"
	"gridprep/internal/flow"
	"gridprep/models"
)

// FileUpload is one incoming file from the picker or drop zone.
type FileUpload struct {
	Name    string
	Size    int64
	Content io.Reader
}

func isExcel(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls", ".xlsm":
		return true
	}
	return false
}

// UploadFiles sends each file to the data service and records the results in
// the session's flow state. Excel workbooks go through the multi-sheet
// endpoint and come back with their sheet list; everything else is uploaded
// as a single table. The returned files carry their assigned IDs.
func (s *WizardService) UploadFiles(ctx context.Context, sessionID string, uploads []FileUpload) ([]flow.UploadedFile, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	var files []flow.UploadedFile
	for _, upload := range uploads {
		file, err := s.uploadOne(ctx, upload)
		if err != nil {
			return nil, errors.UploadFailed(upload.Name, err)
		}
		files = append(files, file)
	}

	stored := session.Store.AddUploadedFiles(files)
	s.persistMutation(session)
	return stored, nil
}

func (s *WizardService) uploadOne(ctx context.Context, upload FileUpload) (flow.UploadedFile, error) {
	if isExcel(upload.Name) {
		result, err := s.dataService.UploadExcelMultiSheet(ctx, upload.Name, upload.Content)
		if err != nil {
			return flow.UploadedFile{}, err
		}
		file := flow.UploadedFile{
			Name:          upload.Name,
			Size:          upload.Size,
			Path:          result.OriginalFilePath,
			UploadSession: result.UploadSessionID,
			SheetNames:    result.Sheets,
		}
		// Single-sheet workbooks skip the sheet picker.
		if len(result.Sheets) == 1 {
			file.SelectedSheet = result.Sheets[0]
			file.TotalSheets = 1
		}
		return file, nil
	}

	result, err := s.dataService.UploadFile(ctx, upload.Name, upload.Content)
	if err != nil {
		return flow.UploadedFile{}, err
	}
	return flow.UploadedFile{
		Name: upload.Name,
		Size: upload.Size,
		Path: result.FilePath,
	}, nil
}

// SelectSheets records the user's sheet choices for a multi-sheet workbook,
// expanding the workbook into one flow entry per selected sheet so each one
// is materialized and reviewed independently.
func (s *WizardService) SelectSheets(ctx context.Context, sessionID, fileID string, sheets []string) ([]flow.UploadedFile, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := session.Store.SelectSheets(fileID, sheets)
	if err != nil {
		return nil, err
	}
	s.persistMutation(session)
	return entries, nil
}

// RemoveFile drops an uploaded file and all decisions recorded for it.
func (s *WizardService) RemoveFile(ctx context.Context, sessionID, fileID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Store.RemoveUploadedFile(fileID)
	s.persistMutation(session)
	return nil
}

// MaterializeSheets converts every selected-but-unprocessed sheet into a
// durable artifact, strictly one at a time with a pause between requests so
// the data service is never hit with a convert burst. Failures are recorded
// per sheet and do not stop the queue; the user can retry the failed ones.
func (s *WizardService) MaterializeSheets(ctx context.Context, sessionID string) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}

	state := session.Store.Snapshot()
	first := true
	for _, file := range state.UploadedFiles {
		if file.UploadSession == "" || file.SelectedSheet == "" || file.Processed {
			continue
		}
		if !first {
			select {
			case <-time.After(s.cfg.SheetQueueDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		first = false

		result, err := s.dataService.ConvertSessionSheet(ctx, file.UploadSession, file.SelectedSheet, file.Name, true)
		if err != nil {
			log.Printf("[Wizard] Sheet conversion failed for %s/%s: %v", file.Name, file.SelectedSheet, err)
			s.bus.Publish(models.FlowEvent{
				Type:      models.EventSheetSaveFailed,
				SessionID: sessionID,
				FileName:  file.Name,
				Message:   err.Error(),
			})
			continue
		}
		if err := session.Store.CompleteSheetConversion(file.ID, result.FilePath, result.FileKey); err != nil {
			return err
		}
	}
	s.persistMutation(session)
	return nil
}

// Preview returns the structural scan for one file, including the suggested
// header row.
func (s *WizardService) Preview(ctx context.Context, sessionID, fileID string) (*models.FilePreview, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	file, ok := session.Store.Snapshot().FileByID(fileID)
	if !ok {
		return nil, errors.FileNotFound(fileID)
	}
	return s.dataService.FilePreview(ctx, file.Path, file.SelectedSheet)
}

// ConfirmHeader commits a header decision: the selection is recorded, the
// data service applies it and returns the durable path, and the saved
// dataframe is announced on the bus so sibling panels can refresh.
func (s *WizardService) ConfirmHeader(ctx context.Context, sessionID, fileID string, sel flow.HeaderSelection) (string, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}
	file, ok := session.Store.Snapshot().FileByID(fileID)
	if !ok {
		return "", errors.FileNotFound(fileID)
	}

	session.Store.SetHeaderSelection(fileID, sel)

	durablePath, err := s.dataService.ApplyHeaderSelection(ctx, file.Path, sel, file.SelectedSheet)
	if err != nil {
		return "", errors.Wrap(err, "failed to apply header selection")
	}
	if err := session.Store.UpdateUploadedFilePath(fileID, durablePath); err != nil {
		return "", err
	}
	s.persistMutation(session)

	s.bus.Publish(models.FlowEvent{
		Type:      models.EventDataframeSaved,
		SessionID: sessionID,
		FileName:  file.Name,
		FilePath:  durablePath,
	})
	return durablePath, nil
}

// SetColumnNameEdits stores the rename decisions for a file wholesale.
func (s *WizardService) SetColumnNameEdits(sessionID, fileID string, edits []flow.ColumnNameEdit) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Store.SetColumnNameEdits(fileID, edits)
	s.debouncePersist(session)
	return nil
}

// SetDataTypeSelections stores the type decisions for a file wholesale.
func (s *WizardService) SetDataTypeSelections(sessionID, fileID string, selections []flow.DataTypeSelection) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Store.SetDataTypeSelections(fileID, selections)
	s.debouncePersist(session)
	return nil
}

// SetMissingValueStrategies stores the missing-value decisions for a file.
func (s *WizardService) SetMissingValueStrategies(sessionID, fileID string, choices []flow.MissingValueChoice) error {
	session, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	session.Store.SetMissingValueStrategies(fileID, choices)
	s.debouncePersist(session)
	return nil
}

// FileMetadata returns the schema summary for one processed file.
func (s *WizardService) FileMetadata(ctx context.Context, sessionID, fileID string) (*models.FileMetadata, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	file, ok := session.Store.Snapshot().FileByID(fileID)
	if !ok {
		return nil, errors.FileNotFound(fileID)
	}
	return s.dataService.FileMetadata(ctx, file.Path)
}

// PrefetchMetadata fetches schema summaries for every processed file
// concurrently, bounded by the worker limit, so the review stages render
// without a per-file wait. Per-file failures are reported in the map rather
// than failing the batch.
func (s *WizardService) PrefetchMetadata(ctx context.Context, sessionID string) (map[string]*models.FileMetadata, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	state := session.Store.Snapshot()
	results := make(map[string]*models.FileMetadata, len(state.UploadedFiles))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MetadataWorkers)

	for _, file := range state.UploadedFiles {
		if !file.Processed {
			continue
		}
		file := file
		g.Go(func() error {
			metadata, err := s.dataService.FileMetadata(gctx, file.Path)
			if err != nil {
				log.Printf("[Wizard] Metadata fetch failed for %s: %v", file.Name, err)
				return nil
			}
			mu.Lock()
			results[file.ID] = metadata
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// DetectDatetimeFormat asks the data service to infer a datetime format for
// one column of a processed file.
func (s *WizardService) DetectDatetimeFormat(ctx context.Context, sessionID, fileID, columnName string) (*models.DatetimeDetection, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	file, ok := session.Store.Snapshot().FileByID(fileID)
	if !ok {
		return nil, errors.FileNotFound(fileID)
	}
	return s.dataService.DetectDatetimeFormat(ctx, file.Path, columnName)
}

// ValidateFile runs missing-value analysis for one file with the user's type
// decisions applied as hints, so suggested strategies match the chosen types
// rather than the inferred ones.
func (s *WizardService) ValidateFile(ctx context.Context, sessionID, fileID string) (*models.DataframeValidation, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	state := session.Store.Snapshot()
	file, ok := state.FileByID(fileID)
	if !ok {
		return nil, errors.FileNotFound(fileID)
	}

	hints := make(map[string]string)
	for _, sel := range state.DataTypeSelections[fileID] {
		hints[sel.ColumnName] = sel.SelectedType
	}
	return s.dataService.ValidateDataframe(ctx, file.Path, hints)
}
