package datastub

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gridprep/models"
)

// Server is a local stand-in for the remote data service, good enough for
// development and integration tests: real parsing via excelize/csv, real
// summary statistics, in-memory task and validator registries. It speaks the
// same wire contract the production service does.
type Server struct {
	store  *store
	router chi.Router
}

// NewServer creates the stub over a data directory.
func NewServer(dataDir string) (*Server, error) {
	st, err := newStore(dataDir)
	if err != nil {
		return nil, err
	}

	s := &Server{store: st}
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/upload-file", s.handleUploadFile)
	r.Post("/upload-excel-multi-sheet", s.handleUploadExcelMultiSheet)
	r.Post("/convert-session-sheet-to-arrow", s.handleConvertSheet)
	r.Get("/tasks/{taskID}", s.handleTaskStatus)

	r.Get("/file-preview", s.handleFilePreview)
	r.Post("/apply-header-selection", s.handleApplyHeaderSelection)
	r.Post("/file-metadata", s.handleFileMetadata)
	r.Post("/detect-datetime-format", s.handleDetectDatetime)
	r.Post("/validate-dataframe", s.handleValidateDataframe)

	r.Route("/validators", func(r chi.Router) {
		r.Post("/create_new", s.handleCreateValidator)
		r.Post("/get_validator_config", s.handleGetValidator)
		r.Post("/configure_validation_config", s.handleConfigureValidator)
		r.Post("/classify_columns", s.handleClassifyColumns)
		r.Post("/update_column_types", s.handleUpdateColumnTypes)
	})

	s.router = r
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[DataStub] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	path, err := s.store.saveUpload(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.UploadResult{
		FilePath: path,
		FileName: header.Filename,
	})
}

func (s *Server) handleUploadExcelMultiSheet(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	path, err := s.store.saveUpload(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sheets, err := workbookSheets(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := s.store.registerUpload(header.Filename, path, sheets)
	details := make([]models.SheetDetail, len(sheets))
	for i, sheet := range sheets {
		details[i] = models.SheetDetail{
			OriginalName:   sheet,
			NormalizedName: normalizeSheetName(sheet),
		}
	}
	writeJSON(w, http.StatusOK, models.MultiSheetUploadResult{
		Sheets:           sheets,
		SheetDetails:     details,
		UploadSessionID:  session.ID,
		FileName:         header.Filename,
		OriginalFilePath: path,
	})
}

func normalizeSheetName(sheet string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(sheet), " ", "_"))
}

// handleConvertSheet materializes one sheet asynchronously and answers with
// a task envelope, exercising the caller's poll loop the way the production
// service does.
func (s *Server) handleConvertSheet(w http.ResponseWriter, r *http.Request) {
	sessionID := r.FormValue("upload_session_id")
	sheetName := r.FormValue("sheet_name")
	originalName := r.FormValue("original_filename")
	folderStructure, _ := strconv.ParseBool(r.FormValue("use_folder_structure"))

	session, ok := s.store.upload(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("upload session %s not found", sessionID))
		return
	}
	if originalName == "" {
		originalName = session.FileName
	}

	t := s.store.startTask(func() (any, error) {
		table, err := readSheet(session.Path, sheetName)
		if err != nil {
			return nil, err
		}
		target := s.store.durablePath(originalName, sheetName, folderStructure)
		if err := writeCSV(target, table.Rows); err != nil {
			return nil, err
		}
		return models.SheetConversionResult{
			FilePath: target,
			FileName: originalName,
			FileKey:  normalizeSheetName(sheetName),
		}, nil
	})
	s.store.cleanupTasks(256)

	writeJSON(w, http.StatusOK, models.TaskEnvelope{TaskID: t.ID, Status: t.Status})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := s.store.task(chi.URLParam(r, "taskID"))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": t.ID,
		"status":  t.Status,
		"error":   t.Error,
		"result":  t.Result,
	})
}

func (s *Server) handleFilePreview(w http.ResponseWriter, r *http.Request) {
	objectPath := r.URL.Query().Get("object_path")
	sheet := r.URL.Query().Get("sheet")
	if objectPath == "" {
		writeError(w, http.StatusBadRequest, "object_path is required")
		return
	}

	table, err := readTable(objectPath, sheet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	headerRow := suggestHeaderRow(table.Rows)
	preview := models.FilePreview{
		TotalRows:   len(table.Rows),
		ColumnCount: table.ColumnCount(),
	}
	if headerRow >= 0 {
		preview.SuggestedHeaderRow = &headerRow
		preview.DescriptionRows = table.Rows[:headerRow]
		preview.DataRows = sampleRows(table.Rows[headerRow:], 50)
	} else {
		preview.DataRows = sampleRows(table.Rows, 50)
	}
	writeJSON(w, http.StatusOK, preview)
}

func sampleRows(rows [][]string, limit int) [][]string {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func (s *Server) handleApplyHeaderSelection(w http.ResponseWriter, r *http.Request) {
	objectPath := r.FormValue("object_path")
	sheet := r.FormValue("sheet")
	headerRowIndex, _ := strconv.Atoi(r.FormValue("header_row_index"))
	headerRowCount, _ := strconv.Atoi(r.FormValue("header_row_count"))
	noHeader, _ := strconv.ParseBool(r.FormValue("no_header"))

	table, err := readTable(objectPath, sheet)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if headerRowCount < 1 {
		headerRowCount = 1
	}

	rows := applyHeader(table.Rows, headerRowIndex, headerRowCount, noHeader)
	target := s.store.durablePath(objectPath, sheet, false)
	if err := writeCSV(target, rows); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": target})
}

// applyHeader rewrites raw rows into a headed table. Multi-row headers merge
// top-down with spaces; noHeader synthesizes column_N names and keeps every
// row as data.
func applyHeader(rows [][]string, headerRowIndex, headerRowCount int, noHeader bool) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	if noHeader || headerRowIndex < 0 || headerRowIndex >= len(rows) {
		header := make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
		return append([][]string{header}, rows...)
	}

	header := make([]string, width)
	end := headerRowIndex + headerRowCount
	if end > len(rows) {
		end = len(rows)
	}
	for i := headerRowIndex; i < end; i++ {
		for j, cell := range rows[i] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if header[j] == "" {
				header[j] = cell
			} else {
				header[j] = header[j] + " " + cell
			}
		}
	}
	for i := range header {
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}
	return append([][]string{header}, rows[end:]...)
}

func (s *Server) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath string `json:"file_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	table, err := readTable(req.FilePath, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(table.Rows) == 0 {
		writeJSON(w, http.StatusOK, models.FileMetadata{})
		return
	}

	header := table.Rows[0]
	metadata := models.FileMetadata{
		TotalRows:    len(table.Rows) - 1,
		TotalColumns: len(header),
	}
	for i, name := range header {
		metadata.Columns = append(metadata.Columns, columnMetadata(name, table.Column(i, 0)))
	}
	writeJSON(w, http.StatusOK, metadata)
}

func (s *Server) handleDetectDatetime(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath   string `json:"file_path"`
		ColumnName string `json:"column_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	values, err := s.columnValues(req.FilePath, req.ColumnName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format, ok := detectDatetimeFormat(values)
	writeJSON(w, http.StatusOK, models.DatetimeDetection{
		CanDetect:      ok,
		DetectedFormat: format,
	})
}

func (s *Server) handleValidateDataframe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath        string            `json:"file_path"`
		ColumnTypeHints map[string]string `json:"column_type_hints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FilePath == "" {
		writeError(w, http.StatusBadRequest, "file_path is required")
		return
	}

	table, err := readTable(req.FilePath, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(table.Rows) == 0 {
		writeJSON(w, http.StatusOK, models.DataframeValidation{})
		return
	}

	var validation models.DataframeValidation
	for i, name := range table.Rows[0] {
		values := table.Column(i, 0)
		dtype := req.ColumnTypeHints[name]
		if dtype == "" {
			dtype = inferDtype(values)
		}
		validation.Columns = append(validation.Columns, models.ColumnValidation{
			Name:               name,
			MissingValuesRules: missingValueSuggestions(values, dtype),
		})
	}
	writeJSON(w, http.StatusOK, validation)
}

func (s *Server) columnValues(filePath, columnName string) ([]string, error) {
	table, err := readTable(filePath, "")
	if err != nil {
		return nil, err
	}
	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("file %s is empty", filePath)
	}
	for i, name := range table.Rows[0] {
		if name == columnName {
			return table.Column(i, 0), nil
		}
	}
	return nil, fmt.Errorf("column %q not found", columnName)
}

func (s *Server) handleCreateValidator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.store.createValidator(req.Name))
}

func (s *Server) handleGetValidator(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.lookupValidator(w, r, nil)
	if !ok {
		return
	}
	s.store.mu.Lock()
	out := snapshotValidator(cfg)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConfigureValidator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rules map[string]any `json:"rules"`
	}
	cfg, ok := s.lookupValidator(w, r, &req)
	if !ok {
		return
	}
	s.store.mu.Lock()
	for key, value := range req.Rules {
		cfg.Rules[key] = value
	}
	out := snapshotValidator(cfg)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClassifyColumns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnRoles map[string]string `json:"column_roles"`
	}
	cfg, ok := s.lookupValidator(w, r, &req)
	if !ok {
		return
	}
	s.store.mu.Lock()
	for column, role := range req.ColumnRoles {
		cfg.ColumnRoles[column] = role
	}
	out := snapshotValidator(cfg)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateColumnTypes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ColumnTypes map[string]string `json:"column_types"`
	}
	cfg, ok := s.lookupValidator(w, r, &req)
	if !ok {
		return
	}
	s.store.mu.Lock()
	for column, dtype := range req.ColumnTypes {
		cfg.ColumnTypes[column] = dtype
	}
	out := snapshotValidator(cfg)
	s.store.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// lookupValidator decodes the request body (which always carries
// validator_id, optionally alongside extra fields in dst) and resolves the
// validator.
func (s *Server) lookupValidator(w http.ResponseWriter, r *http.Request, dst any) (*models.ValidatorConfig, bool) {
	var raw json.RawMessage
	var id struct {
		ValidatorID string `json:"validator_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := json.Unmarshal(raw, &id); err != nil || id.ValidatorID == "" {
		writeError(w, http.StatusBadRequest, "validator_id is required")
		return nil, false
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return nil, false
		}
	}
	cfg, ok := s.store.validator(id.ValidatorID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("validator %s not found", id.ValidatorID))
		return nil, false
	}
	return cfg, true
}
