package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gridprep/app"
	"gridprep/internal/errors"
	"gridprep/internal/flow"
	"gridprep/internal/richtext"
)

// statusFor maps application error codes to HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeSessionNotFound, errors.CodeFileNotFound, errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeUploadFailed, errors.CodeDataService, errors.CodeTaskFailed:
		return http.StatusBadGateway
	case errors.CodeTaskTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func sessionResponse(session *app.WizardSession) gin.H {
	state := session.Store.Snapshot()
	return gin.H{
		"session_id": session.ID,
		"stage":      state.CurrentStage.String(),
		"state":      state,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListStrategies(c *gin.Context) {
	kind := flow.ColumnKind(c.DefaultQuery("kind", string(flow.KindCategorical)))
	strategies := flow.StrategiesFor(kind)
	names := make([]string, len(strategies))
	for i, strategy := range strategies {
		names[i] = string(strategy)
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "strategies": names})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		SkipFileSelect bool `json:"skip_file_select"`
	}
	// Body is optional; a bare POST creates a default session.
	_ = c.ShouldBindJSON(&req)

	session, err := s.wizard.CreateSession(c.Request.Context(), req.SkipFileSelect)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(session))
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.wizard.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func (s *Server) handleResumeSession(c *gin.Context) {
	session, err := s.wizard.ResumeSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func (s *Server) handleEndSession(c *gin.Context) {
	if err := s.wizard.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleNextStage(c *gin.Context) {
	stage, err := s.wizard.NextStage(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage.String()})
}

func (s *Server) handlePreviousStage(c *gin.Context) {
	stage, err := s.wizard.PreviousStage(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage.String()})
}

func (s *Server) handleJumpToStage(c *gin.Context) {
	var req struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("stage is required"))
		return
	}
	target, err := flow.ParseStage(req.Stage)
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	stage, err := s.wizard.JumpToStage(c.Param("id"), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage.String()})
}

func (s *Server) handleRestartFlow(c *gin.Context) {
	stage, err := s.wizard.RestartFlow(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": stage.String()})
}

func (s *Server) handleSetStageCursor(c *gin.Context) {
	var req struct {
		Stage string `json:"stage" binding:"required"`
		Index int    `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("stage is required"))
		return
	}
	stage, err := flow.ParseStage(req.Stage)
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	session, err := s.wizard.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	session.Store.SetStageCursor(stage, req.Index)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, errors.InvalidInput("multipart form required"))
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		respondError(c, errors.InvalidInput("no files provided"))
		return
	}

	var uploads []app.FileUpload
	var closers []func() error
	for _, header := range fileHeaders {
		opened, err := header.Open()
		if err != nil {
			respondError(c, errors.UploadFailed(header.Filename, err))
			return
		}
		closers = append(closers, opened.Close)
		uploads = append(uploads, app.FileUpload{
			Name:    header.Filename,
			Size:    header.Size,
			Content: opened,
		})
	}
	defer func() {
		for _, close := range closers {
			_ = close()
		}
	}()

	files, err := s.wizard.UploadFiles(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) handleRemoveFile(c *gin.Context) {
	if err := s.wizard.RemoveFile(c.Request.Context(), c.Param("id"), c.Param("fileID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSelectSheets(c *gin.Context) {
	var req struct {
		Sheets []string `json:"sheets" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("sheets is required"))
		return
	}
	entries, err := s.wizard.SelectSheets(c.Request.Context(), c.Param("id"), c.Param("fileID"), req.Sheets)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries})
}

func (s *Server) handleMaterializeSheets(c *gin.Context) {
	if err := s.wizard.MaterializeSheets(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	session, err := s.wizard.Session(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": session.Store.Snapshot().UploadedFiles})
}

func (s *Server) handlePreview(c *gin.Context) {
	preview, err := s.wizard.Preview(c.Request.Context(), c.Param("id"), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handleConfirmHeader(c *gin.Context) {
	var sel flow.HeaderSelection
	if err := c.ShouldBindJSON(&sel); err != nil {
		respondError(c, errors.InvalidInput("invalid header selection"))
		return
	}
	path, err := s.wizard.ConfirmHeader(c.Request.Context(), c.Param("id"), c.Param("fileID"), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_path": path})
}

// columnEdit is a ColumnNameEdit as the rename cells submit it: the edited
// name may arrive as the cell's HTML instead of plain text.
type columnEdit struct {
	flow.ColumnNameEdit
	EditedHTML string `json:"editedHtml,omitempty"`
}

func (s *Server) handleSetColumnNameEdits(c *gin.Context) {
	var req struct {
		Edits []columnEdit `json:"edits"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid column edits"))
		return
	}
	edits := make([]flow.ColumnNameEdit, len(req.Edits))
	for i, e := range req.Edits {
		edit := e.ColumnNameEdit
		// Cell markup never reaches the stored decision: the plain text is
		// extracted and kept as the canonical name.
		if e.EditedHTML != "" {
			edit.EditedName = richtext.PlainTextOf(e.EditedHTML)
		}
		edits[i] = edit
	}
	if err := s.wizard.SetColumnNameEdits(c.Param("id"), c.Param("fileID"), edits); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetDataTypes(c *gin.Context) {
	var req struct {
		Selections []flow.DataTypeSelection `json:"selections"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid type selections"))
		return
	}
	if err := s.wizard.SetDataTypeSelections(c.Param("id"), c.Param("fileID"), req.Selections); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetMissingValues(c *gin.Context) {
	var req struct {
		Choices []flow.MissingValueChoice `json:"choices"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid missing-value choices"))
		return
	}
	if err := s.wizard.SetMissingValueStrategies(c.Param("id"), c.Param("fileID"), req.Choices); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePrefetchMetadata(c *gin.Context) {
	results, err := s.wizard.PrefetchMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metadata": results})
}

func (s *Server) handleFileMetadata(c *gin.Context) {
	metadata, err := s.wizard.FileMetadata(c.Request.Context(), c.Param("id"), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metadata)
}

func (s *Server) handleValidateFile(c *gin.Context) {
	validation, err := s.wizard.ValidateFile(c.Request.Context(), c.Param("id"), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, validation)
}

func (s *Server) handleDetectDatetime(c *gin.Context) {
	column := c.Query("column")
	if column == "" {
		respondError(c, errors.InvalidInput("column query parameter is required"))
		return
	}
	detection, err := s.wizard.DetectDatetimeFormat(c.Request.Context(), c.Param("id"), c.Param("fileID"), column)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detection)
}

func stageParam(c *gin.Context) (flow.Stage, bool) {
	name := c.Query("stage")
	if name == "" {
		respondError(c, errors.InvalidInput("stage query parameter is required"))
		return 0, false
	}
	stage, err := flow.ParseStage(name)
	if err != nil {
		respondError(c, errors.InvalidInput(err.Error()))
		return 0, false
	}
	return stage, true
}

func (s *Server) handleCurrentStageFile(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	pos, err := s.wizard.CurrentStageFile(c.Param("id"), stage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) handleAdvanceStageFile(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	pos, err := s.wizard.AdvanceStageFile(c.Param("id"), stage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) handleRetreatStageFile(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	pos, err := s.wizard.RetreatStageFile(c.Param("id"), stage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) handleGetFileNote(c *gin.Context) {
	note, err := s.wizard.FileNote(c.Param("id"), c.Param("fileID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (s *Server) handleSetFileNote(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid note body"))
		return
	}
	note, err := s.wizard.SetFileNote(c.Param("id"), c.Param("fileID"), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}
