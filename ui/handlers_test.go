package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"gridprep/app"
	"gridprep/internal/config"
	"gridprep/internal/events"
	"gridprep/internal/flow"
	"gridprep/models"
)

type stubDataService struct{}

func (stubDataService) UploadFile(ctx context.Context, fileName string, content io.Reader) (*models.UploadResult, error) {
	return &models.UploadResult{FilePath: "/tmp/" + fileName, FileName: fileName}, nil
}
func (stubDataService) UploadExcelMultiSheet(ctx context.Context, fileName string, content io.Reader) (*models.MultiSheetUploadResult, error) {
	return &models.MultiSheetUploadResult{
		Sheets: []string{"Q1", "Q2"}, UploadSessionID: "us-1", OriginalFilePath: "/tmp/" + fileName,
	}, nil
}
func (stubDataService) ConvertSessionSheet(ctx context.Context, uploadSessionID, sheetName, originalFileName string, folderStructure bool) (*models.SheetConversionResult, error) {
	return &models.SheetConversionResult{FilePath: "/data/" + sheetName + ".arrow"}, nil
}
func (stubDataService) FilePreview(ctx context.Context, objectPath, sheet string) (*models.FilePreview, error) {
	row := 0
	return &models.FilePreview{SuggestedHeaderRow: &row, TotalRows: 5, ColumnCount: 2}, nil
}
func (stubDataService) ApplyHeaderSelection(ctx context.Context, objectPath string, sel flow.HeaderSelection, sheet string) (string, error) {
	return "/data/durable.arrow", nil
}
func (stubDataService) FileMetadata(ctx context.Context, filePath string) (*models.FileMetadata, error) {
	return &models.FileMetadata{TotalRows: 5, TotalColumns: 2}, nil
}
func (stubDataService) DetectDatetimeFormat(ctx context.Context, filePath, columnName string) (*models.DatetimeDetection, error) {
	return &models.DatetimeDetection{CanDetect: false}, nil
}
func (stubDataService) ValidateDataframe(ctx context.Context, filePath string, typeHints map[string]string) (*models.DataframeValidation, error) {
	return &models.DataframeValidation{}, nil
}
func (stubDataService) CreateValidator(ctx context.Context, name string) (*models.ValidatorConfig, error) {
	return &models.ValidatorConfig{}, nil
}
func (stubDataService) GetValidatorConfig(ctx context.Context, validatorID string) (*models.ValidatorConfig, error) {
	return &models.ValidatorConfig{}, nil
}
func (stubDataService) ConfigureValidationConfig(ctx context.Context, validatorID string, rules map[string]any) (*models.ValidatorConfig, error) {
	return &models.ValidatorConfig{}, nil
}
func (stubDataService) ClassifyColumns(ctx context.Context, validatorID string, roles map[string]string) (*models.ValidatorConfig, error) {
	return &models.ValidatorConfig{}, nil
}
func (stubDataService) UpdateColumnTypes(ctx context.Context, validatorID string, types map[string]string) (*models.ValidatorConfig, error) {
	return &models.ValidatorConfig{}, nil
}

type memoryRepo struct {
	snapshots map[string]*models.WizardSnapshot
}

func (r *memoryRepo) SaveSnapshot(ctx context.Context, snapshot *models.WizardSnapshot) error {
	r.snapshots[snapshot.SessionID] = snapshot
	return nil
}
func (r *memoryRepo) GetSnapshot(ctx context.Context, sessionID string) (*models.WizardSnapshot, error) {
	return r.snapshots[sessionID], nil
}
func (r *memoryRepo) DeleteSnapshot(ctx context.Context, sessionID string) error {
	delete(r.snapshots, sessionID)
	return nil
}
func (r *memoryRepo) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	return 0, nil
}

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:      config.ServerConfig{GinMode: gin.TestMode},
		Persistence: config.PersistenceConfig{Backend: "file", SnapshotTTL: time.Hour},
		Wizard: config.WizardConfig{
			SessionMaxAge:   time.Hour,
			SheetQueueDelay: time.Millisecond,
			MetadataWorkers: 2,
		},
	}
	hub := events.NewHub()
	wizard := app.NewWizardService(stubDataService{}, &memoryRepo{snapshots: map[string]*models.WizardSnapshot{}}, hub, cfg)
	return NewServer(cfg, wizard, hub)
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, server *Server) string {
	t.Helper()
	rec := doJSON(t, server, http.MethodPost, "/api/wizard/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.SessionID
}

func TestCreateSessionReturnsInitialStage(t *testing.T) {
	server := newTestServer()
	rec := doJSON(t, server, http.MethodPost, "/api/wizard/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"stage":"file_select"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	server := newTestServer()
	rec := doJSON(t, server, http.MethodGet, "/api/wizard/sessions/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "SESSION_NOT_FOUND") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestNavigationEndpoints(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)

	rec := doJSON(t, server, http.MethodPost, "/api/wizard/sessions/"+id+"/next", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "structural_scan") {
		t.Fatalf("next: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/api/wizard/sessions/"+id+"/back", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "file_select") {
		t.Fatalf("back: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/api/wizard/sessions/"+id+"/jump",
		map[string]string{"stage": "type_review"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "type_review") {
		t.Fatalf("jump: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPost, "/api/wizard/sessions/"+id+"/jump",
		map[string]string{"stage": "not_a_stage"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid jump: %d", rec.Code)
	}

	rec = doJSON(t, server, http.MethodPost, "/api/wizard/sessions/"+id+"/restart", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "file_select") {
		t.Fatalf("restart: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUploadFilesMultipart(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", "table.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("a,b\n1,2\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/sessions/"+id+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Files []flow.UploadedFile `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Name != "table.csv" || resp.Files[0].ID == "" {
		t.Fatalf("files = %+v", resp.Files)
	}
}

func TestUploadWithoutFilesIsBadRequest(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/sessions/"+id+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListStrategiesByKind(t *testing.T) {
	server := newTestServer()

	rec := doJSON(t, server, http.MethodGet, "/api/strategies?kind=numeric", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fill_mean") || strings.Contains(body, "replace_unknown") {
		t.Fatalf("numeric strategies wrong: %s", body)
	}

	rec = doJSON(t, server, http.MethodGet, "/api/strategies?kind=categorical", nil)
	body = rec.Body.String()
	if !strings.Contains(body, "replace_unknown") || strings.Contains(body, "fill_mean") {
		t.Fatalf("categorical strategies wrong: %s", body)
	}
}

func TestEndSession(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)

	rec := doJSON(t, server, http.MethodDelete, "/api/wizard/sessions/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = doJSON(t, server, http.MethodGet, "/api/wizard/sessions/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("session should be gone, got %d", rec.Code)
	}
}

func TestStageFileEndpoints(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range []string{"first.csv", "second.csv"} {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("a,b\n1,2\n"))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/sessions/"+id+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	base := "/api/wizard/sessions/" + id + "/stage-file"
	var pos struct {
		File     *flow.UploadedFile `json:"file"`
		Index    int                `json:"index"`
		Total    int                `json:"total"`
		Boundary bool               `json:"boundary"`
	}

	rec = doJSON(t, server, http.MethodGet, base+"?stage=header_confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current: %d %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
		t.Fatal(err)
	}
	if pos.Index != 0 || pos.Total != 2 || pos.File == nil || pos.File.Name != "first.csv" {
		t.Fatalf("current = %+v", pos)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/advance?stage=header_confirm", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
		t.Fatal(err)
	}
	if pos.Boundary || pos.File == nil || pos.File.Name != "second.csv" {
		t.Fatalf("advance = %+v", pos)
	}

	rec = doJSON(t, server, http.MethodPost, base+"/advance?stage=header_confirm", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &pos); err != nil {
		t.Fatal(err)
	}
	if !pos.Boundary {
		t.Fatalf("expected boundary, got %+v", pos)
	}

	rec = doJSON(t, server, http.MethodGet, base, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing stage should be 400, got %d", rec.Code)
	}
}

func uploadOne(t *testing.T, server *Server, sessionID, name string) flow.UploadedFile {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("a,b\n1,2\n"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/wizard/sessions/"+sessionID+"/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Files []flow.UploadedFile `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("files = %+v", resp.Files)
	}
	return resp.Files[0]
}

func TestSelectSheetsExpandsWorkbookEntries(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)
	workbook := uploadOne(t, server, id, "book.xlsx")

	rec := doJSON(t, server, http.MethodPut,
		"/api/wizard/sessions/"+id+"/files/"+workbook.ID+"/sheets",
		map[string][]string{"sheets": {"Q1", "Q2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("select sheets: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Files []flow.UploadedFile `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 2 {
		t.Fatalf("entries = %+v", resp.Files)
	}
	if resp.Files[0].SelectedSheet != "Q1" || resp.Files[1].SelectedSheet != "Q2" {
		t.Fatalf("entries = %+v", resp.Files)
	}
	if resp.Files[0].TotalSheets != 2 || resp.Files[0].ID == resp.Files[1].ID {
		t.Fatalf("entries = %+v", resp.Files)
	}

	rec = doJSON(t, server, http.MethodPut,
		"/api/wizard/sessions/"+id+"/files/"+workbook.ID+"/sheets",
		map[string][]string{"sheets": {"Nope"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown sheet: %d", rec.Code)
	}
}

func TestColumnEditsAcceptCellHTML(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)
	file := uploadOne(t, server, id, "table.csv")

	rec := doJSON(t, server, http.MethodPut,
		"/api/wizard/sessions/"+id+"/files/"+file.ID+"/columns",
		map[string]any{"edits": []map[string]any{{
			"originalName": "rev",
			"editedHtml":   "<b>net</b> revenue",
			"keep":         true,
		}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("columns: %d %s", rec.Code, rec.Body.String())
	}

	session, err := server.wizard.Session(id)
	if err != nil {
		t.Fatal(err)
	}
	edits := session.Store.Snapshot().ColumnNameEdits[file.ID]
	if len(edits) != 1 || edits[0].EditedName != "net revenue" {
		t.Fatalf("edits = %+v", edits)
	}
}

func TestFileNoteEndpoints(t *testing.T) {
	server := newTestServer()
	id := createSession(t, server)
	file := uploadOne(t, server, id, "table.csv")

	rec := doJSON(t, server, http.MethodPut,
		"/api/wizard/sessions/"+id+"/files/"+file.ID+"/note",
		map[string]string{"text": "drop the **legacy** columns"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put note: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "<strong>legacy</strong>") {
		t.Fatalf("note html = %s", rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodGet,
		"/api/wizard/sessions/"+id+"/files/"+file.ID+"/note", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "legacy") {
		t.Fatalf("get note: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, server, http.MethodPut,
		"/api/wizard/sessions/"+id+"/files/unknown/note",
		map[string]string{"text": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown file: %d", rec.Code)
	}
}
