package datastub

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"gridprep/adapters/dataservice"
	"gridprep/internal/flow"
)

// The stub is exercised through the real client so the wire contract is
// checked from both sides at once.
func newStubClient(t *testing.T) (*dataservice.Client, *Server) {
	t.Helper()
	server, err := NewServer(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	client := dataservice.NewClient(dataservice.Config{
		BaseURL:      ts.URL,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  5 * time.Second,
	})
	return client, server
}

func writeWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for sheet, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				t.Fatal(err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				t.Fatal(err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadPreviewHeaderMetadataFlow(t *testing.T) {
	client, _ := newStubClient(t)
	ctx := context.Background()

	csv := "Quarterly report,\nregion,revenue\nnorth,1200\nsouth,\neast,800\n"
	upload, err := client.UploadFile(ctx, "report.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if upload.FilePath == "" {
		t.Fatal("upload must return a temp path")
	}

	preview, err := client.FilePreview(ctx, upload.FilePath, "")
	if err != nil {
		t.Fatal(err)
	}
	if preview.SuggestedHeaderRow == nil || *preview.SuggestedHeaderRow != 1 {
		t.Fatalf("suggested header row = %v", preview.SuggestedHeaderRow)
	}
	if len(preview.DescriptionRows) != 1 {
		t.Fatalf("description rows = %v", preview.DescriptionRows)
	}

	durable, err := client.ApplyHeaderSelection(ctx, upload.FilePath,
		flow.HeaderSelection{HeaderRowIndex: 1, HeaderRowCount: 1}, "")
	if err != nil {
		t.Fatal(err)
	}
	if durable == upload.FilePath {
		t.Fatal("header apply must produce a new durable path")
	}

	metadata, err := client.FileMetadata(ctx, durable)
	if err != nil {
		t.Fatal(err)
	}
	if metadata.TotalColumns != 2 || metadata.TotalRows != 3 {
		t.Fatalf("metadata = %+v", metadata)
	}
	revenue := metadata.Columns[1]
	if revenue.Name != "revenue" || revenue.Dtype != "int64" || revenue.MissingCount != 1 {
		t.Fatalf("revenue column = %+v", revenue)
	}

	validation, err := client.ValidateDataframe(ctx, durable, map[string]string{"revenue": "int64"})
	if err != nil {
		t.Fatal(err)
	}
	if len(validation.Columns) != 2 {
		t.Fatalf("validation = %+v", validation)
	}
	suggestions := strings.Join(validation.Columns[1].MissingValuesRules.Suggestions, " ")
	if !strings.Contains(suggestions, "fill_mean") {
		t.Fatalf("suggestions = %s", suggestions)
	}
}

func TestMultiSheetUploadAndConversionTask(t *testing.T) {
	client, _ := newStubClient(t)
	ctx := context.Background()

	path := writeWorkbook(t, map[string][][]string{
		"Q1": {{"region", "revenue"}, {"north", "10"}},
		"Q2": {{"region", "revenue"}, {"south", "20"}},
	})
	content, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer content.Close()

	upload, err := client.UploadExcelMultiSheet(ctx, "book.xlsx", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(upload.Sheets) != 2 || upload.UploadSessionID == "" {
		t.Fatalf("upload = %+v", upload)
	}

	// Conversion answers with a task envelope; the client polls it through.
	result, err := client.ConvertSessionSheet(ctx, upload.UploadSessionID, "Q1", "book.xlsx", true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(result.FilePath, filepath.Join("book", "Q1.csv")) {
		t.Fatalf("durable path = %s", result.FilePath)
	}
	if _, err := os.Stat(result.FilePath); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	metadata, err := client.FileMetadata(ctx, result.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if metadata.TotalRows != 1 || metadata.Columns[0].Name != "region" {
		t.Fatalf("metadata = %+v", metadata)
	}
}

func TestConvertUnknownSessionFails(t *testing.T) {
	client, _ := newStubClient(t)
	_, err := client.ConvertSessionSheet(context.Background(), "ghost", "Q1", "x.xlsx", false)
	if err == nil {
		t.Fatal("unknown upload session must fail")
	}
}

func TestValidatorLifecycle(t *testing.T) {
	client, _ := newStubClient(t)
	ctx := context.Background()

	created, err := client.CreateValidator(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if created.ValidatorID == "" || created.Name != "orders" {
		t.Fatalf("created = %+v", created)
	}

	updated, err := client.UpdateColumnTypes(ctx, created.ValidatorID, map[string]string{"amount": "float64"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ColumnTypes["amount"] != "float64" {
		t.Fatalf("updated = %+v", updated)
	}

	classified, err := client.ClassifyColumns(ctx, created.ValidatorID, map[string]string{"id": "identifier"})
	if err != nil {
		t.Fatal(err)
	}
	if classified.ColumnRoles["id"] != "identifier" {
		t.Fatalf("classified = %+v", classified)
	}

	fetched, err := client.GetValidatorConfig(ctx, created.ValidatorID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.ColumnTypes["amount"] != "float64" || fetched.ColumnRoles["id"] != "identifier" {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestValidatorConcurrentConfiguration(t *testing.T) {
	client, _ := newStubClient(t)
	ctx := context.Background()

	created, err := client.CreateValidator(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}

	// Concurrent rule writes and reads against one validator: every
	// response must be a consistent snapshot, never a map mid-mutation.
	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("rule_%d", i)
			if _, err := client.ConfigureValidationConfig(ctx, created.ValidatorID, map[string]any{key: true}); err != nil {
				errs <- err
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetValidatorConfig(ctx, created.ValidatorID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	fetched, err := client.GetValidatorConfig(ctx, created.ValidatorID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fetched.Rules) != 20 {
		t.Fatalf("rules = %d, want 20", len(fetched.Rules))
	}
}
