package dataservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"gridprep/models"
)

// UploadFile uploads a single-table file (CSV or single-sheet workbook). The
// returned path points at temporary storage; the file must not be treated as
// safely stored until a later header confirmation completes.
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*models.UploadResult, error) {
	var result models.UploadResult
	if err := c.uploadMultipart(ctx, "/upload-file", fileName, content, "Upload failed", &result); err != nil {
		return nil, err
	}
	log.Printf("[DataService] Uploaded %s -> %s", fileName, result.FilePath)
	return &result, nil
}

// UploadExcelMultiSheet uploads a workbook with multiple sheets. The response
// lists every sheet plus an upload session token; the caller issues one
// ConvertSessionSheet request per sheet the user selects.
func (c *Client) UploadExcelMultiSheet(ctx context.Context, fileName string, content io.Reader) (*models.MultiSheetUploadResult, error) {
	var result models.MultiSheetUploadResult
	if err := c.uploadMultipart(ctx, "/upload-excel-multi-sheet", fileName, content, "Upload failed", &result); err != nil {
		return nil, err
	}
	log.Printf("[DataService] Uploaded workbook %s (%d sheets, session %s)",
		fileName, len(result.Sheets), result.UploadSessionID)
	return &result, nil
}

// ConvertSessionSheet materializes one sheet of a prior multi-sheet upload
// into a durable table artifact. Conversions can be long-running; the async
// task envelope is resolved transparently.
func (c *Client) ConvertSessionSheet(ctx context.Context, uploadSessionID, sheetName, originalFileName string, folderStructure bool) (*models.SheetConversionResult, error) {
	form := url.Values{}
	form.Set("upload_session_id", uploadSessionID)
	form.Set("sheet_name", sheetName)
	form.Set("original_filename", originalFileName)
	form.Set("use_folder_structure", strconv.FormatBool(folderStructure))

	var result models.SheetConversionResult
	if err := c.postForm(ctx, "/convert-session-sheet-to-arrow", form,
		fmt.Sprintf("Failed to save sheet %q", sheetName), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// uploadMultipart posts a file plus environment fields as multipart form
// data. The whole body is buffered: upload sizes here are interactive-scale
// and the service wants a Content-Length.
func (c *Client) uploadMultipart(ctx context.Context, path, fileName string, content io.Reader, fallback string, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy file content: %w", err)
	}
	if err := writer.WriteField("file_name", fileName); err != nil {
		return fmt.Errorf("write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	raw, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	return c.decodeMaybeTask(ctx, raw, fallback, out)
}
