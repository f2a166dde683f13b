package dataservice

import (
	"context"
	"net/url"
	"strconv"

	"gridprep/internal/flow"
	"gridprep/models"
)

// FilePreview fetches the structural scan for a file or sheet: sample rows,
// description rows and the service's suggested header row.
func (c *Client) FilePreview(ctx context.Context, objectPath, sheet string) (*models.FilePreview, error) {
	query := url.Values{}
	query.Set("object_path", objectPath)
	if sheet != "" {
		query.Set("sheet", sheet)
	}

	var preview models.FilePreview
	if err := c.getJSON(ctx, "/file-preview", query, "Preview failed", &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

// ApplyHeaderSelection commits the user's header decision. The service
// rewrites the file under a durable path and returns it; the caller replaces
// the temporary path and marks the file processed.
func (c *Client) ApplyHeaderSelection(ctx context.Context, objectPath string, sel flow.HeaderSelection, sheet string) (string, error) {
	form := url.Values{}
	form.Set("object_path", objectPath)
	form.Set("header_row_index", strconv.Itoa(sel.HeaderRowIndex))
	form.Set("header_row_count", strconv.Itoa(sel.HeaderRowCount))
	form.Set("no_header", strconv.FormatBool(sel.NoHeader))
	if sheet != "" {
		form.Set("sheet", sheet)
	}

	var result struct {
		FilePath string `json:"file_path"`
	}
	if err := c.postForm(ctx, "/apply-header-selection", form, "Header confirmation failed", &result); err != nil {
		return "", err
	}
	return result.FilePath, nil
}

// FileMetadata fetches the schema summary for a persisted dataframe.
func (c *Client) FileMetadata(ctx context.Context, filePath string) (*models.FileMetadata, error) {
	var metadata models.FileMetadata
	body := map[string]string{"file_path": filePath}
	if err := c.postJSON(ctx, "/file-metadata", body, "Metadata fetch failed", &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// DetectDatetimeFormat asks the service to infer a datetime format for one
// column. Callers downgrade failures to "let the user pick a format" rather
// than surfacing a hard error.
func (c *Client) DetectDatetimeFormat(ctx context.Context, filePath, columnName string) (*models.DatetimeDetection, error) {
	var detection models.DatetimeDetection
	body := map[string]string{
		"file_path":   filePath,
		"column_name": columnName,
	}
	if err := c.postJSON(ctx, "/detect-datetime-format", body, "Datetime detection failed", &detection); err != nil {
		return nil, err
	}
	return &detection, nil
}

// ValidateDataframe runs the service's missing-value analysis with the
// user's column type hints applied.
func (c *Client) ValidateDataframe(ctx context.Context, filePath string, typeHints map[string]string) (*models.DataframeValidation, error) {
	var validation models.DataframeValidation
	body := map[string]any{
		"file_path":         filePath,
		"column_type_hints": typeHints,
	}
	if err := c.postJSON(ctx, "/validate-dataframe", body, "Validation failed", &validation); err != nil {
		return nil, err
	}
	return &validation, nil
}
