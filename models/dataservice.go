package models

// Wire shapes for the remote data service. The heavy lifting (parsing,
// inference, statistics, validation) happens server-side; these are the
// request/response contracts the wizard consumes.

// UploadResult is the single-table upload response. FilePath points at a
// temporary, not-yet-durable location until header confirmation completes.
type UploadResult struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
}

// SheetDetail pairs a workbook sheet's original name with the normalized
// name the service will materialize it under.
type SheetDetail struct {
	OriginalName   string `json:"original_name"`
	NormalizedName string `json:"normalized_name"`
}

// MultiSheetUploadResult is the spreadsheet upload response: the sheet list
// plus a session token for the follow-up materialization requests.
type MultiSheetUploadResult struct {
	Sheets           []string      `json:"sheets"`
	SheetDetails     []SheetDetail `json:"sheet_details"`
	UploadSessionID  string        `json:"upload_session_id"`
	FileName         string        `json:"file_name"`
	OriginalFilePath string        `json:"original_file_path"`
}

// SheetConversionResult is returned per materialized sheet.
type SheetConversionResult struct {
	FilePath string `json:"file_path"`
	FileName string `json:"file_name"`
	FileKey  string `json:"file_key"`
}

// FilePreview is the structural scan response for one file or sheet.
type FilePreview struct {
	DataRows           [][]string `json:"data_rows"`
	DescriptionRows    [][]string `json:"description_rows"`
	SuggestedHeaderRow *int       `json:"suggested_header_row,omitempty"`
	TotalRows          int        `json:"total_rows"`
	ColumnCount        int        `json:"column_count"`
}

// ColumnMetadata describes one column of a persisted dataframe.
type ColumnMetadata struct {
	Name              string   `json:"name"`
	Dtype             string   `json:"dtype"`
	MissingCount      int      `json:"missing_count"`
	MissingPercentage float64  `json:"missing_percentage"`
	SampleValues      []string `json:"sample_values"`
}

// FileMetadata is the schema summary for a persisted dataframe.
type FileMetadata struct {
	Columns      []ColumnMetadata `json:"columns"`
	TotalRows    int              `json:"total_rows"`
	TotalColumns int              `json:"total_columns"`
}

// DatetimeDetection reports whether the service could infer a datetime
// format for a column, and which one.
type DatetimeDetection struct {
	CanDetect      bool   `json:"can_detect"`
	DetectedFormat string `json:"detected_format,omitempty"`
}

// MissingValuesRules carries the service's missing-value analysis for one
// column, including suggested strategies.
type MissingValuesRules struct {
	MissingCount   int      `json:"missing_count"`
	MissingPercent float64  `json:"missing_percent"`
	Suggestions    []string `json:"suggestions"`
}

// ColumnValidation is one column's entry in a dataframe validation response.
type ColumnValidation struct {
	Name               string             `json:"name"`
	MissingValuesRules MissingValuesRules `json:"missing_values_rules"`
}

// DataframeValidation is the validate-dataframe response.
type DataframeValidation struct {
	Columns []ColumnValidation `json:"columns"`
}

// ValidatorConfig is the validator-scoped configuration echoed back by the
// validation service endpoints.
type ValidatorConfig struct {
	ValidatorID string            `json:"validator_id"`
	Name        string            `json:"name"`
	ColumnTypes map[string]string `json:"column_types,omitempty"`
	ColumnRoles map[string]string `json:"column_roles,omitempty"`
	Rules       map[string]any    `json:"rules,omitempty"`
}

// TaskEnvelope wraps a long-running conversion: submit returns a task id,
// then the caller polls until a terminal state is reached.
type TaskEnvelope struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Task terminal and in-flight states.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)
