package ports

import (
	"context"
	"io"

	"gridprep/internal/flow"
	"gridprep/models"
)

// DataService is the outbound contract for the remote data service that owns
// parsing, schema inference, statistics and validation. The wizard only ever
// consumes these operations; it never computes them locally.
type DataService interface {
	// UploadFile uploads a single-table file. The returned path is
	// temporary: the file is not durably stored until header confirmation.
	UploadFile(ctx context.Context, fileName string, content io.Reader) (*models.UploadResult, error)

	// UploadExcelMultiSheet uploads a workbook and returns its sheet list
	// plus a session token; the caller issues one ConvertSessionSheet call
	// per sheet the user selects.
	UploadExcelMultiSheet(ctx context.Context, fileName string, content io.Reader) (*models.MultiSheetUploadResult, error)

	// ConvertSessionSheet materializes one sheet of a prior multi-sheet
	// upload into a durable, queryable artifact.
	ConvertSessionSheet(ctx context.Context, uploadSessionID, sheetName, originalFileName string, folderStructure bool) (*models.SheetConversionResult, error)

	// FilePreview returns the structural scan for a file, including the
	// suggested header row.
	FilePreview(ctx context.Context, objectPath, sheet string) (*models.FilePreview, error)

	// ApplyHeaderSelection commits a header decision server-side and returns
	// the new durable path.
	ApplyHeaderSelection(ctx context.Context, objectPath string, sel flow.HeaderSelection, sheet string) (string, error)

	// FileMetadata returns the schema summary for a persisted dataframe.
	FileMetadata(ctx context.Context, filePath string) (*models.FileMetadata, error)

	// DetectDatetimeFormat asks the service to infer a datetime format for
	// one column.
	DetectDatetimeFormat(ctx context.Context, filePath, columnName string) (*models.DatetimeDetection, error)

	// ValidateDataframe runs missing-value analysis with the user's type
	// hints applied.
	ValidateDataframe(ctx context.Context, filePath string, typeHints map[string]string) (*models.DataframeValidation, error)

	// Validator-scoped configuration operations.
	CreateValidator(ctx context.Context, name string) (*models.ValidatorConfig, error)
	GetValidatorConfig(ctx context.Context, validatorID string) (*models.ValidatorConfig, error)
	ConfigureValidationConfig(ctx context.Context, validatorID string, rules map[string]any) (*models.ValidatorConfig, error)
	ClassifyColumns(ctx context.Context, validatorID string, roles map[string]string) (*models.ValidatorConfig, error)
	UpdateColumnTypes(ctx context.Context, validatorID string, types map[string]string) (*models.ValidatorConfig, error)
}
