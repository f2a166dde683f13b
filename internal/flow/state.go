package flow

// UploadedFile describes one uploaded sheet or file accepted by the upload
// transport. Path initially points at a temporary location; once header
// confirmation triggers server-side persistence, Path is replaced with the
// durable location and Processed flips to true.
type UploadedFile struct {
	// ID is a synthetic identifier assigned at ingestion time. All per-file
	// maps key by ID so two files sharing a display name cannot clobber each
	// other's decisions.
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	// FileKey is the per-sheet durable key assigned when the sheet is
	// converted; empty until then.
	FileKey string `json:"fileKey,omitempty"`
	// UploadSession is the multi-sheet upload token the conversion endpoint
	// requires. Only workbook entries carry one.
	UploadSession string `json:"uploadSession,omitempty"`
	// WorkbookID groups the entries expanded from one workbook upload, so a
	// re-selection can find its siblings. Equals the first entry's ID.
	WorkbookID    string   `json:"workbookId,omitempty"`
	SheetNames    []string `json:"sheetNames,omitempty"`
	SelectedSheet string   `json:"selectedSheet,omitempty"`
	// TotalSheets is the number of sheets the user selected from this
	// workbook, not the workbook's sheet count.
	TotalSheets int  `json:"totalSheets,omitempty"`
	Processed   bool `json:"processed"`
}

// HeaderSelection records where a file's header row(s) live. HeaderRowIndex
// is relative to the preview window; -1 means no header row.
type HeaderSelection struct {
	HeaderRowIndex int  `json:"headerRowIndex"`
	HeaderRowCount int  `json:"headerRowCount"`
	NoHeader       bool `json:"noHeader"`
}

// ColumnNameEdit is one detected column's rename decision. Keep=false marks
// the column for exclusion without deleting the record, so it can be shown
// struck through and restored.
type ColumnNameEdit struct {
	OriginalName    string `json:"originalName"`
	EditedName      string `json:"editedName"`
	Keep            bool   `json:"keep"`
	HistoricalMatch bool   `json:"historicalMatch,omitempty"`
}

// ColumnRole classifies a column as a grouping key versus a quantitative
// value for downstream analysis features.
type ColumnRole string

const (
	RoleIdentifier   ColumnRole = "identifier"
	RoleMeasure      ColumnRole = "measure"
	RoleUnclassified ColumnRole = "unclassified"
)

// DataTypeSelection is one column's type review decision.
type DataTypeSelection struct {
	ColumnName   string     `json:"columnName"`
	DetectedType string     `json:"detectedType"`
	SelectedType string     `json:"selectedType"`
	ColumnRole   ColumnRole `json:"columnRole"`
}

// MissingValueChoice records the chosen strategy for one column's missing
// values. Value carries the custom fill value when the strategy needs one.
type MissingValueChoice struct {
	ColumnName string   `json:"columnName"`
	Strategy   Strategy `json:"strategy"`
	Value      string   `json:"value,omitempty"`
}

// FlowState is the aggregate of all user decisions made across stages for one
// wizard session. It is owned exclusively by the Store; stages never hold a
// private copy. All per-file maps key by UploadedFile.ID.
type FlowState struct {
	CurrentStage           Stage                           `json:"currentStage"`
	UploadedFiles          []UploadedFile                  `json:"uploadedFiles"`
	HeaderSelections       map[string]HeaderSelection      `json:"headerSelections"`
	ColumnNameEdits        map[string][]ColumnNameEdit     `json:"columnNameEdits"`
	DataTypeSelections     map[string][]DataTypeSelection  `json:"dataTypeSelections"`
	MissingValueStrategies map[string][]MissingValueChoice `json:"missingValueStrategies"`
	// FileNotes holds free-form markdown notes attached per file.
	FileNotes map[string]string `json:"fileNotes,omitempty"`

	// SkipFileSelect records that this session started from an existing
	// dataframe reference, so the file-select stage is not part of its
	// flow. Persisted with the snapshot: the alternate path survives
	// resume-after-reload.
	SkipFileSelect bool `json:"skipFileSelect,omitempty"`

	// StageCursor remembers per-stage file iteration progress so resume lands
	// on the file the user was editing. It is a hint: readers clamp it to the
	// current file list.
	StageCursor map[string]int `json:"stageCursor,omitempty"`
}

// NewFlowState returns the documented empty initial value.
func NewFlowState() FlowState {
	return FlowState{
		CurrentStage:           FirstStage,
		UploadedFiles:          []UploadedFile{},
		HeaderSelections:       make(map[string]HeaderSelection),
		ColumnNameEdits:        make(map[string][]ColumnNameEdit),
		DataTypeSelections:     make(map[string][]DataTypeSelection),
		MissingValueStrategies: make(map[string][]MissingValueChoice),
		FileNotes:              make(map[string]string),
	}
}

// Clone returns a deep copy of the state, safe to hand to callers.
func (s FlowState) Clone() FlowState {
	out := FlowState{
		CurrentStage:           s.CurrentStage,
		SkipFileSelect:         s.SkipFileSelect,
		UploadedFiles:          make([]UploadedFile, len(s.UploadedFiles)),
		HeaderSelections:       make(map[string]HeaderSelection, len(s.HeaderSelections)),
		ColumnNameEdits:        make(map[string][]ColumnNameEdit, len(s.ColumnNameEdits)),
		DataTypeSelections:     make(map[string][]DataTypeSelection, len(s.DataTypeSelections)),
		MissingValueStrategies: make(map[string][]MissingValueChoice, len(s.MissingValueStrategies)),
	}
	for i, f := range s.UploadedFiles {
		if f.SheetNames != nil {
			f.SheetNames = append([]string(nil), f.SheetNames...)
		}
		out.UploadedFiles[i] = f
	}
	for k, v := range s.HeaderSelections {
		out.HeaderSelections[k] = v
	}
	for k, v := range s.ColumnNameEdits {
		out.ColumnNameEdits[k] = append([]ColumnNameEdit(nil), v...)
	}
	for k, v := range s.DataTypeSelections {
		out.DataTypeSelections[k] = append([]DataTypeSelection(nil), v...)
	}
	for k, v := range s.MissingValueStrategies {
		out.MissingValueStrategies[k] = append([]MissingValueChoice(nil), v...)
	}
	if s.FileNotes != nil {
		out.FileNotes = make(map[string]string, len(s.FileNotes))
		for k, v := range s.FileNotes {
			out.FileNotes[k] = v
		}
	}
	if s.StageCursor != nil {
		out.StageCursor = make(map[string]int, len(s.StageCursor))
		for k, v := range s.StageCursor {
			out.StageCursor[k] = v
		}
	}
	return out
}

// FileByID locates an uploaded file by its synthetic ID.
func (s FlowState) FileByID(id string) (UploadedFile, bool) {
	for _, f := range s.UploadedFiles {
		if f.ID == id {
			return f, true
		}
	}
	return UploadedFile{}, false
}

// FileByName locates an uploaded file by display name. Duplicate names are
// permitted; the most recently added match wins.
func (s FlowState) FileByName(name string) (UploadedFile, bool) {
	for i := len(s.UploadedFiles) - 1; i >= 0; i-- {
		if s.UploadedFiles[i].Name == name {
			return s.UploadedFiles[i], true
		}
	}
	return UploadedFile{}, false
}
