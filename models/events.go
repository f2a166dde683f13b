package models

import "time"

// Flow event types broadcast over the event bus.
const (
	EventDataframeSaved  = "dataframe-saved"
	EventStageChanged    = "stage-changed"
	EventFlowCompleted   = "flow-completed"
	EventSheetSaveFailed = "sheet-save-failed"
)

// FlowEvent notifies decoupled listeners (sibling panels, SSE clients) about
// wizard activity without a direct callback path.
type FlowEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	FileName  string    `json:"file_name,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
