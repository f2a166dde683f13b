package models

import (
	"time"

	"gridprep/internal/flow"
)

// WizardSnapshot is the persisted form of one wizard session: the full
// FlowState plus bookkeeping for resume. Written on every stage transition,
// read once when the dialog opens.
type WizardSnapshot struct {
	SessionID string         `json:"session_id"`
	State     flow.FlowState `json:"state"`
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CompletionResult is handed to the completion callback when the terminal
// stage is reached: the accumulated decisions for every uploaded file.
type CompletionResult struct {
	SessionID string         `json:"session_id"`
	State     flow.FlowState `json:"state"`
}
