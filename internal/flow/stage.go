package flow

import "fmt"

// Stage identifies one step in the guided upload wizard's fixed linear
// sequence. Stages are ordered; navigation moves exactly one position at a
// time except for the documented skip of FileSelect when a session starts
// from an existing dataframe.
type Stage int

const (
	StageFileSelect Stage = iota // U0
	StageStructuralScan
	StageHeaderConfirm
	StageColumnRename
	StageTypeReview
	StageMissingValues
	StageFinalPreview
	StageCompletion // terminal
)

var stageNames = map[Stage]string{
	StageFileSelect:     "file_select",
	StageStructuralScan: "structural_scan",
	StageHeaderConfirm:  "header_confirm",
	StageColumnRename:   "column_rename",
	StageTypeReview:     "type_review",
	StageMissingValues:  "missing_values",
	StageFinalPreview:   "final_preview",
	StageCompletion:     "completion",
}

// FirstStage is the initial stage for a fresh upload session.
const FirstStage = StageFileSelect

// TerminalStage is the last stage; reaching it completes the wizard.
const TerminalStage = StageCompletion

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is a member of the fixed stage set.
func (s Stage) Valid() bool {
	return s >= StageFileSelect && s <= StageCompletion
}

// Terminal reports whether s is the completion stage.
func (s Stage) Terminal() bool {
	return s == TerminalStage
}

// MarshalText encodes the stage as its snake_case name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage from its snake_case name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage resolves a stage name back to its identifier.
func ParseStage(name string) (Stage, error) {
	for stage, n := range stageNames {
		if n == name {
			return stage, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// AllStages returns the fixed stage order.
func AllStages() []Stage {
	return []Stage{
		StageFileSelect,
		StageStructuralScan,
		StageHeaderConfirm,
		StageColumnRename,
		StageTypeReview,
		StageMissingValues,
		StageFinalPreview,
		StageCompletion,
	}
}
