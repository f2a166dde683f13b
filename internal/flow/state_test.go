package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeepAndIndependent(t *testing.T) {
	state := NewFlowState()
	state.CurrentStage = StageColumnRename
	state.UploadedFiles = []UploadedFile{
		{ID: "f1", Name: "a.csv", SheetNames: []string{"Q1", "Q2"}},
	}
	state.ColumnNameEdits["f1"] = []ColumnNameEdit{
		{OriginalName: "rev", EditedName: "revenue", Keep: true},
	}
	state.StageCursor = map[string]int{StageColumnRename.String(): 1}

	clone := state.Clone()
	require.Equal(t, state, clone)

	// Mutating the clone must not reach back into the original.
	clone.UploadedFiles[0].Name = "b.csv"
	clone.UploadedFiles[0].SheetNames[0] = "changed"
	clone.ColumnNameEdits["f1"][0].EditedName = "other"
	clone.StageCursor[StageColumnRename.String()] = 5

	assert.Equal(t, "a.csv", state.UploadedFiles[0].Name)
	assert.Equal(t, "Q1", state.UploadedFiles[0].SheetNames[0])
	assert.Equal(t, "revenue", state.ColumnNameEdits["f1"][0].EditedName)
	assert.Equal(t, 1, state.StageCursor[StageColumnRename.String()])
}

func TestFileLookups(t *testing.T) {
	state := NewFlowState()
	state.UploadedFiles = []UploadedFile{
		{ID: "id-1", Name: "dup.csv"},
		{ID: "id-2", Name: "dup.csv"},
		{ID: "id-3", Name: "other.csv"},
	}

	byID, ok := state.FileByID("id-1")
	require.True(t, ok)
	assert.Equal(t, "dup.csv", byID.Name)

	_, ok = state.FileByID("missing")
	assert.False(t, ok)

	// Name lookup resolves duplicates to the most recent upload.
	byName, ok := state.FileByName("dup.csv")
	require.True(t, ok)
	assert.Equal(t, "id-2", byName.ID)
}
