package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/npp"
)

var masterStages = []npp.MasterStage{
	{ID: 10, Title: "Idea", StageType: "Opportunity", StageNumber: 1},
	{ID: 11, Title: "Assessment", StageType: "Opportunity", StageNumber: 2},
	{ID: 12, Title: "Decision", StageType: "Opportunity", StageNumber: 3},
	{ID: 20, Title: "Phase 1", StageType: npp.StageTypePhase, StageNumber: 1},
	{ID: 21, Title: "Phase 2", StageType: npp.StageTypePhase, StageNumber: 2},
}

func TestFirstMasterStage(t *testing.T) {
	first, ok := FirstMasterStage(masterStages, npp.StageTypePhase)
	require.True(t, ok)
	assert.Equal(t, 20, first.ID)

	_, ok = FirstMasterStage(masterStages, "Unknown")
	assert.False(t, ok)
}

func TestNextMasterStage(t *testing.T) {
	tests := []struct {
		name    string
		current npp.MasterStage
		wantID  int
		wantOK  bool
	}{
		{"one_to_two", masterStages[0], 11, true},
		{"two_to_three", masterStages[1], 12, true},
		{"last_has_no_successor", masterStages[2], 0, false},
		{"stays_in_stage_type", masterStages[3], 21, true},
		{"last_phase", masterStages[4], 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextMasterStage(masterStages, tt.current)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, next.ID)
		})
	}
}

func TestCurrentStage(t *testing.T) {
	_, ok := CurrentStage(nil)
	assert.False(t, ok)

	current, ok := CurrentStage([]npp.Stage{
		{ID: 3, StageNumber: 2},
		{ID: 1, StageNumber: 1},
	})
	require.True(t, ok)
	assert.Equal(t, 3, current.ID)
}

func TestActionsFromTemplates(t *testing.T) {
	created := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	templates := []npp.MasterAction{
		{ID: 1, Title: "Market sizing", StageNameID: 20, OpportunityTypeID: 4, DueDays: 7},
		{ID: 2, Title: "Pricing", StageNameID: 20, OpportunityTypeID: 4, DueDays: 14},
		{ID: 3, Title: "Other type", StageNameID: 20, OpportunityTypeID: 5, DueDays: 1},
		{ID: 4, Title: "Other stage", StageNameID: 21, OpportunityTypeID: 4, DueDays: 1},
	}

	got := ActionsFromTemplates(templates, 42, 100, 20, 4, created)

	require.Len(t, got, 2)
	assert.Equal(t, "Market sizing", got[0].Title)
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), got[0].DueDate)
	assert.Equal(t, time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC), got[1].DueDate)
	for _, a := range got {
		assert.Equal(t, 42, a.EntityID)
		assert.Equal(t, 100, a.StageID)
		assert.False(t, a.Completed)
	}
}

func TestActionStatus(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	done := npp.Action{Completed: true, DueDate: now.AddDate(0, 0, -3)}
	late := npp.Action{DueDate: now.AddDate(0, 0, -1)}
	pending := npp.Action{DueDate: now.AddDate(0, 0, 1)}

	assert.Equal(t, npp.ActionStatusCompleted, done.Status(now))
	assert.Equal(t, npp.ActionStatusLate, late.Status(now))
	assert.Equal(t, npp.ActionStatusPending, pending.Status(now))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(npp.EntityStatusProcessing, npp.EntityStatusActive))
	assert.True(t, CanTransition(npp.EntityStatusActive, npp.EntityStatusApproved))
	assert.True(t, CanTransition(npp.EntityStatusActive, npp.EntityStatusArchive))
	assert.True(t, CanTransition(npp.EntityStatusActive, npp.EntityStatusActive))

	assert.False(t, CanTransition(npp.EntityStatusProcessing, npp.EntityStatusApproved))
	assert.False(t, CanTransition(npp.EntityStatusApproved, npp.EntityStatusActive))
	assert.False(t, CanTransition(npp.EntityStatusArchive, npp.EntityStatusActive))

	err := CheckTransition(npp.EntityStatusApproved, npp.EntityStatusArchive)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckFileTransition(t *testing.T) {
	assert.NoError(t, CheckFileTransition(npp.ApprovalInProgress, npp.ApprovalSubmitted))
	assert.NoError(t, CheckFileTransition("", npp.ApprovalSubmitted))
	assert.NoError(t, CheckFileTransition(npp.ApprovalSubmitted, npp.ApprovalApproved))
	assert.NoError(t, CheckFileTransition(npp.ApprovalSubmitted, npp.ApprovalInProgress))

	assert.ErrorIs(t, CheckFileTransition(npp.ApprovalInProgress, npp.ApprovalApproved), ErrInvalidTransition)
	assert.ErrorIs(t, CheckFileTransition(npp.ApprovalApproved, npp.ApprovalSubmitted), ErrInvalidTransition)
}
