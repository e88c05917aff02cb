package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/jobs"
)

func TestJobStateSerializer_StateRoundTrip(t *testing.T) {
	s := NewJobStateSerializer()
	job := &jobs.Job{}
	job.InitializeState()
	job.State.Stats.FilesArchived = 4
	job.RecordFailure("geography 9: copy failed")

	raw, err := s.SerializeState(job.State)
	require.NoError(t, err)

	state, err := s.DeserializeState(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Stats.FilesArchived)
	assert.Equal(t, 1, state.Stats.ErrorsEncountered)
	assert.Equal(t, []string{"geography 9: copy failed"}, state.Failures)
}

func TestJobStateSerializer_EmptyState_ReturnsDefault(t *testing.T) {
	state, err := NewJobStateSerializer().DeserializeState("")
	require.NoError(t, err)
	assert.Equal(t, "unknown", state.Stage)
	assert.NotNil(t, state.Messages)
}

func TestJobStateSerializer_ContextByType(t *testing.T) {
	s := NewJobStateSerializer()

	tests := []struct {
		name     string
		jobType  jobs.JobType
		context  jobs.JobContextData
		expected jobs.JobContextData
	}{
		{
			name:     "rollover",
			jobType:  jobs.JobTypeForecastRollover,
			context:  jobs.RolloverJobContext{SiteURL: "https://contoso.sharepoint.com/sites/npp", EntityID: 42, CycleTitle: "Q3"},
			expected: jobs.RolloverJobContext{SiteURL: "https://contoso.sharepoint.com/sites/npp", EntityID: 42, CycleTitle: "Q3"},
		},
		{
			name:     "rls sync",
			jobType:  jobs.JobTypeRLSSync,
			context:  jobs.RLSSyncJobContext{EntityIDs: []int{1, 2}, Scheduled: true},
			expected: jobs.RLSSyncJobContext{EntityIDs: []int{1, 2}, Scheduled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := s.SerializeContextData(tt.context)
			require.NoError(t, err)

			got, err := s.DeserializeContextData(tt.jobType, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJobStateSerializer_UnknownType_ReturnsError(t *testing.T) {
	_, err := NewJobStateSerializer().DeserializeContextData("site_scan", "{}")
	assert.Error(t, err)
}
