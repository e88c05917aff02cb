package executors

import (
	"time"

	"nppflow/application"
	"nppflow/logging"
)

// RunMetrics tracks how long a job spends in each progress stage.
type RunMetrics struct {
	StageDurations map[string]time.Duration
	StageOrder     []string
	ItemsProcessed int
	TotalDuration  time.Duration

	now        func() time.Time
	started    time.Time
	stage      string
	stageStart time.Time
}

// NewRunMetrics starts timing a run.
func NewRunMetrics() *RunMetrics {
	return newRunMetrics(time.Now)
}

func newRunMetrics(now func() time.Time) *RunMetrics {
	start := now()
	return &RunMetrics{
		StageDurations: make(map[string]time.Duration),
		now:            now,
		started:        start,
		stageStart:     start,
	}
}

// Track wraps callback so every stage change is timed.
func (m *RunMetrics) Track(callback application.ProgressCallback) application.ProgressCallback {
	return func(stage, description string, percentage, itemsDone, itemsTotal int) {
		m.observe(stage, itemsDone)
		callback(stage, description, percentage, itemsDone, itemsTotal)
	}
}

func (m *RunMetrics) observe(stage string, itemsDone int) {
	if stage != m.stage {
		m.closeStage()
		m.stage = stage
		if _, seen := m.StageDurations[stage]; !seen {
			m.StageOrder = append(m.StageOrder, stage)
			m.StageDurations[stage] = 0
		}
	}
	if itemsDone > m.ItemsProcessed {
		m.ItemsProcessed = itemsDone
	}
}

func (m *RunMetrics) closeStage() {
	now := m.now()
	if m.stage != "" {
		m.StageDurations[m.stage] += now.Sub(m.stageStart)
	}
	m.stageStart = now
}

// Finish closes the current stage and records the total.
func (m *RunMetrics) Finish() {
	m.closeStage()
	m.stage = ""
	m.TotalDuration = m.now().Sub(m.started)
}

// ProcessingRate is items per second over the whole run.
func (m *RunMetrics) ProcessingRate() float64 {
	if m.TotalDuration <= 0 || m.ItemsProcessed == 0 {
		return 0
	}
	return float64(m.ItemsProcessed) / m.TotalDuration.Seconds()
}

// Log writes the timing breakdown for jobID.
func (m *RunMetrics) Log(logger *logging.Logger, jobID string) {
	breakdown := make([]any, 0, 2*len(m.StageOrder)+6)
	breakdown = append(breakdown, "job_id", jobID)
	for _, stage := range m.StageOrder {
		breakdown = append(breakdown, stage+"_ms", m.StageDurations[stage].Milliseconds())
	}
	breakdown = append(breakdown,
		"total_duration_ms", m.TotalDuration.Milliseconds(),
		"items_per_sec", m.ProcessingRate())
	logger.Info("Job timing breakdown", breakdown...)
}
