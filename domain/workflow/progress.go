package workflow

import (
	"math"

	"nppflow/domain/npp"
)

// StageActions pairs a stage with its actions, in progression order.
type StageActions struct {
	Stage   npp.Stage
	Actions []npp.Action
}

// Percent converts a ratio into a two-decimal percentage: round(x*10000)/100.
func Percent(ratio float64) float64 {
	return math.Round(ratio*10000) / 100
}

func completedCount(actions []npp.Action) int {
	n := 0
	for _, a := range actions {
		if a.Completed {
			n++
		}
	}
	return n
}

// StageProgress is the completion percentage of one stage. No actions yields 0.
func StageProgress(actions []npp.Action) float64 {
	if len(actions) == 0 {
		return 0
	}
	return Percent(float64(completedCount(actions)) / float64(len(actions)))
}

// EntityProgress counts completed actions across stages up to and including
// currentIndex over all their actions. No actions yields 0.
func EntityProgress(stages []StageActions, currentIndex int) float64 {
	if currentIndex >= len(stages) {
		currentIndex = len(stages) - 1
	}
	total, done := 0, 0
	for i := 0; i <= currentIndex; i++ {
		total += len(stages[i].Actions)
		done += completedCount(stages[i].Actions)
	}
	if total == 0 {
		return 0
	}
	return Percent(float64(done) / float64(total))
}

// AverageGateCompletion is the mean of each stage's own completion ratio.
// Stages without actions contribute 0. No stages yields 0.
func AverageGateCompletion(stages []StageActions) float64 {
	if len(stages) == 0 {
		return 0
	}
	var sum float64
	for _, s := range stages {
		if len(s.Actions) == 0 {
			continue
		}
		sum += float64(completedCount(s.Actions)) / float64(len(s.Actions))
	}
	return Percent(sum / float64(len(stages)))
}
