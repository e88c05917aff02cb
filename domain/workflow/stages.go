package workflow

import (
	"sort"
	"time"

	"nppflow/domain/npp"
)

// FirstMasterStage returns the lowest-numbered template of a stage type.
func FirstMasterStage(masters []npp.MasterStage, stageType string) (npp.MasterStage, bool) {
	var (
		first npp.MasterStage
		found bool
	)
	for _, m := range masters {
		if m.StageType != stageType {
			continue
		}
		if !found || m.StageNumber < first.StageNumber {
			first, found = m, true
		}
	}
	return first, found
}

// NextMasterStage returns the template at StageNumber+1 of the same stage type.
// A false result means current is the last stage.
func NextMasterStage(masters []npp.MasterStage, current npp.MasterStage) (npp.MasterStage, bool) {
	for _, m := range masters {
		if m.StageType == current.StageType && m.StageNumber == current.StageNumber+1 {
			return m, true
		}
	}
	return npp.MasterStage{}, false
}

// FindMasterStage looks a template up by ID.
func FindMasterStage(masters []npp.MasterStage, id int) (npp.MasterStage, bool) {
	for _, m := range masters {
		if m.ID == id {
			return m, true
		}
	}
	return npp.MasterStage{}, false
}

// SortStages orders stages by stage number, then creation.
func SortStages(stages []npp.Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].StageNumber != stages[j].StageNumber {
			return stages[i].StageNumber < stages[j].StageNumber
		}
		return stages[i].ID < stages[j].ID
	})
}

// CurrentStage is the last stage in progression order.
func CurrentStage(stages []npp.Stage) (npp.Stage, bool) {
	if len(stages) == 0 {
		return npp.Stage{}, false
	}
	sorted := append([]npp.Stage(nil), stages...)
	SortStages(sorted)
	return sorted[len(sorted)-1], true
}

// ActionsFromTemplates instantiates the actions of a new stage. Only templates
// matching both the master stage and the opportunity type are used; each is due
// DueDays after created.
func ActionsFromTemplates(templates []npp.MasterAction, entityID, stageID, masterStageID, opportunityTypeID int, created time.Time) []npp.Action {
	day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, created.Location())

	var actions []npp.Action
	for _, tpl := range templates {
		if tpl.StageNameID != masterStageID || tpl.OpportunityTypeID != opportunityTypeID {
			continue
		}
		actions = append(actions, npp.Action{
			EntityID:       entityID,
			StageID:        stageID,
			MasterActionID: tpl.ID,
			Title:          tpl.Title,
			DueDate:        day.AddDate(0, 0, tpl.DueDays),
		})
	}
	return actions
}

// StageComplete reports whether every action of the stage is done.
func StageComplete(actions []npp.Action) bool {
	for _, a := range actions {
		if !a.Completed {
			return false
		}
	}
	return true
}
