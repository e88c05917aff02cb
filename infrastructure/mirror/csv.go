// Package mirror writes the companion CSV extractions that mirror uploaded
// forecast models for the reporting pipeline.
package mirror

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"nppflow/domain/npp"
)

// Header is the column layout of every companion CSV.
var Header = []string{
	"EntityId", "BusinessUnitId", "DepartmentId", "GeographyId", "ScenarioIds",
	"IndicationIds", "ModelId", "FileName", "ApprovalStatus", "UploadedOn",
}

// ForecastRow describes one uploaded model.
type ForecastRow struct {
	EntityID       int
	BusinessUnitID int
	DepartmentID   int
	GeographyID    int
	ScenarioIDs    []int
	IndicationIDs  []int
	ModelID        int
	FileName       string
	ApprovalStatus npp.ApprovalStatus
	UploadedOn     time.Time
}

// RowFor builds the row of a model stored at folder.
func RowFor(folder npp.FolderPath, model npp.File, uploadedOn time.Time) ForecastRow {
	status := model.ApprovalStatus
	if status == "" {
		status = npp.ApprovalInProgress
	}
	return ForecastRow{
		EntityID:       folder.EntityID,
		BusinessUnitID: folder.BusinessUnitID,
		DepartmentID:   folder.DepartmentID,
		GeographyID:    folder.GeographyID,
		ScenarioIDs:    model.ScenarioIDs,
		IndicationIDs:  model.IndicationIDs,
		ModelID:        model.ID,
		FileName:       model.Name,
		ApprovalStatus: status,
		UploadedOn:     uploadedOn,
	}
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ";")
}

func (r ForecastRow) record() []string {
	return []string{
		strconv.Itoa(r.EntityID),
		strconv.Itoa(r.BusinessUnitID),
		strconv.Itoa(r.DepartmentID),
		strconv.Itoa(r.GeographyID),
		joinIDs(r.ScenarioIDs),
		joinIDs(r.IndicationIDs),
		strconv.Itoa(r.ModelID),
		r.FileName,
		string(r.ApprovalStatus),
		r.UploadedOn.UTC().Format(time.RFC3339),
	}
}

// EncodeCSV renders the header and rows.
func EncodeCSV(rows ...ForecastRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return nil, fmt.Errorf("write csv row for model %d: %w", r.ModelID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
