package presenters

import (
	"sort"
	"time"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/domain/workflow"
)

// FileView is a model or document as shown in a folder listing.
type FileView struct {
	ID            int                `json:"id"`
	Name          string             `json:"name"`
	URL           string             `json:"url"`
	Status        npp.ApprovalStatus `json:"status"`
	ScenarioIDs   []int              `json:"scenarioIds"`
	IndicationIDs []int              `json:"indicationIds"`
	Comments      []workflow.Comment `json:"comments"`
	Companions    []string           `json:"companions,omitempty"`
	Modified      string             `json:"modified,omitempty"`
}

// FolderView is a folder listing. Unavailable is set when SharePoint could not
// be read, which is different from an empty folder.
type FolderView struct {
	Files       []FileView `json:"files"`
	Unavailable bool       `json:"unavailable,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// FilePresenter shapes folder listings for the API.
type FilePresenter struct{}

// NewFilePresenter creates a file presenter.
func NewFilePresenter() *FilePresenter {
	return &FilePresenter{}
}

// FormatFolder groups companion extracts under their model files.
func (p *FilePresenter) FormatFolder(res contracts.Result[npp.File]) *FolderView {
	if res.Failed() {
		view := &FolderView{Files: []FileView{}, Unavailable: true}
		if res.Err() != nil {
			view.Error = res.Err().Error()
		}
		return view
	}

	companions := make(map[int][]string)
	var models []npp.File
	for _, f := range res.Items() {
		if f.ForecastID > 0 && workflow.IsCompanionOf(f, f.ForecastID) {
			companions[f.ForecastID] = append(companions[f.ForecastID], f.Name)
			continue
		}
		models = append(models, f)
	}
	sort.SliceStable(models, func(i, j int) bool { return models[i].Modified.After(models[j].Modified) })

	views := make([]FileView, 0, len(models))
	for _, f := range models {
		v := p.FormatFile(f)
		v.Companions = companions[f.ID]
		views = append(views, *v)
	}
	return &FolderView{Files: views}
}

// FormatFile converts one file. An unreadable comment thread shows as empty.
func (p *FilePresenter) FormatFile(f npp.File) *FileView {
	comments, _ := workflow.ParseComments(f.Comments)
	v := &FileView{
		ID:            f.ID,
		Name:          f.Name,
		URL:           f.ServerRelativeURL,
		Status:        f.ApprovalStatus,
		ScenarioIDs:   nonNil(f.ScenarioIDs),
		IndicationIDs: nonNil(f.IndicationIDs),
		Comments:      comments,
	}
	if !f.Modified.IsZero() {
		v.Modified = f.Modified.Format(time.RFC3339)
	}
	return v
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
