package npp

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// FolderRoot is the top-level library that determines a file's lifecycle bucket.
type FolderRoot string

const (
	RootWIP         FolderRoot = "WIP"
	RootApproved    FolderRoot = "Approved"
	RootArchived    FolderRoot = "Archived"
	RootDocuments   FolderRoot = "Documents"
	RootExtractions FolderRoot = "Extractions"
)

// ParseFolderRoot validates a bucket name.
func ParseFolderRoot(s string) (FolderRoot, error) {
	switch r := FolderRoot(s); r {
	case RootWIP, RootApproved, RootArchived, RootDocuments, RootExtractions:
		return r, nil
	}
	return "", fmt.Errorf("unknown folder root %q", s)
}

// ApprovalStatus tracks a model file through review.
type ApprovalStatus string

const (
	ApprovalInProgress ApprovalStatus = "In Progress"
	ApprovalSubmitted  ApprovalStatus = "Submitted"
	ApprovalApproved   ApprovalStatus = "Approved"
)

// FolderPath addresses a folder below the site. Zero segments are omitted when rendered.
type FolderPath struct {
	Root           FolderRoot
	BusinessUnitID int
	EntityID       int
	StageID        int
	DepartmentID   int
	GeographyID    int
	CycleID        int
}

// Segments renders the path segments in order.
func (p FolderPath) Segments() []string {
	segs := []string{string(p.Root), strconv.Itoa(p.BusinessUnitID), strconv.Itoa(p.EntityID)}
	if p.StageID > 0 {
		segs = append(segs, strconv.Itoa(p.StageID))
	}
	segs = append(segs, strconv.Itoa(p.DepartmentID))
	if p.GeographyID > 0 {
		segs = append(segs, strconv.Itoa(p.GeographyID))
	}
	if p.CycleID > 0 {
		segs = append(segs, strconv.Itoa(p.CycleID))
	}
	return segs
}

// Relative renders the path without a site prefix.
func (p FolderPath) Relative() string {
	return strings.Join(p.Segments(), "/")
}

// ServerRelative renders the path below a site's server-relative URL.
func (p FolderPath) ServerRelative(siteRelativeURL string) string {
	return path.Join("/", siteRelativeURL, p.Relative())
}

// WithRoot returns the same address in another bucket.
func (p FolderPath) WithRoot(root FolderRoot) FolderPath {
	p.Root = root
	return p
}

// ModelPath addresses the geography-partitioned folder holding a department's models.
func ModelPath(root FolderRoot, buID, entityID, departmentID, geographyID int) FolderPath {
	return FolderPath{Root: root, BusinessUnitID: buID, EntityID: entityID, DepartmentID: departmentID, GeographyID: geographyID}
}

// DocumentPath addresses a flat department folder of a stage.
func DocumentPath(buID, entityID, stageID, departmentID int) FolderPath {
	return FolderPath{Root: RootDocuments, BusinessUnitID: buID, EntityID: entityID, StageID: stageID, DepartmentID: departmentID}
}

// ArchivePath addresses where a closed cycle's approved models are kept.
func ArchivePath(buID, entityID, departmentID, geographyID, cycleID int) FolderPath {
	return FolderPath{Root: RootArchived, BusinessUnitID: buID, EntityID: entityID, DepartmentID: departmentID, GeographyID: geographyID, CycleID: cycleID}
}

// File is a document library file with its workflow properties.
type File struct {
	ID                int
	Name              string
	ServerRelativeURL string
	ApprovalStatus    ApprovalStatus
	ScenarioIDs       []int
	IndicationIDs     []int
	Comments          string
	ForecastID        int
	Modified          time.Time
}

// Folder is a document library folder.
type Folder struct {
	Name              string
	ServerRelativeURL string
	ItemCount         int
}

// FileFields carries workflow property updates for a file. Nil fields are left untouched.
type FileFields struct {
	ApprovalStatus *ApprovalStatus
	ScenarioIDs    []int
	IndicationIDs  []int
	Comments       *string
	ForecastID     *int
}

// ParseFileURL splits a server-relative file URL below siteRelativeURL into its
// folder address and file name.
func ParseFileURL(siteRelativeURL, fileURL string) (FolderPath, string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+fileURL), path.Clean("/"+siteRelativeURL))
	segs := strings.Split(strings.Trim(rel, "/"), "/")
	if len(segs) < 5 {
		return FolderPath{}, "", fmt.Errorf("file url %q is not inside an entity folder", fileURL)
	}

	root, err := ParseFolderRoot(segs[0])
	if err != nil {
		return FolderPath{}, "", err
	}
	name := segs[len(segs)-1]
	ids := make([]int, 0, len(segs)-2)
	for _, s := range segs[1 : len(segs)-1] {
		id, err := strconv.Atoi(s)
		if err != nil || id <= 0 {
			return FolderPath{}, "", fmt.Errorf("file url %q has a non-numeric folder segment %q", fileURL, s)
		}
		ids = append(ids, id)
	}

	p := FolderPath{Root: root, BusinessUnitID: ids[0], EntityID: ids[1]}
	tail := ids[2:]
	switch {
	case root == RootDocuments && len(tail) == 2:
		p.StageID, p.DepartmentID = tail[0], tail[1]
	case root == RootArchived && len(tail) == 3:
		p.DepartmentID, p.GeographyID, p.CycleID = tail[0], tail[1], tail[2]
	case root != RootDocuments && root != RootArchived && len(tail) == 2:
		p.DepartmentID, p.GeographyID = tail[0], tail[1]
	case root != RootDocuments && root != RootArchived && len(tail) == 1:
		p.DepartmentID = tail[0]
	default:
		return FolderPath{}, "", fmt.Errorf("file url %q does not match the %s layout", fileURL, root)
	}
	return p, name, nil
}
