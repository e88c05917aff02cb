package workflow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"nppflow/domain/npp"
)

// SameScenarioSet compares scenario ids as sets.
func SameScenarioSet(a, b []int) bool {
	return slices.Equal(normalizeSet(a), normalizeSet(b))
}

func normalizeSet(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// FindByScenarioSet returns the files whose scenario set equals scenarios.
func FindByScenarioSet(files []npp.File, scenarios []int) []npp.File {
	var out []npp.File
	for _, f := range files {
		if SameScenarioSet(f.ScenarioIDs, scenarios) {
			out = append(out, f)
		}
	}
	return out
}

// CommentKind distinguishes review rejections from free comments.
type CommentKind string

const (
	CommentKindComment   CommentKind = "comment"
	CommentKindRejection CommentKind = "rejection"
)

// Comment is one entry of a file's comment thread.
type Comment struct {
	ID         string      `json:"id"`
	Kind       CommentKind `json:"kind"`
	AuthorID   int         `json:"authorId"`
	AuthorName string      `json:"authorName"`
	Text       string      `json:"text"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ParseComments decodes a comment thread. Blank input is an empty thread.
func ParseComments(raw string) ([]Comment, error) {
	if strings.TrimSpace(raw) == "" {
		return []Comment{}, nil
	}
	var comments []Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return []Comment{}, fmt.Errorf("decode comments: %w", err)
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

// EncodeComments renders a thread for storage.
func EncodeComments(comments []Comment) string {
	if comments == nil {
		comments = []Comment{}
	}
	b, _ := json.Marshal(comments)
	return string(b)
}

// EmptyComments is the stored form of a cleared thread.
const EmptyComments = "[]"

var embeddedIDPattern = regexp.MustCompile(`_(\d+)\.csv$`)

// CompanionName is the CSV extraction name of a model file.
func CompanionName(modelName string, modelID int) string {
	base := strings.TrimSuffix(modelName, pathExt(modelName))
	return fmt.Sprintf("%s_%d.csv", base, modelID)
}

// EmbeddedModelID extracts the model id from a companion file name.
func EmbeddedModelID(name string) (int, bool) {
	m := embeddedIDPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	return id, err == nil
}

// IsCompanionOf reports whether f is a companion extraction of the model: the
// name embeds the model id and the ForecastId property equals it.
func IsCompanionOf(f npp.File, modelID int) bool {
	id, ok := EmbeddedModelID(f.Name)
	return ok && id == modelID && f.ForecastID == modelID
}

// RewriteCompanionName swaps the embedded model id for newID.
func RewriteCompanionName(name string, newID int) string {
	return embeddedIDPattern.ReplaceAllString(name, fmt.Sprintf("_%d.csv", newID))
}

func pathExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
