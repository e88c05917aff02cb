// Package permissions encodes entity access scopes as SharePoint group names.
//
// A group's name is its scope: OU-{e} and OO-{e} cover the whole entity,
// DU-{e}-{d}[-{g}] a department (and geography for model departments),
// SU-{e}-{s} a stage and BU-{e}-{g} a brand geography.
package permissions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// GroupKind is the name prefix of a permission group.
type GroupKind string

const (
	KindEntityUsers     GroupKind = "OU"
	KindEntityOwners    GroupKind = "OO"
	KindDepartmentUsers GroupKind = "DU"
	KindStageUsers      GroupKind = "SU"
	KindBrandUsers      GroupKind = "BU"
)

const separator = "-"

// ErrInvalidGroupName is returned when a name does not follow the scheme.
var ErrInvalidGroupName = errors.New("invalid permission group name")

// GroupRef identifies the scope a permission group grants.
type GroupRef struct {
	Kind         GroupKind
	EntityID     int
	DepartmentID int
	GeographyID  int
	StageID      int
}

func EntityUsers(entityID int) GroupRef {
	return GroupRef{Kind: KindEntityUsers, EntityID: entityID}
}

func EntityOwners(entityID int) GroupRef {
	return GroupRef{Kind: KindEntityOwners, EntityID: entityID}
}

// DepartmentUsers scopes a department; geographyID is zero for flat departments.
func DepartmentUsers(entityID, departmentID, geographyID int) GroupRef {
	return GroupRef{Kind: KindDepartmentUsers, EntityID: entityID, DepartmentID: departmentID, GeographyID: geographyID}
}

func StageUsers(entityID, stageID int) GroupRef {
	return GroupRef{Kind: KindStageUsers, EntityID: entityID, StageID: stageID}
}

func BrandUsers(entityID, geographyID int) GroupRef {
	return GroupRef{Kind: KindBrandUsers, EntityID: entityID, GeographyID: geographyID}
}

// Name renders the group name.
func (r GroupRef) Name() string {
	parts := []string{string(r.Kind), strconv.Itoa(r.EntityID)}
	switch r.Kind {
	case KindDepartmentUsers:
		parts = append(parts, strconv.Itoa(r.DepartmentID))
		if r.GeographyID > 0 {
			parts = append(parts, strconv.Itoa(r.GeographyID))
		}
	case KindStageUsers:
		parts = append(parts, strconv.Itoa(r.StageID))
	case KindBrandUsers:
		parts = append(parts, strconv.Itoa(r.GeographyID))
	}
	return strings.Join(parts, separator)
}

func (r GroupRef) String() string {
	return r.Name()
}

// Validate checks that every ID the kind requires is positive.
func (r GroupRef) Validate() error {
	if r.EntityID <= 0 {
		return fmt.Errorf("%w: entity id must be positive", ErrInvalidGroupName)
	}
	switch r.Kind {
	case KindEntityUsers, KindEntityOwners:
		return nil
	case KindDepartmentUsers:
		if r.DepartmentID <= 0 || r.GeographyID < 0 {
			return fmt.Errorf("%w: department group needs a department id", ErrInvalidGroupName)
		}
	case KindStageUsers:
		if r.StageID <= 0 {
			return fmt.Errorf("%w: stage group needs a stage id", ErrInvalidGroupName)
		}
	case KindBrandUsers:
		if r.GeographyID <= 0 {
			return fmt.Errorf("%w: brand group needs a geography id", ErrInvalidGroupName)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidGroupName, r.Kind)
	}
	return nil
}

// ParseGroupName is the inverse of GroupRef.Name.
func ParseGroupName(name string) (GroupRef, error) {
	parts := strings.Split(name, separator)
	if len(parts) < 2 {
		return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
	}

	ids := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		id, err := strconv.Atoi(p)
		if err != nil || id <= 0 {
			return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
		}
		ids = append(ids, id)
	}

	ref := GroupRef{Kind: GroupKind(parts[0]), EntityID: ids[0]}
	switch ref.Kind {
	case KindEntityUsers, KindEntityOwners:
		if len(ids) != 1 {
			return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
		}
	case KindDepartmentUsers:
		switch len(ids) {
		case 3:
			ref.GeographyID = ids[2]
			fallthrough
		case 2:
			ref.DepartmentID = ids[1]
		default:
			return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
		}
	case KindStageUsers:
		if len(ids) != 2 {
			return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
		}
		ref.StageID = ids[1]
	case KindBrandUsers:
		if len(ids) != 2 {
			return GroupRef{}, fmt.Errorf("%w: %q", ErrInvalidGroupName, name)
		}
		ref.GeographyID = ids[1]
	default:
		return GroupRef{}, fmt.Errorf("%w: unknown kind in %q", ErrInvalidGroupName, name)
	}
	return ref, nil
}

// BelongsTo reports whether name is a permission group of the entity.
func BelongsTo(name string, entityID int) bool {
	ref, err := ParseGroupName(name)
	return err == nil && ref.EntityID == entityID
}

// RLSGroupName is the Azure AD security group mirroring OU-{e} for report row-level security.
func RLSGroupName(entityID int) string {
	return "RLS" + separator + strconv.Itoa(entityID)
}
