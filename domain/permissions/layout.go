package permissions

import (
	"fmt"
	"slices"

	"nppflow/domain/npp"
)

// Grant gives a permission group a role on a folder.
type Grant struct {
	Group GroupRef
	Role  string
}

// FolderAccess is a folder together with the grants that replace its inherited permissions.
type FolderAccess struct {
	Folder npp.FolderPath
	Grants []Grant
}

// LayoutInput describes the entity whose folders are being laid out.
type LayoutInput struct {
	EntityID       int
	BusinessUnitID int
	Brand          bool
	Departments    []npp.MasterFolder
}

// StageFolders lays out the flat Documents folders of one stage.
func StageFolders(in LayoutInput, stageID int) []FolderAccess {
	var out []FolderAccess
	for _, d := range in.Departments {
		if d.ContainsModels {
			continue
		}
		out = append(out, FolderAccess{
			Folder: npp.DocumentPath(in.BusinessUnitID, in.EntityID, stageID, d.ID),
			Grants: []Grant{
				{Group: EntityOwners(in.EntityID), Role: npp.RoleContribute},
				{Group: DepartmentUsers(in.EntityID, d.ID, 0), Role: npp.RoleContribute},
				{Group: StageUsers(in.EntityID, stageID), Role: npp.RoleRead},
			},
		})
	}
	return out
}

// GeographyFolders lays out the WIP and Approved model folders of one geography.
func GeographyFolders(in LayoutInput, geographyID int) []FolderAccess {
	var out []FolderAccess
	for _, d := range in.Departments {
		if !d.ContainsModels {
			continue
		}
		dept := DepartmentUsers(in.EntityID, d.ID, geographyID)

		wip := []Grant{
			{Group: EntityOwners(in.EntityID), Role: npp.RoleContribute},
			{Group: dept, Role: npp.RoleContribute},
		}
		approved := []Grant{
			{Group: EntityOwners(in.EntityID), Role: npp.RoleContribute},
			{Group: dept, Role: npp.RoleRead},
			{Group: EntityUsers(in.EntityID), Role: npp.RoleRead},
		}
		if in.Brand {
			brand := Grant{Group: BrandUsers(in.EntityID, geographyID), Role: npp.RoleRead}
			wip = append(wip, brand)
			approved = append(approved, brand)
		}

		out = append(out,
			FolderAccess{Folder: npp.ModelPath(npp.RootWIP, in.BusinessUnitID, in.EntityID, d.ID, geographyID), Grants: wip},
			FolderAccess{Folder: npp.ModelPath(npp.RootApproved, in.BusinessUnitID, in.EntityID, d.ID, geographyID), Grants: approved},
		)
	}
	return out
}

// EntityFolders lays out the full folder tree of a freshly initialized entity.
func EntityFolders(in LayoutInput, stageID int, geographyIDs []int) []FolderAccess {
	out := StageFolders(in, stageID)
	for _, g := range geographyIDs {
		out = append(out, GeographyFolders(in, g)...)
	}
	return out
}

// LayoutGroups returns every group the layout grants plus the entity-wide
// OU and OO groups, deduplicated and ordered by name.
func LayoutGroups(entityID int, layout []FolderAccess) []GroupRef {
	seen := map[string]GroupRef{
		EntityUsers(entityID).Name():  EntityUsers(entityID),
		EntityOwners(entityID).Name(): EntityOwners(entityID),
	}
	for _, f := range layout {
		for _, g := range f.Grants {
			seen[g.Group.Name()] = g.Group
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)

	refs := make([]GroupRef, len(names))
	for i, name := range names {
		refs[i] = seen[name]
	}
	return refs
}

// Describe renders the description stored on a permission group.
func Describe(ref GroupRef) string {
	switch ref.Kind {
	case KindEntityUsers:
		return fmt.Sprintf("Users of entity %d", ref.EntityID)
	case KindEntityOwners:
		return fmt.Sprintf("Owners of entity %d", ref.EntityID)
	case KindDepartmentUsers:
		if ref.GeographyID > 0 {
			return fmt.Sprintf("Department %d users of entity %d in geography %d", ref.DepartmentID, ref.EntityID, ref.GeographyID)
		}
		return fmt.Sprintf("Department %d users of entity %d", ref.DepartmentID, ref.EntityID)
	case KindStageUsers:
		return fmt.Sprintf("Stage %d users of entity %d", ref.StageID, ref.EntityID)
	case KindBrandUsers:
		return fmt.Sprintf("Brand users of entity %d in geography %d", ref.EntityID, ref.GeographyID)
	}
	return ref.Name()
}
