package permissions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRef_Name(t *testing.T) {
	tests := []struct {
		name     string
		ref      GroupRef
		expected string
	}{
		{"entity_users", EntityUsers(42), "OU-42"},
		{"entity_owners", EntityOwners(42), "OO-42"},
		{"flat_department", DepartmentUsers(42, 3, 0), "DU-42-3"},
		{"model_department", DepartmentUsers(42, 3, 7), "DU-42-3-7"},
		{"stage", StageUsers(42, 11), "SU-42-11"},
		{"brand_geography", BrandUsers(42, 7), "BU-42-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.Name())
			require.NoError(t, tt.ref.Validate())
		})
	}
}

func TestParseGroupName_RoundTrip(t *testing.T) {
	refs := []GroupRef{
		EntityUsers(1),
		EntityOwners(99),
		DepartmentUsers(5, 2, 0),
		DepartmentUsers(5, 2, 14),
		StageUsers(8, 3),
		BrandUsers(8, 21),
	}

	for _, ref := range refs {
		t.Run(ref.Name(), func(t *testing.T) {
			parsed, err := ParseGroupName(ref.Name())
			require.NoError(t, err)
			assert.Equal(t, ref, parsed)
			assert.Equal(t, ref.Name(), parsed.Name())
		})
	}
}

func TestParseGroupName_Invalid(t *testing.T) {
	names := []string{
		"",
		"OU",
		"OU-",
		"OU-abc",
		"OU-1-2",
		"DU-1",
		"DU-1-2-3-4",
		"SU-1",
		"BU-1",
		"XX-1",
		"OU-0",
		"SU-1--2",
		"Team Site Members",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGroupName(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGroupName))
		})
	}
}

func TestBelongsTo(t *testing.T) {
	assert.True(t, BelongsTo("DU-42-3-7", 42))
	assert.True(t, BelongsTo("OO-42", 42))
	assert.False(t, BelongsTo("OU-420", 42))
	assert.False(t, BelongsTo("Site Owners", 42))
}

func TestGroupRef_Validate(t *testing.T) {
	assert.Error(t, GroupRef{Kind: KindEntityUsers}.Validate())
	assert.Error(t, StageUsers(1, 0).Validate())
	assert.Error(t, BrandUsers(1, 0).Validate())
	assert.Error(t, DepartmentUsers(1, 0, 0).Validate())
	assert.Error(t, GroupRef{Kind: "ZZ", EntityID: 1}.Validate())
}

func TestRLSGroupName_NotAPermissionGroup(t *testing.T) {
	assert.Equal(t, "RLS-42", RLSGroupName(42))
	assert.False(t, BelongsTo(RLSGroupName(42), 42))
}
