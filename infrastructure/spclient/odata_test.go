package spclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseODataQuery_AllOptions_Parsed(t *testing.T) {
	q, err := ParseODataQuery("?$select=Id,Title&$filter=EntityNameId eq 42&$expand=Author&$orderby=StageNumber desc&$top=10")

	require.NoError(t, err)
	assert.Equal(t, "Id,Title", q.Select)
	assert.Equal(t, "EntityNameId eq 42", q.Filter)
	assert.Equal(t, "Author", q.Expand)
	assert.Equal(t, "StageNumber", q.OrderBy)
	assert.True(t, q.Descending)
	assert.Equal(t, 10, q.Top)
}

func TestParseODataQuery_Empty_ReturnsZeroQuery(t *testing.T) {
	q, err := ParseODataQuery("  ")

	require.NoError(t, err)
	assert.Equal(t, ODataQuery{}, q)
}

func TestParseODataQuery_OrderByWithoutDirection_Ascending(t *testing.T) {
	q, err := ParseODataQuery("$orderby=Id")

	require.NoError(t, err)
	assert.Equal(t, "Id", q.OrderBy)
	assert.False(t, q.Descending)
}

func TestParseODataQuery_ErrorCases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "negative_top", raw: "$top=-1"},
		{name: "non_numeric_top", raw: "$top=ten"},
		{name: "unsupported_option", raw: "$skiptoken=Paged=TRUE"},
		{name: "bad_escape", raw: "$filter=%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseODataQuery(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestODataQuery_String_RoundTrips(t *testing.T) {
	q := ODataQuery{Select: "Id", Filter: "Removed ne 1", OrderBy: "Id", Descending: true, Top: 5}

	parsed, err := ParseODataQuery(q.String())

	require.NoError(t, err)
	assert.Equal(t, q, parsed)
}

func TestFilterHelpers_Render(t *testing.T) {
	assert.Equal(t, "EntityNameId eq 7", eqInt(FieldEntityNameID, 7))
	assert.Equal(t, "Removed ne 1", neInt(FieldRemoved, 1))
	assert.Equal(t, "EntityStatus eq 'O''Brien'", eqString(FieldEntityStatus, "O'Brien"))
	assert.Equal(t, "", and("", ""))
	assert.Equal(t, "A eq 1", and("A eq 1", ""))
	assert.Equal(t, "(A eq 1) and (B eq 2)", and("A eq 1", "B eq 2"))
}

func TestGeographyFilter_KeepsUnsetRemovedFlag(t *testing.T) {
	tests := []struct {
		name           string
		includeRemoved bool
		want           string
	}{
		{"active_only", false, "(EntityNameId eq 42) and (Removed ne 1)"},
		{"include_removed", true, "EntityNameId eq 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geographyFilter(42, tt.includeRemoved))
		})
	}
}
