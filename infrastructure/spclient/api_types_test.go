package spclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
)

func TestLookupIDs_UnmarshalJSON_AllShapes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
	}{
		{name: "bare_array", input: `[1,2,3]`, expected: []int{1, 2, 3}},
		{name: "verbose_results", input: `{"__metadata":{"type":"Collection(Edm.Int32)"},"results":[4,5]}`, expected: []int{4, 5}},
		{name: "single_number", input: `9`, expected: []int{9}},
		{name: "null", input: `null`, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids lookupIDs
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ids))
			assert.Equal(t, tt.expected, []int(ids))
		})
	}
}

func TestLookupIDs_UnmarshalJSON_InvalidValue_ReturnsError(t *testing.T) {
	var ids lookupIDs
	err := json.Unmarshal([]byte(`"abc"`), &ids)
	assert.Error(t, err)
}

func TestEntityItem_ToDomain_MapsLookups(t *testing.T) {
	raw := `{"Id":42,"Title":"Alpha","EntityKind":"","EntityOwnerId":7,"BusinessUnitId":3,
		"OpportunityTypeId":2,"EntityStatus":"Processing","IndicationId":{"results":[11,12]},
		"Created":"2024-03-01T09:00:00Z"}`

	var it entityItem
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	e := it.toDomain()

	assert.Equal(t, 42, e.ID)
	assert.Equal(t, npp.EntityKindOpportunity, e.Kind)
	assert.Equal(t, npp.EntityStatusProcessing, e.Status)
	assert.Equal(t, []int{11, 12}, e.IndicationIDs)
	assert.Equal(t, 7, e.OwnerID)
	assert.Equal(t, 2024, e.Created.Year())
}

func TestFileJSON_ToDomain_ReadsListItemFields(t *testing.T) {
	raw := `{"Name":"model.xlsx","ServerRelativeUrl":"/sites/npp/WIP/1/42/5/3/model.xlsx",
		"TimeLastModified":"2024-03-01T09:00:00Z",
		"ListItemAllFields":{"Id":77,"ApprovalStatus":"Submitted","ScenarioId":[2,1],"IndicationId":[],"Comments":null,"ForecastId":null}}`

	var f fileJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	file := f.toDomain()

	assert.Equal(t, 77, file.ID)
	assert.Equal(t, npp.ApprovalSubmitted, file.ApprovalStatus)
	assert.Equal(t, []int{2, 1}, file.ScenarioIDs)
	assert.Empty(t, file.Comments)
	assert.Zero(t, file.ForecastID)
}

func TestUserJSON_ToDomain_FallsBackToUPN(t *testing.T) {
	upn := "jane@contoso.com"
	u := userJSON{ID: 5, Title: "Jane", LoginName: "i:0#.f|membership|jane@contoso.com", UserPrincipalName: &upn}

	user := u.toDomain()

	assert.Equal(t, "jane@contoso.com", user.Email)
	assert.Equal(t, 5, user.ID)
}

func TestFileFieldsPayload_OnlySetFields(t *testing.T) {
	status := npp.ApprovalInProgress
	comments := "[]"

	body := fileFieldsPayload(npp.FileFields{ApprovalStatus: &status, Comments: &comments})

	assert.Equal(t, map[string]any{FieldApprovalStatus: "In Progress", FieldComments: "[]"}, body)
	assert.Empty(t, fileFieldsPayload(npp.FileFields{}))
}

func TestGatewayError_ParsesStatus(t *testing.T) {
	err := gatewayError("get file", errors.New("404 Not Found :: {\"error\":\"File Not Found.\"}"))

	assert.Equal(t, http.StatusNotFound, contracts.StatusCode(err))
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	err = gatewayError("add item", errors.New("500 Internal Server Error :: boom"))
	assert.Equal(t, http.StatusInternalServerError, contracts.StatusCode(err))
	assert.NotErrorIs(t, err, contracts.ErrNotFound)

	err = gatewayError("add item", errors.New("dial tcp: timeout"))
	assert.Zero(t, contracts.StatusCode(err))
}

func TestCollection_UnwrapsEnvelopes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{name: "nometadata_value", input: `{"value":[{"Id":1},{"Id":2}]}`, count: 2},
		{name: "verbose_results", input: `{"d":{"results":[{"Id":1}]}}`, count: 1},
		{name: "bare_array", input: `[{"Id":1},{"Id":2},{"Id":3}]`, count: 3},
		{name: "not_a_collection", input: `{"Id":1}`, count: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, collection([]byte(tt.input)), tt.count)
		})
	}
}

func TestEntity_UnwrapsVerboseObject(t *testing.T) {
	assert.JSONEq(t, `{"Id":3}`, string(entity([]byte(`{"d":{"Id":3}}`))))
	assert.JSONEq(t, `{"Id":3}`, string(entity([]byte(`{"Id":3}`))))
}

func TestEscapePathParam_KeepsSlashes(t *testing.T) {
	assert.Equal(t, "/sites/npp/WIP/O%27%27Neil%20model.xlsx", escapePathParam("/sites/npp/WIP/O'Neil model.xlsx"))
}
