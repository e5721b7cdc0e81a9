package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

const apiRootBody = `{
	"title": "Malware Research Group",
	"description": "A trust group setup for malware researchers",
	"versions": ["application/taxii+json;version=2.1"],
	"max_content_length": 9765625,
	"x_example": "custom"
}`

const collectionsBody = `{
	"collections": [
		{
			"id": "91a7b528-80eb-42ed-a74d-c6fbd5a26116",
			"title": "High Value Indicator Collection",
			"can_read": true,
			"can_write": false,
			"media_types": ["application/stix+json;version=2.1"]
		},
		{
			"id": "52892447-4d7e-4f70-b94d-d7f22742ff63",
			"title": "Indicators from the past 24-hours",
			"description": "This data collection is for collecting current IOCs",
			"can_read": true,
			"can_write": false
		}
	]
}`

func TestAPIRoot_IndependentLoading(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/api1/", taxii21(apiRootBody))
	fake.handle(http.MethodGet, "/api1/collections/", taxii21(collectionsBody))

	root, err := NewAPIRoot(fake.URL+"/api1/", config21())
	require.NoError(t, err)

	info, err := root.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Malware Research Group", info.Title)
	assert.Equal(t, int64(9765625), info.MaxContentLength)
	assert.Equal(t, "custom", info.CustomProperties["x_example"])
	assert.Equal(t, 0, fake.hitCount(http.MethodGet, "/api1/collections/"))

	collections, err := root.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, 1, fake.hitCount(http.MethodGet, "/api1/"))

	_, err = root.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.hitCount(http.MethodGet, "/api1/collections/"))

	assert.Equal(t, fake.URL+"/api1/collections/91a7b528-80eb-42ed-a74d-c6fbd5a26116/", collections[0].URL())

	second, err := collections[1].Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "This data collection is for collecting current IOCs", second.Description)
	assert.Empty(t, second.MediaTypes)
	assert.NotNil(t, second.MediaTypes)

	require.NoError(t, root.Refresh(context.Background()))
	assert.Equal(t, 2, fake.hitCount(http.MethodGet, "/api1/"))
	assert.Equal(t, 2, fake.hitCount(http.MethodGet, "/api1/collections/"))
}

func TestAPIRoot_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "title", body: `{"versions":["2.1"],"max_content_length":1}`, field: "title"},
		{name: "versions", body: `{"title":"R","max_content_length":1}`, field: "versions"},
		{name: "empty versions", body: `{"title":"R","versions":[],"max_content_length":1}`, field: "versions"},
		{name: "max_content_length", body: `{"title":"R","versions":["2.1"]}`, field: "max_content_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakeTAXII(t)
			fake.handle(http.MethodGet, "/api1/", taxii21(tt.body))

			root, err := NewAPIRoot(fake.URL+"/api1/", config21())
			require.NoError(t, err)

			_, err = root.Info(context.Background())
			require.ErrorIs(t, err, taxii2.ErrValidation)
			assert.Equal(t, "No '"+tt.field+"' in API Root for request '"+fake.URL+"/api1/'", err.Error())
		})
	}

	t.Run("zero max_content_length is present", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/api1/", taxii21(`{"title":"R","versions":["2.1"],"max_content_length":0}`))

		root, err := NewAPIRoot(fake.URL+"/api1/", config21())
		require.NoError(t, err)

		info, err := root.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), info.MaxContentLength)
	})
}

func TestAPIRoot_CollectionValidationFailsListing(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/api1/collections/",
		taxii21(`{"collections":[{"id":"c1","title":"C","can_read":true}]}`))

	root, err := NewAPIRoot(fake.URL+"/api1/", config21())
	require.NoError(t, err)

	_, err = root.Collections(context.Background())
	require.ErrorIs(t, err, taxii2.ErrValidation)
	assert.Contains(t, err.Error(), "No 'can_write' in Collection")

	_, err = root.Collections(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, fake.hitCount(http.MethodGet, "/api1/collections/"))
}

func TestAPIRoot_EmptyCollections(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/api1/collections/", taxii21(`{}`))

	root, err := NewAPIRoot(fake.URL+"/api1/", config21())
	require.NoError(t, err)

	collections, err := root.Collections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestAPIRoot_GetStatus(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/api1/status/2d086da7-4bdc-4f91-900e-d77486753710/", taxii21(`{
		"id": "2d086da7-4bdc-4f91-900e-d77486753710",
		"status": "pending",
		"request_timestamp": "2016-11-02T12:34:34.12345Z",
		"total_count": 4,
		"success_count": 1,
		"successes": [{"id": "indicator--c410e480-e42b-47d1-9476-85307c12bcbf", "version": "2018-05-27T12:02:41.312Z"}],
		"failure_count": 1,
		"failures": [{"id": "malware--664fa29d-bf65-4f28-a667-bdb76f29ec98", "version": "2018-05-28T14:03:42.543Z", "message": "Unable to process object"}],
		"pending_count": 2,
		"pendings": [
			{"id": "indicator--252c7c11-daf2-42bd-843b-be65edca9f61", "version": "2018-05-18T20:16:21.148Z"},
			{"id": "relationship--045585ad-a22f-4333-af33-bfd503a683b5", "version": "2018-05-15T10:13:32.579Z"}
		]
	}`))

	root, err := NewAPIRoot(fake.URL+"/api1", config21())
	require.NoError(t, err)

	status, err := root.GetStatus(context.Background(), "2d086da7-4bdc-4f91-900e-d77486753710")
	require.NoError(t, err)
	assert.False(t, status.Complete())
	assert.Equal(t, "Unable to process object", status.Info().Failures[0].Message)
	assert.Equal(t, int64(2), status.Info().PendingCount)
	assert.Equal(t, fake.URL+"/api1/status/2d086da7-4bdc-4f91-900e-d77486753710/", status.URL())
}
