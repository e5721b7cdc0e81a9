package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestStatus_Validation(t *testing.T) {
	t.Parallel()

	const statusURL = "https://example.com/api1/status/s1/"

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{
			name:    "missing id",
			body:    `{"status":"pending","total_count":0,"success_count":0,"failure_count":0,"pending_count":0}`,
			message: "No 'id' in Status for request '" + statusURL + "'",
		},
		{
			name:    "missing status",
			body:    `{"id":"s1","total_count":0,"success_count":0,"failure_count":0,"pending_count":0}`,
			message: "No 'status' in Status for request '" + statusURL + "'",
		},
		{
			name:    "missing total_count",
			body:    `{"id":"s1","status":"pending","success_count":0,"failure_count":0,"pending_count":0}`,
			message: "No 'total_count' in Status for request '" + statusURL + "'",
		},
		{
			name:    "missing success_count",
			body:    `{"id":"s1","status":"pending","total_count":0,"failure_count":0,"pending_count":0}`,
			message: "No 'success_count' in Status for request '" + statusURL + "'",
		},
		{
			name:    "missing failure_count",
			body:    `{"id":"s1","status":"pending","total_count":0,"success_count":0,"pending_count":0}`,
			message: "No 'failure_count' in Status for request '" + statusURL + "'",
		},
		{
			name:    "two successes mismatch",
			body:    `{"id":"s1","status":"complete","total_count":1,"success_count":1,"failure_count":0,"pending_count":0,"successes":["a","b"]}`,
			message: "Found successes=['a', 'b'], but success_count=1 in status 's1'",
		},
		{
			name:    "missing pending_count",
			body:    `{"id":"s1","status":"pending","total_count":0,"success_count":0,"failure_count":0}`,
			message: "No 'pending_count' in Status for request '" + statusURL + "'",
		},
		{
			name:    "successes mismatch",
			body:    `{"id":"s1","status":"complete","total_count":2,"success_count":2,"failure_count":0,"pending_count":0,"successes":["a"]}`,
			message: "Found successes=['a'], but success_count=2 in status 's1'",
		},
		{
			name:    "pendings mismatch",
			body:    `{"id":"s1","status":"pending","total_count":1,"success_count":0,"failure_count":0,"pending_count":1}`,
			message: "Found pendings=[], but pending_count=1 in status 's1'",
		},
		{
			name:    "failures mismatch",
			body:    `{"id":"s1","status":"complete","total_count":0,"success_count":0,"failure_count":0,"pending_count":0,"failures":[{"id":"x","message":"bad"}]}`,
			message: "Found failures=['x'], but failure_count=0 in status 's1'",
		},
		{
			name:    "total mismatch",
			body:    `{"id":"s1","status":"complete","total_count":3,"success_count":1,"failure_count":0,"pending_count":0,"successes":["a"]}`,
			message: "(success_count=1 + pending_count=0 + failure_count=0) != total_count=3 in status 's1'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewStatusFromInfo(statusURL, json.RawMessage(tt.body), config21())
			require.ErrorIs(t, err, taxii2.ErrValidation)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestStatus_Info(t *testing.T) {
	t.Parallel()

	body := `{"id":"s1","status":"complete","request_timestamp":"2016-11-02T12:34:34.12345Z","total_count":3,` +
		`"success_count":1,"failure_count":1,"pending_count":1,"successes":["a"],` +
		`"failures":[{"id":"b","message":"Unable to process object"}],"pendings":["c"],"x_vendor":"acme"}`

	status, err := NewStatusFromInfo("https://example.com/api1/status/s1", json.RawMessage(body), config20())
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/api1/status/s1/", status.URL())
	assert.True(t, status.Complete())

	info := status.Info()
	assert.Equal(t, int64(3), info.TotalCount)
	require.Len(t, info.Failures, 1)
	assert.Equal(t, "b", info.Failures[0].ID)
	assert.Equal(t, "Unable to process object", info.Failures[0].Message)
	assert.Equal(t, "acme", info.CustomProperties["x_vendor"])
	assert.JSONEq(t, body, string(status.Raw()))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestStatus_WaitUntilFinal(t *testing.T) {
	t.Parallel()

	t.Run("fetches on creation", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, statusPath, taxii21(completeStatus()))

		status, err := NewStatus(context.Background(), fake.URL+statusPath, config21())
		require.NoError(t, err)
		assert.True(t, status.Complete())
		assert.Equal(t, 1, fake.hitCount(http.MethodGet, statusPath))
	})

	t.Run("transport failure stops polling", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, statusPath, route{status: http.StatusInternalServerError, contentType: "text/plain", body: "boom"})

		status, err := NewStatusFromInfo(fake.URL+statusPath, json.RawMessage(pendingStatus()), config21())
		require.NoError(t, err)

		err = status.WaitUntilFinal(context.Background(), 5*time.Millisecond, time.Minute)
		require.ErrorIs(t, err, taxii2.ErrTransport)
		assert.Equal(t, 1, fake.hitCount(http.MethodGet, statusPath))
		assert.False(t, status.Complete())
	})

	t.Run("invalid refresh keeps previous state", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, statusPath, taxii21(`{"id":"`+statusID+`"}`))

		status, err := NewStatusFromInfo(fake.URL+statusPath, json.RawMessage(pendingStatus()), config21())
		require.NoError(t, err)

		err = status.Refresh(context.Background())
		require.ErrorIs(t, err, taxii2.ErrValidation)
		assert.Equal(t, taxii2.StatusPending, status.Info().Status)
		assert.JSONEq(t, pendingStatus(), string(status.Raw()))
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, statusPath, taxii21(pendingStatus()))

		status, err := NewStatusFromInfo(fake.URL+statusPath, json.RawMessage(pendingStatus()), config21())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err = status.WaitUntilFinal(ctx, 10*time.Millisecond, 0)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("logs each poll", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, statusPath, taxii21(pendingStatus()), taxii21(completeStatus()))

		logger := &MockLogger{}
		config := config21()
		config.Logger = logger

		status, err := NewStatusFromInfo(fake.URL+statusPath, json.RawMessage(pendingStatus()), config)
		require.NoError(t, err)

		require.NoError(t, status.WaitUntilFinal(context.Background(), time.Millisecond, time.Minute))
		assert.True(t, status.Complete())
		assert.Equal(t, []string{"Polled status", "Polled status"}, logger.messages("debug"))
	})
}
