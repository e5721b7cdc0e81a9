package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

const discoveryBody = `{
	"title": "Some TAXII Server",
	"description": "This TAXII Server contains a listing of",
	"contact": "string containing contact information",
	"default": "https://example.com/api2/",
	"api_roots": [
		"https://example.com/api1/",
		"https://example.com/api2/",
		"https://example.net/trustgroup1/"
	]
}`

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestServer_Discovery(t *testing.T) {
	t.Parallel()

	t.Run("lazy load happens once", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(discoveryBody))

		server, err := NewServer(fake.URL+"/taxii2/", config21())
		require.NoError(t, err)
		assert.Equal(t, 0, fake.hitCount(http.MethodGet, "/taxii2/"))

		info, err := server.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Some TAXII Server", info.Title)
		assert.Equal(t, "string containing contact information", info.Contact)

		_, err = server.Info(context.Background())
		require.NoError(t, err)

		roots, err := server.APIRoots(context.Background())
		require.NoError(t, err)
		assert.Len(t, roots, 3)
		assert.Equal(t, 1, fake.hitCount(http.MethodGet, "/taxii2/"))
	})

	t.Run("default is the listed instance", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(discoveryBody))

		server, err := NewServer(fake.URL+"/taxii2/", config21())
		require.NoError(t, err)

		roots, err := server.APIRoots(context.Background())
		require.NoError(t, err)

		defaultRoot, err := server.Default(context.Background())
		require.NoError(t, err)
		require.NotNil(t, defaultRoot)
		assert.Same(t, roots[1], defaultRoot)
		assert.Equal(t, "https://example.com/api2/", defaultRoot.URL())
	})

	t.Run("default absent", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(`{"title":"S","api_roots":["https://e/a1/"]}`))

		server, err := NewServer(fake.URL+"/taxii2", config21())
		require.NoError(t, err)

		defaultRoot, err := server.Default(context.Background())
		require.NoError(t, err)
		assert.Nil(t, defaultRoot)
	})

	t.Run("relative api roots resolve against the server", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(`{"title":"S","api_roots":["/api1/","api2"]}`))

		server, err := NewServer(fake.URL+"/taxii2/", config21())
		require.NoError(t, err)

		roots, err := server.APIRoots(context.Background())
		require.NoError(t, err)
		require.Len(t, roots, 2)
		assert.Equal(t, fake.URL+"/api1/", roots[0].URL())
		assert.Equal(t, fake.URL+"/taxii2/api2/", roots[1].URL())
	})

	t.Run("missing title", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(`{"api_roots":[]}`), taxii21(discoveryBody))

		server, err := NewServer(fake.URL+"/taxii2/", config21())
		require.NoError(t, err)

		_, err = server.Info(context.Background())
		require.ErrorIs(t, err, taxii2.ErrValidation)
		assert.Equal(t, "No 'title' in Server Discovery for request '"+fake.URL+"/taxii2/'", err.Error())
		assert.Nil(t, server.Raw())

		info, err := server.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Some TAXII Server", info.Title)
		assert.Equal(t, 2, fake.hitCount(http.MethodGet, "/taxii2/"))
	})

	t.Run("custom properties", func(t *testing.T) {
		t.Parallel()

		fake := newFakeTAXII(t)
		fake.handle(http.MethodGet, "/taxii2/", taxii21(`{"title":"S","x_vendor":{"tier":2}}`))

		server, err := NewServer(fake.URL+"/taxii2/", config21())
		require.NoError(t, err)

		info, err := server.Info(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"x_vendor": map[string]interface{}{"tier": float64(2)}}, info.CustomProperties)
	})
}

func TestServer_Refresh(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/taxii2/",
		taxii21(`{"title":"S","api_roots":["https://e/a1/"]}`),
		taxii21(`{"title":"S2","api_roots":["https://e/a1/","https://e/a2/"]}`),
		route{status: http.StatusInternalServerError, contentType: taxii2.MediaTypeTAXIIV21})

	server, err := NewServer(fake.URL+"/taxii2/", config21())
	require.NoError(t, err)

	before, err := server.APIRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, before, 1)

	require.NoError(t, server.Refresh(context.Background()))

	after, err := server.APIRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.NotSame(t, before[0], after[0])

	err = server.Refresh(context.Background())
	require.ErrorIs(t, err, taxii2.ErrTransport)

	info, err := server.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "S2", info.Title)
}

func TestServer_SharedConnection(t *testing.T) {
	t.Parallel()

	fake := newFakeTAXII(t)
	fake.handle(http.MethodGet, "/taxii2/", taxii21(`{"title":"S","api_roots":["/api1/"]}`))
	fake.handle(http.MethodGet, "/api1/", taxii21(`{"title":"R","versions":["2.1"],"max_content_length":100}`))

	server, err := NewServer(fake.URL+"/taxii2/", &taxii2.Config{Version: taxii2.Version21, Token: "abc"})
	require.NoError(t, err)

	roots, err := server.APIRoots(context.Background())
	require.NoError(t, err)

	info, err := roots[0].Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.MaxContentLength)
	assert.Equal(t, "Token abc", fake.lastRequest(http.MethodGet, "/api1/").Header.Get("Authorization"))

	require.NoError(t, server.Close())

	err = roots[0].RefreshInformation(context.Background())
	require.ErrorIs(t, err, taxii2.ErrConnectionClosed)
}
