package taxii2_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests using t.Setenv cannot run in parallel.
//
//nolint:paralleltest
func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := taxii2.ConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, taxii2.Version21, config.Version)
		assert.Equal(t, 30*time.Second, config.HTTPTimeout)
		assert.Zero(t, config.RetryMax)
		assert.False(t, config.HasCredentials())
	})

	t.Run("reads prefixed variables", func(t *testing.T) {
		t.Setenv("TAXII2_VERSION", "2.0")
		t.Setenv("TAXII2_USERNAME", "user")
		t.Setenv("TAXII2_PASSWORD", "pass")
		t.Setenv("TAXII2_HTTP_TIMEOUT", "5s")
		t.Setenv("TAXII2_RETRY_MAX", "3")
		t.Setenv("TAXII2_SKIP_TLS_VERIFY", "true")

		config, err := taxii2.ConfigFromEnv()
		require.NoError(t, err)

		assert.Equal(t, taxii2.Version20, config.Version)
		assert.Equal(t, "user", config.Username)
		assert.Equal(t, 5*time.Second, config.HTTPTimeout)
		assert.Equal(t, 3, config.RetryMax)
		assert.True(t, config.SkipTLSVerify)
		assert.True(t, config.HasCredentials())
	})

	t.Run("rejects unknown version", func(t *testing.T) {
		t.Setenv("TAXII2_VERSION", "2.2")

		_, err := taxii2.ConfigFromEnv()
		require.ErrorIs(t, err, taxii2.ErrInvalidArguments)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := []*taxii2.Config{
		{},
		{Username: "user", Password: "pass"},
		{Token: "abc"},
		{Version: taxii2.Version20},
	}

	for _, config := range valid {
		require.NoError(t, config.Validate())
	}

	invalid := []*taxii2.Config{
		{Token: "abc", Username: "user"},
		{Version: "9.9"},
	}

	for _, config := range invalid {
		require.ErrorIs(t, config.Validate(), taxii2.ErrInvalidArguments)
	}
}

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := taxii2.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	config := &taxii2.Config{Logger: logger}

	config.LoggerOrNop().Warn("page size changed", map[string]interface{}{"per_request": 2})

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `msg="page size changed"`)
	assert.Contains(t, buf.String(), "per_request=2")
	assert.IsType(t, taxii2.NopLogger{}, (&taxii2.Config{}).LoggerOrNop())
}
