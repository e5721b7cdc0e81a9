package taxii2_test

import (
	"testing"
	"time"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDatetime(t *testing.T) {
	t.Parallel()

	base := time.Date(2010, 9, 8, 7, 6, 5, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name      string
		value     time.Time
		precision taxii2.Precision
		expected  string
	}{
		{"whole seconds", base, taxii2.PrecisionNone, "2010-09-08T07:06:05Z"},
		{"half second", base.Add(500 * time.Millisecond), taxii2.PrecisionNone, "2010-09-08T07:06:05.5Z"},
		{"microseconds", base.Add(123456 * time.Microsecond), taxii2.PrecisionNone, "2010-09-08T07:06:05.123456Z"},
		{"millisecond precision pads", base, taxii2.PrecisionMillisecond, "2010-09-08T07:06:05.000Z"},
		{"millisecond precision truncates", base.Add(123456 * time.Microsecond), taxii2.PrecisionMillisecond, "2010-09-08T07:06:05.123Z"},
		{"second precision drops fraction", base.Add(999 * time.Millisecond), taxii2.PrecisionSecond, "2010-09-08T07:06:05Z"},
		{"converted to utc", time.Date(2010, 9, 8, 16, 6, 5, 0, tokyo), taxii2.PrecisionNone, "2010-09-08T07:06:05Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, taxii2.FormatDatetime(tt.value, tt.precision))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	t.Run("millisecond precision is kept", func(t *testing.T) {
		t.Parallel()

		ts, err := taxii2.ParseTimestamp("2016-11-02T12:34:34.120Z")
		require.NoError(t, err)
		assert.Equal(t, taxii2.PrecisionMillisecond, ts.Precision)
		assert.Equal(t, "2016-11-02T12:34:34.120Z", ts.String())
	})

	t.Run("other fractions", func(t *testing.T) {
		t.Parallel()

		ts, err := taxii2.ParseTimestamp("2016-11-02T12:34:34.12345Z")
		require.NoError(t, err)
		assert.Equal(t, taxii2.PrecisionNone, ts.Precision)
		assert.Equal(t, "2016-11-02T12:34:34.12345Z", ts.String())
	})

	t.Run("offsets", func(t *testing.T) {
		t.Parallel()

		ts, err := taxii2.ParseTimestamp("2016-11-02T14:34:34+02:00")
		require.NoError(t, err)
		assert.Equal(t, "2016-11-02T12:34:34Z", ts.String())
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := taxii2.ParseTimestamp("yesterday")
		require.ErrorIs(t, err, taxii2.ErrInvalidArguments)
	})
}
