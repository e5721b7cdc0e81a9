package taxii2

import (
	"fmt"
	"strings"
	"time"
)

// Precision marks how many fractional second digits a timestamp carries
// when formatted.
type Precision int

const (
	// PrecisionNone emits the non-zero fraction with trailing zeros trimmed.
	PrecisionNone Precision = iota
	// PrecisionSecond never emits a fraction.
	PrecisionSecond
	// PrecisionMillisecond always emits exactly three fractional digits.
	PrecisionMillisecond
)

const stixTimeLayout = "2006-01-02T15:04:05"

// Timestamp is a point in time with an explicit formatting precision.
type Timestamp struct {
	Time      time.Time
	Precision Precision
}

// NewTimestamp creates a Timestamp.
func NewTimestamp(t time.Time, precision Precision) Timestamp {
	return Timestamp{Time: t, Precision: precision}
}

// ParseTimestamp parses an RFC 3339 timestamp. A value with exactly three
// fractional digits keeps millisecond precision.
func ParseTimestamp(value string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return Timestamp{}, WrapError(ErrInvalidArguments, err, "invalid timestamp '%s'", value)
	}

	precision := PrecisionNone

	if dot := strings.IndexByte(value, '.'); dot >= 0 {
		digits := strings.IndexAny(value[dot+1:], "Zz+-")
		if digits == 3 {
			precision = PrecisionMillisecond
		}
	}

	return Timestamp{Time: t, Precision: precision}, nil
}

// String formats the timestamp the way STIX and TAXII filters expect.
func (ts Timestamp) String() string {
	return FormatDatetime(ts.Time, ts.Precision)
}

// FormatDatetime converts t to UTC and formats it as a STIX timestamp.
func FormatDatetime(t time.Time, precision Precision) string {
	utc := t.UTC()
	formatted := utc.Format(stixTimeLayout)
	fraction := fmt.Sprintf("%09d", utc.Nanosecond())

	switch {
	case precision == PrecisionSecond:
	case precision == PrecisionMillisecond:
		formatted += "." + fraction[:3]
	case utc.Nanosecond() > 0:
		formatted += "." + strings.TrimRight(fraction, "0")
	}

	return formatted + "Z"
}
