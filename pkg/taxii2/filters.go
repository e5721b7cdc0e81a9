package taxii2

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Filter keywords with special encoding.
const (
	FilterVersion    = "version"
	FilterAddedAfter = "added_after"
	FilterLimit      = "limit"
	FilterNext       = "next"
)

// Filters maps filter keywords to a single value or a slice of values.
// Keywords other than added_after, limit and next become match[<keyword>]
// query parameters.
type Filters map[string]interface{}

// NewFilters creates an empty filter set.
func NewFilters() Filters {
	return Filters{}
}

// WithMatch adds match values for a field.
func (f Filters) WithMatch(field string, values ...string) Filters {
	f[field] = values

	return f
}

// WithAddedAfter sets the added_after filter.
func (f Filters) WithAddedAfter(ts Timestamp) Filters {
	f[FilterAddedAfter] = ts

	return f
}

// WithVersion sets the version filter.
func (f Filters) WithVersion(versions ...interface{}) Filters {
	f[FilterVersion] = versions

	return f
}

// WithLimit sets the limit filter (TAXII 2.1).
func (f Filters) WithLimit(limit int) Filters {
	f[FilterLimit] = limit

	return f
}

// WithNext sets the pagination cursor (TAXII 2.1).
func (f Filters) WithNext(next string) Filters {
	f[FilterNext] = next

	return f
}

// Clone returns a shallow copy of the filters.
func (f Filters) Clone() Filters {
	clone := make(Filters, len(f))
	for key, value := range f {
		clone[key] = value
	}

	return clone
}

// ToValues converts the filters into query parameters using the grammar
// of the given protocol version. Empty values are skipped.
func (f Filters) ToValues(version Version) (url.Values, error) {
	values := url.Values{}
	v21 := version.OrDefault() == Version21

	for key, raw := range f {
		if isEmptyFilterValue(raw) {
			continue
		}

		args := filterArgs(raw)
		if hasNilArg(args) {
			return nil, NewError(ErrInvalidArguments, "Filter '%s' contains a nil value", key)
		}

		switch {
		case key == FilterVersion:
			values.Set("match[version]", joinFilterArgs(args))
		case key == FilterAddedAfter:
			if len(args) > 1 {
				return nil, NewError(ErrInvalidArguments, "No more than one value for filter 'added_after' may be given")
			}

			values.Set(FilterAddedAfter, joinFilterArgs(args))
		case key == FilterLimit && v21:
			limit, err := parseLimit(args)
			if err != nil {
				return nil, err
			}

			values.Set(FilterLimit, strconv.Itoa(limit))
		case key == FilterNext && v21:
			if len(args) > 1 {
				return nil, NewError(ErrInvalidArguments, "No more than one value for filter 'next' may be given")
			}

			values.Set(FilterNext, formatFilterArg(args[0]))
		default:
			values.Set("match["+key+"]", joinFilterArgs(args))
		}
	}

	return values, nil
}

func parseLimit(args []interface{}) (int, error) {
	if len(args) > 1 {
		return 0, NewError(ErrInvalidArguments, "No more than one value for filter 'limit' may be given")
	}

	limit, err := strconv.Atoi(formatFilterArg(args[0]))
	if err != nil || limit <= 0 {
		return 0, NewError(ErrInvalidArguments, "Filter 'limit' must be a positive integer, got '%v'", args[0])
	}

	return limit, nil
}

func isEmptyFilterValue(raw interface{}) bool {
	if raw == nil {
		return true
	}

	value := reflect.ValueOf(raw)

	switch value.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return value.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return value.IsNil()
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return value.IsZero()
	default:
		return false
	}
}

// filterArgs turns a scalar into a one element list and expands slices.
func filterArgs(raw interface{}) []interface{} {
	value := reflect.ValueOf(raw)
	if value.Kind() != reflect.Slice && value.Kind() != reflect.Array {
		return []interface{}{raw}
	}

	if _, ok := raw.([]byte); ok {
		return []interface{}{string(raw.([]byte))}
	}

	args := make([]interface{}, 0, value.Len())
	for i := range value.Len() {
		args = append(args, value.Index(i).Interface())
	}

	return args
}

func hasNilArg(args []interface{}) bool {
	for _, arg := range args {
		if arg == nil {
			return true
		}

		value := reflect.ValueOf(arg)
		switch value.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			if value.IsNil() {
				return true
			}
		default:
		}
	}

	return false
}

func joinFilterArgs(args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatFilterArg(arg))
	}

	return strings.Join(parts, ",")
}

func formatFilterArg(arg interface{}) string {
	switch typed := arg.(type) {
	case string:
		return typed
	case time.Time:
		return FormatDatetime(typed, PrecisionNone)
	case *time.Time:
		return FormatDatetime(*typed, PrecisionNone)
	case Timestamp:
		return typed.String()
	case *Timestamp:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
