package client

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

var contentRangePattern = regexp.MustCompile(`^items (\d+)-(\d+)/(\d+)$`)

// GrabTotalItems parses Content-Range and returns how many items the
// response holds and how many the server has in total.
func GrabTotalItems(resp *taxii2.Response) (int, int, error) {
	match := contentRangePattern.FindStringSubmatch(resp.Header.Get("Content-Range"))
	if match == nil {
		return 0, 0, taxii2.NewError(taxii2.ErrInvalidJSON, "Invalid Content-Range was received from %s", resp.URL)
	}

	numbers := make([]int, 0, len(match)-1)

	for _, group := range match[1:] {
		n, err := strconv.Atoi(group)
		if err != nil {
			return 0, 0, taxii2.WrapError(taxii2.ErrInvalidJSON, err, "Invalid Content-Range was received from %s", resp.URL)
		}

		numbers = append(numbers, n)
	}

	return numbers[1] - numbers[0] + 1, numbers[2], nil
}

// AsPages iterates a TAXII 2.0 endpoint with Range requests starting at
// start. When the server answers with fewer items than asked for, later
// requests use the smaller page size.
func AsPages(ctx context.Context, fetch taxii2.RangeFunc, start, perRequest int, filters taxii2.Filters, logger taxii2.Logger) taxii2.Pages {
	if perRequest <= 0 {
		perRequest = constants.DefaultPerRequest
	}

	if logger == nil {
		logger = taxii2.NopLogger{}
	}

	var used atomic.Bool

	return func(yield func(json.RawMessage, error) bool) {
		if used.Swap(true) {
			return
		}

		resp, err := fetch(ctx, start, perRequest, filters)
		if err != nil {
			yield(nil, err)

			return
		}

		raw, err := resp.JSON()
		if !yield(raw, err) || err != nil {
			return
		}

		obtained, available, err := GrabTotalItems(resp)
		if err != nil {
			yield(nil, err)

			return
		}

		if available > perRequest && obtained != perRequest {
			logger.Warn(fmt.Sprintf("TAXII Server response with different amount of objects! Setting per_request=%d", obtained),
				map[string]interface{}{"url": resp.URL, "per_request": obtained})

			perRequest = obtained
		}

		if perRequest <= 0 {
			return
		}

		start += perRequest

		for start < available {
			resp, err = fetch(ctx, start, perRequest, filters)
			if err != nil {
				yield(nil, err)

				return
			}

			raw, err = resp.JSON()
			if !yield(raw, err) || err != nil {
				return
			}

			_, available, err = GrabTotalItems(resp)
			if err != nil {
				yield(nil, err)

				return
			}

			start += perRequest
		}
	}
}

// AsEnvelopePages iterates a TAXII 2.1 endpoint, following "next" while
// the envelope reports "more".
func AsEnvelopePages(ctx context.Context, fetch taxii2.EnvelopeFunc, perRequest int, filters taxii2.Filters) taxii2.Pages {
	var used atomic.Bool

	return func(yield func(json.RawMessage, error) bool) {
		if used.Swap(true) {
			return
		}

		pageFilters := filters.Clone()
		if perRequest > 0 {
			pageFilters[taxii2.FilterLimit] = perRequest
		}

		for {
			raw, err := fetch(ctx, pageFilters)
			if !yield(raw, err) || err != nil {
				return
			}

			var envelope taxii2.Envelope
			if err := json.Unmarshal(raw, &envelope); err != nil {
				yield(nil, taxii2.WrapError(taxii2.ErrInvalidJSON, err, "Invalid envelope was received"))

				return
			}

			if !envelope.More || envelope.Next == "" {
				return
			}

			pageFilters[taxii2.FilterNext] = envelope.Next
		}
	}
}
