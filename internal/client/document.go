package client

import (
	"encoding/json"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// document is a decoded JSON object used to check which fields a server
// actually sent. Typed decoding cannot tell a missing boolean from false.
type document map[string]json.RawMessage

func decodeDocument(raw json.RawMessage, requestURL string) (document, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, taxii2.WrapError(taxii2.ErrInvalidJSON, err, "Invalid JSON was received from %s", requestURL)
	}

	return doc, nil
}

// has reports whether key is present with a non-null value.
func (d document) has(key string) bool {
	raw, ok := d[key]

	return ok && string(raw) != "null"
}

func decodeInto(raw json.RawMessage, v interface{}, requestURL string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return taxii2.WrapError(taxii2.ErrInvalidJSON, err, "Invalid JSON was received from %s", requestURL)
	}

	return nil
}

func missingField(field, resource, requestURL string) error {
	return taxii2.NewError(taxii2.ErrValidation, "No '%s' in %s for request '%s'", field, resource, requestURL)
}
