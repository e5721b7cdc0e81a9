package taxii2

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// RequestOptions carries the optional parts of a request. At most one of
// JSON and Data may be set.
type RequestOptions struct {
	// Headers override the default headers. Keys are case-insensitive.
	Headers map[string]string

	// Params are appended to the query string.
	Params url.Values

	// JSON is serialized as the request body.
	JSON interface{}

	// Data is sent as the request body unchanged.
	Data []byte
}

// Response is an HTTP response that passed status and content type checks.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// JSON validates the body and returns it as raw JSON.
func (r *Response) JSON() (json.RawMessage, error) {
	if !json.Valid(r.Body) {
		return nil, NewError(ErrInvalidJSON, "Invalid JSON was received from %s", r.URL)
	}

	return json.RawMessage(r.Body), nil
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return WrapError(ErrInvalidJSON, err, "Invalid JSON was received from %s", r.URL)
	}

	return nil
}

// Connection is the transport shared by endpoints. Implementations must be
// safe for concurrent use.
type Connection interface {
	// Get issues a GET and checks the response content type.
	Get(ctx context.Context, rawURL string, opts *RequestOptions) (*Response, error)

	// Post issues a POST and checks the response content type.
	Post(ctx context.Context, rawURL string, opts *RequestOptions) (*Response, error)

	// Delete issues a DELETE.
	Delete(ctx context.Context, rawURL string, opts *RequestOptions) (*Response, error)

	// Version returns the protocol version the connection negotiates.
	Version() Version

	// Close releases idle connections. Later requests fail.
	Close() error
}
