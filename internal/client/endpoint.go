package client

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// loadState tracks one lazily loaded part of a resource.
type loadState int

const (
	unloaded loadState = iota
	loaded
)

// endpoint holds the identity and connection shared by every resource.
type endpoint struct {
	url     string
	conn    taxii2.Connection
	owned   bool
	version taxii2.Version
	logger  taxii2.Logger
}

func newEndpoint(rawURL string, config *taxii2.Config) (endpoint, error) {
	if config == nil {
		config = &taxii2.Config{}
	}

	conn, owned, err := resolveConnection(config)
	if err != nil {
		return endpoint{}, err
	}

	return endpoint{
		url:     ensureTrailingSlash(rawURL),
		conn:    conn,
		owned:   owned,
		version: conn.Version(),
		logger:  config.LoggerOrNop(),
	}, nil
}

// child returns an endpoint at rawURL that borrows e's connection.
func (e endpoint) child(rawURL string) endpoint {
	return endpoint{
		url:     ensureTrailingSlash(rawURL),
		conn:    e.conn,
		version: e.version,
		logger:  e.logger,
	}
}

// URL implements taxii2.Endpoint.
func (e endpoint) URL() string {
	return e.url
}

// Version implements taxii2.Endpoint.
func (e endpoint) Version() taxii2.Version {
	return e.version
}

// Owned reports whether closing the endpoint closes a connection it created.
func (e endpoint) Owned() bool {
	return e.owned
}

// Close implements taxii2.Endpoint. A borrowed connection is closed for
// every endpoint that shares it.
func (e endpoint) Close() error {
	return e.conn.Close()
}

// accept builds request options with an Accept header and query parameters.
func accept(mediaType string, params url.Values) *taxii2.RequestOptions {
	return &taxii2.RequestOptions{
		Headers: map[string]string{"Accept": mediaType},
		Params:  params,
	}
}

func ensureTrailingSlash(rawURL string) string {
	if strings.HasSuffix(rawURL, "/") {
		return rawURL
	}

	return rawURL + "/"
}

// resolveURL joins ref onto base. Absolute references replace base.
func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", taxii2.WrapError(taxii2.ErrInvalidArguments, err, "invalid url '%s'", base)
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", taxii2.WrapError(taxii2.ErrInvalidArguments, err, "invalid url '%s'", ref)
	}

	return baseURL.ResolveReference(refURL).String(), nil
}
