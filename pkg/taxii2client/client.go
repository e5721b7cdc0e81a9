package taxii2client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/taxii2-client/internal/client"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// NewConnection creates a connection that several endpoints can share
// through taxii2.Config.Connection.
func NewConnection(config *taxii2.Config) (taxii2.Connection, error) {
	conn, err := client.NewConnection(config)
	if err != nil {
		return nil, fmt.Errorf("creating connection: %w", err)
	}

	return conn, nil
}

// NewServer creates a discovery endpoint.
func NewServer(url string, config *taxii2.Config) (taxii2.Server, error) {
	server, err := client.NewServer(url, config)
	if err != nil {
		return nil, err
	}

	return server, nil
}

// NewAPIRoot creates an API root endpoint.
func NewAPIRoot(url string, config *taxii2.Config) (taxii2.APIRoot, error) {
	root, err := client.NewAPIRoot(url, config)
	if err != nil {
		return nil, err
	}

	return root, nil
}

// NewCollection creates a collection endpoint.
func NewCollection(url string, config *taxii2.Config) (taxii2.Collection, error) {
	collection, err := client.NewCollection(url, config)
	if err != nil {
		return nil, err
	}

	return collection, nil
}

// NewCollectionFromInfo creates a collection from a collection resource
// that is already known. The resource is validated immediately.
func NewCollectionFromInfo(url string, info json.RawMessage, config *taxii2.Config) (taxii2.Collection, error) {
	collection, err := client.NewCollectionFromInfo(url, info, config)
	if err != nil {
		return nil, err
	}

	return collection, nil
}

// NewStatus fetches a status resource.
func NewStatus(ctx context.Context, url string, config *taxii2.Config) (taxii2.Status, error) {
	status, err := client.NewStatus(ctx, url, config)
	if err != nil {
		return nil, err
	}

	return status, nil
}

// NewStatusFromInfo creates a status from a status resource that is
// already known.
func NewStatusFromInfo(url string, info json.RawMessage, config *taxii2.Config) (taxii2.Status, error) {
	status, err := client.NewStatusFromInfo(url, info, config)
	if err != nil {
		return nil, err
	}

	return status, nil
}

// AsPages iterates a TAXII 2.0 endpoint using Range requests, starting at
// item start.
func AsPages(ctx context.Context, fetch taxii2.RangeFunc, start, perRequest int, filters taxii2.Filters, logger taxii2.Logger) taxii2.Pages {
	return client.AsPages(ctx, fetch, start, perRequest, filters, logger)
}

// AsEnvelopePages iterates a TAXII 2.1 endpoint with limit and next,
// stopping once the server reports no more pages.
func AsEnvelopePages(ctx context.Context, fetch taxii2.EnvelopeFunc, perRequest int, filters taxii2.Filters) taxii2.Pages {
	return client.AsEnvelopePages(ctx, fetch, perRequest, filters)
}
