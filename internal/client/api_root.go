package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// APIRoot implements taxii2.APIRoot. Information and collections are
// loaded independently of each other.
type APIRoot struct {
	endpoint

	mu               sync.Mutex
	infoState        loadState
	info             *taxii2.APIRootInfo
	raw              json.RawMessage
	collectionsState loadState
	collections      []taxii2.Collection
}

// NewAPIRoot creates an API root endpoint. Nothing is fetched until first use.
func NewAPIRoot(rawURL string, config *taxii2.Config) (*APIRoot, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	return newAPIRoot(ep), nil
}

func newAPIRoot(ep endpoint) *APIRoot {
	return &APIRoot{endpoint: ep}
}

// Info implements taxii2.APIRoot.
func (a *APIRoot) Info(ctx context.Context) (*taxii2.APIRootInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.infoState == unloaded {
		if err := a.refreshInformation(ctx); err != nil {
			return nil, err
		}
	}

	return a.info, nil
}

// Collections implements taxii2.APIRoot.
func (a *APIRoot) Collections(ctx context.Context) ([]taxii2.Collection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.collectionsState == unloaded {
		if err := a.refreshCollections(ctx); err != nil {
			return nil, err
		}
	}

	return a.collections, nil
}

// Refresh implements taxii2.APIRoot.
func (a *APIRoot) Refresh(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.refreshInformation(ctx); err != nil {
		return err
	}

	return a.refreshCollections(ctx)
}

// RefreshInformation implements taxii2.APIRoot.
func (a *APIRoot) RefreshInformation(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.refreshInformation(ctx)
}

// RefreshCollections implements taxii2.APIRoot.
func (a *APIRoot) RefreshCollections(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.refreshCollections(ctx)
}

// GetStatus implements taxii2.APIRoot.
func (a *APIRoot) GetStatus(ctx context.Context, statusID string) (taxii2.Status, error) {
	statusURL := a.url + "status/" + statusID + "/"

	resp, err := a.conn.Get(ctx, statusURL, accept(a.version.AcceptMediaType(), nil))
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	return newStatusFromInfo(a.child(statusURL), raw)
}

// Raw implements taxii2.APIRoot.
func (a *APIRoot) Raw() json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.raw
}

func (a *APIRoot) refreshInformation(ctx context.Context) error {
	resp, err := a.conn.Get(ctx, a.url, accept(a.version.AcceptMediaType(), nil))
	if err != nil {
		return fmt.Errorf("getting api root: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return err
	}

	info, err := a.decodeInformation(raw)
	if err != nil {
		return err
	}

	a.info = info
	a.raw = raw
	a.infoState = loaded

	return nil
}

func (a *APIRoot) decodeInformation(raw json.RawMessage) (*taxii2.APIRootInfo, error) {
	doc, err := decodeDocument(raw, a.url)
	if err != nil {
		return nil, err
	}

	var info taxii2.APIRootInfo
	if err := decodeInto(raw, &info, a.url); err != nil {
		return nil, err
	}

	switch {
	case info.Title == "":
		return nil, missingField("title", "API Root", a.url)
	case len(info.Versions) == 0:
		return nil, missingField("versions", "API Root", a.url)
	case !doc.has("max_content_length"):
		return nil, missingField("max_content_length", "API Root", a.url)
	}

	return &info, nil
}

func (a *APIRoot) refreshCollections(ctx context.Context) error {
	collectionsURL := a.url + "collections/"

	resp, err := a.conn.Get(ctx, collectionsURL, accept(a.version.AcceptMediaType(), nil))
	if err != nil {
		return fmt.Errorf("getting collections: %w", err)
	}

	var listing struct {
		Collections []json.RawMessage `json:"collections"`
	}

	if err := resp.DecodeJSON(&listing); err != nil {
		return err
	}

	collections := make([]taxii2.Collection, 0, len(listing.Collections))

	for _, item := range listing.Collections {
		var ref struct {
			ID string `json:"id"`
		}

		if err := decodeInto(item, &ref, collectionsURL); err != nil {
			return err
		}

		collection, err := newCollectionFromInfo(a.child(collectionsURL+ref.ID+"/"), item)
		if err != nil {
			return err
		}

		collections = append(collections, collection)
	}

	a.collections = collections
	a.collectionsState = loaded

	return nil
}
