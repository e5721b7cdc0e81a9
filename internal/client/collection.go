package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// Collection implements taxii2.Collection.
type Collection struct {
	endpoint

	mu    sync.Mutex
	state loadState
	info  *taxii2.CollectionInfo
	raw   json.RawMessage
}

// NewCollection creates a collection endpoint. Nothing is fetched until first use.
func NewCollection(rawURL string, config *taxii2.Config) (*Collection, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	return &Collection{endpoint: ep}, nil
}

// NewCollectionFromInfo creates a collection that is already loaded from a
// known collection resource.
func NewCollectionFromInfo(rawURL string, info json.RawMessage, config *taxii2.Config) (*Collection, error) {
	ep, err := newEndpoint(rawURL, config)
	if err != nil {
		return nil, err
	}

	return newCollectionFromInfo(ep, info)
}

func newCollectionFromInfo(ep endpoint, info json.RawMessage) (*Collection, error) {
	collection := &Collection{endpoint: ep}
	if err := collection.populate(info); err != nil {
		return nil, err
	}

	return collection, nil
}

// Info implements taxii2.Collection.
func (c *Collection) Info(ctx context.Context) (*taxii2.CollectionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == unloaded {
		if err := c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	return c.info, nil
}

// Refresh implements taxii2.Collection.
func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refresh(ctx)
}

// Raw implements taxii2.Collection.
func (c *Collection) Raw() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.raw
}

// ObjectsURL implements taxii2.Collection.
func (c *Collection) ObjectsURL() string {
	return c.url + "objects/"
}

// GetObjects implements taxii2.Collection.
func (c *Collection) GetObjects(ctx context.Context, filters taxii2.Filters) (json.RawMessage, error) {
	if err := c.verifyCanRead(ctx); err != nil {
		return nil, err
	}

	return c.getJSON(ctx, c.ObjectsURL(), c.version.ObjectsMediaType(), filters)
}

// GetObject implements taxii2.Collection. TAXII 2.0 servers only accept the
// version filter here, so other filters are dropped for them.
func (c *Collection) GetObject(ctx context.Context, objectID string, filters taxii2.Filters) (json.RawMessage, error) {
	if err := c.verifyCanRead(ctx); err != nil {
		return nil, err
	}

	if c.version == taxii2.Version20 {
		filters = taxii2.Filters{taxii2.FilterVersion: filters[taxii2.FilterVersion]}
	}

	return c.getJSON(ctx, c.ObjectsURL()+objectID+"/", c.version.ObjectsMediaType(), filters)
}

// GetManifest implements taxii2.Collection.
func (c *Collection) GetManifest(ctx context.Context, filters taxii2.Filters) (json.RawMessage, error) {
	if err := c.verifyCanRead(ctx); err != nil {
		return nil, err
	}

	return c.getJSON(ctx, c.url+"manifest/", c.version.AcceptMediaType(), filters)
}

// DeleteObject implements taxii2.Collection.
func (c *Collection) DeleteObject(ctx context.Context, objectID string, filters taxii2.Filters) (json.RawMessage, error) {
	if err := c.requireVersion21("delete object"); err != nil {
		return nil, err
	}

	if err := c.verifyCanWrite(ctx); err != nil {
		return nil, err
	}

	params, err := filters.ToValues(c.version)
	if err != nil {
		return nil, err
	}

	resp, err := c.conn.Delete(ctx, c.ObjectsURL()+objectID+"/", accept(c.version.AcceptMediaType(), params))
	if err != nil {
		return nil, fmt.Errorf("deleting object: %w", err)
	}

	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil, nil
	}

	return resp.JSON()
}

// ObjectVersions implements taxii2.Collection.
func (c *Collection) ObjectVersions(ctx context.Context, objectID string, filters taxii2.Filters) (json.RawMessage, error) {
	if err := c.requireVersion21("object versions"); err != nil {
		return nil, err
	}

	if err := c.verifyCanRead(ctx); err != nil {
		return nil, err
	}

	return c.getJSON(ctx, c.ObjectsURL()+objectID+"/versions/", c.version.AcceptMediaType(), filters)
}

// AddObjects implements taxii2.Collection.
func (c *Collection) AddObjects(ctx context.Context, body interface{}, opts ...taxii2.AddOption) (taxii2.Status, error) {
	options := taxii2.DefaultAddOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if err := c.verifyCanWrite(ctx); err != nil {
		return nil, err
	}

	data, err := encodeObjects(body)
	if err != nil {
		return nil, err
	}

	resp, err := c.conn.Post(ctx, c.ObjectsURL(), &taxii2.RequestOptions{
		Headers: map[string]string{
			"Accept":       c.version.AcceptMediaType(),
			"Content-Type": c.version.AddObjectsContentType(),
		},
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("adding objects: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return nil, err
	}

	var ref struct {
		ID string `json:"id"`
	}

	if err := decodeInto(raw, &ref, resp.URL); err != nil {
		return nil, err
	}

	statusURL, err := resolveURL(c.url, "../../status/"+ref.ID)
	if err != nil {
		return nil, err
	}

	status, err := newStatusFromInfo(c.child(statusURL), raw)
	if err != nil {
		return nil, err
	}

	if !options.WaitForCompletion || status.Complete() {
		return status, nil
	}

	return status, status.WaitUntilFinal(ctx, options.PollInterval, options.Timeout)
}

// ObjectPages implements taxii2.Collection.
func (c *Collection) ObjectPages(ctx context.Context, perRequest int, filters taxii2.Filters) taxii2.Pages {
	if c.version == taxii2.Version20 {
		return AsPages(ctx, c.rangeFetcher(c.ObjectsURL(), c.version.ObjectsMediaType()), 0, perRequest, filters, c.logger)
	}

	return AsEnvelopePages(ctx, c.GetObjects, perRequest, filters)
}

// ManifestPages implements taxii2.Collection.
func (c *Collection) ManifestPages(ctx context.Context, perRequest int, filters taxii2.Filters) taxii2.Pages {
	if c.version == taxii2.Version20 {
		return AsPages(ctx, c.rangeFetcher(c.url+"manifest/", c.version.AcceptMediaType()), 0, perRequest, filters, c.logger)
	}

	return AsEnvelopePages(ctx, c.GetManifest, perRequest, filters)
}

// ObjectsRange implements taxii2.Collection.
func (c *Collection) ObjectsRange(ctx context.Context, start, perRequest int, filters taxii2.Filters) (*taxii2.Response, error) {
	if c.version != taxii2.Version20 {
		return nil, fmt.Errorf("%w: range requests require TAXII %s", taxii2.ErrUnsupportedVersion, taxii2.Version20)
	}

	return c.rangeFetcher(c.ObjectsURL(), c.version.ObjectsMediaType())(ctx, start, perRequest, filters)
}

func (c *Collection) rangeFetcher(target, mediaType string) taxii2.RangeFunc {
	return func(ctx context.Context, start, perRequest int, filters taxii2.Filters) (*taxii2.Response, error) {
		if err := c.verifyCanRead(ctx); err != nil {
			return nil, err
		}

		params, err := filters.ToValues(c.version)
		if err != nil {
			return nil, err
		}

		opts := accept(mediaType, params)
		if perRequest > 0 {
			opts.Headers["Range"] = "items " + strconv.Itoa(start) + "-" + strconv.Itoa(start+perRequest-1)
		}

		resp, err := c.conn.Get(ctx, target, opts)
		if err != nil {
			return nil, fmt.Errorf("getting page: %w", err)
		}

		return resp, nil
	}
}

func (c *Collection) getJSON(ctx context.Context, target, mediaType string, filters taxii2.Filters) (json.RawMessage, error) {
	params, err := filters.ToValues(c.version)
	if err != nil {
		return nil, err
	}

	resp, err := c.conn.Get(ctx, target, accept(mediaType, params))
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", target, err)
	}

	return resp.JSON()
}

func (c *Collection) verifyCanRead(ctx context.Context) error {
	info, err := c.Info(ctx)
	if err != nil {
		return err
	}

	if !info.CanRead {
		return taxii2.NewError(taxii2.ErrAccess, "Collection '%s' does not allow reading.", c.url)
	}

	return nil
}

func (c *Collection) verifyCanWrite(ctx context.Context) error {
	info, err := c.Info(ctx)
	if err != nil {
		return err
	}

	if !info.CanWrite {
		return taxii2.NewError(taxii2.ErrAccess, "Collection '%s' does not allow writing.", c.url)
	}

	return nil
}

func (c *Collection) requireVersion21(operation string) error {
	if c.version != taxii2.Version21 {
		return fmt.Errorf("%w: %s requires TAXII %s", taxii2.ErrUnsupportedVersion, operation, taxii2.Version21)
	}

	return nil
}

func (c *Collection) refresh(ctx context.Context) error {
	resp, err := c.conn.Get(ctx, c.url, accept(c.version.AcceptMediaType(), nil))
	if err != nil {
		return fmt.Errorf("getting collection: %w", err)
	}

	raw, err := resp.JSON()
	if err != nil {
		return err
	}

	return c.populate(raw)
}

// populate validates raw and commits it. The previous state is kept on failure.
func (c *Collection) populate(raw json.RawMessage) error {
	doc, err := decodeDocument(raw, c.url)
	if err != nil {
		return err
	}

	var info taxii2.CollectionInfo
	if err := decodeInto(raw, &info, c.url); err != nil {
		return err
	}

	switch {
	case info.ID == "":
		return missingField("id", "Collection", c.url)
	case info.Title == "":
		return missingField("title", "Collection", c.url)
	case !doc.has("can_read"):
		return missingField("can_read", "Collection", c.url)
	case !doc.has("can_write"):
		return missingField("can_write", "Collection", c.url)
	case !strings.Contains(c.url, info.ID):
		return taxii2.NewError(taxii2.ErrValidation,
			"The collection '%s' does not match the url for queries '%s'", info.ID, c.url)
	}

	c.info = &info
	c.raw = raw
	c.state = loaded

	return nil
}

// encodeObjects serializes an add-objects body.
func encodeObjects(body interface{}) ([]byte, error) {
	switch typed := body.(type) {
	case nil:
		return nil, taxii2.NewError(taxii2.ErrUnsupportedType, "Don't know how to handle type '%T'", body)
	case string:
		return []byte(typed), nil
	case []byte:
		return typed, nil
	case json.RawMessage:
		return typed, nil
	}

	value := reflect.ValueOf(body)
	for value.Kind() == reflect.Pointer && !value.IsNil() {
		value = value.Elem()
	}

	if value.Kind() != reflect.Map && value.Kind() != reflect.Struct {
		return nil, taxii2.NewError(taxii2.ErrUnsupportedType, "Don't know how to handle type '%T'", body)
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(body); err != nil {
		return nil, fmt.Errorf("marshaling objects: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
