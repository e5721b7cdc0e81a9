package taxii2

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/fivetwenty-io/taxii2-client/internal/constants"
)

// Endpoint is the identity shared by every TAXII resource.
type Endpoint interface {
	// URL returns the endpoint URL. It always ends with a slash.
	URL() string

	// Version returns the protocol version used by the endpoint.
	Version() Version

	// Close releases the underlying connection. Endpoints that share the
	// connection stop working as well.
	Close() error
}

// Server is the discovery resource of a TAXII server.
type Server interface {
	Endpoint

	// Info loads the discovery document on first use.
	Info(ctx context.Context) (*ServerInfo, error)

	// APIRoots returns the API roots listed in the discovery document.
	APIRoots(ctx context.Context) ([]APIRoot, error)

	// Default returns the default API root, or nil when there is none.
	Default(ctx context.Context) (APIRoot, error)

	// Refresh always re-fetches the discovery document and rebuilds the API roots.
	Refresh(ctx context.Context) error

	// Raw returns the last discovery payload, or nil before the first load.
	Raw() json.RawMessage
}

// APIRoot is a TAXII API root. Information and collections load independently.
type APIRoot interface {
	Endpoint

	// Info loads the API root information on first use.
	Info(ctx context.Context) (*APIRootInfo, error)

	// Collections loads the collection list on first use.
	Collections(ctx context.Context) ([]Collection, error)

	// Refresh re-fetches both information and collections.
	Refresh(ctx context.Context) error

	// RefreshInformation re-fetches the API root information.
	RefreshInformation(ctx context.Context) error

	// RefreshCollections re-fetches the collection list.
	RefreshCollections(ctx context.Context) error

	// GetStatus fetches a status resource of this API root.
	GetStatus(ctx context.Context, statusID string) (Status, error)

	// Raw returns the last information payload.
	Raw() json.RawMessage
}

// Collection is a TAXII collection.
type Collection interface {
	Endpoint

	// Info loads the collection information on first use.
	Info(ctx context.Context) (*CollectionInfo, error)

	// Refresh re-fetches the collection information.
	Refresh(ctx context.Context) error

	// ObjectsURL returns the URL of the objects endpoint.
	ObjectsURL() string

	GetObjects(ctx context.Context, filters Filters) (json.RawMessage, error)
	GetObject(ctx context.Context, objectID string, filters Filters) (json.RawMessage, error)
	GetManifest(ctx context.Context, filters Filters) (json.RawMessage, error)

	// AddObjects posts a bundle or envelope and, unless disabled, polls the
	// returned status until it completes or the timeout expires.
	AddObjects(ctx context.Context, body interface{}, opts ...AddOption) (Status, error)

	// DeleteObject deletes an object. TAXII 2.1 only.
	DeleteObject(ctx context.Context, objectID string, filters Filters) (json.RawMessage, error)

	// ObjectVersions lists the versions of an object. TAXII 2.1 only.
	ObjectVersions(ctx context.Context, objectID string, filters Filters) (json.RawMessage, error)

	// ObjectsRange fetches one Range of the objects endpoint. TAXII 2.0 only.
	ObjectsRange(ctx context.Context, start, perRequest int, filters Filters) (*Response, error)

	// ObjectPages iterates the objects endpoint page by page.
	ObjectPages(ctx context.Context, perRequest int, filters Filters) Pages

	// ManifestPages iterates the manifest endpoint page by page.
	ManifestPages(ctx context.Context, perRequest int, filters Filters) Pages

	// Raw returns the last information payload.
	Raw() json.RawMessage
}

// Status tracks an asynchronous add-objects request. It is always loaded.
type Status interface {
	Endpoint

	// Info returns the current snapshot.
	Info() *StatusInfo

	// Complete reports whether the status is "complete".
	Complete() bool

	// Refresh re-fetches the status resource.
	Refresh(ctx context.Context) error

	// WaitUntilFinal polls until the status completes. A non-positive
	// timeout waits forever.
	WaitUntilFinal(ctx context.Context, pollInterval, timeout time.Duration) error

	// Raw returns the last status payload.
	Raw() json.RawMessage
}

// RangeFunc fetches one item range of a TAXII 2.0 list endpoint.
type RangeFunc func(ctx context.Context, start, perRequest int, filters Filters) (*Response, error)

// EnvelopeFunc fetches one envelope of a TAXII 2.1 list endpoint.
type EnvelopeFunc func(ctx context.Context, filters Filters) (json.RawMessage, error)

// Pages is a lazy, non-restartable sequence of response pages.
type Pages = iter.Seq2[json.RawMessage, error]

// AddOptions control AddObjects.
type AddOptions struct {
	WaitForCompletion bool
	PollInterval      time.Duration
	Timeout           time.Duration
}

// AddOption configures AddObjects.
type AddOption func(*AddOptions)

// DefaultAddOptions waits up to a minute, polling every second.
func DefaultAddOptions() AddOptions {
	return AddOptions{
		WaitForCompletion: true,
		PollInterval:      constants.DefaultPollInterval,
		Timeout:           constants.DefaultStatusTimeout,
	}
}

// WithWaitForCompletion toggles status polling after the POST.
func WithWaitForCompletion(wait bool) AddOption {
	return func(o *AddOptions) {
		o.WaitForCompletion = wait
	}
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(interval time.Duration) AddOption {
	return func(o *AddOptions) {
		o.PollInterval = interval
	}
}

// WithTimeout bounds the total polling time. Non-positive waits forever.
func WithTimeout(timeout time.Duration) AddOption {
	return func(o *AddOptions) {
		o.Timeout = timeout
	}
}
