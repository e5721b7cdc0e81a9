package constants

import "time"

// Release is reported in the default User-Agent.
const Release = "2.3.0"

// ConfigDirPerm is the permission for the CLI configuration directory.
const ConfigDirPerm = 0750

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits. Transport retries are disabled unless configured.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Status polling.
const (
	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = 1 * time.Second

	// DefaultStatusTimeout bounds how long AddObjects waits for completion.
	DefaultStatusTimeout = 60 * time.Second
)

// Pagination.
const (
	// DefaultPerRequest is the page size used when none is given.
	DefaultPerRequest = 100
)

// HTTP status codes commonly used.
const (
	// HTTPStatusOK represents a successful HTTP response.
	HTTPStatusOK = 200

	// HTTPStatusMultipleChoices is the first non-success status.
	HTTPStatusMultipleChoices = 300

	// HTTPStatusTooManyRequests is retried when retries are enabled.
	HTTPStatusTooManyRequests = 429

	// HTTPStatusInternalServerError represents server errors.
	HTTPStatusInternalServerError = 500
)

// Metrics naming.
const (
	// MetricsNamespace prefixes every metric.
	MetricsNamespace = "taxii2"

	// MetricsSubsystem groups client metrics.
	MetricsSubsystem = "client"
)
