package taxii2

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
)

// Authenticator decorates outgoing requests with credentials.
type Authenticator interface {
	// Authorization returns the value of the Authorization header.
	Authorization() (string, error)
}

// Config holds configuration for TAXII endpoints.
type Config struct {
	// Version selects the protocol grammar: content negotiation, filters
	// and pagination. Defaults to Version21.
	Version Version `env:"VERSION" envDefault:"2.1"`

	// Username for HTTP Basic authentication.
	Username string `env:"USERNAME"`

	// Password for HTTP Basic authentication.
	Password string `env:"PASSWORD"`

	// Token sends "Authorization: Token <key>".
	Token string `env:"TOKEN"`

	// Auth is a pre-built authenticator. Mutually exclusive with Username,
	// Password and Token.
	Auth Authenticator

	// Connection is an existing connection to share. Mutually exclusive
	// with every credential field.
	Connection Connection

	// UserAgent overrides the default User-Agent header.
	UserAgent string `env:"USER_AGENT"`

	// HTTPTimeout is the timeout for each HTTP request.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// SkipTLSVerify disables certificate verification.
	SkipTLSVerify bool `env:"SKIP_TLS_VERIFY"`

	// ProxyURL routes requests through an HTTP proxy.
	ProxyURL string `env:"PROXY_URL"`

	// RetryMax enables transport level retries of 5xx and 429 responses.
	// Zero disables them.
	RetryMax int `env:"RETRY_MAX"`

	// RetryWaitMin is the minimum wait between retries.
	RetryWaitMin time.Duration `env:"RETRY_WAIT_MIN"`

	// RetryWaitMax is the maximum wait between retries.
	RetryWaitMax time.Duration `env:"RETRY_WAIT_MAX"`

	// Debug logs every request and response.
	Debug bool `env:"DEBUG"`

	// Logger receives log output. Nil discards it.
	Logger Logger

	// MetricsRegisterer enables request metrics when set.
	MetricsRegisterer prometheus.Registerer
}

// ConfigFromEnv reads a Config from TAXII2_* environment variables.
func ConfigFromEnv() (*Config, error) {
	var config Config

	err := env.ParseWithOptions(&config, env.Options{
		Prefix: "TAXII2_",
	})
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if _, err := ParseVersion(string(config.Version)); err != nil {
		return nil, err
	}

	return &config, nil
}

// HasCredentials reports whether any credential field is set.
func (c *Config) HasCredentials() bool {
	return c.Username != "" || c.Password != "" || c.Token != "" || c.Auth != nil
}

// Validate checks that at most one connection or authentication mechanism
// is configured.
func (c *Config) Validate() error {
	if c.Connection != nil && c.HasCredentials() {
		return NewError(ErrInvalidArguments, "Only one of a connection, username/password, or auth object may be provided.")
	}

	if (c.Token != "" || c.Auth != nil) && (c.Username != "" || c.Password != "") {
		return NewError(ErrInvalidArguments, "Only one of a connection, username/password, or auth object may be provided.")
	}

	if c.Token != "" && c.Auth != nil {
		return NewError(ErrInvalidArguments, "Only one of a connection, username/password, or auth object may be provided.")
	}

	if _, err := ParseVersion(string(c.Version)); err != nil {
		return err
	}

	return nil
}

// LoggerOrNop returns the configured logger or a NopLogger.
func (c *Config) LoggerOrNop() Logger {
	if c == nil || c.Logger == nil {
		return NopLogger{}
	}

	return c.Logger
}
