package client

import (
	"net/url"

	"github.com/fivetwenty-io/taxii2-client/internal/auth"
	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/internal/http"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// createAuthenticator picks the authenticator from config. Config.Validate
// guarantees at most one mechanism is set.
func createAuthenticator(config *taxii2.Config) auth.Authenticator {
	switch {
	case config.Auth != nil:
		return config.Auth
	case config.Token != "":
		return auth.NewTokenAuth(config.Token)
	case config.Username != "" || config.Password != "":
		return auth.NewBasicAuth(config.Username, config.Password)
	default:
		return nil
	}
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *taxii2.Config) ([]http.Option, error) {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if authenticator := createAuthenticator(config); authenticator != nil {
		httpOpts = append(httpOpts, http.WithAuthenticator(authenticator))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithSkipTLSVerify(true))
	}

	if config.ProxyURL != "" {
		proxyURL, err := url.Parse(config.ProxyURL)
		if err != nil {
			return nil, taxii2.WrapError(taxii2.ErrInvalidArguments, err, "invalid proxy url '%s'", config.ProxyURL)
		}

		httpOpts = append(httpOpts, http.WithProxy(proxyURL))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.MetricsRegisterer != nil {
		httpOpts = append(httpOpts, http.WithMetrics(config.MetricsRegisterer))
	}

	return httpOpts, nil
}

// NewConnection creates a connection that can be shared between endpoints
// through Config.Connection.
func NewConnection(config *taxii2.Config) (*http.Client, error) {
	if config == nil {
		config = &taxii2.Config{}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpOpts, err := createHTTPClientOptions(config)
	if err != nil {
		return nil, err
	}

	return http.NewClient(config.Version.OrDefault(), httpOpts...), nil
}

// resolveConnection returns the connection an endpoint should use and
// whether the endpoint owns it.
func resolveConnection(config *taxii2.Config) (taxii2.Connection, bool, error) {
	if err := config.Validate(); err != nil {
		return nil, false, err
	}

	if config.Connection != nil {
		return config.Connection, false, nil
	}

	conn, err := NewConnection(config)
	if err != nil {
		return nil, false, err
	}

	return conn, true, nil
}
