package apiclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	maxResponseSize        = 10 * 1024 * 1024 // 10MiB
	apiPrefix              = "/api/v1"
)

// Option configures the Client.
type Option func(*options)

type options struct {
	timeout       time.Duration
	httpClient    *http.Client
	bypassHeaders map[string]string
	logger        zerolog.Logger
	defaultAuth   *Auth
}

func defaultOptions() *options {
	return &options{
		timeout: defaultTimeout,
		logger:  zerolog.Nop(),
	}
}

// WithTimeout sets the per-request timeout. Values <= 0 are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its CheckRedirect is
// overridden so redirects are never followed automatically.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithBypassHeaders adds static headers to every request, e.g. the tunnel
// provider's browser-warning bypass.
func WithBypassHeaders(h map[string]string) Option {
	return func(o *options) {
		if len(h) == 0 {
			return
		}
		if o.bypassHeaders == nil {
			o.bypassHeaders = make(map[string]string, len(h))
		}
		for k, v := range h {
			o.bypassHeaders[k] = v
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDefaultAuth is used for requests whose context carries no Auth.
func WithDefaultAuth(a Auth) Option {
	return func(o *options) {
		o.defaultAuth = &a
	}
}
