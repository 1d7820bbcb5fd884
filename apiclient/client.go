// Package apiclient is the single gateway to the Vistara REST API. It attaches
// per-browser credentials, corrects the backend's trailing-slash redirects and
// normalises every failure into an *APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/jrsteele09/vistara-dashboard/internal/errors"
	"github.com/jrsteele09/vistara-dashboard/internal/utils"
)

// RequestIDHeader is stamped on every outgoing request.
const RequestIDHeader = "X-Request-Id"

// RequestOptions tunes a single request.
type RequestOptions struct {
	Query   url.Values
	Headers http.Header
	// Public requests carry no bearer token and never trigger the
	// unauthorized handler (login, invitation acceptance).
	Public bool
}

// Client performs envelope-aware requests against the upstream API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	opts       *options
	logger     zerolog.Logger
}

// New creates a client for the backend rooted at baseURL. Requests are sent
// to baseURL + /api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient.New] parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("[apiclient.New] base url %q must be http or https", baseURL)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout: o.timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				IdleConnTimeout: defaultIdleConnTimeout,
			},
		}
	} else {
		copied := *hc
		hc = &copied
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	// Cookies are applied from the per-browser jar in send.
	hc.Jar = nil

	return &Client{
		baseURL:    u.String() + apiPrefix,
		httpClient: hc,
		opts:       o,
		logger:     o.logger,
	}, nil
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.opts.timeout
}

// Path formats an API path, escaping every parameter.
func Path(format string, params ...string) string {
	escaped := make([]any, len(params))
	for i, p := range params {
		escaped[i] = url.PathEscape(p)
	}
	return fmt.Sprintf(format, escaped...)
}

type response struct {
	statusCode int
	header     http.Header
	body       []byte
	location   *url.URL
}

// Do sends a request and returns the decoded envelope. A failed envelope is
// returned alongside its *APIError.
func (c *Client) Do(ctx context.Context, method, path string, body any, ro *RequestOptions) (*Envelope, error) {
	if ro == nil {
		ro = &RequestOptions{}
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("[Client.Do] marshal request body: %w", err)
		}
	}

	target, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("[Client.Do] parse path %q: %w", path, err)
	}
	if len(ro.Query) > 0 {
		target.RawQuery = ro.Query.Encode()
	}

	auth := c.authFor(ctx)
	if ro.Public {
		auth.Tokens = nil
		auth.OnUnauthorized = nil
	}

	requestID := uuid.NewString()
	resp, err := c.send(ctx, auth, method, target, payload, ro, requestID)
	if err != nil {
		return nil, err
	}

	if resp.statusCode == http.StatusTemporaryRedirect {
		if resp.location == nil {
			return nil, &APIError{Kind: KindTransport, StatusCode: resp.statusCode, RequestID: requestID, Message: "redirect without location", Err: apperrors.ErrRedirectLoop}
		}
		c.logger.Debug().Str("from", target.String()).Str("to", resp.location.String()).Msg("correcting redirect")
		resp, err = c.send(ctx, auth, method, resp.location, payload, ro, requestID)
		if err != nil {
			return nil, err
		}
		if resp.statusCode == http.StatusTemporaryRedirect {
			return nil, &APIError{Kind: KindTransport, StatusCode: resp.statusCode, RequestID: requestID, Message: "redirect was not corrected", Err: apperrors.ErrRedirectLoop}
		}
	}

	if resp.statusCode < 200 || resp.statusCode > 299 {
		apiErr := newAPIErrorFromResponse(resp.statusCode, resp.body, utils.FirstNonEmpty(resp.header.Get(RequestIDHeader), requestID))
		if apiErr.Kind == KindUnauthorized && auth.OnUnauthorized != nil {
			auth.OnUnauthorized(ctx)
		}
		return nil, apiErr
	}

	env, err := decodeEnvelope(resp.body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, StatusCode: resp.statusCode, RequestID: requestID, Message: "malformed response body", Err: err}
	}
	env.StatusCode = resp.statusCode
	if env.RequestID == "" {
		env.RequestID = utils.FirstNonEmpty(resp.header.Get(RequestIDHeader), requestID)
	}
	if err := env.Err(); err != nil {
		return env, err
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, auth Auth, method string, target *url.URL, payload []byte, ro *RequestOptions, requestID string) (*response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("[Client.send] create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.opts.bypassHeaders {
		req.Header.Set(k, v)
	}
	for k, vs := range ro.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if auth.Tokens != nil {
		tok, err := auth.Tokens.Token()
		if err != nil {
			return nil, &APIError{Kind: KindUnauthorized, RequestID: requestID, Message: "no valid session token", Err: err}
		}
		tok.SetAuthHeader(req)
	}
	if auth.Jar != nil {
		for _, ck := range auth.Jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("url", target.String()).Msg("request failed")
		return nil, &APIError{Kind: KindTransport, RequestID: requestID, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if auth.Jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			auth.Jar.SetCookies(req.URL, cookies)
		}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &APIError{Kind: KindTransport, StatusCode: resp.StatusCode, RequestID: requestID, Message: "failed to read response", Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", target.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("upstream request")

	out := &response{statusCode: resp.StatusCode, header: resp.Header, body: respBody}
	if loc, err := resp.Location(); err == nil {
		out.location = loc
	}
	return out, nil
}

// Call sends a request and unwraps the payload into T.
func Call[T any](ctx context.Context, c *Client, method, path string, body any, ro *RequestOptions) (T, error) {
	var out T
	env, err := c.Do(ctx, method, path, body, ro)
	if err != nil {
		return out, err
	}
	if err := env.Decode(&out); err != nil {
		return out, &APIError{Kind: KindTransport, StatusCode: env.StatusCode, RequestID: env.RequestID, Message: "unexpected payload", Err: err}
	}
	return out, nil
}

// CallRequired is Call for reads whose payload is mandatory. A success
// envelope without data fails with ErrEmptyPayload instead of yielding a zero
// value.
func CallRequired[T any](ctx context.Context, c *Client, method, path string, body any, ro *RequestOptions) (T, error) {
	var out T
	env, err := c.Do(ctx, method, path, body, ro)
	if err != nil {
		return out, err
	}
	if !env.HasData() {
		return out, &APIError{Kind: KindEnvelope, StatusCode: env.StatusCode, RequestID: env.RequestID, Message: "The server returned no data", Err: apperrors.ErrEmptyPayload}
	}
	if err := env.Decode(&out); err != nil {
		return out, &APIError{Kind: KindTransport, StatusCode: env.StatusCode, RequestID: env.RequestID, Message: "unexpected payload", Err: err}
	}
	return out, nil
}

// Ping checks the backend health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, http.MethodGet, "/health", nil, &RequestOptions{Public: true})
	return err
}
