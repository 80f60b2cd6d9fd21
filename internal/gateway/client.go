package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzhttp"
)

// defaultMIMEType is assumed for successful bodies without a Content-Type.
const defaultMIMEType = "audio/mpeg"

// Config contains the gateway endpoints and timeouts.
type Config struct {
	BaseURL    string        // e.g. http://localhost:8080
	SpeechPath string        // speech endpoint path
	AdminPath  string        // prefix of the admin REST API
	Timeout    time.Duration // per-call timeout, 0 disables
}

// DefaultConfig returns the configuration of a locally running gateway.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		SpeechPath: "/v1/audio/speech",
		AdminPath:  "/admin",
		Timeout:    60 * time.Second,
	}
}

// Authorizer attaches the session credential to outgoing requests and is
// told when the gateway rejects it.
type Authorizer interface {
	Authorize(req *http.Request)
	Expire()
}

// Client performs calls against the gateway.
type Client struct {
	cfg  Config
	http *http.Client
	auth Authorizer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a gateway client. auth may be nil for anonymous calls.
func NewClient(cfg Config, auth Authorizer, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}

	c := &Client{
		cfg:  cfg,
		auth: auth,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SpeechEndpoint returns the method and URL of the synthesis call.
func (c *Client) SpeechEndpoint() (method, url string) {
	return http.MethodPost, c.url(c.cfg.SpeechPath)
}

// Synthesize issues one synthesis call. It never returns an error: every
// failure, including transport errors, comes back as a Failure.
func (c *Client) Synthesize(ctx context.Context, req SpeechRequest) Outcome {
	payload, err := json.Marshal(req.Body())
	if err != nil {
		return failureFrom(RawFailure{Err: fmt.Errorf("unable to encode request: %w", err)})
	}

	method, url := c.SpeechEndpoint()
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return failureFrom(RawFailure{Err: fmt.Errorf("unable to create request: %w", err)})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/*")

	resp, err := c.do(httpReq)
	if err != nil {
		return failureFrom(RawFailure{Err: err})
	}
	defer resp.Body.Close() //nolint:errcheck

	// The body is read as audio regardless of status.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureFrom(RawFailure{
			Status:     resp.StatusCode,
			StatusText: reasonPhrase(resp),
			Err:        fmt.Errorf("unable to read response: %w", err),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failureFrom(RawFailure{
			Status:      resp.StatusCode,
			StatusText:  reasonPhrase(resp),
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		})
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	return Success{Audio: data, MIMEType: mimeType}
}

// do sends req with the session credential and expires the session on 401.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.auth != nil {
		c.auth.Authorize(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.auth != nil {
		log.Warn("gateway rejected credential", "url", req.URL.String())
		c.auth.Expire()
	}
	return resp, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// reasonPhrase returns the reason phrase the server sent, or the standard
// one for the status code.
func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		phrase = http.StatusText(resp.StatusCode)
	}
	return phrase
}
