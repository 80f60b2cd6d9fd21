package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Validation reasons reported for provider configurations.
const (
	ReasonMissingProviderID = "missing provider id"
	ReasonEmptyProviderName = "empty provider name"
	ReasonEmptyProviderType = "empty provider type"
	ReasonMalformedMetadata = "malformed provider metadata"
)

// Provider is a provider configuration managed through the admin API.
// Empty fields are left out of writes, so an update only changes what it
// sets.
type Provider struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	ProviderType string `json:"providerType,omitempty"`
	BaseURL      string `json:"baseUrl,omitempty"`
	AccessKey    string `json:"accessKey,omitempty"`
	SecretKey    string `json:"secretKey,omitempty"`
	Metadata     string `json:"metadata,omitempty"` // JSON object as a string
	IsActive     *bool  `json:"isActive,omitempty"`
}

// Active reports whether the provider is enabled. Missing means active.
func (p Provider) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// Hint returns the identifier used to select this provider in a request.
func (p Provider) Hint() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.ToLower(p.ProviderType)
}

// Statistics is the per-provider usage summary.
type Statistics struct {
	ProviderName  string  `json:"providerName"`
	TotalRequests int64   `json:"totalRequests"`
	SuccessCount  int64   `json:"successCount"`
	FailureCount  int64   `json:"failureCount"`
	SuccessRate   float64 `json:"successRate"`
	AvgLatencyMs  float64 `json:"avgLatencyMs"`
}

// Providers lists provider configurations in gateway order.
func (c *Client) Providers(ctx context.Context) ([]Provider, error) {
	var providers []Provider
	if err := c.adminJSON(ctx, http.MethodGet, "providers", nil, &providers); err != nil {
		return nil, err
	}
	return providers, nil
}

// Provider fetches one provider configuration.
func (c *Client) Provider(ctx context.Context, id string) (Provider, error) {
	var p Provider
	if err := c.providerCall(ctx, http.MethodGet, id, nil, &p); err != nil {
		return Provider{}, err
	}
	return p, nil
}

// CreateProvider adds a provider configuration and returns it as stored,
// with the ID the gateway assigned.
func (c *Client) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	p.ID = ""
	if err := p.validate(); err != nil {
		return Provider{}, err
	}
	var created Provider
	if err := c.adminJSON(ctx, http.MethodPost, "providers", p, &created); err != nil {
		return Provider{}, err
	}
	return created, nil
}

// UpdateProvider changes the provider with the given id. The gateway
// requires name and type on every write, so missing ones are taken from
// the stored configuration.
func (c *Client) UpdateProvider(ctx context.Context, id string, p Provider) (Provider, error) {
	if p.Name == "" || p.ProviderType == "" {
		current, err := c.Provider(ctx, id)
		if err != nil {
			return Provider{}, err
		}
		if p.Name == "" {
			p.Name = current.Name
		}
		if p.ProviderType == "" {
			p.ProviderType = current.ProviderType
		}
	}
	p.ID = ""
	if err := p.validate(); err != nil {
		return Provider{}, err
	}
	var updated Provider
	if err := c.providerCall(ctx, http.MethodPut, id, p, &updated); err != nil {
		return Provider{}, err
	}
	return updated, nil
}

// DeleteProvider removes a provider configuration.
func (c *Client) DeleteProvider(ctx context.Context, id string) error {
	return c.providerCall(ctx, http.MethodDelete, id, nil, nil)
}

func (c *Client) providerCall(ctx context.Context, method, id string, body, v any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Reason: ReasonMissingProviderID}
	}
	return c.adminJSON(ctx, method, "providers/"+url.PathEscape(id), body, v)
}

func (p Provider) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Reason: ReasonEmptyProviderName}
	}
	if strings.TrimSpace(p.ProviderType) == "" {
		return &ValidationError{Reason: ReasonEmptyProviderType}
	}
	if p.Metadata != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(p.Metadata), &m); err != nil {
			return &ValidationError{Reason: ReasonMalformedMetadata, Cause: err}
		}
	}
	return nil
}

// ProviderHints returns the distinct hints of providers, keeping order.
func ProviderHints(providers []Provider) []string {
	seen := make(map[string]bool, len(providers))
	hints := make([]string, 0, len(providers))
	for _, p := range providers {
		h := p.Hint()
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		hints = append(hints, h)
	}
	return hints
}

// Statistics fetches usage statistics for every provider.
func (c *Client) Statistics(ctx context.Context) ([]Statistics, error) {
	var stats []Statistics
	if err := c.adminJSON(ctx, http.MethodGet, "statistics", nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// adminJSON performs an admin call, sending body as JSON when it is not
// nil and decoding the answer into v when v is not nil. Failures are
// returned as Failure values.
func (c *Client) adminJSON(ctx context.Context, method, resource string, body, v any) error {
	var payload io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("unable to encode %s: %w", resource, err)
		}
		payload = bytes.NewReader(b)
	}

	endpoint := c.url(strings.TrimRight(c.cfg.AdminPath, "/") + "/" + resource)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.do(req)
	if err != nil {
		return failureFrom(RawFailure{Err: err})
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw := RawFailure{
			Status:     resp.StatusCode,
			StatusText: reasonPhrase(resp),
		}
		var structured any
		if err := json.NewDecoder(resp.Body).Decode(&structured); err == nil {
			raw.Structured = structured
		}
		return failureFrom(raw)
	}

	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(v); err != nil {
		return fmt.Errorf("unable to decode %s: %w", resource, err)
	}
	return nil
}
