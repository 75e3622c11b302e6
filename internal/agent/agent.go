// Package agent reads status from the local device agent's HTTP API.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// ErrUnavailable is returned when the agent cannot be reached or reports that
// it is not ready.
var ErrUnavailable = errors.New("device agent unavailable")

// DeviceInfo is the part of the agent's /device reply this service reads.
// Raw holds the full reply for passthrough.
type DeviceInfo struct {
	DeviceWallet    string          `json:"deviceWallet"`
	DeviceInfoKey   string          `json:"deviceInfoKey"`
	Validator       string          `json:"validator"`
	Version         string          `json:"Version"`
	VersionRevision string          `json:"VersionRevision"`
	VersionDate     string          `json:"VersionDate"`
	Raw             json.RawMessage `json:"-"`
}

// Client talks to one device agent.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the agent at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Device returns the agent's own device info, or that of a proxied device
// when proxy names another host in the mesh.
func (c *Client) Device(ctx context.Context, proxy string) (*DeviceInfo, error) {
	query := url.Values{}
	if proxy != "" {
		query.Set("proxy", proxy)
	}
	body, err := c.get(ctx, "/device", query)
	if err != nil {
		return nil, err
	}

	info := &DeviceInfo{Raw: body}
	if err := json.Unmarshal(body, info); err != nil {
		return nil, fmt.Errorf("decoding device info: %w", err)
	}
	return info, nil
}

// WireGuard returns the agent's wireguard state as reported.
func (c *Client) WireGuard(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/wireguard", nil)
}

// Endpoints returns the deployment endpoints the agent proxies, keyed by
// "deployment:port".
func (c *Client) Endpoints(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, "/endpoints", nil)
	if err != nil {
		return nil, err
	}
	endpoints := map[string]string{}
	if err := json.Unmarshal(body, &endpoints); err != nil {
		return nil, fmt.Errorf("decoding endpoints: %w", err)
	}
	return endpoints, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("querying device agent", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnavailable, path, resp.Status)
	}
	// The agent reports failures in headers and still answers 200.
	for name, values := range resp.Header {
		if strings.HasSuffix(name, "Error") && len(values) > 0 {
			return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, name, values[0])
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty reply", ErrUnavailable, path)
	}
	return body, nil
}
