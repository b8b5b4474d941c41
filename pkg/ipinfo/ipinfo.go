// Package ipinfo looks up the public egress address of the local machine,
// used to show which side of the tunnel traffic currently leaves through.
package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Info is the subset of the lookup response the status view shows.
type Info struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
}

// Client queries an ipinfo.io compatible JSON endpoint.
type Client struct {
	url    string
	client *http.Client
}

// NewClient returns a client for the given lookup URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Lookup fetches the current egress IP and country. Failures are reported
// to the caller, who treats them as a degraded status view rather than an
// error.
func (c *Client) Lookup(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building egress lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("egress lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("egress lookup: unexpected status %d", resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding egress lookup response: %w", err)
	}
	return &info, nil
}
