// Package geoip resolves an IP address to a coarse location using the
// ip-api.com JSON endpoint.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// UnknownLocation is rendered whenever a lookup cannot be completed.
const UnknownLocation = "Unknown Location"

// Location is the subset of the ip-api.com response the service renders.
type Location struct {
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
	Query      string `json:"query"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// String formats the location as "city, region, country".
func (l *Location) String() string {
	if l == nil {
		return UnknownLocation
	}
	return fmt.Sprintf("%s, %s, %s", l.City, l.RegionName, l.Country)
}

// Client is a client for the geolocation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new geolocation client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Lookup returns the location for ip. A "fail" status from the API is an error.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	url := fmt.Sprintf("%s/json/%s", c.baseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geoip API error: status %d", resp.StatusCode)
	}

	var loc Location
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response body: %w", err)
	}
	if loc.Status == "fail" {
		return nil, fmt.Errorf("geoip lookup failed: %s", loc.Message)
	}

	return &loc, nil
}

// Describe looks up ip and renders it, falling back to UnknownLocation.
func (c *Client) Describe(ctx context.Context, ip string) string {
	loc, err := c.Lookup(ctx, ip)
	if err != nil {
		return UnknownLocation
	}
	return loc.String()
}
