package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/communitybridge/pkg/httputil"
)

// errNotFound is returned when the API has no result for a lookup
var errNotFound = errors.New("not found")

// client talks to the CommunityBridge HTTP API
type client struct {
	base string
	http *http.Client
}

func newClient(server string) *client {
	return &client{
		base: strings.TrimRight(server, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) get(path string, query url.Values, out interface{}) error {
	return c.do(http.MethodGet, path, query, out)
}

func (c *client) delete(path string, query url.Values) error {
	return c.do(http.MethodDelete, path, query, nil)
}

func (c *client) do(method, path string, query url.Values, out interface{}) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		var apiErr httputil.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("request failed with status %d", resp.StatusCode)
		}
		if apiErr.Kind != "" {
			return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Kind)
		}
		return errors.New(apiErr.Error)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
