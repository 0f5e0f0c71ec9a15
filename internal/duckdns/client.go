package duckdns

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the production DuckDNS endpoint.
const DefaultBaseURL = "https://www.duckdns.org"

// Client reports the caller's current address to the DuckDNS update endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a client for the given base URL ("" selects DefaultBaseURL).
// The underlying http.Client carries no request timeout: an in-flight update
// runs to completion and a Stop only takes effect at the next loop boundary.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Send performs exactly one update request for the (subdomain, token) pair.
// The ip parameter is left empty so DuckDNS derives the caller's address from
// the connection itself. Subdomain and token are interpolated without
// URL-encoding, matching the provider's documented usage. The response body is
// returned verbatim; DuckDNS signals failure in the body ("KO"), not in the
// status code, so the status code is deliberately not interpreted.
func (c *Client) Send(subdomain, token string) (string, error) {
	url := fmt.Sprintf("%s/update?domains=%s&token=%s&ip=", c.baseURL, subdomain, token)

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
