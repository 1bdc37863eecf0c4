package providers

import (
	"mime"
	"net/http"
)

// jsonTokenTransport labels token responses as JSON unless they are explicitly
// form encoded, so oauth2 parses a JSON body served as text/plain or without a
// Content-Type.
type jsonTokenTransport struct {
	base http.RoundTripper
}

func (t jsonTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" {
		resp.Header.Set("Content-Type", "application/json")
	}
	return resp, nil
}

// newTokenClient shares the requester's timeout and transport.
func newTokenClient(c *http.Client) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   c.Timeout,
		Transport: jsonTokenTransport{base: base},
	}
}
