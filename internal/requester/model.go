package requester

import (
	"io"
	"net/http"
)

// Request describes one outbound call
type Request struct {
	Method  string
	URL     string
	Body    io.Reader
	Headers map[string]string
	Auth    AuthManager
}

// Response represents an HTTP response with the body fully read
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
