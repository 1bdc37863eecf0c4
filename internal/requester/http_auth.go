package requester

import (
	"errors"
	"net/http"
)

// ErrMissingToken is returned when bearer auth is applied without a token.
var ErrMissingToken = errors.New("bearer token is empty")

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(req *http.Request) error
}

// BearerAuth sets an Authorization: Bearer header. The token is never logged.
type BearerAuth struct {
	Token string
}

// ApplyAuth adds the bearer token to the request
func (a BearerAuth) ApplyAuth(req *http.Request) error {
	if a.Token == "" {
		return ErrMissingToken
	}
	req.Header.Set("Authorization", "Bearer "+a.Token)
	return nil
}
