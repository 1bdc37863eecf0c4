// Package session issues and checks the marker cookie that proves a prior successful entitlement check.
package session

import (
	"net/http"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth/constants"
	"github.com/brizzai/entitlement-gate/internal/config"
)

// CookieOptions defines how the marker cookie is issued.
type CookieOptions struct {
	Name   string
	Domain string
	MaxAge time.Duration
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Name == "" {
		o.Name = "fmw_access"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = constants.SessionMaxAge
	}
	return o
}

// Gate is the only place the marker cookie is written or read.
// The frontend lives on another site, so the cookie is SameSite=None and always Secure.
type Gate struct {
	opts CookieOptions
	now  func() time.Time
}

func NewGate(opts CookieOptions) *Gate {
	return &Gate{opts: opts.normalize(), now: time.Now}
}

// NewGateFromConfig builds a Gate from the session section of the config.
func NewGateFromConfig(cfg *config.SessionConfig) *Gate {
	return NewGate(CookieOptions{Name: cfg.CookieName, Domain: cfg.CookieDomain})
}

// CookieName returns the name of the marker cookie.
func (g *Gate) CookieName() string {
	return g.opts.Name
}

// Issue sets the marker cookie on w.
func (g *Gate) Issue(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.Name,
		Value:    constants.SessionMarkerValue,
		Path:     "/",
		Domain:   g.opts.Domain,
		Expires:  g.now().Add(g.opts.MaxAge),
		MaxAge:   int(g.opts.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// Check reports whether r carries the marker cookie with the sentinel value.
// The browser drops the cookie once it expires, so presence is enough.
func (g *Gate) Check(r *http.Request) bool {
	c, err := r.Cookie(g.opts.Name)
	if err != nil {
		return false
	}
	return c.Value == constants.SessionMarkerValue
}

// Clear expires the marker cookie.
func (g *Gate) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.opts.Name,
		Value:    "",
		Path:     "/",
		Domain:   g.opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
