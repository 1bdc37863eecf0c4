package constants

import "time"

const (
	// CodeQueryParam carries the authorization code on the callback
	CodeQueryParam = "code"

	// ErrorQueryParam is set by the provider when the user refuses consent
	ErrorQueryParam = "error"

	// SessionMarkerValue is the single sentinel a valid session cookie holds
	SessionMarkerValue = "granted"

	// SessionMaxAge is the lifetime of the session cookie
	SessionMaxAge = 30 * 24 * time.Hour
)

// Frontend destinations, relative to the frontend base URL.
const (
	SuccessPath = "/index.html"
	LoginPath   = "/login.html"
)

// Values of the login page "error" query parameter
const (
	LoginErrorDenied   = "denied"
	LoginErrorNoAccess = "no_access"
	LoginErrorServer   = "server"
)

// Parameters of the deferred finalize redirect
const (
	SessionQueryParam   = "session"
	SessionQuerySuccess = "success"
	TicketQueryParam    = "ticket"
)

// DefaultScopes requested from the provider
var DefaultScopes = []string{"read_user"}
