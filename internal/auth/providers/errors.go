package providers

import (
	"errors"
	"fmt"
)

var (
	ErrTokenExchange    = errors.New("token exchange failed")
	ErrProfileFetch     = errors.New("profile fetch failed")
	ErrEntitlementFetch = errors.New("entitlement fetch failed")
)

// Reason says why a provider call failed. It is safe to log.
type Reason string

const (
	ReasonTransport     Reason = "transport"
	ReasonStatus        Reason = "status"
	ReasonEmptyBody     Reason = "empty_body"
	ReasonMalformedBody Reason = "malformed_body"
	ReasonMissingField  Reason = "missing_field"
	ReasonNotAList      Reason = "not_a_list"
)

// FetchError is returned by every provider call. Kind is one of the Err* sentinels.
type FetchError struct {
	Kind   error
	Reason Reason
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fetchErr(kind error, reason Reason, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Reason: reason, Status: status, Err: err}
}
