// Package policy decides whether a set of product entitlements unlocks the frontend.
package policy

import (
	"strings"

	"github.com/brizzai/entitlement-gate/internal/auth/models"
)

// Decision is the result of applying the policy.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Paid products that grant access. Not configurable: changing it is a release.
var defaultProducts = []string{
	"prod_dvtFTdpa6eFyW", // List Stacker Tool
	"prod_k5BtByWdb76vr", // Floor 2 – Practitioner
	"prod_ugQchm3TZ61LD", // Floor 3 – Builder Circle
}

// AllowedProductSet is an immutable set of product identifiers.
type AllowedProductSet struct {
	ids map[string]struct{}
}

// NewAllowedProductSet copies ids into a new set. Blank identifiers are ignored.
func NewAllowedProductSet(ids ...string) *AllowedProductSet {
	set := &AllowedProductSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set.ids[id] = struct{}{}
		}
	}
	return set
}

// DefaultProducts returns the compiled-in set of paid products.
func DefaultProducts() *AllowedProductSet {
	return NewAllowedProductSet(defaultProducts...)
}

// Contains reports whether id is in the set.
func (s *AllowedProductSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of products in the set.
func (s *AllowedProductSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns a copy of the identifiers, in no particular order.
func (s *AllowedProductSet) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Decide returns Allowed iff at least one of productIDs is in the set.
// Empty or unrecognised input is Denied, never an error.
func (s *AllowedProductSet) Decide(productIDs []string) Decision {
	for _, id := range productIDs {
		if s.Contains(id) {
			return Allowed
		}
	}
	return Denied
}

// DecideRecords applies Decide to the product identifiers of records.
func (s *AllowedProductSet) DecideRecords(records []models.EntitlementRecord) Decision {
	return s.Decide(models.ProductIDs(records))
}
