package models

// UserProfile is the identity record returned by the provider's profile endpoint.
type UserProfile struct {
	ID       string
	Username string
	Email    string
}

// EntitlementRecord ties the user to one product. ProductID is empty when the
// provider returned a record without a product.
type EntitlementRecord struct {
	ID        string
	ProductID string
}

// ProductIDs returns the non-empty product identifiers of records, in order.
func ProductIDs(records []EntitlementRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if r.ProductID != "" {
			ids = append(ids, r.ProductID)
		}
	}
	return ids
}
