package providers

import (
	"context"

	"github.com/brizzai/entitlement-gate/internal/auth/models"
)

// TokenExchanger turns an authorization code into an access token
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// ProfileFetcher retrieves the user profile with a bearer token
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error)
}

// EntitlementFetcher retrieves the user's entitlement records with a bearer token
type EntitlementFetcher interface {
	FetchEntitlements(ctx context.Context, accessToken string) ([]models.EntitlementRecord, error)
}

// Provider defines the interface the identity provider must implement
type Provider interface {
	// GetAuthURL returns the authorization URL the browser is sent to
	GetAuthURL(state string) string

	TokenExchanger
	ProfileFetcher
	EntitlementFetcher
}
