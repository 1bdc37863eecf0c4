package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/entitlement-gate/internal/auth/constants"
	"github.com/brizzai/entitlement-gate/internal/auth/models"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/brizzai/entitlement-gate/internal/requester"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// WhopProvider talks to Whop's OAuth and user APIs.
type WhopProvider struct {
	oauth2Config    *oauth2.Config
	requester       *requester.HTTPRequester
	tokenClient     *http.Client
	profileURL      string
	entitlementsURL string
}

func NewWhopProvider(cfg *config.ProviderConfig, r *requester.HTTPRequester) *WhopProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}
	return &WhopProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Whop expects the client credentials in the request body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: scopes,
		},
		requester:       r,
		tokenClient:     newTokenClient(r.Client()),
		profileURL:      cfg.ProfileURL,
		entitlementsURL: cfg.EntitlementsURL,
	}
}

func (p *WhopProvider) GetAuthURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// ExchangeCode performs the one-shot authorization code exchange. The returned
// token must not be logged or forwarded to the browser.
func (p *WhopProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.tokenClient)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", classifyExchangeError(err)
	}
	if token.AccessToken == "" {
		return "", fetchErr(ErrTokenExchange, ReasonMissingField, 0, errors.New("no access_token in response"))
	}
	return token.AccessToken, nil
}

func classifyExchangeError(err error) *FetchError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		reason := ReasonStatus
		if len(strings.TrimSpace(string(retrieveErr.Body))) == 0 {
			reason = ReasonEmptyBody
		}
		return fetchErr(ErrTokenExchange, reason, status, err)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fetchErr(ErrTokenExchange, ReasonTransport, 0, err)
	}

	// oauth2 reports a parsed body without a token only through its message.
	if strings.Contains(err.Error(), "missing access_token") {
		return fetchErr(ErrTokenExchange, ReasonMissingField, 0, err)
	}
	return fetchErr(ErrTokenExchange, ReasonMalformedBody, 0, err)
}

type whopProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (p *WhopProvider) FetchProfile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	body, err := p.get(ctx, p.profileURL, accessToken, ErrProfileFetch)
	if err != nil {
		return nil, err
	}

	var raw whopProfile
	switch outcome, decodeErr := decodeJSON(body, &raw); outcome {
	case outcomeEmpty:
		return nil, fetchErr(ErrProfileFetch, ReasonEmptyBody, 0, nil)
	case outcomeMalformed:
		return nil, fetchErr(ErrProfileFetch, ReasonMalformedBody, 0, decodeErr)
	}

	return &models.UserProfile{
		ID:       raw.ID,
		Username: raw.Username,
		Email:    raw.Email,
	}, nil
}

type entitlementEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type whopEntitlement struct {
	ID      string `json:"id"`
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
}

func (p *WhopProvider) FetchEntitlements(ctx context.Context, accessToken string) ([]models.EntitlementRecord, error) {
	body, err := p.get(ctx, p.entitlementsURL, accessToken, ErrEntitlementFetch)
	if err != nil {
		return nil, err
	}

	var envelope entitlementEnvelope
	switch outcome, decodeErr := decodeJSON(body, &envelope); outcome {
	case outcomeEmpty:
		return nil, fetchErr(ErrEntitlementFetch, ReasonEmptyBody, 0, nil)
	case outcomeMalformed:
		return nil, fetchErr(ErrEntitlementFetch, ReasonMalformedBody, 0, decodeErr)
	}

	if len(envelope.Data) == 0 {
		return nil, fetchErr(ErrEntitlementFetch, ReasonMissingField, 0, errors.New("response has no data field"))
	}
	if !isJSONArray(envelope.Data) {
		return nil, fetchErr(ErrEntitlementFetch, ReasonNotAList, 0, errors.New("data is not a list"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Data, &items); err != nil {
		return nil, fetchErr(ErrEntitlementFetch, ReasonMalformedBody, 0, err)
	}

	records := make([]models.EntitlementRecord, 0, len(items))
	for i, item := range items {
		var ent whopEntitlement
		if err := json.Unmarshal(item, &ent); err != nil {
			logger.Debug("Skipping unreadable entitlement record", zap.Int("index", i), zap.Error(err))
			continue
		}
		record := models.EntitlementRecord{ID: ent.ID}
		if ent.Product != nil {
			record.ProductID = ent.Product.ID
		}
		records = append(records, record)
	}
	return records, nil
}

// get runs an authenticated GET and returns the body of a 2xx response.
func (p *WhopProvider) get(ctx context.Context, endpoint, accessToken string, kind error) ([]byte, error) {
	resp, err := p.requester.Get(ctx, endpoint, requester.BearerAuth{Token: accessToken})
	if err != nil {
		return nil, fetchErr(kind, ReasonTransport, 0, err)
	}
	if !resp.IsSuccess() {
		return nil, fetchErr(kind, ReasonStatus, resp.StatusCode, nil)
	}
	return resp.Body, nil
}
