package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/entitlement-gate/internal/auth/constants"
	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/auth/session"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/brizzai/entitlement-gate/internal/logger"
	"github.com/brizzai/entitlement-gate/internal/utils"
	"go.uber.org/zap"
)

// Observer is notified about callbacks and session checks.
type Observer interface {
	ObserveCallback(res flow.Result)
	ObserveSessionCheck(authenticated bool)
}

type noopObserver struct{}

func (noopObserver) ObserveCallback(flow.Result) {}
func (noopObserver) ObserveSessionCheck(bool)    {}

// Handler handles the browser-facing OAuth and session requests
type Handler struct {
	serviceName  string
	frontendURL  string
	strategy     config.SessionStrategy
	authProvider providers.Provider
	orchestrator *flow.Orchestrator
	gate         *session.Gate
	tickets      session.TicketStore
	observer     Observer
}

// Options collects what NewHandler needs.
type Options struct {
	ServiceName  string
	FrontendURL  string
	Strategy     config.SessionStrategy
	Provider     providers.Provider
	Orchestrator *flow.Orchestrator
	Gate         *session.Gate
	Tickets      session.TicketStore
	Observer     Observer
}

// NewHandler creates a new Handler instance
func NewHandler(opts Options) *Handler {
	h := &Handler{
		serviceName:  opts.ServiceName,
		frontendURL:  strings.TrimRight(opts.FrontendURL, "/"),
		strategy:     opts.Strategy,
		authProvider: opts.Provider,
		orchestrator: opts.Orchestrator,
		gate:         opts.Gate,
		tickets:      opts.Tickets,
		observer:     opts.Observer,
	}
	if h.strategy == "" {
		h.strategy = config.SessionStrategyCookie
	}
	if h.observer == nil {
		h.observer = noopObserver{}
	}
	return h
}

type authStatus struct {
	Authenticated bool `json:"authenticated"`
}

// HandleHealth handles GET /
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, map[string]string{
		"status":  "ok",
		"service": h.serviceName,
	})
}

// HandleStart sends the browser to the provider's authorization page
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.authProvider.GetAuthURL(""), http.StatusFound)
}

// HandleCallback finishes the login and always answers with a redirect
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	res := h.orchestrator.Run(r.Context(), flow.Input{
		Code:          query.Get(constants.CodeQueryParam),
		ProviderError: query.Get(constants.ErrorQueryParam),
	})
	h.observer.ObserveCallback(res)

	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", string(res.Reason)),
		zap.Any("trace", res.Trace),
	}
	var fetchErr *providers.FetchError
	if errors.As(res.Err, &fetchErr) {
		fields = append(fields, zap.String("fetch_reason", string(fetchErr.Reason)), zap.Int("upstream_status", fetchErr.Status))
	}

	switch res.Outcome {
	case flow.Granted:
		logger.Info("Login granted", fields...)
		target, err := h.grant(w, r)
		if err != nil {
			logger.Error("Failed to finish granted login", zap.Error(err))
			h.redirectLogin(w, r, constants.LoginErrorServer)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	case flow.Denied:
		logger.Info("Login denied", fields...)
		if res.Reason == flow.ReasonNoAccess {
			h.redirectLogin(w, r, constants.LoginErrorNoAccess)
			return
		}
		h.redirectLogin(w, r, constants.LoginErrorDenied)
	default:
		logger.Error("Login failed", append(fields, zap.Error(res.Err))...)
		h.redirectLogin(w, r, constants.LoginErrorServer)
	}
}

// grant hands out the session according to the configured strategy and returns
// the success destination.
func (h *Handler) grant(w http.ResponseWriter, r *http.Request) (string, error) {
	target := h.frontendURL + constants.SuccessPath
	if h.strategy != config.SessionStrategyDeferred {
		h.gate.Issue(w)
		return target, nil
	}

	ticket, err := h.tickets.Create(r.Context())
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set(constants.SessionQueryParam, constants.SessionQuerySuccess)
	q.Set(constants.TicketQueryParam, ticket)
	return target + "?" + q.Encode(), nil
}

func (h *Handler) redirectLogin(w http.ResponseWriter, r *http.Request, reason string) {
	q := url.Values{}
	q.Set(constants.ErrorQueryParam, reason)
	http.Redirect(w, r, h.frontendURL+constants.LoginPath+"?"+q.Encode(), http.StatusFound)
}

// HandleCheck reports whether the request carries the session marker
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ok := h.gate.Check(r)
	h.observer.ObserveSessionCheck(ok)
	utils.WriteJSON(w, authStatus{Authenticated: ok})
}

// HandleFinalize redeems a finalize ticket for the session marker. A request that
// already holds the marker succeeds without a ticket.
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	if h.gate.Check(r) {
		utils.WriteJSON(w, authStatus{Authenticated: true})
		return
	}

	ticket, err := ticketFromRequest(r)
	if err != nil {
		utils.WriteError(w, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return
	}
	if ticket == "" {
		utils.WriteJSONStatus(w, http.StatusUnauthorized, authStatus{})
		return
	}

	ok, err := h.tickets.Redeem(r.Context(), ticket)
	if err != nil {
		logger.Error("Failed to redeem finalize ticket", zap.Error(err))
		utils.WriteJSONStatus(w, http.StatusServiceUnavailable, authStatus{})
		return
	}
	if !ok {
		logger.Warn("Rejected finalize request with unknown or used ticket")
		utils.WriteJSONStatus(w, http.StatusUnauthorized, authStatus{})
		return
	}

	h.gate.Issue(w)
	utils.WriteJSON(w, authStatus{Authenticated: true})
}

// HandleLogout clears the session marker
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.gate.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// ticketFromRequest reads the ticket from the query string or a JSON body.
func ticketFromRequest(r *http.Request) (string, error) {
	if ticket := r.URL.Query().Get(constants.TicketQueryParam); ticket != "" {
		return strings.TrimSpace(ticket), nil
	}
	if r.Body == nil {
		return "", nil
	}

	var body struct {
		Ticket string `json:"ticket"`
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body.Ticket), nil
}
