// Package flow runs the OAuth callback: code exchange, owner bypass, entitlement lookup, decision.
package flow

import (
	"context"
	"strings"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth/models"
	"github.com/brizzai/entitlement-gate/internal/auth/policy"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/config"
)

// State is a step of the callback state machine.
type State string

const (
	StateAwaitingCode         State = "awaiting_code"
	StateExchanging           State = "exchanging"
	StateFetchingProfile      State = "fetching_profile"
	StateOwnerBypass          State = "owner_bypass"
	StateFetchingEntitlements State = "fetching_entitlements"
	StateDeciding             State = "deciding"
	StateTerminal             State = "terminal"
)

// Outcome is the terminal result of a callback.
type Outcome string

const (
	Granted Outcome = "granted"
	Denied  Outcome = "denied"
	Errored Outcome = "errored"
)

// Reason explains an outcome. Values are stable and used as metric labels.
type Reason string

const (
	ReasonMissingCode      Reason = "missing_code"
	ReasonProviderError    Reason = "provider_error"
	ReasonTokenExchange    Reason = "token_exchange"
	ReasonProfileFetch     Reason = "profile_fetch"
	ReasonEntitlementFetch Reason = "entitlement_fetch"
	ReasonOwnerBypass      Reason = "owner_bypass"
	ReasonEntitled         Reason = "entitled"
	ReasonNoAccess         Reason = "no_access"
)

// Step names an outbound call, for CallObserver.
type Step string

const (
	StepTokenExchange Step = "token_exchange"
	StepProfile       Step = "profile"
	StepEntitlements  Step = "entitlements"
)

// CallObserver is told about every outbound call the orchestrator makes.
type CallObserver interface {
	ObserveCall(step Step, d time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCall(Step, time.Duration, error) {}

// Input is what the callback request carries.
type Input struct {
	Code          string
	ProviderError string
}

// Result is the terminal record of one callback. Err is for logs only.
type Result struct {
	Outcome Outcome
	Reason  Reason
	Trace   []State
	Err     error
}

// Orchestrator drives one callback at a time. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	provider    providers.Provider
	products    *policy.AllowedProductSet
	ownerEmail  string
	callTimeout time.Duration
	observer    CallObserver
}

type Option func(*Orchestrator)

// WithObserver reports each outbound call to o.
func WithObserver(o CallObserver) Option {
	return func(orc *Orchestrator) {
		if o != nil {
			orc.observer = o
		}
	}
}

func NewOrchestrator(
	provider providers.Provider,
	products *policy.AllowedProductSet,
	access *config.AccessConfig,
	providerCfg *config.ProviderConfig,
	opts ...Option,
) *Orchestrator {
	timeout := providerCfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := &Orchestrator{
		provider:    provider,
		products:    products,
		ownerEmail:  strings.TrimSpace(access.OwnerEmail),
		callTimeout: timeout,
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the mutable state of a single callback.
type run struct {
	trace []State
}

func (r *run) enter(s State) {
	r.trace = append(r.trace, s)
}

func (r *run) finish(outcome Outcome, reason Reason, err error) Result {
	r.enter(StateTerminal)
	return Result{Outcome: outcome, Reason: reason, Trace: r.trace, Err: err}
}

// Run processes one callback. Calls are sequential and never retried.
func (o *Orchestrator) Run(ctx context.Context, in Input) Result {
	r := &run{}
	r.enter(StateAwaitingCode)

	if in.ProviderError != "" {
		return r.finish(Denied, ReasonProviderError, nil)
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return r.finish(Denied, ReasonMissingCode, nil)
	}

	r.enter(StateExchanging)
	var token string
	err := o.call(ctx, StepTokenExchange, func(ctx context.Context) error {
		var err error
		token, err = o.provider.ExchangeCode(ctx, code)
		return err
	})
	if err != nil {
		return r.finish(Errored, ReasonTokenExchange, err)
	}

	if o.ownerEmail != "" {
		r.enter(StateFetchingProfile)
		var profile *models.UserProfile
		err := o.call(ctx, StepProfile, func(ctx context.Context) error {
			var err error
			profile, err = o.provider.FetchProfile(ctx, token)
			return err
		})
		if err != nil {
			return r.finish(Errored, ReasonProfileFetch, err)
		}
		if o.isOwner(profile) {
			r.enter(StateOwnerBypass)
			return r.finish(Granted, ReasonOwnerBypass, nil)
		}
	}

	r.enter(StateFetchingEntitlements)
	var records []models.EntitlementRecord
	err = o.call(ctx, StepEntitlements, func(ctx context.Context) error {
		var err error
		records, err = o.provider.FetchEntitlements(ctx, token)
		return err
	})
	if err != nil {
		return r.finish(Errored, ReasonEntitlementFetch, err)
	}

	r.enter(StateDeciding)
	if o.products.DecideRecords(records) == policy.Allowed {
		return r.finish(Granted, ReasonEntitled, nil)
	}
	return r.finish(Denied, ReasonNoAccess, nil)
}

// call runs fn under its own timeout.
func (o *Orchestrator) call(ctx context.Context, step Step, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	o.observer.ObserveCall(step, time.Since(start), err)
	return err
}

func (o *Orchestrator) isOwner(p *models.UserProfile) bool {
	if p == nil {
		return false
	}
	email := strings.TrimSpace(p.Email)
	return email != "" && strings.EqualFold(email, o.ownerEmail)
}
