package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth/models"
	"github.com/brizzai/entitlement-gate/internal/auth/policy"
	"github.com/brizzai/entitlement-gate/internal/auth/providers"
	"github.com/brizzai/entitlement-gate/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers from canned values and counts calls.
type fakeProvider struct {
	token       string
	exchangeErr error
	profile     *models.UserProfile
	profileErr  error
	records     []models.EntitlementRecord
	recordsErr  error
	block       bool

	gotCode  string
	gotToken []string
	calls    map[Step]int
}

func (f *fakeProvider) count(s Step) {
	if f.calls == nil {
		f.calls = map[Step]int{}
	}
	f.calls[s]++
}

func (f *fakeProvider) GetAuthURL(string) string { return "https://whop.example/oauth" }

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	f.count(StepTokenExchange)
	f.gotCode = code
	if f.block {
		<-ctx.Done()
		return "", &providers.FetchError{Kind: providers.ErrTokenExchange, Reason: providers.ReasonTransport, Err: ctx.Err()}
	}
	return f.token, f.exchangeErr
}

func (f *fakeProvider) FetchProfile(_ context.Context, token string) (*models.UserProfile, error) {
	f.count(StepProfile)
	f.gotToken = append(f.gotToken, token)
	return f.profile, f.profileErr
}

func (f *fakeProvider) FetchEntitlements(_ context.Context, token string) ([]models.EntitlementRecord, error) {
	f.count(StepEntitlements)
	f.gotToken = append(f.gotToken, token)
	return f.records, f.recordsErr
}

type recordingObserver struct {
	steps []Step
	errs  []error
}

func (r *recordingObserver) ObserveCall(step Step, _ time.Duration, err error) {
	r.steps = append(r.steps, step)
	r.errs = append(r.errs, err)
}

func newOrchestrator(p providers.Provider, owner string, opts ...Option) *Orchestrator {
	return NewOrchestrator(p, policy.DefaultProducts(),
		&config.AccessConfig{OwnerEmail: owner},
		&config.ProviderConfig{CallTimeout: time.Second},
		opts...)
}

var entitled = []models.EntitlementRecord{{ID: "mem_1", ProductID: "prod_dvtFTdpa6eFyW"}}

func TestOrchestrator_Run(t *testing.T) {
	tests := []struct {
		name        string
		provider    *fakeProvider
		owner       string
		input       Input
		wantOutcome Outcome
		wantReason  Reason
		wantTrace   []State
		wantCalls   map[Step]int
		wantErr     error
	}{
		{
			name:        "entitled user",
			provider:    &fakeProvider{token: "tok", records: entitled},
			input:       Input{Code: "abc123"},
			wantOutcome: Granted,
			wantReason:  ReasonEntitled,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingEntitlements, StateDeciding, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepEntitlements: 1},
		},
		{
			name:        "unknown product",
			provider:    &fakeProvider{token: "tok", records: []models.EntitlementRecord{{ProductID: "prod_unknown"}}},
			input:       Input{Code: "abc123"},
			wantOutcome: Denied,
			wantReason:  ReasonNoAccess,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingEntitlements, StateDeciding, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepEntitlements: 1},
		},
		{
			name:        "no entitlements",
			provider:    &fakeProvider{token: "tok"},
			input:       Input{Code: "abc123"},
			wantOutcome: Denied,
			wantReason:  ReasonNoAccess,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingEntitlements, StateDeciding, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepEntitlements: 1},
		},
		{
			name:        "missing code",
			provider:    &fakeProvider{},
			input:       Input{},
			wantOutcome: Denied,
			wantReason:  ReasonMissingCode,
			wantTrace:   []State{StateAwaitingCode, StateTerminal},
			wantCalls:   nil,
		},
		{
			name:        "blank code",
			provider:    &fakeProvider{},
			input:       Input{Code: "  "},
			wantOutcome: Denied,
			wantReason:  ReasonMissingCode,
			wantTrace:   []State{StateAwaitingCode, StateTerminal},
		},
		{
			name:        "consent refused",
			provider:    &fakeProvider{},
			input:       Input{Code: "abc123", ProviderError: "access_denied"},
			wantOutcome: Denied,
			wantReason:  ReasonProviderError,
			wantTrace:   []State{StateAwaitingCode, StateTerminal},
		},
		{
			name: "token response without access token",
			provider: &fakeProvider{exchangeErr: &providers.FetchError{
				Kind: providers.ErrTokenExchange, Reason: providers.ReasonMissingField,
			}, records: entitled},
			input:       Input{Code: "abc123"},
			wantOutcome: Errored,
			wantReason:  ReasonTokenExchange,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1},
			wantErr:     providers.ErrTokenExchange,
		},
		{
			name: "entitlements not a list",
			provider: &fakeProvider{token: "tok", recordsErr: &providers.FetchError{
				Kind: providers.ErrEntitlementFetch, Reason: providers.ReasonNotAList,
			}},
			input:       Input{Code: "abc123"},
			wantOutcome: Errored,
			wantReason:  ReasonEntitlementFetch,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingEntitlements, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepEntitlements: 1},
			wantErr:     providers.ErrEntitlementFetch,
		},
		{
			name:        "owner bypass ignores case",
			provider:    &fakeProvider{token: "tok", profile: &models.UserProfile{Email: "Owner@Example.COM"}},
			owner:       "owner@example.com",
			input:       Input{Code: "abc123"},
			wantOutcome: Granted,
			wantReason:  ReasonOwnerBypass,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingProfile, StateOwnerBypass, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepProfile: 1},
		},
		{
			name:        "configured owner, other user",
			provider:    &fakeProvider{token: "tok", profile: &models.UserProfile{Email: "someone@example.com"}, records: entitled},
			owner:       "owner@example.com",
			input:       Input{Code: "abc123"},
			wantOutcome: Granted,
			wantReason:  ReasonEntitled,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingProfile, StateFetchingEntitlements, StateDeciding, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepProfile: 1, StepEntitlements: 1},
		},
		{
			name:        "empty profile email never matches",
			provider:    &fakeProvider{token: "tok", profile: &models.UserProfile{}},
			owner:       "owner@example.com",
			input:       Input{Code: "abc123"},
			wantOutcome: Denied,
			wantReason:  ReasonNoAccess,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingProfile, StateFetchingEntitlements, StateDeciding, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepProfile: 1, StepEntitlements: 1},
		},
		{
			name: "profile failure",
			provider: &fakeProvider{token: "tok", profileErr: &providers.FetchError{
				Kind: providers.ErrProfileFetch, Reason: providers.ReasonStatus, Status: 500,
			}},
			owner:       "owner@example.com",
			input:       Input{Code: "abc123"},
			wantOutcome: Errored,
			wantReason:  ReasonProfileFetch,
			wantTrace:   []State{StateAwaitingCode, StateExchanging, StateFetchingProfile, StateTerminal},
			wantCalls:   map[Step]int{StepTokenExchange: 1, StepProfile: 1},
			wantErr:     providers.ErrProfileFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newOrchestrator(tt.provider, tt.owner).Run(context.Background(), tt.input)

			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantReason, got.Reason)
			if diff := cmp.Diff(tt.wantTrace, got.Trace); diff != "" {
				t.Errorf("trace mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantCalls, tt.provider.calls); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, got.Err, tt.wantErr)
			} else {
				assert.NoError(t, got.Err)
			}
		})
	}
}

func TestOrchestrator_PassesCodeAndToken(t *testing.T) {
	p := &fakeProvider{token: "tok", profile: &models.UserProfile{Email: "x@example.com"}, records: entitled}
	newOrchestrator(p, "owner@example.com").Run(context.Background(), Input{Code: "abc123"})

	assert.Equal(t, "abc123", p.gotCode)
	assert.Equal(t, []string{"tok", "tok"}, p.gotToken)
}

func TestOrchestrator_CallTimeout(t *testing.T) {
	p := &fakeProvider{block: true}
	o := NewOrchestrator(p, policy.DefaultProducts(), &config.AccessConfig{},
		&config.ProviderConfig{CallTimeout: 20 * time.Millisecond})

	start := time.Now()
	got := o.Run(context.Background(), Input{Code: "abc123"})

	assert.Equal(t, Errored, got.Outcome)
	assert.Equal(t, ReasonTokenExchange, got.Reason)
	assert.True(t, errors.Is(got.Err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestOrchestrator_Observer(t *testing.T) {
	obs := &recordingObserver{}
	p := &fakeProvider{token: "tok", records: entitled}
	newOrchestrator(p, "", WithObserver(obs)).Run(context.Background(), Input{Code: "abc123"})

	require.Equal(t, []Step{StepTokenExchange, StepEntitlements}, obs.steps)
	assert.Equal(t, []error{nil, nil}, obs.errs)

	// A nil observer keeps the default.
	o := newOrchestrator(p, "", WithObserver(nil))
	assert.NotPanics(t, func() { o.Run(context.Background(), Input{Code: "abc123"}) })
}

func TestNewOrchestrator_DefaultTimeout(t *testing.T) {
	o := NewOrchestrator(&fakeProvider{}, policy.DefaultProducts(), &config.AccessConfig{OwnerEmail: " a@b.c "}, &config.ProviderConfig{})
	assert.Equal(t, 10*time.Second, o.callTimeout)
	assert.Equal(t, "a@b.c", o.ownerEmail)
}
