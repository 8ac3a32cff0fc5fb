package passwordless

import (
	"context"
	"net/http"

	"github.com/goliatone/go-router"
)

// Phase is a named step in a strategy's lifecycle. The set of phases is
// fixed per strategy kind.
type Phase string

const (
	// PhaseRequest initiates the flow, e.g. sending a magic link.
	PhaseRequest Phase = "request"
	// PhaseAccept is the interactive confirmation step shown before an
	// interactive strategy completes sign-in.
	PhaseAccept Phase = "accept"
	// PhaseSignIn consumes a sign-in token and establishes a session.
	PhaseSignIn Phase = "sign_in"
)

// Route pairs a URL template with the phase it serves. Templates are derived
// deterministically from the resource's subject name and the strategy name.
type Route struct {
	Template string
	Phase    Phase
}

// ActionParams carries the inputs of an action invocation.
type ActionParams struct {
	// Token is the raw bearer token for sign_in and accept.
	Token string
	// Email identifies the recipient for request.
	Email string
}

// ActionOptions carries optional invocation settings.
type ActionOptions struct {
	// Tenant is stamped onto minted tokens when set.
	Tenant string
}

// Strategy describes one configured authentication mechanism. Strategies are
// immutable once registered and safely shared across concurrent dispatches.
// New kinds are added by implementing this interface, never by ad-hoc
// dispatch over untyped values.
type Strategy interface {
	// Name is the strategy identifier, unique per resource within a Registry.
	Name() string
	// Resource is the identity schema this strategy authenticates against.
	Resource() *Resource
	// RequireInteraction reports whether a human confirmation step is
	// required before sign-in completes.
	RequireInteraction() bool
	// SignInTokensEnabled reports whether this strategy may mint and
	// consume sign-in tokens.
	SignInTokensEnabled() bool
	// RequiresTokens reports whether the sign-in flow depends on ephemeral
	// bearer tokens; it gates whether the verifier and revocation gate are
	// wired in for this strategy.
	RequiresTokens() bool
	// Phases is the fixed lifecycle of this strategy kind.
	Phases() []Phase
	// Actions is the subset of phases that are invocable business actions.
	Actions() []Phase
	// MethodForPhase maps a phase to its HTTP verb.
	MethodForPhase(phase Phase) string
	// Routes returns the ordered route set. Order matters for routers with
	// first-match semantics.
	Routes() []Route
	// Dispatch routes an inbound phase invocation to its handler.
	Dispatch(phase Phase, c router.Context) error
	// InvokeAction executes the action's business logic.
	InvokeAction(ctx context.Context, action Phase, params ActionParams, opts ActionOptions) (any, error)
}

// strategyBase implements the pieces shared by the bundled strategy kinds:
// deterministic verbs, route derivation, and phase bookkeeping.
type strategyBase struct {
	name               string
	resource           *Resource
	requireInteraction bool
	signInTokens       bool
}

func (s *strategyBase) Name() string              { return s.name }
func (s *strategyBase) Resource() *Resource       { return s.resource }
func (s *strategyBase) RequireInteraction() bool  { return s.requireInteraction }
func (s *strategyBase) SignInTokensEnabled() bool { return s.signInTokens }

func (s *strategyBase) Phases() []Phase {
	return []Phase{PhaseRequest, PhaseAccept, PhaseSignIn}
}

// Actions excludes accept: it is a pure UI step, not a business action.
func (s *strategyBase) Actions() []Phase {
	return []Phase{PhaseRequest, PhaseSignIn}
}

// MethodForPhase defaults to GET. Phases that mutate state or accept secrets
// use POST; sign_in only needs POST when an interactive confirmation form
// submits the token.
func (s *strategyBase) MethodForPhase(phase Phase) string {
	switch phase {
	case PhaseRequest:
		return http.MethodPost
	case PhaseSignIn:
		if s.requireInteraction {
			return http.MethodPost
		}
		return http.MethodGet
	default:
		return http.MethodGet
	}
}

// Routes derives templates from the resource subject name and strategy name.
// When interaction is required the accept route is prepended so first-match
// routers hit the confirmation step before the sign-in route that shares its
// template.
func (s *strategyBase) Routes() []Route {
	base := "/" + s.resource.SubjectName + "/" + s.name

	var routes []Route
	if s.requireInteraction {
		routes = append(routes, Route{Template: base, Phase: PhaseAccept})
	}
	routes = append(routes,
		Route{Template: base + "/request", Phase: PhaseRequest},
		Route{Template: base, Phase: PhaseSignIn},
	)
	return routes
}

// MagicLinkStrategy is the passwordless link mechanism: request emails a
// single-use sign-in link, accept (optional) confirms interactively, and
// sign_in consumes the token through the pipeline.
type MagicLinkStrategy struct {
	strategyBase
	pipeline *SignInPipeline
	request  *RequestLinkHandler
	logger   Logger
}

// Verify interface compliance
var _ Strategy = (*MagicLinkStrategy)(nil)

// NewMagicLinkStrategy creates a magic-link strategy with sign-in tokens
// enabled, the kind's defining capability.
func NewMagicLinkStrategy(name string, resource *Resource, pipeline *SignInPipeline, request *RequestLinkHandler) *MagicLinkStrategy {
	return &MagicLinkStrategy{
		strategyBase: strategyBase{
			name:         name,
			resource:     resource,
			signInTokens: true,
		},
		pipeline: pipeline,
		request:  request,
		logger:   defLogger{},
	}
}

// WithRequireInteraction toggles the interactive confirmation step.
func (s *MagicLinkStrategy) WithRequireInteraction(required bool) *MagicLinkStrategy {
	s.requireInteraction = required
	return s
}

// WithSignInTokens overrides whether this instance may mint and consume
// sign-in tokens.
func (s *MagicLinkStrategy) WithSignInTokens(enabled bool) *MagicLinkStrategy {
	s.signInTokens = enabled
	return s
}

// WithLogger overrides the logger used by the strategy.
func (s *MagicLinkStrategy) WithLogger(logger Logger) *MagicLinkStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// RequiresTokens reports true: magic-link sign-in always rides on ephemeral
// bearer tokens.
func (s *MagicLinkStrategy) RequiresTokens() bool {
	return true
}

// Dispatch routes an inbound phase invocation. Errors from the underlying
// action are forwarded unchanged; this layer never masks pipeline results.
func (s *MagicLinkStrategy) Dispatch(phase Phase, c router.Context) error {
	switch phase {
	case PhaseRequest:
		return handleRequestPhase(s, c)
	case PhaseAccept:
		return handleAcceptPhase(s, c)
	case PhaseSignIn:
		return handleSignInPhase(s, c)
	default:
		return withDispatchContext(ErrUnsupportedPhase.Clone(), s.name, s.resource.SubjectName, string(phase))
	}
}

// InvokeAction executes the action's business logic.
func (s *MagicLinkStrategy) InvokeAction(ctx context.Context, action Phase, params ActionParams, opts ActionOptions) (any, error) {
	switch action {
	case PhaseRequest:
		return s.request.Execute(ctx, RequestLinkMessage{
			Email:  params.Email,
			Tenant: opts.Tenant,
		})
	case PhaseSignIn:
		return s.pipeline.SignIn(ctx, s, params.Token)
	default:
		return nil, withDispatchContext(ErrUnsupportedPhase.Clone(), s.name, s.resource.SubjectName, string(action))
	}
}

// PasswordResetStrategy is the reset-token mechanism. It shares the magic
// link lifecycle but ships with sign-in tokens disabled: reset tokens are
// consumed by the external password-change flow, not exchanged for a
// session, unless a deployment opts in explicitly.
type PasswordResetStrategy struct {
	strategyBase
	pipeline *SignInPipeline
	request  *RequestLinkHandler
	logger   Logger
}

// Verify interface compliance
var _ Strategy = (*PasswordResetStrategy)(nil)

// NewPasswordResetStrategy creates a password-reset strategy. Reset flows
// are always interactive: the user lands on a form before anything happens.
func NewPasswordResetStrategy(name string, resource *Resource, pipeline *SignInPipeline, request *RequestLinkHandler) *PasswordResetStrategy {
	return &PasswordResetStrategy{
		strategyBase: strategyBase{
			name:               name,
			resource:           resource,
			requireInteraction: true,
			signInTokens:       false,
		},
		pipeline: pipeline,
		request:  request,
		logger:   defLogger{},
	}
}

// WithSignInTokens opts this instance into minting and consuming sign-in
// tokens, letting a completed reset double as a sign-in.
func (s *PasswordResetStrategy) WithSignInTokens(enabled bool) *PasswordResetStrategy {
	s.signInTokens = enabled
	return s
}

// WithLogger overrides the logger used by the strategy.
func (s *PasswordResetStrategy) WithLogger(logger Logger) *PasswordResetStrategy {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// RequiresTokens follows the sign-in token setting: with tokens disabled the
// verifier and revocation gate stay unwired for this strategy.
func (s *PasswordResetStrategy) RequiresTokens() bool {
	return s.signInTokens
}

// Dispatch routes an inbound phase invocation.
func (s *PasswordResetStrategy) Dispatch(phase Phase, c router.Context) error {
	switch phase {
	case PhaseRequest:
		return handleRequestPhase(s, c)
	case PhaseAccept:
		return handleAcceptPhase(s, c)
	case PhaseSignIn:
		return handleSignInPhase(s, c)
	default:
		return withDispatchContext(ErrUnsupportedPhase.Clone(), s.name, s.resource.SubjectName, string(phase))
	}
}

// InvokeAction executes the action's business logic.
func (s *PasswordResetStrategy) InvokeAction(ctx context.Context, action Phase, params ActionParams, opts ActionOptions) (any, error) {
	switch action {
	case PhaseRequest:
		return s.request.Execute(ctx, RequestLinkMessage{
			Email:  params.Email,
			Tenant: opts.Tenant,
		})
	case PhaseSignIn:
		return s.pipeline.SignIn(ctx, s, params.Token)
	default:
		return nil, withDispatchContext(ErrUnsupportedPhase.Clone(), s.name, s.resource.SubjectName, string(action))
	}
}
