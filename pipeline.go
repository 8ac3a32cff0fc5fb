package passwordless

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SignInResult is the terminal success state of the pipeline: the matched
// record plus the freshly reissued session token. The token is out-of-band
// metadata, never a persisted field on the record.
type SignInResult struct {
	Record any
	Token  string
}

// signInExchange carries one sign-in attempt through the stage sequence.
// It is owned by the pipeline for the duration of a single request.
type signInExchange struct {
	strategy Strategy
	resource *Resource
	rawToken string

	claims   *SignInClaims
	identity *SubjectIdentity
	matches  []any
	record   any
	token    string
	result   *SignInResult
}

// pipelineStage is one step of the sign-in sequence. Stages take and return
// an explicit context so values like verified claims are threaded, never
// ambient. The first failing stage short-circuits the run.
type pipelineStage struct {
	name string
	run  func(ctx context.Context, fx *signInExchange) (context.Context, error)
}

// SignInPipeline turns an opaque bearer token into a verified, single-use
// authentication event. Stages run strictly in order within one request; no
// stage is retried. Replay safety across concurrent requests comes from the
// resource's RevocationStore.
type SignInPipeline struct {
	tokens     TokenService
	verifier   *TokenVerifier
	logger     Logger
	activity   ActivitySink
	sessionTTL time.Duration
	now        func() time.Time
}

// NewSignInPipeline creates a pipeline with sane defaults. The session TTL
// for reissued tokens defaults to 24 hours.
func NewSignInPipeline(tokens TokenService) *SignInPipeline {
	return &SignInPipeline{
		tokens:     tokens,
		verifier:   NewTokenVerifier(tokens),
		logger:     defLogger{},
		activity:   noopActivitySink{},
		sessionTTL: 24 * time.Hour,
		now:        time.Now,
	}
}

// NewSignInPipelineFromConfig creates a pipeline whose token service and
// session TTL come from the shared Config.
func NewSignInPipelineFromConfig(config Config, logger Logger) *SignInPipeline {
	p := NewSignInPipeline(NewTokenServiceFromConfig(config, logger)).WithLogger(logger)
	if hours := config.GetSessionTokenExpiration(); hours > 0 {
		p = p.WithSessionTTL(time.Duration(hours) * time.Hour)
	}
	return p
}

// WithLogger overrides the logger used by the pipeline and its verifier.
func (p *SignInPipeline) WithLogger(logger Logger) *SignInPipeline {
	if logger != nil {
		p.logger = logger
		p.verifier = p.verifier.WithLogger(logger)
	}
	return p
}

// WithActivitySink sets the sink used to emit sign-in events.
func (p *SignInPipeline) WithActivitySink(sink ActivitySink) *SignInPipeline {
	p.activity = normalizeActivitySink(sink)
	return p
}

// WithSessionTTL overrides the lifetime of reissued session tokens.
func (p *SignInPipeline) WithSessionTTL(ttl time.Duration) *SignInPipeline {
	if ttl > 0 {
		p.sessionTTL = ttl
	}
	return p
}

// WithClock injects a custom clock (useful for tests).
func (p *SignInPipeline) WithClock(clock func() time.Time) *SignInPipeline {
	if clock != nil {
		p.now = clock
	}
	return p
}

// SignIn runs the full stage sequence for one bearer token presented to the
// given strategy. On success it returns the single matched record with the
// reissued session token attached; on failure, a typed error that the
// dispatcher forwards unchanged.
func (p *SignInPipeline) SignIn(ctx context.Context, strategy Strategy, rawToken string) (*SignInResult, error) {
	fx := &signInExchange{
		strategy: strategy,
		resource: strategy.Resource(),
		rawToken: rawToken,
	}

	stages := []pipelineStage{
		{"config_check", p.configCheck},
		{"verify", p.verify},
		{"decode_subject", p.decodeSubject},
		{"constrain_and_lookup", p.constrainAndLookup},
		{"cardinality_check", p.cardinalityCheck},
		{"revoke", p.revoke},
		{"reissue", p.reissue},
		{"attach", p.attach},
	}

	for _, stage := range stages {
		next, err := stage.run(ctx, fx)
		if err != nil {
			p.logger.Debug("sign-in pipeline stage failed",
				"stage", stage.name,
				"strategy", strategy.Name(),
				"resource", fx.resource.SubjectName,
			)
			p.emitSignInEvent(ctx, ActivityEventSignInFailure, fx, map[string]any{
				"stage":  stage.name,
				"reason": FailureReason(err),
			})
			return nil, err
		}
		ctx = next
	}

	p.emitSignInEvent(ctx, ActivityEventSignInSuccess, fx, nil)

	return fx.result, nil
}

// configCheck rejects sign-in token requests against strategies that do not
// support them. This runs before any token verification: it is a deployment
// bug, not an attacker-controlled condition.
func (p *SignInPipeline) configCheck(ctx context.Context, fx *signInExchange) (context.Context, error) {
	if !fx.strategy.SignInTokensEnabled() {
		return ctx, p.decorate(ErrUnsupportedConfiguration.Clone(), fx)
	}
	return ctx, nil
}

func (p *SignInPipeline) verify(ctx context.Context, fx *signInExchange) (context.Context, error) {
	claims, err := p.verifier.Verify(ctx, fx.rawToken, fx.resource, PurposeSignIn)
	if err != nil {
		reason := ReasonInvalidToken
		if verificationCause(err) == "purpose" {
			reason = ReasonInvalidPurpose
		}
		return ctx, p.decorate(NewAuthenticationFailed(reason, err), fx)
	}
	fx.claims = claims
	return ctx, nil
}

func (p *SignInPipeline) decodeSubject(ctx context.Context, fx *signInExchange) (context.Context, error) {
	identity, err := DecodeSubject(fx.claims.Subject(), fx.resource.PrimaryKeyFields)
	if err != nil {
		return ctx, p.decorate(NewAuthenticationFailed(ReasonInvalidSubject, err), fx)
	}
	fx.identity = identity
	return ctx, nil
}

// constrainAndLookup executes the exact-equality lookup and attaches the
// verified claims to the operation context so downstream stages and the
// caller see tenant information.
func (p *SignInPipeline) constrainAndLookup(ctx context.Context, fx *signInExchange) (context.Context, error) {
	ctx = WithClaimsContext(ctx, fx.claims)

	matches, err := fx.resource.Lookup.Find(ctx, fx.identity)
	if err != nil {
		return ctx, p.decorate(NewAuthenticationFailed(ReasonLookupFailed, err), fx)
	}
	fx.matches = matches
	return ctx, nil
}

// cardinalityCheck requires exactly one match. More than one is a
// data-integrity condition; we never silently pick a record.
func (p *SignInPipeline) cardinalityCheck(ctx context.Context, fx *signInExchange) (context.Context, error) {
	switch len(fx.matches) {
	case 0:
		return ctx, p.decorate(NewAuthenticationFailed(ReasonNoMatchingSubject, nil), fx)
	case 1:
		fx.record = fx.matches[0]
		return ctx, nil
	default:
		return ctx, p.decorate(NewAuthenticationFailed(ReasonAmbiguousSubject, nil).
			WithMetadata(map[string]any{"matches": len(fx.matches)}), fx)
	}
}

// revoke consumes the single-use token. A consumption failure aborts the
// sign-in even though the lookup succeeded: this is the replay-prevention
// boundary and is never silently ignored.
func (p *SignInPipeline) revoke(ctx context.Context, fx *signInExchange) (context.Context, error) {
	ttl := fx.claims.Expires().Sub(p.now())
	if ttl < 0 {
		ttl = 0
	}

	if err := fx.resource.Revocations.Consume(ctx, fx.rawToken, ttl); err != nil {
		return ctx, p.decorate(NewAuthenticationFailed(ReasonTokenRevoked, err), fx)
	}
	return ctx, nil
}

// reissue mints the session token for the matched record. Only the tenant
// claim is carried forward; copying the full original claim set would leak
// unrelated metadata into the new session.
func (p *SignInPipeline) reissue(ctx context.Context, fx *signInExchange) (context.Context, error) {
	now := p.now()
	claims := &SignInClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fx.claims.RegisteredClaims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.sessionTTL)),
		},
		Purpose: PurposeSession,
		Tenant:  fx.claims.Tenant,
	}

	token, err := p.tokens.Issue(claims)
	if err != nil {
		return ctx, p.decorate(NewAuthenticationFailed(ReasonIssuanceFailed, err), fx)
	}
	fx.token = token
	return ctx, nil
}

// attach pairs the reissued token with the matched record. The token stays
// out-of-band result metadata; it is never written onto the record itself.
func (p *SignInPipeline) attach(ctx context.Context, fx *signInExchange) (context.Context, error) {
	fx.result = &SignInResult{
		Record: fx.record,
		Token:  fx.token,
	}
	return ctx, nil
}

func (p *SignInPipeline) decorate(err *errors.Error, fx *signInExchange) *errors.Error {
	return withDispatchContext(err, fx.strategy.Name(), fx.resource.SubjectName, string(PhaseSignIn))
}

func (p *SignInPipeline) emitSignInEvent(ctx context.Context, eventType ActivityEventType, fx *signInExchange, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Strategy:   fx.strategy.Name(),
		Resource:   fx.resource.SubjectName,
		Metadata:   metadata,
		OccurredAt: p.now(),
	}
	if err := p.activity.Record(ctx, event); err != nil {
		p.logger.Error("failed to record sign-in activity", "event", string(eventType), "error", err)
	}
}
