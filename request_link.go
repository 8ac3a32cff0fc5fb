package passwordless

import (
	"context"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// RequestLinkMessage asks for a sign-in link to be delivered to the given
// address.
type RequestLinkMessage struct {
	Email  string `json:"email" example:"pepe.rone@example.com" doc:"Recipient email."`
	Tenant string `json:"tenant,omitempty" doc:"Opaque tenant stamped on the minted token."`
}

// Validate will run validation rules
func (m RequestLinkMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(
			&m.Email,
			validation.Required,
			is.Email,
		),
	)
}

// RequestLinkResponse reports the outcome of a link request. Delivered is
// false when the address matched no user; callers should present the same
// success message either way to avoid enumerating accounts.
type RequestLinkResponse struct {
	Delivered bool
	Link      string
}

// RequestLinkHandler implements the request phase: resolve the recipient,
// mint a purpose-bound single-use token, and hand the link to the delivery
// contract. Delivery itself (email, SMS) is external.
type RequestLinkHandler struct {
	repo         RepositoryManager
	tokens       TokenService
	resource     *Resource
	strategyName string
	sender       LinkSender
	activity     ActivitySink
	logger       Logger
	baseURL      string
	purpose      string
	tokenTTL     time.Duration
}

// NewRequestLinkHandler creates a handler with sane defaults: sign_in
// purpose tokens with a 15 minute lifetime.
func NewRequestLinkHandler(repo RepositoryManager, tokens TokenService, resource *Resource, strategyName string) *RequestLinkHandler {
	return &RequestLinkHandler{
		repo:         repo,
		tokens:       tokens,
		resource:     resource,
		strategyName: strategyName,
		sender:       LinkSenderFunc(nil),
		activity:     noopActivitySink{},
		logger:       defLogger{},
		purpose:      PurposeSignIn,
		tokenTTL:     15 * time.Minute,
	}
}

// WithSender sets the delivery contract for minted links.
func (h *RequestLinkHandler) WithSender(sender LinkSender) *RequestLinkHandler {
	if sender != nil {
		h.sender = sender
	}
	return h
}

// WithBaseURL sets the absolute URL prefix for generated links.
func (h *RequestLinkHandler) WithBaseURL(baseURL string) *RequestLinkHandler {
	h.baseURL = strings.TrimRight(baseURL, "/")
	return h
}

// WithPurpose overrides the purpose stamped on minted tokens.
func (h *RequestLinkHandler) WithPurpose(purpose string) *RequestLinkHandler {
	if purpose != "" {
		h.purpose = purpose
	}
	return h
}

// WithTokenTTL overrides the minted token lifetime.
func (h *RequestLinkHandler) WithTokenTTL(ttl time.Duration) *RequestLinkHandler {
	if ttl > 0 {
		h.tokenTTL = ttl
	}
	return h
}

// WithActivitySink sets the sink used to emit link request events.
func (h *RequestLinkHandler) WithActivitySink(sink ActivitySink) *RequestLinkHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestLinkHandler) WithLogger(logger Logger) *RequestLinkHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestLinkHandler) Execute(ctx context.Context, event RequestLinkMessage) (*RequestLinkResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during link request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestLinkHandler) execute(ctx context.Context, event RequestLinkMessage) (*RequestLinkResponse, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid link request")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// same outward response as a delivered link, no enumeration
			h.logger.Debug("link request for unknown address", "strategy", h.strategyName)
			return &RequestLinkResponse{Delivered: false}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve link recipient")
	}

	tenant := event.Tenant
	if tenant == "" {
		tenant = user.TenantID
	}

	now := time.Now()
	claims := &SignInClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   EncodeSubject(h.resource.SubjectName, user.SubjectIdentity()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
		},
		Purpose: h.purpose,
		Tenant:  tenant,
	}

	token, err := h.tokens.Issue(claims)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint sign-in token")
	}

	link := h.buildLink(token)
	if err := h.sender.Send(ctx, user.Email, link); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver sign-in link")
	}

	h.emitLinkEvent(ctx)

	return &RequestLinkResponse{
		Delivered: true,
		Link:      link,
	}, nil
}

func (h *RequestLinkHandler) buildLink(token string) string {
	return h.baseURL +
		"/" + h.resource.SubjectName +
		"/" + h.strategyName +
		"?token=" + url.QueryEscape(token)
}

func (h *RequestLinkHandler) emitLinkEvent(ctx context.Context) {
	event := ActivityEvent{
		EventType:  ActivityEventLinkRequested,
		Strategy:   h.strategyName,
		Resource:   h.resource.SubjectName,
		OccurredAt: time.Now(),
	}
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("failed to record link request activity", "error", err)
	}
}
