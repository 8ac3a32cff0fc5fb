package passwordless

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// RegisterStrategyRoutes mounts every registered strategy on the router,
// preserving the strategy's declared route order so first-match routers hit
// the accept route before the sign-in route that shares its template.
func RegisterStrategyRoutes[T any](app router.Router[T], registry *Registry) {
	for _, strategy := range registry.Strategies() {
		RegisterStrategy(app, strategy)
	}
}

// RegisterStrategy mounts a single strategy's routes.
func RegisterStrategy[T any](app router.Router[T], strategy Strategy) {
	for _, route := range strategy.Routes() {
		phase := route.Phase
		handler := func(c router.Context) error {
			return strategy.Dispatch(phase, c)
		}

		name := strategy.Resource().SubjectName + "." + strategy.Name() + "." + string(phase)

		switch strategy.MethodForPhase(phase) {
		case http.MethodPost:
			app.Post(route.Template, handler).SetName(name)
		default:
			app.Get(route.Template, handler).SetName(name)
		}
	}
}

// signInPayload is the body of an interactive sign-in confirmation.
type signInPayload struct {
	Token string `json:"token" form:"token"`
}

func handleRequestPhase(s Strategy, c router.Context) error {
	payload := new(RequestLinkMessage)
	if err := c.Bind(payload); err != nil {
		return err
	}

	if _, err := s.InvokeAction(c.Context(), PhaseRequest, ActionParams{
		Email: payload.Email,
	}, ActionOptions{
		Tenant: payload.Tenant,
	}); err != nil {
		return err
	}

	// identical response whether or not the address matched a record
	return c.JSON(http.StatusAccepted, map[string]any{
		"status": "ok",
	})
}

// handleAcceptPhase hands the pending token back to the caller; the web
// layer decides how to render the confirmation step. The token is not
// consumed until the user submits it to the sign-in phase.
func handleAcceptPhase(s Strategy, c router.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"token":  c.Query("token"),
		"action": c.Path(),
		"method": s.MethodForPhase(PhaseSignIn),
	})
}

// handleSignInPhase runs the pipeline. Pipeline errors are forwarded
// unchanged to the routing layer's error handling.
func handleSignInPhase(s Strategy, c router.Context) error {
	token := c.Query("token")
	if token == "" {
		payload := new(signInPayload)
		if err := c.Bind(payload); err != nil {
			return err
		}
		token = payload.Token
	}

	result, err := s.InvokeAction(c.Context(), PhaseSignIn, ActionParams{
		Token: token,
	}, ActionOptions{})
	if err != nil {
		return err
	}

	signIn, ok := result.(*SignInResult)
	if !ok {
		return c.JSON(http.StatusOK, result)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"record": signIn.Record,
		"token":  signIn.Token,
	})
}
