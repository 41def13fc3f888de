package core

import (
	"context"
	"net/url"
	"strings"
)

// AuthorizationURLRequest parameterizes one authorization flow. UserID
// binds the flow to a user through the anti-forgery state token when
// an application secret is configured. RedirectURI overrides the
// instance default for this flow only.
type AuthorizationURLRequest struct {
	UserID      string
	RedirectURI string
}

// AuthorizationURLResponse carries the redirect target plus the
// AuthSession value the caller may thread back into ExchangeCode.
type AuthorizationURLResponse struct {
	URL     string
	State   string
	Session AuthSession
}

// AuthorizationURL builds the provider authorization URL for one user
// flow. Each call produces an independent AuthSession keyed by its
// state parameter; nothing is shared between concurrent flows.
func (m *Merchant) AuthorizationURL(ctx context.Context, req AuthorizationURLRequest) (AuthorizationURLResponse, error) {
	if m == nil {
		return AuthorizationURLResponse{}, newInternalError("merchant is nil")
	}
	startedAt := m.now()

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = m.redirectURI
	}

	userID := strings.TrimSpace(req.UserID)
	state := ""
	var err error
	if userID != "" && m.appSecret != "" {
		state, err = GenerateStateTokenAt(m.appSecret, userID, m.now().Add(m.config.StateTokenTTL()))
	} else {
		state, err = generateRandomState()
	}
	if err != nil {
		m.observeOperation(ctx, startedAt, "authorization_url", err, map[string]any{"user_id": userID})
		return AuthorizationURLResponse{}, err
	}

	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", m.secrets.ClientID())
	if redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	values.Set("scope", m.scope.String())
	values.Set("state", state)

	authURL := m.secrets.AuthURI()
	if strings.Contains(authURL, "?") {
		authURL += "&" + values.Encode()
	} else {
		authURL += "?" + values.Encode()
	}

	session := AuthSession{
		State:       state,
		UserID:      userID,
		RedirectURI: redirectURI,
		Scope:       m.Scope(),
		CreatedAt:   m.now(),
		ExpiresAt:   m.now().Add(m.config.StateTokenTTL()),
	}
	if m.sessions != nil {
		if err := m.sessions.Save(ctx, session); err != nil {
			m.observeOperation(ctx, startedAt, "authorization_url", err, map[string]any{"user_id": userID})
			return AuthorizationURLResponse{}, err
		}
	}

	m.observeOperation(ctx, startedAt, "authorization_url", nil, map[string]any{"user_id": userID})
	return AuthorizationURLResponse{URL: authURL, State: state, Session: session}, nil
}

// ExchangeCodeRequest carries the callback query parameters. UserID
// triggers state-token validation when an application secret is
// configured.
type ExchangeCodeRequest struct {
	Query       url.Values
	UserID      string
	RedirectURI string
}

// ExchangeCode validates the callback and exchanges its code for a
// credential. State validation applies only when an application secret
// is configured; without one the state is the random per-flow value and
// carries no user binding. A state mismatch fails with the cross-site
// kind and performs no exchange. The flow session is looked up by state
// but its absence is tolerated, so a process restart between the
// authorize and exchange steps does not strand the user.
func (m *Merchant) ExchangeCode(ctx context.Context, req ExchangeCodeRequest) (Credential, error) {
	if m == nil {
		return Credential{}, newInternalError("merchant is nil")
	}
	startedAt := m.now()
	userID := strings.TrimSpace(req.UserID)
	fields := map[string]any{"user_id": userID}

	fail := func(err error) (Credential, error) {
		m.observeOperation(ctx, startedAt, "exchange_code", err, fields)
		return Credential{}, err
	}

	state := strings.TrimSpace(req.Query.Get("state"))
	if userID != "" && state != "" && m.appSecret != "" {
		if !ValidateStateToken(m.appSecret, state, userID) {
			return fail(NewCrossSiteRequestError("authorization state does not match user"))
		}
	}

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if state != "" && m.sessions != nil {
		if session, err := m.sessions.Consume(ctx, state); err == nil {
			if redirectURI == "" {
				redirectURI = session.RedirectURI
			}
		}
	}
	if redirectURI == "" {
		redirectURI = m.redirectURI
	}

	code := strings.TrimSpace(req.Query.Get("code"))
	if code == "" {
		return fail(newBadInputError("callback query is missing the authorization code"))
	}
	if m.exchanger == nil {
		return fail(newInternalError("code exchanger is not configured"))
	}

	credential, err := m.exchanger.Exchange(ctx, ExchangeRequest{
		Code:        code,
		RedirectURI: redirectURI,
		Scope:       m.Scope(),
	})
	if err != nil {
		return fail(err)
	}
	if credential.Empty() {
		return fail(NewMalformedResponseError(nil))
	}

	m.observeOperation(ctx, startedAt, "exchange_code", nil, fields)
	return credential, nil
}
