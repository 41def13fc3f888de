package oauth

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-merchant/core"
)

const (
	defaultTokenRequestTimeout = 30 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config parameterizes the code exchanger. ClientSecret travels in the
// request body, which is what the provider's token endpoint expects.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string

	TokenRequestTimeout time.Duration

	// AllowInsecureTransport disables TLS certificate verification for
	// the exchange. Only for sandbox deployments whose certificates do
	// not validate; never enable against production.
	AllowInsecureTransport bool

	HTTPClient HTTPDoer
	Now        func() time.Time
}

// CodeExchanger swaps an authorization code for a bearer credential.
type CodeExchanger struct {
	cfg        Config
	httpClient HTTPDoer
}

// NewCodeExchanger builds an exchanger for one merchant's client pair.
func NewCodeExchanger(cfg Config) (*CodeExchanger, error) {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	if cfg.ClientID == "" {
		return nil, core.NewConfigurationError("client id is required", nil)
	}
	if cfg.ClientSecret == "" {
		return nil, core.NewConfigurationError("client secret is required", nil)
	}
	if cfg.TokenURL == "" {
		return nil, core.NewConfigurationError("token url is required", nil)
	}
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		client := &http.Client{Timeout: cfg.TokenRequestTimeout}
		if cfg.AllowInsecureTransport {
			client.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
		httpClient = client
	}

	return &CodeExchanger{cfg: cfg, httpClient: httpClient}, nil
}

// NewCodeExchangerForSecrets wires an exchanger from the immutable
// client secrets.
func NewCodeExchangerForSecrets(secrets core.ClientSecrets) (*CodeExchanger, error) {
	return NewCodeExchanger(Config{
		ClientID:     secrets.ClientID(),
		ClientSecret: secrets.ClientSecret(),
		TokenURL:     secrets.TokenURI(),
	})
}

func (e *CodeExchanger) Exchange(ctx context.Context, req core.ExchangeRequest) (core.Credential, error) {
	if e == nil || e.httpClient == nil {
		return core.Credential{}, core.NewConfigurationError("code exchanger is not configured", nil)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return core.Credential{}, core.NewConfigurationError("authorization code is required", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", e.cfg.ClientID)
	form.Set("client_secret", e.cfg.ClientSecret)
	if redirectURI := strings.TrimSpace(req.RedirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if len(req.Scope) > 0 {
		form.Set("scope", req.Scope.String())
	}

	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, e.cfg.TokenRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		e.cfg.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.Credential{}, core.NewConfigurationError("build token request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := e.httpClient.Do(httpReq)
	if err != nil {
		if requestCtx.Err() != nil {
			return core.Credential{}, timeoutError(err)
		}
		return core.Credential{}, core.NewMalformedResponseError(err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return core.Credential{}, core.NewMalformedResponseError(readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return core.Credential{}, core.NewMalformedResponseError(nil)
	}

	if response.StatusCode != http.StatusOK {
		return core.Credential{}, core.NewRequestRejectedError(response.StatusCode)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return core.Credential{}, core.NewMalformedResponseError(parseErr)
	}
	if payload.ErrorCode != "" {
		return core.Credential{}, core.NewAccessTokenError(describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.Credential{}, core.NewMalformedResponseError(nil)
	}

	var expiresAt *time.Time
	if payload.ExpiresIn > 0 {
		value := e.cfg.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
		expiresAt = &value
	}

	return core.Credential{
		TokenType:    normalizeTokenType(payload.TokenType),
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		ExpiresAt:    expiresAt,
		Metadata: map[string]any{
			"token_url": e.cfg.TokenURL,
			"scope":     strings.TrimSpace(payload.Scope),
		},
	}, nil
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, errEmptyPayload
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, errEmptyPayload
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "token endpoint reported an error"
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

var _ core.CodeExchanger = (*CodeExchanger)(nil)
