package core

import (
	"context"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Merchant orchestrates one merchant's interactions with the provider:
// authorization URL construction, code-for-credential exchange, user
// and character lookups, product operations, and purchases. Instances
// are independent; a host application may run any number of them.
type Merchant struct {
	secrets ClientSecrets
	config  Config
	scope   ScopeSet

	redirectURI string
	appSecret   string

	userURI              string
	transactURI          string
	userCharactersURI    string
	updateCharacterURI   string
	deleteCharacterURI   string
	userProductsURI      string
	characterProductsURI string

	grantUserProductURI        string
	grantCharacterProductURI   string
	consumeUserProductURI      string
	consumeCharacterProductURI string

	logger    Logger
	metrics   MetricsRecorder
	transport TransportAdapter
	signer    Signer
	exchanger CodeExchanger
	sessions  AuthSessionStore
	now       func() time.Time
}

// NewMerchant builds a Merchant around immutable client secrets. The
// user/transact endpoints (and the supplementary character/product
// ones) derive once from the host of the authorization URI.
func NewMerchant(secrets ClientSecrets, options ...Option) (*Merchant, error) {
	builder := defaultServiceBuilder()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("merchant", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("merchant"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.signer == nil {
		builder.signer = BearerTokenSigner{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, err
	}
	resolved, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, err
	}

	if builder.sessionStore == nil {
		builder.sessionStore = NewMemoryAuthSessionStore(resolved.StateTokenTTL())
	}

	host, err := hostFromURI(secrets.AuthURI())
	if err != nil {
		return nil, err
	}

	redirectURI := strings.TrimSpace(resolved.RedirectURI)
	if redirectURI == "" {
		redirectURI = secrets.RedirectURI()
	}

	return &Merchant{
		secrets: secrets,
		config:  resolved,
		scope:   NewScopeSet(resolved.Scope...),

		redirectURI: redirectURI,
		appSecret:   strings.TrimSpace(resolved.ApplicationSecret),

		userURI:              endpointURL(host, userPath),
		transactURI:          endpointURL(host, transactPath),
		userCharactersURI:    endpointURL(host, userCharactersPath),
		updateCharacterURI:   endpointURL(host, updateCharacterPath),
		deleteCharacterURI:   endpointURL(host, deleteCharacterPath),
		userProductsURI:      endpointURL(host, userProductsPath),
		characterProductsURI: endpointURL(host, characterProductsPath),

		grantUserProductURI:        endpointURL(host, grantUserProductPath),
		grantCharacterProductURI:   endpointURL(host, grantCharacterProductPath),
		consumeUserProductURI:      endpointURL(host, consumeUserProductPath),
		consumeCharacterProductURI: endpointURL(host, consumeCharacterProductPath),

		logger:    logger,
		metrics:   builder.metricsRecorder,
		transport: builder.transport,
		signer:    builder.signer,
		exchanger: builder.exchanger,
		sessions:  builder.sessionStore,
		now:       builder.now,
	}, nil
}

// Scope returns the capabilities this merchant requests authorization
// for.
func (m *Merchant) Scope() ScopeSet {
	if m == nil {
		return ScopeSet{}
	}
	return append(ScopeSet(nil), m.scope...)
}

// Secrets exposes the immutable client secrets the Merchant was built
// with.
func (m *Merchant) Secrets() ClientSecrets {
	if m == nil {
		return ClientSecrets{}
	}
	return m.secrets
}

// VisitURL builds the storefront link for redirecting a user to the
// provider, with the return address and the merchant's consumer key as
// query parameters.
func (m *Merchant) VisitURL(returnTo string) string {
	if m == nil {
		return ""
	}
	values := url.Values{}
	if strings.TrimSpace(returnTo) != "" {
		values.Set("return-to", strings.TrimSpace(returnTo))
	}
	values.Set("r", m.secrets.ClientID())

	visit := m.secrets.VisitURI()
	if strings.Contains(visit, "?") {
		return visit + "&" + values.Encode()
	}
	return visit + "?" + values.Encode()
}

// callEndpoint signs and issues one provider call, then classifies the
// reply through the envelope convention.
func (m *Merchant) callEndpoint(
	ctx context.Context,
	cred Credential,
	method string,
	uri string,
	query map[string]string,
	body []byte,
	failure FailureKind,
	idempotency string,
) (ResponseEnvelope, error) {
	if m == nil {
		return ResponseEnvelope{}, newInternalError("merchant is nil")
	}
	if m.transport == nil {
		return ResponseEnvelope{}, newInternalError("transport adapter is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := TransportRequest{
		Method:      method,
		URL:         uri,
		Headers:     map[string]string{"Accept": "application/json"},
		Query:       query,
		Body:        body,
		Timeout:     m.config.RequestTimeout(),
		Idempotency: idempotency,
	}
	if len(body) > 0 {
		req.Headers["Content-Type"] = "application/json"
	}
	if err := m.signer.Sign(ctx, &req, cred); err != nil {
		return ResponseEnvelope{}, err
	}

	res, err := m.transport.Do(ctx, req)
	if err != nil {
		return ResponseEnvelope{}, err
	}
	return ClassifyResponse(res.StatusCode, res.Body, failure)
}
