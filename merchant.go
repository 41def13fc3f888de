package merchant

import (
	"github.com/goliatone/go-merchant/core"
	"github.com/goliatone/go-merchant/oauth"
	"github.com/goliatone/go-merchant/transport"
)

type Config = core.Config

type Option = core.Option

type Merchant = core.Merchant

type ClientSecrets = core.ClientSecrets
type ClientSecretsConfig = core.ClientSecretsConfig
type Credential = core.Credential
type ScopeSet = core.ScopeSet
type UserInfo = core.UserInfo
type Character = core.Character
type Transaction = core.Transaction
type AuthSession = core.AuthSession
type AuthSessionStore = core.AuthSessionStore
type TransportAdapter = core.TransportAdapter
type TransportRequest = core.TransportRequest
type TransportResponse = core.TransportResponse
type CodeExchanger = core.CodeExchanger
type MetricsRecorder = core.MetricsRecorder
type Signer = core.Signer

type AuthorizationURLRequest = core.AuthorizationURLRequest
type AuthorizationURLResponse = core.AuthorizationURLResponse
type ExchangeCodeRequest = core.ExchangeCodeRequest
type PurchaseRequest = core.PurchaseRequest

var (
	WithConfig           = core.WithConfig
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithTransport        = core.WithTransport
	WithSigner           = core.WithSigner
	WithCodeExchanger    = core.WithCodeExchanger
	WithAuthSessionStore = core.WithAuthSessionStore
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithClock            = core.WithClock
)

var (
	IsConfigurationError     = core.IsConfigurationError
	IsCrossSiteRequestError  = core.IsCrossSiteRequestError
	IsRequestRejectedError   = core.IsRequestRejectedError
	IsAccessTokenError       = core.IsAccessTokenError
	IsUserInfoLookupError    = core.IsUserInfoLookupError
	IsTransactionFailedError = core.IsTransactionFailedError
	IsCharacterAccessError   = core.IsCharacterAccessError
	IsProductAccessError     = core.IsProductAccessError
	IsMalformedResponseError = core.IsMalformedResponseError
	IsTimeoutError           = core.IsTimeoutError
	IsCapabilityError        = core.IsCapabilityError
	FailureReason            = core.FailureReason
	RejectedStatus           = core.RejectedStatus
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewClientSecrets(cfg ClientSecretsConfig) (ClientSecrets, error) {
	return core.NewClientSecrets(cfg)
}

func ClientSecretsFromProfile(path string, sandbox bool) (ClientSecrets, error) {
	return core.ClientSecretsFromProfile(path, sandbox)
}

// NewMerchant builds a Merchant with explicit options; no transports or
// exchangers are assumed.
func NewMerchant(secrets ClientSecrets, options ...Option) (*Merchant, error) {
	return core.NewMerchant(secrets, options...)
}

// New builds a fully wired Merchant: REST transport against the
// provider and a code exchanger bound to the secrets' token endpoint.
// Options may still override either.
func New(secrets ClientSecrets, options ...Option) (*Merchant, error) {
	exchanger, err := oauth.NewCodeExchangerForSecrets(secrets)
	if err != nil {
		return nil, err
	}
	wired := make([]Option, 0, len(options)+2)
	wired = append(wired,
		core.WithTransport(transport.NewRESTAdapter(nil)),
		core.WithCodeExchanger(exchanger),
	)
	wired = append(wired, options...)
	return core.NewMerchant(secrets, wired...)
}
