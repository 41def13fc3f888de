package core

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ProductionHost is the default Gloebit deployment.
	ProductionHost = "www.gloebit.com"
	// SandboxHost is the non-production deployment used for testing.
	SandboxHost = "sandbox.gloebit.com"
)

const (
	authorizePath = "/oauth2/authorize"
	tokenPath     = "/oauth2/access-token"
	visitPath     = "/purchase/"

	userPath     = "/user/"
	transactPath = "/transact/"

	userCharactersPath    = "/get-user-characters/"
	updateCharacterPath   = "/update-character/"
	deleteCharacterPath   = "/delete-character/"
	userProductsPath      = "/get-user-products/"
	characterProductsPath = "/get-character-products/"

	grantUserProductPath        = "/grant-user-product/"
	grantCharacterProductPath   = "/grant-character-product/"
	consumeUserProductPath      = "/consume-user-product/"
	consumeCharacterProductPath = "/consume-character-product/"
)

// Capability names the provider recognizes in the authorization scope.
const (
	ScopeTransact  = "transact"
	ScopeInventory = "inventory"
	ScopeCharacter = "character"
	ScopeUser      = "user"
)

// ScopeSet is a normalized (trimmed, lowercased, deduplicated, sorted)
// set of capability names.
type ScopeSet []string

func NewScopeSet(values ...string) ScopeSet {
	if len(values) == 0 {
		return ScopeSet{}
	}
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		for _, part := range strings.Fields(strings.ReplaceAll(value, ",", " ")) {
			normalized := strings.TrimSpace(strings.ToLower(part))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; ok {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, normalized)
		}
	}
	sort.Strings(out)
	return ScopeSet(out)
}

// DefaultScope requests every capability the provider offers, matching
// the default a freshly registered merchant is granted.
func DefaultScope() ScopeSet {
	return NewScopeSet(ScopeTransact, ScopeInventory, ScopeCharacter, ScopeUser)
}

func (s ScopeSet) Has(capability string) bool {
	capability = strings.TrimSpace(strings.ToLower(capability))
	for _, value := range s {
		if value == capability {
			return true
		}
	}
	return false
}

func (s ScopeSet) Values() []string {
	return append([]string(nil), s...)
}

// String renders the scope the way the authorization request carries
// it, space separated.
func (s ScopeSet) String() string {
	return strings.Join(s, " ")
}

// ClientSecretsConfig carries the raw inputs for NewClientSecrets.
type ClientSecretsConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURI      string
	TokenURI     string
	VisitURI     string
	Sandbox      bool
}

// ClientSecrets is the immutable holder of the merchant's OAuth2
// client pair and the three provider endpoints. Construct once per
// deployment and share freely.
type ClientSecrets struct {
	clientID     string
	clientSecret string
	redirectURI  string
	authURI      string
	tokenURI     string
	visitURI     string
	sandbox      bool
}

// NewClientSecrets resolves the endpoint set for a merchant. Sandbox
// wins: when cfg.Sandbox is set the three endpoints are forced to the
// sandbox host regardless of explicit values. Otherwise each endpoint
// falls back to the production host only when not supplied.
func NewClientSecrets(cfg ClientSecretsConfig) (ClientSecrets, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" {
		return ClientSecrets{}, NewConfigurationError("client id is required", nil)
	}
	if clientSecret == "" {
		return ClientSecrets{}, NewConfigurationError("client secret is required", nil)
	}

	secrets := ClientSecrets{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  strings.TrimSpace(cfg.RedirectURI),
		authURI:      strings.TrimSpace(cfg.AuthURI),
		tokenURI:     strings.TrimSpace(cfg.TokenURI),
		visitURI:     strings.TrimSpace(cfg.VisitURI),
		sandbox:      cfg.Sandbox,
	}

	if cfg.Sandbox {
		secrets.authURI = endpointURL(SandboxHost, authorizePath)
		secrets.tokenURI = endpointURL(SandboxHost, tokenPath)
		secrets.visitURI = endpointURL(SandboxHost, visitPath)
	} else {
		if secrets.authURI == "" {
			secrets.authURI = endpointURL(ProductionHost, authorizePath)
		}
		if secrets.tokenURI == "" {
			secrets.tokenURI = endpointURL(ProductionHost, tokenPath)
		}
		if secrets.visitURI == "" {
			secrets.visitURI = endpointURL(ProductionHost, visitPath)
		}
	}

	if _, err := hostFromURI(secrets.authURI); err != nil {
		return ClientSecrets{}, err
	}
	return secrets, nil
}

func (s ClientSecrets) ClientID() string     { return s.clientID }
func (s ClientSecrets) ClientSecret() string { return s.clientSecret }
func (s ClientSecrets) RedirectURI() string  { return s.redirectURI }
func (s ClientSecrets) AuthURI() string      { return s.authURI }
func (s ClientSecrets) TokenURI() string     { return s.tokenURI }
func (s ClientSecrets) VisitURI() string     { return s.visitURI }
func (s ClientSecrets) Sandbox() bool        { return s.sandbox }

// UserInfo is the provider's view of the authorizing user. Zero-value
// fields mean the reply omitted them; Params is nil when unset.
type UserInfo struct {
	ID     string
	Name   string
	Params map[string]any
}

// Character is a per-merchant persona the user plays as.
type Character struct {
	ID     string
	Name   string
	Params map[string]any
}

// TransactionVersion is the wire version of the transaction record.
const TransactionVersion = 1

// Transaction is the outbound purchase record. ID is freshly generated
// per submission attempt and acts as the provider-side idempotency key
// for deduplicating network retries. Re-submitting the same semantic
// purchase requires a new record.
type Transaction struct {
	Version        int    `json:"version"`
	ID             string `json:"id"`
	CreatedAt      int64  `json:"request-created"`
	Product        string `json:"product"`
	ConsumerKey    string `json:"consumer-key"`
	MerchantUserID string `json:"merchant-user-id"`
	CharacterID    string `json:"character-id,omitempty"`
}

// NewTransaction builds a transaction record with a fresh unique id.
func NewTransaction(consumerKey, product, merchantUserID string, now time.Time) Transaction {
	return Transaction{
		Version:        TransactionVersion,
		ID:             uuid.NewString(),
		CreatedAt:      now.UTC().Unix(),
		Product:        strings.TrimSpace(product),
		ConsumerKey:    strings.TrimSpace(consumerKey),
		MerchantUserID: strings.TrimSpace(merchantUserID),
	}
}

func endpointURL(host, path string) string {
	return (&url.URL{Scheme: "https", Host: host, Path: path}).String()
}

func hostFromURI(value string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", NewConfigurationError(fmt.Sprintf("parse endpoint uri %q", value), err)
	}
	host := strings.TrimSpace(parsed.Host)
	if host == "" {
		return "", NewConfigurationError(fmt.Sprintf("endpoint uri %q has no host", value), nil)
	}
	return host, nil
}
