package core

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"testing"
)

type scriptedResponse struct {
	status int
	body   string
	err    error
}

type fakeTransport struct {
	mu       sync.Mutex
	scripts  []scriptedResponse
	requests []TransportRequest
}

func (f *fakeTransport) Kind() string { return "fake" }

func (f *fakeTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	index := len(f.requests) - 1
	if index >= len(f.scripts) {
		return TransportResponse{StatusCode: 200, Body: []byte(`{"success":true}`)}, nil
	}
	script := f.scripts[index]
	if script.err != nil {
		return TransportResponse{}, script.err
	}
	return TransportResponse{StatusCode: script.status, Body: []byte(script.body)}, nil
}

type fakeExchanger struct {
	mu         sync.Mutex
	credential Credential
	err        error
	requests   []ExchangeRequest
}

func (f *fakeExchanger) Exchange(_ context.Context, req ExchangeRequest) (Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return Credential{}, f.err
	}
	return f.credential, nil
}

func testSecrets(t *testing.T, sandbox bool) ClientSecrets {
	t.Helper()
	secrets, err := NewClientSecrets(ClientSecretsConfig{
		ClientID:     "key-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://merchant.test/callback",
		Sandbox:      sandbox,
	})
	if err != nil {
		t.Fatalf("new client secrets: %v", err)
	}
	return secrets
}

func testMerchant(t *testing.T, cfg Config, transport *fakeTransport, exchanger *fakeExchanger) *Merchant {
	t.Helper()
	options := []Option{WithConfig(cfg)}
	if transport != nil {
		options = append(options, WithTransport(transport))
	}
	if exchanger != nil {
		options = append(options, WithCodeExchanger(exchanger))
	}
	m, err := NewMerchant(testSecrets(t, false), options...)
	if err != nil {
		t.Fatalf("new merchant: %v", err)
	}
	return m
}

func TestVisitURL_CarriesReturnAddressAndConsumerKey(t *testing.T) {
	m := testMerchant(t, Config{}, &fakeTransport{}, nil)

	visit := m.VisitURL("https://merchant.test/")
	parsed, err := url.Parse(visit)
	if err != nil {
		t.Fatalf("parse visit url: %v", err)
	}
	values := parsed.Query()
	if values.Get("return-to") != "https://merchant.test/" {
		t.Fatalf("expected return-to param, got %q", visit)
	}
	if values.Get("r") != "key-1" {
		t.Fatalf("expected consumer key param, got %q", visit)
	}
}

func TestUserInfo_ParsesReply(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true,"id":"u1","name":"Alice"}`},
	}}
	m := testMerchant(t, Config{}, transport, nil)

	info, err := m.UserInfo(context.Background(), Credential{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if info == nil || info.ID != "u1" || info.Name != "Alice" {
		t.Fatalf("unexpected user info %+v", info)
	}
	if info.Params != nil {
		t.Fatalf("expected nil params when reply omits them")
	}

	if len(transport.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(transport.requests))
	}
	req := transport.requests[0]
	if req.Method != "GET" {
		t.Fatalf("expected GET, got %s", req.Method)
	}
	if req.URL != "https://www.gloebit.com/user/" {
		t.Fatalf("unexpected endpoint %q", req.URL)
	}
	if req.Headers["Authorization"] != "Bearer tok" {
		t.Fatalf("expected bearer auth header, got %q", req.Headers["Authorization"])
	}
}

func TestUserInfo_SkipsCallWithoutCapability(t *testing.T) {
	transport := &fakeTransport{}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	info, err := m.UserInfo(context.Background(), Credential{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("user info: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info without the user capability")
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no network call, saw %d", len(transport.requests))
	}
}

func TestEndpoints_DeriveFromSandboxAuthHost(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true,"id":"u1"}`},
	}}
	m, err := NewMerchant(testSecrets(t, true), WithConfig(Config{}), WithTransport(transport))
	if err != nil {
		t.Fatalf("new merchant: %v", err)
	}

	if _, err := m.UserInfo(context.Background(), Credential{AccessToken: "tok"}); err != nil {
		t.Fatalf("user info: %v", err)
	}
	if transport.requests[0].URL != "https://sandbox.gloebit.com/user/" {
		t.Fatalf("expected sandbox endpoint, got %q", transport.requests[0].URL)
	}
}

func TestPurchase_TokenSentinelBecomesAccessTokenError(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":false,"reason":"unknown token2"}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "stale"}, PurchaseRequest{Product: "teapot", Username: "alice"})
	if !IsAccessTokenError(err) {
		t.Fatalf("expected access token error, got %v", err)
	}
}

func TestPurchase_FailureReasonSurfaces(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":false,"reason":"insufficient balance"}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot", Username: "alice"})
	if !IsTransactionFailedError(err) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if FailureReason(err) != "insufficient balance" {
		t.Fatalf("expected reason carried, got %q", FailureReason(err))
	}
}

func TestPurchase_NonOKRejectsWithoutParsing(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 503, body: `<html>down</html>`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot", Username: "alice"})
	if !IsRequestRejectedError(err) {
		t.Fatalf("expected request rejected, got %v", err)
	}
	if RejectedStatus(err) != 503 {
		t.Fatalf("expected 503 carried, got %d", RejectedStatus(err))
	}
}

func TestPurchase_DegradesToUnknownUserWithoutUserScope(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(transport.requests) != 1 {
		t.Fatalf("expected a single request with no lookup, got %d", len(transport.requests))
	}

	var tx Transaction
	if err := json.Unmarshal(transport.requests[0].Body, &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.MerchantUserID != UnknownMerchantUser {
		t.Fatalf("expected degraded identity, got %q", tx.MerchantUserID)
	}
	if tx.ConsumerKey != "key-1" || tx.Product != "teapot" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if transport.requests[0].Idempotency != tx.ID {
		t.Fatalf("expected transaction id as idempotency key")
	}
}

func TestPurchase_ResolvesUsernameThroughLookup(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true,"id":"u1","name":"Alice"}`},
		{status: 200, body: `{"success":true}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact, ScopeUser}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(transport.requests) != 2 {
		t.Fatalf("expected lookup plus submission, got %d requests", len(transport.requests))
	}

	var tx Transaction
	if err := json.Unmarshal(transport.requests[1].Body, &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.MerchantUserID != "Alice" {
		t.Fatalf("expected resolved username, got %q", tx.MerchantUserID)
	}
}

func TestPurchase_EmptyLookupNameDegradesToUnknown(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true,"id":"u1","name":""}`},
		{status: 200, body: `{"success":true}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact, ScopeUser}}, transport, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	var tx Transaction
	if err := json.Unmarshal(transport.requests[1].Body, &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.MerchantUserID != UnknownMerchantUser {
		t.Fatalf("expected degraded identity for a blank lookup name, got %q", tx.MerchantUserID)
	}
}

func TestPurchase_RequiresTransactCapability(t *testing.T) {
	m := testMerchant(t, Config{Scope: []string{ScopeUser}}, &fakeTransport{}, nil)

	err := m.Purchase(context.Background(), Credential{AccessToken: "tok"}, PurchaseRequest{Product: "teapot"})
	if !IsCapabilityError(err) {
		t.Fatalf("expected capability error, got %v", err)
	}
}

func TestPurchaseCharacterProduct_AttributesCharacter(t *testing.T) {
	transport := &fakeTransport{scripts: []scriptedResponse{
		{status: 200, body: `{"success":true}`},
	}}
	m := testMerchant(t, Config{Scope: []string{ScopeTransact}}, transport, nil)

	err := m.PurchaseCharacterProduct(context.Background(), Credential{AccessToken: "tok"}, "char-9", "teapot")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	var tx Transaction
	if err := json.Unmarshal(transport.requests[0].Body, &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	if tx.CharacterID != "char-9" {
		t.Fatalf("expected character attribution, got %+v", tx)
	}
}

func TestAuthorizationURL_BindsStateToUser(t *testing.T) {
	m := testMerchant(t, Config{ApplicationSecret: "app-secret"}, &fakeTransport{}, nil)

	response, err := m.AuthorizationURL(context.Background(), AuthorizationURLRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	parsed, err := url.Parse(response.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	values := parsed.Query()
	if values.Get("response_type") != "code" || values.Get("client_id") != "key-1" {
		t.Fatalf("unexpected query %q", parsed.RawQuery)
	}
	if values.Get("redirect_uri") != "https://merchant.test/callback" {
		t.Fatalf("expected redirect uri from secrets, got %q", values.Get("redirect_uri"))
	}
	if !strings.Contains(values.Get("scope"), ScopeTransact) {
		t.Fatalf("expected scope in query, got %q", values.Get("scope"))
	}
	if !ValidateStateToken("app-secret", values.Get("state"), "alice") {
		t.Fatalf("expected state token bound to the user")
	}
	if response.Session.State != values.Get("state") {
		t.Fatalf("expected session keyed by state")
	}
}

func TestAuthorizationURL_AnonymousFlowsGetDistinctStates(t *testing.T) {
	m := testMerchant(t, Config{}, &fakeTransport{}, nil)

	first, err := m.AuthorizationURL(context.Background(), AuthorizationURLRequest{})
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	second, err := m.AuthorizationURL(context.Background(), AuthorizationURLRequest{})
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	if first.State == "" || first.State == second.State {
		t.Fatalf("expected distinct random states per flow")
	}
}

func TestExchangeCode_Succeeds(t *testing.T) {
	exchanger := &fakeExchanger{credential: Credential{AccessToken: "granted"}}
	m := testMerchant(t, Config{ApplicationSecret: "app-secret"}, &fakeTransport{}, exchanger)

	flow, err := m.AuthorizationURL(context.Background(), AuthorizationURLRequest{
		UserID:      "alice",
		RedirectURI: "https://merchant.test/other-callback",
	})
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}

	query := url.Values{}
	query.Set("code", "auth-code-1")
	query.Set("state", flow.State)

	credential, err := m.ExchangeCode(context.Background(), ExchangeCodeRequest{Query: query, UserID: "alice"})
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if credential.AccessToken != "granted" {
		t.Fatalf("unexpected credential %+v", credential)
	}

	if len(exchanger.requests) != 1 {
		t.Fatalf("expected one exchange, got %d", len(exchanger.requests))
	}
	if exchanger.requests[0].Code != "auth-code-1" {
		t.Fatalf("unexpected code %q", exchanger.requests[0].Code)
	}
	if exchanger.requests[0].RedirectURI != "https://merchant.test/other-callback" {
		t.Fatalf("expected redirect uri recovered from the flow session, got %q", exchanger.requests[0].RedirectURI)
	}
}

func TestExchangeCode_UserFlowWithoutAppSecretCompletes(t *testing.T) {
	exchanger := &fakeExchanger{credential: Credential{AccessToken: "granted"}}
	m := testMerchant(t, Config{}, &fakeTransport{}, exchanger)

	flow, err := m.AuthorizationURL(context.Background(), AuthorizationURLRequest{UserID: "alice"})
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	if flow.State == "" {
		t.Fatalf("expected a random state even without an application secret")
	}

	query := url.Values{}
	query.Set("code", "auth-code-1")
	query.Set("state", flow.State)

	credential, err := m.ExchangeCode(context.Background(), ExchangeCodeRequest{Query: query, UserID: "alice"})
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if credential.AccessToken != "granted" {
		t.Fatalf("unexpected credential %+v", credential)
	}
}

func TestExchangeCode_StateMismatchPerformsNoExchange(t *testing.T) {
	exchanger := &fakeExchanger{credential: Credential{AccessToken: "granted"}}
	m := testMerchant(t, Config{ApplicationSecret: "app-secret"}, &fakeTransport{}, exchanger)

	state, err := GenerateStateToken("app-secret", "mallory")
	if err != nil {
		t.Fatalf("generate state: %v", err)
	}
	query := url.Values{}
	query.Set("code", "auth-code-1")
	query.Set("state", state)

	credential, err := m.ExchangeCode(context.Background(), ExchangeCodeRequest{Query: query, UserID: "alice"})
	if !IsCrossSiteRequestError(err) {
		t.Fatalf("expected cross-site request error, got %v", err)
	}
	if !credential.Empty() {
		t.Fatalf("expected no credential on rejection")
	}
	if len(exchanger.requests) != 0 {
		t.Fatalf("expected no exchange attempt, saw %d", len(exchanger.requests))
	}
}

func TestExchangeCode_MissingCodeFails(t *testing.T) {
	m := testMerchant(t, Config{}, &fakeTransport{}, &fakeExchanger{})

	_, err := m.ExchangeCode(context.Background(), ExchangeCodeRequest{Query: url.Values{}})
	if err == nil {
		t.Fatalf("expected error without authorization code")
	}
}

func TestExchangeCode_EmptyCredentialIsMalformed(t *testing.T) {
	m := testMerchant(t, Config{}, &fakeTransport{}, &fakeExchanger{})

	query := url.Values{}
	query.Set("code", "auth-code-1")
	_, err := m.ExchangeCode(context.Background(), ExchangeCodeRequest{Query: query})
	if !IsMalformedResponseError(err) {
		t.Fatalf("expected malformed response for empty credential, got %v", err)
	}
}
