package oauth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-merchant/core"
)

type scriptedDoer struct {
	status      int
	contentType string
	body        string
	err         error
	request     *http.Request
	form        url.Values
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.request = req
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		d.form, _ = url.ParseQuery(string(raw))
	}
	if d.err != nil {
		return nil, d.err
	}
	header := http.Header{}
	if d.contentType != "" {
		header.Set("Content-Type", d.contentType)
	}
	return &http.Response{
		StatusCode: d.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func testExchanger(t *testing.T, doer *scriptedDoer) *CodeExchanger {
	t.Helper()
	exchanger, err := NewCodeExchanger(Config{
		ClientID:     "key-1",
		ClientSecret: "secret-1",
		TokenURL:     "https://www.gloebit.com/oauth2/access-token",
		HTTPClient:   doer,
		Now:          func() time.Time { return time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new exchanger: %v", err)
	}
	return exchanger
}

func TestExchange_Succeeds(t *testing.T) {
	doer := &scriptedDoer{
		status:      200,
		contentType: "application/json",
		body:        `{"access_token":"tok-1","token_type":"Bearer","refresh_token":"ref-1","expires_in":3600,"scope":"user transact"}`,
	}
	exchanger := testExchanger(t, doer)

	credential, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{
		Code:        "auth-code",
		RedirectURI: "https://merchant.test/cb",
		Scope:       core.NewScopeSet("user", "transact"),
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if credential.AccessToken != "tok-1" || credential.RefreshToken != "ref-1" {
		t.Fatalf("unexpected credential %+v", credential)
	}
	if credential.TokenType != "bearer" {
		t.Fatalf("expected normalized token type, got %q", credential.TokenType)
	}
	expected := time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC)
	if credential.ExpiresAt == nil || !credential.ExpiresAt.Equal(expected) {
		t.Fatalf("expected expiry derived from expires_in, got %v", credential.ExpiresAt)
	}

	if doer.form.Get("grant_type") != "authorization_code" {
		t.Fatalf("unexpected grant type %q", doer.form.Get("grant_type"))
	}
	if doer.form.Get("code") != "auth-code" || doer.form.Get("client_id") != "key-1" {
		t.Fatalf("unexpected form %v", doer.form)
	}
	if doer.form.Get("client_secret") != "secret-1" {
		t.Fatalf("expected client secret in body")
	}
	if doer.form.Get("redirect_uri") != "https://merchant.test/cb" {
		t.Fatalf("expected redirect uri forwarded")
	}
	if doer.request.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", doer.request.Header.Get("Content-Type"))
	}
}

func TestExchange_ParsesFormEncodedReply(t *testing.T) {
	doer := &scriptedDoer{
		status:      200,
		contentType: "application/x-www-form-urlencoded",
		body:        "access_token=tok-2&token_type=bearer&expires_in=60",
	}
	exchanger := testExchanger(t, doer)

	credential, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{Code: "auth-code"})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if credential.AccessToken != "tok-2" {
		t.Fatalf("unexpected credential %+v", credential)
	}
}

func TestExchange_ErrorPayloadIsAccessTokenError(t *testing.T) {
	doer := &scriptedDoer{
		status:      200,
		contentType: "application/json",
		body:        `{"error":"invalid_grant","error_description":"code already used"}`,
	}
	exchanger := testExchanger(t, doer)

	_, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{Code: "auth-code"})
	if !core.IsAccessTokenError(err) {
		t.Fatalf("expected access token error, got %v", err)
	}
}

func TestExchange_NonOKIsRejected(t *testing.T) {
	doer := &scriptedDoer{status: 503, contentType: "text/html", body: "<html>down</html>"}
	exchanger := testExchanger(t, doer)

	_, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{Code: "auth-code"})
	if !core.IsRequestRejectedError(err) {
		t.Fatalf("expected request rejected, got %v", err)
	}
	if core.RejectedStatus(err) != 503 {
		t.Fatalf("expected 503 carried, got %d", core.RejectedStatus(err))
	}
}

func TestExchange_MissingAccessTokenIsMalformed(t *testing.T) {
	doer := &scriptedDoer{status: 200, contentType: "application/json", body: `{"token_type":"bearer"}`}
	exchanger := testExchanger(t, doer)

	_, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{Code: "auth-code"})
	if !core.IsMalformedResponseError(err) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestExchange_RequiresCode(t *testing.T) {
	exchanger := testExchanger(t, &scriptedDoer{status: 200})

	if _, err := exchanger.Exchange(context.Background(), core.ExchangeRequest{}); !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewCodeExchanger_ValidatesConfig(t *testing.T) {
	_, err := NewCodeExchanger(Config{ClientSecret: "secret", TokenURL: "https://t"})
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for missing client id, got %v", err)
	}
	_, err = NewCodeExchanger(Config{ClientID: "key", ClientSecret: "secret"})
	if !core.IsConfigurationError(err) {
		t.Fatalf("expected configuration error for missing token url, got %v", err)
	}
}

func TestNewCodeExchangerForSecrets_UsesTokenEndpoint(t *testing.T) {
	secrets, err := core.NewClientSecrets(core.ClientSecretsConfig{
		ClientID:     "key-1",
		ClientSecret: "secret-1",
		Sandbox:      true,
	})
	if err != nil {
		t.Fatalf("new client secrets: %v", err)
	}
	exchanger, err := NewCodeExchangerForSecrets(secrets)
	if err != nil {
		t.Fatalf("new exchanger: %v", err)
	}
	if exchanger.cfg.TokenURL != "https://sandbox.gloebit.com/oauth2/access-token" {
		t.Fatalf("unexpected token url %q", exchanger.cfg.TokenURL)
	}
}
