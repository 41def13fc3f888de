package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-merchant/core"
)

func TestRESTAdapter_MergesQueryAndHeaders(t *testing.T) {
	var seen *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["X-Default"] = "base"

	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method: "get",
		URL:    server.URL + "/user/?fixed=1",
		Query:  map[string]string{"character-id": "c1"},
		Headers: map[string]string{
			"Accept":   "application/json",
			"X-Custom": "override",
		},
		Idempotency: "txn-1",
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
	if string(res.Body) != `{"success":true}` {
		t.Fatalf("unexpected body %q", res.Body)
	}
	if res.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected flattened headers, got %+v", res.Headers)
	}
	if _, ok := res.Metadata["duration_ms"]; !ok {
		t.Fatalf("expected duration metadata")
	}

	if seen.Method != http.MethodGet {
		t.Fatalf("expected GET, got %s", seen.Method)
	}
	query := seen.URL.Query()
	if query.Get("fixed") != "1" || query.Get("character-id") != "c1" {
		t.Fatalf("expected merged query, got %q", seen.URL.RawQuery)
	}
	if seen.Header.Get("X-Default") != "base" || seen.Header.Get("X-Custom") != "override" {
		t.Fatalf("expected headers applied, got %+v", seen.Header)
	}
	if seen.Header.Get("Idempotency-Key") != "txn-1" {
		t.Fatalf("expected idempotency header, got %q", seen.Header.Get("Idempotency-Key"))
	}
}

func TestRESTAdapter_TimeoutIsRetriableKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	_, err := adapter.Do(context.Background(), core.TransportRequest{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
	})
	if !core.IsTimeoutError(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestRESTAdapter_BodyLimitEnforced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 16

	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL})
	if err == nil {
		t.Fatalf("expected error for oversized body")
	}
}

func TestRESTAdapter_InvalidURL(t *testing.T) {
	adapter := NewRESTAdapter(http.DefaultClient)
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "://bad"}); err == nil {
		t.Fatalf("expected error for unparseable url")
	}
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: "  "}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
