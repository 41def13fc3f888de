package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger contracts are the go-logger ones; Resolve/Ensure at
// construction picks provider > logger > nop.
type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TransportRequest is the transport-neutral description of one
// provider call. Idempotency carries the transaction id for transact
// submissions so adapters can expose it to middleboxes.
type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter issues a request and reports status and body; the
// envelope classifier decides what they mean.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// Signer attaches authorization material to an outgoing request.
type Signer interface {
	Sign(ctx context.Context, req *TransportRequest, cred Credential) error
}

// ExchangeRequest carries the callback code to the token endpoint.
type ExchangeRequest struct {
	Code        string
	RedirectURI string
	Scope       ScopeSet
}

// CodeExchanger is the OAuth2 authorization-code capability the
// Merchant composes: exchange a callback code for a credential.
type CodeExchanger interface {
	Exchange(ctx context.Context, req ExchangeRequest) (Credential, error)
}

// MetricsRecorder mirrors the recorder contract of the logging stack;
// the nop implementation is the default.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// ConfigProvider loads the merchant runtime configuration from an
// external source, layered under runtime overrides.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// RawConfigLoader feeds a ConfigProvider with unshaped key/value data.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// OptionsResolver merges defaults, loaded, and runtime configuration
// layers into the effective Config.
type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}
