package devkit

import (
	"context"
	"sync"

	"github.com/goliatone/go-merchant/core"
)

// FakeCodeExchanger answers every exchange with a canned credential or
// error and records the requests it received.
type FakeCodeExchanger struct {
	mu         sync.Mutex
	Credential core.Credential
	Err        error
	requests   []core.ExchangeRequest
}

func NewFakeCodeExchanger(cred core.Credential) *FakeCodeExchanger {
	return &FakeCodeExchanger{Credential: cred}
}

func (e *FakeCodeExchanger) Exchange(_ context.Context, req core.ExchangeRequest) (core.Credential, error) {
	if e == nil {
		return core.Credential{}, core.NewConfigurationError("fake code exchanger is nil", nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.requests = append(e.requests, req)
	if e.Err != nil {
		return core.Credential{}, e.Err
	}
	return e.Credential, nil
}

func (e *FakeCodeExchanger) Requests() []core.ExchangeRequest {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]core.ExchangeRequest(nil), e.requests...)
}

var _ core.CodeExchanger = (*FakeCodeExchanger)(nil)
