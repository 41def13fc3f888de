package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// PurchaseRequest describes one purchase submission. Username is the
// merchant's identifier for the buyer; when empty it resolves through
// UserInfo if the scope allows, else degrades to the literal
// "unknown". CharacterID attributes the purchase to a character.
type PurchaseRequest struct {
	Product     string
	Username    string
	CharacterID string
}

// UnknownMerchantUser is the degraded identity used when no username
// is supplied and the scope cannot look one up. Deliberate behavior,
// not an error.
const UnknownMerchantUser = "unknown"

// Purchase submits one transaction to the provider. Each call builds a
// fresh transaction record with a new id; the id is the provider-side
// idempotency key for network retries, so a deliberate resubmission of
// the same semantic purchase goes through Purchase again rather than
// reusing the record. No retry happens here on any failure.
func (m *Merchant) Purchase(ctx context.Context, cred Credential, req PurchaseRequest) error {
	if m == nil {
		return newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeTransact) {
		return NewCapabilityError(ScopeTransact)
	}
	product := strings.TrimSpace(req.Product)
	if product == "" {
		return newBadInputError("product name is required")
	}
	startedAt := m.now()

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = UnknownMerchantUser
		if m.scope.Has(ScopeUser) {
			info, err := m.UserInfo(ctx, cred)
			if err != nil {
				m.observeOperation(ctx, startedAt, "purchase", err, map[string]any{"product": product})
				return err
			}
			if info != nil && strings.TrimSpace(info.Name) != "" {
				username = strings.TrimSpace(info.Name)
			}
		}
	}

	transaction := NewTransaction(m.secrets.ClientID(), product, username, m.now())
	if characterID := strings.TrimSpace(req.CharacterID); characterID != "" {
		transaction.CharacterID = characterID
	}
	body, err := json.Marshal(transaction)
	if err != nil {
		return newInternalError("encode transaction: " + err.Error())
	}

	_, err = m.callEndpoint(ctx, cred, http.MethodPost, m.transactURI, nil, body, FailureTransaction, transaction.ID)
	m.observeOperation(ctx, startedAt, "purchase", err, map[string]any{
		"product":        product,
		"transaction_id": transaction.ID,
	})
	return err
}

// PurchaseUserProduct buys a product for the user through the
// transaction endpoint.
func (m *Merchant) PurchaseUserProduct(ctx context.Context, cred Credential, product string) error {
	return m.Purchase(ctx, cred, PurchaseRequest{Product: product})
}

// PurchaseCharacterProduct buys a product attributed to a character.
func (m *Merchant) PurchaseCharacterProduct(ctx context.Context, cred Credential, characterID, product string) error {
	if strings.TrimSpace(characterID) == "" {
		return newBadInputError("character id is required")
	}
	return m.Purchase(ctx, cred, PurchaseRequest{Product: product, CharacterID: characterID})
}
