package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// UserProducts returns the user's product tallies. Returns (nil, nil)
// without a network call when the scope lacks the inventory
// capability.
func (m *Merchant) UserProducts(ctx context.Context, cred Credential) (map[string]int, error) {
	if m == nil {
		return nil, newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeInventory) {
		return nil, nil
	}
	startedAt := m.now()

	envelope, err := m.callEndpoint(ctx, cred, http.MethodGet, m.userProductsURI, nil, nil, FailureProduct, "")
	m.observeOperation(ctx, startedAt, "user_products", err, nil)
	if err != nil {
		return nil, err
	}
	products := envelope.IntMap("products")
	if products == nil {
		products = map[string]int{}
	}
	return products, nil
}

// CharacterProducts returns one character's product tallies. Returns
// (nil, nil) without a network call when the scope lacks the inventory
// capability.
func (m *Merchant) CharacterProducts(ctx context.Context, cred Credential, characterID string) (map[string]int, error) {
	if m == nil {
		return nil, newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeInventory) {
		return nil, nil
	}
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return nil, newBadInputError("character id is required")
	}
	startedAt := m.now()

	query := map[string]string{"character-id": characterID}
	envelope, err := m.callEndpoint(ctx, cred, http.MethodGet, m.characterProductsURI, query, nil, FailureProduct, "")
	m.observeOperation(ctx, startedAt, "character_products", err, map[string]any{"character_id": characterID})
	if err != nil {
		return nil, err
	}
	products := envelope.IntMap("products")
	if products == nil {
		products = map[string]int{}
	}
	return products, nil
}

// GrantUserProduct credits one unit of product to the user. Requires
// the inventory capability.
func (m *Merchant) GrantUserProduct(ctx context.Context, cred Credential, product string) error {
	return m.productMutation(ctx, cred, "grant_user_product", m.grantUserProductURI, product, "")
}

// GrantCharacterProduct credits one unit of product to a character.
func (m *Merchant) GrantCharacterProduct(ctx context.Context, cred Credential, characterID, product string) error {
	if strings.TrimSpace(characterID) == "" {
		return newBadInputError("character id is required")
	}
	return m.productMutation(ctx, cred, "grant_character_product", m.grantCharacterProductURI, product, characterID)
}

// ConsumeUserProduct debits one unit of product from the user.
func (m *Merchant) ConsumeUserProduct(ctx context.Context, cred Credential, product string) error {
	return m.productMutation(ctx, cred, "consume_user_product", m.consumeUserProductURI, product, "")
}

// ConsumeCharacterProduct debits one unit of product from a character.
func (m *Merchant) ConsumeCharacterProduct(ctx context.Context, cred Credential, characterID, product string) error {
	if strings.TrimSpace(characterID) == "" {
		return newBadInputError("character id is required")
	}
	return m.productMutation(ctx, cred, "consume_character_product", m.consumeCharacterProductURI, product, characterID)
}

func (m *Merchant) productMutation(
	ctx context.Context,
	cred Credential,
	operation string,
	uri string,
	product string,
	characterID string,
) error {
	if m == nil {
		return newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeInventory) {
		return NewCapabilityError(ScopeInventory)
	}
	product = strings.TrimSpace(product)
	if product == "" {
		return newBadInputError("product name is required")
	}
	startedAt := m.now()

	payload := map[string]any{"product": product}
	if characterID = strings.TrimSpace(characterID); characterID != "" {
		payload["character-id"] = characterID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return newInternalError("encode product payload: " + err.Error())
	}

	_, err = m.callEndpoint(ctx, cred, http.MethodPost, uri, nil, body, FailureProduct, "")
	m.observeOperation(ctx, startedAt, operation, err, map[string]any{
		"product":      product,
		"character_id": characterID,
	})
	return err
}
