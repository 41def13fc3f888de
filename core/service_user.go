package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// UserInfo retrieves the authorizing user's provider record. Returns
// (nil, nil) without a network call when the merchant's scope lacks
// the user capability, mirroring the provider's contract. Fields the
// reply omits stay at their zero values; Params is nil when unset.
func (m *Merchant) UserInfo(ctx context.Context, cred Credential) (*UserInfo, error) {
	if m == nil {
		return nil, newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeUser) {
		return nil, nil
	}
	startedAt := m.now()

	envelope, err := m.callEndpoint(ctx, cred, http.MethodGet, m.userURI, nil, nil, FailureUserInfo, "")
	m.observeOperation(ctx, startedAt, "user_info", err, nil)
	if err != nil {
		return nil, err
	}

	return &UserInfo{
		ID:     envelope.String("id"),
		Name:   envelope.String("name"),
		Params: envelope.Map("params"),
	}, nil
}

// UserCharacters lists the user's characters for this merchant.
// Returns (nil, nil) without a network call when the scope lacks the
// character capability.
func (m *Merchant) UserCharacters(ctx context.Context, cred Credential) ([]Character, error) {
	if m == nil {
		return nil, newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeCharacter) {
		return nil, nil
	}
	startedAt := m.now()

	envelope, err := m.callEndpoint(ctx, cred, http.MethodGet, m.userCharactersURI, nil, nil, FailureCharacter, "")
	m.observeOperation(ctx, startedAt, "user_characters", err, nil)
	if err != nil {
		return nil, err
	}

	raw := envelope.List("characters")
	characters := make([]Character, 0, len(raw))
	for _, item := range raw {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := ResponseEnvelope{Fields: fields}
		characters = append(characters, Character{
			ID:     entry.String("id"),
			Name:   entry.String("name"),
			Params: entry.Map("params"),
		})
	}
	return characters, nil
}

// UpdateCharacter creates (empty id) or updates a character. Requires
// the character capability.
func (m *Merchant) UpdateCharacter(ctx context.Context, cred Credential, character Character) (Character, error) {
	if m == nil {
		return Character{}, newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeCharacter) {
		return Character{}, NewCapabilityError(ScopeCharacter)
	}
	if strings.TrimSpace(character.Name) == "" {
		return Character{}, newBadInputError("character name is required")
	}
	startedAt := m.now()

	payload := map[string]any{"name": strings.TrimSpace(character.Name)}
	if id := strings.TrimSpace(character.ID); id != "" {
		payload["id"] = id
	}
	if len(character.Params) > 0 {
		payload["params"] = character.Params
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Character{}, newInternalError("encode character payload: " + err.Error())
	}

	envelope, err := m.callEndpoint(ctx, cred, http.MethodPost, m.updateCharacterURI, nil, body, FailureCharacter, "")
	m.observeOperation(ctx, startedAt, "update_character", err, map[string]any{"character_id": character.ID})
	if err != nil {
		return Character{}, err
	}

	return Character{
		ID:     envelope.String("id"),
		Name:   envelope.String("name"),
		Params: envelope.Map("params"),
	}, nil
}

// DeleteCharacter removes a character. Requires the character
// capability.
func (m *Merchant) DeleteCharacter(ctx context.Context, cred Credential, characterID string) error {
	if m == nil {
		return newInternalError("merchant is nil")
	}
	if !m.scope.Has(ScopeCharacter) {
		return NewCapabilityError(ScopeCharacter)
	}
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return newBadInputError("character id is required")
	}
	startedAt := m.now()

	body, err := json.Marshal(map[string]any{"id": characterID})
	if err != nil {
		return newInternalError("encode character payload: " + err.Error())
	}

	_, err = m.callEndpoint(ctx, cred, http.MethodPost, m.deleteCharacterURI, nil, body, FailureCharacter, "")
	m.observeOperation(ctx, startedAt, "delete_character", err, map[string]any{"character_id": characterID})
	return err
}
