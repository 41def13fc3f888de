package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Credential is the opaque bearer-token handle obtained from the code
// exchange. The core only ever reads AccessToken; expiry is enforced
// server side and surfaced as an access-token error, not tracked here.
type Credential struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Metadata     map[string]any
}

// Empty reports whether the credential carries no usable token.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.AccessToken) == ""
}

const (
	CredentialPayloadFormat  = "merchant_credential_json"
	CredentialPayloadVersion = 1
)

// CredentialCodec serializes credentials for whatever session storage
// the calling application uses. The core never persists credentials.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(credential Credential) ([]byte, error)
	Decode(payload []byte) (Credential, error)
}

type JSONCredentialCodec struct{}

type jsonCredentialPayload struct {
	Format       string         `json:"format"`
	Version      int            `json:"version"`
	TokenType    string         `json:"token_type,omitempty"`
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func (JSONCredentialCodec) Format() string {
	return CredentialPayloadFormat
}

func (JSONCredentialCodec) Version() int {
	return CredentialPayloadVersion
}

func (JSONCredentialCodec) Encode(credential Credential) ([]byte, error) {
	payload := jsonCredentialPayload{
		Format:       CredentialPayloadFormat,
		Version:      CredentialPayloadVersion,
		TokenType:    strings.TrimSpace(credential.TokenType),
		AccessToken:  strings.TrimSpace(credential.AccessToken),
		RefreshToken: strings.TrimSpace(credential.RefreshToken),
		ExpiresAt:    cloneTimePointer(credential.ExpiresAt),
		Metadata:     copyAnyMap(credential.Metadata),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, newInternalError("encode credential: " + err.Error())
	}
	return encoded, nil
}

func (JSONCredentialCodec) Decode(payload []byte) (Credential, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return Credential{}, newBadInputError("credential payload is empty")
	}
	var decoded jsonCredentialPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Credential{}, newBadInputError("decode credential: " + err.Error())
	}
	if decoded.Format != "" && decoded.Format != CredentialPayloadFormat {
		return Credential{}, newBadInputError("unknown credential payload format " + decoded.Format)
	}
	credential := Credential{
		TokenType:    strings.TrimSpace(decoded.TokenType),
		AccessToken:  strings.TrimSpace(decoded.AccessToken),
		RefreshToken: strings.TrimSpace(decoded.RefreshToken),
		ExpiresAt:    cloneTimePointer(decoded.ExpiresAt),
		Metadata:     copyAnyMap(decoded.Metadata),
	}
	if credential.Empty() {
		return Credential{}, newBadInputError("credential payload missing access token")
	}
	return credential, nil
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ CredentialCodec = JSONCredentialCodec{}
