package core

import (
	"context"
	"strings"
)

// BearerTokenSigner sets the Authorization header the provider expects
// on every authorized call.
type BearerTokenSigner struct{}

func (BearerTokenSigner) Sign(_ context.Context, req *TransportRequest, cred Credential) error {
	if req == nil {
		return newBadInputError("transport request is required")
	}
	token := strings.TrimSpace(cred.AccessToken)
	if token == "" {
		return NewAccessTokenError("credential has no access token")
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	req.Headers["Authorization"] = "Bearer " + token
	return nil
}

var _ Signer = BearerTokenSigner{}
