package core

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// DefaultStateTokenTTL bounds how long an authorization redirect stays
// exchangeable.
const DefaultStateTokenTTL = time.Hour

// GenerateStateToken mints the anti-forgery token embedded as the
// OAuth2 state parameter: an HMAC-SHA256 over the user id and an
// expiry, keyed by the application secret. The provider round-trips it
// verbatim on the callback.
func GenerateStateToken(secret, userID string) (string, error) {
	return GenerateStateTokenAt(secret, userID, time.Now().UTC().Add(DefaultStateTokenTTL))
}

// GenerateStateTokenAt mints a token with an explicit expiry.
func GenerateStateTokenAt(secret, userID string, expiresAt time.Time) (string, error) {
	secret = strings.TrimSpace(secret)
	userID = strings.TrimSpace(userID)
	if secret == "" {
		return "", newBadInputError("application secret is required for state tokens")
	}
	if userID == "" {
		return "", newBadInputError("user id is required for state tokens")
	}
	expiry := expiresAt.UTC().Unix()
	return stateTokenDigest(secret, userID, expiry) + "." + strconv.FormatInt(expiry, 10), nil
}

// ValidateStateToken reports whether token was generated for the same
// (secret, userID) pair and has not expired. Comparison is constant
// time; any alteration of secret, token, or user fails.
func ValidateStateToken(secret, token, userID string) bool {
	secret = strings.TrimSpace(secret)
	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	if secret == "" || token == "" || userID == "" {
		return false
	}
	digest, rawExpiry, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	expiry, err := strconv.ParseInt(rawExpiry, 10, 64)
	if err != nil {
		return false
	}
	if time.Now().UTC().Unix() > expiry {
		return false
	}
	expected := stateTokenDigest(secret, userID, expiry)
	return hmac.Equal([]byte(digest), []byte(expected))
}

func stateTokenDigest(secret, userID string, expiry int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(userID))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(expiry, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// generateRandomState backs authorization requests for anonymous
// flows, where no user id binds the callback.
func generateRandomState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", newInternalError("generate authorization state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
