package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// AccessTokenReason is the provider's sentinel failure reason meaning
// the bearer token is unknown or expired and the user must reauthorize.
const AccessTokenReason = "unknown token2"

// FailureKind selects which error kind an envelope failure maps to at a
// given call site.
type FailureKind string

const (
	FailureUserInfo    FailureKind = MerchantErrorUserInfoLookup
	FailureTransaction FailureKind = MerchantErrorTransactionFailed
	FailureCharacter   FailureKind = MerchantErrorCharacterAccess
	FailureProduct     FailureKind = MerchantErrorProductAccess
)

// ResponseEnvelope is the parsed JSON body of a provider reply.
// Success is nil when the body carries no "success" field, which some
// endpoints (user info among them) legitimately omit; that counts as
// success.
type ResponseEnvelope struct {
	Success *bool
	Reason  string
	Fields  map[string]any
}

// ClassifyResponse applies the provider's outcome convention to an
// HTTP status and raw body:
//
//  1. status other than 200 fails without parsing the body
//  2. an unparseable body is a malformed response
//  3. no "success" field means success, the body is returned verbatim
//  4. boolean true returns the body; any other value, the string "true"
//     included, counts as failure
//  5. a failure maps to the access-token kind when the reason is the
//     token sentinel, otherwise to the call site's failure kind
func ClassifyResponse(status int, body []byte, failure FailureKind) (ResponseEnvelope, error) {
	if status != http.StatusOK {
		return ResponseEnvelope{}, NewRequestRejectedError(status)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ResponseEnvelope{}, NewMalformedResponseError(err)
	}

	envelope := ResponseEnvelope{Fields: fields}
	rawSuccess, ok := fields["success"]
	if !ok {
		return envelope, nil
	}

	success, _ := rawSuccess.(bool)
	envelope.Success = &success
	envelope.Reason = readAnyString(fields["reason"])
	if success {
		return envelope, nil
	}

	if envelope.Reason == AccessTokenReason {
		return ResponseEnvelope{}, NewAccessTokenError("provider reports token unknown or expired")
	}
	return ResponseEnvelope{}, newFailureError(string(failure), envelope.Reason)
}

// String extracts a trimmed string field, "" when absent.
func (e ResponseEnvelope) String(key string) string {
	if e.Fields == nil {
		return ""
	}
	value, ok := e.Fields[key]
	if !ok || value == nil {
		return ""
	}
	return readAnyString(value)
}

// Map extracts an object field, nil when absent or not an object.
func (e ResponseEnvelope) Map(key string) map[string]any {
	if e.Fields == nil {
		return nil
	}
	value, ok := e.Fields[key].(map[string]any)
	if !ok {
		return nil
	}
	return value
}

// List extracts an array field, nil when absent or not an array.
func (e ResponseEnvelope) List(key string) []any {
	if e.Fields == nil {
		return nil
	}
	value, ok := e.Fields[key].([]any)
	if !ok {
		return nil
	}
	return value
}

// IntMap extracts an object of integer tallies, nil when absent.
func (e ResponseEnvelope) IntMap(key string) map[string]int {
	raw := e.Map(key)
	if raw == nil {
		return nil
	}
	out := make(map[string]int, len(raw))
	for name, value := range raw {
		out[name] = int(readAnyInt64(value))
	}
	return out
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
