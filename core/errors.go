package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes for the closed set of failure kinds this module surfaces.
// Callers switch on these (or use the predicate helpers) to map
// outcomes to user-facing behavior.
const (
	MerchantErrorConfiguration     = "MERCHANT_CONFIGURATION"
	MerchantErrorCrossSiteRequest  = "MERCHANT_CROSS_SITE_REQUEST"
	MerchantErrorRequestRejected   = "MERCHANT_REQUEST_REJECTED"
	MerchantErrorAccessToken       = "MERCHANT_ACCESS_TOKEN"
	MerchantErrorUserInfoLookup    = "MERCHANT_USER_INFO_LOOKUP"
	MerchantErrorTransactionFailed = "MERCHANT_TRANSACTION_FAILED"
	MerchantErrorCharacterAccess   = "MERCHANT_CHARACTER_ACCESS"
	MerchantErrorProductAccess     = "MERCHANT_PRODUCT_ACCESS"
	MerchantErrorMalformedResponse = "MERCHANT_MALFORMED_RESPONSE"
	MerchantErrorTimeout           = "MERCHANT_TIMEOUT"
	MerchantErrorCapability        = "MERCHANT_CAPABILITY_UNSUPPORTED"
	MerchantErrorBadInput          = "MERCHANT_BAD_INPUT"
	MerchantErrorInternal          = "MERCHANT_INTERNAL"
)

// NewConfigurationError reports secrets/profile material that is
// missing or unusable. Fatal to startup, never recoverable per call.
func NewConfigurationError(message string, cause error) error {
	if cause != nil {
		return goerrors.Wrap(cause, goerrors.CategoryValidation, "core: "+message).
			WithCode(http.StatusInternalServerError).
			WithTextCode(MerchantErrorConfiguration)
	}
	return goerrors.New("core: "+message, goerrors.CategoryValidation).
		WithCode(http.StatusInternalServerError).
		WithTextCode(MerchantErrorConfiguration)
}

// NewCrossSiteRequestError reports a state-token mismatch on the OAuth
// callback. The caller must treat the login attempt as rejected.
func NewCrossSiteRequestError(message string) error {
	return goerrors.New("core: "+message, goerrors.CategoryAuth).
		WithCode(http.StatusForbidden).
		WithTextCode(MerchantErrorCrossSiteRequest)
}

// NewRequestRejectedError reports a non-200 status from any provider
// endpoint. The body is not inspected; callers may retry per their own
// policy.
func NewRequestRejectedError(status int) error {
	return goerrors.New("core: provider rejected request", goerrors.CategoryExternal).
		WithCode(status).
		WithTextCode(MerchantErrorRequestRejected).
		WithMetadata(map[string]any{"status_code": status})
}

// NewAccessTokenError reports a token the provider no longer accepts.
// The caller must restart the authorization flow; retrying with the
// same credential cannot succeed.
func NewAccessTokenError(message string) error {
	if strings.TrimSpace(message) == "" {
		message = "access token revoked or expired"
	}
	return goerrors.New("core: "+message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(MerchantErrorAccessToken)
}

// NewMalformedResponseError reports a response body that is not the
// JSON the provider promises. Always fatal to the current call.
func NewMalformedResponseError(cause error) error {
	if cause == nil {
		return goerrors.New("core: provider response has unexpected shape", goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(MerchantErrorMalformedResponse)
	}
	return goerrors.Wrap(cause, goerrors.CategoryExternal, "core: decode provider response").
		WithCode(http.StatusBadGateway).
		WithTextCode(MerchantErrorMalformedResponse)
}

// NewTimeoutError reports a call that exceeded its deadline. Distinct
// from other transport failures because it is safe to retry.
func NewTimeoutError(cause error) error {
	err := goerrors.New("core: provider call timed out", goerrors.CategoryExternal)
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, "core: provider call timed out")
	}
	return err.
		WithCode(http.StatusGatewayTimeout).
		WithTextCode(MerchantErrorTimeout).
		WithMetadata(map[string]any{"retriable": true})
}

// NewCapabilityError reports an operation the merchant's scope does not
// permit. No network call was made.
func NewCapabilityError(capability string) error {
	return goerrors.New("core: scope does not include "+strings.TrimSpace(capability), goerrors.CategoryOperation).
		WithCode(http.StatusForbidden).
		WithTextCode(MerchantErrorCapability).
		WithMetadata(map[string]any{"capability": strings.TrimSpace(capability)})
}

func newBadInputError(message string) error {
	return goerrors.New("core: "+message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(MerchantErrorBadInput)
}

func newInternalError(message string) error {
	return goerrors.New("core: "+message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(MerchantErrorInternal)
}

// newFailureError carries the provider's failure reason verbatim under
// a call-site-specific kind (user info, transaction, character,
// product). Many reasons, insufficient balance for one, are not
// transient; nothing retries them automatically.
func newFailureError(textCode, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "provider reported failure without a reason"
	}
	return goerrors.New("core: "+reason, goerrors.CategoryOperation).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(textCode).
		WithMetadata(map[string]any{"reason": reason})
}

// HasTextCode reports whether err (or anything it wraps) carries the
// given module text code.
func HasTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func IsConfigurationError(err error) bool     { return HasTextCode(err, MerchantErrorConfiguration) }
func IsCrossSiteRequestError(err error) bool  { return HasTextCode(err, MerchantErrorCrossSiteRequest) }
func IsRequestRejectedError(err error) bool   { return HasTextCode(err, MerchantErrorRequestRejected) }
func IsAccessTokenError(err error) bool       { return HasTextCode(err, MerchantErrorAccessToken) }
func IsUserInfoLookupError(err error) bool    { return HasTextCode(err, MerchantErrorUserInfoLookup) }
func IsTransactionFailedError(err error) bool { return HasTextCode(err, MerchantErrorTransactionFailed) }
func IsCharacterAccessError(err error) bool   { return HasTextCode(err, MerchantErrorCharacterAccess) }
func IsProductAccessError(err error) bool     { return HasTextCode(err, MerchantErrorProductAccess) }
func IsMalformedResponseError(err error) bool { return HasTextCode(err, MerchantErrorMalformedResponse) }
func IsTimeoutError(err error) bool           { return HasTextCode(err, MerchantErrorTimeout) }
func IsCapabilityError(err error) bool        { return HasTextCode(err, MerchantErrorCapability) }

// FailureReason extracts the provider-supplied reason from a failure
// kind error, or "" when none was carried.
func FailureReason(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ""
	}
	if richErr.Metadata == nil {
		return ""
	}
	reason, _ := richErr.Metadata["reason"].(string)
	return reason
}

// RejectedStatus extracts the upstream HTTP status from a
// request-rejected error, or 0 when err is a different kind.
func RejectedStatus(err error) int {
	if !IsRequestRejectedError(err) {
		return 0
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 0
	}
	return richErr.Code
}
