// Package oauth implements the authorization-code exchange against the
// provider's token endpoint. TLS verification is strict by default;
// AllowInsecureTransport is the explicit opt-out for sandbox hosts
// with broken certificates.
package oauth
