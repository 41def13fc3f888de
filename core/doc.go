// Package core implements the merchant-side client for the Gloebit
// virtual-currency service: OAuth2 user authorization, anti-forgery
// state tokens, user/character/product lookups, and transaction
// submission with envelope-based outcome classification.
//
// The Merchant type is the orchestrator. It is safe for concurrent use
// across independent user sessions: the transient authorization flow is
// an AuthSession value keyed by its state token, never shared mutable
// state on the Merchant itself.
package core
