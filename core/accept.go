package core

import "time"

// AcceptConfig configures verification of access tokens minted by the
// identity provider (verify-only mode).
type AcceptConfig struct {
	Issuer       string        // exact "iss" value, e.g. "https://tenant.auth0.com/"
	Audience     string        // expected audience for this service (single value)
	JWKSURL      string        // https URL of the provider's key set
	Algorithms   []string      // allow-list; empty means every supported asymmetric algorithm
	FetchTimeout time.Duration // bound on a single key-set fetch; zero keeps the default
	Leeway       time.Duration // clock skew tolerated on exp/nbf
}
