package oidckit

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// RelyingParty holds discovery-backed OAuth2 configuration for the identity
// provider that issues the API's access tokens.
type RelyingParty struct {
	issuer      string
	audience    string
	jwksURL     string
	client      *http.Client
	oauthConfig *oauth2.Config
}

// RPConfig describes the application registered at the provider.
type RPConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Audience     string   // API identifier requested on /authorize
	Scopes       []string // defaults to "openid"
	HTTPClient   *http.Client
}

type providerMetadata struct {
	JWKSURI string `json:"jwks_uri"`
}

func (c RPConfig) context(ctx context.Context) context.Context {
	if c.HTTPClient == nil {
		return ctx
	}
	return oidc.ClientContext(ctx, c.HTTPClient)
}

// NewRelyingParty discovers the provider's endpoints and builds the OAuth2
// configuration for the login flow.
func NewRelyingParty(ctx context.Context, cfg RPConfig) (*RelyingParty, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("oidc: issuer is empty")
	}
	if cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, errors.New("oidc: client id and redirect url are required")
	}
	provider, err := oidc.NewProvider(cfg.context(ctx), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc: discovery: %w", err)
	}
	var meta providerMetadata
	if err := provider.Claims(&meta); err != nil {
		return nil, fmt.Errorf("oidc: discovery metadata: %w", err)
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID}
	}
	return &RelyingParty{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		jwksURL:  meta.JWKSURI,
		client:   cfg.HTTPClient,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     provider.Endpoint(),
		},
	}, nil
}

// OAuthConfig returns the OAuth2 configuration derived from discovery.
func (rp *RelyingParty) OAuthConfig() *oauth2.Config { return rp.oauthConfig }

// Issuer returns the issuer URL associated with the relying party.
func (rp *RelyingParty) Issuer() string { return rp.issuer }

// JWKSURL returns the discovered jwks_uri.
func (rp *RelyingParty) JWKSURL() string { return rp.jwksURL }

func (rp *RelyingParty) context(ctx context.Context) context.Context {
	if rp.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, rp.client)
}

// DiscoverJWKSURL reads jwks_uri from the issuer's OpenID configuration.
func DiscoverJWKSURL(ctx context.Context, issuer string, client *http.Client) (string, error) {
	cfg := RPConfig{HTTPClient: client}
	provider, err := oidc.NewProvider(cfg.context(ctx), issuer)
	if err != nil {
		return "", fmt.Errorf("oidc: discovery: %w", err)
	}
	var meta providerMetadata
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("oidc: discovery metadata: %w", err)
	}
	if meta.JWKSURI == "" {
		return "", errors.New("oidc: discovery missing jwks_uri")
	}
	return meta.JWKSURI, nil
}
