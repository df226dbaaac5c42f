package jwtkit

import (
	"context"
	"crypto"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFetchTimeout bounds a single JWKS fetch.
	DefaultFetchTimeout = 5 * time.Second
	maxJWKSBytes        = 1 << 20
)

// SigningKey is a public verification key published by the identity provider.
type SigningKey struct {
	ID        string
	Type      string
	Algorithm string // empty when the JWK does not pin one
	Public    crypto.PublicKey
}

// KeySet is an immutable, kid-unique, ordered collection of signing keys.
type KeySet struct {
	keys  []SigningKey
	index map[string]int
}

// NewKeySet builds a set; on duplicate kids the first occurrence wins.
func NewKeySet(keys ...SigningKey) *KeySet {
	ks := &KeySet{index: make(map[string]int, len(keys))}
	for _, k := range keys {
		if k.ID == "" {
			continue
		}
		if _, dup := ks.index[k.ID]; dup {
			continue
		}
		ks.index[k.ID] = len(ks.keys)
		ks.keys = append(ks.keys, k)
	}
	return ks
}

// Lookup returns the key with the given kid.
func (s *KeySet) Lookup(kid string) (SigningKey, bool) {
	if s == nil {
		return SigningKey{}, false
	}
	i, ok := s.index[kid]
	if !ok {
		return SigningKey{}, false
	}
	return s.keys[i], true
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// ParseKeySet decodes a JWKS document. Symmetric keys, encryption keys and
// keys without a kid are skipped; a document with no usable key is an error.
func ParseKeySet(data []byte) (*KeySet, error) {
	set, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	keys := make([]SigningKey, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if key.KeyID() == "" || key.KeyType() == jwa.OctetSeq {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != "sig" {
			continue
		}
		pub, err := jwk.PublicRawKeyOf(key)
		if err != nil {
			continue
		}
		sk := SigningKey{ID: key.KeyID(), Type: key.KeyType().String(), Public: pub}
		if alg := key.Algorithm(); alg != nil {
			sk.Algorithm = alg.String()
		}
		keys = append(keys, sk)
	}
	ks := NewKeySet(keys...)
	if ks.Len() == 0 {
		return nil, errors.New("jwks contains no usable signing keys")
	}
	return ks, nil
}

// KeyResolver resolves a signing key by kid.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (SigningKey, error)
}

// RemoteKeySet caches the provider's JWKS and refreshes it only when a kid is
// missing. Readers never block on a refresh; concurrent misses share one fetch.
type RemoteKeySet struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     logrus.FieldLogger

	current atomic.Pointer[KeySet]
	group   singleflight.Group
	fetches atomic.Int64
}

// RemoteKeySetOption configures a RemoteKeySet.
type RemoteKeySetOption func(*RemoteKeySet)

// WithHTTPClient overrides the HTTP client used for fetches.
func WithHTTPClient(c *http.Client) RemoteKeySetOption {
	return func(r *RemoteKeySet) {
		if c != nil {
			cp := *c
			r.client = &cp
		}
	}
}

// WithFetchTimeout bounds each fetch. Non-positive values keep the default.
func WithFetchTimeout(d time.Duration) RemoteKeySetOption {
	return func(r *RemoteKeySet) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for refresh events.
func WithLogger(l logrus.FieldLogger) RemoteKeySetOption {
	return func(r *RemoteKeySet) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRemoteKeySet returns a provider for the JWKS at jwksURL, which must be https.
func NewRemoteKeySet(jwksURL string, opts ...RemoteKeySetOption) (*RemoteKeySet, error) {
	u, err := url.Parse(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("jwks url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("jwks url must be an absolute https url: %q", jwksURL)
	}
	r := &RemoteKeySet{
		url: jwksURL,
		client: &http.Client{Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}},
		timeout: DefaultFetchTimeout,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return errors.New("jwks redirect to non-https url")
		}
		if len(via) >= 5 {
			return errors.New("jwks: too many redirects")
		}
		return nil
	}
	return r, nil
}

// URL returns the JWKS endpoint.
func (r *RemoteKeySet) URL() string { return r.url }

// Fetches returns how many network fetches have been started.
func (r *RemoteKeySet) Fetches() int64 { return r.fetches.Load() }

// Current returns the cached set, or nil before the first successful fetch.
func (r *RemoteKeySet) Current() *KeySet { return r.current.Load() }

// Warm fetches the key set eagerly, typically at startup.
func (r *RemoteKeySet) Warm(ctx context.Context) error {
	_, err := r.refresh(ctx, r.current.Load())
	return err
}

// Resolve returns the key for kid. A miss triggers one refresh and one more
// lookup; ErrKeyNotFound if it is still absent, ErrKeySetUnavailable if the
// refresh failed.
func (r *RemoteKeySet) Resolve(ctx context.Context, kid string) (SigningKey, error) {
	seen := r.current.Load()
	if k, ok := seen.Lookup(kid); ok {
		return k, nil
	}
	ks, err := r.refresh(ctx, seen)
	if err != nil {
		return SigningKey{}, err
	}
	if k, ok := ks.Lookup(kid); ok {
		return k, nil
	}
	return SigningKey{}, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// refresh coalesces concurrent callers onto one fetch. A caller whose view
// (seen) was already replaced by another refresh gets that set back without
// fetching again.
func (r *RemoteKeySet) refresh(ctx context.Context, seen *KeySet) (*KeySet, error) {
	ch := r.group.DoChan("jwks", func() (any, error) {
		if cur := r.current.Load(); cur != seen {
			return cur, nil
		}
		return r.fetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, ctx.Err())
	}
}

func (r *RemoteKeySet) fetch(ctx context.Context) (*KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.fetches.Add(1)
	start := time.Now()
	ks, err := r.fetchOnce(ctx)
	if err != nil {
		r.log.WithError(err).WithField("jwks_url", r.url).Warn("jwks refresh failed")
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	r.current.Store(ks)
	r.log.WithFields(logrus.Fields{
		"jwks_url": r.url,
		"keys":     ks.Len(),
		"ms":       time.Since(start).Milliseconds(),
	}).Info("jwks refreshed")
	return ks, nil
}

func (r *RemoteKeySet) fetchOnce(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, err
	}
	return ParseKeySet(body)
}
