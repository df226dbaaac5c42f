package jwtkit

import (
	"crypto"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// PublicJWK converts an RSA, ECDSA or Ed25519 public key into a signing JWK.
func PublicJWK(pub crypto.PublicKey, kid, alg string) (jwk.Key, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return nil, fmt.Errorf("jwk from raw: %w", err)
	}
	if key.KeyType() == jwa.OctetSeq {
		return nil, fmt.Errorf("jwk: refusing to publish a symmetric key")
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}
	if alg != "" {
		if err := key.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(alg)); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// NewJWKS bundles keys into a set ready to publish.
func NewJWKS(keys ...jwk.Key) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, k := range keys {
		if err := set.AddKey(k); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ServeJWKS writes the set as JSON with an ETag and short cache headers.
func ServeJWKS(w http.ResponseWriter, r *http.Request, set jwk.Set) {
	b, err := json.Marshal(set)
	if err != nil {
		http.Error(w, "jwks unavailable", http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}
