package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
)

// assertionLifetime is the validity window requested in the JWT
const assertionLifetime = time.Hour

type jwtHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type jwtClaims struct {
	Iss   string `json:"iss"`
	Scope string `json:"scope"`
	Aud   string `json:"aud"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

// signAssertion builds and signs an RS256 JWT bearer assertion
func signAssertion(key *rsa.PrivateKey, issuer, scope, audience string, now time.Time) (string, error) {
	header, err := json.Marshal(jwtHeader{Alg: "RS256", Typ: "JWT"})
	if err != nil {
		return "", errors.Wrap(errors.ErrTokenGenerationFailed, err, "failed to encode JWT header")
	}

	claims, err := json.Marshal(jwtClaims{
		Iss:   issuer,
		Scope: scope,
		Aud:   audience,
		Exp:   now.Add(assertionLifetime).Unix(),
		Iat:   now.Unix(),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrTokenGenerationFailed, err, "failed to encode JWT claims")
	}

	signingInput := base64URL(header) + "." + base64URL(claims)
	digest := sha256.Sum256([]byte(signingInput))

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", errors.Wrap(errors.ErrTokenGenerationFailed, err, "failed to sign JWT assertion")
	}

	return signingInput + "." + base64URL(sig), nil
}

// base64URL is unpadded URL-safe base64
func base64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
