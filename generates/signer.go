package generates

import (
	"crypto/ed25519"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs and verifies access token claims. Flow code only sees this
// interface so the algorithm and key material can change independently.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	Parse(token string, claims jwt.Claims) error
}

// KeySigner is a Signer backed by a single key of a golang-jwt signing method.
type KeySigner struct {
	KeyID     string
	Method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
}

// NewHMACSigner creates a shared-secret signer (HS256/HS384/HS512).
func NewHMACSigner(kid string, secret []byte, method jwt.SigningMethod) (*KeySigner, error) {
	if !strings.HasPrefix(method.Alg(), "HS") {
		return nil, errors.New("hmac signer requires an HS method")
	}
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	return &KeySigner{KeyID: kid, Method: method, signKey: secret, verifyKey: secret}, nil
}

// NewPEMSigner creates an asymmetric signer from a PEM encoded private key.
// RS*/PS* take RSA keys, ES* ECDSA keys and EdDSA Ed25519 keys.
func NewPEMSigner(kid string, pemKey []byte, method jwt.SigningMethod) (*KeySigner, error) {
	alg := method.Alg()
	s := &KeySigner{KeyID: kid, Method: method}
	switch {
	case strings.HasPrefix(alg, "ES"):
		k, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
		if err != nil {
			return nil, err
		}
		s.signKey, s.verifyKey = k, &k.PublicKey
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		k, err := jwt.ParseRSAPrivateKeyFromPEM(pemKey)
		if err != nil {
			return nil, err
		}
		s.signKey, s.verifyKey = k, &k.PublicKey
	case strings.HasPrefix(alg, "Ed"):
		k, err := jwt.ParseEdPrivateKeyFromPEM(pemKey)
		if err != nil {
			return nil, err
		}
		pk, ok := k.(ed25519.PrivateKey)
		if !ok {
			return nil, errors.New("not an ed25519 private key")
		}
		s.signKey, s.verifyKey = pk, pk.Public()
	default:
		return nil, errors.New("unsupported sign method")
	}
	return s, nil
}

// Sign implements Signer.
func (s *KeySigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(s.Method, claims)
	if s.KeyID != "" {
		token.Header["kid"] = s.KeyID
	}
	return token.SignedString(s.signKey)
}

// Parse implements Signer. Only the signer's own algorithm is accepted and
// an exp claim is required.
func (s *KeySigner) Parse(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	}, jwt.WithValidMethods([]string{s.Method.Alg()}), jwt.WithExpirationRequired())
	return err
}
