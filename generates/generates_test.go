package generates

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBasic(userID string, createAt time.Time, exp time.Duration) *oauth2.GenerateBasic {
	ti := models.NewToken()
	ti.SetScope("read write")
	ti.SetAccessCreateAt(createAt)
	ti.SetAccessExpiresIn(exp)
	return &oauth2.GenerateBasic{
		Client:    &models.Client{ID: "c1", Secret: "s1"},
		UserID:    userID,
		CreateAt:  createAt,
		TokenInfo: ti,
	}
}

func newHMACGenerate(t *testing.T, secret string) *JWTAccessGenerate {
	t.Helper()
	s, err := NewHMACSigner("", []byte(secret), jwt.SigningMethodHS512)
	require.NoError(t, err)
	return NewJWTAccessGenerate(s)
}

func TestAuthorizeGenerateEntropy(t *testing.T) {
	g := NewAuthorizeGenerate()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := g.Token(context.Background(), nil)
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(raw)*8, 128)
		assert.False(t, seen[code], "duplicate code")
		seen[code] = true
	}
}

func TestJWTAccessRoundTrip(t *testing.T) {
	g := newHMACGenerate(t, "secret")
	access, refresh, err := g.Token(context.Background(), newBasic("alice", time.Now(), time.Hour), true)
	require.NoError(t, err)
	require.NotEmpty(t, refresh)

	claims, err := g.Verify(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "c1", claims.GetClientID())
	assert.Equal(t, "alice", claims.GetUserID())
	assert.Equal(t, "read write", claims.GetScope())
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.GetExpiresAt(), 2*time.Second)
}

func TestJWTAccessWithoutRefresh(t *testing.T) {
	g := newHMACGenerate(t, "secret")
	_, refresh, err := g.Token(context.Background(), newBasic("", time.Now(), time.Hour), false)
	require.NoError(t, err)
	assert.Empty(t, refresh)
}

func TestJWTAccessClientCredentialsHasNoUser(t *testing.T) {
	g := newHMACGenerate(t, "secret")
	access, _, err := g.Token(context.Background(), newBasic("", time.Now(), time.Hour), false)
	require.NoError(t, err)
	claims, err := g.Verify(context.Background(), access)
	require.NoError(t, err)
	assert.Empty(t, claims.GetUserID())
	assert.Equal(t, "c1", claims.GetClientID())
}

func TestJWTAccessExpired(t *testing.T) {
	g := newHMACGenerate(t, "secret")
	access, _, err := g.Token(context.Background(), newBasic("alice", time.Now().Add(-2*time.Hour), time.Hour), false)
	require.NoError(t, err)
	_, err = g.Verify(context.Background(), access)
	assert.Equal(t, errors.ErrExpiredAccessToken, err)
}

func TestJWTAccessRejectsForeignSignature(t *testing.T) {
	issuer := newHMACGenerate(t, "secret-a")
	verifier := newHMACGenerate(t, "secret-b")
	access, _, err := issuer.Token(context.Background(), newBasic("alice", time.Now(), time.Hour), false)
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), access)
	assert.Equal(t, errors.ErrInvalidAccessToken, err)

	_, err = verifier.Verify(context.Background(), "garbage")
	assert.Equal(t, errors.ErrInvalidAccessToken, err)
}

func TestJWTAccessRejectsNoneAlgorithm(t *testing.T) {
	g := newHMACGenerate(t, "secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTAccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		ClientID:         "c1",
	})
	unsigned, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = g.Verify(context.Background(), unsigned)
	assert.Equal(t, errors.ErrInvalidAccessToken, err)
}

func TestPEMSignerECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	s, err := NewPEMSigner("k1", pemKey, jwt.SigningMethodES256)
	require.NoError(t, err)
	g := NewJWTAccessGenerate(s)
	access, _, err := g.Token(context.Background(), newBasic("alice", time.Now(), time.Hour), false)
	require.NoError(t, err)
	claims, err := g.Verify(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.GetUserID())
}

func TestHMACSignerRejectsBadInput(t *testing.T) {
	_, err := NewHMACSigner("", nil, jwt.SigningMethodHS256)
	assert.Error(t, err)
	_, err = NewHMACSigner("", []byte("x"), jwt.SigningMethodRS256)
	assert.Error(t, err)
}
