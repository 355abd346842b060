package generates

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

// refreshEntropyBytes is the size of the opaque refresh token before encoding.
const refreshEntropyBytes = 32

// JWTAccessClaims jwt claims
type JWTAccessClaims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id,omitempty"`
	UserID   string `json:"user_id,omitempty"` // empty for client credentials
	Scope    string `json:"scope,omitempty"`   // Space-separated scopes per RFC 6749
}

// GetClientID the client the token was issued to
func (a *JWTAccessClaims) GetClientID() string { return a.ClientID }

// GetUserID the resource owner, empty for client credentials
func (a *JWTAccessClaims) GetUserID() string { return a.UserID }

// GetScope granted scope
func (a *JWTAccessClaims) GetScope() string { return a.Scope }

// GetExpiresAt expiry of the token
func (a *JWTAccessClaims) GetExpiresAt() time.Time {
	if a.ExpiresAt == nil {
		return time.Time{}
	}
	return a.ExpiresAt.Time
}

// NewJWTAccessGenerate create to generate the jwt access token instance
func NewJWTAccessGenerate(signer Signer) *JWTAccessGenerate {
	return &JWTAccessGenerate{Signer: signer}
}

// JWTAccessGenerate generate the jwt access token
type JWTAccessGenerate struct {
	Signer Signer
}

// Token signs the access token claims and, when asked, mints an opaque refresh token
func (a *JWTAccessGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic, isGenRefresh bool) (string, string, error) {
	createAt := data.TokenInfo.GetAccessCreateAt()
	claims := &JWTAccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{data.Client.GetID()},
			Subject:   data.UserID,
			IssuedAt:  jwt.NewNumericDate(createAt),
			ExpiresAt: jwt.NewNumericDate(createAt.Add(data.TokenInfo.GetAccessExpiresIn())),
		},
		ClientID: data.Client.GetID(),
		UserID:   data.UserID,
		Scope:    data.TokenInfo.GetScope(),
	}
	if data.UserID == "" {
		// client credentials token represents the client itself
		claims.Subject = data.Client.GetID()
	}

	access, err := a.Signer.Sign(claims)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		refresh, err = randomToken(refreshEntropyBytes)
		if err != nil {
			return "", "", err
		}
	}
	return access, refresh, nil
}

// Verify checks signature and expiry of an access token
func (a *JWTAccessGenerate) Verify(ctx context.Context, access string) (oauth2.AccessClaims, error) {
	claims := &JWTAccessClaims{}
	if err := a.Signer.Parse(access, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrExpiredAccessToken
		}
		return nil, errors.ErrInvalidAccessToken
	}
	if claims.ClientID == "" {
		return nil, errors.ErrInvalidAccessToken
	}
	return claims, nil
}
