package models

import (
	"time"

	"github.com/legit-games/oauth2-core"
)

// NewToken create to token model instance
func NewToken() *Token {
	return &Token{}
}

// Token token model
type Token struct {
	ClientID         string        `json:"ClientID"`
	UserID           string        `json:"UserID"`
	RedirectURI      string        `json:"RedirectURI"`
	Scope            string        `json:"Scope"`
	Code             string        `json:"Code"`
	CodeCreateAt     time.Time     `json:"CodeCreateAt"`
	CodeExpiresIn    time.Duration `json:"CodeExpiresIn"`
	Access           string        `json:"Access"`
	AccessCreateAt   time.Time     `json:"AccessCreateAt"`
	AccessExpiresIn  time.Duration `json:"AccessExpiresIn"`
	Refresh          string        `json:"Refresh"`
	RefreshCreateAt  time.Time     `json:"RefreshCreateAt"`
	RefreshExpiresIn time.Duration `json:"RefreshExpiresIn"`
}

// New create to token model instance
func (t *Token) New() oauth2.TokenInfo {
	return NewToken()
}

// GetClientID the client id
func (t *Token) GetClientID() string {
	return t.ClientID
}

// SetClientID the client id
func (t *Token) SetClientID(clientID string) {
	t.ClientID = clientID
}

// GetUserID the user id
func (t *Token) GetUserID() string {
	return t.UserID
}

// SetUserID the user id
func (t *Token) SetUserID(userID string) {
	t.UserID = userID
}

// GetRedirectURI redirect URI
func (t *Token) GetRedirectURI() string {
	return t.RedirectURI
}

// SetRedirectURI redirect URI
func (t *Token) SetRedirectURI(redirectURI string) {
	t.RedirectURI = redirectURI
}

// GetScope get scope of authorization
func (t *Token) GetScope() string {
	return t.Scope
}

// SetScope get scope of authorization
func (t *Token) SetScope(scope string) {
	t.Scope = scope
}

// GetCode authorization code
func (t *Token) GetCode() string {
	return t.Code
}

// SetCode authorization code
func (t *Token) SetCode(code string) {
	t.Code = code
}

// GetCodeCreateAt create Time
func (t *Token) GetCodeCreateAt() time.Time {
	return t.CodeCreateAt
}

// SetCodeCreateAt create Time
func (t *Token) SetCodeCreateAt(createAt time.Time) {
	t.CodeCreateAt = createAt
}

// GetCodeExpiresIn the lifetime in seconds of the authorization code
func (t *Token) GetCodeExpiresIn() time.Duration {
	return t.CodeExpiresIn
}

// SetCodeExpiresIn the lifetime in seconds of the authorization code
func (t *Token) SetCodeExpiresIn(exp time.Duration) {
	t.CodeExpiresIn = exp
}

// GetAccess access Token
func (t *Token) GetAccess() string {
	return t.Access
}

// SetAccess access Token
func (t *Token) SetAccess(access string) {
	t.Access = access
}

// GetAccessCreateAt create Time
func (t *Token) GetAccessCreateAt() time.Time {
	return t.AccessCreateAt
}

// SetAccessCreateAt create Time
func (t *Token) SetAccessCreateAt(createAt time.Time) {
	t.AccessCreateAt = createAt
}

// GetAccessExpiresIn the lifetime in seconds of the access token
func (t *Token) GetAccessExpiresIn() time.Duration {
	return t.AccessExpiresIn
}

// SetAccessExpiresIn the lifetime in seconds of the access token
func (t *Token) SetAccessExpiresIn(exp time.Duration) {
	t.AccessExpiresIn = exp
}

// GetRefresh refresh Token
func (t *Token) GetRefresh() string {
	return t.Refresh
}

// SetRefresh refresh Token
func (t *Token) SetRefresh(refresh string) {
	t.Refresh = refresh
}

// GetRefreshCreateAt create Time
func (t *Token) GetRefreshCreateAt() time.Time {
	return t.RefreshCreateAt
}

// SetRefreshCreateAt create Time
func (t *Token) SetRefreshCreateAt(createAt time.Time) {
	t.RefreshCreateAt = createAt
}

// GetRefreshExpiresIn the lifetime in seconds of the refresh token
func (t *Token) GetRefreshExpiresIn() time.Duration {
	return t.RefreshExpiresIn
}

// SetRefreshExpiresIn the lifetime in seconds of the refresh token
func (t *Token) SetRefreshExpiresIn(exp time.Duration) {
	t.RefreshExpiresIn = exp
}

// CodeExpired reports whether the authorization code has passed its expiry.
func CodeExpired(ti oauth2.TokenInfo, now time.Time) bool {
	return expired(ti.GetCodeCreateAt(), ti.GetCodeExpiresIn(), now)
}

// AccessExpired reports whether the access token has passed its expiry.
func AccessExpired(ti oauth2.TokenInfo, now time.Time) bool {
	return expired(ti.GetAccessCreateAt(), ti.GetAccessExpiresIn(), now)
}

// RefreshExpired reports whether the refresh token has passed its expiry.
// A zero lifetime means the refresh token never expires.
func RefreshExpired(ti oauth2.TokenInfo, now time.Time) bool {
	if ti.GetRefreshExpiresIn() == 0 {
		return false
	}
	return expired(ti.GetRefreshCreateAt(), ti.GetRefreshExpiresIn(), now)
}

func expired(createAt time.Time, exp time.Duration, now time.Time) bool {
	return !now.Before(createAt.Add(exp))
}
