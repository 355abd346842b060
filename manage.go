package oauth2

import (
	"context"
	"net/http"
)

// TokenGenerateRequest provide to generate the token request parameters
type TokenGenerateRequest struct {
	ClientID     string
	ClientSecret string
	UserID       string
	RedirectURI  string
	Scope        string
	Code         string
	Refresh      string
	Username     string
	Password     string
	Request      *http.Request
}

// Manager authorization management interface
type Manager interface {
	// get the client information
	GetClient(ctx context.Context, clientID string) (cli ClientInfo, err error)

	// validate the redirect uri of an authorization request for the client
	CheckRedirectURI(ctx context.Context, clientID, redirectURI string) (uri string, err error)

	// authenticate the client for a grant type
	AuthenticateClient(ctx context.Context, clientID, clientSecret string, gt GrantType) (ClientInfo, error)

	// generate the authorization code
	GenerateAuthToken(ctx context.Context, rt ResponseType, tgr *TokenGenerateRequest) (authToken TokenInfo, err error)

	// generate the access token
	GenerateAccessToken(ctx context.Context, gt GrantType, tgr *TokenGenerateRequest) (accessToken TokenInfo, err error)

	// refreshing an access token
	RefreshAccessToken(ctx context.Context, tgr *TokenGenerateRequest) (accessToken TokenInfo, err error)

	// use the access token to delete the token information
	RemoveAccessToken(ctx context.Context, access string) (err error)

	// use the refresh token to delete the token information
	RemoveRefreshToken(ctx context.Context, refresh string) (err error)

	// revoke all refresh tokens of a user
	RevokeUserRefreshTokens(ctx context.Context, userID string) (int, error)

	// according to the access token for corresponding token information
	LoadAccessToken(ctx context.Context, access string) (ti TokenInfo, err error)

	// according to the refresh token for corresponding token information
	LoadRefreshToken(ctx context.Context, refresh string) (ti TokenInfo, err error)

	// verify a resource owner's credentials
	AuthenticateUser(ctx context.Context, username, password string) (UserInfo, error)

	// get the resource owner
	GetUser(ctx context.Context, userID string) (UserInfo, error)
}
