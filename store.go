package oauth2

import (
	"context"
)

type (
	// ClientStore the client information storage interface
	ClientStore interface {
		// according to the ID for the client information
		GetByID(ctx context.Context, id string) (ClientInfo, error)
	}

	// UserStore the resource owner storage interface
	UserStore interface {
		// according to the ID for the user information
		GetByID(ctx context.Context, id string) (UserInfo, error)
		// verify the username/password pair, nil user when either does not match
		Authenticate(ctx context.Context, username, password string) (UserInfo, error)
	}

	// TokenStore the token information storage interface.
	// Lookups return a nil TokenInfo and a nil error when the record does
	// not exist or has expired.
	TokenStore interface {
		// create and store the new token information
		Create(ctx context.Context, info TokenInfo) error

		// delete the authorization code
		RemoveByCode(ctx context.Context, code string) error

		// use the access token to delete the token information
		RemoveByAccess(ctx context.Context, access string) error

		// use the refresh token to delete the token information
		RemoveByRefresh(ctx context.Context, refresh string) error

		// delete every refresh token issued to the user, returns the count removed
		RemoveRefreshByUserID(ctx context.Context, userID string) (int, error)

		// use the authorization code for token information data
		GetByCode(ctx context.Context, code string) (TokenInfo, error)

		// use the access token for token information data
		GetByAccess(ctx context.Context, access string) (TokenInfo, error)

		// use the refresh token for token information data
		GetByRefresh(ctx context.Context, refresh string) (TokenInfo, error)

		// atomically read and delete the authorization code
		TakeByCode(ctx context.Context, code string) (TokenInfo, error)

		// atomically read and delete the refresh token
		TakeByRefresh(ctx context.Context, refresh string) (TokenInfo, error)
	}
)
