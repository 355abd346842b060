package manage

import "time"

// Config authorization configuration parameters
type Config struct {
	// access token expiration time, must be positive
	AccessTokenExp time.Duration
	// refresh token expiration time, 0 means it doesn't expire
	RefreshTokenExp time.Duration
	// whether to generate the refreshing token
	IsGenerateRefresh bool
}

// RefreshingConfig refreshing token config
type RefreshingConfig struct {
	// access token expiration time, 0 means use the default
	AccessTokenExp time.Duration
	// refresh token expiration time, 0 means keep the lifetime of the old token
	RefreshTokenExp time.Duration
	// whether to reset the refreshing create time
	IsResetRefreshTime bool
	// whether to remove the access token of the rotated pair
	IsRemoveAccess bool
}

// default configs
var (
	DefaultAuthorizeCodeExp      = time.Minute * 5
	DefaultAccessTokenExp        = time.Hour
	DefaultRefreshTokenExp       = time.Hour * 24 * 14
	DefaultAuthorizeCodeTokenCfg = &Config{AccessTokenExp: DefaultAccessTokenExp, RefreshTokenExp: DefaultRefreshTokenExp, IsGenerateRefresh: true}
	DefaultPasswordTokenCfg      = &Config{AccessTokenExp: DefaultAccessTokenExp, RefreshTokenExp: DefaultRefreshTokenExp, IsGenerateRefresh: true}
	DefaultClientTokenCfg        = &Config{AccessTokenExp: DefaultAccessTokenExp}
	DefaultRefreshTokenCfg       = &RefreshingConfig{IsResetRefreshTime: true}
)
