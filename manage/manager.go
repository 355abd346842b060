package manage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/generates"
	"github.com/legit-games/oauth2-core/models"
)

// NewDefaultManager create to default authorization management instance
func NewDefaultManager() *Manager {
	m := NewManager()
	// default implementation
	m.MapAuthorizeGenerate(generates.NewAuthorizeGenerate())
	return m
}

// NewManager create to authorization management instance
func NewManager() *Manager {
	return &Manager{
		codeExp: DefaultAuthorizeCodeExp,
		gtcfg: map[oauth2.GrantType]*Config{
			oauth2.AuthorizationCode:   DefaultAuthorizeCodeTokenCfg,
			oauth2.PasswordCredentials: DefaultPasswordTokenCfg,
			oauth2.ClientCredentials:   DefaultClientTokenCfg,
		},
		rcfg:        DefaultRefreshTokenCfg,
		validateURI: ValidateRedirectURI,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// Manager provide authorization management
type Manager struct {
	codeExp           time.Duration
	gtcfg             map[oauth2.GrantType]*Config
	rcfg              *RefreshingConfig
	validateURI       ValidateURIHandler
	authorizeGenerate oauth2.AuthorizeGenerate
	accessGenerate    oauth2.AccessGenerate
	accessVerifier    oauth2.AccessVerifier
	tokenStore        oauth2.TokenStore
	clientStore       oauth2.ClientStore
	userStore         oauth2.UserStore
	logger            *slog.Logger
	now               func() time.Time
}

// get grant type config
func (m *Manager) grantConfig(gt oauth2.GrantType) *Config {
	if c, ok := m.gtcfg[gt]; ok && c != nil {
		return c
	}
	return &Config{AccessTokenExp: DefaultAccessTokenExp}
}

// SetAuthorizeCodeExp set the authorization code expiration time
func (m *Manager) SetAuthorizeCodeExp(exp time.Duration) {
	m.codeExp = exp
}

// SetAuthorizeCodeTokenCfg set the authorization code grant token config
func (m *Manager) SetAuthorizeCodeTokenCfg(cfg *Config) {
	m.gtcfg[oauth2.AuthorizationCode] = cfg
}

// SetPasswordTokenCfg set the password grant token config
func (m *Manager) SetPasswordTokenCfg(cfg *Config) {
	m.gtcfg[oauth2.PasswordCredentials] = cfg
}

// SetClientTokenCfg set the client grant token config
func (m *Manager) SetClientTokenCfg(cfg *Config) {
	m.gtcfg[oauth2.ClientCredentials] = cfg
}

// SetRefreshTokenCfg set the refreshing token config
func (m *Manager) SetRefreshTokenCfg(cfg *RefreshingConfig) {
	m.rcfg = cfg
}

// SetValidateURIHandler set the validates that RedirectURI is contained in client
func (m *Manager) SetValidateURIHandler(handler ValidateURIHandler) {
	m.validateURI = handler
}

// SetLogger set the structured logger; nil restores slog.Default()
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	m.logger = logger
}

// MapAuthorizeGenerate mapping the authorize code generate interface
func (m *Manager) MapAuthorizeGenerate(gen oauth2.AuthorizeGenerate) {
	m.authorizeGenerate = gen
}

// MapAccessGenerate mapping the access token generate interface. A generator
// that can also verify its tokens is used as the access verifier.
func (m *Manager) MapAccessGenerate(gen oauth2.AccessGenerate) {
	m.accessGenerate = gen
	if v, ok := gen.(oauth2.AccessVerifier); ok {
		m.accessVerifier = v
	}
}

// MapAccessVerifier mapping the access token verifier
func (m *Manager) MapAccessVerifier(v oauth2.AccessVerifier) {
	m.accessVerifier = v
}

// MapClientStorage mapping the client store interface
func (m *Manager) MapClientStorage(stor oauth2.ClientStore) {
	m.clientStore = stor
}

// MustClientStorage mandatory mapping the client store interface
func (m *Manager) MustClientStorage(stor oauth2.ClientStore, err error) {
	if err != nil {
		panic(err.Error())
	}
	m.clientStore = stor
}

// MapUserStorage mapping the user store interface
func (m *Manager) MapUserStorage(stor oauth2.UserStore) {
	m.userStore = stor
}

// MapTokenStorage mapping the token store interface
func (m *Manager) MapTokenStorage(stor oauth2.TokenStore) {
	m.tokenStore = stor
}

// MustTokenStorage mandatory mapping the token store interface
func (m *Manager) MustTokenStorage(stor oauth2.TokenStore, err error) {
	if err != nil {
		panic(err)
	}
	m.tokenStore = stor
}

// GenerateAuthToken generate the authorization token(code)
func (m *Manager) GenerateAuthToken(ctx context.Context, rt oauth2.ResponseType, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if rt != oauth2.Code {
		return nil, errors.ErrUnsupportedResponseType
	}
	cli, err := m.GetClient(ctx, tgr.ClientID)
	if err != nil {
		return nil, err
	}
	if !allowsGrant(cli, oauth2.AuthorizationCode) {
		return nil, errors.ErrUnauthorizedClient
	}
	uri, err := m.validateURI(cli, tgr.RedirectURI)
	if err != nil {
		return nil, err
	}

	createAt := m.now()
	ti := models.NewToken()
	ti.SetClientID(tgr.ClientID)
	ti.SetUserID(tgr.UserID)
	ti.SetRedirectURI(uri)
	ti.SetScope(tgr.Scope)
	ti.SetCodeCreateAt(createAt)
	ti.SetCodeExpiresIn(m.codeExp)

	code, err := m.authorizeGenerate.Token(ctx, &oauth2.GenerateBasic{
		Client:    cli,
		UserID:    tgr.UserID,
		CreateAt:  createAt,
		TokenInfo: ti,
		Request:   tgr.Request,
	})
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	ti.SetCode(code)

	if err := m.tokenStore.Create(ctx, ti); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}
	m.logger.Debug("authorization code issued", "client_id", tgr.ClientID, "user_id", tgr.UserID)
	return ti, nil
}

// consumeAuthorizationCode checks the code without consuming it, then takes
// it atomically. Losing a concurrent take is reported like any other miss.
func (m *Manager) consumeAuthorizationCode(ctx context.Context, cli oauth2.ClientInfo, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	if tgr.Code == "" {
		return nil, errors.ErrInvalidRequest
	}
	ti, err := m.tokenStore.GetByCode(ctx, tgr.Code)
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}
	if ti == nil || ti.GetCode() != tgr.Code {
		return nil, errors.ErrInvalidAuthorizeCode
	}
	if ti.GetClientID() != cli.GetID() || ti.GetRedirectURI() != tgr.RedirectURI {
		return nil, errors.ErrInvalidAuthorizeCode
	}
	if models.CodeExpired(ti, m.now()) {
		return nil, errors.ErrExpiredAuthorizeCode
	}

	taken, err := m.tokenStore.TakeByCode(ctx, tgr.Code)
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if taken == nil {
		return nil, errors.ErrInvalidAuthorizeCode
	}
	return taken, nil
}

// GenerateAccessToken generate the access token
func (m *Manager) GenerateAccessToken(ctx context.Context, gt oauth2.GrantType, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	switch gt {
	case oauth2.AuthorizationCode, oauth2.PasswordCredentials, oauth2.ClientCredentials:
	case oauth2.Refreshing:
		return m.RefreshAccessToken(ctx, tgr)
	default:
		return nil, errors.ErrUnsupportedGrantType
	}

	cli, err := m.AuthenticateClient(ctx, tgr.ClientID, tgr.ClientSecret, gt)
	if err != nil {
		return nil, err
	}

	var userID, scope, redirectURI string
	switch gt {
	case oauth2.AuthorizationCode:
		code, err := m.consumeAuthorizationCode(ctx, cli, tgr)
		if err != nil {
			return nil, err
		}
		userID, scope, redirectURI = code.GetUserID(), code.GetScope(), code.GetRedirectURI()
	case oauth2.PasswordCredentials:
		user, err := m.AuthenticateUser(ctx, tgr.Username, tgr.Password)
		if err != nil {
			return nil, err
		}
		userID, scope = user.GetID(), tgr.Scope
	case oauth2.ClientCredentials:
		scope = tgr.Scope
	}

	gcfg := m.grantConfig(gt)
	now := m.now()
	ti := models.NewToken()
	ti.SetClientID(cli.GetID())
	ti.SetUserID(userID)
	ti.SetRedirectURI(redirectURI)
	ti.SetScope(scope)
	ti.SetAccessCreateAt(now)
	ti.SetAccessExpiresIn(gcfg.AccessTokenExp)

	genRefresh := gcfg.IsGenerateRefresh && gt != oauth2.ClientCredentials && allowsGrant(cli, oauth2.Refreshing)
	if genRefresh {
		ti.SetRefreshCreateAt(now)
		ti.SetRefreshExpiresIn(gcfg.RefreshTokenExp)
	}

	if err := m.issue(ctx, cli, ti, genRefresh, tgr); err != nil {
		return nil, err
	}
	m.logger.Info("access token issued", "client_id", cli.GetID(), "grant_type", gt, "user_id", userID, "refresh", genRefresh)
	return ti, nil
}

// issue mints the token strings for ti and stores the pair.
func (m *Manager) issue(ctx context.Context, cli oauth2.ClientInfo, ti oauth2.TokenInfo, genRefresh bool, tgr *oauth2.TokenGenerateRequest) error {
	if m.accessGenerate == nil {
		return fmt.Errorf("no access token generator mapped")
	}
	access, refresh, err := m.accessGenerate.Token(ctx, &oauth2.GenerateBasic{
		Client:    cli,
		UserID:    ti.GetUserID(),
		CreateAt:  ti.GetAccessCreateAt(),
		TokenInfo: ti,
		Request:   tgr.Request,
	}, genRefresh)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	ti.SetAccess(access)
	if refresh != "" {
		ti.SetRefresh(refresh)
	}
	if err := m.tokenStore.Create(ctx, ti); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// RefreshAccessToken rotates a refresh token into a new access/refresh pair.
// The old refresh token is taken atomically and never returned again.
func (m *Manager) RefreshAccessToken(ctx context.Context, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo, error) {
	cli, err := m.AuthenticateClient(ctx, tgr.ClientID, tgr.ClientSecret, oauth2.Refreshing)
	if err != nil {
		return nil, err
	}
	if tgr.Refresh == "" {
		return nil, errors.ErrInvalidRequest
	}

	ti, err := m.LoadRefreshToken(ctx, tgr.Refresh)
	if err != nil {
		return nil, err
	}
	if ti.GetClientID() != cli.GetID() {
		return nil, errors.ErrInvalidRefreshToken
	}

	scope := ti.GetScope()
	if tgr.Scope != "" {
		if !scopeSubset(tgr.Scope, scope) {
			return nil, errors.ErrInvalidScope
		}
		scope = tgr.Scope
	}

	old, err := m.tokenStore.TakeByRefresh(ctx, tgr.Refresh)
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if old == nil {
		return nil, errors.ErrInvalidRefreshToken
	}

	now := m.now()
	nti := models.NewToken()
	nti.SetClientID(old.GetClientID())
	nti.SetUserID(old.GetUserID())
	nti.SetRedirectURI(old.GetRedirectURI())
	nti.SetScope(scope)
	nti.SetAccessCreateAt(now)

	rcfg := m.rcfg
	if rcfg == nil {
		rcfg = DefaultRefreshTokenCfg
	}
	aexp := rcfg.AccessTokenExp
	if aexp <= 0 {
		aexp = m.grantConfig(oauth2.AuthorizationCode).AccessTokenExp
	}
	nti.SetAccessExpiresIn(aexp)

	rexp := rcfg.RefreshTokenExp
	if rexp <= 0 {
		rexp = old.GetRefreshExpiresIn()
	}
	if rcfg.IsResetRefreshTime {
		nti.SetRefreshCreateAt(now)
	} else {
		nti.SetRefreshCreateAt(old.GetRefreshCreateAt())
	}
	nti.SetRefreshExpiresIn(rexp)

	if err := m.issue(ctx, cli, nti, true, tgr); err != nil {
		return nil, err
	}

	if rcfg.IsRemoveAccess {
		if err := m.tokenStore.RemoveByAccess(ctx, old.GetAccess()); err != nil {
			m.logger.Warn("failed to remove rotated access token", "client_id", cli.GetID(), "error", err)
		}
	}
	m.logger.Info("refresh token rotated", "client_id", cli.GetID(), "user_id", nti.GetUserID())
	return nti, nil
}

// scopeSubset reports whether every space separated entry of requested is in granted.
func scopeSubset(requested, granted string) bool {
	have := make(map[string]struct{})
	for _, s := range strings.Fields(granted) {
		have[s] = struct{}{}
	}
	for _, s := range strings.Fields(requested) {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// RemoveAccessToken use the access token to delete the token information
func (m *Manager) RemoveAccessToken(ctx context.Context, access string) error {
	if access == "" {
		return errors.ErrInvalidAccessToken
	}
	return m.tokenStore.RemoveByAccess(ctx, access)
}

// RemoveRefreshToken use the refresh token to delete the token information
func (m *Manager) RemoveRefreshToken(ctx context.Context, refresh string) error {
	if refresh == "" {
		return errors.ErrInvalidRefreshToken
	}
	return m.tokenStore.RemoveByRefresh(ctx, refresh)
}

// RevokeUserRefreshTokens deletes every refresh token of the user. Access
// tokens already issued stay valid until they expire.
func (m *Manager) RevokeUserRefreshTokens(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	n, err := m.tokenStore.RemoveRefreshByUserID(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	m.logger.Info("refresh tokens revoked", "user_id", userID, "count", n)
	return n, nil
}

// LoadAccessToken verifies the token signature and expiry, then resolves the
// stored record. The record's client must match the token's claim.
func (m *Manager) LoadAccessToken(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	if access == "" {
		return nil, errors.ErrInvalidAccessToken
	}

	var claims oauth2.AccessClaims
	if m.accessVerifier != nil {
		var err error
		if claims, err = m.accessVerifier.Verify(ctx, access); err != nil {
			return nil, err
		}
	}

	ti, err := m.tokenStore.GetByAccess(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	if ti == nil || ti.GetAccess() != access {
		return nil, errors.ErrInvalidAccessToken
	}
	if claims != nil && claims.GetClientID() != ti.GetClientID() {
		return nil, errors.ErrInvalidAccessToken
	}
	if models.AccessExpired(ti, m.now()) {
		return nil, errors.ErrExpiredAccessToken
	}
	return ti, nil
}

// LoadRefreshToken according to the refresh token for corresponding token information
func (m *Manager) LoadRefreshToken(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	if refresh == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	ti, err := m.tokenStore.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	if ti == nil || ti.GetRefresh() != refresh {
		return nil, errors.ErrInvalidRefreshToken
	}
	if models.RefreshExpired(ti, m.now()) {
		return nil, errors.ErrExpiredRefreshToken
	}
	return ti, nil
}

// AuthenticateUser verifies resource owner credentials. Bad credentials
// yield errors.ErrInvalidGrant without saying which field was wrong.
func (m *Manager) AuthenticateUser(ctx context.Context, username, password string) (oauth2.UserInfo, error) {
	if m.userStore == nil {
		return nil, fmt.Errorf("no user store mapped")
	}
	if username == "" || password == "" {
		return nil, errors.ErrInvalidRequest
	}
	user, err := m.userStore.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidGrant
		}
		return nil, fmt.Errorf("authenticate user: %w", err)
	}
	if user == nil {
		return nil, errors.ErrInvalidGrant
	}
	return user, nil
}

// GetUser returns errors.ErrNotFound for an unknown user.
func (m *Manager) GetUser(ctx context.Context, userID string) (oauth2.UserInfo, error) {
	if m.userStore == nil {
		return nil, fmt.Errorf("no user store mapped")
	}
	if userID == "" {
		return nil, errors.ErrNotFound
	}
	return m.userStore.GetByID(ctx, userID)
}

var _ oauth2.Manager = (*Manager)(nil)
