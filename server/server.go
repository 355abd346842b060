package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

// NewDefaultServer create a default authorization server
func NewDefaultServer(manager oauth2.Manager) *Server {
	return NewServer(NewConfig(), manager)
}

// NewServer create authorization server
func NewServer(cfg *Config, manager oauth2.Manager) *Server {
	srv := &Server{
		Config:  cfg,
		Manager: manager,
		logger:  slog.Default(),
	}

	// default handlers
	srv.ClientInfoHandler = ClientBasicOrFormHandler
	srv.RefreshTokenResolveHandler = RefreshTokenFormResolveHandler
	srv.AccessTokenResolveHandler = AccessTokenDefaultResolveHandler
	if cfg.AllowBearerTokensInQuery {
		srv.AccessTokenResolveHandler = AccessTokenQueryResolveHandler
	}

	srv.IdentityResolver = IdentityResolverFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
		return "", errors.ErrAccessDenied
	})
	srv.InternalErrorHandler = func(err error) *errors.Response {
		srv.logger.Error("internal error", "error", err)
		return nil
	}
	return srv
}

// Server Provide authorization server
type Server struct {
	Config                     *Config
	Manager                    oauth2.Manager
	ClientInfoHandler          ClientInfoHandler
	IdentityResolver           IdentityResolver
	LoginRedirectHandler       LoginRedirectHandler
	ResponseErrorHandler       ResponseErrorHandler
	InternalErrorHandler       InternalErrorHandler
	ExtensionFieldsHandler     ExtensionFieldsHandler
	ResponseTokenHandler       ResponseTokenHandler
	RefreshTokenResolveHandler RefreshTokenResolveHandler
	AccessTokenResolveHandler  AccessTokenResolveHandler

	// session-backed login, registered on the engine when set
	Login *SessionLogin

	logger *slog.Logger
}

// renderError answers the browser directly. Used while the redirect URI is
// still unverified.
func (s *Server) renderError(w http.ResponseWriter, err error) error {
	data, statusCode, header := s.GetErrorData(err)
	for key := range header {
		w.Header().Set(key, header.Get(key))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, werr := fmt.Fprintf(w, "%v: %v\n", data["error"], data["error_description"])
	return werr
}

func (s *Server) redirectError(w http.ResponseWriter, req *AuthorizeRequest, err error) error {
	if req == nil || req.RedirectURI == "" {
		return s.renderError(w, err)
	}

	data, _, _ := s.GetErrorData(err)
	return s.redirect(w, req, data)
}

func (s *Server) redirect(w http.ResponseWriter, req *AuthorizeRequest, data map[string]interface{}) error {
	uri, err := s.GetRedirectURI(req, data)
	if err != nil {
		return s.renderError(w, fmt.Errorf("build redirect: %w", err))
	}

	w.Header().Set("Location", uri)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusFound)
	return nil
}

func (s *Server) tokenError(w http.ResponseWriter, r *http.Request, err error) error {
	data, statusCode, header := s.GetErrorData(err)
	if statusCode == http.StatusUnauthorized && data["error"] == errors.ErrInvalidClient.Error() {
		if _, _, ok := r.BasicAuth(); ok {
			if header == nil {
				header = make(http.Header)
			}
			header.Set("WWW-Authenticate", `Basic realm="oauth2"`)
		}
	}
	return s.token(w, data, header, statusCode)
}

func (s *Server) token(w http.ResponseWriter, data map[string]interface{}, header http.Header, statusCode ...int) error {
	if fn := s.ResponseTokenHandler; fn != nil {
		return fn(w, data, header, statusCode...)
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	for key := range header {
		w.Header().Set(key, header.Get(key))
	}

	status := http.StatusOK
	if len(statusCode) > 0 && statusCode[0] > 0 {
		status = statusCode[0]
	}

	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GetRedirectURI get redirect uri. The registered URI's own query is kept
// byte for byte and the response parameters are appended after it.
func (s *Server) GetRedirectURI(req *AuthorizeRequest, data map[string]interface{}) (string, error) {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", err
	}

	q := make(url.Values)
	if req.State != "" {
		q.Set("state", req.State)
	}

	for k, v := range data {
		q.Set(k, fmt.Sprint(v))
	}

	switch enc := q.Encode(); {
	case enc == "":
	case u.RawQuery == "":
		u.RawQuery = enc
	default:
		u.RawQuery += "&" + enc
	}
	return u.String(), nil
}

// CheckResponseType check allows response type
func (s *Server) CheckResponseType(rt oauth2.ResponseType) bool {
	for _, art := range s.Config.AllowedResponseTypes {
		if art == rt {
			return true
		}
	}
	return false
}

// ValidationAuthorizeRequest the authorization request validation. Only the
// parts needed to find a safe redirect target are checked here.
func (s *Server) ValidationAuthorizeRequest(r *http.Request) (*AuthorizeRequest, error) {
	clientID := r.FormValue("client_id")
	if !(r.Method == http.MethodGet || r.Method == http.MethodPost) ||
		clientID == "" {
		return nil, errors.ErrInvalidRequest
	}

	req := &AuthorizeRequest{
		RedirectURI:  r.FormValue("redirect_uri"),
		ResponseType: oauth2.ResponseType(r.FormValue("response_type")),
		ClientID:     clientID,
		State:        r.FormValue("state"),
		Scope:        r.FormValue("scope"),
		Request:      r,
	}
	return req, nil
}

// GetAuthorizeToken get authorization token(code)
func (s *Server) GetAuthorizeToken(ctx context.Context, req *AuthorizeRequest) (oauth2.TokenInfo, error) {
	tgr := &oauth2.TokenGenerateRequest{
		ClientID:    req.ClientID,
		UserID:      req.UserID,
		RedirectURI: req.RedirectURI,
		Scope:       req.Scope,
		Request:     req.Request,
	}
	return s.Manager.GenerateAuthToken(ctx, req.ResponseType, tgr)
}

// GetAuthorizeData get authorization response data
func (s *Server) GetAuthorizeData(ti oauth2.TokenInfo) map[string]interface{} {
	return map[string]interface{}{
		"code": ti.GetCode(),
	}
}

// HandleAuthorizeRequest the authorization request handling.
// Errors found before the client and its redirect URI are verified are
// rendered to the browser; later ones are sent back to the client.
func (s *Server) HandleAuthorizeRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req, err := s.ValidationAuthorizeRequest(r)
	if err != nil {
		return s.renderError(w, err)
	}

	uri, err := s.Manager.CheckRedirectURI(ctx, req.ClientID, req.RedirectURI)
	if err != nil {
		return s.renderError(w, err)
	}
	req.RedirectURI = uri

	switch {
	case req.ResponseType == "":
		return s.redirectError(w, req, errors.ErrInvalidRequest)
	case !s.CheckResponseType(req.ResponseType):
		return s.redirectError(w, req, errors.ErrUnsupportedResponseType)
	}

	// user authorization
	userID, err := s.IdentityResolver.ResolveIdentity(w, r)
	if err != nil {
		return s.redirectError(w, req, err)
	} else if userID == "" {
		if fn := s.LoginRedirectHandler; fn != nil {
			return fn(w, r)
		}
		return s.redirectError(w, req, errors.ErrAccessDenied)
	}
	req.UserID = userID

	ti, err := s.GetAuthorizeToken(ctx, req)
	if err != nil {
		return s.redirectError(w, req, err)
	}

	return s.redirect(w, req, s.GetAuthorizeData(ti))
}

// ValidationTokenRequest the token request validation
func (s *Server) ValidationTokenRequest(r *http.Request) (oauth2.GrantType, *oauth2.TokenGenerateRequest, error) {
	if v := r.Method; !(v == http.MethodPost ||
		(s.Config.AllowGetAccessRequest && v == http.MethodGet)) {
		return "", nil, errors.ErrInvalidRequest
	}

	gt := oauth2.GrantType(r.FormValue("grant_type"))
	if r.FormValue("grant_type") == "" {
		return "", nil, errors.ErrInvalidRequest
	} else if gt.String() == "" {
		return "", nil, errors.ErrUnsupportedGrantType
	}

	clientID, clientSecret, err := s.ClientInfoHandler(r)
	if err != nil {
		return "", nil, err
	}

	tgr := &oauth2.TokenGenerateRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Request:      r,
	}

	switch gt {
	case oauth2.AuthorizationCode:
		tgr.RedirectURI = r.FormValue("redirect_uri")
		tgr.Code = r.FormValue("code")
		if tgr.RedirectURI == "" ||
			tgr.Code == "" {
			return "", nil, errors.ErrInvalidRequest
		}
	case oauth2.PasswordCredentials:
		tgr.Scope = r.FormValue("scope")
		tgr.Username, tgr.Password = r.FormValue("username"), r.FormValue("password")
		if tgr.Username == "" || tgr.Password == "" {
			return "", nil, errors.ErrInvalidRequest
		}
	case oauth2.ClientCredentials:
		tgr.Scope = r.FormValue("scope")
	case oauth2.Refreshing:
		tgr.Refresh, err = s.RefreshTokenResolveHandler(r)
		tgr.Scope = r.FormValue("scope")
		if err != nil {
			return "", nil, err
		}
	}
	return gt, tgr, nil
}

// CheckGrantType check allows grant type
func (s *Server) CheckGrantType(gt oauth2.GrantType) bool {
	for _, agt := range s.Config.AllowedGrantTypes {
		if agt == gt {
			return true
		}
	}
	return false
}

// GetAccessToken access token
func (s *Server) GetAccessToken(ctx context.Context, gt oauth2.GrantType, tgr *oauth2.TokenGenerateRequest) (oauth2.TokenInfo,
	error) {
	if allowed := s.CheckGrantType(gt); !allowed {
		return nil, errors.ErrUnsupportedGrantType
	}
	return s.Manager.GenerateAccessToken(ctx, gt, tgr)
}

// GetTokenData token data
func (s *Server) GetTokenData(ti oauth2.TokenInfo) map[string]interface{} {
	data := map[string]interface{}{
		"access_token": ti.GetAccess(),
		"token_type":   s.Config.TokenType,
		"expires_in":   int64(ti.GetAccessExpiresIn() / time.Second),
	}

	if scope := ti.GetScope(); scope != "" {
		data["scope"] = scope
	}

	if refresh := ti.GetRefresh(); refresh != "" {
		data["refresh_token"] = refresh
	}

	if fn := s.ExtensionFieldsHandler; fn != nil {
		ext := fn(ti)
		for k, v := range ext {
			if _, ok := data[k]; ok {
				continue
			}
			data[k] = v
		}
	}
	return data
}

// HandleTokenRequest token request handling
func (s *Server) HandleTokenRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	gt, tgr, err := s.ValidationTokenRequest(r)
	if err != nil {
		return s.tokenError(w, r, err)
	}

	ti, err := s.GetAccessToken(ctx, gt, tgr)
	if err != nil {
		return s.tokenError(w, r, err)
	}

	return s.token(w, s.GetTokenData(ti), nil)
}

// GetErrorData get error response data. Internal causes are reported under
// their public code; anything else becomes server_error.
func (s *Server) GetErrorData(err error) (map[string]interface{}, int, http.Header) {
	var re errors.Response
	pub := errors.Public(err)
	if v, ok := errors.Descriptions[pub]; ok {
		re.Error = pub
		re.Description = v
		re.StatusCode = errors.StatusCodes[pub]
	} else {
		if fn := s.InternalErrorHandler; fn != nil {
			if v := fn(err); v != nil {
				re = *v
			}
		}

		if re.Error == nil {
			re.Error = errors.ErrServerError
			re.Description = errors.Descriptions[errors.ErrServerError]
			re.StatusCode = errors.StatusCodes[errors.ErrServerError]
		}
	}

	if fn := s.ResponseErrorHandler; fn != nil {
		fn(&re)
	}

	data := make(map[string]interface{})
	if err := re.Error; err != nil {
		data["error"] = err.Error()
	}

	if v := re.ErrorCode; v != 0 {
		data["error_code"] = v
	}

	if v := re.Description; v != "" {
		data["error_description"] = v
	}

	if v := re.URI; v != "" {
		data["error_uri"] = v
	}

	statusCode := http.StatusInternalServerError
	if v := re.StatusCode; v > 0 {
		statusCode = v
	}

	return data, statusCode, re.Header
}

// ValidationBearerToken validation the bearer tokens
// https://tools.ietf.org/html/rfc6750
func (s *Server) ValidationBearerToken(r *http.Request) (oauth2.TokenInfo, error) {
	ctx := r.Context()

	accessToken, ok := s.AccessTokenResolveHandler(r)
	if !ok {
		return nil, errors.ErrInvalidAccessToken
	}

	return s.Manager.LoadAccessToken(ctx, accessToken)
}
