package server

import (
	"log/slog"

	"github.com/legit-games/oauth2-core"
)

// SetTokenType token type
func (s *Server) SetTokenType(tokenType string) {
	s.Config.TokenType = tokenType
}

// SetAllowGetAccessRequest to allow GET requests for the token
func (s *Server) SetAllowGetAccessRequest(allow bool) {
	s.Config.AllowGetAccessRequest = allow
}

// SetAllowedResponseType allow the authorization types
func (s *Server) SetAllowedResponseType(types ...oauth2.ResponseType) {
	s.Config.AllowedResponseTypes = types
}

// SetAllowedGrantType allow the grant types
func (s *Server) SetAllowedGrantType(types ...oauth2.GrantType) {
	s.Config.AllowedGrantTypes = types
}

// SetAllowBearerTokensInQuery accept the access_token query parameter
func (s *Server) SetAllowBearerTokensInQuery(allow bool) {
	s.Config.AllowBearerTokensInQuery = allow
	if allow {
		s.AccessTokenResolveHandler = AccessTokenQueryResolveHandler
	} else {
		s.AccessTokenResolveHandler = AccessTokenDefaultResolveHandler
	}
}

// SetClientInfoHandler get client info from request
func (s *Server) SetClientInfoHandler(handler ClientInfoHandler) {
	s.ClientInfoHandler = handler
}

// SetIdentityResolver resolves the logged in resource owner
func (s *Server) SetIdentityResolver(resolver IdentityResolver) {
	s.IdentityResolver = resolver
}

// SetLoginRedirectHandler sends anonymous resource owners to log in
func (s *Server) SetLoginRedirectHandler(handler LoginRedirectHandler) {
	s.LoginRedirectHandler = handler
}

// SetSessionLogin uses the session login for identity and login redirects
func (s *Server) SetSessionLogin(login *SessionLogin) {
	s.Login = login
	s.IdentityResolver = login
	s.LoginRedirectHandler = login.RedirectToLogin
}

// SetResponseErrorHandler response error handling
func (s *Server) SetResponseErrorHandler(handler ResponseErrorHandler) {
	s.ResponseErrorHandler = handler
}

// SetInternalErrorHandler internal error handling
func (s *Server) SetInternalErrorHandler(handler InternalErrorHandler) {
	s.InternalErrorHandler = handler
}

// SetExtensionFieldsHandler in response to the access token with the extension of the field
func (s *Server) SetExtensionFieldsHandler(handler ExtensionFieldsHandler) {
	s.ExtensionFieldsHandler = handler
}

// SetResponseTokenHandler response token handing
func (s *Server) SetResponseTokenHandler(handler ResponseTokenHandler) {
	s.ResponseTokenHandler = handler
}

// SetRefreshTokenResolveHandler refresh token resolve
func (s *Server) SetRefreshTokenResolveHandler(handler RefreshTokenResolveHandler) {
	s.RefreshTokenResolveHandler = handler
}

// SetAccessTokenResolveHandler access token resolve
func (s *Server) SetAccessTokenResolveHandler(handler AccessTokenResolveHandler) {
	s.AccessTokenResolveHandler = handler
}

// SetLogger sets the structured logger, nil keeps slog.Default
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}
