package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

// gin context keys set by TokenMiddleware
const (
	ctxUserID     = "user_id"
	ctxClientID   = "client_id"
	ctxUserScopes = "user_scopes"
	ctxTokenInfo  = "token_info"
)

// TokenMiddleware validates the bearer token and sets the token info in
// context. Any token problem ends the request with 401 invalid_token.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ti, err := s.ValidationBearerToken(c.Request)
		if err != nil {
			s.abortInvalidToken(c, err)
			return
		}

		c.Set(ctxUserID, ti.GetUserID())
		c.Set(ctxClientID, ti.GetClientID())
		if scope := ti.GetScope(); scope != "" {
			c.Set(ctxUserScopes, strings.Fields(scope))
		}
		c.Set(ctxTokenInfo, ti)

		c.Next()
	}
}

// abortInvalidToken answers 401 with a Bearer challenge (RFC 6750 section 3).
// Store faults still surface as server_error.
func (s *Server) abortInvalidToken(c *gin.Context, err error) {
	data, status, _ := s.GetErrorData(err)
	if status < http.StatusInternalServerError {
		status = http.StatusUnauthorized
		data["error"] = errors.ErrInvalidAccessToken.Error()
		data["error_description"] = errors.Descriptions[errors.ErrInvalidAccessToken]
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, data)
}

// GetUserIDFromContext retrieves the user ID from the gin context.
// Returns empty string if not found.
func GetUserIDFromContext(c *gin.Context) string {
	if userID, exists := c.Get(ctxUserID); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetClientIDFromContext retrieves the client ID from the gin context.
func GetClientIDFromContext(c *gin.Context) string {
	if clientID, exists := c.Get(ctxClientID); exists {
		if id, ok := clientID.(string); ok {
			return id
		}
	}
	return ""
}

// GetScopesFromContext retrieves the granted scopes from the gin context.
func GetScopesFromContext(c *gin.Context) []string {
	if scopes, exists := c.Get(ctxUserScopes); exists {
		if s, ok := scopes.([]string); ok {
			return s
		}
	}
	return nil
}

// GetTokenInfoFromContext retrieves the verified token from the gin context.
func GetTokenInfoFromContext(c *gin.Context) oauth2.TokenInfo {
	if v, exists := c.Get(ctxTokenInfo); exists {
		if ti, ok := v.(oauth2.TokenInfo); ok {
			return ti
		}
	}
	return nil
}
