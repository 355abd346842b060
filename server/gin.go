package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/legit-games/oauth2-core/errors"
)

// NewGinEngine builds a Gin router and registers the default routes.
func NewGinEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(parseFormMiddleware())

	r.GET("/authorize", s.ginFrom(s.HandleAuthorizeRequest))
	r.POST("/authorize", s.ginFrom(s.HandleAuthorizeRequest))

	r.POST("/token", s.ginFrom(s.HandleTokenRequest))
	if s.Config != nil && s.Config.AllowGetAccessRequest {
		r.GET("/token", s.ginFrom(s.HandleTokenRequest))
	}

	if l := s.Login; l != nil {
		r.GET(l.LoginPath, s.ginFrom(l.HandleLoginPage))
		r.POST(l.LoginPath, s.ginFrom(l.HandleLogin))
		r.GET(l.LogoutPath, s.ginFrom(l.HandleLogout))
	}

	r.GET("/me", s.TokenMiddleware(), s.handleMe)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// handleMe returns the profile of the token's resource owner.
func (s *Server) handleMe(c *gin.Context) {
	userID := GetUserIDFromContext(c)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := s.Manager.GetUser(c.Request.Context(), userID)
	if err != nil || user == nil {
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error("load user", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errors.ErrServerError.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        user.GetID(),
		"email":     user.GetEmail(),
		"firstName": user.GetFirstName(),
		"lastName":  user.GetLastName(),
	})
}

// ginFrom adapts a net/http style handler returning error to gin.HandlerFunc.
// Errors that were not answered yet become a server_error response.
func (s *Server) ginFrom(h func(http.ResponseWriter, *http.Request) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c.Writer, c.Request); err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				data, status, _ := s.GetErrorData(err)
				c.JSON(status, data)
			}
		}
		c.Abort()
	}
}

// parseFormMiddleware ensures r.ParseForm() is called for urlencoded/multipart requests so r.FormValue works.
func parseFormMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := c.Request
		ct := r.Header.Get("Content-Type")
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
				_ = r.ParseForm()
			}
		}
		c.Next()
	}
}
