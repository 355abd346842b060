package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

type (
	// ClientInfoHandler get client info from request
	ClientInfoHandler func(r *http.Request) (clientID, clientSecret string, err error)

	// LoginRedirectHandler sends an unauthenticated resource owner to log in.
	// The original authorization request must resume once login completes.
	LoginRedirectHandler func(w http.ResponseWriter, r *http.Request) error

	// InternalErrorHandler internal error handing
	InternalErrorHandler func(err error) (re *errors.Response)

	// ResponseErrorHandler response error handing
	ResponseErrorHandler func(re *errors.Response)

	// ExtensionFieldsHandler in response to the access token with the extension of the field
	ExtensionFieldsHandler func(ti oauth2.TokenInfo) (fieldsValue map[string]interface{})

	// ResponseTokenHandler response token handing
	ResponseTokenHandler func(w http.ResponseWriter, data map[string]interface{}, header http.Header, statusCode ...int) error

	// RefreshTokenResolveHandler resolve refresh token from request
	RefreshTokenResolveHandler func(r *http.Request) (string, error)

	// AccessTokenResolveHandler resolve access token from request
	AccessTokenResolveHandler func(r *http.Request) (string, bool)
)

// IdentityResolver reports the authenticated resource owner of a request.
// An empty user ID with a nil error means nobody is logged in.
type IdentityResolver interface {
	ResolveIdentity(w http.ResponseWriter, r *http.Request) (userID string, err error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(w http.ResponseWriter, r *http.Request) (string, error)

// ResolveIdentity calls f(w, r).
func (f IdentityResolverFunc) ResolveIdentity(w http.ResponseWriter, r *http.Request) (string, error) {
	return f(w, r)
}

// ClientFormHandler get client data from form
func ClientFormHandler(r *http.Request) (string, string, error) {
	clientID := r.FormValue("client_id")
	if clientID == "" {
		return "", "", errors.ErrInvalidClient
	}
	return clientID, r.FormValue("client_secret"), nil
}

// ClientBasicHandler get client data from basic authorization.
// Credentials are form-urlencoded before base64 encoding (RFC 6749 section 2.3.1).
func ClientBasicHandler(r *http.Request) (string, string, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", "", errors.ErrInvalidClient
	}
	clientID, err := url.QueryUnescape(username)
	if err != nil {
		return "", "", errors.ErrInvalidClient
	}
	clientSecret, err := url.QueryUnescape(password)
	if err != nil {
		return "", "", errors.ErrInvalidClient
	}
	if clientID == "" {
		return "", "", errors.ErrInvalidClient
	}
	return clientID, clientSecret, nil
}

// ClientBasicOrFormHandler prefers HTTP Basic credentials and falls back to
// the client_id and client_secret form fields.
func ClientBasicOrFormHandler(r *http.Request) (string, string, error) {
	if _, _, ok := r.BasicAuth(); ok {
		return ClientBasicHandler(r)
	}
	return ClientFormHandler(r)
}

// RefreshTokenFormResolveHandler get refresh_token from form
func RefreshTokenFormResolveHandler(r *http.Request) (string, error) {
	rt := r.FormValue("refresh_token")
	if rt == "" {
		return "", errors.ErrInvalidRequest
	}
	return rt, nil
}

// AccessTokenDefaultResolveHandler get access token from the Authorization header
func AccessTokenDefaultResolveHandler(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		token := strings.TrimSpace(auth[len(prefix):])
		return token, token != ""
	}
	return "", false
}

// AccessTokenQueryResolveHandler get access token from the Authorization
// header, falling back to the access_token query parameter.
func AccessTokenQueryResolveHandler(r *http.Request) (string, bool) {
	if token, ok := AccessTokenDefaultResolveHandler(r); ok {
		return token, true
	}
	token := r.URL.Query().Get("access_token")
	return token, token != ""
}
