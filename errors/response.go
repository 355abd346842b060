package errors

import (
	"net/http"
)

// Response error response
type Response struct {
	Error       error
	ErrorCode   int
	Description string
	URI         string
	StatusCode  int
	Header      http.Header
}

// NewResponse create the response pointer
func NewResponse(err error, statusCode int) *Response {
	return &Response{
		Error:      err,
		StatusCode: statusCode,
	}
}

// SetHeader sets the header entries associated with key to
// the single element value.
func (r *Response) SetHeader(key, value string) {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
}

// Descriptions error description
var Descriptions = map[error]string{
	ErrInvalidRequest:          "The request is missing a required parameter, includes an invalid parameter value, includes a parameter more than once, or is otherwise malformed",
	ErrUnauthorizedClient:      "The client is not authorized to request an authorization code or token using this method",
	ErrAccessDenied:            "The resource owner or authorization server denied the request",
	ErrUnsupportedResponseType: "The authorization server does not support obtaining an authorization code using this method",
	ErrInvalidScope:            "The requested scope is invalid, unknown, or malformed",
	ErrServerError:             "The authorization server encountered an unexpected condition that prevented it from fulfilling the request",
	ErrInvalidClient:           "Client authentication failed",
	ErrInvalidGrant:            "The provided authorization grant (e.g., authorization code, resource owner credentials) or refresh token is invalid, expired, revoked, does not match the redirection URI used in the authorization request, or was issued to another client",
	ErrUnsupportedGrantType:    "The authorization grant type is not supported by the authorization server",
	ErrInvalidAccessToken:      "The access token provided is expired, revoked, malformed, or invalid",
}

// StatusCodes response error HTTP status code
var StatusCodes = map[error]int{
	ErrInvalidRequest:          400,
	ErrUnauthorizedClient:      400,
	ErrAccessDenied:            403,
	ErrUnsupportedResponseType: 400,
	ErrInvalidScope:            400,
	ErrServerError:             500,
	ErrInvalidClient:           401,
	ErrInvalidGrant:            400,
	ErrUnsupportedGrantType:    400,
	ErrInvalidAccessToken:      401,
}

// Public folds an internal cause into the public error reported to clients.
// Errors that are neither public nor a known cause are returned unchanged.
func Public(err error) error {
	switch {
	case err == nil:
		return nil
	case Is(err, ErrInvalidAuthorizeCode), Is(err, ErrExpiredAuthorizeCode),
		Is(err, ErrInvalidRefreshToken), Is(err, ErrExpiredRefreshToken):
		return ErrInvalidGrant
	case Is(err, ErrExpiredAccessToken):
		return ErrInvalidAccessToken
	case Is(err, ErrInvalidRedirectURI), Is(err, ErrMissingClientSecret):
		return ErrInvalidClient
	}
	for known := range Descriptions {
		if Is(err, known) {
			return known
		}
	}
	return err
}
