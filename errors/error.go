package errors

import "errors"

// New returns an error that formats as the given text.
var New = errors.New

// Is reports whether any error in err's chain matches target.
var Is = errors.Is

// known public errors, RFC 6749 section 5.2 and RFC 6750 section 3.1
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrUnauthorizedClient      = errors.New("unauthorized_client")
	ErrAccessDenied            = errors.New("access_denied")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrServerError             = errors.New("server_error")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrInvalidAccessToken      = errors.New("invalid_token")
)

// internal causes, folded into the public errors before they reach a client
var (
	ErrInvalidRedirectURI   = errors.New("invalid redirect uri")
	ErrInvalidAuthorizeCode = errors.New("invalid authorize code")
	ErrExpiredAuthorizeCode = errors.New("expired authorize code")
	ErrExpiredAccessToken   = errors.New("expired access token")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrExpiredRefreshToken  = errors.New("expired refresh token")
	ErrMissingClientSecret  = errors.New("missing client secret")
)

// ErrNotFound is returned by client and user stores for unknown identifiers.
var ErrNotFound = errors.New("not found")
