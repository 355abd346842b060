package manage

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

type (
	// ValidateURIHandler validates a presented redirect URI against a client
	// and returns the URI to use.
	ValidateURIHandler func(cli oauth2.ClientInfo, uri string) (string, error)
)

// ValidateRedirectURI requires an exact match with one of the registered
// URIs. An empty URI resolves to the registered one when there is exactly one.
func ValidateRedirectURI(cli oauth2.ClientInfo, uri string) (string, error) {
	registered := cli.GetRedirectURIs()
	if uri == "" {
		if len(registered) == 1 {
			return registered[0], nil
		}
		return "", errors.ErrInvalidRedirectURI
	}
	for _, r := range registered {
		if r == uri {
			return uri, nil
		}
	}
	return "", errors.ErrInvalidRedirectURI
}

func allowsGrant(cli oauth2.ClientInfo, gt oauth2.GrantType) bool {
	for _, g := range cli.GetGrantTypes() {
		if g == gt {
			return true
		}
	}
	return false
}

// GetClient get the client information
func (m *Manager) GetClient(ctx context.Context, clientID string) (cli oauth2.ClientInfo, err error) {
	if clientID == "" {
		return nil, errors.ErrInvalidClient
	}
	cli, err = m.clientStore.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.ErrInvalidClient
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	if cli == nil {
		return nil, errors.ErrInvalidClient
	}
	return cli, nil
}

// CheckRedirectURI resolves the redirect URI of an authorization request.
// Until it succeeds, errors must not be delivered to the presented URI.
func (m *Manager) CheckRedirectURI(ctx context.Context, clientID, redirectURI string) (string, error) {
	cli, err := m.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	return m.validateURI(cli, redirectURI)
}

// AuthenticateClient checks the client, its secret and the grant type.
// Confidential clients must present their secret; client_credentials is
// only available to confidential clients.
func (m *Manager) AuthenticateClient(ctx context.Context, clientID, clientSecret string, gt oauth2.GrantType) (oauth2.ClientInfo, error) {
	cli, err := m.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if clientSecret != "" {
		if !verifySecret(cli, clientSecret) {
			m.logger.Info("client secret mismatch", "client_id", clientID, "grant_type", gt)
			return nil, errors.ErrInvalidClient
		}
	} else if !cli.IsPublic() {
		return nil, errors.ErrMissingClientSecret
	}

	if gt == oauth2.ClientCredentials && cli.IsPublic() {
		return nil, errors.ErrUnauthorizedClient
	}
	if !allowsGrant(cli, gt) {
		return nil, errors.ErrUnauthorizedClient
	}
	return cli, nil
}

func verifySecret(cli oauth2.ClientInfo, secret string) bool {
	if v, ok := cli.(oauth2.ClientPasswordVerifier); ok {
		return v.VerifyPassword(secret)
	}
	return cli.GetSecret() != "" && subtle.ConstantTimeCompare([]byte(cli.GetSecret()), []byte(secret)) == 1
}
