package models

import (
	"crypto/subtle"

	"github.com/legit-games/oauth2-core"
)

// Client client model
type Client struct {
	ID           string             `json:"id"`
	Secret       string             `json:"secret,omitempty"`
	GrantTypes   []oauth2.GrantType `json:"grant_types"`
	RedirectURIs []string           `json:"redirect_uris"`
	Public       bool               `json:"public"`
}

// GetID client id
func (c *Client) GetID() string {
	return c.ID
}

// GetSecret client secret
func (c *Client) GetSecret() string {
	return c.Secret
}

// GetGrantTypes permitted grant types
func (c *Client) GetGrantTypes() []oauth2.GrantType {
	return c.GrantTypes
}

// GetRedirectURIs registered redirect uris
func (c *Client) GetRedirectURIs() []string {
	return c.RedirectURIs
}

// IsPublic public
func (c *Client) IsPublic() bool {
	return c.Public || c.Secret == ""
}

// VerifyPassword compares the presented secret in constant time.
// A public client has nothing to compare against and never verifies.
func (c *Client) VerifyPassword(secret string) bool {
	if c.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1
}

// AllowsGrant reports whether gt is in the client's permitted set.
func (c *Client) AllowsGrant(gt oauth2.GrantType) bool {
	for _, g := range c.GrantTypes {
		if g == gt {
			return true
		}
	}
	return false
}
