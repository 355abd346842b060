package generates

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/legit-games/oauth2-core"
)

// codeEntropyBytes is 256 bits, twice the 128-bit floor for authorization codes.
const codeEntropyBytes = 32

// NewAuthorizeGenerate create to generate the authorize code instance
func NewAuthorizeGenerate() *AuthorizeGenerate {
	return &AuthorizeGenerate{}
}

// AuthorizeGenerate generate the authorize code
type AuthorizeGenerate struct{}

// Token based on crypto/rand generated code
func (ag *AuthorizeGenerate) Token(ctx context.Context, data *oauth2.GenerateBasic) (string, error) {
	return randomToken(codeEntropyBytes)
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
