package seed

import (
	"context"
	"testing"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/config"
	"github.com/legit-games/oauth2-core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientsDefaultsGrantTypes(t *testing.T) {
	cs, err := Clients([]config.ClientConfig{{ID: "web", Secret: "pw", RedirectURIs: []string{"http://localhost/cb"}}})
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.True(t, cs[0].AllowsGrant(oauth2.AuthorizationCode))
	assert.True(t, cs[0].AllowsGrant(oauth2.Refreshing))
	assert.False(t, cs[0].IsPublic())
}

func TestClientsRejectsUnknownGrant(t *testing.T) {
	_, err := Clients([]config.ClientConfig{{ID: "web", GrantTypes: []string{"implicit"}}})
	assert.Error(t, err)
}

func TestClientsRejectsPublicClientCredentials(t *testing.T) {
	_, err := Clients([]config.ClientConfig{{ID: "spa", GrantTypes: []string{"client_credentials"}}})
	assert.Error(t, err)
}

func TestProvisionMemoryStores(t *testing.T) {
	cfg := &config.Config{
		Clients: []config.ClientConfig{{ID: "web", Secret: "pw"}},
		Users:   []config.UserConfig{{ID: "u1", Username: "alice", Password: "wonderland", Email: "alice@example.com"}},
	}
	cs := store.NewClientStore()
	us := store.NewUserStore()
	ctx := context.Background()

	require.NoError(t, Provision(ctx, cfg, cs, us, nil))

	cli, err := cs.GetByID(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "pw", cli.GetSecret())

	u, err := us.Authenticate(ctx, "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.GetID())

	_, err = us.Authenticate(ctx, "alice", "nope")
	assert.Error(t, err)
}

func TestUsersKeepsBcryptHash(t *testing.T) {
	hash, err := store.HashPassword("secret")
	require.NoError(t, err)

	us, err := Users([]config.UserConfig{{ID: "u1", Username: "bob", Password: hash}})
	require.NoError(t, err)
	assert.Equal(t, hash, us[0].PasswordHash)
}
