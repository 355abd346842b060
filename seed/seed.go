package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/config"
	"github.com/legit-games/oauth2-core/models"
	"github.com/legit-games/oauth2-core/store"
)

// ClientUpserter is satisfied by store.ClientStore and store.DBClientStore.
type ClientUpserter interface {
	Upsert(ctx context.Context, c *models.Client) error
}

// UserUpserter is satisfied by store.UserStore and store.DBUserStore.
type UserUpserter interface {
	Upsert(ctx context.Context, u *models.User) error
}

// Clients converts configured clients into models. Clients without grant
// types get config.DefaultGrantTypes.
func Clients(cfgs []config.ClientConfig) ([]*models.Client, error) {
	out := make([]*models.Client, 0, len(cfgs))
	for _, cc := range cfgs {
		grants := cc.GrantTypes
		if len(grants) == 0 {
			grants = config.DefaultGrantTypes
		}
		c := &models.Client{
			ID:           cc.ID,
			Secret:       cc.Secret,
			Public:       cc.Public,
			RedirectURIs: cc.RedirectURIs,
		}
		for _, g := range grants {
			gt := oauth2.GrantType(strings.TrimSpace(g))
			if gt.String() == "" {
				return nil, fmt.Errorf("seed: client %s: unsupported grant type %q", cc.ID, g)
			}
			c.GrantTypes = append(c.GrantTypes, gt)
		}
		if c.IsPublic() && c.AllowsGrant(oauth2.ClientCredentials) && len(cc.GrantTypes) > 0 {
			return nil, fmt.Errorf("seed: client %s: client_credentials requires a secret", cc.ID)
		}
		out = append(out, c)
	}
	return out, nil
}

// Users converts configured users into models, hashing plain passwords with
// bcrypt. A password that is already a bcrypt hash is stored as is.
func Users(cfgs []config.UserConfig) ([]*models.User, error) {
	out := make([]*models.User, 0, len(cfgs))
	for _, uc := range cfgs {
		hash := uc.Password
		if !isBcryptHash(hash) {
			var err error
			if hash, err = store.HashPassword(uc.Password); err != nil {
				return nil, fmt.Errorf("seed: user %s: %w", uc.ID, err)
			}
		}
		out = append(out, &models.User{
			ID:           uc.ID,
			Username:     uc.Username,
			PasswordHash: hash,
			Email:        uc.Email,
			FirstName:    uc.FirstName,
			LastName:     uc.LastName,
		})
	}
	return out, nil
}

// Provision writes the configured clients and users into the given stores.
func Provision(ctx context.Context, cfg *config.Config, cs ClientUpserter, us UserUpserter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	clients, err := Clients(cfg.Clients)
	if err != nil {
		return err
	}
	users, err := Users(cfg.Users)
	if err != nil {
		return err
	}
	for _, c := range clients {
		if err := cs.Upsert(ctx, c); err != nil {
			return fmt.Errorf("seed: upsert client %s: %w", c.ID, err)
		}
		logger.Info("provisioned client", "client_id", c.ID, "public", c.IsPublic(), "grant_types", c.GrantTypes)
	}
	for _, u := range users {
		if err := us.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed: upsert user %s: %w", u.ID, err)
		}
		logger.Info("provisioned user", "user_id", u.ID)
	}
	return nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
