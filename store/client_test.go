package store

import (
	"context"
	"testing"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/models"
)

func TestClientStore(t *testing.T) {
	cs := NewClientStore()
	ctx := context.Background()

	if _, err := cs.GetByID(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = cs.Set("web", &models.Client{ID: "web", Secret: "pw"})
	c, err := cs.GetByID(ctx, "web")
	if err != nil || c.GetSecret() != "pw" {
		t.Fatalf("got %v %v", c, err)
	}
}

func TestDBClientStore(t *testing.T) {
	db := getTestGormDB(t)
	s := NewDBClientStore(db)
	ctx := context.Background()
	id := "client-" + uniqueSuffix()
	defer db.Exec(`DELETE FROM oauth2_clients WHERE id=?`, id)

	in := &models.Client{
		ID:           id,
		Secret:       "pw",
		GrantTypes:   []oauth2.GrantType{oauth2.AuthorizationCode, oauth2.Refreshing},
		RedirectURIs: []string{"http://localhost/cb"},
	}
	if err := s.Upsert(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.GetSecret() != "pw" || len(got.GetGrantTypes()) != 2 || got.GetRedirectURIs()[0] != "http://localhost/cb" {
		t.Fatalf("unexpected client: %+v", got)
	}
	if _, err := s.GetByID(ctx, "missing-"+id); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
