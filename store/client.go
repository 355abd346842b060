package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/models"
	"gorm.io/gorm"
)

// NewClientStore create client store (memory)
func NewClientStore() *ClientStore {
	return &ClientStore{
		data: make(map[string]oauth2.ClientInfo),
	}
}

// ClientStore client information store (in-memory)
type ClientStore struct {
	sync.RWMutex
	data map[string]oauth2.ClientInfo
}

// GetByID according to the ID for the client information
func (cs *ClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	cs.RLock()
	defer cs.RUnlock()

	if c, ok := cs.data[id]; ok {
		return c, nil
	}
	return nil, errors.ErrNotFound
}

// Set set client information
func (cs *ClientStore) Set(id string, cli oauth2.ClientInfo) (err error) {
	cs.Lock()
	defer cs.Unlock()

	cs.data[id] = cli
	return
}

// Upsert stores c under its ID.
func (cs *ClientStore) Upsert(ctx context.Context, c *models.Client) error {
	return cs.Set(c.ID, c)
}

// --- Persistent client store ---

type DBClientStore struct{ DB *gorm.DB }

func NewDBClientStore(db *gorm.DB) *DBClientStore { return &DBClientStore{DB: db} }

// Upsert creates or updates a client with its grants and redirect URIs.
func (s *DBClientStore) Upsert(ctx context.Context, c *models.Client) error {
	grants, err := json.Marshal(c.GrantTypes)
	if err != nil {
		return err
	}
	uris, err := json.Marshal(c.RedirectURIs)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Exec(
		`INSERT INTO oauth2_clients(id, secret, public, grant_types, redirect_uris)
		 VALUES(?,?,?,?::jsonb,?::jsonb)
		 ON CONFLICT(id) DO UPDATE SET secret=excluded.secret, public=excluded.public, grant_types=excluded.grant_types, redirect_uris=excluded.redirect_uris, updated_at=CURRENT_TIMESTAMP`,
		c.ID, c.Secret, c.Public, string(grants), string(uris),
	).Error
}

// GetByID implements oauth2.ClientStore backed by DB.
func (s *DBClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	var row struct {
		ID           string
		Secret       string
		Public       bool
		GrantTypes   string
		RedirectURIs string `gorm:"column:redirect_uris"`
	}
	if err := s.DB.WithContext(ctx).Raw(
		`SELECT id, secret, public, grant_types::text AS grant_types, redirect_uris::text AS redirect_uris FROM oauth2_clients WHERE id=?`, id,
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, errors.ErrNotFound
	}
	c := &models.Client{ID: row.ID, Secret: row.Secret, Public: row.Public}
	if row.GrantTypes != "" {
		if err := json.Unmarshal([]byte(row.GrantTypes), &c.GrantTypes); err != nil {
			return nil, err
		}
	}
	if row.RedirectURIs != "" {
		if err := json.Unmarshal([]byte(row.RedirectURIs), &c.RedirectURIs); err != nil {
			return nil, err
		}
	}
	return c, nil
}
