package store

import (
	"context"
	"strings"
	"sync"

	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/models"
	"gorm.io/gorm"
)

// UserStore in-memory user directory keyed by ID and username.
type UserStore struct {
	sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]*models.User
}

// NewUserStore create user store (memory)
func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]*models.User),
	}
}

// Set adds or replaces a user. Usernames are matched case-insensitively.
func (us *UserStore) Set(u *models.User) error {
	us.Lock()
	defer us.Unlock()

	if old, ok := us.byID[u.ID]; ok {
		delete(us.byUsername, strings.ToLower(old.Username))
	}
	us.byID[u.ID] = u
	us.byUsername[strings.ToLower(u.Username)] = u
	return nil
}

// Upsert stores u; same as Set.
func (us *UserStore) Upsert(ctx context.Context, u *models.User) error {
	return us.Set(u)
}

// GetByID implements oauth2.UserStore.
func (us *UserStore) GetByID(ctx context.Context, id string) (oauth2.UserInfo, error) {
	us.RLock()
	defer us.RUnlock()

	if u, ok := us.byID[id]; ok {
		return u, nil
	}
	return nil, errors.ErrNotFound
}

// Authenticate returns errors.ErrNotFound for an unknown username or a wrong password.
func (us *UserStore) Authenticate(ctx context.Context, username, password string) (oauth2.UserInfo, error) {
	us.RLock()
	u, ok := us.byUsername[strings.ToLower(username)]
	us.RUnlock()

	var hash string
	if ok {
		hash = u.PasswordHash
	}
	if !checkPassword(hash, password) {
		return nil, errors.ErrNotFound
	}
	return u, nil
}

// --- Persistent user store ---

type DBUserStore struct{ DB *gorm.DB }

func NewDBUserStore(db *gorm.DB) *DBUserStore { return &DBUserStore{DB: db} }

// Upsert creates or updates a user row.
func (s *DBUserStore) Upsert(ctx context.Context, u *models.User) error {
	return s.DB.WithContext(ctx).Exec(
		`INSERT INTO oauth2_users(id, username, password_hash, email, first_name, last_name)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username=excluded.username, password_hash=excluded.password_hash, email=excluded.email, first_name=excluded.first_name, last_name=excluded.last_name, updated_at=CURRENT_TIMESTAMP`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName,
	).Error
}

// GetByID implements oauth2.UserStore backed by DB.
func (s *DBUserStore) GetByID(ctx context.Context, id string) (oauth2.UserInfo, error) {
	return s.find(ctx, `id=?`, id)
}

// Authenticate implements oauth2.UserStore backed by DB.
func (s *DBUserStore) Authenticate(ctx context.Context, username, password string) (oauth2.UserInfo, error) {
	u, err := s.find(ctx, `lower(username)=lower(?)`, username)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	var hash string
	if u != nil {
		hash = u.PasswordHash
	}
	if !checkPassword(hash, password) {
		return nil, errors.ErrNotFound
	}
	return u, nil
}

func (s *DBUserStore) find(ctx context.Context, where string, arg string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Raw(
		`SELECT id, username, password_hash, email, first_name, last_name FROM oauth2_users WHERE `+where, arg,
	).Scan(&u).Error; err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, errors.ErrNotFound
	}
	return &u, nil
}
