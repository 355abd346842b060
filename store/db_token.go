package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/models"
	"gorm.io/gorm"
)

// DBTokenStore persists codes and token pairs in Postgres. Single-use reads
// are one DELETE/UPDATE ... RETURNING statement each, so the row lock decides
// which of two concurrent callers gets the record.
type DBTokenStore struct{ DB *gorm.DB }

func NewDBTokenStore(db *gorm.DB) *DBTokenStore { return &DBTokenStore{DB: db} }

type codeRow struct {
	Code        string    `gorm:"column:code"`
	ClientID    string    `gorm:"column:client_id"`
	UserID      string    `gorm:"column:user_id"`
	RedirectURI string    `gorm:"column:redirect_uri"`
	Scope       string    `gorm:"column:scope"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

type tokenRow struct {
	ID               string     `gorm:"column:id"`
	ClientID         string     `gorm:"column:client_id"`
	UserID           string     `gorm:"column:user_id"`
	RedirectURI      string     `gorm:"column:redirect_uri"`
	Scope            string     `gorm:"column:scope"`
	Access           *string    `gorm:"column:access"`
	AccessCreatedAt  time.Time  `gorm:"column:access_created_at"`
	AccessExpiresAt  time.Time  `gorm:"column:access_expires_at"`
	Refresh          *string    `gorm:"column:refresh"`
	RefreshCreatedAt *time.Time `gorm:"column:refresh_created_at"`
	RefreshExpiresAt *time.Time `gorm:"column:refresh_expires_at"`
}

const codeColumns = `code, client_id, user_id, redirect_uri, scope, created_at, expires_at`

const tokenColumns = `id, client_id, user_id, redirect_uri, scope, access, access_created_at, access_expires_at, refresh, refresh_created_at, refresh_expires_at`

func (r *codeRow) token() oauth2.TokenInfo {
	if r.Code == "" {
		return nil
	}
	return &models.Token{
		ClientID:      r.ClientID,
		UserID:        r.UserID,
		RedirectURI:   r.RedirectURI,
		Scope:         r.Scope,
		Code:          r.Code,
		CodeCreateAt:  r.CreatedAt,
		CodeExpiresIn: r.ExpiresAt.Sub(r.CreatedAt),
	}
}

func (r *tokenRow) token() oauth2.TokenInfo {
	if r.ID == "" {
		return nil
	}
	t := &models.Token{
		ClientID:        r.ClientID,
		UserID:          r.UserID,
		RedirectURI:     r.RedirectURI,
		Scope:           r.Scope,
		AccessCreateAt:  r.AccessCreatedAt,
		AccessExpiresIn: r.AccessExpiresAt.Sub(r.AccessCreatedAt),
	}
	if r.Access != nil {
		t.Access = *r.Access
	}
	if r.Refresh != nil {
		t.Refresh = *r.Refresh
	}
	if r.RefreshCreatedAt != nil {
		t.RefreshCreateAt = *r.RefreshCreatedAt
		if r.RefreshExpiresAt != nil {
			t.RefreshExpiresIn = r.RefreshExpiresAt.Sub(*r.RefreshCreatedAt)
		}
	}
	return t
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts an authorization code or a token pair.
func (s *DBTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	db := s.DB.WithContext(ctx)
	if code := info.GetCode(); code != "" {
		ct := info.GetCodeCreateAt()
		return db.Exec(
			`INSERT INTO oauth2_codes(`+codeColumns+`) VALUES(?,?,?,?,?,?,?)`,
			code, info.GetClientID(), info.GetUserID(), info.GetRedirectURI(), info.GetScope(), ct, ct.Add(info.GetCodeExpiresIn()),
		).Error
	}

	act := info.GetAccessCreateAt()
	var rct, rexp *time.Time
	if info.GetRefresh() != "" {
		c := info.GetRefreshCreateAt()
		rct = &c
		if exp := info.GetRefreshExpiresIn(); exp > 0 {
			e := c.Add(exp)
			rexp = &e
		}
	}
	return db.Exec(
		`INSERT INTO oauth2_tokens(`+tokenColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), info.GetClientID(), info.GetUserID(), info.GetRedirectURI(), info.GetScope(),
		nullable(info.GetAccess()), act, act.Add(info.GetAccessExpiresIn()),
		nullable(info.GetRefresh()), rct, rexp,
	).Error
}

func (s *DBTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return s.DB.WithContext(ctx).Exec(`DELETE FROM oauth2_codes WHERE code=?`, code).Error
}

func (s *DBTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return s.DB.WithContext(ctx).Exec(`UPDATE oauth2_tokens SET access=NULL WHERE access=?`, access).Error
}

func (s *DBTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	return s.DB.WithContext(ctx).Exec(`UPDATE oauth2_tokens SET refresh=NULL WHERE refresh=?`, refresh).Error
}

func (s *DBTokenStore) RemoveRefreshByUserID(ctx context.Context, userID string) (int, error) {
	res := s.DB.WithContext(ctx).Exec(`UPDATE oauth2_tokens SET refresh=NULL WHERE user_id=? AND refresh IS NOT NULL`, userID)
	return int(res.RowsAffected), res.Error
}

func (s *DBTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	var row codeRow
	if err := s.DB.WithContext(ctx).Raw(
		`SELECT `+codeColumns+` FROM oauth2_codes WHERE code=? AND expires_at > ?`, code, time.Now(),
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	return row.token(), nil
}

func (s *DBTokenStore) TakeByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	var row codeRow
	if err := s.DB.WithContext(ctx).Raw(
		`DELETE FROM oauth2_codes WHERE code=? RETURNING `+codeColumns, code,
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	ti := row.token()
	if ti == nil || models.CodeExpired(ti, time.Now()) {
		return nil, nil
	}
	return ti, nil
}

func (s *DBTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	var row tokenRow
	if err := s.DB.WithContext(ctx).Raw(
		`SELECT `+tokenColumns+` FROM oauth2_tokens WHERE access=? AND access_expires_at > ?`, access, time.Now(),
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	return row.token(), nil
}

func (s *DBTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	var row tokenRow
	if err := s.DB.WithContext(ctx).Raw(
		`SELECT `+tokenColumns+` FROM oauth2_tokens WHERE refresh=? AND (refresh_expires_at IS NULL OR refresh_expires_at > ?)`, refresh, time.Now(),
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	return row.token(), nil
}

// TakeByRefresh clears the refresh column and returns the row as it was.
func (s *DBTokenStore) TakeByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	var row tokenRow
	if err := s.DB.WithContext(ctx).Raw(
		`UPDATE oauth2_tokens SET refresh=NULL WHERE refresh=? RETURNING `+tokenColumns, refresh,
	).Scan(&row).Error; err != nil {
		return nil, err
	}
	row.Refresh = nullable(refresh)
	ti := row.token()
	if ti == nil || models.RefreshExpired(ti, time.Now()) {
		return nil, nil
	}
	return ti, nil
}

// PurgeExpired deletes expired codes and token rows with nothing left to redeem.
func (s *DBTokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var total int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`DELETE FROM oauth2_codes WHERE expires_at <= ?`, now)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		res = tx.Exec(
			`DELETE FROM oauth2_tokens
			 WHERE (access IS NULL OR access_expires_at <= ?)
			   AND (refresh IS NULL OR (refresh_expires_at IS NOT NULL AND refresh_expires_at <= ?))`,
			now, now,
		)
		if res.Error != nil {
			return res.Error
		}
		total += res.RowsAffected
		return nil
	})
	return total, err
}
