package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/models"
	"github.com/tidwall/buntdb"
)

// NewMemoryTokenStore create a token store instance based on memory
func NewMemoryTokenStore() (oauth2.TokenStore, error) {
	return NewFileTokenStore(":memory:")
}

// NewFileTokenStore create a token store instance based on file
func NewFileTokenStore(filename string) (oauth2.TokenStore, error) {
	db, err := buntdb.Open(filename)
	if err != nil {
		return nil, err
	}
	return &TokenStore{db: db}, nil
}

// TokenStore token storage based on buntdb(https://github.com/tidwall/buntdb).
// Codes are stored whole under "code:", token pairs under "data:<id>" with
// "access:" and "refresh:" pointers, and "user:<uid>:refresh:" indexes the
// refresh tokens of each user.
type TokenStore struct {
	db *buntdb.DB
}

// Create create and store the new token information
func (ts *TokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	ct := time.Now()
	jv, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return ts.db.Update(func(tx *buntdb.Tx) error {
		if code := info.GetCode(); code != "" {
			_, _, err := tx.Set(codeKey(code), string(jv), ttlOptions(info.GetCodeCreateAt().Add(info.GetCodeExpiresIn()).Sub(ct)))
			return err
		}

		basicID := uuid.NewString()
		aexp := info.GetAccessCreateAt().Add(info.GetAccessExpiresIn()).Sub(ct)
		dexp := aexp
		if refresh := info.GetRefresh(); refresh != "" {
			var rexp time.Duration
			if info.GetRefreshExpiresIn() > 0 {
				rexp = info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()).Sub(ct)
			}
			if rexp == 0 || rexp > dexp {
				dexp = rexp
			}
			if _, _, err := tx.Set(refreshKey(refresh), basicID, ttlOptions(rexp)); err != nil {
				return err
			}
			if uid := info.GetUserID(); uid != "" {
				if _, _, err := tx.Set(userRefreshKey(uid, refresh), basicID, ttlOptions(rexp)); err != nil {
					return err
				}
			}
		}
		if _, _, err := tx.Set(dataKey(basicID), string(jv), ttlOptions(dexp)); err != nil {
			return err
		}
		_, _, err := tx.Set(accessKey(info.GetAccess()), basicID, ttlOptions(aexp))
		return err
	})
}

// RemoveByCode use the authorization code to delete the token information
func (ts *TokenStore) RemoveByCode(ctx context.Context, code string) error {
	return ts.remove(codeKey(code))
}

// RemoveByAccess use the access token to delete the token information
func (ts *TokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return ts.remove(accessKey(access))
}

// RemoveByRefresh use the refresh token to delete the token information
func (ts *TokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	_, err := ts.TakeByRefresh(ctx, refresh)
	return err
}

// RemoveRefreshByUserID deletes every refresh token indexed under the user
func (ts *TokenStore) RemoveRefreshByUserID(ctx context.Context, userID string) (int, error) {
	prefix := userRefreshKey(userID, "")
	n := 0
	err := ts.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		err := tx.AscendKeys(prefix+"*", func(k, v string) bool {
			keys = append(keys, k)
			return true
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
			_, err := tx.Delete(refreshKey(strings.TrimPrefix(k, prefix)))
			if err == nil {
				n++
			} else if err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	return n, err
}

// GetByCode use the authorization code for token information data
func (ts *TokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	var ti oauth2.TokenInfo
	err := ts.db.View(func(tx *buntdb.Tx) error {
		var err error
		ti, err = getJSON(tx, codeKey(code))
		return err
	})
	if err != nil || ti == nil || models.CodeExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// TakeByCode reads and deletes the authorization code in one write transaction
func (ts *TokenStore) TakeByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	var ti oauth2.TokenInfo
	err := ts.db.Update(func(tx *buntdb.Tx) error {
		var err error
		ti, err = getJSON(tx, codeKey(code))
		if err != nil || ti == nil {
			return err
		}
		_, err = tx.Delete(codeKey(code))
		return err
	})
	if err != nil || ti == nil || models.CodeExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// GetByAccess use the access token for token information data
func (ts *TokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	var ti oauth2.TokenInfo
	err := ts.db.View(func(tx *buntdb.Tx) error {
		var err error
		ti, err = getByPointer(tx, accessKey(access))
		return err
	})
	if err != nil || ti == nil || models.AccessExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// GetByRefresh use the refresh token for token information data
func (ts *TokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	var ti oauth2.TokenInfo
	err := ts.db.View(func(tx *buntdb.Tx) error {
		var err error
		ti, err = getByPointer(tx, refreshKey(refresh))
		return err
	})
	if err != nil || ti == nil || models.RefreshExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// TakeByRefresh reads the token data and deletes the refresh pointer in one write transaction
func (ts *TokenStore) TakeByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	var ti oauth2.TokenInfo
	err := ts.db.Update(func(tx *buntdb.Tx) error {
		var err error
		ti, err = getByPointer(tx, refreshKey(refresh))
		if err != nil || ti == nil {
			return err
		}
		if _, err := tx.Delete(refreshKey(refresh)); err != nil {
			return err
		}
		if uid := ti.GetUserID(); uid != "" {
			if _, err := tx.Delete(userRefreshKey(uid, refresh)); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil || ti == nil || models.RefreshExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

func (ts *TokenStore) remove(key string) error {
	err := ts.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(key)
		return err
	})
	if err == buntdb.ErrNotFound {
		return nil
	}
	return err
}

func getJSON(tx *buntdb.Tx, key string) (oauth2.TokenInfo, error) {
	jv, err := tx.Get(key)
	if err != nil {
		if err == buntdb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var tm models.Token
	if err := json.Unmarshal([]byte(jv), &tm); err != nil {
		return nil, err
	}
	return &tm, nil
}

func getByPointer(tx *buntdb.Tx, key string) (oauth2.TokenInfo, error) {
	basicID, err := tx.Get(key)
	if err != nil {
		if err == buntdb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return getJSON(tx, dataKey(basicID))
}

// ttlOptions returns nil (no expiry) for a zero lifetime. A negative
// lifetime is clamped so the entry expires immediately.
func ttlOptions(ttl time.Duration) *buntdb.SetOptions {
	if ttl == 0 {
		return nil
	}
	if ttl < 0 {
		ttl = time.Nanosecond
	}
	return &buntdb.SetOptions{Expires: true, TTL: ttl}
}

func codeKey(code string) string       { return "code:" + code }
func dataKey(id string) string         { return "data:" + id }
func accessKey(access string) string   { return "access:" + access }
func refreshKey(refresh string) string { return "refresh:" + refresh }

func userRefreshKey(userID, refresh string) string {
	return "user:" + userID + ":refresh:" + refresh
}
