package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
	"github.com/legit-games/oauth2-core/models"
	valkey "github.com/valkey-io/valkey-go"
)

// ErrAccessLifetime is returned by Create for a token without a positive
// access lifetime.
var ErrAccessLifetime = errors.New("access token lifetime must be positive")

// indexRefresh adds a refresh hash to the user's set and keeps the set alive
// as long as its longest-lived member. ARGV[2] <= 0 means the member never
// expires. A persistent set holding other members already has one.
var indexRefresh = valkey.NewLuaScript(`
redis.call('SADD', KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl <= 0 then
  redis.call('PERSIST', KEYS[1])
  return 0
end
local cur = redis.call('TTL', KEYS[1])
if cur == -1 and redis.call('SCARD', KEYS[1]) > 1 then
  return 0
end
if cur < ttl then
  redis.call('EXPIRE', KEYS[1], ttl)
end
return 1
`)

// ValkeyTokenStore stores tokens in Valkey (Redis-compatible).
// Token strings only appear in keys as sha256 hashes.
type ValkeyTokenStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyTokenStore creates a Valkey-backed token store.
// addr example: "127.0.0.1:6379"; prefix helps namespace keys.
func NewValkeyTokenStore(addr string, prefix string) (*ValkeyTokenStore, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "oauth2:"
	}
	return &ValkeyTokenStore{client: cli, prefix: prefix}, nil
}

// Close releases the underlying client.
func (ts *ValkeyTokenStore) Close() { ts.client.Close() }

func (ts *ValkeyTokenStore) key(k string) string { return ts.prefix + k }

// tokenHash returns a stable hex sha256 for a token string.
func tokenHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// set builds a SET with an expiry, or without one when ttl is zero.
// Sub-second lifetimes round up to one second.
func (ts *ValkeyTokenStore) set(key, value string, ttl time.Duration) valkey.Completed {
	if ttl == 0 {
		return ts.client.B().Set().Key(ts.key(key)).Value(value).Build()
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ts.client.B().Set().Key(ts.key(key)).Value(value).Ex(ttl).Build()
}

// Create stores token info with basicID indirection, like the buntdb store.
func (ts *ValkeyTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	ct := time.Now()
	jv, err := json.Marshal(info)
	if err != nil {
		return err
	}

	if code := info.GetCode(); code != "" {
		ttl := info.GetCodeCreateAt().Add(info.GetCodeExpiresIn()).Sub(ct)
		if ttl <= 0 {
			return nil
		}
		return ts.client.Do(ctx, ts.set("code:"+tokenHash(code), string(jv), ttl)).Error()
	}

	if info.GetAccessExpiresIn() <= 0 {
		return ErrAccessLifetime
	}

	basicID := uuid.NewString()
	aexp := info.GetAccessCreateAt().Add(info.GetAccessExpiresIn()).Sub(ct)
	dexp := aexp
	var (
		cmds      valkey.Commands
		indexUser string
		indexHash string
		indexTTL  int64
	)

	if refresh := info.GetRefresh(); refresh != "" {
		var rexp time.Duration
		if info.GetRefreshExpiresIn() > 0 {
			rexp = info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()).Sub(ct)
		}
		if rexp == 0 || rexp > dexp {
			dexp = rexp
		}
		if rexp >= 0 {
			h := tokenHash(refresh)
			cmds = append(cmds, ts.set("refresh:"+h, basicID, rexp))
			if uid := info.GetUserID(); uid != "" {
				indexUser, indexHash = uid, h
				if rexp > 0 {
					indexTTL = int64((rexp + time.Second - 1) / time.Second)
				}
			}
		}
	}
	// already past every deadline: nothing left to redeem
	if dexp < 0 {
		return nil
	}
	cmds = append(cmds, ts.set("data:"+basicID, string(jv), dexp))
	if aexp > 0 {
		cmds = append(cmds, ts.set("access:"+tokenHash(info.GetAccess()), basicID, aexp))
	}

	for _, res := range ts.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return err
		}
	}
	if indexUser == "" {
		return nil
	}
	return indexRefresh.Exec(ctx, ts.client,
		[]string{ts.key("user:" + indexUser + ":refresh")},
		[]string{indexHash, strconv.FormatInt(indexTTL, 10)},
	).Error()
}

// remove deletes key; missing is not an error
func (ts *ValkeyTokenStore) remove(ctx context.Context, key string) error {
	return ts.client.Do(ctx, ts.client.B().Del().Key(ts.key(key)).Build()).Error()
}

func (ts *ValkeyTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return ts.remove(ctx, "code:"+tokenHash(code))
}

func (ts *ValkeyTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	return ts.remove(ctx, "access:"+tokenHash(access))
}

func (ts *ValkeyTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	_, err := ts.TakeByRefresh(ctx, refresh)
	return err
}

// RemoveRefreshByUserID deletes the refresh pointers indexed under the user.
func (ts *ValkeyTokenStore) RemoveRefreshByUserID(ctx context.Context, userID string) (int, error) {
	setKey := ts.key("user:" + userID + ":refresh")
	hashes, err := ts.client.Do(ctx, ts.client.B().Smembers().Key(setKey).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, h := range hashes {
		removed, err := ts.client.Do(ctx, ts.client.B().Del().Key(ts.key("refresh:"+h)).Build()).AsInt64()
		if err != nil {
			return n, err
		}
		n += int(removed)
	}
	return n, ts.client.Do(ctx, ts.client.B().Del().Key(setKey).Build()).Error()
}

// getString returns "" for a missing key.
func (ts *ValkeyTokenStore) getString(ctx context.Context, cmd valkey.Completed) (string, error) {
	v, err := ts.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

func decodeToken(val string) (oauth2.TokenInfo, error) {
	if val == "" {
		return nil, nil
	}
	var tm models.Token
	if err := json.Unmarshal([]byte(val), &tm); err != nil {
		return nil, err
	}
	return &tm, nil
}

func (ts *ValkeyTokenStore) getData(ctx context.Context, basicID string) (oauth2.TokenInfo, error) {
	if basicID == "" {
		return nil, nil
	}
	val, err := ts.getString(ctx, ts.client.B().Get().Key(ts.key("data:"+basicID)).Build())
	if err != nil {
		return nil, err
	}
	return decodeToken(val)
}

func (ts *ValkeyTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	val, err := ts.getString(ctx, ts.client.B().Get().Key(ts.key("code:"+tokenHash(code))).Build())
	if err != nil {
		return nil, err
	}
	ti, err := decodeToken(val)
	if err != nil || ti == nil || models.CodeExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// TakeByCode consumes the code with GETDEL so only one caller sees it.
func (ts *ValkeyTokenStore) TakeByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	val, err := ts.getString(ctx, ts.client.B().Getdel().Key(ts.key("code:"+tokenHash(code))).Build())
	if err != nil {
		return nil, err
	}
	ti, err := decodeToken(val)
	if err != nil || ti == nil || models.CodeExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

func (ts *ValkeyTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	basicID, err := ts.getString(ctx, ts.client.B().Get().Key(ts.key("access:"+tokenHash(access))).Build())
	if err != nil {
		return nil, err
	}
	ti, err := ts.getData(ctx, basicID)
	if err != nil || ti == nil || models.AccessExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

func (ts *ValkeyTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	basicID, err := ts.getString(ctx, ts.client.B().Get().Key(ts.key("refresh:"+tokenHash(refresh))).Build())
	if err != nil {
		return nil, err
	}
	ti, err := ts.getData(ctx, basicID)
	if err != nil || ti == nil || models.RefreshExpired(ti, time.Now()) {
		return nil, err
	}
	return ti, nil
}

// TakeByRefresh consumes the refresh pointer with GETDEL so only one caller sees it.
func (ts *ValkeyTokenStore) TakeByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	h := tokenHash(refresh)
	basicID, err := ts.getString(ctx, ts.client.B().Getdel().Key(ts.key("refresh:"+h)).Build())
	if err != nil {
		return nil, err
	}
	ti, err := ts.getData(ctx, basicID)
	if err != nil || ti == nil {
		return nil, err
	}
	if uid := ti.GetUserID(); uid != "" {
		_ = ts.client.Do(ctx, ts.client.B().Srem().Key(ts.key("user:"+uid+":refresh")).Member(h).Build()).Error()
	}
	if models.RefreshExpired(ti, time.Now()) {
		return nil, nil
	}
	return ti, nil
}
