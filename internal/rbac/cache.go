package rbac

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	roleKeyPrefix      = "rbac:role:"
	defaultLoadTimeout = 2 * time.Second
)

// CachedStore fronts a Store with per-role Redis entries. Concurrent misses
// for the same role set share one upstream load.
type CachedStore struct {
	next        Store
	client      *redis.Client
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	logger      *slog.Logger
}

// NewCachedStore wraps next. A nil client or non-positive ttl disables caching.
// loadTimeout bounds a shared upstream load independently of the callers
// waiting on it; non-positive means two seconds.
func NewCachedStore(next Store, client *redis.Client, ttl, loadTimeout time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	return &CachedStore{next: next, client: client, ttl: ttl, loadTimeout: loadTimeout, logger: logger}
}

func (c *CachedStore) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// RolesByCodes implements Store.
func (c *CachedStore) RolesByCodes(ctx context.Context, codes []string) ([]Role, error) {
	codes = NormalizeRoleCodes(codes)
	if !c.enabled() || len(codes) == 0 {
		return c.next.RolesByCodes(ctx, codes)
	}

	hits, misses := c.lookup(ctx, codes)
	if len(misses) == 0 {
		return hits, nil
	}

	loaded, err := c.load(ctx, misses)
	if err != nil {
		return nil, err
	}
	roles := append(hits, loaded...)
	sort.Slice(roles, func(i, j int) bool { return roles[i].Code < roles[j].Code })
	return roles, nil
}

// Invalidate drops the cached entries of the given role codes.
func (c *CachedStore) Invalidate(ctx context.Context, codes ...string) error {
	if !c.enabled() {
		return nil
	}
	codes = NormalizeRoleCodes(codes)
	if len(codes) == 0 {
		return nil
	}
	return c.client.Del(ctx, roleKeys(codes)...).Err()
}

func (c *CachedStore) lookup(ctx context.Context, codes []string) ([]Role, []string) {
	values, err := c.client.MGet(ctx, roleKeys(codes)...).Result()
	if err != nil {
		c.logger.Warn("rbac cache read", slog.Any("error", err))
		return nil, codes
	}
	var (
		hits   []Role
		misses []string
	)
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, codes[i])
			continue
		}
		var role Role
		if err := json.Unmarshal([]byte(raw), &role); err != nil {
			c.logger.Warn("rbac cache decode", slog.String("role", codes[i]), slog.Any("error", err))
			misses = append(misses, codes[i])
			continue
		}
		hits = append(hits, role)
	}
	return hits, misses
}

func (c *CachedStore) load(ctx context.Context, codes []string) ([]Role, error) {
	key := strings.Join(codes, ",")
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		// The first caller's deadline must not fail everyone joined to it.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		roles, err := c.next.RolesByCodes(lctx, codes)
		if err != nil {
			return nil, err
		}
		c.store(lctx, roles)
		return roles, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]Role)
		out := make([]Role, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (c *CachedStore) store(ctx context.Context, roles []Role) {
	if len(roles) == 0 {
		return
	}
	pipe := c.client.Pipeline()
	for _, role := range roles {
		raw, err := json.Marshal(role)
		if err != nil {
			c.logger.Warn("rbac cache encode", slog.String("role", role.Code), slog.Any("error", err))
			continue
		}
		pipe.Set(ctx, roleKeyPrefix+role.Code, raw, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("rbac cache write", slog.Any("error", err))
	}
}

func roleKeys(codes []string) []string {
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = roleKeyPrefix + code
	}
	return keys
}
