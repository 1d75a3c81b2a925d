package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-appsession/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const grantCacheKeyPrefix = "go-appsession::app_grant::v1"

// CachedGrantStore layers a read cache over a GrantStore. Writes and
// revocations invalidate the app's entry so the next read observes the
// rotated version.
type CachedGrantStore struct {
	base  core.GrantStore
	cache repositorycache.CacheService
}

func NewCachedGrantStore(
	base core.GrantStore,
	cacheService repositorycache.CacheService,
) (*CachedGrantStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base grant store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: grant cache service is required")
	}
	return &CachedGrantStore{base: base, cache: cacheService}, nil
}

// GrantCacheKey returns the deterministic cache key contract for active
// grant reads: go-appsession::app_grant::v1::<app_id> with the app id
// URL-path escaped after trimming.
func GrantCacheKey(appID string) (string, error) {
	trimmed := strings.TrimSpace(appID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: app id is required")
	}
	return grantCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedGrantStore) SaveNewVersion(ctx context.Context, in core.SaveGrantInput) (core.Grant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: cached grant store is not configured")
	}
	created, err := s.base.SaveNewVersion(ctx, in)
	if err != nil {
		return core.Grant{}, err
	}
	cacheKey, keyErr := GrantCacheKey(created.AppID)
	if keyErr != nil {
		return core.Grant{}, keyErr
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.Grant{}, err
	}
	return created, nil
}

func (s *CachedGrantStore) GetActiveByApp(ctx context.Context, appID string) (core.Grant, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: cached grant store is not configured")
	}
	cacheKey, err := GrantCacheKey(appID)
	if err != nil {
		return core.Grant{}, err
	}
	grant, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Grant, error) {
		fetched, fetchErr := s.base.GetActiveByApp(ctx, appID)
		if fetchErr != nil {
			return core.Grant{}, fetchErr
		}
		return cloneStoredGrant(fetched), nil
	})
	if err != nil {
		return core.Grant{}, err
	}
	return cloneStoredGrant(grant), nil
}

func (s *CachedGrantStore) RevokeActive(ctx context.Context, appID string, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached grant store is not configured")
	}
	cacheKey, err := GrantCacheKey(appID)
	if err != nil {
		return err
	}
	if err := s.base.RevokeActive(ctx, appID, reason); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneStoredGrant(grant core.Grant) core.Grant {
	cloned := grant
	cloned.EncryptedPayload = append([]byte(nil), grant.EncryptedPayload...)
	cloned.Requested = append([]string(nil), grant.Requested...)
	return cloned
}
