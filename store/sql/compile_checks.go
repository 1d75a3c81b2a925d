package sqlstore

import "github.com/goliatone/go-appsession/core"

var (
	_ core.GrantStore             = (*GrantStore)(nil)
	_ core.GrantStore             = (*CachedGrantStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
