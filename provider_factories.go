package appsession

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-appsession/dispatch"
	appmigrations "github.com/goliatone/go-appsession/migrations"
	"github.com/goliatone/go-appsession/security"
	sqlstore "github.com/goliatone/go-appsession/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// PersistenceConfig carries the connection settings for the grant store
// database. Server is the DSN for the selected driver.
type PersistenceConfig struct {
	Debug          bool
	Server         string
	PingTimeout    time.Duration
	OtelIdentifier string

	driver string
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return c.driver
}

func (c PersistenceConfig) GetServer() string {
	return c.Server
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-appsession"
	}
	return c.OtelIdentifier
}

// NewPostgresPersistence opens a Postgres-backed persistence client with the
// grant store migrations registered and applied.
func NewPostgresPersistence(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	cfg.driver = "postgres"
	return newPersistenceClient(ctx, cfg, pgdialect.New(), appmigrations.DialectPostgres)
}

// NewSQLitePersistence opens a SQLite-backed persistence client with the
// grant store migrations registered and applied. Suited to single-process
// hosts and development setups.
func NewSQLitePersistence(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	cfg.driver = "sqlite3"
	return newPersistenceClient(ctx, cfg, sqlitedialect.New(), appmigrations.DialectSQLite)
}

func newPersistenceClient(
	ctx context.Context,
	cfg PersistenceConfig,
	dialect schema.Dialect,
	migrationDialect string,
) (*persistence.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("appsession: persistence server DSN is required")
	}

	sqlDB, err := sql.Open(cfg.driver, cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("appsession: open %s database: %w", cfg.driver, err)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	_, err = appmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationDialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, appmigrations.WithValidationTargets(migrationDialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// SQLGrantStores builds the bun-backed repository factory over an open
// persistence client. Pass the result to WithRepositoryFactory.
func SQLGrantStores(client *persistence.Client) (*sqlstore.RepositoryFactory, error) {
	return sqlstore.NewRepositoryFactoryFromPersistence(client)
}

// ChannelTransport returns an in-process authenticator channel, useful when
// the authenticator runs inside the same host process.
func ChannelTransport(buffer int) *dispatch.ChannelAdapter {
	return dispatch.NewChannelAdapter(buffer)
}

// HTTPTransport returns an authenticator channel that POSTs encoded request
// descriptors to an HTTP endpoint.
func HTTPTransport(endpoint string, client dispatch.HTTPDoer) *dispatch.HTTPAdapter {
	return dispatch.NewHTTPAdapter(endpoint, client)
}

// TransportFromRegistry selects or builds an authenticator channel by kind.
// A nil registry selects from the default channel set.
func TransportFromRegistry(
	registry *dispatch.Registry,
	kind string,
	config map[string]any,
) (dispatch.Adapter, error) {
	if registry == nil {
		registry = dispatch.NewDefaultRegistry()
	}
	return registry.Build(kind, config)
}

// AppKeySecrets builds the symmetric secret provider used to encrypt stored
// authorization grants at rest.
func AppKeySecrets(key string, opts ...security.Option) (*security.AppKeySecretProvider, error) {
	return security.NewAppKeySecretProviderFromString(key, opts...)
}

// KeyringSecrets wraps a current key plus older keys so grants encrypted
// before a rotation stay readable.
func KeyringSecrets(
	current *security.AppKeySecretProvider,
	previous ...*security.AppKeySecretProvider,
) (*security.KeyringSecretProvider, error) {
	return security.NewKeyringSecretProvider(current, previous...)
}
