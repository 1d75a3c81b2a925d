package appsession

import "github.com/goliatone/go-appsession/core"

type Config = core.Config

type RegistryConfig = core.RegistryConfig

type AuthConfig = core.AuthConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type Handle = core.Handle
type AppInfo = core.AppInfo
type AuthOptions = core.AuthOptions
type Permission = core.Permission
type PermissionSet = core.PermissionSet
type NetworkStateInfo = core.NetworkStateInfo
type Grant = core.Grant
type SaveGrantInput = core.SaveGrantInput
type GrantStore = core.GrantStore
type SecretProvider = core.SecretProvider
type Network = core.Network
type NetworkSession = core.NetworkSession
type Authenticator = core.Authenticator
type RequestCodec = core.RequestCodec
type HandleRegistry = core.HandleRegistry
type PendingAuthStore = core.PendingAuthStore
type MetricsRecorder = core.MetricsRecorder

type AuthRequest = core.AuthRequest
type AuthResponse = core.AuthResponse
type AuthRequestDescriptor = core.AuthRequestDescriptor

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithRegistry          = core.WithRegistry
	WithPendingAuthStore  = core.WithPendingAuthStore
	WithPendingAuthTTL    = core.WithPendingAuthTTL
	WithNetwork           = core.WithNetwork
	WithAuthenticator     = core.WithAuthenticator
	WithRequestCodec      = core.WithRequestCodec
	WithGrantStore        = core.WithGrantStore
	WithSecretProvider    = core.WithSecretProvider
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
