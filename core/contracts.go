package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// Handle is an opaque token identifying one registry entry. Handles are
// passed by value across the public surface and are never parsed or
// constructed by callers.
type Handle string

// Releaser is implemented by native references that hold resources which
// must be returned deterministically when their handle is freed.
type Releaser interface {
	Release()
}

// Network is the boundary to the underlying network protocol implementation.
// The registry stores whatever it returns as an opaque native reference.
type Network interface {
	// ConnectAnonymous opens a read-only, unregistered network session.
	ConnectAnonymous(ctx context.Context, app AppInfo) (NetworkSession, error)
	// ConnectRegistered redeems an authorization URI for a registered
	// session. The URI stays redeemable until the authenticator revokes it.
	ConnectRegistered(ctx context.Context, app AppInfo, authURI string) (NetworkSession, error)
}

// NetworkSession is one live connection to the network. Implementations own
// whatever protocol state backs it; Release must be safe to call once.
type NetworkSession interface {
	Registered() bool
	ContainerNames(ctx context.Context) ([]string, error)
	Container(ctx context.Context, name string) (Container, error)
	HomeContainer(ctx context.Context) (Container, error)
	CanAccessContainer(ctx context.Context, name string, perms []Permission) (bool, error)
	RefreshPermissions(ctx context.Context) error
	Fetch(ctx context.Context, url string) ([]byte, error)
	PublicSignKey(ctx context.Context) (SignKey, error)
	Release()
}

type SignKey interface {
	Raw(ctx context.Context) ([]byte, error)
	Sign(ctx context.Context, message []byte) ([]byte, error)
	Verify(ctx context.Context, signature, message []byte) error
	Release()
}

type Container interface {
	Name() string
	Entries(ctx context.Context) (map[string][]byte, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Release()
}

type ImmutableData interface {
	Read(ctx context.Context) ([]byte, error)
	Release()
}

// AuthRequestDescriptor is the encoded form of an AuthRequest handed to the
// dispatch channel. Payload is the raw codec output; URI is the same payload
// wrapped in the configured URI scheme for channels that deliver by URI.
type AuthRequestDescriptor struct {
	RequestID string
	URI       string
	Payload   []byte
}

// Authenticator is the external dispatch channel. Dispatch hands the request
// descriptor to the out-of-process authenticator and returns without waiting
// for the verdict; the verdict arrives out-of-band through
// Service.CompleteAuthorisation. At most one callback per dispatch is
// expected from the channel.
type Authenticator interface {
	Dispatch(ctx context.Context, descriptor AuthRequestDescriptor) error
}

// RequestCodec encodes authorization requests into opaque descriptors and
// decodes the authenticator's response URIs.
type RequestCodec interface {
	Format() string
	Version() int
	EncodeRequest(req AuthRequest, requestID string) (AuthRequestDescriptor, error)
	EncodeResponse(resp AuthResponse) (string, error)
	DecodeResponse(uri string) (AuthResponse, error)
}

type GrantStore interface {
	SaveNewVersion(ctx context.Context, in SaveGrantInput) (Grant, error)
	GetActiveByApp(ctx context.Context, appID string) (Grant, error)
	RevokeActive(ctx context.Context, appID string, reason string) error
}

type StoreProvider interface {
	GrantStore() GrantStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// SessionService is the full public operation surface, implemented by
// *Service and mirrored by the command/query facades.
type SessionService interface {
	Initialise(ctx context.Context, app AppInfo) (Handle, error)
	Connect(ctx context.Context, session Handle) error
	Authorise(ctx context.Context, session Handle, perms PermissionSet, opts AuthOptions) (string, error)
	AuthoriseContainer(ctx context.Context, session Handle, perms PermissionSet) (string, error)
	ConnectAuthorised(ctx context.Context, session Handle, authURI string) error
	ConnectStored(ctx context.Context, session Handle) error
	CompleteAuthorisation(ctx context.Context, responseURI string) error
	RevokeStoredGrant(ctx context.Context, appID string, reason string) error
	WebFetch(ctx context.Context, session Handle, url string) ([]byte, error)
	IsRegistered(ctx context.Context, session Handle) (bool, error)
	NetworkState(ctx context.Context, session Handle) (NetworkStateInfo, error)
	CanAccessContainer(ctx context.Context, session Handle, container string, perms []Permission) (bool, error)
	RefreshContainersPermissions(ctx context.Context, session Handle) error
	GetContainersNames(ctx context.Context, session Handle) ([]string, error)
	GetHomeContainer(ctx context.Context, session Handle) (Handle, error)
	GetContainer(ctx context.Context, session Handle, name string) (Handle, error)
	PublicSignKey(ctx context.Context, session Handle) (Handle, error)
	Free(ctx context.Context, handle Handle) error
}
