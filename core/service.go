package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	GrantPayloadFormatAuthURI = "auth_uri"
	GrantPayloadVersionV1     = 1
)

// Service drives the session layer: it owns the handle registry, the
// pending-exchange store, and the collaborator boundaries (network,
// authenticator channel, codec, grant persistence).
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	registry          *HandleRegistry
	pendingAuth       *PendingAuthStore
	network           Network
	authenticator     Authenticator
	requestCodec      RequestCodec
	grantStore        GrantStore
	secretProvider    SecretProvider
	persistenceClient any
	repositoryFactory any
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Registry        *HandleRegistry
	PendingAuth     *PendingAuthStore
	Network         Network
	Authenticator   Authenticator
	RequestCodec    RequestCodec
	GrantStore      GrantStore
	SecretProvider  SecretProvider
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("appsession", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("appsession"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.requestCodec == nil {
		builder.requestCodec = CBORRequestCodec{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.registry == nil {
		builder.registry = NewHandleRegistry(finalConfig.Registry.MaxHandles)
	}
	if builder.pendingAuth == nil {
		ttl := builder.pendingAuthTTL
		if ttl <= 0 {
			ttl = finalConfig.Auth.PendingTTL
		}
		builder.pendingAuth = NewPendingAuthStore(ttl)
	}
	if codec, ok := builder.requestCodec.(CBORRequestCodec); ok && strings.TrimSpace(codec.Scheme) == "" {
		builder.requestCodec = CBORRequestCodec{Scheme: finalConfig.Auth.URIScheme}
	}

	if builder.grantStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			provider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if provider != nil {
				builder.grantStore = provider.GrantStore()
			}
		} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.grantStore = provider.GrantStore()
		}
	}
	if builder.grantStore == nil {
		builder.grantStore = NewMemoryGrantStore()
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		registry:          builder.registry,
		pendingAuth:       builder.pendingAuth,
		network:           builder.network,
		authenticator:     builder.authenticator,
		requestCodec:      builder.requestCodec,
		grantStore:        builder.grantStore,
		secretProvider:    builder.secretProvider,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *HandleRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Registry:        s.registry,
		PendingAuth:     s.pendingAuth,
		Network:         s.network,
		Authenticator:   s.authenticator,
		RequestCodec:    s.requestCodec,
		GrantStore:      s.grantStore,
		SecretProvider:  s.secretProvider,
	}
}

// Initialise creates a session for the given app identity and registers it
// in the handle registry. No network I/O happens here.
func (s *Service) Initialise(ctx context.Context, app AppInfo) (handle Handle, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"app_id": app.ID}
	defer func() {
		s.observeOperation(ctx, startedAt, "initialise", err, fields)
	}()

	if err = app.Validate(); err != nil {
		err = s.mapError(err)
		return "", err
	}

	session := NewSession(app)
	handle, err = s.registry.Allocate(session, "")
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	session.setHandle(handle)
	fields["session_handle"] = string(handle)
	return handle, nil
}

// Connect opens a read-only, unregistered network session.
func (s *Service) Connect(ctx context.Context, sessionHandle Handle) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_handle": string(sessionHandle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "connect", err, fields)
	}()

	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return err
	}
	if s.network == nil {
		err = s.mapError(fmt.Errorf("core: network is not configured"))
		return err
	}
	native, connectErr := s.network.ConnectAnonymous(ctx, session.App())
	if connectErr != nil {
		err = s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, connectErr))
		return err
	}
	if attachErr := session.attachAnonymous(native); attachErr != nil {
		native.Release()
		err = s.mapError(attachErr)
		return err
	}
	return nil
}

// Authorise requests app-level permissions from the external authenticator
// and suspends until the out-of-band verdict arrives or ctx expires. The
// protocol applies no timeout of its own; callers bound the wait through
// ctx. On success the granted URI is returned and, when persistence is
// configured, stored encrypted for later ConnectStored calls.
func (s *Service) Authorise(ctx context.Context, sessionHandle Handle, perms PermissionSet, authOpts AuthOptions) (string, error) {
	return s.authorise(ctx, sessionHandle, AuthRequestKindApp, perms, authOpts, "authorise")
}

// AuthoriseContainer requests an incremental container-level grant on an
// existing session. Same exchange shape as Authorise.
func (s *Service) AuthoriseContainer(ctx context.Context, sessionHandle Handle, perms PermissionSet) (string, error) {
	return s.authorise(ctx, sessionHandle, AuthRequestKindContainer, perms, AuthOptions{}, "authorise_container")
}

func (s *Service) authorise(
	ctx context.Context,
	sessionHandle Handle,
	kind AuthRequestKind,
	perms PermissionSet,
	authOpts AuthOptions,
	operation string,
) (authURI string, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"session_handle": string(sessionHandle),
		"kind":           string(kind),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, operation, err, fields)
	}()

	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return "", err
	}
	if s.authenticator == nil {
		err = s.mapError(fmt.Errorf("%w: authenticator channel is not configured", ErrDispatchFailed))
		return "", err
	}

	request, err := s.buildAuthRequest(session.App(), kind, perms, authOpts)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}

	requestID, err := generateAuthRequestID()
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	fields["request_id"] = requestID

	descriptor, err := s.requestCodec.EncodeRequest(request, requestID)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}

	done, err := s.pendingAuth.Open(AuthExchange{
		RequestID:     requestID,
		SessionHandle: sessionHandle,
		Kind:          kind,
		Request:       request,
	})
	if err != nil {
		err = s.mapError(err)
		return "", err
	}

	session.beginAuthorization()
	defer session.endAuthorization()

	if dispatchErr := s.authenticator.Dispatch(ctx, descriptor); dispatchErr != nil {
		s.pendingAuth.Abandon(requestID)
		err = s.mapError(fmt.Errorf("%w: %v", ErrDispatchFailed, dispatchErr))
		return "", err
	}

	select {
	case resp, ok := <-done:
		if !ok {
			err = s.mapError(fmt.Errorf("%w: authorization exchange abandoned", ErrDispatchFailed))
			return "", err
		}
		if !resp.Granted {
			reason := strings.TrimSpace(resp.Reason)
			if reason == "" {
				reason = "authenticator rejected the request"
			}
			err = s.mapError(fmt.Errorf("%w: %s", ErrAuthorizationDenied, reason))
			return "", err
		}
		s.persistGrant(ctx, session.App(), request, resp.AuthURI)
		return resp.AuthURI, nil
	case <-ctx.Done():
		s.pendingAuth.Abandon(requestID)
		err = s.mapError(ctx.Err())
		return "", err
	}
}

// CompleteAuthorisation is the out-of-band entry point the host environment
// invokes when the authenticator's response URI arrives. A response for an
// unknown or already-resolved exchange is ignored: the caller may have
// stopped awaiting long ago.
func (s *Service) CompleteAuthorisation(ctx context.Context, responseURI string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "complete_authorisation", err, fields)
	}()

	resp, decodeErr := s.requestCodec.DecodeResponse(responseURI)
	if decodeErr != nil {
		err = s.mapError(decodeErr)
		return err
	}
	fields["request_id"] = resp.RequestID
	fields["granted"] = resp.Granted

	if !s.pendingAuth.Resolve(resp.RequestID, resp) {
		s.logDebug(ctx, "stray authorization response ignored", map[string]any{
			"request_id": resp.RequestID,
		})
	}
	return nil
}

// ConnectAuthorised redeems a granted or persisted authorization URI and
// upgrades the session to a registered connection. Calling it again with a
// different valid URI re-authenticates.
func (s *Service) ConnectAuthorised(ctx context.Context, sessionHandle Handle, authURI string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_handle": string(sessionHandle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "connect_authorised", err, fields)
	}()

	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return err
	}
	if strings.TrimSpace(authURI) == "" {
		err = s.mapError(fmt.Errorf("core: auth uri is required"))
		return err
	}
	if s.network == nil {
		err = s.mapError(fmt.Errorf("core: network is not configured"))
		return err
	}

	native, connectErr := s.network.ConnectRegistered(ctx, session.App(), strings.TrimSpace(authURI))
	if connectErr != nil {
		err = s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, connectErr))
		return err
	}
	if attachErr := session.attachRegistered(native); attachErr != nil {
		native.Release()
		err = s.mapError(attachErr)
		return err
	}
	return nil
}

// ConnectStored redeems the persisted grant for the session's app, skipping
// a fresh authenticator handshake.
func (s *Service) ConnectStored(ctx context.Context, sessionHandle Handle) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_handle": string(sessionHandle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "connect_stored", err, fields)
	}()

	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return err
	}
	authURI, loadErr := s.loadStoredAuthURI(ctx, session.App().ID)
	if loadErr != nil {
		err = s.mapError(loadErr)
		return err
	}
	return s.ConnectAuthorised(ctx, sessionHandle, authURI)
}

// RevokeStoredGrant drops the persisted grant for an app. The URI the
// authenticator issued stays valid until revoked on the authenticator side;
// this only removes the local copy.
func (s *Service) RevokeStoredGrant(ctx context.Context, appID string, reason string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"app_id": appID}
	defer func() {
		s.observeOperation(ctx, startedAt, "revoke_stored_grant", err, fields)
	}()

	if s.grantStore == nil {
		err = s.mapError(fmt.Errorf("core: grant store is not configured"))
		return err
	}
	if revokeErr := s.grantStore.RevokeActive(ctx, appID, reason); revokeErr != nil {
		err = s.mapError(revokeErr)
		return err
	}
	return nil
}

func (s *Service) WebFetch(ctx context.Context, sessionHandle Handle, url string) (body []byte, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_handle": string(sessionHandle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "web_fetch", err, fields)
	}()

	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(url) == "" {
		err = s.mapError(fmt.Errorf("core: url is required"))
		return nil, err
	}
	body, fetchErr := native.Fetch(ctx, strings.TrimSpace(url))
	if fetchErr != nil {
		err = s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, fetchErr))
		return nil, err
	}
	return body, nil
}

func (s *Service) IsRegistered(ctx context.Context, sessionHandle Handle) (bool, error) {
	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return false, err
	}
	state := session.State()
	if state.Connection != ConnectionStateConnected {
		return false, s.mapError(fmt.Errorf("%w: session is not connected", ErrInvalidSession))
	}
	return state.Registered, nil
}

func (s *Service) NetworkState(ctx context.Context, sessionHandle Handle) (NetworkStateInfo, error) {
	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return NetworkStateInfo{}, err
	}
	return session.State(), nil
}

func (s *Service) CanAccessContainer(ctx context.Context, sessionHandle Handle, container string, perms []Permission) (bool, error) {
	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return false, err
	}
	allowed, accessErr := native.CanAccessContainer(ctx, strings.TrimSpace(container), perms)
	if accessErr != nil {
		return false, s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, accessErr))
	}
	return allowed, nil
}

func (s *Service) RefreshContainersPermissions(ctx context.Context, sessionHandle Handle) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_handle": string(sessionHandle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_containers_permissions", err, fields)
	}()

	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return err
	}
	if refreshErr := native.RefreshPermissions(ctx); refreshErr != nil {
		err = s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, refreshErr))
		return err
	}
	return nil
}

func (s *Service) GetContainersNames(ctx context.Context, sessionHandle Handle) ([]string, error) {
	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return nil, err
	}
	names, namesErr := native.ContainerNames(ctx)
	if namesErr != nil {
		return nil, s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, namesErr))
	}
	return names, nil
}

// GetHomeContainer resolves the app's own container and returns it as a
// fresh handle scoped to the session. The caller owns the free.
func (s *Service) GetHomeContainer(ctx context.Context, sessionHandle Handle) (Handle, error) {
	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return "", err
	}
	container, containerErr := native.HomeContainer(ctx)
	if containerErr != nil {
		return "", s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, containerErr))
	}
	handle, allocErr := s.registry.Allocate(container, sessionHandle)
	if allocErr != nil {
		container.Release()
		return "", s.mapError(allocErr)
	}
	return handle, nil
}

func (s *Service) GetContainer(ctx context.Context, sessionHandle Handle, name string) (Handle, error) {
	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", s.mapError(fmt.Errorf("core: container name is required"))
	}
	container, containerErr := native.Container(ctx, strings.TrimSpace(name))
	if containerErr != nil {
		return "", s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, containerErr))
	}
	handle, allocErr := s.registry.Allocate(container, sessionHandle)
	if allocErr != nil {
		container.Release()
		return "", s.mapError(allocErr)
	}
	return handle, nil
}

func (s *Service) PublicSignKey(ctx context.Context, sessionHandle Handle) (Handle, error) {
	native, err := s.resolveActive(ctx, sessionHandle)
	if err != nil {
		return "", err
	}
	key, keyErr := native.PublicSignKey(ctx)
	if keyErr != nil {
		return "", s.mapError(fmt.Errorf("%w: %v", ErrOperationFailed, keyErr))
	}
	handle, allocErr := s.registry.Allocate(key, sessionHandle)
	if allocErr != nil {
		key.Release()
		return "", s.mapError(allocErr)
	}
	return handle, nil
}

// Free releases any handle — session or capability — and its native
// resource. Handles owned by a freed session are not cascade-freed.
func (s *Service) Free(ctx context.Context, handle Handle) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"handle": string(handle)}
	defer func() {
		s.observeOperation(ctx, startedAt, "free", err, fields)
	}()

	if freeErr := s.registry.Free(handle); freeErr != nil {
		err = s.mapError(freeErr)
		return err
	}
	return nil
}

func (s *Service) buildAuthRequest(app AppInfo, kind AuthRequestKind, perms PermissionSet, authOpts AuthOptions) (AuthRequest, error) {
	if err := perms.Validate(); err != nil {
		return AuthRequest{}, err
	}
	if kind == AuthRequestKindContainer && len(perms) == 0 {
		return AuthRequest{}, fmt.Errorf("%w: container authorization needs at least one container", ErrInvalidPermissionSet)
	}
	// Normalize returns a fresh set, so the dispatched request never
	// observes later caller mutation.
	return AuthRequest{
		Kind:        kind,
		App:         app,
		Permissions: perms.Normalize(),
		Options:     authOpts,
	}, nil
}

func (s *Service) persistGrant(ctx context.Context, app AppInfo, request AuthRequest, authURI string) {
	if s.grantStore == nil || !s.config.Auth.PersistGrants {
		return
	}
	if strings.TrimSpace(authURI) == "" {
		return
	}

	payload := []byte(strings.TrimSpace(authURI))
	keyID := ""
	version := 0
	if s.secretProvider != nil {
		encrypted, encryptErr := s.secretProvider.Encrypt(ctx, payload)
		if encryptErr != nil {
			s.logError(ctx, "grant encryption failed, not persisting", map[string]any{
				"app_id": app.ID,
				"error":  encryptErr.Error(),
			})
			return
		}
		payload = encrypted
		keyID = s.config.Auth.EncryptionKeyID
		version = 1
	}

	if _, saveErr := s.grantStore.SaveNewVersion(ctx, SaveGrantInput{
		AppID:             app.ID,
		EncryptedPayload:  payload,
		PayloadFormat:     GrantPayloadFormatAuthURI,
		PayloadVersion:    GrantPayloadVersionV1,
		Requested:         FlattenPermissionSet(request.Permissions),
		Status:            GrantStatusActive,
		EncryptionKeyID:   keyID,
		EncryptionVersion: version,
	}); saveErr != nil {
		// The credential is already granted; losing the local copy only
		// costs a future handshake.
		s.logError(ctx, "grant persistence failed", map[string]any{
			"app_id": app.ID,
			"error":  saveErr.Error(),
		})
	}
}

func (s *Service) loadStoredAuthURI(ctx context.Context, appID string) (string, error) {
	if s.grantStore == nil {
		return "", fmt.Errorf("core: grant store is not configured")
	}
	grant, err := s.grantStore.GetActiveByApp(ctx, appID)
	if err != nil {
		return "", err
	}
	payload := grant.EncryptedPayload
	if grant.EncryptionVersion > 0 {
		if s.secretProvider == nil {
			return "", fmt.Errorf("core: grant is encrypted but no secret provider is configured")
		}
		decrypted, decryptErr := s.secretProvider.Decrypt(ctx, payload)
		if decryptErr != nil {
			return "", decryptErr
		}
		payload = decrypted
	}
	return string(payload), nil
}

func (s *Service) resolveSession(ctx context.Context, sessionHandle Handle) (*Session, error) {
	native, err := s.registry.Resolve(ctx, sessionHandle)
	if err != nil {
		return nil, s.mapError(err)
	}
	session, ok := native.(*Session)
	if !ok {
		return nil, s.mapError(fmt.Errorf("%w: handle %s is not a session", ErrInvalidSession, sessionHandle))
	}
	return session, nil
}

func (s *Service) resolveActive(ctx context.Context, sessionHandle Handle) (NetworkSession, error) {
	session, err := s.resolveSession(ctx, sessionHandle)
	if err != nil {
		return nil, err
	}
	native, activeErr := session.activeSession()
	if activeErr != nil {
		return nil, s.mapError(activeErr)
	}
	return native, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
