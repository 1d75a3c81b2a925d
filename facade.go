package appsession

import (
	"fmt"

	"github.com/goliatone/go-appsession/capability"
	appsessioncommand "github.com/goliatone/go-appsession/command"
	"github.com/goliatone/go-appsession/core"
	appsessionquery "github.com/goliatone/go-appsession/query"
)

type CommandQueryService interface {
	appsessioncommand.MutatingService
	appsessionquery.SessionReader
}

type Commands struct {
	Initialise            *appsessioncommand.InitialiseCommand
	Connect               *appsessioncommand.ConnectCommand
	Authorise             *appsessioncommand.AuthoriseCommand
	AuthoriseContainer    *appsessioncommand.AuthoriseContainerCommand
	ConnectAuthorised     *appsessioncommand.ConnectAuthorisedCommand
	ConnectStored         *appsessioncommand.ConnectStoredCommand
	CompleteAuthorisation *appsessioncommand.CompleteAuthorisationCommand
	RevokeStoredGrant     *appsessioncommand.RevokeStoredGrantCommand
	Free                  *appsessioncommand.FreeCommand
}

type Queries struct {
	NetworkState       *appsessionquery.NetworkStateQuery
	IsRegistered       *appsessionquery.IsRegisteredQuery
	ContainersNames    *appsessionquery.ContainersNamesQuery
	CanAccessContainer *appsessionquery.CanAccessContainerQuery
	WebFetch           *appsessionquery.WebFetchQuery
}

// Capabilities are the typed adapters over the handle registry. They are
// only available when the facade can see the registry the service uses.
type Capabilities struct {
	Containers    *capability.Containers
	ImmutableData *capability.ImmutableData
	SignKeys      *capability.SignKeys
}

type Facade struct {
	service      CommandQueryService
	commands     Commands
	queries      Queries
	capabilities Capabilities
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	registry *core.HandleRegistry
}

// WithHandleRegistry pins the registry the capability adapters operate on.
// Without it the facade resolves the registry from the service itself.
func WithHandleRegistry(registry *core.HandleRegistry) FacadeOption {
	return func(options *facadeOptions) {
		options.registry = registry
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("appsession: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	registry := cfg.registry
	if registry == nil {
		registry = resolveHandleRegistry(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Initialise:            appsessioncommand.NewInitialiseCommand(service),
		Connect:               appsessioncommand.NewConnectCommand(service),
		Authorise:             appsessioncommand.NewAuthoriseCommand(service),
		AuthoriseContainer:    appsessioncommand.NewAuthoriseContainerCommand(service),
		ConnectAuthorised:     appsessioncommand.NewConnectAuthorisedCommand(service),
		ConnectStored:         appsessioncommand.NewConnectStoredCommand(service),
		CompleteAuthorisation: appsessioncommand.NewCompleteAuthorisationCommand(service),
		RevokeStoredGrant:     appsessioncommand.NewRevokeStoredGrantCommand(service),
		Free:                  appsessioncommand.NewFreeCommand(service),
	}
	facade.queries = Queries{
		NetworkState:       appsessionquery.NewNetworkStateQuery(service),
		IsRegistered:       appsessionquery.NewIsRegisteredQuery(service),
		ContainersNames:    appsessionquery.NewContainersNamesQuery(service),
		CanAccessContainer: appsessionquery.NewCanAccessContainerQuery(service),
		WebFetch:           appsessionquery.NewWebFetchQuery(service),
	}
	if registry != nil {
		facade.capabilities = Capabilities{
			Containers:    capability.NewContainers(registry),
			ImmutableData: capability.NewImmutableData(registry),
			SignKeys:      capability.NewSignKeys(registry),
		}
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Capabilities() Capabilities {
	if f == nil {
		return Capabilities{}
	}
	return f.capabilities
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveHandleRegistry(service CommandQueryService) *core.HandleRegistry {
	if service == nil {
		return nil
	}
	if provider, ok := service.(interface {
		Registry() *core.HandleRegistry
	}); ok {
		if registry := provider.Registry(); registry != nil {
			return registry
		}
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	return provider.Dependencies().Registry
}
