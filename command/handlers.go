package command

import (
	"context"

	"github.com/goliatone/go-appsession/core"
	gocmd "github.com/goliatone/go-command"
)

// MutatingService is the mutating slice of the session surface the command
// facade fronts. *core.Service satisfies it.
type MutatingService interface {
	Initialise(ctx context.Context, app core.AppInfo) (core.Handle, error)
	Connect(ctx context.Context, session core.Handle) error
	Authorise(ctx context.Context, session core.Handle, perms core.PermissionSet, opts core.AuthOptions) (string, error)
	AuthoriseContainer(ctx context.Context, session core.Handle, perms core.PermissionSet) (string, error)
	ConnectAuthorised(ctx context.Context, session core.Handle, authURI string) error
	ConnectStored(ctx context.Context, session core.Handle) error
	CompleteAuthorisation(ctx context.Context, responseURI string) error
	RevokeStoredGrant(ctx context.Context, appID string, reason string) error
	Free(ctx context.Context, handle core.Handle) error
}

type InitialiseCommand struct {
	service MutatingService
}

func NewInitialiseCommand(service MutatingService) *InitialiseCommand {
	return &InitialiseCommand{service: service}
}

func (c *InitialiseCommand) Execute(ctx context.Context, msg InitialiseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: initialise service is required")
	}
	out, err := c.service.Initialise(ctx, msg.App)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectCommand struct {
	service MutatingService
}

func NewConnectCommand(service MutatingService) *ConnectCommand {
	return &ConnectCommand{service: service}
}

func (c *ConnectCommand) Execute(ctx context.Context, msg ConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect service is required")
	}
	return c.service.Connect(ctx, msg.Session)
}

type AuthoriseCommand struct {
	service MutatingService
}

func NewAuthoriseCommand(service MutatingService) *AuthoriseCommand {
	return &AuthoriseCommand{service: service}
}

func (c *AuthoriseCommand) Execute(ctx context.Context, msg AuthoriseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorise service is required")
	}
	out, err := c.service.Authorise(ctx, msg.Session, msg.Permissions, msg.Options)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AuthoriseContainerCommand struct {
	service MutatingService
}

func NewAuthoriseContainerCommand(service MutatingService) *AuthoriseContainerCommand {
	return &AuthoriseContainerCommand{service: service}
}

func (c *AuthoriseContainerCommand) Execute(ctx context.Context, msg AuthoriseContainerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: authorise container service is required")
	}
	out, err := c.service.AuthoriseContainer(ctx, msg.Session, msg.Permissions)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConnectAuthorisedCommand struct {
	service MutatingService
}

func NewConnectAuthorisedCommand(service MutatingService) *ConnectAuthorisedCommand {
	return &ConnectAuthorisedCommand{service: service}
}

func (c *ConnectAuthorisedCommand) Execute(ctx context.Context, msg ConnectAuthorisedMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect authorised service is required")
	}
	return c.service.ConnectAuthorised(ctx, msg.Session, msg.AuthURI)
}

type ConnectStoredCommand struct {
	service MutatingService
}

func NewConnectStoredCommand(service MutatingService) *ConnectStoredCommand {
	return &ConnectStoredCommand{service: service}
}

func (c *ConnectStoredCommand) Execute(ctx context.Context, msg ConnectStoredMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connect stored service is required")
	}
	return c.service.ConnectStored(ctx, msg.Session)
}

type CompleteAuthorisationCommand struct {
	service MutatingService
}

func NewCompleteAuthorisationCommand(service MutatingService) *CompleteAuthorisationCommand {
	return &CompleteAuthorisationCommand{service: service}
}

func (c *CompleteAuthorisationCommand) Execute(ctx context.Context, msg CompleteAuthorisationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: complete authorisation service is required")
	}
	return c.service.CompleteAuthorisation(ctx, msg.ResponseURI)
}

type RevokeStoredGrantCommand struct {
	service MutatingService
}

func NewRevokeStoredGrantCommand(service MutatingService) *RevokeStoredGrantCommand {
	return &RevokeStoredGrantCommand{service: service}
}

func (c *RevokeStoredGrantCommand) Execute(ctx context.Context, msg RevokeStoredGrantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: revoke stored grant service is required")
	}
	return c.service.RevokeStoredGrant(ctx, msg.AppID, msg.Reason)
}

type FreeCommand struct {
	service MutatingService
}

func NewFreeCommand(service MutatingService) *FreeCommand {
	return &FreeCommand{service: service}
}

func (c *FreeCommand) Execute(ctx context.Context, msg FreeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: free service is required")
	}
	return c.service.Free(ctx, msg.Handle)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
