package command

import (
	"strings"

	"github.com/goliatone/go-appsession/core"
)

const (
	TypeInitialise            = "appsession.command.initialise"
	TypeConnect               = "appsession.command.connect"
	TypeAuthorise             = "appsession.command.authorise"
	TypeAuthoriseContainer    = "appsession.command.authorise_container"
	TypeConnectAuthorised     = "appsession.command.connect_authorised"
	TypeConnectStored         = "appsession.command.connect_stored"
	TypeCompleteAuthorisation = "appsession.command.complete_authorisation"
	TypeRevokeStoredGrant     = "appsession.command.revoke_stored_grant"
	TypeFree                  = "appsession.command.free"
)

type InitialiseMessage struct {
	App core.AppInfo
}

func (InitialiseMessage) Type() string { return TypeInitialise }

func (m InitialiseMessage) Validate() error {
	if err := m.App.Validate(); err != nil {
		return commandWrapValidation(err, "command: app info is invalid")
	}
	return nil
}

type ConnectMessage struct {
	Session core.Handle
}

func (ConnectMessage) Type() string { return TypeConnect }

func (m ConnectMessage) Validate() error {
	return validateSessionHandle(m.Session)
}

type AuthoriseMessage struct {
	Session     core.Handle
	Permissions core.PermissionSet
	Options     core.AuthOptions
}

func (AuthoriseMessage) Type() string { return TypeAuthorise }

func (m AuthoriseMessage) Validate() error {
	if err := validateSessionHandle(m.Session); err != nil {
		return err
	}
	if len(m.Permissions) == 0 && !m.Options.OwnContainer {
		return commandValidationError("permissions", "at least one container permission or own container is required")
	}
	return nil
}

type AuthoriseContainerMessage struct {
	Session     core.Handle
	Permissions core.PermissionSet
}

func (AuthoriseContainerMessage) Type() string { return TypeAuthoriseContainer }

func (m AuthoriseContainerMessage) Validate() error {
	if err := validateSessionHandle(m.Session); err != nil {
		return err
	}
	if len(m.Permissions) == 0 {
		return commandValidationError("permissions", "at least one container permission is required")
	}
	return nil
}

type ConnectAuthorisedMessage struct {
	Session core.Handle
	AuthURI string
}

func (ConnectAuthorisedMessage) Type() string { return TypeConnectAuthorised }

func (m ConnectAuthorisedMessage) Validate() error {
	if err := validateSessionHandle(m.Session); err != nil {
		return err
	}
	if strings.TrimSpace(m.AuthURI) == "" {
		return commandValidationError("auth_uri", "auth uri is required")
	}
	return nil
}

type ConnectStoredMessage struct {
	Session core.Handle
}

func (ConnectStoredMessage) Type() string { return TypeConnectStored }

func (m ConnectStoredMessage) Validate() error {
	return validateSessionHandle(m.Session)
}

type CompleteAuthorisationMessage struct {
	ResponseURI string
}

func (CompleteAuthorisationMessage) Type() string { return TypeCompleteAuthorisation }

func (m CompleteAuthorisationMessage) Validate() error {
	if strings.TrimSpace(m.ResponseURI) == "" {
		return commandValidationError("response_uri", "response uri is required")
	}
	return nil
}

type RevokeStoredGrantMessage struct {
	AppID  string
	Reason string
}

func (RevokeStoredGrantMessage) Type() string { return TypeRevokeStoredGrant }

func (m RevokeStoredGrantMessage) Validate() error {
	if strings.TrimSpace(m.AppID) == "" {
		return commandValidationError("app_id", "app id is required")
	}
	return nil
}

type FreeMessage struct {
	Handle core.Handle
}

func (FreeMessage) Type() string { return TypeFree }

func (m FreeMessage) Validate() error {
	if strings.TrimSpace(string(m.Handle)) == "" {
		return commandValidationError("handle", "handle is required")
	}
	return nil
}

func validateSessionHandle(handle core.Handle) error {
	if strings.TrimSpace(string(handle)) == "" {
		return commandValidationError("session", "session handle is required")
	}
	return nil
}
