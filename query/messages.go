package query

import (
	"strings"

	"github.com/goliatone/go-appsession/core"
)

const (
	TypeNetworkState       = "appsession.query.network_state"
	TypeIsRegistered       = "appsession.query.is_registered"
	TypeContainersNames    = "appsession.query.containers_names"
	TypeCanAccessContainer = "appsession.query.can_access_container"
	TypeWebFetch           = "appsession.query.web_fetch"
)

type NetworkStateMessage struct {
	Session core.Handle
}

func (NetworkStateMessage) Type() string { return TypeNetworkState }

func (m NetworkStateMessage) Validate() error {
	return validateSessionHandle(m.Session)
}

type IsRegisteredMessage struct {
	Session core.Handle
}

func (IsRegisteredMessage) Type() string { return TypeIsRegistered }

func (m IsRegisteredMessage) Validate() error {
	return validateSessionHandle(m.Session)
}

type ContainersNamesMessage struct {
	Session core.Handle
}

func (ContainersNamesMessage) Type() string { return TypeContainersNames }

func (m ContainersNamesMessage) Validate() error {
	return validateSessionHandle(m.Session)
}

type CanAccessContainerMessage struct {
	Session     core.Handle
	Container   string
	Permissions []core.Permission
}

func (CanAccessContainerMessage) Type() string { return TypeCanAccessContainer }

func (m CanAccessContainerMessage) Validate() error {
	if err := validateSessionHandle(m.Session); err != nil {
		return err
	}
	if strings.TrimSpace(m.Container) == "" {
		return queryValidationError("container", "container name is required")
	}
	if len(m.Permissions) == 0 {
		return queryValidationError("permissions", "at least one permission is required")
	}
	return nil
}

type WebFetchMessage struct {
	Session core.Handle
	URL     string
}

func (WebFetchMessage) Type() string { return TypeWebFetch }

func (m WebFetchMessage) Validate() error {
	if err := validateSessionHandle(m.Session); err != nil {
		return err
	}
	if strings.TrimSpace(m.URL) == "" {
		return queryValidationError("url", "url is required")
	}
	return nil
}

func validateSessionHandle(handle core.Handle) error {
	if strings.TrimSpace(string(handle)) == "" {
		return queryValidationError("session", "session handle is required")
	}
	return nil
}
