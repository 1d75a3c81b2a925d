package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidAppInfo       = errors.New("core: invalid app info")
	ErrInvalidPermissionSet = errors.New("core: invalid permission set")
	ErrInvalidGrantStatus   = errors.New("core: invalid grant status transition")
)

type Permission string

const (
	PermissionRead              Permission = "read"
	PermissionInsert            Permission = "insert"
	PermissionUpdate            Permission = "update"
	PermissionDelete            Permission = "delete"
	PermissionManagePermissions Permission = "manage_permissions"
)

func (p Permission) Valid() bool {
	switch Permission(strings.TrimSpace(strings.ToLower(string(p)))) {
	case PermissionRead, PermissionInsert, PermissionUpdate, PermissionDelete, PermissionManagePermissions:
		return true
	}
	return false
}

// PermissionSet maps a container name to the permissions requested on it.
// Keys are unique; ordering among keys carries no meaning.
type PermissionSet map[string][]Permission

func (s PermissionSet) Validate() error {
	for container, perms := range s {
		if strings.TrimSpace(container) == "" {
			return fmt.Errorf("%w: container name is required", ErrInvalidPermissionSet)
		}
		for _, perm := range perms {
			if !perm.Valid() {
				return fmt.Errorf("%w: unknown permission %q for container %q", ErrInvalidPermissionSet, perm, container)
			}
		}
	}
	return nil
}

// Normalize trims container names, lowercases permissions, removes
// duplicates, and sorts each permission list. The receiver is not mutated.
func (s PermissionSet) Normalize() PermissionSet {
	if s == nil {
		return PermissionSet{}
	}
	out := make(PermissionSet, len(s))
	for container, perms := range s {
		name := strings.TrimSpace(container)
		if name == "" {
			continue
		}
		set := make(map[Permission]struct{}, len(perms))
		for _, perm := range perms {
			normalized := Permission(strings.TrimSpace(strings.ToLower(string(perm))))
			if normalized == "" {
				continue
			}
			set[normalized] = struct{}{}
		}
		list := make([]Permission, 0, len(set))
		for perm := range set {
			list = append(list, perm)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[name] = list
	}
	return out
}

func (s PermissionSet) Clone() PermissionSet {
	if s == nil {
		return nil
	}
	out := make(PermissionSet, len(s))
	for container, perms := range s {
		out[container] = append([]Permission(nil), perms...)
	}
	return out
}

// AppInfo is the static identity an app presents to the authenticator.
// It is immutable after Initialise; Scope is an explicit parameter supplied
// by the host environment, never inferred from ambient caller state.
type AppInfo struct {
	ID     string
	Name   string
	Vendor string
	Scope  string
}

func (a AppInfo) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAppInfo)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAppInfo)
	}
	if strings.TrimSpace(a.Vendor) == "" {
		return fmt.Errorf("%w: vendor is required", ErrInvalidAppInfo)
	}
	return nil
}

type AuthOptions struct {
	OwnContainer bool
}

type AuthRequestKind string

const (
	AuthRequestKindApp       AuthRequestKind = "app"
	AuthRequestKindContainer AuthRequestKind = "container"
)

// AuthRequest is fully determined by caller input and never mutated after
// dispatch: buildAuthRequest deep-clones the permission set it captures.
type AuthRequest struct {
	Kind        AuthRequestKind
	App         AppInfo
	Permissions PermissionSet
	Options     AuthOptions
}

// AuthResponse is the authenticator's verdict for one dispatched exchange,
// correlated back through RequestID.
type AuthResponse struct {
	RequestID string
	Granted   bool
	AuthURI   string
	Reason    string
}

type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnected    ConnectionState = "connected"
)

type AuthState string

const (
	AuthStateUnauthenticated AuthState = "unauthenticated"
	AuthStateAuthenticated   AuthState = "authenticated"
)

type SessionPhase string

const (
	SessionPhaseCreated               SessionPhase = "created"
	SessionPhaseAwaitingAuthorization SessionPhase = "awaiting_authorization"
	SessionPhaseConnectedUnregistered SessionPhase = "connected_unregistered"
	SessionPhaseConnectedRegistered   SessionPhase = "connected_registered"
	SessionPhaseFreed                 SessionPhase = "freed"
)

// NetworkStateInfo is a point-in-time read of a session's connection and
// authorization state.
type NetworkStateInfo struct {
	Connection ConnectionState
	Auth       AuthState
	Registered bool
}

type GrantStatus string

const (
	GrantStatusActive  GrantStatus = "active"
	GrantStatusRevoked GrantStatus = "revoked"
)

// Grant is a persisted authorization credential. The AuthURI payload is
// stored encrypted; possession of the plaintext URI grants the encoded
// permissions without further user approval.
type Grant struct {
	ID                string
	AppID             string
	Version           int
	EncryptedPayload  []byte
	PayloadFormat     string
	PayloadVersion    int
	Requested         []string
	Status            GrantStatus
	EncryptionKeyID   string
	EncryptionVersion int
	RevocationReason  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type SaveGrantInput struct {
	AppID             string
	EncryptedPayload  []byte
	PayloadFormat     string
	PayloadVersion    int
	Requested         []string
	Status            GrantStatus
	EncryptionKeyID   string
	EncryptionVersion int
}

func (g *Grant) TransitionTo(status GrantStatus, reason string, now time.Time) error {
	if g == nil {
		return nil
	}
	if g.Status == status {
		g.UpdatedAt = now
		return nil
	}
	if g.Status == GrantStatusRevoked && status == GrantStatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidGrantStatus, g.Status, status)
	}
	g.Status = status
	g.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		g.RevocationReason = strings.TrimSpace(reason)
	}
	return nil
}
